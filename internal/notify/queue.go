// Package notify holds transient success and error notices. Expiry is a pure
// function of the injected clock, so no timers are attached to notices.
package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
)

// Level classifies a notice.
type Level string

// Notice levels.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultTTL is how long a notice stays visible when no TTL is configured.
const DefaultTTL = 5 * time.Second

// Notice is one queued message.
type Notice struct {
	ID        uint64
	Level     Level
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the notice is no longer visible at now.
func (n Notice) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// Queue is an append/expire notice queue. It is owned by the console event
// loop and is not safe for concurrent use.
type Queue struct {
	clock  crawl.Clock
	ttl    time.Duration
	logger *zap.Logger
	nextID uint64
	items  []Notice
}

// NewQueue builds a Queue. A non-positive ttl selects DefaultTTL.
func NewQueue(clock crawl.Clock, ttl time.Duration, logger *zap.Logger) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{clock: clock, ttl: ttl, logger: logger}
}

// Push appends a notice and returns it.
func (q *Queue) Push(level Level, message string) Notice {
	q.nextID++
	now := q.clock.Now()
	n := Notice{
		ID:        q.nextID,
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}
	q.items = append(q.items, n)
	q.logger.Debug("notice queued",
		zap.Uint64("id", n.ID),
		zap.String("level", string(level)),
		zap.String("message", message),
	)
	return n
}

// Success queues a success notice.
func (q *Queue) Success(format string, args ...any) Notice {
	return q.Push(LevelSuccess, fmt.Sprintf(format, args...))
}

// Error queues an error notice.
func (q *Queue) Error(format string, args ...any) Notice {
	return q.Push(LevelError, fmt.Sprintf(format, args...))
}

// Info queues an informational notice.
func (q *Queue) Info(format string, args ...any) Notice {
	return q.Push(LevelInfo, fmt.Sprintf(format, args...))
}

// Active returns the unexpired notices, oldest first.
func (q *Queue) Active() []Notice {
	now := q.clock.Now()
	out := make([]Notice, 0, len(q.items))
	for _, n := range q.items {
		if !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

// Prune drops expired notices and returns how many were removed.
func (q *Queue) Prune() int {
	now := q.clock.Now()
	kept := q.items[:0]
	for _, n := range q.items {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	removed := len(q.items) - len(kept)
	clear(q.items[len(kept):])
	q.items = kept
	return removed
}

// Dismiss removes the notice with id. It reports whether one was found.
func (q *Queue) Dismiss(id uint64) bool {
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of queued notices, expired or not.
func (q *Queue) Len() int {
	return len(q.items)
}
