// Package memory provides the in-memory crawl store behind the stand-in
// crawl service.
package memory

import (
	"cmp"
	"context"
	"crypto/md5" //nolint:gosec // record ids are content addresses, not secrets
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/crawl-console/internal/crawl"
)

// Store errors, mapped to HTTP statuses by the API layer.
var (
	ErrConflict          = errors.New("crawl already exists")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidScoreType  = errors.New("invalid score_type")
)

// CrawlStore keeps crawl specs, statuses, and result records in memory.
type CrawlStore struct {
	mu      sync.RWMutex
	crawls  map[string]crawl.Info
	order   []string
	records map[string][]crawl.Record
}

// NewCrawlStore constructs a CrawlStore.
func NewCrawlStore() *CrawlStore {
	return &CrawlStore{
		crawls:  make(map[string]crawl.Info),
		records: make(map[string][]crawl.Record),
	}
}

// CreateCrawl stores a new job in CREATED state.
func (s *CrawlStore) CreateCrawl(_ context.Context, id string, spec crawl.Spec, now time.Time) (crawl.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.crawls[id]; exists {
		return crawl.RunState{}, fmt.Errorf("crawl %s: %w", id, ErrConflict)
	}
	for _, info := range s.crawls {
		if strings.EqualFold(info.Spec.Name, spec.Name) {
			return crawl.RunState{}, fmt.Errorf("crawl named %q: %w", spec.Name, ErrConflict)
		}
	}
	state := crawl.RunState{State: crawl.StateCreated, Timestamp: now.UTC()}
	s.crawls[id] = crawl.Info{
		Spec: spec.Clone(),
		Status: crawl.Status{
			CrawlID:      id,
			CrawlName:    spec.Name,
			CurrentState: crawl.StateCreated,
			StateHistory: []crawl.RunState{state},
			FrontierSize: len(spec.Seeds),
		},
	}
	s.order = append(s.order, id)
	return state, nil
}

// Start moves a job to RUNNING.
func (s *CrawlStore) Start(_ context.Context, id string, now time.Time) (crawl.RunState, error) {
	return s.transition(id, crawl.StateRunning, now, func(current crawl.RunStateName) error {
		if current == crawl.StateRunning {
			return fmt.Errorf("crawl %s is already running: %w", id, ErrInvalidTransition)
		}
		return nil
	})
}

// Stop moves a running job to STOPPED.
func (s *CrawlStore) Stop(_ context.Context, id string, now time.Time) (crawl.RunState, error) {
	return s.transition(id, crawl.StateStopped, now, func(current crawl.RunStateName) error {
		if current != crawl.StateRunning {
			return fmt.Errorf("crawl %s is not running: %w", id, ErrInvalidTransition)
		}
		return nil
	})
}

func (s *CrawlStore) transition(
	id string,
	next crawl.RunStateName,
	now time.Time,
	allowed func(crawl.RunStateName) error,
) (crawl.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.crawls[id]
	if !ok {
		return crawl.RunState{}, fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	if err := allowed(info.Status.CurrentState); err != nil {
		return crawl.RunState{}, err
	}
	state := crawl.RunState{State: next, Timestamp: now.UTC()}
	info.Status.CurrentState = next
	info.Status.StateHistory = append(slices.Clone(info.Status.StateHistory), state)
	s.crawls[id] = info
	return state, nil
}

// Delete removes a job that is not running.
func (s *CrawlStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.crawls[id]
	if !ok {
		return fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	if info.Status.CurrentState == crawl.StateRunning {
		return fmt.Errorf("cannot delete running crawl %s: %w", id, ErrInvalidTransition)
	}
	delete(s.crawls, id)
	delete(s.records, id)
	s.order = slices.DeleteFunc(s.order, func(other string) bool { return other == id })
	return nil
}

// Get returns a copy of one job.
func (s *CrawlStore) Get(_ context.Context, id string) (crawl.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.crawls[id]
	if !ok {
		return crawl.Info{}, fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	return cloneInfo(info), nil
}

// List returns copies of every job in creation order.
func (s *CrawlStore) List(_ context.Context) []crawl.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawl.Info, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneInfo(s.crawls[id]))
	}
	return out
}

// PutRecords appends result records to a job and bumps its counters.
func (s *CrawlStore) PutRecords(_ context.Context, id string, records ...crawl.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.crawls[id]
	if !ok {
		return fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	for _, rec := range records {
		cp := make(crawl.Record, len(rec)+1)
		for k, v := range rec {
			cp[k] = v
		}
		if _, ok := cp["id"]; !ok {
			cp["id"] = RecordID(stringField(cp, "url"))
		}
		s.records[id] = append(s.records[id], cp)
	}
	info.Status.CrawledCount += len(records)
	info.Status.ProcessedCount += len(records)
	s.crawls[id] = info
	return nil
}

// Summaries returns the top count records ranked by scoreType, highest first.
// scoreType is "composite" or an analyzer name present in the job's spec.
func (s *CrawlStore) Summaries(_ context.Context, id string, count int, scoreType string) ([]crawl.RecordSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.crawls[id]
	if !ok {
		return nil, fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	if scoreType == "" {
		scoreType = crawl.CompositeScore
	}
	if scoreType != crawl.CompositeScore {
		if _, ok := info.Spec.AnalyzerSpecs.Get(crawl.AnalyzerName(scoreType)); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScoreType, scoreType)
		}
	}
	out := make([]crawl.RecordSummary, 0, len(s.records[id]))
	for _, rec := range s.records[id] {
		out = append(out, crawl.RecordSummary{
			ID:    stringField(rec, "id"),
			URL:   stringField(rec, "url"),
			Score: recordScore(rec, scoreType),
		})
	}
	slices.SortStableFunc(out, func(a, b crawl.RecordSummary) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// Records returns the records whose ids are listed, in request order.
func (s *CrawlStore) Records(_ context.Context, id string, recordIDs []string) ([]crawl.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.crawls[id]; !ok {
		return nil, fmt.Errorf("crawl %s: %w", id, crawl.ErrNotFound)
	}
	byID := make(map[string]crawl.Record, len(s.records[id]))
	for _, rec := range s.records[id] {
		byID[stringField(rec, "id")] = rec
	}
	out := make([]crawl.Record, 0, len(recordIDs))
	for _, rid := range recordIDs {
		if rec, ok := byID[rid]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RecordID derives a record id from its URL.
func RecordID(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

func recordScore(rec crawl.Record, scoreType string) float64 {
	if scoreType == crawl.CompositeScore {
		return floatField(rec["composite_score"])
	}
	scores, ok := rec["scores"].(map[string]any)
	if !ok {
		return 0
	}
	return floatField(scores[scoreType])
}

func floatField(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringField(rec crawl.Record, key string) string {
	s, _ := rec[key].(string)
	return s
}

func cloneInfo(info crawl.Info) crawl.Info {
	cp := info
	cp.Spec = info.Spec.Clone()
	cp.Status.StateHistory = slices.Clone(info.Status.StateHistory)
	return cp
}
