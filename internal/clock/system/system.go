// Package system provides the wall clock used for notice expiry and job
// timestamps.
package system

import "time"

// Clock implements crawl.Clock. Times are reported in UTC so stored
// timestamps and notice ages compare without zone surprises.
type Clock struct{}

// New creates a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
