package crawl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a job or record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError lists every problem found in a draft.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid crawl spec: " + strings.Join(e.Problems, "; ")
}

// Validate checks s against the submission rules. existing holds the names
// of known jobs; duplicates are matched case-insensitively. Names are
// compared as given; callers normalize before validating.
func (s Spec) Validate(existing []string) error {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "name is required")
	} else {
		for _, other := range existing {
			if strings.EqualFold(other, s.Name) {
				problems = append(problems, fmt.Sprintf("a crawl named %q already exists", other))
				break
			}
		}
	}
	if len(s.Seeds) == 0 {
		problems = append(problems, "at least one seed URL is required")
	}
	if s.WorkerCount < MinWorkers || s.WorkerCount > MaxWorkers {
		problems = append(problems, fmt.Sprintf("worker count must be between %d and %d", MinWorkers, MaxWorkers))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Validate checks a seed query before it is sent.
func (q SeedQuery) Validate() error {
	var problems []string
	switch q.Engine {
	case SearchGoogle, SearchBing, SearchDuckDuckGo:
	default:
		problems = append(problems, fmt.Sprintf("unknown search engine %q", q.Engine))
	}
	if strings.TrimSpace(q.Query) == "" {
		problems = append(problems, "search query cannot be empty")
	}
	if q.ResultCount < MinSeedResults || q.ResultCount > MaxSeedResults {
		problems = append(problems, fmt.Sprintf("result count must be between %d and %d", MinSeedResults, MaxSeedResults))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
