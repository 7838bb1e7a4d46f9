package crawl

import (
	"slices"
	"time"
)

// Worker count bounds accepted by the crawl service.
const (
	MinWorkers = 1
	MaxWorkers = 16
)

// CopySuffix is appended to the name of a cloned specification.
const CopySuffix = " (Copy)"

// Spec is the declarative definition of a crawl job.
type Spec struct {
	Name            string        `json:"name"`
	Seeds           []string      `json:"seeds"`
	AnalyzerSpecs   AnalyzerSpecs `json:"analyzer_specs"`
	WorkerCount     int           `json:"worker_count"`
	DomainBlacklist []string      `json:"domain_blacklist,omitempty"`
}

// NewSpec returns an empty draft with a single worker.
func NewSpec() Spec {
	return Spec{WorkerCount: MinWorkers}
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	return Spec{
		Name:            s.Name,
		Seeds:           slices.Clone(s.Seeds),
		AnalyzerSpecs:   s.AnalyzerSpecs.Clone(),
		WorkerCount:     s.WorkerCount,
		DomainBlacklist: slices.Clone(s.DomainBlacklist),
	}
}

// CloneAsCopy returns a deep copy renamed with CopySuffix.
func (s Spec) CloneAsCopy() Spec {
	cp := s.Clone()
	cp.Name = s.Name + CopySuffix
	return cp
}

// RunStateName is one of the job states reported by the service.
type RunStateName string

// Job states.
const (
	StateCreated RunStateName = "CREATED"
	StateRunning RunStateName = "RUNNING"
	StateStopped RunStateName = "STOPPED"
)

// RunState is one entry of a job's state history.
type RunState struct {
	State     RunStateName `json:"state"`
	Timestamp time.Time    `json:"timestamp"`
}

// Status is the server-owned progress record of a job.
type Status struct {
	CrawlID        string       `json:"crawl_id"`
	CrawlName      string       `json:"crawl_name"`
	CurrentState   RunStateName `json:"current_state"`
	StateHistory   []RunState   `json:"state_history"`
	CrawledCount   int          `json:"crawled_count"`
	ProcessedCount int          `json:"processed_count"`
	ErrorCount     int          `json:"error_count"`
	FrontierSize   int          `json:"frontier_size"`
}

// CreatedAt is the timestamp of the first history entry.
func (s Status) CreatedAt() time.Time {
	if len(s.StateHistory) == 0 {
		return time.Time{}
	}
	return s.StateHistory[0].Timestamp
}

// LastTransition is the most recent history entry.
func (s Status) LastTransition() (RunState, bool) {
	if len(s.StateHistory) == 0 {
		return RunState{}, false
	}
	return s.StateHistory[len(s.StateHistory)-1], true
}

// Info pairs a job's status with the specification that produced it.
type Info struct {
	Spec   Spec   `json:"crawl_spec"`
	Status Status `json:"crawl_status"`
}

// ID returns the job id.
func (i Info) ID() string { return i.Status.CrawlID }

// CreateResult is returned when a job is accepted.
type CreateResult struct {
	CrawlID  string   `json:"crawl_id"`
	RunState RunState `json:"run_state"`
}

// TransitionResult is returned by start and stop.
type TransitionResult struct {
	CrawlID  string   `json:"crawl_id"`
	RunState RunState `json:"run_state"`
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	CrawlID     string `json:"crawl_id"`
	DeletedTime string `json:"crawl_deleted_time"`
}

// Export is a downloaded specification file.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SearchEngine names a seed source.
type SearchEngine string

// Supported search engines.
const (
	SearchGoogle     SearchEngine = "Google"
	SearchBing       SearchEngine = "Bing"
	SearchDuckDuckGo SearchEngine = "DuckDuckGo"
)

// Seed collection limits.
const (
	MinSeedResults = 1
	MaxSeedResults = 100
)

// SeedQuery asks a search engine for seed URLs.
type SeedQuery struct {
	Engine      SearchEngine `json:"search_engine"`
	Query       string       `json:"query"`
	ResultCount int          `json:"result_count"`
}

// CompositeScore is the score type that ranks by the combined score.
const CompositeScore = "composite"

// RecordSummary is one ranked result row.
type RecordSummary struct {
	ID    string  `json:"id"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Record is the full detail of a crawled page. Its field set is whatever the
// service returns.
type Record map[string]any

// FieldDescriptor documents one analyzer configuration field.
type FieldDescriptor struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Required    bool    `json:"required"`
	Default     *string `json:"default,omitempty"`
}

// AnalyzerInfo describes an analyzer available on the service.
type AnalyzerInfo struct {
	Name        AnalyzerName      `json:"name"`
	Description string            `json:"description"`
	SpecFields  []FieldDescriptor `json:"spec_fields"`
}
