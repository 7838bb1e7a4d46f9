// Package roster keeps the console's view of remote crawl jobs in step with
// the crawl service by polling it on a fixed interval.
package roster

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/tableview"
)

// DefaultInterval is the poll cadence when Config.Interval is unset.
const DefaultInterval = time.Second

// Sort keys of the roster table.
const (
	SortName      = "name"
	SortState     = "state"
	SortCreated   = "created"
	SortCrawled   = "crawled"
	SortProcessed = "processed"
	SortErrors    = "errors"
	SortFrontier  = "frontier"
)

// Config tunes the synchronizer.
type Config struct {
	Interval time.Duration
	// NotifyEveryFailure emits a notice for every failed poll instead of
	// once per outage.
	NotifyEveryFailure bool
}

// FetchedMsg carries the result of one list call.
type FetchedMsg struct {
	Generation uint64
	Seq        uint64
	Scheduled  bool
	Infos      []crawl.Info
	Err        error
}

// TickMsg asks for the next scheduled poll.
type TickMsg struct {
	Generation uint64
}

// Synchronizer owns the roster snapshot and the selection. It is driven by
// Update on a single event loop; the commands it returns only perform I/O.
type Synchronizer struct {
	lister  crawl.Lister
	notices *notify.Queue
	cfg     Config
	logger  *zap.Logger

	active     bool
	generation uint64
	issued     uint64
	applied    uint64
	loaded     bool
	failing    bool

	snapshot []crawl.Info
	selected string
	table    *tableview.Table[crawl.Info]
}

// New builds an inactive Synchronizer.
func New(lister crawl.Lister, notices *notify.Queue, cfg Config, logger *zap.Logger) *Synchronizer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		lister:  lister,
		notices: notices,
		cfg:     cfg,
		logger:  logger,
		table:   newTable(),
	}
}

// Active reports whether polling is running.
func (s *Synchronizer) Active() bool {
	return s.active
}

// Activate starts polling with an immediate fetch. Calling it while active
// returns nil.
func (s *Synchronizer) Activate() tea.Cmd {
	if s.active {
		return nil
	}
	s.active = true
	s.generation++
	s.logger.Debug("roster activated", zap.Uint64("generation", s.generation))
	return s.fetch(true)
}

// Deactivate stops polling. Responses already in flight are discarded when
// they arrive.
func (s *Synchronizer) Deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.generation++
	s.logger.Debug("roster deactivated", zap.Uint64("generation", s.generation))
}

// Refresh fetches outside the poll schedule. It returns nil while inactive.
func (s *Synchronizer) Refresh() tea.Cmd {
	if !s.active {
		return nil
	}
	return s.fetch(false)
}

func (s *Synchronizer) fetch(scheduled bool) tea.Cmd {
	s.issued++
	gen, seq, lister := s.generation, s.issued, s.lister
	return func() tea.Msg {
		infos, err := lister.ListCrawls(context.Background())
		return FetchedMsg{Generation: gen, Seq: seq, Scheduled: scheduled, Infos: infos, Err: err}
	}
}

func (s *Synchronizer) tick() tea.Cmd {
	gen := s.generation
	return tea.Tick(s.cfg.Interval, func(time.Time) tea.Msg {
		return TickMsg{Generation: gen}
	})
}

// Update applies roster messages and returns follow-up commands. Other
// messages are ignored.
func (s *Synchronizer) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case TickMsg:
		if !s.current(msg.Generation) {
			return nil
		}
		return s.fetch(true)
	case FetchedMsg:
		return s.applyFetch(msg)
	}
	return nil
}

func (s *Synchronizer) current(gen uint64) bool {
	return s.active && gen == s.generation
}

func (s *Synchronizer) applyFetch(msg FetchedMsg) tea.Cmd {
	if !s.current(msg.Generation) {
		metrics.ObserveStaleResponse("roster")
		s.logger.Debug("discarding roster response from old generation",
			zap.Uint64("generation", msg.Generation), zap.Uint64("current", s.generation))
		return nil
	}
	var next tea.Cmd
	if msg.Scheduled {
		next = s.tick()
	}

	if msg.Seq < s.applied {
		metrics.ObserveStaleResponse("roster")
		s.logger.Debug("discarding superseded roster response",
			zap.Uint64("seq", msg.Seq), zap.Uint64("applied", s.applied))
		return next
	}
	if msg.Err != nil {
		metrics.ObserveRosterPoll(msg.Err, 0)
		s.logger.Warn("roster poll failed", zap.Error(msg.Err))
		if !s.failing || s.cfg.NotifyEveryFailure {
			s.notices.Error("Failed to load crawls: %v", msg.Err)
		}
		s.failing = true
		return next
	}

	metrics.ObserveRosterPoll(nil, len(msg.Infos))
	if s.failing {
		s.logger.Info("roster poll recovered")
	}
	s.failing = false
	s.applied = msg.Seq
	s.loaded = true
	s.snapshot = msg.Infos
	if s.selected != "" {
		if _, ok := s.Find(s.selected); !ok {
			s.logger.Info("selected crawl disappeared", zap.String("crawl_id", s.selected))
			s.selected = ""
		}
	}
	return next
}

// Loaded reports whether at least one poll has succeeded.
func (s *Synchronizer) Loaded() bool {
	return s.loaded
}

// Failing reports whether the latest poll failed.
func (s *Synchronizer) Failing() bool {
	return s.failing
}

// Snapshot returns the jobs in service order. Entries must be treated as
// read-only.
func (s *Synchronizer) Snapshot() []crawl.Info {
	return slices.Clone(s.snapshot)
}

// Rows returns the jobs ordered by the active table sort.
func (s *Synchronizer) Rows() []crawl.Info {
	return s.table.Apply(s.snapshot)
}

// SortBy toggles the table sort on key.
func (s *Synchronizer) SortBy(key string) bool {
	return s.table.Toggle(key)
}

// SortConfig returns the active table sort.
func (s *Synchronizer) SortConfig() tableview.SortConfig {
	return s.table.Config()
}

// Find returns the job with id.
func (s *Synchronizer) Find(id string) (crawl.Info, bool) {
	for _, info := range s.snapshot {
		if info.ID() == id {
			return info, true
		}
	}
	return crawl.Info{}, false
}

// FindByName returns the job whose name matches case-insensitively.
func (s *Synchronizer) FindByName(name string) (crawl.Info, bool) {
	name = strings.TrimSpace(name)
	for _, info := range s.snapshot {
		if strings.EqualFold(info.Spec.Name, name) {
			return info, true
		}
	}
	return crawl.Info{}, false
}

// Names returns the name of every known job.
func (s *Synchronizer) Names() []string {
	names := make([]string, len(s.snapshot))
	for i, info := range s.snapshot {
		names[i] = info.Spec.Name
	}
	return names
}

// Select marks id as selected. Unknown ids are rejected.
func (s *Synchronizer) Select(id string) bool {
	if _, ok := s.Find(id); !ok {
		return false
	}
	s.selected = id
	return true
}

// SelectedID returns the selected job id, or "".
func (s *Synchronizer) SelectedID() string {
	return s.selected
}

// Selected returns the selected job.
func (s *Synchronizer) Selected() (crawl.Info, bool) {
	if s.selected == "" {
		return crawl.Info{}, false
	}
	return s.Find(s.selected)
}

// ClearSelection drops the selection.
func (s *Synchronizer) ClearSelection() {
	s.selected = ""
}

// ClearSelectionIf drops the selection when it equals id.
func (s *Synchronizer) ClearSelectionIf(id string) bool {
	if s.selected == "" || s.selected != id {
		return false
	}
	s.selected = ""
	return true
}

func newTable() *tableview.Table[crawl.Info] {
	counter := func(key, title string, get func(crawl.Status) int) tableview.Column[crawl.Info] {
		return tableview.Column[crawl.Info]{
			Key:   key,
			Title: title,
			Compare: func(a, b crawl.Info) int {
				return cmp.Compare(get(a.Status), get(b.Status))
			},
			DefaultDirection: tableview.Descending,
		}
	}
	return tableview.NewTable(
		tableview.Column[crawl.Info]{
			Key:   SortName,
			Title: "Name",
			Compare: func(a, b crawl.Info) int {
				return cmp.Compare(strings.ToLower(a.Spec.Name), strings.ToLower(b.Spec.Name))
			},
		},
		tableview.Column[crawl.Info]{
			Key:   SortState,
			Title: "State",
			Compare: func(a, b crawl.Info) int {
				return cmp.Compare(a.Status.CurrentState, b.Status.CurrentState)
			},
		},
		tableview.Column[crawl.Info]{
			Key:   SortCreated,
			Title: "Created",
			Compare: func(a, b crawl.Info) int {
				return a.Status.CreatedAt().Compare(b.Status.CreatedAt())
			},
			DefaultDirection: tableview.Descending,
		},
		counter(SortCrawled, "Crawled", func(st crawl.Status) int { return st.CrawledCount }),
		counter(SortProcessed, "Processed", func(st crawl.Status) int { return st.ProcessedCount }),
		counter(SortErrors, "Errors", func(st crawl.Status) int { return st.ErrorCount }),
		counter(SortFrontier, "Frontier", func(st crawl.Status) int { return st.FrontierSize }),
	)
}
