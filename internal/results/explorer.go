// Package results browses the ranked result records of one crawl.
package results

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/tableview"
)

// Defaults used when Config fields are unset.
const (
	DefaultSummaryCount = 100
	DefaultPageSize     = 10
)

// Sort keys of the summary table.
const (
	SortScore = "score"
	SortURL   = "url"
)

// Config tunes the explorer.
type Config struct {
	SummaryCount int
	PageSize     int
}

// SummariesMsg carries a summary list response.
type SummariesMsg struct {
	Token     uint64
	CrawlID   string
	ScoreType string
	Summaries []crawl.RecordSummary
	Err       error
}

// RecordMsg carries a detail record response.
type RecordMsg struct {
	Token    uint64
	CrawlID  string
	RecordID string
	Record   crawl.Record
	Err      error
}

// Explorer holds one crawl's summaries, the sort and page over them, and the
// selected detail record.
type Explorer struct {
	reader  crawl.ResultsReader
	notices *notify.Queue
	cfg     Config
	logger  *zap.Logger

	crawlID   string
	scoreType string
	summaries []crawl.RecordSummary
	table     *tableview.Table[crawl.RecordSummary]
	pager     tableview.Paginator

	loadToken uint64
	loading   bool

	selectToken uint64
	pendingID   string
	detailID    string
	detail      crawl.Record
	field       string
}

// New builds an empty Explorer.
func New(reader crawl.ResultsReader, notices *notify.Queue, cfg Config, logger *zap.Logger) *Explorer {
	if cfg.SummaryCount <= 0 {
		cfg.SummaryCount = DefaultSummaryCount
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{
		reader:  reader,
		notices: notices,
		cfg:     cfg,
		logger:  logger,
		pager:   tableview.NewPaginator(cfg.PageSize),
		table: tableview.NewTable(
			tableview.Column[crawl.RecordSummary]{
				Key:     SortScore,
				Title:   "Score",
				Compare: func(a, b crawl.RecordSummary) int { return cmp.Compare(a.Score, b.Score) },
			},
			tableview.Column[crawl.RecordSummary]{
				Key:     SortURL,
				Title:   "URL",
				Compare: func(a, b crawl.RecordSummary) int { return cmp.Compare(a.URL, b.URL) },
			},
		),
	}
}

// ScoreTypes lists the score selectors valid for spec: the composite score
// followed by each configured analyzer.
func ScoreTypes(spec crawl.Spec) []string {
	out := []string{crawl.CompositeScore}
	for _, a := range spec.AnalyzerSpecs {
		out = append(out, string(a.Name()))
	}
	return out
}

// LoadSummaries fetches the top count summaries of crawlID ranked by
// scoreType. Non-positive count and empty scoreType select the defaults.
func (e *Explorer) LoadSummaries(crawlID string, count int, scoreType string) tea.Cmd {
	if count <= 0 {
		count = e.cfg.SummaryCount
	}
	if scoreType == "" {
		scoreType = crawl.CompositeScore
	}
	e.loadToken++
	e.loading = true
	token, reader := e.loadToken, e.reader
	return func() tea.Msg {
		summaries, err := reader.RecordSummaries(context.Background(), crawlID, count, scoreType)
		return SummariesMsg{Token: token, CrawlID: crawlID, ScoreType: scoreType, Summaries: summaries, Err: err}
	}
}

// SelectRecord marks id pending and fetches its detail. Only the response
// to the latest selection is applied.
func (e *Explorer) SelectRecord(id string) tea.Cmd {
	if e.crawlID == "" || id == "" {
		return nil
	}
	e.selectToken++
	e.pendingID = id
	token, crawlID, reader := e.selectToken, e.crawlID, e.reader
	return func() tea.Msg {
		records, err := reader.Records(context.Background(), crawlID, []string{id})
		msg := RecordMsg{Token: token, CrawlID: crawlID, RecordID: id, Err: err}
		if err == nil {
			if len(records) == 0 {
				msg.Err = fmt.Errorf("record %s: %w", id, crawl.ErrNotFound)
			} else {
				msg.Record = records[0]
			}
		}
		return msg
	}
}

// Update applies explorer messages. Other messages are ignored.
func (e *Explorer) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SummariesMsg:
		e.applySummaries(msg)
	case RecordMsg:
		e.applyRecord(msg)
	}
	return nil
}

func (e *Explorer) applySummaries(msg SummariesMsg) {
	if msg.Token != e.loadToken {
		metrics.ObserveStaleResponse("summaries")
		e.logger.Debug("discarding superseded summaries", zap.Uint64("token", msg.Token))
		return
	}
	e.loading = false
	if msg.Err != nil {
		e.logger.Warn("load summaries failed", zap.String("crawl_id", msg.CrawlID), zap.Error(msg.Err))
		e.notices.Error("Failed to load results: %v", msg.Err)
		return
	}
	e.crawlID = msg.CrawlID
	e.scoreType = msg.ScoreType
	e.summaries = msg.Summaries
	e.pager.Reset()
	e.selectToken++
	e.pendingID = ""
	e.detailID = ""
	e.detail = nil
	e.field = ""
}

func (e *Explorer) applyRecord(msg RecordMsg) {
	if msg.Token != e.selectToken {
		metrics.ObserveStaleResponse("detail")
		e.logger.Debug("discarding superseded record", zap.String("record_id", msg.RecordID))
		return
	}
	e.pendingID = ""
	if msg.Err != nil {
		e.logger.Warn("load record failed", zap.String("record_id", msg.RecordID), zap.Error(msg.Err))
		e.notices.Error("Failed to load record: %v", msg.Err)
		return
	}
	e.detailID = msg.RecordID
	e.detail = msg.Record
	e.field = ""
	if names := e.FieldNames(); len(names) > 0 {
		e.field = names[0]
	}
}

// Reset forgets the crawl and discards any response in flight.
func (e *Explorer) Reset() {
	e.loadToken++
	e.selectToken++
	e.loading = false
	e.crawlID = ""
	e.scoreType = ""
	e.summaries = nil
	e.pager.Reset()
	e.pendingID = ""
	e.detailID = ""
	e.detail = nil
	e.field = ""
}

// CrawlID returns the crawl whose summaries are loaded.
func (e *Explorer) CrawlID() string { return e.crawlID }

// ScoreType returns the score selector of the loaded summaries.
func (e *Explorer) ScoreType() string { return e.scoreType }

// Loading reports whether a summary load is in flight.
func (e *Explorer) Loading() bool { return e.loading }

// Len returns the number of loaded summaries.
func (e *Explorer) Len() int { return len(e.summaries) }

// Sort toggles the sort on key. Unknown keys are ignored.
func (e *Explorer) Sort(key string) bool {
	return e.table.Toggle(key)
}

// SortConfig returns the active sort.
func (e *Explorer) SortConfig() tableview.SortConfig {
	return e.table.Config()
}

// Rows returns every summary in sorted order.
func (e *Explorer) Rows() []crawl.RecordSummary {
	return e.table.Apply(e.summaries)
}

// PageRows returns the summaries on the current page.
func (e *Explorer) PageRows() []crawl.RecordSummary {
	return tableview.Slice(e.Rows(), e.pager)
}

// Page returns the current page, clamped to the list.
func (e *Explorer) Page() int {
	return max(1, min(e.pager.Page(), e.Pages()))
}

// Pages returns the page count.
func (e *Explorer) Pages() int {
	return e.pager.Pages(len(e.summaries))
}

// PageSize returns the rows per page.
func (e *Explorer) PageSize() int {
	return e.pager.PageSize()
}

// SetPage moves to page, clamped to [1, Pages()].
func (e *Explorer) SetPage(page int) {
	e.pager.SetPage(page, len(e.summaries))
}

// SetPageSize changes the page size and returns to page 1.
func (e *Explorer) SetPageSize(size int) {
	e.pager.SetPageSize(size)
}

// PendingID returns the record whose detail is being fetched.
func (e *Explorer) PendingID() string { return e.pendingID }

// Detail returns the loaded detail record and its id.
func (e *Explorer) Detail() (string, crawl.Record, bool) {
	if e.detail == nil {
		return "", nil, false
	}
	return e.detailID, e.detail, true
}

// FieldNames returns the loaded record's keys, sorted.
func (e *Explorer) FieldNames() []string {
	names := make([]string, 0, len(e.detail))
	for k := range e.detail {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// SelectField picks the field to inspect.
func (e *Explorer) SelectField(name string) bool {
	if _, ok := e.detail[name]; !ok {
		return false
	}
	e.field = name
	return true
}

// Field returns the inspected field name.
func (e *Explorer) Field() string { return e.field }

// FieldText renders the named field of the loaded record.
func (e *Explorer) FieldText(name string) (string, error) {
	v, ok := e.detail[name]
	if !ok {
		return "", fmt.Errorf("field %q: %w", name, crawl.ErrNotFound)
	}
	return Render(v)
}

// Render formats a record value: scalars as text, lists one element per
// line, and nested structures as YAML.
func Render(v any) (string, error) {
	switch val := v.(type) {
	case []any:
		lines := make([]string, len(val))
		for i, item := range val {
			s, err := Render(item)
			if err != nil {
				return "", err
			}
			lines[i] = s
		}
		return strings.Join(lines, "\n"), nil
	case []string:
		return strings.Join(val, "\n"), nil
	case map[string]any, crawl.Record:
		out, err := yaml.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("render field: %w", err)
		}
		return strings.TrimRight(string(out), "\n"), nil
	default:
		return scalar(v), nil
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
