// Package dispatcher issues operator commands against the crawl service and
// tracks which targets have a command in flight.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/draft"
	"github.com/JakeFAU/crawl-console/internal/editor"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/notify"
)

// Action names a command.
type Action string

// Supported actions.
const (
	ActionCreate       Action = "create"
	ActionStart        Action = "start"
	ActionStop         Action = "stop"
	ActionDelete       Action = "delete"
	ActionExport       Action = "export"
	ActionClone        Action = "clone"
	ActionCollectSeeds Action = "collect-seeds"
)

func (a Action) verb() string {
	return strings.ReplaceAll(string(a), "-", " ")
}

// Reserved in-flight keys for commands that do not target an existing job.
const (
	DraftKey = ":draft"
	SeedsKey = ":seeds"
)

// ConfirmFunc is the yes/no gate in front of destructive commands.
type ConfirmFunc func(prompt string) bool

// Confirmed is a ConfirmFunc for callers that already asked the user.
func Confirmed(string) bool { return true }

// Roster is the part of the roster the dispatcher reads and nudges.
type Roster interface {
	Names() []string
	Find(id string) (crawl.Info, bool)
	ClearSelectionIf(id string) bool
	Refresh() tea.Cmd
}

// Config controls where exports are written.
type Config struct {
	ExportDir string
}

// CompletedMsg reports the outcome of one dispatched command.
type CompletedMsg struct {
	Action  Action
	Key     string
	CrawlID string
	Name    string
	Result  any
	Err     error
	// DraftVersion is the draft store version a create was submitted from.
	DraftVersion uint64
}

// Dispatcher owns the in-flight markers. Like the other components it is
// driven from a single event loop.
type Dispatcher struct {
	gateway  crawl.Commander
	draft    *draft.Store
	roster   Roster
	notices  *notify.Queue
	cfg      Config
	logger   *zap.Logger
	inFlight map[string]Action
}

// New constructs a Dispatcher.
func New(
	gateway crawl.Commander,
	drafts *draft.Store,
	roster Roster,
	notices *notify.Queue,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}
	return &Dispatcher{
		gateway:  gateway,
		draft:    drafts,
		roster:   roster,
		notices:  notices,
		cfg:      cfg,
		logger:   logger,
		inFlight: make(map[string]Action),
	}
}

// InFlight reports whether a command is pending for key.
func (d *Dispatcher) InFlight(key string) bool {
	_, ok := d.inFlight[key]
	return ok
}

// Pending returns the keys with a command in flight, sorted.
func (d *Dispatcher) Pending() []string {
	keys := make([]string, 0, len(d.inFlight))
	for k := range d.inFlight {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// begin claims key for action. A key already in flight is left alone and
// the new dispatch is dropped.
func (d *Dispatcher) begin(key string, action Action) bool {
	if current, busy := d.inFlight[key]; busy {
		d.logger.Info("ignoring dispatch, command already in flight",
			zap.String("key", key),
			zap.String("action", string(action)),
			zap.String("pending", string(current)),
		)
		return false
	}
	d.inFlight[key] = action
	return true
}

// Create validates the draft and submits it.
func (d *Dispatcher) Create() tea.Cmd {
	spec, ok := d.draft.Current()
	if !ok {
		d.notices.Error("No crawl draft to submit")
		return nil
	}
	spec.Name = strings.TrimSpace(spec.Name)
	if err := spec.Validate(d.roster.Names()); err != nil {
		metrics.ObserveCommand(string(ActionCreate), err)
		d.notices.Error("Cannot create crawl: %v", err)
		return nil
	}
	if !d.begin(DraftKey, ActionCreate) {
		return nil
	}
	gw, version := d.gateway, d.draft.Version()
	return func() tea.Msg {
		res, err := gw.CreateCrawl(context.Background(), spec)
		return CompletedMsg{
			Action:       ActionCreate,
			Key:          DraftKey,
			CrawlID:      res.CrawlID,
			Name:         spec.Name,
			Result:       res,
			Err:          err,
			DraftVersion: version,
		}
	}
}

// Start starts the job with crawlID.
func (d *Dispatcher) Start(crawlID string) tea.Cmd {
	return d.transition(ActionStart, crawlID, d.gateway.StartCrawl)
}

// Stop stops the job with crawlID.
func (d *Dispatcher) Stop(crawlID string) tea.Cmd {
	return d.transition(ActionStop, crawlID, d.gateway.StopCrawl)
}

func (d *Dispatcher) transition(
	action Action,
	crawlID string,
	call func(context.Context, string) (crawl.TransitionResult, error),
) tea.Cmd {
	if !d.begin(crawlID, action) {
		return nil
	}
	name := d.nameOf(crawlID)
	return func() tea.Msg {
		res, err := call(context.Background(), crawlID)
		return CompletedMsg{Action: action, Key: crawlID, CrawlID: crawlID, Name: name, Result: res, Err: err}
	}
}

// Delete removes a job after confirm approves it.
func (d *Dispatcher) Delete(crawlID string, confirm ConfirmFunc) tea.Cmd {
	if d.InFlight(crawlID) {
		d.logger.Info("ignoring delete, command already in flight", zap.String("key", crawlID))
		return nil
	}
	name := d.nameOf(crawlID)
	if confirm == nil || !confirm(fmt.Sprintf("Delete crawl %q? This cannot be undone.", name)) {
		d.logger.Debug("delete not confirmed", zap.String("crawl_id", crawlID))
		return nil
	}
	if !d.begin(crawlID, ActionDelete) {
		return nil
	}
	gw := d.gateway
	return func() tea.Msg {
		res, err := gw.DeleteCrawl(context.Background(), crawlID)
		return CompletedMsg{Action: ActionDelete, Key: crawlID, CrawlID: crawlID, Name: name, Result: res, Err: err}
	}
}

// Export downloads a job's spec and writes it under the export directory.
// The result is the written path.
func (d *Dispatcher) Export(crawlID string) tea.Cmd {
	if !d.begin(crawlID, ActionExport) {
		return nil
	}
	gw, dir, name := d.gateway, d.cfg.ExportDir, d.nameOf(crawlID)
	return func() tea.Msg {
		msg := CompletedMsg{Action: ActionExport, Key: crawlID, CrawlID: crawlID, Name: name}
		export, err := gw.ExportSpec(context.Background(), crawlID)
		if err != nil {
			msg.Err = err
			return msg
		}
		path, err := writeExport(dir, export)
		msg.Result, msg.Err = path, err
		return msg
	}
}

func writeExport(dir string, export crawl.Export) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(export.Filename))
	if err := os.WriteFile(path, export.Data, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Clone copies a job's spec into a fresh draft named with the copy suffix.
// It makes no network call.
func (d *Dispatcher) Clone(crawlID string) bool {
	info, ok := d.roster.Find(crawlID)
	if !ok {
		metrics.ObserveCommand(string(ActionClone), crawl.ErrNotFound)
		d.notices.Error("Cannot clone crawl %s: %v", crawlID, crawl.ErrNotFound)
		return false
	}
	spec := info.Spec.CloneAsCopy()
	d.draft.Replace(spec)
	metrics.ObserveCommand(string(ActionClone), nil)
	d.notices.Info("Cloned %q into draft %q", info.Spec.Name, spec.Name)
	return true
}

// CollectSeeds asks the service for seed URLs and appends them to the draft.
func (d *Dispatcher) CollectSeeds(queries ...crawl.SeedQuery) tea.Cmd {
	if !d.draft.Active() {
		d.notices.Error("No crawl draft to add seeds to")
		return nil
	}
	if len(queries) == 0 {
		d.notices.Error("Cannot collect seeds: no search queries")
		return nil
	}
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			metrics.ObserveCommand(string(ActionCollectSeeds), err)
			d.notices.Error("Cannot collect seeds: %v", err)
			return nil
		}
	}
	if !d.begin(SeedsKey, ActionCollectSeeds) {
		return nil
	}
	gw := d.gateway
	queries = slices.Clone(queries)
	return func() tea.Msg {
		urls, err := gw.CollectSeeds(context.Background(), queries...)
		return CompletedMsg{Action: ActionCollectSeeds, Key: SeedsKey, Result: urls, Err: err}
	}
}

// Update applies a CompletedMsg. It returns a roster refresh after commands
// that change the job list.
func (d *Dispatcher) Update(msg tea.Msg) tea.Cmd {
	done, ok := msg.(CompletedMsg)
	if !ok {
		return nil
	}
	delete(d.inFlight, done.Key)
	metrics.ObserveCommand(string(done.Action), done.Err)

	if done.Err != nil {
		d.logger.Warn("command failed",
			zap.String("action", string(done.Action)),
			zap.String("crawl_id", done.CrawlID),
			zap.Error(done.Err),
		)
		if target := describe(done); target != "" {
			d.notices.Error("Failed to %s %s: %v", done.Action.verb(), target, done.Err)
		} else {
			d.notices.Error("Failed to %s: %v", done.Action.verb(), done.Err)
		}
		return nil
	}

	switch done.Action {
	case ActionCreate:
		if d.draft.Version() == done.DraftVersion {
			d.draft.Clear()
		} else {
			d.logger.Debug("keeping draft changed after submit",
				zap.Uint64("submitted_version", done.DraftVersion),
				zap.Uint64("current_version", d.draft.Version()),
			)
		}
		d.notices.Success("Created crawl %q", done.Name)
		return d.roster.Refresh()
	case ActionStart:
		d.notices.Success("Started crawl %q", done.Name)
		return d.roster.Refresh()
	case ActionStop:
		d.notices.Success("Stopped crawl %q", done.Name)
		return d.roster.Refresh()
	case ActionDelete:
		d.roster.ClearSelectionIf(done.CrawlID)
		d.notices.Success("Deleted crawl %q", done.Name)
		return d.roster.Refresh()
	case ActionExport:
		d.notices.Success("Exported crawl %q to %v", done.Name, done.Result)
	case ActionCollectSeeds:
		d.applySeeds(done)
	}
	return nil
}

func (d *Dispatcher) applySeeds(done CompletedMsg) {
	urls, _ := done.Result.([]string)
	spec, ok := d.draft.Current()
	if !ok {
		d.notices.Error("Collected %d seed URLs but the draft was closed", len(urls))
		return
	}
	seeds, added := editor.MergeSeeds(spec.Seeds, urls)
	if added > 0 {
		d.draft.MutateSeeds(seeds)
	}
	d.notices.Success("Added %d of %d collected seed URLs", added, len(urls))
}

func (d *Dispatcher) nameOf(crawlID string) string {
	if info, ok := d.roster.Find(crawlID); ok {
		return info.Spec.Name
	}
	return crawlID
}

func describe(done CompletedMsg) string {
	switch {
	case done.Action == ActionCollectSeeds:
		return ""
	case done.Name != "":
		return fmt.Sprintf("crawl %q", done.Name)
	default:
		return "crawl " + done.CrawlID
	}
}
