// Package console is the interactive operator console. A bubbletea model owns
// every stateful component and is the only place their messages are applied.
package console

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/dispatcher"
	"github.com/JakeFAU/crawl-console/internal/draft"
	"github.com/JakeFAU/crawl-console/internal/editor"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/results"
	"github.com/JakeFAU/crawl-console/internal/roster"
)

type view int

const (
	viewRoster view = iota
	viewDraft
	viewResults
)

func (v view) String() string {
	switch v {
	case viewDraft:
		return "Draft"
	case viewResults:
		return "Results"
	default:
		return "Crawls"
	}
}

const pruneInterval = 500 * time.Millisecond

type pruneTickMsg struct{}

// Deps are the components the console drives.
type Deps struct {
	Notices    *notify.Queue
	Drafts     *draft.Store
	Roster     *roster.Synchronizer
	Dispatcher *dispatcher.Dispatcher
	Results    *results.Explorer
	Logger     *zap.Logger
}

// Model is the console's bubbletea model.
type Model struct {
	notices  *notify.Queue
	drafts   *draft.Store
	roster   *roster.Synchronizer
	dispatch *dispatcher.Dispatcher
	results  *results.Explorer
	logger   *zap.Logger

	general   editor.General
	seeds     editor.Seeds
	analyzers editor.Analyzers

	keys    keyMap
	help    help.Model
	input   textinput.Model
	detail  viewport.Model
	spinner spinner.Model

	view          view
	cursor        int
	recordCursor  int
	summaryCount  int
	commandMode   bool
	confirmDelete string
	width         int
	height        int
}

var _ tea.Model = (*Model)(nil)

// New builds the console model.
func New(d Deps) *Model {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	input := textinput.New()
	input.Prompt = ":"
	input.Placeholder = "command"
	input.CharLimit = 2048

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	return &Model{
		notices:   d.Notices,
		drafts:    d.Drafts,
		roster:    d.Roster,
		dispatch:  d.Dispatcher,
		results:   d.Results,
		logger:    logger,
		general:   editor.NewGeneral(d.Drafts),
		seeds:     editor.NewSeeds(d.Drafts),
		analyzers: editor.NewAnalyzers(d.Drafts),
		keys:      defaultKeyMap(),
		help:      help.New(),
		input:     input,
		detail:    viewport.New(60, 12),
		spinner:   spin,
		width:     120,
		height:    40,
	}
}

// Init starts roster polling and the notice expiry ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.roster.Activate(), pruneTick(), m.spinner.Tick)
}

func pruneTick() tea.Cmd {
	return tea.Tick(pruneInterval, func(time.Time) tea.Msg { return pruneTickMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.detail.Width = max(20, msg.Width/2-4)
		m.detail.Height = max(5, msg.Height/2-6)
		return m, nil
	case pruneTickMsg:
		m.notices.Prune()
		return m, pruneTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case roster.FetchedMsg, roster.TickMsg:
		cmd := m.roster.Update(msg)
		m.cursor = clamp(m.cursor, len(m.roster.Rows()))
		if m.view == viewResults && m.roster.SelectedID() == "" {
			m.results.Reset()
			m.view = viewRoster
		}
		return m, cmd
	case dispatcher.CompletedMsg:
		cmd := m.dispatch.Update(msg)
		if m.view == viewDraft && !m.drafts.Active() {
			m.view = viewRoster
		}
		return m, cmd
	case results.SummariesMsg, results.RecordMsg:
		cmd := m.results.Update(msg)
		m.recordCursor = clamp(m.recordCursor, len(m.results.PageRows()))
		m.refreshDetail()
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.confirmDelete != "" {
		return m.answerDelete(msg)
	}
	if m.commandMode {
		return m.handleCommandKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.roster.Deactivate()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(msg, m.keys.Command):
		m.commandMode = true
		m.input.Reset()
		return m.input.Focus()
	case key.Matches(msg, m.keys.Tab):
		m.nextView()
		return nil
	case key.Matches(msg, m.keys.Back):
		m.view = viewRoster
		return nil
	}
	switch m.view {
	case viewResults:
		return m.handleResultsKey(msg)
	case viewRoster:
		return m.handleRosterKey(msg)
	}
	return nil
}

func (m *Model) handleCommandKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		input := m.input.Value()
		m.closeCommand()
		cmd, err := m.execute(input)
		if err != nil {
			m.logger.Debug("command rejected", zap.String("input", input), zap.Error(err))
			m.notices.Error("%v", err)
		}
		return cmd
	case tea.KeyEsc:
		m.closeCommand()
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) closeCommand() {
	m.commandMode = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) answerDelete(msg tea.KeyMsg) tea.Cmd {
	id := m.confirmDelete
	m.confirmDelete = ""
	if msg.String() == "y" || msg.String() == "Y" {
		return m.dispatch.Delete(id, dispatcher.Confirmed)
	}
	m.notices.Info("Delete cancelled")
	return nil
}

func (m *Model) handleRosterKey(msg tea.KeyMsg) tea.Cmd {
	rows := m.roster.Rows()
	var target string
	if m.cursor < len(rows) {
		target = rows[m.cursor].ID()
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, len(rows))
	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, len(rows))
	case key.Matches(msg, m.keys.New):
		m.newDraft()
	case key.Matches(msg, m.keys.Refresh):
		return m.roster.Refresh()
	case key.Matches(msg, m.keys.Sort):
		m.roster.SortBy(nextSortKey(m.roster.SortConfig().Key))
	case target == "":
		return nil
	case key.Matches(msg, m.keys.Open):
		return m.openCrawl(target)
	case key.Matches(msg, m.keys.Clone):
		if m.dispatch.Clone(target) {
			m.roster.ClearSelection()
			m.results.Reset()
			m.view = viewDraft
		}
	case key.Matches(msg, m.keys.Start):
		return m.dispatch.Start(target)
	case key.Matches(msg, m.keys.Stop):
		return m.dispatch.Stop(target)
	case key.Matches(msg, m.keys.Export):
		return m.dispatch.Export(target)
	case key.Matches(msg, m.keys.Delete):
		if !m.dispatch.InFlight(target) {
			m.confirmDelete = target
		}
	}
	return nil
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) tea.Cmd {
	rows := m.results.PageRows()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.recordCursor = clamp(m.recordCursor-1, len(rows))
	case key.Matches(msg, m.keys.Down):
		m.recordCursor = clamp(m.recordCursor+1, len(rows))
	case key.Matches(msg, m.keys.Open):
		if m.recordCursor < len(rows) {
			return m.results.SelectRecord(rows[m.recordCursor].ID)
		}
	case key.Matches(msg, m.keys.PrevPage):
		m.results.SetPage(m.results.Page() - 1)
		m.recordCursor = 0
	case key.Matches(msg, m.keys.NextPage):
		m.results.SetPage(m.results.Page() + 1)
		m.recordCursor = 0
	case key.Matches(msg, m.keys.Sort):
		m.results.Sort(results.SortScore)
		m.recordCursor = 0
	case key.Matches(msg, m.keys.PrevFld):
		m.stepField(-1)
	case key.Matches(msg, m.keys.NextFld):
		m.stepField(1)
	case key.Matches(msg, m.keys.Refresh):
		if id := m.results.CrawlID(); id != "" {
			return m.results.LoadSummaries(id, m.summaryCount, m.results.ScoreType())
		}
	default:
		if s := msg.String(); s == "pgup" || s == "pgdown" {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return cmd
		}
	}
	return nil
}

// openCrawl selects id, which discards any draft, and loads its results.
func (m *Model) openCrawl(id string) tea.Cmd {
	if !m.roster.Select(id) {
		return nil
	}
	m.drafts.Clear()
	m.results.Reset()
	m.summaryCount = 0
	m.recordCursor = 0
	m.detail.SetContent("")
	m.view = viewResults
	return m.results.LoadSummaries(id, 0, "")
}

func (m *Model) newDraft() {
	m.drafts.Replace(crawl.NewSpec())
	m.roster.ClearSelection()
	m.results.Reset()
	m.view = viewDraft
}

func (m *Model) nextView() {
	switch m.view {
	case viewRoster:
		switch {
		case m.drafts.Active():
			m.view = viewDraft
		case m.results.CrawlID() != "":
			m.view = viewResults
		}
	case viewDraft:
		if m.results.CrawlID() != "" {
			m.view = viewResults
		} else {
			m.view = viewRoster
		}
	default:
		m.view = viewRoster
	}
}

func (m *Model) stepField(delta int) {
	names := m.results.FieldNames()
	if len(names) == 0 {
		return
	}
	i := 0
	for j, n := range names {
		if n == m.results.Field() {
			i = j
		}
	}
	i = (i + delta + len(names)) % len(names)
	m.results.SelectField(names[i])
	m.refreshDetail()
}

func (m *Model) refreshDetail() {
	field := m.results.Field()
	if field == "" {
		m.detail.SetContent("")
		return
	}
	text, err := m.results.FieldText(field)
	if err != nil {
		text = err.Error()
	}
	m.detail.SetContent(text)
	m.detail.GotoTop()
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}
