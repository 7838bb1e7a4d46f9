package console

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/dispatcher"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/tableview"
)

var (
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	successText     = lipgloss.Color("#7BD88F")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(mutedText)
	activeTabStyle = tabStyle.Foreground(accentSecondary).Bold(true).Underline(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().Foreground(accentSecondary).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedText)
	errorStyle  = lipgloss.NewStyle().Foreground(warningText).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(successText)
	infoStyle   = lipgloss.NewStyle().Foreground(accentPrimary)
)

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.view {
	case viewDraft:
		body = m.draftView()
	case viewResults:
		body = m.resultsView()
	default:
		body = m.rosterView()
	}
	parts := []string{m.headerView(), body}
	if notices := m.noticesView(); notices != "" {
		parts = append(parts, notices)
	}
	parts = append(parts, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) headerView() string {
	tabs := make([]string, 0, 3)
	for _, v := range []view{viewRoster, viewDraft, viewResults} {
		style := tabStyle
		if v == m.view {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	status := ""
	if m.busy() {
		status = m.spinner.View() + " " + mutedStyle.Render(strings.Join(m.dispatch.Pending(), ", "))
	}
	if m.roster.Failing() {
		status += " " + errorStyle.Render("service unreachable")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, headerStyle.Render("crawl console"), strings.Join(tabs, ""), status)
}

func (m *Model) busy() bool {
	return len(m.dispatch.Pending()) > 0 || m.results.Loading() || m.results.PendingID() != ""
}

func (m *Model) rosterView() string {
	rows := m.roster.Rows()
	var b strings.Builder
	if !m.roster.Loaded() {
		b.WriteString(mutedStyle.Render("Loading crawls..."))
	} else if len(rows) == 0 {
		b.WriteString(mutedStyle.Render("No crawls yet. Press n to start a draft."))
	} else {
		sort := m.roster.SortConfig()
		fmt.Fprintf(&b, "  %-28s %-9s %-20s %8s %9s %7s %8s\n",
			heading("Name", "name", sort),
			heading("State", "state", sort),
			heading("Created", "created", sort),
			heading("Crawled", "crawled", sort),
			heading("Processed", "processed", sort),
			heading("Errors", "errors", sort),
			heading("Frontier", "frontier", sort),
		)
		for i, info := range rows {
			line := fmt.Sprintf("%-28s %-9s %-20s %8d %9d %7d %8d",
				truncate(info.Spec.Name, 28),
				info.Status.CurrentState,
				formatTime(info.Status),
				info.Status.CrawledCount,
				info.Status.ProcessedCount,
				info.Status.ErrorCount,
				info.Status.FrontierSize,
			)
			if m.dispatch.InFlight(info.ID()) {
				line += " …"
			}
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
	}
	table := panelStyle.Render(panelTitleStyle.Render("Crawls") + "\n" + b.String())
	if info, ok := m.roster.Selected(); ok {
		spec := panelStyle.Render(panelTitleStyle.Render(info.Spec.Name+" (read-only)") + "\n" + specLines(info.Spec))
		return lipgloss.JoinHorizontal(lipgloss.Top, table, spec)
	}
	return table
}

func (m *Model) draftView() string {
	spec, ok := m.drafts.Current()
	if !ok {
		return panelStyle.Render(mutedStyle.Render("No draft. Press n on the crawl list or :new to start one."))
	}
	title := "Draft"
	switch {
	case m.dispatch.InFlight(dispatcher.DraftKey):
		title += " " + m.spinner.View() + " submitting"
	case m.dispatch.InFlight(dispatcher.SeedsKey):
		title += " " + m.spinner.View() + " collecting seeds"
	}
	hints := mutedStyle.Render(strings.Join([]string{
		":name <text>  :workers <n>  :block|unblock <domain>",
		":seed add <url...>  :seed rm|up|down <n>  :seeds <urls>  :collect <engine> <n> <query>",
		":analyzer on|off keyword|llm  :weight <analyzer> <w>",
		":keyword add <w> <text>  :regex add <w> sensitive|insensitive <pattern>",
		":prompt <text>  :output set|rm <field> [type]  :submit  :discard",
	}, "\n"))
	return panelStyle.Render(panelTitleStyle.Render(title) + "\n" + specLines(spec) + "\n\n" + hints)
}

func (m *Model) resultsView() string {
	crawlID := m.results.CrawlID()
	name := crawlID
	if info, ok := m.roster.Find(crawlID); ok {
		name = info.Spec.Name
	}
	var b strings.Builder
	switch {
	case crawlID == "" && m.results.Loading():
		b.WriteString(mutedStyle.Render("Loading results..."))
	case crawlID == "":
		b.WriteString(mutedStyle.Render("Open a crawl from the list to browse its results."))
	default:
		sort := m.results.SortConfig()
		fmt.Fprintf(&b, "score: %s  page %d/%d  (%d records)\n",
			m.results.ScoreType(), m.results.Page(), m.results.Pages(), m.results.Len())
		fmt.Fprintf(&b, "  %-8s %s\n", heading("Score", "score", sort), heading("URL", "url", sort))
		for i, row := range m.results.PageRows() {
			line := fmt.Sprintf("%-8.3f %s", row.Score, truncate(row.URL, 60))
			if row.ID == m.results.PendingID() {
				line += " " + m.spinner.View()
			}
			if i == m.recordCursor {
				b.WriteString(cursorStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
	}
	list := panelStyle.Render(panelTitleStyle.Render("Results: "+name) + "\n" + b.String())

	id, _, ok := m.results.Detail()
	if !ok {
		return list
	}
	fields := make([]string, 0)
	for _, f := range m.results.FieldNames() {
		if f == m.results.Field() {
			fields = append(fields, cursorStyle.Render("["+f+"]"))
		} else {
			fields = append(fields, mutedStyle.Render(f))
		}
	}
	detail := panelStyle.Render(
		panelTitleStyle.Render("Record "+id) + "\n" +
			lipgloss.NewStyle().Width(m.detail.Width).Render(strings.Join(fields, " ")) + "\n" +
			m.detail.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m *Model) noticesView() string {
	active := m.notices.Active()
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, len(active))
	for i, n := range active {
		switch n.Level {
		case notify.LevelError:
			lines[i] = errorStyle.Render("✗ " + n.Message)
		case notify.LevelSuccess:
			lines[i] = okStyle.Render("✓ " + n.Message)
		default:
			lines[i] = infoStyle.Render("• " + n.Message)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) footerView() string {
	switch {
	case m.confirmDelete != "":
		name := m.confirmDelete
		if info, ok := m.roster.Find(name); ok {
			name = info.Spec.Name
		}
		return errorStyle.Render(fmt.Sprintf("Delete crawl %q? This cannot be undone. [y/N]", name))
	case m.commandMode:
		return m.input.View()
	}
	return m.help.View(m.keys)
}

// specLines renders a specification for the read-only and draft panels.
func specLines(spec crawl.Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", spec.Name)
	fmt.Fprintf(&b, "Workers: %d\n", spec.WorkerCount)
	if len(spec.DomainBlacklist) > 0 {
		fmt.Fprintf(&b, "Blocked: %s\n", strings.Join(spec.DomainBlacklist, ", "))
	}
	fmt.Fprintf(&b, "Seeds (%d):\n", len(spec.Seeds))
	for i, s := range spec.Seeds {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, s)
	}
	b.WriteString("Analyzers:")
	if len(spec.AnalyzerSpecs) == 0 {
		b.WriteString(" none")
	}
	b.WriteByte('\n')
	for _, a := range spec.AnalyzerSpecs {
		fmt.Fprintf(&b, "  %s (weight %g)\n", a.Name(), a.Weight())
		switch a := a.(type) {
		case crawl.KeywordSpec:
			for i, k := range a.Keywords {
				fmt.Fprintf(&b, "    kw %d. %q × %g\n", i+1, k.Keyword, k.Weight)
			}
			for i, r := range a.Regexes {
				fmt.Fprintf(&b, "    re %d. /%s/ × %g (%s)\n", i+1, r.Regex, r.Weight, r.Flags)
			}
		case crawl.LLMSpec:
			if a.Prompt != "" {
				fmt.Fprintf(&b, "    prompt: %s\n", truncate(a.Prompt, 60))
			}
			for _, f := range slices.Sorted(maps.Keys(a.OutputFormat)) {
				fmt.Fprintf(&b, "    output %s: %s\n", f, a.OutputFormat[f])
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func heading(title, key string, sort tableview.SortConfig) string {
	if sort.Key != key {
		return title
	}
	if sort.Direction == tableview.Descending {
		return title + "▼"
	}
	return title + "▲"
}

func formatTime(s crawl.Status) string {
	created := s.CreatedAt()
	if created.IsZero() {
		return "-"
	}
	return created.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
