package console

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/results"
	"github.com/JakeFAU/crawl-console/internal/roster"
)

var errUsage = errors.New("usage")

// analyzerAliases lets the command line use short analyzer names.
var analyzerAliases = map[string]crawl.AnalyzerName{
	"keyword": crawl.KeywordAnalyzer,
	"llm":     crawl.LLMAnalyzer,
}

// rosterSortKeys is the cycle order of the sort key binding.
var rosterSortKeys = []string{
	roster.SortName,
	roster.SortState,
	roster.SortCreated,
	roster.SortCrawled,
	roster.SortProcessed,
	roster.SortErrors,
	roster.SortFrontier,
}

// line is one parsed command line.
type line struct {
	verb string
	args []string
	raw  string
}

func parseLine(s string) line {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return line{}
	}
	return line{verb: strings.ToLower(fields[0]), args: fields[1:], raw: s}
}

// text returns everything after the first n arguments, spacing preserved.
func (l line) text(n int) string {
	rest := strings.TrimSpace(strings.TrimPrefix(l.raw, strings.Fields(l.raw)[0]))
	for range n {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return ""
		}
		rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
	}
	return rest
}

func (l line) arg(i int) string {
	if i < len(l.args) {
		return l.args[i]
	}
	return ""
}

// execute runs one command line typed after ':'.
func (m *Model) execute(input string) (tea.Cmd, error) {
	l := parseLine(input)
	switch l.verb {
	case "":
		return nil, nil
	case "new":
		m.newDraft()
		return nil, nil
	case "discard":
		m.drafts.Clear()
		m.view = viewRoster
		return nil, nil
	case "submit":
		return m.dispatch.Create(), nil
	case "name":
		return nil, m.general.SetName(l.text(0))
	case "workers":
		n, err := strconv.Atoi(l.arg(0))
		if err != nil {
			return nil, fmt.Errorf("workers <count>: %w", errUsage)
		}
		return nil, m.general.SetWorkerCount(n)
	case "block":
		return nil, m.general.BlockDomain(l.arg(0))
	case "unblock":
		return nil, m.general.UnblockDomain(l.arg(0))
	case "seed":
		return nil, m.seedCommand(l)
	case "seeds":
		return nil, m.seeds.Replace(l.text(0))
	case "collect":
		return m.collectCommand(l)
	case "analyzer", "weight", "keyword", "regex", "prompt", "output":
		return nil, m.analyzerCommand(l)
	case "sort":
		return nil, m.sortCommand(l.arg(0))
	case "refresh":
		return m.roster.Refresh(), nil
	case "score", "count":
		return m.reloadCommand(l)
	case "page":
		n, err := strconv.Atoi(l.arg(0))
		if err != nil {
			return nil, fmt.Errorf("page <number>: %w", errUsage)
		}
		m.results.SetPage(n)
		m.recordCursor = 0
		return nil, nil
	case "pagesize":
		n, err := strconv.Atoi(l.arg(0))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("pagesize <rows>: %w", errUsage)
		}
		m.results.SetPageSize(n)
		m.recordCursor = 0
		return nil, nil
	case "open":
		return m.results.SelectRecord(l.arg(0)), nil
	case "field":
		if !m.results.SelectField(l.arg(0)) {
			return nil, fmt.Errorf("field %q: %w", l.arg(0), crawl.ErrNotFound)
		}
		m.refreshDetail()
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command %q", l.verb)
}

func (m *Model) seedCommand(l line) error {
	index := func() (int, error) {
		n, err := strconv.Atoi(l.arg(1))
		if err != nil {
			return 0, fmt.Errorf("seed %s <number>: %w", l.arg(0), errUsage)
		}
		return n - 1, nil
	}
	switch l.arg(0) {
	case "add":
		added, err := m.seeds.Add(l.args[1:]...)
		if err == nil && added == 0 {
			m.notices.Info("No new seed URLs")
		}
		return err
	case "rm":
		i, err := index()
		if err != nil {
			return err
		}
		return m.seeds.Remove(i)
	case "up", "down":
		i, err := index()
		if err != nil {
			return err
		}
		delta := -1
		if l.arg(0) == "down" {
			delta = 1
		}
		return m.seeds.Move(i, delta)
	case "clear":
		return m.seeds.Clear()
	}
	return fmt.Errorf("seed add|rm|up|down|clear: %w", errUsage)
}

// collectCommand handles "collect <engine> <count> <query...>".
func (m *Model) collectCommand(l line) (tea.Cmd, error) {
	count, err := strconv.Atoi(l.arg(1))
	if err != nil || len(l.args) < 3 {
		return nil, fmt.Errorf("collect <engine> <count> <query>: %w", errUsage)
	}
	engine := crawl.SearchEngine(l.arg(0))
	for _, known := range []crawl.SearchEngine{crawl.SearchGoogle, crawl.SearchBing, crawl.SearchDuckDuckGo} {
		if strings.EqualFold(string(known), l.arg(0)) {
			engine = known
		}
	}
	return m.dispatch.CollectSeeds(crawl.SeedQuery{
		Engine:      engine,
		Query:       l.text(2),
		ResultCount: count,
	}), nil
}

func (m *Model) analyzerCommand(l line) error {
	switch l.verb {
	case "analyzer":
		name, err := analyzerName(l.arg(1))
		if err != nil {
			return err
		}
		switch l.arg(0) {
		case "on":
			return m.analyzers.Enable(name)
		case "off":
			return m.analyzers.Disable(name)
		}
		return fmt.Errorf("analyzer on|off <name>: %w", errUsage)
	case "weight":
		name, err := analyzerName(l.arg(0))
		if err != nil {
			return err
		}
		w, err := strconv.ParseFloat(l.arg(1), 64)
		if err != nil {
			return fmt.Errorf("weight <analyzer> <value>: %w", errUsage)
		}
		return m.analyzers.SetWeight(name, w)
	case "keyword":
		return m.keywordCommand(l)
	case "regex":
		return m.regexCommand(l)
	case "prompt":
		return m.analyzers.SetPrompt(l.text(0))
	case "output":
		switch l.arg(0) {
		case "set":
			return m.analyzers.SetOutputField(l.arg(1), l.arg(2))
		case "rm":
			return m.analyzers.RemoveOutputField(l.arg(1))
		}
		return fmt.Errorf("output set|rm <field> [type]: %w", errUsage)
	}
	return nil
}

// keywordCommand handles "keyword add <weight> <text...>" and "keyword rm <n>".
func (m *Model) keywordCommand(l line) error {
	switch l.arg(0) {
	case "add":
		w, err := strconv.ParseFloat(l.arg(1), 64)
		if err != nil || len(l.args) < 3 {
			return fmt.Errorf("keyword add <weight> <keyword>: %w", errUsage)
		}
		return m.analyzers.AddKeyword(l.text(2), w)
	case "rm":
		n, err := strconv.Atoi(l.arg(1))
		if err != nil {
			return fmt.Errorf("keyword rm <number>: %w", errUsage)
		}
		return m.analyzers.RemoveKeyword(n - 1)
	}
	return fmt.Errorf("keyword add|rm: %w", errUsage)
}

// regexCommand handles "regex add <weight> <sensitive|insensitive> <pattern>"
// and "regex rm <n>".
func (m *Model) regexCommand(l line) error {
	switch l.arg(0) {
	case "add":
		w, err := strconv.ParseFloat(l.arg(1), 64)
		if err != nil || len(l.args) < 4 {
			return fmt.Errorf("regex add <weight> <sensitive|insensitive> <pattern>: %w", errUsage)
		}
		var c crawl.RegexCase
		switch strings.ToLower(l.arg(2)) {
		case "sensitive", "s":
			c = crawl.CaseSensitive
		case "insensitive", "i":
			c = crawl.CaseInsensitive
		default:
			return fmt.Errorf("regex case must be sensitive or insensitive, got %q", l.arg(2))
		}
		return m.analyzers.AddRegex(l.text(3), w, c)
	case "rm":
		n, err := strconv.Atoi(l.arg(1))
		if err != nil {
			return fmt.Errorf("regex rm <number>: %w", errUsage)
		}
		return m.analyzers.RemoveRegex(n - 1)
	}
	return fmt.Errorf("regex add|rm: %w", errUsage)
}

func (m *Model) sortCommand(key string) error {
	key = strings.ToLower(key)
	if m.view == viewResults {
		if !m.results.Sort(key) {
			return fmt.Errorf("unknown results sort %q", key)
		}
		m.recordCursor = 0
		return nil
	}
	if !m.roster.SortBy(key) {
		return fmt.Errorf("unknown roster sort %q", key)
	}
	return nil
}

// reloadCommand handles "score <type>" and "count <n>" against the crawl
// whose results are open.
func (m *Model) reloadCommand(l line) (tea.Cmd, error) {
	crawlID := m.results.CrawlID()
	if crawlID == "" {
		return nil, errors.New("no crawl results are open")
	}
	scoreType, count := m.results.ScoreType(), m.summaryCount
	switch l.verb {
	case "score":
		scoreType = l.arg(0)
		if info, ok := m.roster.Find(crawlID); ok && !slices.Contains(results.ScoreTypes(info.Spec), scoreType) {
			return nil, fmt.Errorf("score type %q is not configured for %q", scoreType, info.Spec.Name)
		}
	case "count":
		n, err := strconv.Atoi(l.arg(0))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("count <n>: %w", errUsage)
		}
		count = n
		m.summaryCount = n
	}
	m.recordCursor = 0
	return m.results.LoadSummaries(crawlID, count, scoreType), nil
}

func analyzerName(s string) (crawl.AnalyzerName, error) {
	if name, ok := analyzerAliases[strings.ToLower(s)]; ok {
		return name, nil
	}
	name := crawl.AnalyzerName(s)
	if !name.Valid() {
		return "", fmt.Errorf("unknown analyzer %q", s)
	}
	return name, nil
}

func nextSortKey(current string) string {
	i := slices.Index(rosterSortKeys, current)
	return rosterSortKeys[(i+1)%len(rosterSortKeys)]
}
