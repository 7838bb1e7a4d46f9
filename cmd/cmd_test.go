package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/api"
	"github.com/JakeFAU/crawl-console/internal/clock/system"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/id/uuid"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

// stubService points the CLI at an in-memory service. Tests using it set
// environment variables and must not run in parallel.
func stubService(t *testing.T) *memory.CrawlStore {
	t.Helper()
	store := memory.NewCrawlStore()
	srv := httptest.NewServer(api.NewServer(store, uuid.New(), system.New(), "", nil).Handler())
	t.Cleanup(srv.Close)
	t.Setenv("CONSOLE_SERVICE_BASE_URL", srv.URL+api.DefaultBasePath)
	t.Setenv("CONSOLE_LOGGING_FILE", filepath.Join(t.TempDir(), "console.log"))
	t.Setenv("CONSOLE_EXPORT_DIR", t.TempDir())
	return store
}

func seedCrawl(t *testing.T, store *memory.CrawlStore, id, name string) {
	t.Helper()
	_, err := store.CreateCrawl(context.Background(), id, crawl.Spec{
		Name:          name,
		Seeds:         []string{"https://example.com"},
		WorkerCount:   1,
		AnalyzerSpecs: crawl.AnalyzerSpecs{crawl.KeywordSpec{CompositeWeight: 1}},
	}, time.Now())
	require.NoError(t, err)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseSearches(t *testing.T) {
	t.Parallel()

	queries, err := parseSearches([]string{"Bing:20:price index: monthly", "Google:5:cpi"})
	require.NoError(t, err)
	require.Equal(t, []crawl.SeedQuery{
		{Engine: crawl.SearchBing, Query: "price index: monthly", ResultCount: 20},
		{Engine: crawl.SearchGoogle, Query: "cpi", ResultCount: 5},
	}, queries)

	_, err = parseSearches([]string{"Bing:twenty:cpi"})
	require.ErrorContains(t, err, "bad count")
	_, err = parseSearches([]string{"Bing"})
	require.ErrorContains(t, err, "engine:count:query")
}

func TestDecodeFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "spec.yaml")
	doc := `
name: Prices
worker_count: 3
seeds:
  - https://example.com/a
analyzer_specs:
  - name: KeywordScoreAnalyzer
    composite_weight: 0.5
    keywords:
      - keyword: inflation
        weight: 2
    regexes:
      - regex: "cpi\\s+\\d+"
        weight: 1
        flags: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	var spec crawl.Spec
	require.NoError(t, decodeFile(path, &spec))
	require.Equal(t, "Prices", spec.Name)
	require.Equal(t, 3, spec.WorkerCount)
	kw, ok := spec.AnalyzerSpecs.Get(crawl.KeywordAnalyzer)
	require.True(t, ok)
	require.InDelta(t, 0.5, kw.Weight(), 1e-9)
	require.Equal(t, crawl.CaseInsensitive, kw.(crawl.KeywordSpec).Regexes[0].Flags)
}

func TestDecodeFileErrors(t *testing.T) {
	t.Parallel()

	var spec crawl.Spec
	require.ErrorContains(t, decodeFile(filepath.Join(t.TempDir(), "missing.json"), &spec), "read")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	require.ErrorContains(t, decodeFile(bad, &spec), "decode")
}

func TestPromptConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := promptConfirm(strings.NewReader(tt.input), &out)("Delete it?")
		require.Equal(t, tt.want, got, "input %q", tt.input)
		require.True(t, strings.HasPrefix(out.String(), "Delete it? [y/N]: "))
		if !tt.want {
			require.Contains(t, out.String(), "Aborted.")
		}
	}
}

func TestListCommand(t *testing.T) {
	store := stubService(t)
	seedCrawl(t, store, "c-1", "bravo")
	seedCrawl(t, store, "c-2", "alpha")

	out, err := execute(t, "", "list", "--sort", "name", "--desc")
	require.NoError(t, err)
	require.Less(t, strings.Index(out, "bravo"), strings.Index(out, "alpha"))
	require.Contains(t, strings.ToLower(out), "total")

	_, err = execute(t, "", "list", "--sort", "colour")
	require.ErrorContains(t, err, `unknown sort key "colour"`)
}

func TestStartAndStopByName(t *testing.T) {
	store := stubService(t)
	seedCrawl(t, store, "c-1", "Alpha")

	out, err := execute(t, "", "start", "alpha")
	require.NoError(t, err)
	require.Contains(t, out, `success: Started crawl "Alpha"`)
	info, err := store.Get(context.Background(), "c-1")
	require.NoError(t, err)
	require.Equal(t, crawl.StateRunning, info.Status.CurrentState)

	_, err = execute(t, "", "start", "c-1")
	require.Error(t, err)

	_, err = execute(t, "", "stop", "c-1")
	require.NoError(t, err)
	info, _ = store.Get(context.Background(), "c-1")
	require.Equal(t, crawl.StateStopped, info.Status.CurrentState)

	_, err = execute(t, "", "start", "nobody")
	require.ErrorIs(t, err, crawl.ErrNotFound)
}

func TestDeletePromptsBeforeRemoving(t *testing.T) {
	store := stubService(t)
	seedCrawl(t, store, "c-1", "Doomed")

	out, err := execute(t, "no\n", "delete", "Doomed")
	require.NoError(t, err)
	require.Contains(t, out, "Aborted.")
	_, err = store.Get(context.Background(), "c-1")
	require.NoError(t, err)

	out, err = execute(t, "", "delete", "--yes", "Doomed")
	require.NoError(t, err)
	require.Contains(t, out, `Deleted crawl "Doomed"`)
	_, err = store.Get(context.Background(), "c-1")
	require.ErrorIs(t, err, crawl.ErrNotFound)
}

func TestExportWritesSpecFile(t *testing.T) {
	store := stubService(t)
	seedCrawl(t, store, "c-1", "Alpha")
	dir := t.TempDir()

	_, err := execute(t, "", "export", "--dir", dir, "Alpha")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "crawl_spec_c-1.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"Alpha"`)
}

func TestCreateFromFileWithSearches(t *testing.T) {
	store := stubService(t)
	path := filepath.Join(t.TempDir(), "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "draft",
		"seeds": ["https://example.com"],
		"worker_count": 2,
		"analyzer_specs": [{"name": "KeywordScoreAnalyzer", "composite_weight": 1, "keywords": [], "regexes": []}]
	}`), 0o600))

	out, err := execute(t, "", "create", "-f", path, "--name", "Fresh", "--search", "Bing:2:go crawler")
	require.NoError(t, err)
	require.Contains(t, out, "Added 2 of 2")
	require.Contains(t, out, `Created crawl "Fresh"`)

	infos := store.List(context.Background())
	require.Len(t, infos, 1)
	require.Equal(t, "Fresh", infos[0].Spec.Name)
	require.Len(t, infos[0].Spec.Seeds, 3)

	_, err = execute(t, "", "create", "-f", path, "--name", "fresh")
	require.ErrorContains(t, err, "already exists")
}

func TestResultsCommand(t *testing.T) {
	store := stubService(t)
	seedCrawl(t, store, "c-1", "Ranked")
	require.NoError(t, store.PutRecords(context.Background(), "c-1",
		crawl.Record{"url": "https://low.example", "composite_score": 0.1, "title": "Low"},
		crawl.Record{"url": "https://high.example", "composite_score": 0.8, "title": "High"},
	))

	out, err := execute(t, "", "results", "Ranked")
	require.NoError(t, err)
	require.Less(t, strings.Index(out, "high.example"), strings.Index(out, "low.example"))

	out, err = execute(t, "", "results", "Ranked", "--record", memory.RecordID("https://high.example"))
	require.NoError(t, err)
	require.Contains(t, out, "title")
	require.Contains(t, out, "High")
}

func TestAnalyzersCommand(t *testing.T) {
	stubService(t)

	out, err := execute(t, "", "analyzers")
	require.NoError(t, err)
	require.Contains(t, out, string(crawl.KeywordAnalyzer))
	require.Contains(t, out, string(crawl.LLMAnalyzer))
	require.Contains(t, out, "composite_weight")
}
