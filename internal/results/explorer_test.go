package results

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/tableview"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeReader struct {
	summaries   []crawl.RecordSummary
	summaryErr  error
	records     map[string]crawl.Record
	recordErr   error
	lastCount   int
	lastScore   string
	recordCalls int
}

func (f *fakeReader) RecordSummaries(_ context.Context, _ string, count int, scoreType string) ([]crawl.RecordSummary, error) {
	f.lastCount, f.lastScore = count, scoreType
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return slices.Clone(f.summaries), nil
}

func (f *fakeReader) Records(_ context.Context, _ string, ids []string) ([]crawl.Record, error) {
	f.recordCalls++
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	var out []crawl.Record
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func summaries(n int) []crawl.RecordSummary {
	out := make([]crawl.RecordSummary, n)
	for i := range out {
		out[i] = crawl.RecordSummary{
			ID:    fmt.Sprintf("r%02d", i),
			URL:   fmt.Sprintf("https://example.com/%02d", i),
			Score: float64(i % 4),
		}
	}
	return out
}

func newExplorer(t *testing.T, reader *fakeReader) (*Explorer, *notify.Queue) {
	t.Helper()
	notices := notify.NewQueue(&fakeClock{now: time.Unix(0, 0)}, time.Minute, nil)
	return New(reader, notices, Config{}, nil), notices
}

func loaded(t *testing.T, reader *fakeReader) (*Explorer, *notify.Queue) {
	t.Helper()
	e, notices := newExplorer(t, reader)
	e.Update(e.LoadSummaries("crawl-1", 0, "")())
	require.Equal(t, "crawl-1", e.CrawlID())
	return e, notices
}

func TestLoadSummariesDefaults(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(3)}
	e, _ := loaded(t, reader)
	require.Equal(t, DefaultSummaryCount, reader.lastCount)
	require.Equal(t, crawl.CompositeScore, reader.lastScore)
	require.Equal(t, crawl.CompositeScore, e.ScoreType())
	require.Equal(t, 3, e.Len())
	require.False(t, e.Loading())
}

func TestLoadFailureKeepsPriorList(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(5)}
	e, notices := loaded(t, reader)

	reader.summaryErr = errors.New("status 400: invalid score_type")
	e.Update(e.LoadSummaries("crawl-1", 10, "Bogus")())

	require.Equal(t, 5, e.Len())
	require.Equal(t, crawl.CompositeScore, e.ScoreType())
	require.Equal(t, 1, notices.Len())
	require.Contains(t, notices.Active()[0].Message, "invalid score_type")
}

func TestSupersededSummaryLoadIsDiscarded(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(2)}
	e, _ := newExplorer(t, reader)
	first := e.LoadSummaries("crawl-a", 0, "")
	firstMsg := first()
	reader.summaries = summaries(7)
	second := e.LoadSummaries("crawl-b", 0, "")

	e.Update(second())
	e.Update(firstMsg)
	require.Equal(t, "crawl-b", e.CrawlID())
	require.Equal(t, 7, e.Len())
}

func TestSelectionRaceShowsLatestSelection(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		summaries: summaries(2),
		records: map[string]crawl.Record{
			"r00": {"url": "https://example.com/00"},
			"r01": {"url": "https://example.com/01"},
		},
	}
	e, _ := loaded(t, reader)

	selectA := e.SelectRecord("r00")
	require.Equal(t, "r00", e.PendingID())
	selectB := e.SelectRecord("r01")
	require.Equal(t, "r01", e.PendingID())

	e.Update(selectB())
	e.Update(selectA())

	id, rec, ok := e.Detail()
	require.True(t, ok)
	require.Equal(t, "r01", id)
	require.Equal(t, "https://example.com/01", rec["url"])
	require.Empty(t, e.PendingID())
}

func TestReloadDiscardsInFlightDetail(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		summaries: summaries(2),
		records:   map[string]crawl.Record{"r00": {"url": "x"}},
	}
	e, _ := loaded(t, reader)
	pending := e.SelectRecord("r00")
	e.Update(e.LoadSummaries("crawl-1", 0, "")())
	e.Update(pending())

	_, _, ok := e.Detail()
	require.False(t, ok)
	require.Empty(t, e.PendingID())
}

func TestRecordFailureLeavesDetail(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		summaries: summaries(2),
		records:   map[string]crawl.Record{"r00": {"url": "x"}},
	}
	e, notices := loaded(t, reader)
	e.Update(e.SelectRecord("r00")())

	e.Update(e.SelectRecord("missing")())
	id, _, ok := e.Detail()
	require.True(t, ok)
	require.Equal(t, "r00", id)
	require.Equal(t, 1, notices.Len())

	reader.recordErr = errors.New("timeout")
	e.Update(e.SelectRecord("r01")())
	require.Equal(t, 2, notices.Len())
}

func TestSelectRecordBeforeLoad(t *testing.T) {
	t.Parallel()

	e, _ := newExplorer(t, &fakeReader{})
	require.Nil(t, e.SelectRecord("r00"))
}

func TestSortDescendingIsExactReverseWithTies(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(12)}
	e, _ := loaded(t, reader)

	require.True(t, e.Sort(SortScore))
	asc := e.Rows()
	require.True(t, e.Sort(SortScore))
	require.Equal(t, tableview.Descending, e.SortConfig().Direction)
	desc := e.Rows()

	reversed := slices.Clone(asc)
	slices.Reverse(reversed)
	require.Equal(t, reversed, desc)
	require.Equal(t, []string{"r00", "r04", "r08"}, ids(asc[:3]), "ties keep their loaded order")

	require.True(t, e.Sort(SortURL))
	require.Equal(t, tableview.SortConfig{Key: SortURL, Direction: tableview.Ascending}, e.SortConfig())
	require.False(t, e.Sort("bogus"))
}

func TestPaginationTwentyThree(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(23)}
	e, _ := loaded(t, reader)

	require.Equal(t, 3, e.Pages())
	require.Equal(t, ids(reader.summaries[0:10]), ids(e.PageRows()))

	e.SetPage(3)
	require.Equal(t, ids(reader.summaries[20:23]), ids(e.PageRows()))

	e.SetPage(0)
	require.Equal(t, 1, e.Page())
	e.SetPage(99)
	require.Equal(t, 3, e.Page())

	e.SetPageSize(25)
	require.Equal(t, 1, e.Page())
	require.Len(t, e.PageRows(), 23)

	e.SetPageSize(10)
	e.SetPage(2)
	e.Update(e.LoadSummaries("crawl-1", 0, "")())
	require.Equal(t, 1, e.Page(), "new list resets paging")
}

func TestFieldInspection(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		summaries: summaries(1),
		records: map[string]crawl.Record{"r00": {
			"url":             "https://example.com",
			"links":           []any{"https://a", "https://b"},
			"scores":          map[string]any{"KeywordScoreAnalyzer": 0.5, "DhLlmScoreAnalyzer": 1.0},
			"composite_score": 0.75,
			"extracted_content": map[string]any{
				"title": "Example",
				"tags":  []any{"go", "crawl"},
			},
			"page_source": nil,
		}},
	}
	e, _ := loaded(t, reader)
	e.Update(e.SelectRecord("r00")())

	require.Equal(t, []string{"composite_score", "extracted_content", "links", "page_source", "scores", "url"}, e.FieldNames())
	require.Equal(t, "composite_score", e.Field())

	text, err := e.FieldText("links")
	require.NoError(t, err)
	require.Equal(t, "https://a\nhttps://b", text)

	text, err = e.FieldText("composite_score")
	require.NoError(t, err)
	require.Equal(t, "0.75", text)

	text, err = e.FieldText("scores")
	require.NoError(t, err)
	require.Equal(t, "DhLlmScoreAnalyzer: 1\nKeywordScoreAnalyzer: 0.5", text)

	text, err = e.FieldText("extracted_content")
	require.NoError(t, err)
	require.Equal(t, "tags:\n    - go\n    - crawl\ntitle: Example", text)

	text, err = e.FieldText("page_source")
	require.NoError(t, err)
	require.Empty(t, text)

	_, err = e.FieldText("missing")
	require.ErrorIs(t, err, crawl.ErrNotFound)

	require.True(t, e.SelectField("url"))
	require.False(t, e.SelectField("missing"))
	require.Equal(t, "url", e.Field())
}

func TestScoreTypes(t *testing.T) {
	t.Parallel()

	spec := crawl.Spec{AnalyzerSpecs: crawl.AnalyzerSpecs{crawl.LLMSpec{}, crawl.KeywordSpec{}}}
	require.Equal(t, []string{"composite", "DhLlmScoreAnalyzer", "KeywordScoreAnalyzer"}, ScoreTypes(spec))
}

func TestReset(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{summaries: summaries(3)}
	e, _ := loaded(t, reader)
	pending := e.LoadSummaries("crawl-1", 0, "")
	e.Reset()
	e.Update(pending())
	require.Empty(t, e.CrawlID())
	require.Zero(t, e.Len())
}

func ids(rows []crawl.RecordSummary) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
