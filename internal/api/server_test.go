package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

const specBody = `{"crawl_spec":{"name":"Alpha","seeds":["https://example.com"],` +
	`"analyzer_specs":[{"name":"KeywordScoreAnalyzer","composite_weight":1,"keywords":[]}],"worker_count":2}}`

func TestServer_CreateCrawl_Succeeds(t *testing.T) {
	t.Parallel()

	server, store := newTestServer("crawl-1")
	rec := serve(server, http.MethodPost, "/api/v1/crawls", specBody)

	require.Equal(t, http.StatusOK, rec.Code)
	var out crawl.CreateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "crawl-1", out.CrawlID)
	require.Equal(t, crawl.StateCreated, out.RunState.State)

	info, err := store.Get(t.Context(), "crawl-1")
	require.NoError(t, err)
	require.Equal(t, "Alpha", info.Spec.Name)
}

func TestServer_CreateCrawl_InvalidJSON(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec := serve(server, http.MethodPost, "/api/v1/crawls", "{")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"detail"`)
}

func TestServer_CreateCrawl_DuplicateName(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer("crawl-1", "crawl-2")
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls", specBody).Code)
	rec := serve(server, http.MethodPost, "/api/v1/crawls", specBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CreateCrawl_MissingSeeds(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec := serve(server, http.MethodPost, "/api/v1/crawls", `{"crawl_spec":{"name":"x","worker_count":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "seed")
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer("crawl-1")
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls", specBody).Code)

	require.Equal(t, http.StatusBadRequest, serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/stop", "").Code)
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/start", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/start", "").Code)
	require.Equal(t, http.StatusBadRequest, serve(server, http.MethodDelete, "/api/v1/crawls/crawl-1", "").Code)

	rec := serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stopped crawl.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stopped))
	require.Equal(t, crawl.StateStopped, stopped.RunState.State)

	rec = serve(server, http.MethodGet, "/api/v1/crawls", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Crawls []crawl.Info `json:"crawls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Crawls, 1)
	require.Equal(t, "crawl-1", listed.Crawls[0].ID())
	require.Len(t, listed.Crawls[0].Status.StateHistory, 3)

	rec = serve(server, http.MethodDelete, "/api/v1/crawls/crawl-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted crawl.DeleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	require.Equal(t, "crawl-1", deleted.CrawlID)
	require.NotEmpty(t, deleted.DeletedTime)

	require.Equal(t, http.StatusNotFound, serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/start", "").Code)
}

func TestServer_DownloadSpec_SetsDisposition(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer("crawl-1")
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls", specBody).Code)

	rec := serve(server, http.MethodGet, "/api/v1/crawls/crawl-1/spec/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "attachment; filename=crawl_spec_crawl-1.json", rec.Header().Get("Content-Disposition"))
	var spec crawl.Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	require.Equal(t, "Alpha", spec.Name)

	require.Equal(t, http.StatusNotFound, serve(server, http.MethodGet, "/api/v1/crawls/nope/spec/download", "").Code)
}

func TestServer_Results(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer("crawl-1")
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls", specBody).Code)

	ingest := `{"records":[` +
		`{"url":"https://a","composite_score":0.1,"scores":{"KeywordScoreAnalyzer":0.1}},` +
		`{"url":"https://b","composite_score":0.9,"scores":{"KeywordScoreAnalyzer":0.9}}]}`
	require.Equal(t, http.StatusOK, serve(server, http.MethodPost, "/api/v1/crawls/crawl-1/records", ingest).Code)

	rec := serve(server, http.MethodPost, "/api/v1/results/crawl-1/record_summaries",
		`{"record_count":10,"score_type":"composite"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries struct {
		Records []crawl.RecordSummary `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries.Records, 2)
	require.Equal(t, "https://b", summaries.Records[0].URL)

	rec = serve(server, http.MethodPost, "/api/v1/results/crawl-1/record_summaries",
		`{"record_count":10,"score_type":"DhLlmScoreAnalyzer"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := fmt.Sprintf(`{"record_ids":[%q]}`, summaries.Records[1].ID)
	rec = serve(server, http.MethodPost, "/api/v1/results/crawl-1/records", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "https://a")

	rec = serve(server, http.MethodPost, "/api/v1/results/crawl-1/records", `{"record_ids":["missing"]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CollectSeeds(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec := serve(server, http.MethodPost, "/api/v1/seeds/collect",
		`{"search_engine_seeds":[{"search_engine":"Bing","query":"go news","result_count":2},`+
			`{"search_engine":"Bing","query":"go news","result_count":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		SeedURLs []string `json:"seed_urls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, []string{"https://bing.example/go%20news/1", "https://bing.example/go%20news/2"}, out.SeedURLs)

	rec = serve(server, http.MethodPost, "/api/v1/seeds/collect",
		`{"search_engine_seeds":[{"search_engine":"Yahoo","query":"x","result_count":2}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_AnalyzerInfo(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec := serve(server, http.MethodGet, "/api/v1/analyzers/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Analyzers []crawl.AnalyzerInfo `json:"analyzers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Analyzers, len(crawl.AnalyzerNames))
	require.Equal(t, crawl.KeywordAnalyzer, out.Analyzers[0].Name)
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec := serve(server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddlewareEchoesHeader(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

// --- helpers/fakes ---

type fakeIDGen struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeIDGen) NewID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return "id-default", nil
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}
