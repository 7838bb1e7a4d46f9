package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

// DefaultBasePath is where the crawl routes are mounted.
const DefaultBasePath = "/api/v1"

// Server wires HTTP handlers to the crawl store.
type Server struct {
	router chi.Router
	store  *memory.CrawlStore
	idGen  crawl.IDGenerator
	clock  crawl.Clock
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes mounted under
// basePath (DefaultBasePath when empty).
func NewServer(
	store *memory.CrawlStore,
	idGen crawl.IDGenerator,
	clock crawl.Clock,
	basePath string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if basePath == "" {
		basePath = DefaultBasePath
	}
	s := &Server{
		store:  store,
		idGen:  idGen,
		clock:  clock,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route(basePath, func(r chi.Router) {
		r.Route("/crawls", func(r chi.Router) {
			r.Get("/", s.listCrawls)
			r.Post("/", s.createCrawl)
			r.Route("/{crawl_id}", func(r chi.Router) {
				r.Get("/", s.getCrawl)
				r.Delete("/", s.deleteCrawl)
				r.Post("/start", s.startCrawl)
				r.Post("/stop", s.stopCrawl)
				r.Get("/spec/download", s.downloadSpec)
				r.Post("/records", s.ingestRecords)
			})
		})
		r.Post("/seeds/collect", s.collectSeeds)
		r.Get("/analyzers/info", s.analyzerInfo)
		r.Route("/results/{crawl_id}", func(r chi.Router) {
			r.Post("/record_summaries", s.recordSummaries)
			r.Post("/records", s.records)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listCrawls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"crawls": s.store.List(r.Context())})
}

func (s *Server) getCrawl(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Get(r.Context(), chi.URLParam(r, "crawl_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"info": info})
}

func (s *Server) createCrawl(w http.ResponseWriter, r *http.Request) {
	var req createCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return
	}
	if err := req.CrawlSpec.Validate(nil); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	crawlID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate crawl id: %v", err))
		return
	}
	state, err := s.store.CreateCrawl(r.Context(), crawlID, req.CrawlSpec, s.clock.Now())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("crawl created", zap.String("crawl_id", crawlID), zap.String("name", req.CrawlSpec.Name))
	writeJSON(w, http.StatusOK, crawl.CreateResult{CrawlID: crawlID, RunState: state})
}

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	crawlID := chi.URLParam(r, "crawl_id")
	state, err := s.store.Start(r.Context(), crawlID, s.clock.Now())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crawl.TransitionResult{CrawlID: crawlID, RunState: state})
}

func (s *Server) stopCrawl(w http.ResponseWriter, r *http.Request) {
	crawlID := chi.URLParam(r, "crawl_id")
	state, err := s.store.Stop(r.Context(), crawlID, s.clock.Now())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crawl.TransitionResult{CrawlID: crawlID, RunState: state})
}

func (s *Server) deleteCrawl(w http.ResponseWriter, r *http.Request) {
	crawlID := chi.URLParam(r, "crawl_id")
	if err := s.store.Delete(r.Context(), crawlID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crawl.DeleteResult{
		CrawlID:     crawlID,
		DeletedTime: s.clock.Now().UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) downloadSpec(w http.ResponseWriter, r *http.Request) {
	crawlID := chi.URLParam(r, "crawl_id")
	info, err := s.store.Get(r.Context(), crawlID)
	if err != nil {
		if errors.Is(err, crawl.ErrNotFound) {
			writeError(w, http.StatusNotFound, "The requested crawl does not exist")
			return
		}
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=crawl_spec_%s.json", crawlID))
	writeJSON(w, http.StatusOK, info.Spec)
}

func (s *Server) ingestRecords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []crawl.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return
	}
	crawlID := chi.URLParam(r, "crawl_id")
	if err := s.store.PutRecords(r.Context(), crawlID, req.Records...); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crawl_id": crawlID, "ingested": len(req.Records)})
}

func (s *Server) collectSeeds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SearchEngineSeeds []crawl.SeedQuery `json:"search_engine_seeds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return
	}
	seen := make(map[string]struct{})
	urls := make([]string, 0)
	for _, q := range req.SearchEngineSeeds {
		if err := q.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		for _, u := range placeholderSeeds(q) {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"seed_urls": urls})
}

// placeholderSeeds stands in for search engine scraping with stable,
// query-derived URLs.
func placeholderSeeds(q crawl.SeedQuery) []string {
	host := strings.ToLower(string(q.Engine)) + ".example"
	query := url.PathEscape(strings.TrimSpace(q.Query))
	out := make([]string, q.ResultCount)
	for i := range out {
		out[i] = fmt.Sprintf("https://%s/%s/%d", host, query, i+1)
	}
	return out
}

func (s *Server) analyzerInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"analyzers": analyzerCatalog})
}

func (s *Server) recordSummaries(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordCount int    `json:"record_count"`
		ScoreType   string `json:"score_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return
	}
	summaries, err := s.store.Summaries(r.Context(), chi.URLParam(r, "crawl_id"), req.RecordCount, req.ScoreType)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": summaries})
}

func (s *Server) records(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordIDs []string `json:"record_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON: "+err.Error())
		return
	}
	crawlID := chi.URLParam(r, "crawl_id")
	records, err := s.store.Records(r.Context(), crawlID, req.RecordIDs)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No records found for the provided record IDs in crawl %s", crawlID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, crawl.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, memory.ErrConflict),
		errors.Is(err, memory.ErrInvalidTransition),
		errors.Is(err, memory.ErrInvalidScoreType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
	}
}

type createCrawlRequest struct {
	CrawlSpec crawl.Spec `json:"crawl_spec"`
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := metrics.NewStatusRecorder(w)
			next.ServeHTTP(ww, r)
			reqID, _ := r.Context().Value(requestIDKey{}).(string)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", reqID),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
