// Package gateway is the typed HTTP client for the remote crawl service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/metrics"
)

// DefaultTimeout bounds every call when Config.Timeout is unset.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Operation names used in errors, logs, and metrics.
const (
	OpList        = "list_crawls"
	OpCreate      = "create_crawl"
	OpStart       = "start_crawl"
	OpStop        = "stop_crawl"
	OpDelete      = "delete_crawl"
	OpExport      = "export_spec"
	OpSeeds       = "collect_seeds"
	OpSummaries   = "record_summaries"
	OpRecords     = "records"
	OpAnalyzers   = "analyzer_catalog"
	requestHeader = "X-Request-ID"
)

// Config controls the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements crawl.Gateway over HTTP/JSON.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

var _ crawl.Gateway = (*Client)(nil)

// New builds a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway base url %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout == 0 {
		cp := *httpClient
		cp.Timeout = timeout
		httpClient = &cp
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Client{base: base, http: httpClient, logger: logger}, nil
}

// StatusError is returned for non-success responses.
type StatusError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Detail)
}

// Is lets callers match 404 responses with crawl.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == crawl.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ListCrawls fetches every job with its spec and status.
func (c *Client) ListCrawls(ctx context.Context) ([]crawl.Info, error) {
	var out struct {
		Crawls []crawl.Info `json:"crawls"`
	}
	if err := c.doJSON(ctx, OpList, http.MethodGet, "crawls", nil, &out); err != nil {
		return nil, err
	}
	return out.Crawls, nil
}

// CreateCrawl submits a new job.
func (c *Client) CreateCrawl(ctx context.Context, spec crawl.Spec) (crawl.CreateResult, error) {
	req := struct {
		CrawlSpec crawl.Spec `json:"crawl_spec"`
	}{CrawlSpec: spec}
	var out crawl.CreateResult
	if err := c.doJSON(ctx, OpCreate, http.MethodPost, "crawls", req, &out); err != nil {
		return crawl.CreateResult{}, err
	}
	return out, nil
}

// StartCrawl starts a created or stopped job.
func (c *Client) StartCrawl(ctx context.Context, crawlID string) (crawl.TransitionResult, error) {
	return c.transition(ctx, OpStart, crawlID, "start")
}

// StopCrawl stops a running job.
func (c *Client) StopCrawl(ctx context.Context, crawlID string) (crawl.TransitionResult, error) {
	return c.transition(ctx, OpStop, crawlID, "stop")
}

func (c *Client) transition(ctx context.Context, op, crawlID, verb string) (crawl.TransitionResult, error) {
	var out crawl.TransitionResult
	if err := c.doJSON(ctx, op, http.MethodPost, join("crawls", crawlID, verb), nil, &out); err != nil {
		return crawl.TransitionResult{}, err
	}
	return out, nil
}

// DeleteCrawl removes a job.
func (c *Client) DeleteCrawl(ctx context.Context, crawlID string) (crawl.DeleteResult, error) {
	var out crawl.DeleteResult
	if err := c.doJSON(ctx, OpDelete, http.MethodDelete, join("crawls", crawlID), nil, &out); err != nil {
		return crawl.DeleteResult{}, err
	}
	return out, nil
}

// ExportSpec downloads a job's specification file.
func (c *Client) ExportSpec(ctx context.Context, crawlID string) (crawl.Export, error) {
	var export crawl.Export
	err := c.do(ctx, OpExport, http.MethodGet, join("crawls", crawlID, "spec", "download"), nil, func(resp *http.Response) error {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read export body: %w", err)
		}
		export = crawl.Export{
			Filename:    ExportFilename(resp.Header.Get("Content-Disposition"), crawlID),
			ContentType: resp.Header.Get("Content-Type"),
			Data:        data,
		}
		return nil
	})
	if err != nil {
		return crawl.Export{}, err
	}
	return export, nil
}

// CollectSeeds asks the service to scrape seed URLs from search engines.
func (c *Client) CollectSeeds(ctx context.Context, queries ...crawl.SeedQuery) ([]string, error) {
	req := struct {
		SearchEngineSeeds []crawl.SeedQuery `json:"search_engine_seeds"`
	}{SearchEngineSeeds: queries}
	var out struct {
		SeedURLs []string `json:"seed_urls"`
	}
	if err := c.doJSON(ctx, OpSeeds, http.MethodPost, join("seeds", "collect"), req, &out); err != nil {
		return nil, err
	}
	return out.SeedURLs, nil
}

// RecordSummaries fetches the top count summaries ranked by scoreType.
func (c *Client) RecordSummaries(
	ctx context.Context,
	crawlID string,
	count int,
	scoreType string,
) ([]crawl.RecordSummary, error) {
	req := struct {
		RecordCount int    `json:"record_count"`
		ScoreType   string `json:"score_type"`
	}{RecordCount: count, ScoreType: scoreType}
	var out struct {
		Records []crawl.RecordSummary `json:"records"`
	}
	if err := c.doJSON(ctx, OpSummaries, http.MethodPost, join("results", crawlID, "record_summaries"), req, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// Records fetches full records by summary id.
func (c *Client) Records(ctx context.Context, crawlID string, recordIDs []string) ([]crawl.Record, error) {
	req := struct {
		RecordIDs []string `json:"record_ids"`
	}{RecordIDs: recordIDs}
	var out struct {
		Records []crawl.Record `json:"records"`
	}
	if err := c.doJSON(ctx, OpRecords, http.MethodPost, join("results", crawlID, "records"), req, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// AnalyzerCatalog lists the analyzers the service supports.
func (c *Client) AnalyzerCatalog(ctx context.Context) ([]crawl.AnalyzerInfo, error) {
	var out struct {
		Analyzers []crawl.AnalyzerInfo `json:"analyzers"`
	}
	if err := c.doJSON(ctx, OpAnalyzers, http.MethodGet, join("analyzers", "info"), nil, &out); err != nil {
		return nil, err
	}
	return out.Analyzers, nil
}

// ExportFilename derives a download filename from a Content-Disposition
// header, falling back to crawl_spec_<id>.json.
func ExportFilename(disposition, crawlID string) string {
	fallback := fmt.Sprintf("crawl_spec_%s.json", crawlID)
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	name := filepath.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return fallback
	}
	return name
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	return c.do(ctx, op, method, path, body, func(resp *http.Response) error {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		return nil
	})
}

func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	body any,
	handle func(*http.Response) error,
) (err error) {
	start := time.Now()
	reqID := uuid.NewString()
	defer func() {
		elapsed := time.Since(start)
		metrics.ObserveGatewayCall(op, err, elapsed)
		if err != nil {
			c.logger.Warn("gateway call failed",
				zap.String("operation", op),
				zap.String("request_id", reqID),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			return
		}
		c.logger.Debug("gateway call completed",
			zap.String("operation", op),
			zap.String("request_id", reqID),
			zap.Duration("elapsed", elapsed),
		)
	}()

	var reader io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return fmt.Errorf("%s: encode request: %w", op, merr)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+"/"+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	return handle(resp)
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	detail := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Detail != nil:
			detail = fmt.Sprint(payload.Detail)
		case payload.Error != nil:
			detail = fmt.Sprint(payload.Error)
		}
	}
	return &StatusError{Operation: op, StatusCode: resp.StatusCode, Detail: detail}
}

func join(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "/")
}
