// Package app builds the long-lived console services and routes their
// messages, acting as the dependency injection container for both the
// interactive console and the one-shot CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/clock/system"
	"github.com/JakeFAU/crawl-console/internal/config"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/dispatcher"
	"github.com/JakeFAU/crawl-console/internal/draft"
	"github.com/JakeFAU/crawl-console/internal/gateway"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/notify"
	"github.com/JakeFAU/crawl-console/internal/results"
	"github.com/JakeFAU/crawl-console/internal/roster"
)

// App holds the components shared by every console surface. All of them are
// driven from one goroutine: the bubbletea loop, or Do for CLI commands.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Gateway    crawl.Gateway
	Notices    *notify.Queue
	Drafts     *draft.Store
	Roster     *roster.Synchronizer
	Dispatcher *dispatcher.Dispatcher
	Results    *results.Explorer

	metricsSrv *http.Server
}

// New wires the components against the configured crawl service.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.Service.BaseURL,
		Timeout: cfg.ServiceTimeout(),
	}, nil, logger.Named("gateway"))
	if err != nil {
		return nil, fmt.Errorf("init gateway: %w", err)
	}
	return NewWithGateway(cfg, gw, logger), nil
}

// NewWithGateway wires the components against gw.
func NewWithGateway(cfg config.Config, gw crawl.Gateway, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	notices := notify.NewQueue(system.New(), cfg.NoticeTTL(), logger.Named("notify"))
	drafts := draft.New(logger.Named("draft"))
	rost := roster.New(gw, notices, roster.Config{
		Interval:           cfg.PollInterval(),
		NotifyEveryFailure: cfg.Roster.NotifyEveryFailure,
	}, logger.Named("roster"))
	return &App{
		Config:  cfg,
		Logger:  logger,
		Gateway: gw,
		Notices: notices,
		Drafts:  drafts,
		Roster:  rost,
		Dispatcher: dispatcher.New(gw, drafts, rost, notices, dispatcher.Config{
			ExportDir: cfg.Export.Dir,
		}, logger.Named("dispatcher")),
		Results: results.New(gw, notices, results.Config{
			SummaryCount: cfg.Results.SummaryCount,
			PageSize:     cfg.Results.PageSize,
		}, logger.Named("results")),
	}
}

// Apply routes msg to the component that owns it and returns its follow-up.
func (a *App) Apply(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case roster.FetchedMsg, roster.TickMsg:
		return a.Roster.Update(msg)
	case dispatcher.CompletedMsg:
		return a.Dispatcher.Update(msg)
	case results.SummariesMsg, results.RecordMsg:
		return a.Results.Update(msg)
	}
	return nil
}

// Do runs cmd and its follow-ups to completion on the calling goroutine.
// The poll timer scheduled by a roster fetch is not followed, so Do returns
// once the one-shot work is applied.
func (a *App) Do(cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		next := a.Apply(msg)
		if fetched, ok := msg.(roster.FetchedMsg); ok && fetched.Scheduled {
			return
		}
		cmd = next
	}
}

// Sync activates the roster and waits for its first fetch.
func (a *App) Sync() error {
	a.Do(a.Roster.Activate())
	if !a.Roster.Loaded() {
		return errors.New("crawl list could not be loaded")
	}
	return nil
}

// Resolve finds a crawl by id or, failing that, by case-insensitive name.
func (a *App) Resolve(ref string) (crawl.Info, error) {
	if info, ok := a.Roster.Find(ref); ok {
		return info, nil
	}
	if info, ok := a.Roster.FindByName(ref); ok {
		return info, nil
	}
	return crawl.Info{}, fmt.Errorf("crawl %q: %w", ref, crawl.ErrNotFound)
}

// ServeMetrics starts the Prometheus listener when metrics.addr is set.
func (a *App) ServeMetrics() {
	if a.Config.Metrics.Addr == "" {
		return
	}
	a.metricsSrv = &http.Server{
		Addr:              a.Config.Metrics.Addr,
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.Logger.Info("metrics listener started", zap.String("addr", a.Config.Metrics.Addr))
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics listener failed", zap.Error(err))
		}
	}()
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Close stops polling and the metrics listener, then flushes the logger.
func (a *App) Close(ctx context.Context) {
	a.Roster.Deactivate()
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.Logger.Warn("metrics listener shutdown failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
