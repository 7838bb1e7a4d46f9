package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/api"
	"github.com/JakeFAU/crawl-console/internal/clock/system"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/id/uuid"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

// stubFixture seeds the stand-in service with crawls and their records.
type stubFixture struct {
	Crawls []struct {
		Spec    crawl.Spec     `json:"crawl_spec"`
		Running bool           `json:"running"`
		Records []crawl.Record `json:"records"`
	} `json:"crawls"`
}

func newStubCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serves an in-memory stand-in for the crawl service",
		Long: `Runs the crawl service REST boundary in memory so the console can be
used without a real deployment. stub.records names an optional JSON or YAML
fixture of crawls and records to preload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			if port > 0 {
				e.cfg.Stub.Port = port
			}
			return runStub(cmd.Context(), e)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default stub.port)")
	return cmd
}

func runStub(ctx context.Context, e env) error {
	logger := e.logger.Named("stub")
	store := memory.NewCrawlStore()
	clock := system.New()
	idGen := uuid.New()
	if path := e.cfg.Stub.Records; path != "" {
		n, err := loadFixture(ctx, path, store, idGen, clock)
		if err != nil {
			return err
		}
		logger.Info("fixture loaded", zap.String("path", path), zap.Int("crawls", n))
	}

	server := api.NewServer(store, idGen, clock, e.cfg.Stub.BasePath, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", e.cfg.Stub.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stand-in service started",
			zap.Int("port", e.cfg.Stub.Port), zap.String("base_path", e.cfg.Stub.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func loadFixture(
	ctx context.Context,
	path string,
	store *memory.CrawlStore,
	idGen crawl.IDGenerator,
	clock crawl.Clock,
) (int, error) {
	var fx stubFixture
	if err := decodeFile(path, &fx); err != nil {
		return 0, err
	}
	for _, c := range fx.Crawls {
		id, err := idGen.NewID()
		if err != nil {
			return 0, err
		}
		if _, err := store.CreateCrawl(ctx, id, c.Spec, clock.Now()); err != nil {
			return 0, fmt.Errorf("fixture crawl %q: %w", c.Spec.Name, err)
		}
		if c.Running {
			if _, err := store.Start(ctx, id, clock.Now()); err != nil {
				return 0, fmt.Errorf("fixture crawl %q: %w", c.Spec.Name, err)
			}
		}
		if err := store.PutRecords(ctx, id, c.Records...); err != nil {
			return 0, fmt.Errorf("fixture crawl %q: %w", c.Spec.Name, err)
		}
	}
	return len(fx.Crawls), nil
}
