// Package cmd defines the crawlconsole command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/app"
	"github.com/JakeFAU/crawl-console/internal/config"
	"github.com/JakeFAU/crawl-console/internal/logging"
)

var cfgFile string

// envKeyType is the key for storing the loaded environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// env is the configuration and logger every subcommand starts from.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the console factory. It's a variable so tests can swap the
// wiring.
var newApp = func(e env) (*app.App, error) {
	return app.New(e.cfg, e.logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlconsole",
		Short: "Operator console for a managed crawling service.",
		Long: `crawlconsole assembles crawl configurations, submits them to the crawl
service, monitors running crawls and browses their ranked results. Run it
without arguments, or with "tui", for the interactive console.`,
		SilenceUsage: true,

		// Loads config and builds the logger before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts := logging.Options{Development: cfg.Logging.Development, File: cfg.Logging.File}
			if interactive(cmd) && opts.File == "" {
				opts.File = filepath.Join(os.TempDir(), "crawlconsole.log")
			}
			logger, err := logging.New(opts)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(env); ok {
				_ = e.logger.Sync()
			}
		},

		RunE: runTUI,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(
		newTUICmd(),
		newListCmd(),
		newResultsCmd(),
		newAnalyzersCmd(),
		newStartCmd(),
		newStopCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newCreateCmd(),
		newStubCmd(),
	)
	return cmd
}

func interactive(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

func resolveEnv(ctx context.Context) (env, error) {
	e, ok := ctx.Value(envKey).(env)
	if !ok {
		return env{}, errors.New("configuration was not loaded")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
