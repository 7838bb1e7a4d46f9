package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/console"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Starts the interactive console",
		Long: `Opens the full-screen console: the live crawl list, the draft editor and
the results explorer. Logs go to logging.file, or to crawlconsole.log in the
temp directory when unset.`,
		Args: cobra.NoArgs,
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(e)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Close(ctx)
	}()
	a.ServeMetrics()

	model := console.New(console.Deps{
		Notices:    a.Notices,
		Drafts:     a.Drafts,
		Roster:     a.Roster,
		Dispatcher: a.Dispatcher,
		Results:    a.Results,
		Logger:     e.logger.Named("console"),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
