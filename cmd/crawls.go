package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/app"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/dispatcher"
	"github.com/JakeFAU/crawl-console/internal/notify"
)

// withApp builds the console services, loads the crawl list and runs fn.
// configure may adjust the configuration first.
func withApp(cmd *cobra.Command, configure func(*env), fn func(*app.App) error) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	if configure != nil {
		configure(&e)
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
	if err := a.Sync(); err != nil {
		return report(cmd.OutOrStdout(), a.Notices, err)
	}
	return fn(a)
}

// report prints the queued notices and fails when any is an error.
func report(w io.Writer, notices *notify.Queue, cause error) error {
	failed := cause
	for _, n := range notices.Active() {
		fmt.Fprintf(w, "%s: %s\n", n.Level, n.Message)
		if n.Level == notify.LevelError && failed == nil {
			failed = errors.New(n.Message)
		}
	}
	return failed
}

func failed(notices *notify.Queue) bool {
	for _, n := range notices.Active() {
		if n.Level == notify.LevelError {
			return true
		}
	}
	return false
}

// crawlCommand runs one dispatcher command against a crawl named by id or name.
func crawlCommand(cmd *cobra.Command, ref string, configure func(*env), issue func(*app.App, string) tea.Cmd) error {
	return withApp(cmd, configure, func(a *app.App) error {
		info, err := a.Resolve(ref)
		if err != nil {
			return err
		}
		a.Do(issue(a, info.ID()))
		return report(cmd.OutOrStdout(), a.Notices, nil)
	})
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <crawl>",
		Short: "Starts a crawl by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return crawlCommand(cmd, args[0], nil, func(a *app.App, id string) tea.Cmd {
				return a.Dispatcher.Start(id)
			})
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <crawl>",
		Short: "Stops a crawl by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return crawlCommand(cmd, args[0], nil, func(a *app.App, id string) tea.Cmd {
				return a.Dispatcher.Stop(id)
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <crawl>",
		Short: "Deletes a crawl after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := dispatcher.ConfirmFunc(dispatcher.Confirmed)
			if !yes {
				confirm = promptConfirm(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return crawlCommand(cmd, args[0], nil, func(a *app.App, id string) tea.Cmd {
				return a.Dispatcher.Delete(id, confirm)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// promptConfirm asks on out and reads a y/yes answer from in.
func promptConfirm(in io.Reader, out io.Writer) dispatcher.ConfirmFunc {
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		fmt.Fprintln(out, "Aborted.")
		return false
	}
}

func newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <crawl>",
		Short: "Downloads a crawl's specification file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configure := func(e *env) {
				if dir != "" {
					e.cfg.Export.Dir = dir
				}
			}
			return crawlCommand(cmd, args[0], configure, func(a *app.App, id string) tea.Cmd {
				return a.Dispatcher.Export(id)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write into (default export.dir)")
	return cmd
}

func newCreateCmd() *cobra.Command {
	var (
		file     string
		name     string
		searches []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submits a crawl specification from a JSON or YAML file",
		Long: `Loads a crawl specification, optionally renames it and collects extra
seed URLs from search engines, then submits it. Searches take the form
engine:count:query, for example --search "Bing:20:price index".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var spec crawl.Spec
			if err := decodeFile(file, &spec); err != nil {
				return err
			}
			if name != "" {
				spec.Name = name
			}
			queries, err := parseSearches(searches)
			if err != nil {
				return err
			}
			return withApp(cmd, nil, func(a *app.App) error {
				a.Drafts.Replace(spec)
				if len(queries) > 0 {
					a.Do(a.Dispatcher.CollectSeeds(queries...))
					if failed(a.Notices) {
						return report(cmd.OutOrStdout(), a.Notices, errors.New("seed collection failed"))
					}
				}
				a.Do(a.Dispatcher.Create())
				return report(cmd.OutOrStdout(), a.Notices, nil)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "specification file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&name, "name", "", "override the specification name")
	cmd.Flags().StringArrayVar(&searches, "search", nil, "collect seeds with engine:count:query (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseSearches(raw []string) ([]crawl.SeedQuery, error) {
	queries := make([]crawl.SeedQuery, 0, len(raw))
	for _, s := range raw {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("search %q: want engine:count:query", s)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("search %q: bad count: %w", s, err)
		}
		queries = append(queries, crawl.SeedQuery{
			Engine:      crawl.SearchEngine(parts[0]),
			Query:       parts[2],
			ResultCount: count,
		})
	}
	return queries, nil
}
