package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/app"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/tableview"
)

func newListCmd() *cobra.Command {
	var sortKey string
	var descending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists crawls and their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(a *app.App) error {
				if sortKey != "" {
					if !a.Roster.SortBy(sortKey) {
						return fmt.Errorf("unknown sort key %q", sortKey)
					}
					if descending != (a.Roster.SortConfig().Direction == tableview.Descending) {
						a.Roster.SortBy(sortKey)
					}
				}
				renderRoster(cmd.OutOrStdout(), a.Roster.Rows())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort by name, state, created, crawled, processed, errors or frontier")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort descending")
	return cmd
}

func renderRoster(w io.Writer, infos []crawl.Info) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "State", "Created", "Crawled", "Processed", "Errors", "Frontier"})
	for _, info := range infos {
		created := "-"
		if ts := info.Status.CreatedAt(); !ts.IsZero() {
			created = ts.UTC().Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			info.ID(),
			info.Spec.Name,
			info.Status.CurrentState,
			created,
			info.Status.CrawledCount,
			info.Status.ProcessedCount,
			info.Status.ErrorCount,
			info.Status.FrontierSize,
		})
	}
	t.AppendFooter(table.Row{"", "Total", strconv.Itoa(len(infos))})
	t.Render()
}
