package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/app"
	"github.com/JakeFAU/crawl-console/internal/crawl"
	"github.com/JakeFAU/crawl-console/internal/results"
)

func newResultsCmd() *cobra.Command {
	var (
		scoreType string
		count     int
		recordID  string
	)
	cmd := &cobra.Command{
		Use:   "results <crawl>",
		Short: "Shows a crawl's top-ranked records, or one record in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(a *app.App) error {
				info, err := a.Resolve(args[0])
				if err != nil {
					return err
				}
				a.Do(a.Results.LoadSummaries(info.ID(), count, scoreType))
				if a.Results.CrawlID() != info.ID() {
					return report(cmd.OutOrStdout(), a.Notices, nil)
				}
				if recordID == "" {
					renderSummaries(cmd.OutOrStdout(), a.Results.Rows())
					return nil
				}
				a.Do(a.Results.SelectRecord(recordID))
				if _, _, ok := a.Results.Detail(); !ok {
					return report(cmd.OutOrStdout(), a.Notices, nil)
				}
				return renderRecord(cmd.OutOrStdout(), a.Results)
			})
		},
	}
	cmd.Flags().StringVar(&scoreType, "score", crawl.CompositeScore, "rank by composite or an analyzer name")
	cmd.Flags().IntVar(&count, "count", 0, "number of records (default results.summary_count)")
	cmd.Flags().StringVar(&recordID, "record", "", "print every field of one record")
	return cmd
}

func renderSummaries(w io.Writer, rows []crawl.RecordSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Score", "URL", "Record ID"})
	for i, r := range rows {
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%.3f", r.Score), r.URL, r.ID})
	}
	t.Render()
}

func renderRecord(w io.Writer, e *results.Explorer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, name := range e.FieldNames() {
		text, err := e.FieldText(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, text})
	}
	t.Render()
	return nil
}
