package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/crawl"
)

func newAnalyzersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyzers",
		Short: "Lists the analyzers the crawl service supports and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			infos, err := a.Gateway.AnalyzerCatalog(cmd.Context())
			if err != nil {
				return fmt.Errorf("analyzer catalog: %w", err)
			}
			renderCatalog(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

func renderCatalog(w io.Writer, infos []crawl.AnalyzerInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Analyzer", "Field", "Type", "Required", "Default", "Description"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Name, "", "", "", "", info.Description})
		for _, f := range info.SpecFields {
			def := ""
			if f.Default != nil {
				def = *f.Default
			}
			t.AppendRow(table.Row{"", f.Name, f.Type, f.Required, def, f.Description})
		}
	}
	t.Render()
}
