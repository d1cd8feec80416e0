package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vnrates/ratecrawl/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered crawl sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatSources(os.Stdout, source.NewRegistry(cfg).All())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// formatSources writes a tabular list of sources to w.
func formatSources(out io.Writer, sources []source.Source) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTABLE")
	_, _ = fmt.Fprintln(w, "----\t-----")
	for _, s := range sources {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", s.Name(), s.Table())
	}
	_ = w.Flush()
}
