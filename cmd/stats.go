package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bisegni/jsoncsv/pkg/parser"
)

var statsCmd = &cobra.Command{
	Use:   "stats [file|-]",
	Short: "Show statistics about a JSON array",
	Long: `Display statistics about a JSON array of objects: record count and, per
field, how many objects carry it and with which types.

Fields are listed in the order they will appear in the CSV header.

Examples:
  jsoncsv stats data.json
  cat data.json | jsoncsv stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stream, name := inputStream(args)

	rc, err := stream.Open(ctx)
	if err != nil {
		return err
	}
	it := parser.NewObjectIterator(rc)
	defer it.Close()

	summary, err := parser.Summarize(it)
	if err != nil {
		return fmt.Errorf("stats %s: %w", name, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File: %s\n", name)
	fmt.Fprintf(w, "Total records: %d\n", summary.Records)
	fmt.Fprintf(w, "Columns: %d\n", len(summary.Fields))

	if len(summary.Fields) > 0 {
		fmt.Fprintf(w, "\nFields:\n")
		for _, f := range summary.Fields {
			fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", f.Name, f.Present, percent(f.Present, summary.Records))
			types := make([]string, 0, len(f.Types))
			for typ := range f.Types {
				types = append(types, typ)
			}
			sort.Strings(types)
			for _, typ := range types {
				fmt.Fprintf(w, "    %s: %d\n", typ, f.Types[typ])
			}
		}
	}
	return nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
