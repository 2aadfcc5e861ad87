package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var headersCount bool

var headersCmd = &cobra.Command{
	Use:   "headers [file|-]",
	Short: "Print the reconciled CSV header",
	Long: `Run only the first pass and print the header an export would write.

Examples:
  jsoncsv headers data.json
  jsoncsv headers data.json --columns 'id, name AS player'
  cat data.json | jsoncsv headers --count`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHeaders,
}

func init() {
	headersCmd.Flags().BoolVar(&headersCount, "count", false, "Also print the number of objects")
}

func runHeaders(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := cfg.Exporter()
	if err != nil {
		return err
	}
	stream, name := inputStream(args)

	set, count, err := e.Headers(ctx, stream)
	if err != nil {
		return fmt.Errorf("headers %s: %w", name, err)
	}

	_, labels := e.Columns.Apply(set)
	w := cmd.OutOrStdout()
	for _, l := range labels {
		fmt.Fprintln(w, l)
	}
	if headersCount {
		fmt.Fprintf(w, "\n%d object(s)\n", count)
	}
	return nil
}
