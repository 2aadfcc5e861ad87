package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bisegni/jsoncsv/pkg/config"
	"github.com/bisegni/jsoncsv/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Export JSON files as they land in a directory",
	Long: `Watch a directory and export every *.json file to <out>/<name>.csv once it
stops changing for the settle delay. Exports run one at a time.

Examples:
  jsoncsv watch --dir ./incoming
  jsoncsv watch --dir ./incoming --out ./csv --settle 2s --rfc4180`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	w := &cfg.Watch
	watchCmd.Flags().StringVar(&w.Dir, "dir", "", "Directory to watch")
	watchCmd.Flags().StringVarP(&w.Out, "out", "o", "", "Directory for CSV files (default: --dir)")
	watchCmd.Flags().DurationVar(&w.Settle, "settle", w.Settle, "Quiet period before a changed file is exported")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := config.Validate(&cfg.Watch); err != nil {
		return err
	}
	e, err := cfg.Exporter()
	if err != nil {
		return err
	}

	w, err := watch.New(e, cfg.Watch.Dir, cfg.Watch.Out, cfg.Watch.Settle)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}
