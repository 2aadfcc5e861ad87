package cmd

import (
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/config"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "jsoncsv",
	Short: "Export JSON arrays of objects as CSV",
	Long: `jsoncsv converts a JSON array of objects into CSV.

Objects do not need to share their fields: a first pass over the input
collects every field name in first-seen order while copying the input to a
cache file, a second pass reads the cache back and writes one row per object.
Missing fields become empty cells.

Supports:
  - File paths: jsoncsv export data.json
  - Stdin: cat data.json | jsoncsv export   (or use "-" as filename)

Examples:
  jsoncsv export data.json --out data.csv
  jsoncsv export data.json --columns 'id, name AS player'
  jsoncsv headers data.json
  jsoncsv players players.json
  jsoncsv serve --stream complex=complex.json
  jsoncsv watch --dir ./incoming --out ./csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Validate(cfg)
	},
}

func Execute() error {
	defer klog.Flush()
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.CacheDir, "cache-dir", "", "Directory for per-export cache files (default: system temp dir)")
	pf.StringVar(&cfg.CacheFile, "cache-file", "", "Single well-known cache file shared by all exports")
	pf.BoolVar(&cfg.KeepCache, "keep-cache", false, "Keep the cache file after a successful export")
	pf.BoolVar(&cfg.RFC4180, "rfc4180", false, "Quote cells the RFC 4180 way instead of joining them as-is")
	pf.StringVarP(&cfg.Columns, "columns", "c", "", "Columns to output (e.g., 'id, name AS player')")
	pf.BoolVarP(&cfg.Gzip, "gzip", "z", false, "Gzip the CSV output")

	fs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(fs)
	pf.AddGoFlagSet(fs)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}
