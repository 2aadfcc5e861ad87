package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/bisegni/jsoncsv/pkg/source"
)

var (
	exportOut    string
	exportMongo  string
	exportDB     string
	exportBucket string
	exportUpload string
)

var exportCmd = &cobra.Command{
	Use:   "export [file|-]",
	Short: "Convert a JSON array of objects to CSV",
	Long: `Convert a JSON array of objects with varying fields to CSV.

The header holds every field name in first-seen order. The input is read once;
the second pass reads the cache file written during the first.

With --mongo-uri the argument names a file in a GridFS bucket instead of a
local file.

Examples:
  jsoncsv export data.json
  jsoncsv export data.json --out data.csv --rfc4180
  cat data.json | jsoncsv export --gzip > data.csv.gz
  jsoncsv export complex.json --mongo-uri mongodb://localhost:27017 --bucket exports
  jsoncsv export complex.json --mongo-uri mongodb://localhost:27017 --upload ./complex.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportMongo, "mongo-uri", "", "Read the input from MongoDB GridFS")
	exportCmd.Flags().StringVar(&exportDB, "mongo-db", "jsoncsv", "GridFS database")
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "GridFS bucket name (default: fs)")
	exportCmd.Flags().StringVar(&exportUpload, "upload", "", "Upload this local file to GridFS under the argument name before exporting")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := cfg.Exporter()
	if err != nil {
		return err
	}

	stream, name := inputStream(args)
	if exportMongo != "" {
		if len(args) == 0 {
			return fmt.Errorf("a GridFS file name is required with --mongo-uri")
		}
		client, err := source.ConnectMongo(ctx, exportMongo)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		bucket := source.NewBucket(client, exportDB, exportBucket)
		if exportUpload != "" {
			f, err := os.Open(exportUpload)
			if err != nil {
				return err
			}
			id, err := source.UploadGridFS(ctx, bucket, args[0], f)
			f.Close()
			if err != nil {
				return err
			}
			klog.V(1).InfoS("Uploaded to GridFS", "name", args[0], "id", id.Hex())
		}
		stream = source.GridFS{Bucket: bucket, Name: args[0]}
	}

	out, err := openOutput(exportOut, cfg.Gzip)
	if err != nil {
		return err
	}
	res, err := e.ExportStream(ctx, stream, out)
	if cerr := out.Close(err != nil); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}

	klog.V(1).InfoS("Exported", "input", name, "rows", res.Rows, "columns", len(res.Header), "cacheBytes", res.CacheBytes, "duration", res.Duration)
	if res.CachePath != "" {
		fmt.Fprintf(os.Stderr, "cache kept at %s\n", res.CachePath)
	}
	return nil
}
