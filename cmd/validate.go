package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bisegni/jsoncsv/pkg/errs"
	"github.com/bisegni/jsoncsv/pkg/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Validate that the input is a JSON array of objects",
	Long: `Validate that a file holds a single JSON array whose elements are all
objects, which is what export accepts.

Examples:
  jsoncsv validate data.json
  cat data.json | jsoncsv validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stream, _ := inputStream(args)

	rc, err := stream.Open(ctx)
	if err != nil {
		return err
	}
	it := parser.NewObjectIterator(rc)
	defer it.Close()

	count := 0
	for {
		ok, err := it.HasNext()
		if err == nil && ok {
			_, err = it.Next()
		}
		if err != nil {
			var m *errs.MalformedStreamError
			if errors.As(err, &m) {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ Validation failed at byte %d: %s\n", m.Offset, m.Reason)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ Validation failed: %v\n", err)
			}
			return err
		}
		if !ok {
			break
		}
		count++
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Valid JSON array with %d object(s)\n", count)
	return nil
}
