package cli

import (
	"io"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"crowdtags/internal/loader"
	"crowdtags/pkg/config"
	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/model"
)

type flattenOptions struct {
	column string
	output string
}

func newFlattenCommand(a *app) *cobra.Command {
	opts := &flattenOptions{}
	cmd := &cobra.Command{
		Use:   "flatten <table>",
		Short: "Explode an action batch column into one row per canonical action",
		Long: `Read a delimited table, decode the JSON action batch stored in --column,
canonicalize every action and write one output row per action. All other
columns are copied to each emitted row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFlatten(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.column, "column", "c", "", "Column holding the JSON action batch")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringP("format", "f", config.DefaultOutputFormat, "Output format (csv, jsonl)")
	cmd.Flags().String("empty", config.DefaultEmptyBatch, "Rows with an empty batch: keep (null cell) or drop")
	cmd.Flags().String("quote", config.DefaultQuote, "Quote character of the input and CSV output")
	cmd.Flags().String("delimiter", config.DefaultDelimiter, "Field delimiter of the input and CSV output")
	cmd.Flags().String("index-field", config.DefaultIndexField, "Write the source row index under this name")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func (a *app) runFlatten(cmd *cobra.Command, path string, opts *flattenOptions) (err error) {
	l, err := loader.New(loaderOptions(a.cfg), a.log)
	if err != nil {
		return err
	}
	table, err := l.Load(cmd.Context(), path, opts.column)
	if err != nil {
		a.log.Error("Failed to flatten table", "path", path, "error", err)
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, createErr := os.Create(opts.output)
		if createErr != nil {
			return apperrors.Internal("cannot create output file", createErr).WithDetails(map[string]any{"path": opts.output})
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = apperrors.Internal("cannot close output file", cerr)
			}
		}()
		out = f
	}

	if err := a.write(out, table); err != nil {
		return err
	}
	a.log.Info("Table flattened", "path", path, "column", opts.column, "rows", table.Len(), "format", a.cfg.OutputFormat)
	return nil
}

func (a *app) write(w io.Writer, table *model.Table) error {
	if a.cfg.OutputFormat == config.FormatJSONLines {
		return loader.WriteJSONLines(w, table, a.cfg.IndexField)
	}
	if a.cfg.IndexField != "" {
		indexed, err := loader.WithIndexColumn(table, a.cfg.IndexField)
		if err != nil {
			return err
		}
		table = indexed
	}
	return loader.WriteCSV(w, table, loaderOptions(a.cfg))
}

// loaderOptions converts the table settings of a validated configuration into
// loader options.
func loaderOptions(cfg *config.Config) loader.Options {
	quote, _ := utf8.DecodeRuneInString(cfg.Quote)
	delimiter, _ := utf8.DecodeRuneInString(cfg.Delimiter)
	return loader.Options{
		Quote:      quote,
		Delimiter:  delimiter,
		EmptyBatch: loader.EmptyBatchPolicy(cfg.EmptyBatch),
	}
}
