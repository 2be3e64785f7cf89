package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"crowdtags/internal/canonical"
	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/logger"
	"crowdtags/pkg/model"
)

type Loader struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options, log *logger.Logger) (*Loader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{opts: opts, log: log}, nil
}

// Load reads the table at path with the default options and explodes column into
// one row per canonical action key.
func Load(path, column string) (*model.Table, error) {
	l, err := New(DefaultOptions(), nil)
	if err != nil {
		return nil, err
	}
	return l.Load(context.Background(), path, column)
}

func (l *Loader) Load(ctx context.Context, path, column string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Decode("cannot open table", err).WithDetails(map[string]any{"path": path})
	}
	defer f.Close()

	table, err := l.Read(ctx, f, column)
	if err != nil {
		return nil, err
	}
	l.log.Info("Table loaded", "path", path, "column", column, "rows", table.Len())
	return table, nil
}

// Read parses a table from r, decodes column as an action batch per row and
// explodes it.
func (l *Loader) Read(ctx context.Context, r io.Reader, column string) (*model.Table, error) {
	if column == "" {
		return nil, apperrors.InvalidInput("target column name is required")
	}
	table, lines, err := l.readTable(ctx, r)
	if err != nil {
		return nil, err
	}
	return l.explode(ctx, table, lines, column)
}

// ReadTable parses a table from r without decoding any column. Empty fields are
// empty text; fields missing from short rows are null.
func (l *Loader) ReadTable(ctx context.Context, r io.Reader) (*model.Table, error) {
	table, _, err := l.readTable(ctx, r)
	return table, err
}

// Explode decodes column of an already parsed table and expands it.
func (l *Loader) Explode(ctx context.Context, table *model.Table, column string) (*model.Table, error) {
	if column == "" {
		return nil, apperrors.InvalidInput("target column name is required")
	}
	return l.explode(ctx, table, nil, column)
}

func (l *Loader) readTable(ctx context.Context, r io.Reader) (*model.Table, []int, error) {
	rr := newRecordReader(r, l.opts)

	header, _, err := rr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.Decode("no columns to parse from table", nil)
	}
	if err != nil {
		return nil, nil, tableError(err)
	}
	table := &model.Table{Columns: dedupeColumns(header)}
	var lines []int

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		record, line, err := rr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, tableError(err)
		}
		if len(record) > len(table.Columns) {
			return nil, nil, apperrors.Decode(
				fmt.Sprintf("expected %d fields, saw %d", len(table.Columns), len(record)), nil,
			).WithDetails(map[string]any{"line": line})
		}

		cells := make([]model.Cell, len(table.Columns))
		for i := range cells {
			if i < len(record) {
				cells[i] = model.TextCell(record[i])
			} else {
				cells[i] = model.NullCell()
			}
		}
		table.Rows = append(table.Rows, model.Row{Index: index, Cells: cells})
		lines = append(lines, line)
	}

	l.log.Debug("Table parsed", "columns", len(table.Columns), "rows", table.Len())
	return table, lines, nil
}

func (l *Loader) explode(ctx context.Context, table *model.Table, lines []int, column string) (*model.Table, error) {
	target := table.ColumnIndex(column)
	if target < 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("column %q not found", column)).
			WithDetails(map[string]any{"column": column, "columns": table.Columns})
	}

	out := &model.Table{
		Columns: slices.Clone(table.Columns),
		Rows:    make([]model.Row, 0, len(table.Rows)),
	}
	actions, dropped := 0, 0

	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := decodeCell(row.Get(target))
		if err != nil {
			details := map[string]any{"row": row.Index, "column": column}
			if i < len(lines) {
				details["line"] = lines[i]
			}
			return nil, apperrors.AsAppError(err).WithDetails(details)
		}

		keys := canonical.Canonicalize(batch)
		l.log.Debug("Row canonicalized", "row", row.Index, "actions", len(keys))
		actions += len(keys)

		base := fillNulls(row.Cells, len(out.Columns))
		if len(keys) == 0 {
			if l.opts.EmptyBatch == EmptyBatchDrop {
				dropped++
				continue
			}
			out.Rows = append(out.Rows, withCell(base, row.Index, target, model.NullCell()))
			continue
		}
		for _, key := range keys {
			out.Rows = append(out.Rows, withCell(base, row.Index, target, model.TextCell(key)))
		}
	}

	l.log.Debug("Table exploded",
		"column", column,
		"input_rows", table.Len(),
		"output_rows", out.Len(),
		"actions", actions,
		"dropped_empty", dropped,
	)
	return out, nil
}

func decodeCell(cell model.Cell) (model.Batch, error) {
	if cell.Null {
		return nil, apperrors.Type("missing value, expected a list of actions", nil)
	}
	return model.ParseBatch([]byte(cell.Value))
}

// fillNulls copies cells to width columns, turning empty and missing values into
// null cells.
func fillNulls(cells []model.Cell, width int) []model.Cell {
	out := make([]model.Cell, width)
	for i := range out {
		if i < len(cells) && !cells[i].Null && cells[i].Value != "" {
			out[i] = cells[i]
		} else {
			out[i] = model.NullCell()
		}
	}
	return out
}

func withCell(base []model.Cell, index, target int, cell model.Cell) model.Row {
	cells := slices.Clone(base)
	cells[target] = cell
	return model.Row{Index: index, Cells: cells}
}

// dedupeColumns renames repeated header names to name.1, name.2 and so on,
// skipping suffixes that are already taken.
func dedupeColumns(names []string) []string {
	counts := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		cur := counts[name]
		for cur > 0 {
			counts[name] = cur + 1
			name = fmt.Sprintf("%s.%d", name, cur)
			cur = counts[name]
		}
		out[i] = name
		counts[name] = cur + 1
	}
	return out
}

func tableError(err error) error {
	var syntaxErr *syntaxError
	if errors.As(err, &syntaxErr) {
		return apperrors.Decode("malformed table: "+syntaxErr.Msg, nil).
			WithDetails(map[string]any{"line": syntaxErr.Line})
	}
	return apperrors.Decode("cannot read table", err)
}
