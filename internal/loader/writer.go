package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/model"
)

// WriteCSV writes the header and rows of table using the quote and delimiter of
// opts. Null cells are written as empty fields.
func WriteCSV(w io.Writer, table *model.Table, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	cw, tw, swap := newCSVWriter(w, opts)

	record := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		record[i] = swap.mapString(c)
	}
	if err := cw.Write(record); err != nil {
		return apperrors.Internal("write table header", err)
	}
	for _, row := range table.Rows {
		for i := range record {
			record[i] = swap.mapString(row.Get(i).String())
		}
		if err := cw.Write(record); err != nil {
			return apperrors.Internal("write table row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Internal("write table", err)
	}
	if err := tw.Close(); err != nil {
		return apperrors.Internal("flush table", err)
	}
	return nil
}

// WriteJSONLines writes one JSON object per row with keys in column order. Null
// cells become JSON null. When indexField is set, the source row index is written
// under that key first.
func WriteJSONLines(w io.Writer, table *model.Table, indexField string) error {
	if indexField != "" && table.ColumnIndex(indexField) >= 0 {
		return apperrors.InvalidInput(fmt.Sprintf("index field %q collides with a column", indexField))
	}

	bw := bufio.NewWriter(w)
	var line bytes.Buffer
	for _, row := range table.Rows {
		line.Reset()
		line.WriteByte('{')
		first := true
		if indexField != "" {
			writeKey(&line, indexField, first)
			line.WriteString(strconv.Itoa(row.Index))
			first = false
		}
		for i, column := range table.Columns {
			writeKey(&line, column, first)
			first = false
			cell := row.Get(i)
			if cell.Null {
				line.WriteString("null")
				continue
			}
			writeJSONString(&line, cell.Value)
		}
		line.WriteString("}\n")
		if _, err := bw.Write(line.Bytes()); err != nil {
			return apperrors.Internal("write json line", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.Internal("flush json lines", err)
	}
	return nil
}

func writeKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	writeJSONString(buf, key)
	buf.WriteByte(':')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// WithIndexColumn returns a copy of table with the source row index prepended as
// a text column named name.
func WithIndexColumn(table *model.Table, name string) (*model.Table, error) {
	if table.ColumnIndex(name) >= 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("index field %q collides with a column", name))
	}
	out := &model.Table{
		Columns: append([]string{name}, table.Columns...),
		Rows:    make([]model.Row, len(table.Rows)),
	}
	for i, row := range table.Rows {
		cells := make([]model.Cell, 0, len(row.Cells)+1)
		cells = append(cells, model.TextCell(strconv.Itoa(row.Index)))
		cells = append(cells, row.Cells...)
		out.Rows[i] = model.Row{Index: row.Index, Cells: cells}
	}
	return out, nil
}
