package model

// Cell is one table value. A null cell marks a missing value.
type Cell struct {
	Value string
	Null  bool
}

func TextCell(value string) Cell {
	return Cell{Value: value}
}

func NullCell() Cell {
	return Cell{Null: true}
}

// String returns the cell text, or "" for null.
func (c Cell) String() string {
	if c.Null {
		return ""
	}
	return c.Value
}

// Row holds one cell per table column. Index is the zero-based position of the
// source row in the input; exploded rows share the index of the row they came from.
type Row struct {
	Index int
	Cells []Cell
}

// Get returns the cell at column i, or a null cell when the row is short.
func (r Row) Get(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return NullCell()
	}
	return r.Cells[i]
}

type Table struct {
	Columns []string
	Rows    []Row
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every cell of the named column in row order.
func (t *Table) Column(name string) ([]Cell, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	cells := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row.Get(idx)
	}
	return cells, true
}
