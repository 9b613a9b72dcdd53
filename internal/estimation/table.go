package estimation

import (
	"fmt"
	"math"
)

// Table is a dense two-dimensional numeric table keyed by (row key, column
// name) with NaN as the explicit missing marker. Row and column order is
// fixed at construction, so iteration over a Table is deterministic.
//
// The wage-ratio matrix and the capital-share characteristic matrix are
// both Tables, which makes imputation preconditions (observed predictors,
// complete rows) directly checkable.
type Table struct {
	rows []string
	cols []string

	rowIdx map[string]int
	colIdx map[string]int
	data   []float64
}

// NewTable creates a table with every cell missing. Row and column keys
// must be unique; duplicates panic as a programming error.
func NewTable(rows, cols []string) *Table {
	t := &Table{
		rows:   append([]string(nil), rows...),
		cols:   append([]string(nil), cols...),
		rowIdx: make(map[string]int, len(rows)),
		colIdx: make(map[string]int, len(cols)),
		data:   make([]float64, len(rows)*len(cols)),
	}
	for i, r := range t.rows {
		if _, dup := t.rowIdx[r]; dup {
			panic(fmt.Sprintf("estimation: duplicate table row %q", r))
		}
		t.rowIdx[r] = i
	}
	for j, c := range t.cols {
		if _, dup := t.colIdx[c]; dup {
			panic(fmt.Sprintf("estimation: duplicate table column %q", c))
		}
		t.colIdx[c] = j
	}
	for i := range t.data {
		t.data[i] = math.NaN()
	}
	return t
}

// Rows returns the row keys in table order.
func (t *Table) Rows() []string { return t.rows }

// Cols returns the column names in table order.
func (t *Table) Cols() []string { return t.cols }

// HasRow reports whether the row key exists.
func (t *Table) HasRow(row string) bool {
	_, ok := t.rowIdx[row]
	return ok
}

// HasCol reports whether the column exists.
func (t *Table) HasCol(col string) bool {
	_, ok := t.colIdx[col]
	return ok
}

// Set stores a value. Unknown keys panic as a programming error.
func (t *Table) Set(row, col string, v float64) {
	t.data[t.index(row, col)] = v
}

// Get returns the cell value, NaN when missing.
func (t *Table) Get(row, col string) float64 {
	return t.data[t.index(row, col)]
}

// Observed reports whether the cell holds an actual value.
func (t *Table) Observed(row, col string) bool {
	return !math.IsNaN(t.data[t.index(row, col)])
}

// MissingCount returns the number of missing cells in one column.
func (t *Table) MissingCount(col string) int {
	j, ok := t.colIdx[col]
	if !ok {
		panic(fmt.Sprintf("estimation: unknown table column %q", col))
	}
	n := 0
	for i := range t.rows {
		if math.IsNaN(t.data[i*len(t.cols)+j]) {
			n++
		}
	}
	return n
}

func (t *Table) index(row, col string) int {
	i, ok := t.rowIdx[row]
	if !ok {
		panic(fmt.Sprintf("estimation: unknown table row %q", row))
	}
	j, ok := t.colIdx[col]
	if !ok {
		panic(fmt.Sprintf("estimation: unknown table column %q", col))
	}
	return i*len(t.cols) + j
}

func (t *Table) at(i, j int) float64 { return t.data[i*len(t.cols)+j] }

func (t *Table) setAt(i, j int, v float64) { t.data[i*len(t.cols)+j] = v }
