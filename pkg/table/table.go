package table

import (
	"fmt"
	"sort"
)

// Table is an immutable, string-typed tabular value: an ordered list of
// column names plus row-major cells. Every transformation returns a new
// Table, so tables for different regions or extraction dates can be
// processed in parallel without coordination.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]string
}

// New builds a table from column names and rows. Short rows are padded with
// empty cells; rows longer than the header are an error.
func New(cols []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		if len(r) > len(cols) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d columns", i, len(r), len(cols))
		}
		row := make([]string, len(cols))
		copy(row, r)
		out[i] = row
	}
	return &Table{cols: cols, index: index, rows: out}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the cell at row i in the named column. It panics on an
// unknown column; callers are expected to check HasColumn when the column
// set is data-driven.
func (t *Table) Cell(i int, col string) string {
	j, ok := t.index[col]
	if !ok {
		panic(fmt.Sprintf("table: no column %q", col))
	}
	return t.rows[i][j]
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Row is a lightweight view of a single row.
type Row struct {
	t *Table
	i int
}

// Get returns the cell in the named column, or "" if the column is unknown.
func (r Row) Get(col string) string {
	j, ok := r.t.index[col]
	if !ok {
		return ""
	}
	return r.t.rows[r.i][j]
}

// Index returns the row's position in the table.
func (r Row) Index() int { return r.i }

// Each calls fn for every row in order.
func (t *Table) Each(fn func(Row)) {
	for i := range t.rows {
		fn(Row{t, i})
	}
}

func (t *Table) clone() *Table {
	cols := make([]string, len(t.cols))
	copy(cols, t.cols)
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		row := make([]string, len(r))
		copy(row, r)
		rows[i] = row
	}
	return &Table{cols: cols, index: index, rows: rows}
}

// Rename returns a table with columns renamed per the given mapping.
// Old names absent from the table are ignored, so a rename that only applies
// to one format version is harmless on the other.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	out := t.clone()
	for old, new_ := range mapping {
		j, ok := out.index[old]
		if !ok {
			continue
		}
		if _, dup := out.index[new_]; dup && new_ != old {
			return nil, fmt.Errorf("rename %q: column %q already exists", old, new_)
		}
		delete(out.index, old)
		out.cols[j] = new_
		out.index[new_] = j
	}
	return out, nil
}

// SetColumn returns a table where the named column holds the given values,
// appending the column if it does not exist.
func (t *Table) SetColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.rows))
	}
	out := t.clone()
	j, ok := out.index[name]
	if !ok {
		j = len(out.cols)
		out.cols = append(out.cols, name)
		out.index[name] = j
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], "")
		}
	}
	for i := range out.rows {
		out.rows[i][j] = values[i]
	}
	return out, nil
}

// MapColumns returns a table where fn has been applied to every cell of each
// named column. All named columns must exist. This is the primitive behind
// code-to-label substitution: one lookup function rewriting several columns
// in a single pass.
func (t *Table) MapColumns(cols []string, fn func(string) string) (*Table, error) {
	js := make([]int, len(cols))
	for k, c := range cols {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		js[k] = j
	}
	out := t.clone()
	for _, j := range js {
		for i := range out.rows {
			out.rows[i][j] = fn(out.rows[i][j])
		}
	}
	return out, nil
}

// Filter returns a table containing only the rows for which pred is true.
func (t *Table) Filter(pred func(Row) bool) *Table {
	var keep []int
	for i := range t.rows {
		if pred(Row{t, i}) {
			keep = append(keep, i)
		}
	}
	cols := make([]string, len(t.cols))
	copy(cols, t.cols)
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	rows := make([][]string, 0, len(keep))
	for _, i := range keep {
		row := make([]string, len(t.rows[i]))
		copy(row, t.rows[i])
		rows = append(rows, row)
	}
	return &Table{cols: cols, index: index, rows: rows}
}

// SortedDistinct returns the distinct values of the named column in sorted order.
func (t *Table) SortedDistinct(name string) ([]string, error) {
	vals, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}
