package table

import (
	"github.com/pkg/errors"
)

// RowSink is the narrow contract a tabular container offers to producers:
// columns are declared first, then rows are appended in column order.
type RowSink interface {
	AddColumn(col Column) error
	AppendRow(values []interface{}) error
	ColumnNames() []string
	RowCount() int
}

// RowSource is the read side of a tabular container as used by exporters.
type RowSource interface {
	Columns() []Column
	RowCount() int
	Row(i int) []interface{}
}

// Table is a simple row-oriented in-memory table. It implements both
// RowSink and RowSource.
type Table struct {
	columns Schema
	index   map[string]int
	rows    [][]interface{}
}

// New creates a table with the given columns.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int)}
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a column. Columns can only be added to an empty table.
func (t *Table) AddColumn(col Column) error {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if len(t.rows) > 0 {
		return errors.Errorf("can not add column %q to a table that already holds rows", col.Name)
	}
	if _, ok := t.index[col.Name]; ok {
		return errors.Errorf("column %q already exists", col.Name)
	}
	if err := (Schema{col}).Validate(); err != nil {
		return err
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// AppendRow appends a row. The number of values must match the number of
// columns.
func (t *Table) AppendRow(values []interface{}) error {
	if len(values) != len(t.columns) {
		return errors.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, values)
	return nil
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	return t.columns.Names()
}

// Columns returns the column descriptors in order.
func (t *Table) Columns() []Column {
	return t.columns
}

// Schema returns the table schema.
func (t *Table) Schema() Schema {
	return t.columns
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Row returns the i-th row. The returned slice must not be modified.
func (t *Table) Row(i int) []interface{} {
	return t.rows[i]
}

// Value returns the value of the named column in row i.
func (t *Table) Value(i int, name string) (interface{}, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Errorf("unknown column %q", name)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Errorf("row %d out of range", i)
	}
	return t.rows[i][idx], nil
}

// ColumnValues returns all values of the named column.
func (t *Table) ColumnValues(name string) ([]interface{}, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Errorf("unknown column %q", name)
	}
	values := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}
	return values, nil
}

// DropColumn returns a copy of the table without the named column.
func (t *Table) DropColumn(name string) (*Table, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, errors.Errorf("unknown column %q", name)
	}

	cols := make([]Column, 0, len(t.columns)-1)
	cols = append(cols, t.columns[:idx]...)
	cols = append(cols, t.columns[idx+1:]...)
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}

	out.rows = make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		r := make([]interface{}, 0, len(row)-1)
		r = append(r, row[:idx]...)
		out.rows[i] = append(r, row[idx+1:]...)
	}
	return out, nil
}
