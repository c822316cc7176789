package table

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned by Column for an unknown column name.
var ErrColumnNotFound = errors.New("table: column not found")

// Table is a rectangular result set.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds one row. The row must have one value per column.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table: row has %d values, want %d", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of column name.
func (t *Table) Column(name string) ([]any, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Map returns the rows as column-name maps.
func (t *Table) Map() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for r, row := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			m[c] = row[i]
		}
		out[r] = m
	}
	return out
}

// FromRows drains rows into a Table and closes them. []byte values are
// copied into strings since drivers reuse the underlying buffers.
func FromRows(rows *sql.Rows) (*Table, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("table: columns: %w", err)
	}
	t := New(cols...)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("table: scan: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table: rows: %w", err)
	}
	return t, nil
}
