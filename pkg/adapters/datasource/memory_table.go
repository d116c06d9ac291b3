package datasource

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
)

// MemoryTable is a column-oriented in-memory Table.
type MemoryTable struct {
	name    string
	columns []string
	data    map[string][]*string
	rows    int
}

var _ Table = (*MemoryTable)(nil)

// NewMemoryTable builds a table from row-oriented data.
// Every row must have exactly len(columns) values.
func NewMemoryTable(name string, columns []string, rows [][]*string) (*MemoryTable, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	seen := make(map[string]bool, len(columns))
	data := make(map[string][]*string, len(columns))
	for _, col := range columns {
		if seen[col] {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, col)
		}
		seen[col] = true
		data[col] = make([]*string, 0, len(rows))
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("table %s: row %d has %d values, expected %d", name, i, len(row), len(columns))
		}
		for j, col := range columns {
			data[col] = append(data[col], row[j])
		}
	}

	return &MemoryTable{
		name:    name,
		columns: append([]string(nil), columns...),
		data:    data,
		rows:    len(rows),
	}, nil
}

// NewMemoryTableFromColumns builds a table from column-oriented data.
// All columns must have the same length.
func NewMemoryTableFromColumns(name string, columns []string, values map[string][]*string) (*MemoryTable, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	rows := -1
	data := make(map[string][]*string, len(columns))
	for _, col := range columns {
		vals, ok := values[col]
		if !ok {
			return nil, fmt.Errorf("table %s: column %q: %w", name, col, apperrors.ErrColumnNotFound)
		}
		if rows >= 0 && len(vals) != rows {
			return nil, fmt.Errorf("table %s: column %q has %d values, expected %d", name, col, len(vals), rows)
		}
		rows = len(vals)
		data[col] = append([]*string(nil), vals...)
	}
	if rows < 0 {
		rows = 0
	}

	return &MemoryTable{
		name:    name,
		columns: append([]string(nil), columns...),
		data:    data,
		rows:    rows,
	}, nil
}

func (t *MemoryTable) Name() string {
	return t.name
}

func (t *MemoryTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *MemoryTable) Values(column string) ([]*string, error) {
	vals, ok := t.data[column]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", t.name, column, apperrors.ErrColumnNotFound)
	}
	return vals, nil
}

func (t *MemoryTable) RowCount() int {
	return t.rows
}
