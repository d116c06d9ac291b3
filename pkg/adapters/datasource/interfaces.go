package datasource

import "context"

// Table is read-only tabular data analyzed by the relationship engine.
// Implementations must return the same values on every call.
type Table interface {
	// Name returns the table name. Names are unique within one analysis.
	Name() string

	// Columns returns column names in declared order.
	Columns() []string

	// Values returns every value of a column, one entry per row.
	// A nil entry is a null.
	Values(column string) ([]*string, error)

	// RowCount returns the number of rows.
	RowCount() int
}

// TableLoader reads tables from a source.
// Each implementation owns its connection and must be closed when done.
type TableLoader interface {
	// LoadTables reads all selected tables fully into memory.
	LoadTables(ctx context.Context) ([]Table, error)

	// Close releases any connection held by the loader.
	Close() error
}
