package datasource

import (
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// LoaderOptions are the source-independent settings understood by every loader.
type LoaderOptions struct {
	// RowLimit caps the rows read per table. 0 reads everything.
	RowLimit int
	// Tables restricts loading to the named tables. Empty loads all tables.
	Tables []string
}

// OptionsFromMap extracts LoaderOptions from a generic config map.
// Accepts "row_limit" (number) and "tables" ([]string or []any).
func OptionsFromMap(config map[string]any) (LoaderOptions, error) {
	var opts LoaderOptions

	switch v := config["row_limit"].(type) {
	case nil:
	case float64: // JSON numbers are float64
		opts.RowLimit = int(v)
	case int:
		opts.RowLimit = v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("row_limit: %w", err)
		}
		opts.RowLimit = n
	default:
		return opts, fmt.Errorf("row_limit: unsupported type %T", v)
	}
	if opts.RowLimit < 0 {
		return opts, fmt.Errorf("row_limit must not be negative")
	}

	switch v := config["tables"].(type) {
	case nil:
	case []string:
		opts.Tables = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return opts, fmt.Errorf("tables: expected strings, got %T", item)
			}
			opts.Tables = append(opts.Tables, s)
		}
	default:
		return opts, fmt.Errorf("tables: unsupported type %T", v)
	}

	return opts, nil
}

// Wants reports whether a table passes the Tables filter.
func (o LoaderOptions) Wants(table string) bool {
	return len(o.Tables) == 0 || slices.Contains(o.Tables, table)
}

// FormatValue converts a driver value to the text form the engine compares.
// nil stays nil.
func FormatValue(v any) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339Nano)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	return &s
}

// ReadSQLTable reads the result of query into a MemoryTable named name.
// Shared by the database/sql based loaders.
func ReadSQLTable(rows *sql.Rows, name string) (*MemoryTable, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", name, err)
	}

	var data [][]*string
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		row := make([]*string, len(columns))
		for i, v := range raw {
			row[i] = FormatValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}

	return NewMemoryTable(name, columns, data)
}
