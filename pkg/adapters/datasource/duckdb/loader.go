// Package duckdb loads tables through an embedded DuckDB engine, either from a
// database file or from Parquet/CSV files.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = ? AND table_type = 'BASE TABLE'
	ORDER BY table_name`

// Loader reads DuckDB tables and data files into memory.
type Loader struct {
	db     *sql.DB
	cfg    *Config
	logger *zap.Logger
}

var _ datasource.TableLoader = (*Loader)(nil)

// NewLoader opens DuckDB on cfg.Path (or in memory).
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &Loader{db: db, cfg: cfg, logger: logger.Named("duckdb")}, nil
}

// LoadTables reads the database tables first, then each configured file.
func (l *Loader) LoadTables(ctx context.Context) ([]datasource.Table, error) {
	var tables []datasource.Table

	if l.cfg.Path != "" {
		names, err := l.listTables(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if !l.cfg.Wants(name) {
				continue
			}
			from := quoteIdent(l.cfg.Schema) + "." + quoteIdent(name)
			table, err := l.read(ctx, name, from)
			if err != nil {
				return nil, err
			}
			tables = append(tables, table)
		}
	}

	for _, path := range l.cfg.Files {
		name := fileTableName(path)
		if !l.cfg.Wants(name) {
			continue
		}
		from, err := fileReader(path)
		if err != nil {
			return nil, err
		}
		table, err := l.read(ctx, name, from)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	return tables, nil
}

// Close releases the database handle.
func (l *Loader) Close() error {
	return l.db.Close()
}

func (l *Loader) listTables(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, listTablesQuery, l.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (l *Loader) read(ctx context.Context, name, from string) (*datasource.MemoryTable, error) {
	query := "SELECT * FROM " + from
	if l.cfg.RowLimit > 0 {
		query += fmt.Sprintf(" LIMIT %d", l.cfg.RowLimit)
	}

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	table, err := datasource.ReadSQLTable(rows, name)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded table", zap.String("table", name), zap.Int("rows", table.RowCount()))
	return table, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
