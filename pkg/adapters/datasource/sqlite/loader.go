// Package sqlite loads tables from a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

const listTablesQuery = `
	SELECT name FROM sqlite_master
	WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	ORDER BY name`

// Loader reads SQLite tables into memory.
type Loader struct {
	db     *sql.DB
	cfg    *Config
	logger *zap.Logger
}

var _ datasource.TableLoader = (*Loader)(nil)

// NewLoader opens the database file read-only.
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	db, err := sql.Open("sqlite3", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}
	return &Loader{db: db, cfg: cfg, logger: logger.Named("sqlite")}, nil
}

// LoadTables reads every selected table.
func (l *Loader) LoadTables(ctx context.Context) ([]datasource.Table, error) {
	rows, err := l.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]datasource.Table, 0, len(names))
	for _, name := range names {
		if !l.cfg.Wants(name) {
			continue
		}
		rows, err := l.db.QueryContext(ctx, buildSelectQuery(name, l.cfg.RowLimit))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		table, err := datasource.ReadSQLTable(rows, name)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded table", zap.String("table", name), zap.Int("rows", table.RowCount()))
		tables = append(tables, table)
	}
	return tables, nil
}

// Close releases the database handle.
func (l *Loader) Close() error {
	return l.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func buildSelectQuery(table string, limit int) string {
	q := "SELECT * FROM " + quoteIdent(table)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}
