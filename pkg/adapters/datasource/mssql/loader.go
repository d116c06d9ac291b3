package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/logging"
)

const listTablesQuery = `
	SELECT TABLE_NAME
	FROM INFORMATION_SCHEMA.TABLES
	WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
	ORDER BY TABLE_NAME`

const listColumnsQuery = `
	SELECT COLUMN_NAME
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
	ORDER BY ORDINAL_POSITION`

// Loader reads SQL Server tables into memory.
type Loader struct {
	db     *sql.DB
	cfg    *Config
	logger *zap.Logger
}

var _ datasource.TableLoader = (*Loader)(nil)

// NewLoader opens a SQL Server connection and verifies it.
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	logger = logger.Named("mssql")

	db, err := sql.Open(cfg.DriverName(), cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("SQL Server ping failed",
			zap.String("conn", logging.SanitizeConnectionString(cfg.ConnString())),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Loader{db: db, cfg: cfg, logger: logger}, nil
}

// LoadTables reads every selected base table of the configured schema.
func (l *Loader) LoadTables(ctx context.Context) ([]datasource.Table, error) {
	names, err := l.queryStrings(ctx, listTablesQuery, l.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]datasource.Table, 0, len(names))
	for _, name := range names {
		if !l.cfg.Wants(name) {
			continue
		}

		columns, err := l.queryStrings(ctx, listColumnsQuery, l.cfg.Schema, name)
		if err != nil {
			return nil, fmt.Errorf("list columns of %s: %w", name, err)
		}
		if len(columns) == 0 {
			continue
		}

		rows, err := l.db.QueryContext(ctx, buildSelectQuery(l.cfg.Schema, name, columns, l.cfg.RowLimit))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		table, err := datasource.ReadSQLTable(rows, name)
		if err != nil {
			return nil, err
		}

		l.logger.Debug("Loaded table",
			zap.String("schema", l.cfg.Schema),
			zap.String("table", name),
			zap.Int("rows", table.RowCount()))
		tables = append(tables, table)
	}
	return tables, nil
}

// Close releases the connection.
func (l *Loader) Close() error {
	return l.db.Close()
}

func (l *Loader) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
