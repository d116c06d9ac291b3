package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-relate/pkg/logging"
)

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	ORDER BY table_name`

const listColumnsQuery = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`

// Loader reads PostgreSQL tables into memory.
type Loader struct {
	pool   *pgxpool.Pool
	cfg    *Config
	logger *zap.Logger
}

var _ datasource.TableLoader = (*Loader)(nil)

// NewLoader connects to PostgreSQL and verifies the connection.
func NewLoader(ctx context.Context, cfg *Config, logger *zap.Logger) (*Loader, error) {
	logger = logger.Named("postgres")

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Postgres ping failed",
			zap.String("conn", logging.SanitizeConnectionString(cfg.ConnString())),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Loader{pool: pool, cfg: cfg, logger: logger}, nil
}

// LoadTables reads every selected base table of the configured schema.
func (l *Loader) LoadTables(ctx context.Context) ([]datasource.Table, error) {
	names, err := l.listTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.Table, 0, len(names))
	for _, name := range names {
		if !l.cfg.Wants(name) {
			continue
		}
		table, err := l.readTable(ctx, name)
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

// Close releases the connection pool.
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

func (l *Loader) listTables(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, listTablesQuery, l.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan table names: %w", err)
	}
	return names, nil
}

func (l *Loader) readTable(ctx context.Context, name string) (*datasource.MemoryTable, error) {
	rows, err := l.pool.Query(ctx, listColumnsQuery, l.cfg.Schema, name)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", name, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan columns of %s: %w", name, err)
	}
	if len(columns) == 0 {
		return datasource.NewMemoryTable(name, nil, nil)
	}

	query := buildSelectQuery(l.cfg.Schema, name, columns, l.cfg.RowLimit)
	rows, err = l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()

	var data [][]*string
	for rows.Next() {
		row := make([]*string, len(columns))
		dest := make([]any, len(columns))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}

	return datasource.NewMemoryTable(name, columns, data)
}

// buildSelectQuery selects every column cast to text so values compare as strings
// regardless of the column's PostgreSQL type.
func buildSelectQuery(schema, table string, columns []string, limit int) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pgx.Identifier{col}.Sanitize())
		sb.WriteString("::text")
	}
	sb.WriteString(" FROM ")
	sb.WriteString(pgx.Identifier{schema, table}.Sanitize())
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	return sb.String()
}
