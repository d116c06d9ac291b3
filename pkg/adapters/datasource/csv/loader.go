// Package csv loads tables from CSV files. Each file becomes one table named after
// the file name without its extension.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

// Loader reads CSV files into memory tables.
type Loader struct {
	cfg    *Config
	nulls  map[string]bool
	logger *zap.Logger
}

var _ datasource.TableLoader = (*Loader)(nil)

// NewLoader creates a CSV loader.
func NewLoader(cfg *Config, logger *zap.Logger) *Loader {
	nulls := make(map[string]bool, len(cfg.NullValues))
	for _, n := range cfg.NullValues {
		nulls[n] = true
	}
	return &Loader{
		cfg:    cfg,
		nulls:  nulls,
		logger: logger.Named("csv"),
	}
}

// LoadTables reads every selected CSV file.
func (l *Loader) LoadTables(ctx context.Context) ([]datasource.Table, error) {
	files, err := l.listFiles()
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.Table, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if !l.cfg.Wants(name) {
			continue
		}

		table, err := l.readFile(path, name)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded CSV file",
			zap.String("path", path),
			zap.String("table", name),
			zap.Int("rows", table.RowCount()),
			zap.Int("columns", len(table.Columns())))
		tables = append(tables, table)
	}

	return tables, nil
}

// Close is a no-op; files are closed after each read.
func (l *Loader) Close() error {
	return nil
}

// listFiles returns the CSV files under cfg.Path in name order.
func (l *Loader) listFiles() ([]string, error) {
	info, err := os.Stat(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.cfg.Path, err)
	}
	if !info.IsDir() {
		return []string{l.cfg.Path}, nil
	}

	entries, err := os.ReadDir(l.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", l.cfg.Path, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(l.cfg.Path, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

func (l *Loader) readFile(path, name string) (*datasource.MemoryTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = l.cfg.Delimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return datasource.NewMemoryTable(name, nil, nil)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	header = dedupeHeader(header)

	var rows [][]*string
	for {
		if l.cfg.RowLimit > 0 && len(rows) >= l.cfg.RowLimit {
			break
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		row := make([]*string, len(header))
		for i := range header {
			if i >= len(record) {
				continue
			}
			row[i] = l.cell(record[i])
		}
		rows = append(rows, row)
	}

	return datasource.NewMemoryTable(name, header, rows)
}

func (l *Loader) cell(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" || l.nulls[v] {
		return nil
	}
	return &v
}

// dedupeHeader makes column names unique by suffixing repeats with .1, .2, ...
// A suffix already taken by another header is skipped.
func dedupeHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
		taken[h] = true
	}

	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range names {
		if !used[h] {
			used[h] = true
			out[i] = h
			continue
		}
		name := h
		for used[name] || taken[name] {
			next[h]++
			name = fmt.Sprintf("%s.%d", h, next[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
