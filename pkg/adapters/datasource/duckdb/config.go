package duckdb

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

// Config contains DuckDB loading options.
type Config struct {
	// Path is a DuckDB database file. Empty opens an in-memory database.
	Path string
	// Files are Parquet or CSV files exposed as tables named after the file stem.
	Files []string
	// Schema is the schema whose tables are read from Path.
	Schema string

	datasource.LoaderOptions
}

// DefaultSchema returns the DuckDB default schema.
func DefaultSchema() string {
	return "main"
}

// FromMap creates a Config from a generic config map.
// At least one of "path" or "files" must be set.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Schema: DefaultSchema()}

	if path, ok := config["path"].(string); ok {
		cfg.Path = path
	}
	if schema, ok := config["schema"].(string); ok && schema != "" {
		cfg.Schema = schema
	}

	switch files := config["files"].(type) {
	case nil:
	case []string:
		cfg.Files = files
	case []any:
		for _, f := range files {
			s, ok := f.(string)
			if !ok {
				return nil, fmt.Errorf("files: expected strings, got %T", f)
			}
			cfg.Files = append(cfg.Files, s)
		}
	default:
		return nil, fmt.Errorf("files: unsupported type %T", files)
	}

	if cfg.Path == "" && len(cfg.Files) == 0 {
		return nil, fmt.Errorf("path or files is required")
	}

	opts, err := datasource.OptionsFromMap(config)
	if err != nil {
		return nil, err
	}
	cfg.LoaderOptions = opts

	return cfg, nil
}

// fileTableName derives a table name from a file path.
func fileTableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// fileReader returns the DuckDB table function that reads path.
func fileReader(path string) (string, error) {
	quoted := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "read_parquet(" + quoted + ")", nil
	case ".csv", ".tsv":
		return "read_csv_auto(" + quoted + ")", nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}
