package sqlite

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

// Config contains SQLite loading options.
type Config struct {
	// Path is the database file. Opened read-only.
	Path string

	datasource.LoaderOptions
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{}

	if path, ok := config["path"].(string); ok && path != "" {
		cfg.Path = path
	} else {
		return nil, fmt.Errorf("path is required")
	}

	opts, err := datasource.OptionsFromMap(config)
	if err != nil {
		return nil, err
	}
	cfg.LoaderOptions = opts

	return cfg, nil
}

// DSN returns the go-sqlite3 data source name.
func (c *Config) DSN() string {
	return "file:" + c.Path + "?mode=ro"
}
