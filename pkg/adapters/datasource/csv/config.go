package csv

import (
	"fmt"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-relate/pkg/adapters/datasource"
)

// Config contains CSV-specific loading options.
type Config struct {
	// Path is a single .csv file or a directory of .csv files.
	Path string
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune
	// NullValues are field values read as null. Empty fields are always null.
	NullValues []string

	datasource.LoaderOptions
}

// DefaultNullValues returns the field values treated as missing.
func DefaultNullValues() []string {
	return []string{"NULL", "null", "NA", "N/A", "NaN", "nan", "None"}
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Delimiter:  ',',
		NullValues: DefaultNullValues(),
	}

	if path, ok := config["path"].(string); ok && path != "" {
		cfg.Path = path
	} else {
		return nil, fmt.Errorf("path is required")
	}

	if delim, ok := config["delimiter"].(string); ok && delim != "" {
		r, size := utf8.DecodeRuneInString(delim)
		if size != len(delim) {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delim)
		}
		cfg.Delimiter = r
	}

	if nulls, ok := config["null_values"].([]any); ok {
		cfg.NullValues = cfg.NullValues[:0]
		for _, n := range nulls {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("null_values: expected strings, got %T", n)
			}
			cfg.NullValues = append(cfg.NullValues, s)
		}
	}

	opts, err := datasource.OptionsFromMap(config)
	if err != nil {
		return nil, err
	}
	cfg.LoaderOptions = opts

	return cfg, nil
}
