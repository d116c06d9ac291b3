package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoTables          = errors.New("no tables supplied")
	ErrDuplicateTable    = errors.New("duplicate table name")
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrStoreDisabled     = errors.New("results store is not configured")
)
