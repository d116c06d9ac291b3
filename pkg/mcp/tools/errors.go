package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a tool result, not a protocol error, so the calling model
// sees the code and can correct its arguments.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (bad arguments, unknown source type,
// empty source). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
//
// Example:
//
//	return NewErrorResultWithDetails(
//	    "unsupported_source",
//	    `source type "oracle" is not available`,
//	    map[string]any{"available": []string{"csv", "postgres"}},
//	), nil
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorResultFor maps errors the caller can act on to error results.
// Returns nil for system failures, which the handler returns as Go errors.
func errorResultFor(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrUnsupportedSource):
		return NewErrorResult("unsupported_source", err.Error())
	case errors.Is(err, apperrors.ErrNoTables):
		return NewErrorResult("no_tables", err.Error())
	case errors.Is(err, apperrors.ErrDuplicateTable):
		return NewErrorResult("duplicate_table", err.Error())
	case errors.Is(err, apperrors.ErrColumnNotFound):
		return NewErrorResult("column_not_found", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	case errors.Is(err, apperrors.ErrStoreDisabled):
		return NewErrorResult("store_disabled", "results are not stored by this server; enable database.enabled to keep runs")
	case errors.Is(err, fs.ErrNotExist):
		return NewErrorResult("source_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewErrorResult("timeout", "analysis did not finish within the request timeout")
	}
	return NewSQLErrorResult(err)
}

// sqlStateRegex matches SQLSTATE codes in error messages like "(SQLSTATE 42P01)".
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// IsSQLUserError reports whether a loader failed because of something the
// caller controls (missing table or schema, insufficient privilege, bad data)
// rather than a server failure.
//
// PostgreSQL SQLSTATE classes treated as user errors:
//   - 22xxx: Data Exception
//   - 28xxx: Invalid Authorization Specification
//   - 3Dxxx: Invalid Catalog Name
//   - 42xxx: Syntax Error or Access Rule Violation
func IsSQLUserError(err error) bool {
	return sqlState(err) != "" && isSQLStateUserError(sqlState(err))
}

func sqlState(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

func isSQLStateUserError(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "22", "28", "3D", "42":
		return true
	}
	return false
}

// SQLUserErrorCode returns an error code for a SQL user error, or "".
func SQLUserErrorCode(err error) string {
	if !IsSQLUserError(err) {
		return ""
	}
	return mapSQLStateToCode(sqlState(err))
}

func mapSQLStateToCode(state string) string {
	switch state {
	case "42P01":
		return "undefined_table"
	case "3F000":
		return "undefined_schema"
	case "3D000":
		return "undefined_database"
	case "42501":
		return "insufficient_privilege"
	case "28P01", "28000":
		return "authentication_failed"
	case "22P02":
		return "invalid_input"
	}

	switch state[:2] {
	case "22":
		return "data_exception"
	case "28":
		return "authentication_failed"
	case "3D":
		return "undefined_database"
	}
	return "sql_error"
}

// ExtractSQLErrorMessage returns the server message without SQLSTATE noise.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	return strings.TrimPrefix(msg, "ERROR: ")
}

// NewSQLErrorResult creates an error result from a SQL user error.
// Returns nil if the error is not one (caller should return a Go error instead).
func NewSQLErrorResult(err error) *mcp.CallToolResult {
	if !IsSQLUserError(err) {
		return nil
	}
	return NewErrorResult(SQLUserErrorCode(err), ExtractSQLErrorMessage(err))
}

// IsInputError reports whether an error was caused by the caller's input.
// Input errors are logged at DEBUG, not ERROR.
func IsInputError(err error) bool {
	return errorResultFor(err) != nil
}
