package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-relate/pkg/logging"
	"github.com/ekaya-inc/ekaya-relate/pkg/report"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteReport writes doc as JSON, or as YAML when the request asks for it
// with ?format=yaml.
func WriteReport(w http.ResponseWriter, r *http.Request, doc *report.Document) error {
	if f, err := report.ParseFormat(r.URL.Query().Get("format")); err == nil && f == report.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
		return report.WriteYAML(w, doc)
	}
	return WriteJSON(w, http.StatusOK, doc)
}

// writeServiceError maps service errors to HTTP statuses. Unexpected errors are
// logged and reported as 500 without internals.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := "analysis failed"

	switch {
	case errors.Is(err, apperrors.ErrUnsupportedSource):
		status, code, message = http.StatusBadRequest, "unsupported_source", err.Error()
	case errors.Is(err, apperrors.ErrNoTables):
		status, code, message = http.StatusUnprocessableEntity, "no_tables", err.Error()
	case errors.Is(err, apperrors.ErrDuplicateTable):
		status, code, message = http.StatusUnprocessableEntity, "duplicate_table", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, apperrors.ErrStoreDisabled):
		status, code, message = http.StatusNotImplemented, "store_disabled", err.Error()
	case errors.Is(err, fs.ErrNotExist):
		status, code, message = http.StatusBadRequest, "source_not_found", logging.SanitizeError(err)
	case errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusGatewayTimeout, "timeout", "analysis did not finish within the request timeout"
	default:
		logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
