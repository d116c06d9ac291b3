package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType indicates which part of the provider setup caused an error.
type ErrorType string

const (
	ErrorTypeNone      ErrorType = ""
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeParse     ErrorType = "parse"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// classification maps error text to an error kind. First match wins.
type classification struct {
	matches   func(raw, lower string, status int) bool
	errType   ErrorType
	message   string
	retryable bool
}

var classifications = []classification{
	{
		matches: func(raw, lower string, status int) bool {
			return status == 401 || status == 403 || strings.Contains(lower, "unauthorized") ||
				strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid x-api-key")
		},
		errType: ErrorTypeAuth, message: "authentication failed",
	},
	{
		matches: func(raw, lower string, status int) bool {
			return strings.Contains(lower, "model") &&
				(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist"))
		},
		errType: ErrorTypeModel, message: "model not found",
	},
	{
		matches: func(raw, lower string, status int) bool { return status == 404 },
		errType: ErrorTypeEndpoint, message: "endpoint not found",
	},
	{
		matches: func(raw, lower string, status int) bool {
			return strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host")
		},
		errType: ErrorTypeEndpoint, message: "connection failed", retryable: true,
	},
	{
		matches: func(raw, lower string, status int) bool {
			return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
		},
		errType: ErrorTypeEndpoint, message: "request timeout", retryable: true,
	},
	{
		matches: func(raw, lower string, status int) bool {
			return status == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "overloaded")
		},
		errType: ErrorTypeRateLimit, message: "rate limited", retryable: true,
	},
	{
		matches: func(raw, lower string, status int) bool { return status >= 500 && status <= 599 },
		errType: ErrorTypeEndpoint, message: "server error", retryable: true,
	},
}

var statusCodePattern = regexp.MustCompile(`\b([45]\d{2})\b`)

// extractStatusCode finds the first 4xx/5xx code in an error message.
func extractStatusCode(s string) int {
	m := statusCodePattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// ClassifyError categorizes an error and returns a structured Error.
// Context cancellation is never retryable: the caller gave up.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.Canceled) {
		return NewError(ErrorTypeUnknown, "request canceled", false, err)
	}

	raw := err.Error()
	lower := strings.ToLower(raw)
	status := extractStatusCode(raw)

	for _, c := range classifications {
		if c.matches(raw, lower, status) {
			classified := NewError(c.errType, c.message, c.retryable, err)
			classified.StatusCode = status
			return classified
		}
	}

	classified := NewError(ErrorTypeUnknown, "llm error", false, err)
	classified.StatusCode = status
	return classified
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
