package logging

import (
	"regexp"
)

const (
	// MaxValueLogLength caps sample values and LLM responses written to logs.
	MaxValueLogLength = 100
	// RedactedText replaces secrets.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// user:pass@host in URLs
	userInfoPattern = regexp.MustCompile(`://[^:/\s]+:[^@]+@[^/\s]+`)

	// Authorization headers echoed in provider errors
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._~+/=-]+`)

	// api_key=..., x-api-key: ...
	apiKeyParamPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)(=|:\s*)[A-Za-z0-9._-]{20,}`)

	// OpenAI and Anthropic style secret keys
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)
)

// SanitizeConnectionString removes credentials from a DSN or URL before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return userInfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError returns err's message with credentials and API keys removed.
// Loader and provider errors often echo the DSN or request headers.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := SanitizeConnectionString(err.Error())
	msg = bearerPattern.ReplaceAllString(msg, "Bearer "+RedactedText)
	msg = apiKeyParamPattern.ReplaceAllString(msg, "${1}${2}"+RedactedText)
	return secretKeyPattern.ReplaceAllString(msg, RedactedText)
}

// TruncateString truncates s to maxLen bytes and adds an ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
