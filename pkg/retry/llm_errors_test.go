package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-relate/pkg/llm"
	"github.com/ekaya-inc/ekaya-relate/pkg/retry"
)

func TestIsRetryable_WithLLMError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "server error",
			err:      llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503")),
			expected: true,
		},
		{
			name:     "rate limited",
			err:      llm.NewError(llm.ErrorTypeRateLimit, "rate limited", true, errors.New("HTTP 429")),
			expected: true,
		},
		{
			name:     "bad key",
			err:      llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401")),
			expected: false,
		},
		{
			name:     "unknown model mentioning a timeout",
			err:      llm.NewError(llm.ErrorTypeModel, "model not found", false, errors.New("timeout resolving model")),
			expected: false,
		},
		{
			name:     "wrapped llm error",
			err:      fmt.Errorf("validate pets.patient_id: %w", llm.NewError(llm.ErrorTypeAuth, "bad key", false, nil)),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, retry.IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_WithLLMError(t *testing.T) {
	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	t.Run("retries retryable llm errors", func(t *testing.T) {
		calls := 0
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503"))
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent llm errors", func(t *testing.T) {
		permanent := llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401"))
		calls := 0
		err := retry.DoIfRetryable(context.Background(), cfg, func() error {
			calls++
			return permanent
		})
		assert.Same(t, permanent, err)
		assert.Equal(t, 1, calls)
	})
}
