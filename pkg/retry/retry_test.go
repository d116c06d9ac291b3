package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Equal(t, 5, cfg.MaxSameErrorType)
}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retries   int
		wantErr   bool
		wantCalls int
	}{
		{"succeeds first time", 0, 3, false, 1},
		{"succeeds after retries", 2, 3, false, 3},
		{"exhausts retries", 10, 2, true, 3},
		{"no retries", 10, 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastConfig(tt.retries), func() error {
				calls++
				if calls <= tt.failures {
					return errors.New("authentication failed")
				}
				return nil
			})
			if tt.wantErr {
				assert.EqualError(t, err, "authentication failed")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	calls := 0
	start := time.Now()
	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("connection refused")
		}
		return "pool", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pool", got)
	assert.Equal(t, 2, calls)

	_, err = DoWithResult(context.Background(), nil, func() (int, error) { return 1, nil })
	assert.NoError(t, err)
}

func TestBackoff_CapsDelay(t *testing.T) {
	b := newBackoff(&Config{InitialDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, Multiplier: 4})
	require.NoError(t, b.wait(context.Background()))
	assert.Equal(t, 3*time.Millisecond, b.delay)
	require.NoError(t, b.wait(context.Background()))
	assert.Equal(t, 3*time.Millisecond, b.delay)
}

func TestJitter(t *testing.T) {
	assert.Equal(t, time.Second, jitter(time.Second, 0))
	for i := 0; i < 100; i++ {
		d := jitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"uppercase", errors.New("Connection Refused"), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"no such host", errors.New("lookup db: no such host"), true},
		{"i/o timeout", errors.New("read: i/o timeout"), true},
		{"too many connections", errors.New("FATAL: sorry, too many clients already; too many connections"), true},
		{"postgres starting", errors.New("FATAL: the database system is starting up"), true},
		{"deadlock", errors.New("deadlock detected"), true},
		{"rate limited", errors.New("HTTP 429 too many requests"), true},
		{"overloaded", errors.New("anthropic: overloaded_error"), true},
		{"authentication", errors.New("authentication failed"), false},
		{"permission denied", errors.New("permission denied for table pets"), false},
		{"missing table", errors.New("relation \"pets\" does not exist"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

type declaredError struct{ retryable bool }

func (e declaredError) Error() string     { return "timeout while declared" }
func (e declaredError) IsRetryable() bool { return e.retryable }

func TestIsRetryable_DeclaredWinsOverMessage(t *testing.T) {
	assert.False(t, IsRetryable(declaredError{retryable: false}))
	assert.True(t, IsRetryable(declaredError{retryable: true}))

	wrapped := errors.Join(errors.New("validate candidate"), declaredError{retryable: false})
	assert.False(t, IsRetryable(wrapped))
}

func TestDoIfRetryable(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("connection timeout")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error returns immediately", func(t *testing.T) {
		permanent := errors.New("authentication failed")
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
			calls++
			return permanent
		})
		assert.Same(t, permanent, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		transient := errors.New("connection refused")
		calls := 0
		err := DoIfRetryable(context.Background(), fastConfig(2), func() error {
			calls++
			return transient
		})
		assert.Same(t, transient, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("repeated error kind escalates", func(t *testing.T) {
		cfg := fastConfig(10)
		cfg.MaxSameErrorType = 2
		calls := 0
		err := DoIfRetryable(context.Background(), cfg, func() error {
			calls++
			return errors.New("HTTP 503 service unavailable")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repeated error (2 times, type=503)")
		assert.Equal(t, 2, calls)
	})

	t.Run("nil config", func(t *testing.T) {
		calls := 0
		err := DoIfRetryable(context.Background(), nil, func() error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := DoIfRetryable(ctx, &Config{MaxRetries: 3, InitialDelay: time.Second, Multiplier: 2}, func() error {
			calls++
			return errors.New("connection timeout")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
