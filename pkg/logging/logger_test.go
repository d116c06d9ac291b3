package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		env     string
		enabled zap.AtomicLevel
	}{
		{"local debug", "debug", "local", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"production info", "info", "production", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"empty env warn", "WARN", "", zap.NewAtomicLevelAt(zap.WarnLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.env)
			require.NoError(t, err)
			defer func() { _ = logger.Sync() }()

			level := tt.enabled.Level()
			assert.True(t, logger.Core().Enabled(level))
			if level > zap.DebugLevel {
				assert.False(t, logger.Core().Enabled(level-1))
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("loud", "local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log level "loud"`)
}
