package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// Test Plan for New:
// - Level strings map onto zap levels case-insensitively
// - verbose forces debug
// - Both encodings build
// - Unknown level or format is an error

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		verbose bool
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"info", false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"WARN", false, zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", false, zapcore.ErrorLevel, zapcore.WarnLevel},
		{"error", true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
	}

	for _, tt := range tests {
		logger, err := New(tt.level, "console", tt.verbose)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.enabled), "%s should enable %s", tt.level, tt.enabled)
		assert.False(t, logger.Core().Enabled(tt.muted), "%s should mute %s", tt.level, tt.muted)
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	logger, err := New("debug", "json", false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, err := New("loud", "console", false)
	assert.Error(t, err)

	_, err = New("info", "xml", false)
	assert.Error(t, err)
}
