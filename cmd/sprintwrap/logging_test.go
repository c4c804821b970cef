package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		level, err := parseLogLevel(tt.raw)
		require.NoError(t, err, "level %q", tt.raw)
		assert.Equal(t, tt.want, level, "level %q", tt.raw)
	}
}

func TestParseLogLevelRejectsGarbage(t *testing.T) {
	_, err := parseLogLevel("loud")
	assert.Error(t, err)
}

func TestConfigureLoggerWarnsOnBadLevel(t *testing.T) {
	warning := configureLogger("nope", "")
	assert.Contains(t, warning, "nope")

	assert.Empty(t, configureLogger("debug", ""))
	assert.Empty(t, configureLogger("", "info"))
}
