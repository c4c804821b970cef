package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const logLevelEnvKey = "SPRINTWRAP_LOG_LEVEL"

// configureLogger installs a text slog handler on stderr. Level precedence:
// flag, environment, config file, info. An unparseable level falls back to
// the default and returns a warning rather than failing the run.
func configureLogger(flagLevel, configLevel string) string {
	raw := strings.TrimSpace(flagLevel)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv(logLevelEnvKey))
	}
	if raw == "" {
		raw = strings.TrimSpace(configLevel)
	}

	level, err := parseLogLevel(raw)
	installLogger(level)
	if err != nil {
		return fmt.Sprintf("warning: %v; defaulting to info", err)
	}
	return ""
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func installLogger(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
