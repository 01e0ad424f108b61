// Package logging builds the slog.Logger every other package in this
// repository accepts via its functional options (mirroring the
// teacher's broker.WithLogger/broker.New call into
// logging.NewFromEnv()). TEZSIGN_LOG_FILE routes output through a
// rotating lumberjack sink; unset, logs go to stderr.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLogFile  = "TEZSIGN_LOG_FILE"
	envLogLevel = "TEZSIGN_LOG_LEVEL"

	defaultMaxSizeMB  = 100
	defaultMaxBackups = 5
	defaultMaxAgeDays = 28
)

// NewFromEnv builds a structured logger from TEZSIGN_LOG_FILE and
// TEZSIGN_LOG_LEVEL. Both are optional; the zero-value result logs
// info-and-above text lines to stderr (the rotating file sink writes
// JSON lines).
func NewFromEnv() (*slog.Logger, error) {
	level := parseLevel(os.Getenv(envLogLevel))

	var handler slog.Handler
	if path := os.Getenv(envLogFile); path != "" {
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
			Compress:   true,
		}
		handler = slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
