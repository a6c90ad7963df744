// Package logging sets up the two loggers this module uses: a
// slog.Logger for the rules and REST transport packages, and zerolog's
// global logger for the queue/proxy/websocket transport packages —
// matching the split already present in the stack this was built from
// rather than forcing everything onto one logging library.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures both loggers at level and installs slog's default
// logger, returning the slog.Logger for callers that want to thread it
// through explicitly.
func Setup(level string) *slog.Logger {
	slogLevel := parseSlogLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	zerolog.SetGlobalLevel(parseZerologLevel(level))
	zlog.Logger = zlog.Output(os.Stdout).With().Timestamp().Logger()

	return logger
}

func parseSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
