// Package logger builds the application's *slog.Logger.
//
// Development (dev): human-readable text output at DEBUG level.
// Staging and production: machine-readable JSON output, DEBUG in staging
// and INFO in production. JSON logs are easy to ingest by log aggregators.
//
// An explicit level from the config replaces the env's default level.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Environments with their own handler choice.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// New returns a logger for env writing to w. level may be empty.
func New(env, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level, defaultLevel(env)),
	}

	switch env {
	case EnvProd, EnvStaging:
		return slog.New(slog.NewJSONHandler(w, opts))
	default: // "dev" and anything unrecognised
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func defaultLevel(env string) slog.Level {
	if env == EnvProd {
		return slog.LevelInfo
	}

	return slog.LevelDebug
}

// parseLevel converts a config level to slog.Level, falling back to def
// when the level is empty or not recognised.
func parseLevel(level string, def slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

// WithRequestID returns a logger that adds the request id to every entry.
func WithRequestID(log *slog.Logger, requestID string) *slog.Logger {
	return log.With(slog.String("request_id", requestID))
}
