// Package logging builds the slog loggers used by the wdl2vidarr and
// vidarr-build commands.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options are the logging flags shared by both commands.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Debug  bool   // forces debug level
}

// NewLoggerWithWriter creates a logger writing to the given writer.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// FromOptions creates a logger from command-line options.
func FromOptions(o Options, w io.Writer) *slog.Logger {
	level := ParseLevel(o.Level)
	if o.Debug {
		level = slog.LevelDebug
	}
	return NewLoggerWithWriter(level, o.Format, w)
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
