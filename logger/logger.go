// Package logger builds the structured loggers used across the site.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel converts a string log level to slog.Level.
// Valid levels: debug, info, warn, error. Anything else yields info and an
// error describing the bad value.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", levelStr)
	}
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatText, FormatJSON, "":
		return true
	}
	return false
}

// New returns a logger writing to w at the given level. format is "text" or
// "json"; anything else falls back to text.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(format) == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("app", "trendstoday")
}

// Init builds a logger from string settings and installs it as the slog
// default. An unknown level is reported on the returned logger and info is
// used.
func Init(w io.Writer, levelStr, format string) *slog.Logger {
	level, err := ParseLevel(levelStr)
	log := New(w, level, format)
	if err != nil {
		log.Warn("falling back to info level", "error", err)
	}
	slog.SetDefault(log)
	return log
}

// Or returns log, or the slog default when log is nil.
func Or(log *slog.Logger) *slog.Logger {
	if log != nil {
		return log
	}
	return slog.Default()
}
