// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// Configure sets the default logger to a TextHandler on stderr at the given
// level. EDUASSIST_LOG_LEVEL, when set, takes precedence. Unknown values
// mean INFO.
func Configure(lvl string) {
	ConfigureWriter(os.Stderr, lvl)
}

// ConfigureWriter is Configure with an explicit destination.
func ConfigureWriter(w io.Writer, lvl string) {
	if env := os.Getenv("EDUASSIST_LOG_LEVEL"); env != "" {
		lvl = env
	}
	level.Set(ParseLevel(lvl))

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLevel changes the level of the configured logger.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to slog levels.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
