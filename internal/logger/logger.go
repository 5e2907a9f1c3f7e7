package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// DefaultPath is where the log file goes unless configured otherwise
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "w90parse", "w90parse.log")
}

func levelFromString(s string) (l slog.Level, ok bool) {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf":
		return slog.LevelInfo, true
	case "warn", "wrn", "warning":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ParseLevel reads a level name; unknown names are an error
func ParseLevel(s string) (slog.Level, error) {
	l, ok := levelFromString(s)
	if !ok {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// New returns a text logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *slog.Logger {
	loglevel, _ := levelFromString(level)

	// slog defaults to logging in the order of time, level, msg, and other attributes.
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: loglevel})
	return slog.New(handler)
}

// InitLogger opens (appending) the log file at path, installs the logger as
// the slog default and returns the file for the caller to close.
func InitLogger(path, level string) (io.Closer, error) {
	logDir := filepath.Dir(path)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	slog.SetDefault(New(logFile, level))
	return logFile, nil
}
