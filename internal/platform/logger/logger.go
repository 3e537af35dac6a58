package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/phrazzld/kotoba-api/internal/config"
)

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatTint = "tint"
)

// Setup configures the application logger from cfg, writing to w, and sets
// it as the slog default.
func Setup(cfg config.ServerConfig, w io.Writer) *slog.Logger {
	l := New(cfg, w)
	slog.SetDefault(l)
	return l
}

// New builds a logger for cfg that writes to w. An unknown level falls back
// to info and an unknown format falls back to JSON, each with a warning.
func New(cfg config.ServerConfig, w io.Writer) *slog.Logger {
	level, ok := ParseLevel(cfg.LogLevel)
	if !ok {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case FormatText:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case FormatTint:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case FormatJSON, "":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Warn("invalid log format configured, using json",
			"configured_format", cfg.LogFormat)
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// ParseLevel maps a case-insensitive level name to a slog.Level. It
// returns slog.LevelInfo and false for unknown names.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
