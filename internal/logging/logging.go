package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps the LOG_LEVEL vocabulary onto slog levels. Unknown values
// fall back to def.
func ParseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "production", "prod":
		return slog.LevelError
	}
	return def
}

// Init installs the CLI logger. Production only shows errors unless
// LOG_LEVEL says otherwise.
func Init() {
	slog.SetDefault(New(os.Getenv("LOG_LEVEL"), "text", os.Stderr, slog.LevelError))
}

// New builds a text or json logger writing to w.
func New(level, format string, w io.Writer, def slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level, def)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
