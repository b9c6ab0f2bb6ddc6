package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a JSON logger in production and a text logger otherwise.
func NewLogger(a App) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(a.LogLevel)}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if a.Production() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("env", a.Env)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
