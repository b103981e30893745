package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always logs JSON; elsewhere
// LOG_FORMAT=json opts in, otherwise output is human-readable text at debug
// level.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
