package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a string into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "warning" {
		value = "warn"
	}

	switch value {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported level %q", s)
	}
}

// Build builds a slog.Logger from cfg, along with the resolved level (to
// hand to ApplyGlobal) and an io.Closer that releases any opened log file.
// Output is always a live stream (stdout/stderr/file) — the shell has no
// use for an in-memory log buffer, unlike the teacher's version of this
// function, since log capture for tests goes through HandlerContext.Out
// and internal/testsupport, not through the diagnostics logger.
func Build(cfg Config) (*slog.Logger, slog.Level, io.Closer, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, 0, nil, err
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, 0, nil, err
	}

	var (
		writer io.Writer
		closer io.Closer
	)

	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	case "file":
		file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("open log file: %w", err)
		}
		writer = file
		closer = file
	default:
		return nil, 0, nil, fmt.Errorf("unsupported output %q", cfg.Output)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	logger := slog.New(handler)
	return logger, level, closer, nil
}

// ApplyGlobal applies the logger and level to slog defaults, so packages
// that reach for slog.Default() (rather than taking a *slog.Logger) still
// honor the configured level and output.
func ApplyGlobal(logger *slog.Logger, level slog.Level) {
	if logger == nil {
		return
	}
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
}
