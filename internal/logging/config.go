package logging

import (
	"fmt"
	"strings"
)

const (
	DefaultLevel  = "info"
	DefaultFormat = "text"
	DefaultOutput = "stdout"
)

// Config configures the shell's own structured diagnostics — connection
// state, queue overflow, handler/action failures — written via log/slog.
// It is separate from internal/logsink, which logs matched messages
// themselves rather than shell diagnostics.
type Config struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	Output   string `toml:"output"`
	FilePath string `toml:"file_path,omitempty"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  DefaultLevel,
		Format: DefaultFormat,
		Output: DefaultOutput,
	}
}

// WithDefaults fills in empty fields with defaults.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = DefaultLevel
	}
	if strings.TrimSpace(c.Format) == "" {
		c.Format = DefaultFormat
	}
	if strings.TrimSpace(c.Output) == "" {
		c.Output = DefaultOutput
	}
	return c
}

// Normalize lowercases string fields and clears FilePath when it isn't used.
func (c Config) Normalize() Config {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
	if c.Output != "file" {
		c.FilePath = ""
	}
	return c
}

// Validate checks the configuration for supported values.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}

	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}

	switch c.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("unsupported output %q", c.Output)
	}

	if c.Output == "file" && strings.TrimSpace(c.FilePath) == "" {
		return fmt.Errorf("file output requires file_path")
	}
	return nil
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg = cfg.WithDefaults().Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
