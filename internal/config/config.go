// Package config holds the Shell Configuration values enumerated in
// spec.md §3. Values are consumed only at construction; changing them at
// runtime requires restarting the shell.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rustyeddy/mqttsh/internal/logging"
	"github.com/rustyeddy/mqttsh/internal/transport"
)

// DefaultAliases is the default alias table from spec.md §4.9.
func DefaultAliases() map[string]string {
	return map[string]string{
		"q":    "exit",
		"?":    "help",
		"f":    "filter",
		"p":    "pause",
		"r":    "resume",
		"s":    "stats",
		"c":     "filter clear",
		"h":     "history",
		"l":     "last",
		"pub":   "publish",
		"sub":   "subscribe",
		"unsub": "unsubscribe",
		"n":     "next",
		"viz":   "visualize",
		"g":     "filter grep ",
	}
}

// Config is the shell's construction-time configuration.
type Config struct {
	Prompt                   string `toml:"prompt"`
	ChannelBufferSize        int    `toml:"channel_buffer_size"`
	MessageHistoryLimit      int    `toml:"message_history_limit"`
	RateWindowSeconds        int    `toml:"rate_window_seconds"`
	LatencyWindowSize        int    `toml:"latency_window_size"`
	TopTopicsLimit           int    `toml:"top_topics_limit"`
	TopicTruncationThreshold int    `toml:"topic_truncation_threshold"`
	Aliases                  map[string]string
}

// Default returns the shell's default configuration.
func Default() Config {
	return Config{
		Prompt:                   "mqttsh> ",
		ChannelBufferSize:        256,
		MessageHistoryLimit:      1000,
		RateWindowSeconds:        10,
		LatencyWindowSize:        200,
		TopTopicsLimit:           10,
		TopicTruncationThreshold: 128,
		Aliases:                  DefaultAliases(),
	}
}

// WithDefaults fills in zero-value fields with their defaults.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Prompt == "" {
		c.Prompt = d.Prompt
	}
	if c.ChannelBufferSize <= 0 {
		c.ChannelBufferSize = d.ChannelBufferSize
	}
	if c.MessageHistoryLimit <= 0 {
		c.MessageHistoryLimit = d.MessageHistoryLimit
	}
	if c.RateWindowSeconds <= 0 {
		c.RateWindowSeconds = d.RateWindowSeconds
	}
	if c.LatencyWindowSize <= 0 {
		c.LatencyWindowSize = d.LatencyWindowSize
	}
	if c.TopTopicsLimit <= 0 {
		c.TopTopicsLimit = d.TopTopicsLimit
	}
	if c.TopicTruncationThreshold <= 0 {
		c.TopicTruncationThreshold = d.TopicTruncationThreshold
	}
	if c.Aliases == nil {
		c.Aliases = d.Aliases
	}
	return c
}

// Validate checks the configuration for sane values.
func (c Config) Validate() error {
	if c.ChannelBufferSize <= 0 {
		return fmt.Errorf("channel_buffer_size must be positive, got %d", c.ChannelBufferSize)
	}
	if c.MessageHistoryLimit <= 0 {
		return fmt.Errorf("message_history_limit must be positive, got %d", c.MessageHistoryLimit)
	}
	if c.RateWindowSeconds <= 0 {
		return fmt.Errorf("rate_window_seconds must be positive, got %d", c.RateWindowSeconds)
	}
	if c.LatencyWindowSize <= 0 {
		return fmt.Errorf("latency_window_size must be positive, got %d", c.LatencyWindowSize)
	}
	if c.TopTopicsLimit <= 0 {
		return fmt.Errorf("top_topics_limit must be positive, got %d", c.TopTopicsLimit)
	}
	if c.TopicTruncationThreshold <= 0 {
		return fmt.Errorf("topic_truncation_threshold must be positive, got %d", c.TopicTruncationThreshold)
	}
	return nil
}

// Normalize returns c with defaults applied, validated.
func Normalize(c Config) (Config, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// FileConfig is the on-disk TOML representation of the shell's startup
// configuration: the broker connection, the Shell Configuration values,
// logging, and any alias overrides.
type FileConfig struct {
	MQTT    MQTTConfig        `toml:"mqtt"`
	Shell   Config            `toml:"shell"`
	Logging logging.Config    `toml:"logging"`
	Aliases map[string]string `toml:"aliases"`
}

// MQTTConfig holds the broker connection parameters used to build a
// transport.Config.
type MQTTConfig struct {
	Broker       string `toml:"broker"`
	ClientID     string `toml:"client_id"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	CleanSession bool   `toml:"clean_session"`
	QueueSize    int    `toml:"queue_size"`
}

// TransportConfig converts the MQTT section into a transport.Config.
func (m MQTTConfig) TransportConfig() transport.Config {
	return transport.Config{
		Broker:       m.Broker,
		ClientID:     m.ClientID,
		Username:     m.Username,
		Password:     m.Password,
		CleanSession: m.CleanSession,
		QueueSize:    m.QueueSize,
	}
}

// LoadFile reads and parses a TOML configuration file at path.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	if fc.Aliases != nil {
		merged := DefaultAliases()
		for k, v := range fc.Aliases {
			merged[k] = v
		}
		fc.Shell.Aliases = merged
	}
	fc.Shell = fc.Shell.WithDefaults()
	fc.Logging = fc.Logging.WithDefaults()
	return fc, nil
}
