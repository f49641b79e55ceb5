// Package config provides configuration types and defaults for botcheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/tracing"
)

// Config holds all configuration options for botcheck.
type Config struct {
	Watcher    WatcherConfig    `mapstructure:"watcher"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Tracing    tracing.Config   `mapstructure:"tracing"`
	Debug      bool             `mapstructure:"debug"`
	LogPath    string           `mapstructure:"log_path"`
	LogLevel   string           `mapstructure:"log_level"` // "debug" (default), "info", "warn" or "error"
}

// WatcherConfig holds event watcher options.
type WatcherConfig struct {
	// DefaultTimeout bounds a Retrieve that does not name its own timeout.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// DedupeTTL is how long a delivered message ID is remembered.
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
	// MaxBuffered caps unread replies per channel. Zero means unbounded.
	MaxBuffered int `mapstructure:"max_buffered"`
}

// TranscriptConfig holds transcript source options.
type TranscriptConfig struct {
	Follow   bool          `mapstructure:"follow"`   // keep tailing after the existing content
	Debounce time.Duration `mapstructure:"debounce"` // coalescing window for file change events
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/botcheck/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "botcheck", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Watcher: WatcherConfig{
			DefaultTimeout: 20 * time.Second,
			DedupeTTL:      10 * time.Minute,
		},
		Transcript: TranscriptConfig{
			Follow:   false,
			Debounce: 100 * time.Millisecond,
		},
		Tracing:  tracing.DefaultConfig(),
		LogPath:  "debug.log",
		LogLevel: "debug",
	}
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if err := ValidateWatcher(cfg.Watcher); err != nil {
		return err
	}
	if cfg.Transcript.Debounce < 0 {
		return fmt.Errorf("transcript.debounce must not be negative, got %s", cfg.Transcript.Debounce)
	}
	if err := cfg.Tracing.Validate(); err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// ValidateWatcher checks watcher durations. Zero means "use the default".
func ValidateWatcher(w WatcherConfig) error {
	if w.DefaultTimeout < 0 {
		return fmt.Errorf("watcher.default_timeout must not be negative, got %s", w.DefaultTimeout)
	}
	if w.DedupeTTL < 0 {
		return fmt.Errorf("watcher.dedupe_ttl must not be negative, got %s", w.DedupeTTL)
	}
	if w.MaxBuffered < 0 {
		return fmt.Errorf("watcher.max_buffered must not be negative, got %d", w.MaxBuffered)
	}
	return nil
}

// TracingWithDefaults fills in the file path for an enabled file exporter.
func (c Config) TracingWithDefaults() tracing.Config {
	t := c.Tracing
	if t.Enabled && t.Exporter == tracing.ExporterFile && t.FilePath == "" {
		t.FilePath = DefaultTracesFilePath()
	}
	return t
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# botcheck configuration

# Event watcher settings
watcher:
  default_timeout: 20s  # How long to wait for a reply when no timeout is given
  dedupe_ttl: 10m       # How long a delivered message ID is remembered
  max_buffered: 0       # Cap on unread replies per channel (0 = unbounded)

# Transcript source settings
transcript:
  follow: false         # Keep reading lines appended to the transcript
  debounce: 100ms       # Coalesce bursts of writes into one read

# OpenTelemetry tracing
tracing:
  enabled: false
  exporter: file        # "none", "file", "stdout", or "otlp"
  # file_path: ~/.config/botcheck/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: botcheck

# Debug logging (also enabled by --debug or BOTCHECK_DEBUG)
debug: false
log_path: debug.log
log_level: debug        # "debug", "info", "warn" or "error"
`
}

// WriteDefaultConfig creates a config file with default settings.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
