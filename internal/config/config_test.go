package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/botcheck/internal/tracing"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero durations use defaults", mutate: func(c *Config) { c.Watcher = WatcherConfig{} }},
		{name: "negative timeout", mutate: func(c *Config) { c.Watcher.DefaultTimeout = -time.Second }, wantErr: "watcher.default_timeout"},
		{name: "negative dedupe ttl", mutate: func(c *Config) { c.Watcher.DedupeTTL = -time.Second }, wantErr: "watcher.dedupe_ttl"},
		{name: "negative max buffered", mutate: func(c *Config) { c.Watcher.MaxBuffered = -1 }, wantErr: "watcher.max_buffered"},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "empty log level", mutate: func(c *Config) { c.LogLevel = "" }},
		{name: "negative debounce", mutate: func(c *Config) { c.Transcript.Debounce = -time.Millisecond }, wantErr: "transcript.debounce"},
		{name: "unknown exporter", mutate: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: "tracing.exporter"},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = tracing.ExporterOTLP
			c.Tracing.OTLPEndpoint = ""
		}, wantErr: "otlp_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func loadTemplate(t *testing.T, data []byte) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(data)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	cfg := loadTemplate(t, []byte(DefaultConfigTemplate()))
	require.Equal(t, Defaults(), cfg)
}

func TestWriteDefaultConfig_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".botcheck", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}

func TestTracingWithDefaults(t *testing.T) {
	cfg := Defaults()
	require.Empty(t, cfg.TracingWithDefaults().FilePath, "disabled tracing keeps the empty path")

	cfg.Tracing.Enabled = true
	require.Equal(t, DefaultTracesFilePath(), cfg.TracingWithDefaults().FilePath)

	cfg.Tracing.FilePath = "/tmp/t.jsonl"
	require.Equal(t, "/tmp/t.jsonl", cfg.TracingWithDefaults().FilePath)
}
