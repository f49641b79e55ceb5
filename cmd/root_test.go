package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/botcheck/internal/config"
	"github.com/zjrosen/botcheck/internal/tracing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		initForce, initExporter = false, ""
	})
	err := Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	return path
}

func TestInitConfig_WritesTemplate(t *testing.T) {
	cfgPath := writeConfig(t)
	target := filepath.Join(t.TempDir(), "out", "config.yaml")

	out, err := execute(t, "--config", cfgPath, "init-config", target)
	require.NoError(t, err)
	require.Contains(t, out, "wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfigTemplate(), string(data))
}

func TestInitConfig_RefusesOverwrite(t *testing.T) {
	cfgPath := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "init-config", cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestInitConfig_EnablesTracing(t *testing.T) {
	cfgPath := writeConfig(t)
	target := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "--config", cfgPath, "init-config", target, "--tracing", tracing.ExporterStdout)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(data), "exporter: stdout")
	require.Contains(t, string(data), "enabled: true")
}

func TestWatchCommand_EndToEnd(t *testing.T) {
	cfgPath := writeConfig(t)
	transcriptPath := writeTranscript(t,
		chatReply("1", "tester", "!ping"),
		chatReply("2", "bot", "pong"),
	)

	out, err := execute(t, "--config", cfgPath, "watch",
		"--transcript", transcriptPath, "--channel", "c1", "--self", "tester", "--timeout", "100ms")
	require.NoError(t, err)

	got := decodeReplies(t, out)
	require.Len(t, got, 1)
	require.Equal(t, "pong", got[0].Content)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watcher:\n  default_timeout: -5s\n"), 0o600))

	_, err := execute(t, "--config", path, "init-config", filepath.Join(t.TempDir(), "x.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "watcher.default_timeout")
}

func TestInitConfig_InvalidExporterWritesNothing(t *testing.T) {
	cfgPath := writeConfig(t)
	target := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "--config", cfgPath, "init-config", target, "--tracing", "zipkin")
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracing.exporter")

	_, statErr := os.Stat(target)
	require.True(t, os.IsNotExist(statErr), "no config file should be left after a rejected flag")

	_, err = execute(t, "--config", cfgPath, "init-config", target, "--tracing", tracing.ExporterStdout)
	require.NoError(t, err, "rerun with a valid exporter must not hit the existing-file check")
}
