package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/botcheck/internal/config"
	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/tracing"
)

var (
	version     = "dev"
	cfgFile     string
	debugFlag   bool
	verboseFlag bool
	cfg         config.Config
	configErr   error
	tracer      trace.Tracer

	cleanups []func()
)

var rootCmd = &cobra.Command{
	Use:   "botcheck",
	Short: "Drive a chat bot and observe its replies",
	Long: `botcheck collects the replies a chat bot posts in response to test commands.

Messages are read from a JSON Lines transcript (one message per line) and fed
through a per-channel event watcher that buffers replies until they are asked for.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .botcheck/config.yaml, then ~/.config/botcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs to log_path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"mirror log entries to stderr")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("watcher.default_timeout", defaults.Watcher.DefaultTimeout)
	viper.SetDefault("watcher.dedupe_ttl", defaults.Watcher.DedupeTTL)
	viper.SetDefault("watcher.max_buffered", defaults.Watcher.MaxBuffered)
	viper.SetDefault("transcript.follow", defaults.Transcript.Follow)
	viper.SetDefault("transcript.debounce", defaults.Transcript.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("log_path", defaults.LogPath)
	viper.SetDefault("log_level", defaults.LogLevel)

	// BOTCHECK_DEBUG, BOTCHECK_WATCHER_DEFAULT_TIMEOUT, ...
	viper.SetEnvPrefix("botcheck")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .botcheck/config.yaml (current directory)
		// 2. ~/.config/botcheck/config.yaml (user config)
		if _, err := os.Stat(".botcheck/config.yaml"); err == nil {
			viper.SetConfigFile(".botcheck/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "botcheck"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		// Running on defaults is fine; a broken file is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config: %w", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil && configErr == nil {
		configErr = fmt.Errorf("decoding config: %w", err)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch {
	case debugFlag || cfg.Debug:
		cleanup, err := log.Init(cfg.LogPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		cleanups = append(cleanups, cleanup)
	case verboseFlag:
		log.InitWriter(nil)
	}
	if cfg.LogLevel != "" {
		level, _ := log.ParseLevel(cfg.LogLevel) // checked by config.Validate
		log.SetMinLevel(level)
	}
	if verboseFlag {
		ctx, cancel := context.WithCancel(context.Background())
		cleanups = append(cleanups, cancel)
		if entries := log.Subscribe(ctx); entries != nil {
			go mirrorLogs(entries, cmd.ErrOrStderr())
		}
	}
	log.Info(log.CatConfig, "botcheck starting", "version", version, "config", viper.ConfigFileUsed())

	provider, err := tracing.NewProvider(cfg.TracingWithDefaults())
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	tracer = provider.Tracer()
	if provider.Enabled() {
		cleanups = append(cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(ctx); err != nil {
				log.ErrorErr(log.CatTrace, "tracing shutdown failed", err)
			}
		})
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	runCleanups()
	return nil
}

// runCleanups releases what setup acquired. PersistentPostRunE is skipped
// when RunE fails, so Execute calls it as well.
func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func mirrorLogs(entries <-chan log.LogEvent, w io.Writer) {
	for ev := range entries {
		_, _ = io.WriteString(w, ev.Payload)
	}
}

// Execute runs the root command
func Execute() error {
	defer runCleanups()
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
