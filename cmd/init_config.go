package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/botcheck/internal/config"
	"github.com/zjrosen/botcheck/internal/tracing"
)

const defaultConfigPath = ".botcheck/config.yaml"

var (
	initForce    bool
	initExporter string
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a default config file",
	Long: `Write a commented default config file (default: .botcheck/config.yaml).

With --tracing, tracing is enabled in the written file using the named exporter.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	initConfigCmd.Flags().StringVar(&initExporter, "tracing", "", `enable tracing with this exporter ("file", "stdout", "otlp")`)
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := defaultConfigPath
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	// Validate before writing so a bad flag leaves nothing behind.
	var tc tracing.Config
	if initExporter != "" {
		tc = config.Defaults().Tracing
		tc.Enabled = true
		tc.Exporter = initExporter
		if tc.Exporter == tracing.ExporterFile {
			tc.FilePath = config.DefaultTracesFilePath()
		}
		if err := tc.Validate(); err != nil {
			return err
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}

	if initExporter != "" {
		if err := config.SaveTracing(path, tc); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
