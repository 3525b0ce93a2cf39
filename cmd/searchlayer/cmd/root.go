// Package cmd provides the CLI command surface for the search layer
// (spec §6: ingest, index, query).
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aineshm/searchlayer/internal/config"
	"github.com/aineshm/searchlayer/internal/logging"
	"github.com/aineshm/searchlayer/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the searchlayer CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchlayer",
		Short: "Local-first hybrid search and extractive answering",
		Long: `searchlayer answers natural-language questions over a private
corpus with strict grounding: every emitted claim cites a specific span in
a retrieved document, and the system abstains when evidence is
insufficient or contradictory.

Ingestion and chunking happen upstream of this tool; searchlayer consumes
already-chunked documents (see 'searchlayer ingest'), builds the lexical
and vector indices ('searchlayer index'), and answers queries
('searchlayer query').`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if loggingCleanup != nil {
				loggingCleanup()
				loggingCleanup = nil
			}
			return nil
		},
	}
	cmd.SetVersionTemplate("searchlayer version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.searchlayer/logs/")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the sealed Config from the --config flag, falling back
// to defaults when unset.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
