package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/intelligrit/wingstack/internal/airport"
	"github.com/intelligrit/wingstack/internal/config"
	"github.com/intelligrit/wingstack/internal/extractor"
	"github.com/intelligrit/wingstack/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	closeLog   func() error
)

var rootCmd = &cobra.Command{
	Use:           "wingstack",
	Short:         "Coordinate private flight trips, broker quotes and chat with AI-assisted extraction",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.Data.Dir
		}

		level, err := config.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.Log.File, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "Directory for the database and failure log")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// dataPath resolves a configured file name against the data directory unless
// it is already absolute.
func dataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dataDir, name)
}

// buildPipeline wires the completion backend, airport aliases and failure log
// into an orchestrator. The returned cleanup closes the failure log.
func buildPipeline() (*pipeline.Orchestrator, func() error, error) {
	completer, err := extractor.NewCompleter(cfg.Extract)
	if err != nil {
		return nil, nil, err
	}

	aliases, err := airport.LoadAliasFile(cfg.Airports.AliasFile)
	if err != nil {
		return nil, nil, err
	}
	resolver := airport.New(aliases)
	logger.Debug("airport aliases loaded", "count", resolver.Len(), "file", cfg.Airports.AliasFile)

	failures, err := pipeline.OpenFailureLog(dataPath(cfg.Extract.FailureLog))
	if err != nil {
		return nil, nil, err
	}

	gw := extractor.NewGateway(completer, cfg.Extract.MaxTokens, cfg.Extract.Timeout, logger)
	return pipeline.New(gw, resolver, failures, logger), failures.Close, nil
}
