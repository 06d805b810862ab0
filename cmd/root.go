// Package cmd implements the blockhand CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/config"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
)

const version = "0.1.0"

var (
	verbose    bool
	configFlag string

	// logger is built in PersistentPreRunE for every subcommand.
	logger = zap.NewNop()
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:               "blockhand",
	Short:             cmdutils.Logo + " blockhand, a chat-driven helper for voxel worlds",
	Long:              cmdutils.Logo + " blockhand turns chat commands into follow, mine and stop actions in a voxel world",
	PersistentPreRunE: setupLogger,
	PersistentPostRun: func(_ *cobra.Command, _ []string) { _ = logger.Sync() },
	SilenceUsage:      true,
}

// setupLogger builds the development logger under --verbose and the
// production logger otherwise.
func setupLogger(_ *cobra.Command, _ []string) error {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (development) logging")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default ~/.blockhand/config.json)")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
