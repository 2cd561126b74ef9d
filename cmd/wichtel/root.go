package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/config"
	"github.com/cory-johannsen/wichtel/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "wichtel",
	Short: "Wichtelhelfer rolls the dice for your gift exchange",
	Long: `Wichtelhelfer rolls one or two dice, waits for the roll to finish and
then shows the rule for the rolled total.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to a YAML configuration file")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	pf.Int("dice", 1, "number of dice (1 or 2)")
	pf.String("mode", "classic", "game mode")
	pf.String("rules-dir", "", "directory of YAML rule tables")
	pf.String("style", "auto", "rendering style (auto, dark, light, notty)")
}

// loadConfig reads the configuration for cmd, honouring its flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for cmd.
func newLogger(cmd *cobra.Command, cfg config.Config) (*zap.Logger, error) {
	logFile, _ := cmd.Flags().GetString("log-file")
	var paths []string
	if logFile != "" {
		paths = append(paths, logFile)
	}
	logger, err := observability.NewLogger(cfg.Logging, paths...)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}
