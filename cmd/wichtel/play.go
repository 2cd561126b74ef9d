package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/server"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start an interactive dice session",
	RunE:  runPlay,
}

// runPlay builds a game from cmd's flags and runs it until quit or signal.
func runPlay(cmd *cobra.Command, _ []string) error {
	start := time.Now()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src := dice.NewCryptoSource()
	if seed, _ := cmd.Flags().GetInt64("seed"); seed != 0 {
		src = dice.NewSeededSource(seed)
	}

	g, err := buildGame(cfg, src, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer g.close()

	logger.Info("session ready",
		zap.String("session", g.session.ID()),
		zap.Int("dice_count", cfg.Game.DiceCount),
		zap.String("mode", cfg.Game.Mode),
		zap.Duration("startup", time.Since(start)),
	)

	lc := server.NewLifecycle(logger)
	for _, ns := range g.services(cfg.Metrics.Addr) {
		lc.Add(ns.name, ns.svc)
	}
	return lc.Run(context.Background())
}

// addPlayFlags registers the session flags on fs. Both play and the bare
// root command carry them, since the root command runs play.
func addPlayFlags(fs *pflag.FlagSet) {
	fs.Bool("sound", true, "enable sound cues (terminal bell)")
	fs.String("marker", "Joker", "token that marks a rule as special")
	fs.String("scripts-dir", "", "directory of <mode>.lua special-rule scripts")
	fs.Duration("animation", 1100*time.Millisecond, "roll animation length")
	fs.Duration("watchdog", 0, "force-reveal a roll after this long; 0 disables")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.Int64("seed", 0, "seed for a reproducible roll sequence; 0 uses crypto/rand")
}

func init() {
	rootCmd.AddCommand(playCmd)
	addPlayFlags(playCmd.Flags())
	addPlayFlags(rootCmd.Flags())
	rootCmd.RunE = runPlay
}
