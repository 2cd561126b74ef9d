package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the default rule table for a dice count and mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		catalog, err := loadCatalog(cfg.Game.RulesDir, logger)
		if err != nil {
			return err
		}
		mode := rules.Mode(cfg.Game.Mode)
		table, err := catalog.DefaultsFor(cfg.Game.DiceCount, mode)
		if err != nil {
			return err
		}
		render, err := newRenderer(cfg.Presentation.Style)
		if err != nil {
			return err
		}
		out, err := render.Rules(table, cfg.Game.DiceCount, mode)
		if err != nil {
			return err
		}
		logger.Debug("rendered rule table", zap.Int("entries", table.Len()))
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
