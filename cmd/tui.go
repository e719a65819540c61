package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/tui"
	"github.com/felipe-tactile/token-watcher/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	r, err := loadRange(cfg)
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	logger := newLogger()
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	var limits *anthropic.Client
	if cfg.Services.Claude && cfg.Availability().Claude {
		limits = anthropic.NewClient(cfg.ClaudeCredentialsPath())
	}

	if err := tui.Run(engine, limits, r); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
