// Package cmd implements the token-watcher CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default range:  %s\n", cfg.General.DefaultRange)
	fmt.Printf("    Projects dir:   %s\n", cfg.ProjectsDir())
	fmt.Println()

	avail := cfg.Availability()
	fmt.Println("  [Services]")
	fmt.Printf("    Claude: enabled=%v credentials=%v (%s)\n",
		cfg.Services.Claude, avail.Claude, cfg.ClaudeCredentialsPath())
	fmt.Printf("    Codex:  enabled=%v credentials=%v (%s)\n",
		cfg.Services.Codex, avail.Codex, cfg.CodexAuthPath())
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Path: %s\n", store.Path())
	if cache, cacheErr := store.Open(store.Path()); cacheErr == nil {
		if n, countErr := cache.EntryCount(); countErr == nil {
			fmt.Printf("    Entries: %d\n", n)
		}
		_ = cache.Close()
	}
	fmt.Println()

	fmt.Println("  Run `token-watcher setup` to reconfigure.")
	return nil
}
