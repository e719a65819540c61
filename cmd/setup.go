package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/source"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()
	if flagClaudeDir != "" {
		cfg.General.ClaudeDir = flagClaudeDir
	}

	projects, _ := source.ListProjects(cfg.ProjectsDir())
	avail := cfg.Availability()

	fmt.Println()
	fmt.Println("  Welcome to token-watcher!")
	if len(projects) > 0 {
		fmt.Printf("  Found %d projects under %s\n", len(projects), cfg.ProjectsDir())
	} else {
		fmt.Printf("  No projects found under %s yet.\n", cfg.ProjectsDir())
	}
	fmt.Println()

	claudeNote := "credentials found"
	if !avail.Claude {
		claudeNote = "no credentials on disk"
	}
	codexNote := "auth file found"
	if !avail.Codex {
		codexNote = "no auth file on disk"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default time range").
				Options(
					huh.NewOption("Today", "today"),
					huh.NewOption("Last 7 days", "week"),
					huh.NewOption("Last 30 days", "month"),
					huh.NewOption("All time", "all"),
				).
				Value(&cfg.General.DefaultRange),
			huh.NewConfirm().
				Title("Query Claude rate limits? ("+claudeNote+")").
				Value(&cfg.Services.Claude),
			huh.NewConfirm().
				Title("Query Codex rate limits? ("+codexNote+")").
				Value(&cfg.Services.Codex),
			huh.NewSelect[string]().
				Title("Dashboard theme").
				Options(
					huh.NewOption("Flexoki Dark", "flexoki-dark"),
					huh.NewOption("Catppuccin Mocha", "catppuccin-mocha"),
				).
				Value(&cfg.Appearance.Theme),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("  Saved %s\n", config.ConfigPath())
	return nil
}
