package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/cli"
	"github.com/felipe-tactile/token-watcher/internal/codex"
	"github.com/felipe-tactile/token-watcher/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Remote rate-limit status for configured services",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	avail := cfg.Availability()
	shown := false

	fmt.Println()
	fmt.Println(cli.RenderTitle("RATE LIMITS"))
	fmt.Println()

	if cfg.Services.Claude {
		if !avail.Claude {
			fmt.Println(cli.Muted("  Claude: no credentials at " + cfg.ClaudeCredentialsPath()))
		} else {
			if err := printClaudeStatus(cmd, cfg); err != nil {
				return err
			}
			shown = true
		}
	}

	if cfg.Services.Codex {
		if !avail.Codex {
			fmt.Println(cli.Muted("  Codex: no auth file at " + cfg.CodexAuthPath()))
		} else {
			if err := printCodexStatus(cmd, cfg); err != nil {
				return err
			}
			shown = true
		}
	}

	if !shown {
		fmt.Println(cli.Muted("  No services available. Run `token-watcher setup` to configure."))
	}
	return nil
}

func printClaudeStatus(cmd *cobra.Command, cfg config.Config) error {
	client := anthropic.NewClient(cfg.ClaudeCredentialsPath())
	snap, err := client.FetchRateLimits(cmd.Context())
	if err != nil {
		if errors.Is(err, anthropic.ErrUnauthorized) {
			fmt.Println(cli.Muted("  Claude: token rejected; sign in to the CLI again"))
			return nil
		}
		return err
	}

	fmt.Println("  Claude")
	printWindow("5h window", snap.FiveHour)
	printWindow("7d all models", snap.SevenDay)
	printWindow("7d opus", snap.SevenDayOpus)
	printWindow("7d sonnet", snap.SevenDaySonnet)
	if eu := snap.ExtraUsage; eu != nil && eu.IsEnabled {
		fmt.Printf("    extra usage     $%.2f of $%.2f\n", eu.UsedCredits/100, eu.MonthlyLimit/100)
	}
	fmt.Println()
	return nil
}

func printWindow(label string, w *anthropic.RateLimitWindow) {
	if w == nil {
		return
	}
	reset := ""
	if t, err := time.Parse(time.RFC3339Nano, w.ResetsAt); err == nil {
		reset = "resets " + cli.FormatDuration(int64(time.Until(t).Seconds()))
	}
	fmt.Printf("    %-15s %s %s\n", label, cli.RenderUtilizationBar(w.Utilization, 20), cli.Muted(reset))
}

func printCodexStatus(cmd *cobra.Command, cfg config.Config) error {
	client := codex.NewClient(cfg.CodexAuthPath())
	snap, err := client.FetchRateLimits(cmd.Context())
	if err != nil {
		if errors.Is(err, codex.ErrUnauthorized) {
			fmt.Println(cli.Muted("  Codex: token rejected; sign in to the CLI again"))
			return nil
		}
		return err
	}

	fmt.Printf("  Codex (%s)\n", snap.PlanType)
	printCodexWindow(snap.RateLimits.Primary)
	printCodexWindow(snap.RateLimits.Secondary)
	fmt.Println()
	return nil
}

func printCodexWindow(w *codex.Window) {
	if w == nil {
		return
	}
	label := cli.FormatDuration(int64(w.WindowMinutes) * 60)
	fmt.Printf("    %-15s %s %s\n",
		label+" window",
		cli.RenderUtilizationBar(w.UsedPercent, 20),
		cli.Muted("resets "+cli.FormatDuration(w.ResetsInSeconds)))
}
