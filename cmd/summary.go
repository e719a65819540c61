package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/cli"
	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Today and 30-day usage at a glance",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	today, err := engine.UsageTotals(cmd.Context(), model.RangeToday)
	if err != nil {
		return err
	}
	month, err := engine.UsageTotals(cmd.Context(), model.RangeMonth)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("USAGE SUMMARY"))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Window", "Tokens", "Lines", "Cost"},
		Rows: [][]string{
			{
				"Today",
				cli.FormatTokens(today.TotalTokens),
				cli.FormatLineCount(today.LinesAdded, today.LinesRemoved),
				cli.FormatCost(today.TotalCost),
			},
			{
				"Last 30d",
				cli.FormatTokens(month.TotalTokens),
				cli.FormatLineCount(month.LinesAdded, month.LinesRemoved),
				cli.FormatCost(month.TotalCost),
			},
		},
	}))

	if month.TotalTokens == 0 {
		fmt.Println(cli.Muted("  No usage found. Is " + engine.ProjectsDir + " the right place?"))
	}

	return nil
}
