package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/cli"
	"github.com/felipe-tactile/token-watcher/internal/config"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Project usage ranking",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	r, err := loadRange(cfg)
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	projects, err := engine.ProjectSummaries(cmd.Context(), r)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("\n  No usage in the selected time range.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROJECTS  %s", rangeLabel(r))))
	fmt.Println()

	rows := make([][]string, 0, len(projects))
	for _, ps := range projects {
		rows = append(rows, []string{
			displayPath(ps.ProjectPath),
			cli.FormatNumber(int64(ps.SessionCount)),
			cli.FormatTokens(ps.Tokens.Total()),
			cli.FormatLineCount(ps.LinesAdded, ps.LinesRemoved),
			cli.FormatCost(ps.TotalCost),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Sessions", "Tokens", "Lines", "Cost"},
		Rows:    rows,
	}))

	return nil
}
