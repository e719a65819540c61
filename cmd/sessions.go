package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/cli"
	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/model"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [project]",
	Short: "Per-session usage, optionally filtered to one project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
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

	filter := ""
	if len(args) == 1 {
		filter = strings.ToLower(args[0])
	}

	var sessions []model.SessionSummary
	for _, p := range projects {
		if filter != "" && !strings.Contains(strings.ToLower(p.ProjectPath), filter) &&
			!strings.Contains(strings.ToLower(p.ProjectDir), filter) {
			continue
		}
		sessions = append(sessions, p.Sessions...)
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions in the selected time range.")
		return nil
	}

	// Merge projects back into one recency-ordered list.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastTimestamp > sessions[j].LastTimestamp
	})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  %s", rangeLabel(r))))
	fmt.Println()

	now := time.Now()
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			shortSessionID(s.SessionID),
			displayPath(s.ProjectPath),
			cli.FormatRelativeTime(s.LastTimestamp, now),
			cli.FormatNumber(int64(s.MessageCount)),
			cli.FormatTokens(s.Tokens.Total()),
			cli.FormatCost(s.CostUSD),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Project", "Last Active", "Msgs", "Tokens", "Cost"},
		Rows:    rows,
	}))

	return nil
}
