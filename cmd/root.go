package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/model"
	"github.com/felipe-tactile/token-watcher/internal/pipeline"
	"github.com/felipe-tactile/token-watcher/internal/store"
)

var (
	flagRange     string
	flagClaudeDir string
	flagNoCache   bool
	flagQuiet     bool
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "token-watcher",
	Short: "Local usage accounting for AI coding sessions",
	Long:  "Track tokens, costs, and rate limits across your Claude Code projects.",
	RunE:  runTUI,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRange, "range", "r", "", "Time range: today, week, month, all")
	rootCmd.PersistentFlags().StringVarP(&flagClaudeDir, "claude-dir", "d", "", "Claude data directory (default ~/.claude)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	switch {
	case flagVerbose:
		logger.SetLevel(log.DebugLevel)
	case flagQuiet:
		logger.SetLevel(log.ErrorLevel)
	}
	return logger
}

// loadRange resolves the active time range: flag first, then config default,
// then "today". An unknown name is an error rather than a silent fallback.
func loadRange(cfg config.Config) (model.TimeRange, error) {
	name := flagRange
	if name == "" {
		name = cfg.General.DefaultRange
	}
	if name == "" {
		return model.RangeToday, nil
	}
	r, ok := model.ParseTimeRange(name)
	if !ok {
		return r, fmt.Errorf("unknown range %q (want today, week, month, or all)", name)
	}
	return r, nil
}

// newEngine builds the query engine shared by all commands. The returned
// cleanup closes the cache and is safe to call when caching is disabled.
func newEngine(cfg config.Config, logger *log.Logger) (*pipeline.Engine, func()) {
	if flagClaudeDir != "" {
		cfg.General.ClaudeDir = flagClaudeDir
	}

	engine := &pipeline.Engine{
		ProjectsDir: cfg.ProjectsDir(),
		Log:         logger,
	}

	cleanup := func() {}
	if !flagNoCache {
		cache, err := store.Open(store.Path())
		if err != nil {
			logger.Debug("cache unavailable, doing full parse", "err", err)
		} else {
			engine.Cache = cache
			cleanup = func() { _ = cache.Close() }
		}
	}
	return engine, cleanup
}

func rangeLabel(r model.TimeRange) string {
	switch r {
	case model.RangeToday:
		return "Today"
	case model.RangeWeek:
		return "Last 7d"
	case model.RangeMonth:
		return "Last 30d"
	default:
		return "All time"
	}
}

func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		if rel, relErr := filepath.Rel(home, path); relErr == nil && !filepath.IsAbs(rel) && rel != ".." && !isParentRef(rel) {
			return "~/" + rel
		}
	}
	return path
}

func isParentRef(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
