package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/config"
	"github.com/felipe-tactile/token-watcher/internal/daemon"
)

var (
	flagWatchAddr     string
	flagWatchInterval time.Duration
	flagWatchBuffer   int
	flagWatchNoLimits bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a foreground usage monitor with HTTP/SSE endpoints",
	Long: "Polls local transcripts (and optionally the rate-limit API) on an interval\n" +
		"and serves /healthz, /v1/status, /v1/events, and /v1/stream on localhost.",
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchAddr, "addr", "127.0.0.1:8787", "Listen address")
	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", 30*time.Second, "Poll interval")
	watchCmd.Flags().IntVar(&flagWatchBuffer, "events-buffer", 200, "Events to retain for /v1/events")
	watchCmd.Flags().BoolVar(&flagWatchNoLimits, "no-limits", false, "Skip rate-limit API polling")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	var limits *anthropic.Client
	pollLimits := !flagWatchNoLimits && cfg.Services.Claude && cfg.Availability().Claude
	if pollLimits {
		limits = anthropic.NewClient(cfg.ClaudeCredentialsPath())
	}

	if err := engine.PruneCache(); err != nil {
		logger.Debug("cache prune failed", "err", err)
	}

	svc := daemon.New(daemon.Config{
		Interval:     flagWatchInterval,
		Addr:         flagWatchAddr,
		EventsBuffer: flagWatchBuffer,
		RateLimits:   pollLimits,
	}, engine, limits, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching", "addr", flagWatchAddr, "interval", flagWatchInterval, "dir", engine.ProjectsDir)
	if err := svc.Run(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
