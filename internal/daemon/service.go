// Package daemon provides the long-running background usage monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/model"
	"github.com/felipe-tactile/token-watcher/internal/pipeline"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	RateLimits   bool // also poll the remote rate-limit API
}

// Snapshot is a compact usage state for status/event payloads.
type Snapshot struct {
	At           time.Time `json:"at"`
	TodayTokens  int64     `json:"today_tokens"`
	TodayCost    float64   `json:"today_cost_usd"`
	MonthTokens  int64     `json:"month_tokens"`
	MonthCost    float64   `json:"month_cost_usd"`
	LinesAdded   int       `json:"lines_added"`
	LinesRemoved int       `json:"lines_removed"`

	FiveHourPct *float64 `json:"five_hour_pct,omitempty"`
	SevenDayPct *float64 `json:"seven_day_pct,omitempty"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	TodayTokens  int64   `json:"today_tokens"`
	TodayCost    float64 `json:"today_cost_usd"`
	MonthTokens  int64   `json:"month_tokens"`
	MonthCost    float64 `json:"month_cost_usd"`
	LinesAdded   int     `json:"lines_added"`
	LinesRemoved int     `json:"lines_removed"`
}

func (d Delta) isZero() bool {
	return d.TodayTokens == 0 &&
		d.TodayCost == 0 &&
		d.MonthTokens == 0 &&
		d.MonthCost == 0 &&
		d.LinesAdded == 0 &&
		d.LinesRemoved == 0
}

// Event is emitted whenever the usage snapshot updates.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	ProjectsDir     string    `json:"projects_dir"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	engine *pipeline.Engine
	limits *anthropic.Client // nil disables rate-limit polling
	logger *log.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service polling the given engine.
func New(cfg Config, engine *pipeline.Engine, limits *anthropic.Client, logger *log.Logger) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if !cfg.RateLimits {
		limits = nil
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		cfg:       cfg,
		engine:    engine,
		limits:    limits,
		logger:    logger,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	snap, err := s.collect(ctx)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		s.logger.Error("poll failed", "err", err)
		return
	}
	snap.At = now

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "usage_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

// collect computes both accounting windows and, when configured, the remote
// rate-limit windows. Rate-limit failures only log; local accounting is the
// primary signal and should not go dark because the API is unreachable.
func (s *Service) collect(ctx context.Context) (Snapshot, error) {
	today, err := s.engine.UsageTotals(ctx, model.RangeToday)
	if err != nil {
		return Snapshot{}, err
	}
	month, err := s.engine.UsageTotals(ctx, model.RangeMonth)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TodayTokens:  today.TotalTokens,
		TodayCost:    today.TotalCost,
		MonthTokens:  month.TotalTokens,
		MonthCost:    month.TotalCost,
		LinesAdded:   month.LinesAdded,
		LinesRemoved: month.LinesRemoved,
	}

	if s.limits != nil {
		limits, err := s.limits.FetchRateLimits(ctx)
		if err != nil {
			s.logger.Warn("rate limit fetch failed", "err", err)
		} else {
			if limits.FiveHour != nil {
				v := limits.FiveHour.Utilization
				snap.FiveHourPct = &v
			}
			if limits.SevenDay != nil {
				v := limits.SevenDay.Utilization
				snap.SevenDayPct = &v
			}
		}
	}
	return snap, nil
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		TodayTokens:  curr.TodayTokens - prev.TodayTokens,
		TodayCost:    curr.TodayCost - prev.TodayCost,
		MonthTokens:  curr.MonthTokens - prev.MonthTokens,
		MonthCost:    curr.MonthCost - prev.MonthCost,
		LinesAdded:   curr.LinesAdded - prev.LinesAdded,
		LinesRemoved: curr.LinesRemoved - prev.LinesRemoved,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		ProjectsDir:     s.engine.ProjectsDir,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
