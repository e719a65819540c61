// Package pipeline turns discovered transcript files into per-project and
// global usage summaries.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/felipe-tactile/token-watcher/internal/model"
	"github.com/felipe-tactile/token-watcher/internal/source"
	"github.com/felipe-tactile/token-watcher/internal/store"
)

// Engine is the top-level query entry point. Every query recomputes from the
// transcript files; the optional cache only skips reparsing unchanged files.
type Engine struct {
	ProjectsDir string
	Cache       *store.Cache // nil disables caching
	Log         *log.Logger  // nil disables diagnostics
	Now         func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *log.Logger {
	if e.Log != nil {
		return e.Log
	}
	return log.Default()
}

// ProjectSummaries aggregates every project for the requested range, sorted
// by total cost descending. Projects with no qualifying sessions are omitted.
func (e *Engine) ProjectSummaries(ctx context.Context, r model.TimeRange) ([]model.ProjectSummary, error) {
	projects, err := source.ListProjects(e.ProjectsDir)
	if err != nil {
		return nil, fmt.Errorf("listing projects in %s: %w", e.ProjectsDir, err)
	}

	rangeStart, _ := r.Start(e.now())

	var summaries []model.ProjectSummary
	for _, proj := range projects {
		if ps := e.aggregateProject(ctx, proj, r, rangeStart); ps != nil {
			summaries = append(summaries, *ps)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalCost > summaries[j].TotalCost
	})
	return summaries, nil
}

// UsageTotals flattens ProjectSummaries into one global aggregate.
func (e *Engine) UsageTotals(ctx context.Context, r model.TimeRange) (model.UsageTotals, error) {
	summaries, err := e.ProjectSummaries(ctx, r)
	if err != nil {
		return model.UsageTotals{}, err
	}

	var totals model.UsageTotals
	for _, ps := range summaries {
		totals.TotalTokens += ps.Tokens.Total()
		totals.TotalCost += ps.TotalCost
		totals.LinesAdded += ps.LinesAdded
		totals.LinesRemoved += ps.LinesRemoved
	}
	return totals, nil
}

// aggregateProject fans out the session parser over one project's transcript
// files and reduces the results. Returns nil when the project has no
// qualifying sessions in the window, in which case it is omitted entirely.
//
// Session-level failures never escalate: an unreadable or empty file simply
// contributes nothing.
func (e *Engine) aggregateProject(ctx context.Context, proj source.ProjectDir, r model.TimeRange, rangeStart time.Time) *model.ProjectSummary {
	files := source.ListSessionFiles(proj.DirPath)
	if len(files) == 0 {
		return nil
	}

	// For "today" only, files last modified before the window start cannot
	// have in-window appends and are skipped without scanning. This is a
	// speed heuristic, not a correctness rule; wider ranges always scan,
	// since an old mtime says nothing about a file's earlier contents.
	if r == model.RangeToday && !rangeStart.IsZero() {
		n := 0
		for _, name := range files {
			info, err := os.Stat(filepath.Join(proj.DirPath, name))
			if err != nil || info.ModTime().Before(rangeStart) {
				continue
			}
			files[n] = name
			n++
		}
		files = files[:n]
	}

	results := make([]*model.SessionSummary, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxScanConcurrency())

	for i, name := range files {
		path := filepath.Join(proj.DirPath, name)
		g.Go(func() error {
			results[i] = e.scanSession(path, rangeStart)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures resolve to nil results

	var summary model.ProjectSummary
	for _, s := range results {
		if s == nil {
			continue
		}
		s.ProjectDir = proj.DirName
		s.ProjectPath = proj.OriginalPath
		summary.Sessions = append(summary.Sessions, *s)
		summary.Tokens = summary.Tokens.Add(s.Tokens)
		summary.TotalCost += s.CostUSD
		summary.LinesAdded += s.LinesAdded
		summary.LinesRemoved += s.LinesRemoved
	}
	if len(summary.Sessions) == 0 {
		return nil
	}

	sort.Slice(summary.Sessions, func(i, j int) bool {
		return summary.Sessions[i].LastTimestamp > summary.Sessions[j].LastTimestamp
	})

	summary.ProjectDir = proj.DirName
	summary.ProjectPath = proj.OriginalPath
	summary.SessionCount = len(summary.Sessions)
	return &summary
}

// PruneCache drops cache entries for transcripts that no longer exist on
// disk. No-op without a cache.
func (e *Engine) PruneCache() error {
	if e.Cache == nil {
		return nil
	}
	projects, err := source.ListProjects(e.ProjectsDir)
	if err != nil {
		return err
	}
	valid := make(map[string]struct{})
	for _, proj := range projects {
		for _, name := range source.ListSessionFiles(proj.DirPath) {
			valid[filepath.Join(proj.DirPath, name)] = struct{}{}
		}
	}
	return e.Cache.Prune(valid)
}

// scanSession parses one transcript, consulting the cache first when one is
// configured. Cache trouble quietly falls back to a direct parse.
func (e *Engine) scanSession(path string, rangeStart time.Time) *model.SessionSummary {
	if e.Cache == nil {
		return e.parse(path, rangeStart)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	var sinceUnix int64
	if !rangeStart.IsZero() {
		sinceUnix = rangeStart.Unix()
	}
	mtimeNs := info.ModTime().UnixNano()
	size := info.Size()

	if cached, ok := e.Cache.Get(path, sinceUnix, mtimeNs, size); ok {
		return cached
	}

	s := e.parse(path, rangeStart)
	if err := e.Cache.Put(path, sinceUnix, mtimeNs, size, s); err != nil {
		e.logger().Debug("caching session failed", "path", path, "err", err)
	}
	return s
}

func (e *Engine) parse(path string, rangeStart time.Time) *model.SessionSummary {
	result := source.ParseSessionFile(path, rangeStart)
	if result.ParseErrors > 0 {
		e.logger().Debug("skipped malformed transcript lines", "path", path, "lines", result.ParseErrors)
	}
	return result.Summary
}

func maxScanConcurrency() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 4
	}
	return n
}
