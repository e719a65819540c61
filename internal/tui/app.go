// Package tui provides the interactive Bubble Tea dashboard for token-watcher.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/cli"
	"github.com/felipe-tactile/token-watcher/internal/model"
	"github.com/felipe-tactile/token-watcher/internal/pipeline"
	"github.com/felipe-tactile/token-watcher/internal/tui/components"
	"github.com/felipe-tactile/token-watcher/internal/tui/theme"
)

const (
	tabOverview = iota
	tabProjects
	tabSessions
)

// DataLoadedMsg is sent when aggregation finishes.
type DataLoadedMsg struct {
	Range    model.TimeRange
	Projects []model.ProjectSummary
	Totals   model.UsageTotals
	LoadTime time.Duration
}

// RateLimitsMsg is sent when the rate-limit fetch completes. Snapshot is nil
// when the fetch failed; the dashboard then just omits the limits card.
type RateLimitsMsg struct {
	Snapshot *anthropic.UsageSnapshot
}

// App is the root Bubble Tea model.
type App struct {
	engine *pipeline.Engine
	limits *anthropic.Client // nil when credentials are unavailable

	rng      model.TimeRange
	projects []model.ProjectSummary
	totals   model.UsageTotals
	rates    *anthropic.UsageSnapshot
	loaded   bool
	loadTime time.Duration

	width     int
	height    int
	activeTab int

	projCursor int
	sessCursor int
	// sessions tab shows the selected project's sessions
	sessProject int

	spinner spinner.Model
}

// NewApp creates a new TUI app model.
func NewApp(engine *pipeline.Engine, limits *anthropic.Client, rng model.TimeRange) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		engine:  engine,
		limits:  limits,
		rng:     rng,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadDataCmd(a.engine, a.rng),
		a.spinner.Tick,
	}
	if a.limits != nil {
		cmds = append(cmds, fetchLimitsCmd(a.limits))
	}
	return tea.Batch(cmds...)
}

func loadDataCmd(engine *pipeline.Engine, rng model.TimeRange) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		projects, err := engine.ProjectSummaries(context.Background(), rng)
		if err != nil {
			projects = nil
		}
		var totals model.UsageTotals
		for _, p := range projects {
			totals.TotalTokens += p.Tokens.Total()
			totals.TotalCost += p.TotalCost
			totals.LinesAdded += p.LinesAdded
			totals.LinesRemoved += p.LinesRemoved
		}
		return DataLoadedMsg{
			Range:    rng,
			Projects: projects,
			Totals:   totals,
			LoadTime: time.Since(start),
		}
	}
}

func fetchLimitsCmd(client *anthropic.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		snap, err := client.FetchRateLimits(ctx)
		if err != nil {
			return RateLimitsMsg{}
		}
		return RateLimitsMsg{Snapshot: snap}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case DataLoadedMsg:
		if msg.Range != a.rng {
			return a, nil // stale load from a superseded range switch
		}
		a.projects = msg.Projects
		a.totals = msg.Totals
		a.loadTime = msg.LoadTime
		a.loaded = true
		a.clampCursors()
		return a, nil

	case RateLimitsMsg:
		a.rates = msg.Snapshot
		return a, nil

	case spinner.TickMsg:
		if a.loaded {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab":
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)
		return a, nil

	case "up", "k":
		a.moveCursor(-1)
		return a, nil
	case "down", "j":
		a.moveCursor(1)
		return a, nil

	case "enter":
		if a.activeTab == tabProjects && len(a.projects) > 0 {
			a.sessProject = a.projCursor
			a.sessCursor = 0
			a.activeTab = tabSessions
		}
		return a, nil

	case "1", "2", "3", "4":
		ranges := map[string]model.TimeRange{
			"1": model.RangeToday,
			"2": model.RangeWeek,
			"3": model.RangeMonth,
			"4": model.RangeAll,
		}
		return a.switchRange(ranges[msg.String()])

	case "r":
		a.loaded = false
		cmds := []tea.Cmd{loadDataCmd(a.engine, a.rng), a.spinner.Tick}
		if a.limits != nil {
			cmds = append(cmds, fetchLimitsCmd(a.limits))
		}
		return a, tea.Batch(cmds...)
	}

	if idx := components.TabIdxByKey(keyRune(msg)); idx >= 0 {
		a.activeTab = idx
		return a, nil
	}
	return a, nil
}

func keyRune(msg tea.KeyMsg) rune {
	if len(msg.Runes) == 1 {
		return msg.Runes[0]
	}
	return 0
}

func (a App) switchRange(r model.TimeRange) (tea.Model, tea.Cmd) {
	if r == a.rng {
		return a, nil
	}
	a.rng = r
	a.loaded = false
	return a, tea.Batch(loadDataCmd(a.engine, a.rng), a.spinner.Tick)
}

func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabProjects:
		a.projCursor += delta
	case tabSessions:
		a.sessCursor += delta
	}
	a.clampCursors()
}

func (a *App) clampCursors() {
	clamp := func(cur, n int) int {
		if cur >= n {
			cur = n - 1
		}
		if cur < 0 {
			cur = 0
		}
		return cur
	}
	a.projCursor = clamp(a.projCursor, len(a.projects))
	a.sessProject = clamp(a.sessProject, len(a.projects))
	if a.sessProject < len(a.projects) {
		a.sessCursor = clamp(a.sessCursor, len(a.projects[a.sessProject].Sessions))
	} else {
		a.sessCursor = 0
	}
}

// View implements tea.Model.
func (a App) View() string {
	t := theme.Active

	if !a.loaded {
		return "\n  " + a.spinner.View() + " scanning transcripts...\n"
	}

	width := a.width
	if width < 60 {
		width = 60
	}
	if width > 140 {
		width = 140
	}

	var b strings.Builder

	title := lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true).
		Render(fmt.Sprintf("token-watcher · %s", a.rng))
	b.WriteString(" " + title + "\n")
	b.WriteString(components.RenderTabBar(a.activeTab, width))
	b.WriteString("\n\n")

	switch a.activeTab {
	case tabOverview:
		b.WriteString(a.viewOverview(width))
	case tabProjects:
		b.WriteString(a.viewProjects(width))
	case tabSessions:
		b.WriteString(a.viewSessions(width))
	}

	help := lipgloss.NewStyle().Foreground(t.TextDim).
		Render(" tab: switch · 1-4: range · r: refresh · q: quit")
	b.WriteString("\n" + help + "\n")
	return b.String()
}

func (a App) viewOverview(width int) string {
	cards := []struct{ Label, Value, Sub string }{
		{"Cost", cli.FormatCost(a.totals.TotalCost), string(a.rng)},
		{"Tokens", cli.FormatTokens(a.totals.TotalTokens), ""},
		{"Lines", cli.FormatLineCount(a.totals.LinesAdded, a.totals.LinesRemoved), ""},
		{"Projects", fmt.Sprintf("%d", len(a.projects)), fmt.Sprintf("scan %dms", a.loadTime.Milliseconds())},
	}
	out := components.MetricCardRow(cards, width)

	if a.rates != nil {
		var lines []string
		addBar := func(label string, w *anthropic.RateLimitWindow) {
			if w == nil {
				return
			}
			resetsAt, _ := time.Parse(time.RFC3339Nano, w.ResetsAt)
			lines = append(lines, components.RateLimitBar(label, w.Utilization/100, resetsAt, 12, width/3))
		}
		addBar("5h window", a.rates.FiveHour)
		addBar("7d all", a.rates.SevenDay)
		addBar("7d opus", a.rates.SevenDayOpus)
		addBar("7d sonnet", a.rates.SevenDaySonnet)
		if len(lines) > 0 {
			out += "\n" + components.ContentCard("Rate limits", strings.Join(lines, "\n"), width)
		}
	}
	return out
}

func (a App) viewProjects(width int) string {
	t := theme.Active
	if len(a.projects) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("  no usage in this range")
	}

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)

	var rows []string
	for i, p := range a.projects {
		line := fmt.Sprintf(" %-40s %10s %8s %4d  %s",
			truncate(p.ProjectPath, 40),
			cli.FormatCost(p.TotalCost),
			cli.FormatTokens(p.Tokens.Total()),
			p.SessionCount,
			cli.FormatLineCount(p.LinesAdded, p.LinesRemoved),
		)
		if i == a.projCursor {
			rows = append(rows, selStyle.Render(line))
		} else {
			rows = append(rows, rowStyle.Render(line))
		}
	}
	return components.ContentCard("Projects by cost", strings.Join(rows, "\n"), width)
}

func (a App) viewSessions(width int) string {
	t := theme.Active
	if a.sessProject >= len(a.projects) {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("  select a project first")
	}
	p := a.projects[a.sessProject]

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)

	now := time.Now()
	var rows []string
	for i, s := range p.Sessions {
		line := fmt.Sprintf(" %-22s %-14s %10s %8s %5d msgs  %s",
			truncate(s.SessionID, 22),
			cli.FormatRelativeTime(s.LastTimestamp, now),
			cli.FormatCost(s.CostUSD),
			cli.FormatTokens(s.Tokens.Total()),
			s.MessageCount,
			s.Model,
		)
		if i == a.sessCursor {
			rows = append(rows, selStyle.Render(line))
		} else {
			rows = append(rows, rowStyle.Render(line))
		}
	}
	return components.ContentCard("Sessions · "+p.ProjectPath, strings.Join(rows, "\n"), width)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return "…" + s[len(s)-n+1:]
}

// Run starts the dashboard in the alternate screen.
func Run(engine *pipeline.Engine, limits *anthropic.Client, rng model.TimeRange) error {
	p := tea.NewProgram(NewApp(engine, limits, rng), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
