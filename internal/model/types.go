// Package model defines domain types for token-watcher sessions and usage.
package model

import "time"

// TokenUsage holds the four token counters reported per API response.
// Values combine by component-wise addition; the zero value is the identity.
type TokenUsage struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// Add returns the component-wise sum of two usage vectors.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:         u.InputTokens + o.InputTokens,
		OutputTokens:        u.OutputTokens + o.OutputTokens,
		CacheCreationTokens: u.CacheCreationTokens + o.CacheCreationTokens,
		CacheReadTokens:     u.CacheReadTokens + o.CacheReadTokens,
	}
}

// Total returns the sum of all four counters.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// CostBreakdown splits an estimated cost by token type.
// TotalCost is the exact sum of the four components; rounding happens at display time.
type CostBreakdown struct {
	InputCost         float64
	OutputCost        float64
	CacheCreationCost float64
	CacheReadCost     float64
	TotalCost         float64
}

// SessionSummary holds the aggregate for one transcript file.
// Timestamps are kept as the raw ISO-8601 strings from the transcript; the
// format is fixed-width, so lexicographic order matches chronological order.
type SessionSummary struct {
	SessionID      string
	ProjectDir     string
	ProjectPath    string
	Tokens         TokenUsage
	MessageCount   int
	Model          string
	FirstTimestamp string
	LastTimestamp  string
	CostUSD        float64
	LinesAdded     int
	LinesRemoved   int
}

// ProjectSummary aggregates the sessions of one project directory.
// Its totals always equal the component-wise sum over Sessions.
type ProjectSummary struct {
	ProjectDir   string
	ProjectPath  string
	Sessions     []SessionSummary
	Tokens       TokenUsage
	TotalCost    float64
	SessionCount int
	LinesAdded   int
	LinesRemoved int
}

// UsageTotals is the flattened global aggregate across all projects.
type UsageTotals struct {
	TotalTokens  int64
	TotalCost    float64
	LinesAdded   int
	LinesRemoved int
}

// TimeRange selects the lower time bound applied to usage accounting.
type TimeRange string

const (
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeAll   TimeRange = "all"
)

// ParseTimeRange maps a user-supplied range name to a TimeRange.
func ParseTimeRange(s string) (TimeRange, bool) {
	switch TimeRange(s) {
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		return TimeRange(s), true
	}
	return RangeAll, false
}

// Start returns the inclusive lower bound for the range relative to now.
// ok is false for RangeAll, which has no bound. Bounds snap to local midnight
// so that repeated queries within a day resolve to the same cutoff.
func (r TimeRange) Start(now time.Time) (start time.Time, ok bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case RangeToday:
		return midnight, true
	case RangeWeek:
		return midnight.AddDate(0, 0, -7), true
	case RangeMonth:
		return midnight.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}
