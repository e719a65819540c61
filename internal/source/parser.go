package source

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felipe-tactile/token-watcher/internal/model"
	"github.com/felipe-tactile/token-watcher/internal/pricing"
)

// ParseResult holds the output of scanning a single transcript file.
type ParseResult struct {
	// Summary is nil when the file is absent, becomes unreadable mid-scan,
	// or contains no usage-bearing record inside the time window. Callers
	// treat all three the same way: skip this session.
	Summary     *model.SessionSummary
	ParseErrors int
}

// ParseSessionFile streams one transcript and folds it into a session summary.
//
// The transcript is an append-only newline-delimited sequence of JSON records,
// potentially tens of thousands of lines, so it is read line by line with a
// bounded buffer rather than parsed whole. A line that fails to parse is
// skipped silently; interrupted writers leave partial trailing lines and that
// must never abort the scan.
//
// rangeStart, when non-zero, excludes records timestamped before it from
// token/usage accounting. Scanning still continues past excluded records, and
// line-change attribution from Write/Edit tool blocks is applied regardless
// of the bound.
func ParseSessionFile(path string, rangeStart time.Time) ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}
	}
	defer func() { _ = f.Close() }()

	sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")

	var (
		tokens       model.TokenUsage
		messageCount int
		modelID      string
		firstTS      string
		lastTS       string
		linesAdded   int
		linesRemoved int
		parseErrors  int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		var entry RawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			parseErrors++
			continue
		}
		if entry.Type != "assistant" || entry.Message == nil {
			continue
		}

		added, removed := countLineChanges(entry.Message.Content)
		linesAdded += added
		linesRemoved += removed

		if entry.Message.Usage == nil {
			continue
		}
		ts := entry.Timestamp
		if !rangeStart.IsZero() && ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil && t.Before(rangeStart) {
				continue
			}
		}

		u := entry.Message.Usage
		tokens = tokens.Add(model.TokenUsage{
			InputTokens:         u.InputTokens,
			OutputTokens:        u.OutputTokens,
			CacheCreationTokens: u.CacheCreationInputTokens,
			CacheReadTokens:     u.CacheReadInputTokens,
		})
		messageCount++

		if modelID == "" && entry.Message.Model != "" {
			modelID = entry.Message.Model
		}
		if firstTS == "" && ts != "" {
			firstTS = ts
		}
		if ts != "" {
			lastTS = ts
		}
	}

	if err := scanner.Err(); err != nil {
		// Stream broke mid-scan (permissions revoked, truncation race).
		// The session resolves to absent rather than failing the query.
		return ParseResult{ParseErrors: parseErrors}
	}

	if messageCount == 0 {
		return ParseResult{ParseErrors: parseErrors}
	}

	if modelID == "" {
		modelID = "unknown"
	}
	cost := pricing.Cost(tokens, pricing.ClassifyModel(modelID))

	return ParseResult{
		Summary: &model.SessionSummary{
			SessionID:      sessionID,
			Tokens:         tokens,
			MessageCount:   messageCount,
			Model:          modelID,
			FirstTimestamp: firstTS,
			LastTimestamp:  lastTS,
			CostUSD:        cost.TotalCost,
			LinesAdded:     linesAdded,
			LinesRemoved:   linesRemoved,
		},
		ParseErrors: parseErrors,
	}
}

// countLineChanges attributes added/removed code lines to Write and Edit tool
// invocations in a message's content blocks. Decoding is best-effort: content
// that is not a block array (or blocks with unexpected input shapes)
// contributes nothing.
func countLineChanges(content json.RawMessage) (added, removed int) {
	if len(content) == 0 {
		return 0, 0
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return 0, 0
	}

	for _, b := range blocks {
		if b.Type != "tool_use" {
			continue
		}
		switch b.Name {
		case "Write":
			added += countLines(b.Input.Content)
		case "Edit":
			oldLines := countLines(b.Input.OldString)
			newLines := countLines(b.Input.NewString)
			if newLines > oldLines {
				added += newLines - oldLines
			} else if oldLines > newLines {
				removed += oldLines - newLines
			}
		}
	}
	return added, removed
}

// countLines counts newline-delimited lines; the empty string has none.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
