package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTranscript creates a temp JSONL file and returns its path.
func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0b6d5a72-session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSessionFile_OpusCost(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2024-01-01T00:00:00Z","message":{"model":"claude-opus-4-20250514","usage":{"input_tokens":1000000,"output_tokens":0,"cache_creation_input_tokens":0,"cache_read_input_tokens":0}}}`,
	)

	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary, got nil")
	}
	s := result.Summary

	if s.CostUSD != 15.00 {
		t.Errorf("CostUSD = %v, want 15.00", s.CostUSD)
	}
	if s.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", s.MessageCount)
	}
	if s.Model != "claude-opus-4-20250514" {
		t.Errorf("Model = %q", s.Model)
	}
	if s.SessionID != "0b6d5a72-session" {
		t.Errorf("SessionID = %q", s.SessionID)
	}
}

func TestParseSessionFile_MissingFile(t *testing.T) {
	result := ParseSessionFile(filepath.Join(t.TempDir(), "nope.jsonl"), time.Time{})
	if result.Summary != nil {
		t.Error("expected nil summary for missing file")
	}
}

func TestParseSessionFile_MalformedLinesSkipped(t *testing.T) {
	valid := []string{
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":100,"output_tokens":50}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:01:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":200,"output_tokens":80}}}`,
	}
	interleaved := []string{
		valid[0],
		`not json at all`,
		`{"type":"assistant","broken`,
		valid[1],
		`{{{`,
	}

	clean := ParseSessionFile(writeTranscript(t, valid...), time.Time{})
	dirty := ParseSessionFile(writeTranscript(t, interleaved...), time.Time{})

	if dirty.Summary == nil || clean.Summary == nil {
		t.Fatal("expected summaries from both transcripts")
	}
	if dirty.ParseErrors != 3 {
		t.Errorf("ParseErrors = %d, want 3", dirty.ParseErrors)
	}
	if dirty.Summary.Tokens != clean.Summary.Tokens {
		t.Errorf("tokens differ: %+v vs %+v", dirty.Summary.Tokens, clean.Summary.Tokens)
	}
	if dirty.Summary.MessageCount != clean.Summary.MessageCount {
		t.Errorf("message counts differ: %d vs %d", dirty.Summary.MessageCount, clean.Summary.MessageCount)
	}
}

func TestParseSessionFile_NonAssistantIgnored(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"usage":{"input_tokens":999}}}`,
		`{"type":"system","timestamp":"2025-06-01T10:00:01Z"}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:02Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":10,"output_tokens":5}}}`,
	)

	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.Tokens.InputTokens != 10 {
		t.Errorf("InputTokens = %d, want 10 (user usage must not count)", result.Summary.Tokens.InputTokens)
	}
	if result.Summary.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", result.Summary.MessageCount)
	}
}

func TestParseSessionFile_TimeBound(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T08:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":100}}}`,
		`{"type":"assistant","timestamp":"2025-06-02T08:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":7}}}`,
	)

	bound := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	result := ParseSessionFile(path, bound)
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.Tokens.InputTokens != 7 {
		t.Errorf("InputTokens = %d, want 7 (pre-bound record excluded)", result.Summary.Tokens.InputTokens)
	}
	if result.Summary.FirstTimestamp != "2025-06-02T08:00:00Z" {
		t.Errorf("FirstTimestamp = %q", result.Summary.FirstTimestamp)
	}
}

func TestParseSessionFile_AllRecordsBeforeBound(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-01-01T08:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":100}}}`,
	)

	bound := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result := ParseSessionFile(path, bound)
	if result.Summary != nil {
		t.Errorf("expected nil summary when every record precedes the bound, got %+v", result.Summary)
	}

	// Same transcript with no bound is included in full.
	all := ParseSessionFile(path, time.Time{})
	if all.Summary == nil || all.Summary.Tokens.InputTokens != 100 {
		t.Error("expected full inclusion without a bound")
	}
}

func TestParseSessionFile_FirstLastTimestampsAndModel(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T09:00:00Z","message":{"usage":{"output_tokens":1}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-opus-4-6","usage":{"output_tokens":2}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T11:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"output_tokens":3}}}`,
	)

	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	s := result.Summary
	if s.FirstTimestamp != "2025-06-01T09:00:00Z" {
		t.Errorf("FirstTimestamp = %q", s.FirstTimestamp)
	}
	if s.LastTimestamp != "2025-06-01T11:00:00Z" {
		t.Errorf("LastTimestamp = %q", s.LastTimestamp)
	}
	if s.Model != "claude-opus-4-6" {
		t.Errorf("Model = %q, want first non-empty identifier", s.Model)
	}
}

func TestParseSessionFile_NoUsageRecords(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4-6"}}`,
	)
	result := ParseSessionFile(path, time.Time{})
	if result.Summary != nil {
		t.Error("expected nil summary for a session with no usage payloads")
	}
}

func TestParseSessionFile_UnknownModelSentinel(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"usage":{"input_tokens":1000000}}}`,
	)
	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.Model != "unknown" {
		t.Errorf("Model = %q, want unknown sentinel", result.Summary.Model)
	}
	// Unknown classifies to opus, the conservative tier.
	if result.Summary.CostUSD != 15.00 {
		t.Errorf("CostUSD = %v, want 15.00 at opus rates", result.Summary.CostUSD)
	}
}

func TestParseSessionFile_WriteToolLines(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Write","input":{"file_path":"a.go","content":"package a\n\nfunc A() {}"}}]}}`,
	)

	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.LinesAdded != 3 {
		t.Errorf("LinesAdded = %d, want 3", result.Summary.LinesAdded)
	}
	if result.Summary.LinesRemoved != 0 {
		t.Errorf("LinesRemoved = %d, want 0", result.Summary.LinesRemoved)
	}
}

func TestParseSessionFile_EditToolLines(t *testing.T) {
	// Edit growing 3 lines to 5: +2 added, 0 removed.
	grow := `{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Edit","input":{"old_string":"a\nb\nc","new_string":"a\nb\nc\nd\ne"}}]}}`
	// Edit shrinking 4 lines to 1: 0 added, 3 removed.
	shrink := `{"type":"assistant","timestamp":"2025-06-01T10:01:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Edit","input":{"old_string":"a\nb\nc\nd","new_string":"x"}}]}}`
	// Equal counts contribute nothing.
	same := `{"type":"assistant","timestamp":"2025-06-01T10:02:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":1},"content":[{"type":"tool_use","name":"Edit","input":{"old_string":"a\nb","new_string":"c\nd"}}]}}`

	result := ParseSessionFile(writeTranscript(t, grow, shrink, same), time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.LinesAdded != 2 {
		t.Errorf("LinesAdded = %d, want 2", result.Summary.LinesAdded)
	}
	if result.Summary.LinesRemoved != 3 {
		t.Errorf("LinesRemoved = %d, want 3", result.Summary.LinesRemoved)
	}
}

func TestParseSessionFile_LineChangesIgnoreTimeBound(t *testing.T) {
	// The Write happens before the bound, the usage record after. Line
	// attribution is independent of the usage window.
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-05-01T10:00:00Z","message":{"model":"claude-sonnet-4-6","content":[{"type":"tool_use","name":"Write","input":{"content":"one\ntwo"}}]}}`,
		`{"type":"assistant","timestamp":"2025-06-02T10:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":5}}}`,
	)

	bound := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	result := ParseSessionFile(path, bound)
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.LinesAdded != 2 {
		t.Errorf("LinesAdded = %d, want 2 (pre-bound Write still counts)", result.Summary.LinesAdded)
	}
	if result.Summary.Tokens.InputTokens != 5 {
		t.Errorf("InputTokens = %d, want 5", result.Summary.Tokens.InputTokens)
	}
}

func TestParseSessionFile_StringContentTolerated(t *testing.T) {
	// Some records carry content as a plain string; block decoding is
	// best-effort and must not drop the usage payload.
	path := writeTranscript(t,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:00Z","message":{"model":"claude-sonnet-4-6","usage":{"input_tokens":42},"content":"hello"}}`,
	)
	result := ParseSessionFile(path, time.Time{})
	if result.Summary == nil {
		t.Fatal("expected summary")
	}
	if result.Summary.Tokens.InputTokens != 42 {
		t.Errorf("InputTokens = %d, want 42", result.Summary.Tokens.InputTokens)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},
		{"a\nb", 2},
		{"a\nb\n", 3},
		{"\n", 2},
	}
	for _, tt := range tests {
		if got := countLines(tt.input); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
