package source

import "encoding/json"

// RawEntry represents a single line in a session transcript file.
// Fields beyond what the accounting needs are intentionally omitted; unknown
// keys are ignored by encoding/json.
type RawEntry struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	Message   *RawMessage `json:"message,omitempty"`
}

// RawMessage is the assistant message envelope.
// Content is kept raw because its shape varies by record type; block decoding
// is best-effort and never fails the line.
type RawMessage struct {
	Model   string          `json:"model,omitempty"`
	Usage   *RawUsage       `json:"usage,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// RawUsage holds the token counters from an API response. Missing fields
// decode to zero.
type RawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// ContentBlock is one element of an assistant message's content array.
// Only tool_use blocks for the Write and Edit tools matter here.
type ContentBlock struct {
	Type  string    `json:"type"`
	Name  string    `json:"name,omitempty"`
	Input ToolInput `json:"input,omitempty"`
}

// ToolInput carries the subset of tool parameters used for line accounting.
type ToolInput struct {
	Content   string `json:"content,omitempty"`    // Write
	OldString string `json:"old_string,omitempty"` // Edit
	NewString string `json:"new_string,omitempty"` // Edit
}

// SessionsIndex is the optional per-project metadata file recording the
// project's original filesystem path.
type SessionsIndex struct {
	Version      int    `json:"version"`
	OriginalPath string `json:"originalPath"`
}

// ProjectDir is one discovered project directory under the projects root.
type ProjectDir struct {
	DirName      string // raw directory name (path identity)
	DirPath      string // absolute path to the directory
	OriginalPath string // resolved human-readable display path
}
