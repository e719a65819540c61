// Package store provides a SQLite-backed cache of parsed session summaries.
//
// The cache is transparent: an entry is only served when the source file's
// mtime and size still match what was recorded at parse time, so a miss (or a
// wiped cache) reproduces identical results by reparsing. Entries are keyed by
// (file path, window lower bound) because the same transcript yields different
// summaries under different time windows.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felipe-tactile/token-watcher/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache is a handle to the summary cache database.
type Cache struct {
	db *sql.DB
}

// Dir returns the platform cache directory for token-watcher.
func Dir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "token-watcher")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "token-watcher")
}

// Path returns the full path to the cache database file.
func Path() string {
	return filepath.Join(Dir(), "sessions.db")
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get looks up the cached summary for a transcript parsed with the given
// window bound. ok is false when there is no entry or the file has changed
// since it was recorded. A true ok with a nil summary means the cached result
// was "no data in range".
func (c *Cache) Get(filePath string, sinceUnix, mtimeNs, sizeBytes int64) (summary *model.SessionSummary, ok bool) {
	row := c.db.QueryRow(`SELECT
		mtime_ns, size_bytes, empty, session_id,
		input_tokens, output_tokens, cache_creation, cache_read,
		message_count, model, first_timestamp, last_timestamp,
		cost_usd, lines_added, lines_removed
		FROM session_summaries WHERE file_path = ? AND since_unix = ?`,
		filePath, sinceUnix)

	var (
		gotMtime, gotSize int64
		empty             int
		s                 model.SessionSummary
	)
	err := row.Scan(
		&gotMtime, &gotSize, &empty, &s.SessionID,
		&s.Tokens.InputTokens, &s.Tokens.OutputTokens, &s.Tokens.CacheCreationTokens, &s.Tokens.CacheReadTokens,
		&s.MessageCount, &s.Model, &s.FirstTimestamp, &s.LastTimestamp,
		&s.CostUSD, &s.LinesAdded, &s.LinesRemoved,
	)
	if err != nil {
		return nil, false
	}
	if gotMtime != mtimeNs || gotSize != sizeBytes {
		return nil, false
	}
	if empty != 0 {
		return nil, true
	}
	return &s, true
}

// Put records the parse result for a transcript. A nil summary caches the
// "no data in range" outcome so unchanged files are not rescanned.
func (c *Cache) Put(filePath string, sinceUnix, mtimeNs, sizeBytes int64, summary *model.SessionSummary) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if summary == nil {
		_, err := c.db.Exec(`INSERT OR REPLACE INTO session_summaries
			(file_path, since_unix, mtime_ns, size_bytes, empty, session_id, parsed_at)
			VALUES (?, ?, ?, ?, 1, '', ?)`,
			filePath, sinceUnix, mtimeNs, sizeBytes, now)
		return err
	}

	_, err := c.db.Exec(`INSERT OR REPLACE INTO session_summaries
		(file_path, since_unix, mtime_ns, size_bytes, empty, session_id,
		 input_tokens, output_tokens, cache_creation, cache_read,
		 message_count, model, first_timestamp, last_timestamp,
		 cost_usd, lines_added, lines_removed, parsed_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filePath, sinceUnix, mtimeNs, sizeBytes, summary.SessionID,
		summary.Tokens.InputTokens, summary.Tokens.OutputTokens,
		summary.Tokens.CacheCreationTokens, summary.Tokens.CacheReadTokens,
		summary.MessageCount, summary.Model, summary.FirstTimestamp, summary.LastTimestamp,
		summary.CostUSD, summary.LinesAdded, summary.LinesRemoved, now,
	)
	return err
}

// Prune drops entries for files that no longer exist on disk.
func (c *Cache) Prune(validPaths map[string]struct{}) error {
	rows, err := c.db.Query("SELECT DISTINCT file_path FROM session_summaries")
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return err
		}
		if _, ok := validPaths[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, path := range stale {
		if _, err := c.db.Exec("DELETE FROM session_summaries WHERE file_path = ?", path); err != nil {
			return err
		}
	}
	return nil
}

// EntryCount returns the number of cached entries.
func (c *Cache) EntryCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM session_summaries").Scan(&count)
	return count, err
}
