package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS session_summaries (
    file_path        TEXT NOT NULL,
    since_unix       INTEGER NOT NULL,
    mtime_ns         INTEGER NOT NULL,
    size_bytes       INTEGER NOT NULL,
    empty            INTEGER NOT NULL DEFAULT 0,
    session_id       TEXT NOT NULL,
    input_tokens     INTEGER NOT NULL DEFAULT 0,
    output_tokens    INTEGER NOT NULL DEFAULT 0,
    cache_creation   INTEGER NOT NULL DEFAULT 0,
    cache_read       INTEGER NOT NULL DEFAULT 0,
    message_count    INTEGER NOT NULL DEFAULT 0,
    model            TEXT NOT NULL DEFAULT '',
    first_timestamp  TEXT NOT NULL DEFAULT '',
    last_timestamp   TEXT NOT NULL DEFAULT '',
    cost_usd         REAL NOT NULL DEFAULT 0,
    lines_added      INTEGER NOT NULL DEFAULT 0,
    lines_removed    INTEGER NOT NULL DEFAULT 0,
    parsed_at        TEXT NOT NULL,
    PRIMARY KEY (file_path, since_unix)
);

CREATE INDEX IF NOT EXISTS idx_session_summaries_path ON session_summaries(file_path);
`
