package storage

// schema is applied on open. Attempt records are append-only: nothing in the
// API updates or deletes a recorded attempt.
const schema = `
CREATE TABLE IF NOT EXISTS repair_sessions (
	id            TEXT PRIMARY KEY,
	target        TEXT NOT NULL,
	status        TEXT NOT NULL,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	final_output  TEXT NOT NULL DEFAULT '',
	abort_reason  TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS repair_attempts (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT NOT NULL,
	attempt_number   INTEGER NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	message_excerpt  TEXT NOT NULL DEFAULT '',
	search_context   TEXT NOT NULL DEFAULT '',
	fix_descriptor   TEXT NOT NULL DEFAULT '',
	mutation_outcome TEXT NOT NULL DEFAULT '',
	success          INTEGER NOT NULL DEFAULT 0,
	exit_status      INTEGER NOT NULL DEFAULT 0,
	raw_output       TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(session_id, attempt_number)
);

CREATE INDEX IF NOT EXISTS idx_repair_attempts_session
	ON repair_attempts(session_id, attempt_number);

CREATE TABLE IF NOT EXISTS agent_usage (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	agent         TEXT NOT NULL,
	action        TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost_usd      REAL NOT NULL DEFAULT 0,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'success',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
