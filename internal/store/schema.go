package store

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered, append-only list of schema steps. Each step runs
// inside its own transaction guarded by schema_meta.version — a minimal
// substitute for a full migration framework, chosen because the usual
// golang-migrate sqlite3 driver depends on the cgo mattn/go-sqlite3 package,
// which conflicts with the pure-Go modernc.org/sqlite driver this store is
// built on.
var migrations = []string{
	// v1: core schema.
	`
	CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		key                            TEXT PRIMARY KEY,
		label                          TEXT,
		summary                        TEXT,
		model                          TEXT,
		provider                       TEXT,
		channel                        TEXT,
		input_tokens                   INTEGER NOT NULL DEFAULT 0,
		output_tokens                  INTEGER NOT NULL DEFAULT 0,
		compaction_count               INTEGER NOT NULL DEFAULT 0,
		memory_flush_compaction_count  INTEGER NOT NULL DEFAULT -1,
		memory_flush_at                INTEGER NOT NULL DEFAULT 0,
		spawned_by                     TEXT,
		spawn_depth                    INTEGER NOT NULL DEFAULT 0,
		context_window                 INTEGER NOT NULL DEFAULT 0,
		last_prompt_tokens             INTEGER NOT NULL DEFAULT 0,
		last_message_count             INTEGER NOT NULL DEFAULT 0,
		agent_uuid                     TEXT,
		user_id                        TEXT,
		created_at                     INTEGER NOT NULL,
		updated_at                     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key   TEXT NOT NULL REFERENCES sessions(key) ON DELETE CASCADE,
		idx           INTEGER NOT NULL,
		role          TEXT NOT NULL,
		content       TEXT NOT NULL,
		images_json   TEXT,
		tool_calls_json TEXT,
		tool_call_id  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_key, idx);

	CREATE TABLE IF NOT EXISTS memories (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id    TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		embedding   BLOB,
		category    TEXT NOT NULL DEFAULT 'fact',
		importance  INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_agent ON memories(agent_id, created_at);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content,
		content='memories',
		content_rowid='id'
	);

	CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, content) VALUES (new.id, new.content);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.id, old.content);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.id, old.content);
		INSERT INTO memories_fts(rowid, content) VALUES (new.id, new.content);
	END;

	CREATE TABLE IF NOT EXISTS skill_credentials (
		skill_id    TEXT NOT NULL,
		cred_key    TEXT NOT NULL,
		ciphertext  TEXT NOT NULL,
		updated_at  INTEGER NOT NULL,
		PRIMARY KEY (skill_id, cred_key)
	);

	CREATE TABLE IF NOT EXISTS skill_outputs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		skill_id    TEXT NOT NULL,
		session_key TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_users (
		channel     TEXT NOT NULL,
		sender_id   TEXT NOT NULL,
		code        TEXT NOT NULL,
		created_at  INTEGER NOT NULL,
		PRIMARY KEY (channel, sender_id)
	);

	CREATE TABLE IF NOT EXISTS paired_senders (
		channel     TEXT NOT NULL,
		sender_id   TEXT NOT NULL,
		paired_at   INTEGER NOT NULL,
		PRIMARY KEY (channel, sender_id)
	);

	CREATE TABLE IF NOT EXISTS channel_configs (
		channel    TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`,
	// v2: cron-triggered session flows (automations).
	`
	CREATE TABLE IF NOT EXISTS cron_jobs (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		agent_id         TEXT,
		user_id          TEXT,
		schedule         TEXT NOT NULL,
		enabled          INTEGER NOT NULL DEFAULT 1,
		channel          TEXT,
		chat_id          TEXT,
		message          TEXT NOT NULL,
		deliver          INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL,
		last_run_at      INTEGER,
		last_run_status  TEXT,
		last_run_error   TEXT
	);
	`,
}

// migrate applies any schema steps beyond the database's current
// schema_meta.version, in order, each wrapped in its own transaction.
func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (version INTEGER NOT NULL);`); err != nil {
		return err
	}

	var version int
	row := conn.QueryRow(`SELECT version FROM schema_meta LIMIT 1;`)
	if err := row.Scan(&version); err == sql.ErrNoRows {
		version = 0
	} else if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if version == 0 && i == 0 {
			if _, err := tx.Exec(`INSERT INTO schema_meta(version) VALUES (?);`, i+1); err != nil {
				tx.Rollback()
				return err
			}
		} else {
			if _, err := tx.Exec(`UPDATE schema_meta SET version = ?;`, i+1); err != nil {
				tx.Rollback()
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
