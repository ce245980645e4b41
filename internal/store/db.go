// Package store is the embedded, local-first persistence layer: one SQLite
// database file (WAL mode) holding sessions, messages, memories (with an
// FTS5 index for the lexical half of hybrid retrieval), skills, encrypted
// credentials, channel configuration, pending channel pairings, and
// scheduled cron jobs.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the underlying SQLite handle and exposes the per-domain stores.
type DB struct {
	conn *sql.DB

	Sessions SessionStore
	Memory   MemoryStore
	Skills   SkillStore
	Pairing  PairingStore
	Cron     CronStore
}

// Open opens (creating if absent) the SQLite database at path, applies
// pragmas for WAL durability under concurrent access, and brings the schema
// up to date.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	// A single file-backed writer: the gateway process is the only writer,
	// so one connection avoids SQLITE_BUSY entirely; readers still benefit
	// from WAL concurrency for the FTS queries issued by the memory engine.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	db := &DB{conn: conn}
	db.Sessions = newSessionStore(conn)
	db.Memory = newMemoryStore(conn)
	db.Skills = newSkillStore(conn)
	db.Pairing = newPairingStore(conn)
	db.Cron = newCronStore(conn)
	return db, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the raw connection for components (the memory engine's FTS5
// queries, the embedding backfill job) that need direct SQL access beyond
// the per-domain store interfaces.
func (d *DB) Conn() *sql.DB { return d.conn }
