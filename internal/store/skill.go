package store

import (
	"database/sql"
	"time"
)

// SkillStore persists encrypted skill credentials and a log of skill
// invocation outputs. The Skill Context Compiler does not read the output
// log.
type SkillStore interface {
	// SetCredential stores an already-encrypted credential value.
	SetCredential(skillID, key, ciphertext string) error
	// GetCredential returns the encrypted value and whether it was found.
	GetCredential(skillID, key string) (string, bool, error)
	// Credentials returns all encrypted credential values for a skill,
	// keyed by credential name.
	Credentials(skillID string) (map[string]string, error)

	RecordOutput(skillID, sessionKey, content string) error
	RecentOutputs(skillID string, limit int) ([]string, error)
}

type sqliteSkillStore struct {
	db *sql.DB
}

func newSkillStore(db *sql.DB) *sqliteSkillStore {
	return &sqliteSkillStore{db: db}
}

func (s *sqliteSkillStore) SetCredential(skillID, key, ciphertext string) error {
	_, err := s.db.Exec(`
		INSERT INTO skill_credentials (skill_id, cred_key, ciphertext, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(skill_id, cred_key) DO UPDATE SET ciphertext=excluded.ciphertext, updated_at=excluded.updated_at`,
		skillID, key, ciphertext, time.Now().UnixMilli())
	return err
}

func (s *sqliteSkillStore) GetCredential(skillID, key string) (string, bool, error) {
	var ct string
	err := s.db.QueryRow(`SELECT ciphertext FROM skill_credentials WHERE skill_id = ? AND cred_key = ?`, skillID, key).Scan(&ct)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return ct, true, nil
}

func (s *sqliteSkillStore) Credentials(skillID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT cred_key, ciphertext FROM skill_credentials WHERE skill_id = ?`, skillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *sqliteSkillStore) RecordOutput(skillID, sessionKey, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO skill_outputs (skill_id, session_key, content, created_at) VALUES (?,?,?,?)`,
		skillID, sessionKey, content, time.Now().UnixMilli())
	return err
}

func (s *sqliteSkillStore) RecentOutputs(skillID string, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT content FROM skill_outputs WHERE skill_id = ? ORDER BY created_at DESC LIMIT ?`, skillID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
