package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"
)

// PendingUser is a sender awaiting pairing code confirmation on a DM
// channel.
type PendingUser struct {
	Channel   string
	SenderID  string
	Code      string
	CreatedAt time.Time
}

// PairingStore manages the DM pairing flow: a sender unknown to the
// allowlist is put in a pending state with a one-time code; confirming the
// code promotes them to paired (the channel then treats them as allowed).
type PairingStore interface {
	// CreatePending returns a pending sender's code, generating and storing
	// a fresh one on first call and returning the existing code on repeat
	// calls from the same (channel, senderID) — dedup, not re-issue.
	CreatePending(channel, senderID string) (code string, err error)
	FindByCode(channel, code string) (*PendingUser, bool, error)
	DeletePending(channel, senderID string) error

	// Promote confirms a pending sender and records them as paired.
	Promote(channel, senderID string) error
	IsPaired(channel, senderID string) (bool, error)
}

type sqlitePairingStore struct {
	db *sql.DB
}

func newPairingStore(db *sql.DB) *sqlitePairingStore {
	return &sqlitePairingStore{db: db}
}

func (s *sqlitePairingStore) CreatePending(channel, senderID string) (string, error) {
	var existing string
	err := s.db.QueryRow(`SELECT code FROM pending_users WHERE channel = ? AND sender_id = ?`, channel, senderID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	code, err := generatePairingCode()
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(`
		INSERT INTO pending_users (channel, sender_id, code, created_at) VALUES (?,?,?,?)`,
		channel, senderID, code, time.Now().UnixMilli())
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *sqlitePairingStore) FindByCode(channel, code string) (*PendingUser, bool, error) {
	var pu PendingUser
	var created int64
	err := s.db.QueryRow(`
		SELECT channel, sender_id, code, created_at FROM pending_users WHERE channel = ? AND code = ?`,
		channel, code).Scan(&pu.Channel, &pu.SenderID, &pu.Code, &created)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	pu.CreatedAt = time.UnixMilli(created)
	return &pu, true, nil
}

func (s *sqlitePairingStore) DeletePending(channel, senderID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_users WHERE channel = ? AND sender_id = ?`, channel, senderID)
	return err
}

func (s *sqlitePairingStore) Promote(channel, senderID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pending_users WHERE channel = ? AND sender_id = ?`, channel, senderID); err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO paired_senders (channel, sender_id, paired_at) VALUES (?,?,?)
		ON CONFLICT(channel, sender_id) DO NOTHING`, channel, senderID, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqlitePairingStore) IsPaired(channel, senderID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM paired_senders WHERE channel = ? AND sender_id = ?`, channel, senderID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// generatePairingCode returns a 6-digit numeric code, easy to type back
// through a chat client.
func generatePairingCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}
