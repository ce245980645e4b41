package store

import (
	"database/sql"
	"encoding/binary"
	"math"
	"time"
)

// Memory is one row of the long-term memory table.
type Memory struct {
	ID         int64
	AgentID    string // empty = not agent-scoped (global)
	Content    string
	Category   string
	Importance int
	Embedding  []float32
	CreatedAt  time.Time
	AccessedAt time.Time
}

// ScoredMemory pairs a Memory with a branch-local relevance score (BM25
// rank or cosine similarity, not yet merged/decayed).
type ScoredMemory struct {
	Memory
	Score float64
}

// MemoryStore persists the long-term memory table and its FTS5 shadow index.
// The ranking math (normalization, decay, MMR) lives in internal/memory;
// this store only does retrieval and storage.
type MemoryStore interface {
	Store(m Memory) (int64, error)
	SetEmbedding(id int64, embedding []float32) error

	// BM25Search runs the FTS5 query and returns up to limit rows ranked by
	// the engine's native bm25() score (more negative = more relevant, per
	// SQLite FTS5 convention — callers invert the sign).
	BM25Search(agentID, query string, limit int) ([]ScoredMemory, error)

	// VectorCandidates returns up to limit memories that have an embedding,
	// newest first, for in-process cosine scoring.
	VectorCandidates(agentID string, limit int) ([]Memory, error)

	// SubstringSearch is the fallback path when both BM25 and vector
	// branches return nothing.
	SubstringSearch(agentID, query string, limit int) ([]Memory, error)

	// WithoutEmbedding returns up to limit memories that have no embedding
	// yet, for the backfill job.
	WithoutEmbedding(limit int) ([]Memory, error)

	// Get fetches a single memory by ID, scoped to agentID ("" allows any).
	Get(id int64, agentID string) (Memory, error)

	Touch(id int64) error
}

type sqliteMemoryStore struct {
	db *sql.DB
}

func newMemoryStore(db *sql.DB) *sqliteMemoryStore {
	return &sqliteMemoryStore{db: db}
}

func (s *sqliteMemoryStore) Store(m Memory) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO memories (agent_id, content, embedding, category, importance, created_at, accessed_at)
		VALUES (?,?,?,?,?,?,?)`,
		m.AgentID, m.Content, encodeEmbedding(m.Embedding), m.Category, m.Importance,
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteMemoryStore) SetEmbedding(id int64, embedding []float32) error {
	_, err := s.db.Exec(`UPDATE memories SET embedding = ? WHERE id = ?`, encodeEmbedding(embedding), id)
	return err
}

func (s *sqliteMemoryStore) BM25Search(agentID, query string, limit int) ([]ScoredMemory, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.agent_id, m.content, m.category, m.importance, m.created_at, m.accessed_at, bm25(memories_fts)
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.rowid
		WHERE memories_fts MATCH ? AND (? = '' OR m.agent_id = ? OR m.agent_id = '')
		ORDER BY bm25(memories_fts)
		LIMIT ?`, ftsQuery(query), agentID, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoredMemory
	for rows.Next() {
		var m ScoredMemory
		var created, accessed int64
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &m.Category, &m.Importance, &created, &accessed, &m.Score); err != nil {
			continue
		}
		m.CreatedAt = time.UnixMilli(created)
		m.AccessedAt = time.UnixMilli(accessed)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteMemoryStore) VectorCandidates(agentID string, limit int) ([]Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, content, category, importance, embedding, created_at, accessed_at
		FROM memories
		WHERE embedding IS NOT NULL AND (? = '' OR agent_id = ? OR agent_id = '')
		ORDER BY created_at DESC
		LIMIT ?`, agentID, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *sqliteMemoryStore) SubstringSearch(agentID, query string, limit int) ([]Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, content, category, importance, embedding, created_at, accessed_at
		FROM memories
		WHERE content LIKE ? AND (? = '' OR agent_id = ? OR agent_id = '')
		ORDER BY created_at DESC
		LIMIT ?`, "%"+query+"%", agentID, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *sqliteMemoryStore) WithoutEmbedding(limit int) ([]Memory, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, content, category, importance, embedding, created_at, accessed_at
		FROM memories WHERE embedding IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *sqliteMemoryStore) Get(id int64, agentID string) (Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, agent_id, content, category, importance, embedding, created_at, accessed_at
		FROM memories
		WHERE id = ? AND (? = '' OR agent_id = ? OR agent_id = '')`, id, agentID, agentID)

	var m Memory
	var embBytes []byte
	var created, accessed int64
	if err := row.Scan(&m.ID, &m.AgentID, &m.Content, &m.Category, &m.Importance, &embBytes, &created, &accessed); err != nil {
		return Memory{}, err
	}
	m.Embedding = decodeEmbedding(embBytes)
	m.CreatedAt = time.UnixMilli(created)
	m.AccessedAt = time.UnixMilli(accessed)
	return m, nil
}

func (s *sqliteMemoryStore) Touch(id int64) error {
	_, err := s.db.Exec(`UPDATE memories SET accessed_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	var out []Memory
	for rows.Next() {
		var m Memory
		var embBytes []byte
		var created, accessed int64
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Content, &m.Category, &m.Importance, &embBytes, &created, &accessed); err != nil {
			continue
		}
		m.Embedding = decodeEmbedding(embBytes)
		m.CreatedAt = time.UnixMilli(created)
		m.AccessedAt = time.UnixMilli(accessed)
		out = append(out, m)
	}
	return out, rows.Err()
}

// encodeEmbedding packs a float32 vector as little-endian bytes for BLOB
// storage. nil input yields nil (stored as SQL NULL).
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// ftsQuery escapes a free-text query for FTS5's MATCH operator by quoting
// each token, so punctuation in user input doesn't trip FTS5's own query
// syntax.
func ftsQuery(q string) string {
	var out []byte
	out = append(out, '"')
	for _, r := range q {
		if r == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, string(r)...)
	}
	out = append(out, '"')
	return string(out)
}
