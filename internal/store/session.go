package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/sessions"
)

// sqliteSessionStore layers sessions.Manager's in-memory session cache over
// the sessions/messages tables: cheap reads and mutations hit the cache,
// Save flushes the session's current snapshot to SQL.
type sqliteSessionStore struct {
	mgr *sessions.Manager
	db  *sql.DB

	mu       sync.Mutex
	hydrated map[string]bool
}

func newSessionStore(db *sql.DB) *sqliteSessionStore {
	return &sqliteSessionStore{
		mgr:      sessions.NewManager(""),
		db:       db,
		hydrated: make(map[string]bool),
	}
}

// ensureHydrated loads a session row (and its messages) from SQL into the
// in-memory cache exactly once per key.
func (s *sqliteSessionStore) ensureHydrated(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated[key] {
		return
	}
	s.hydrated[key] = true

	sess, err := s.loadFromDB(key)
	if err != nil || sess == nil {
		return
	}
	s.mgr.Hydrate(sess)
}

func (s *sqliteSessionStore) loadFromDB(key string) (*sessions.Session, error) {
	row := s.db.QueryRow(`
		SELECT label, summary, model, provider, channel, input_tokens, output_tokens,
		       compaction_count, memory_flush_compaction_count, memory_flush_at,
		       spawned_by, spawn_depth, context_window, last_prompt_tokens,
		       last_message_count, created_at, updated_at
		FROM sessions WHERE key = ?`, key)

	var sess sessions.Session
	sess.Key = key

	var created, updated int64
	var labelStr sql.NullString
	err := row.Scan(&labelStr, &sess.Summary, &sess.Model, &sess.Provider, &sess.Channel,
		&sess.InputTokens, &sess.OutputTokens, &sess.CompactionCount,
		&sess.MemoryFlushCompactionCount, &sess.MemoryFlushAt, &sess.SpawnedBy,
		&sess.SpawnDepth, &sess.ContextWindow, &sess.LastPromptTokens,
		&sess.LastMessageCount, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Label = labelStr.String
	sess.Created = time.UnixMilli(created)
	sess.Updated = time.UnixMilli(updated)

	rows, err := s.db.Query(`
		SELECT role, content, images_json, tool_calls_json, tool_call_id
		FROM messages WHERE session_key = ? ORDER BY idx ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg providers.Message
		var imagesJSON, toolCallsJSON, toolCallID sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &imagesJSON, &toolCallsJSON, &toolCallID); err != nil {
			return nil, err
		}
		if imagesJSON.Valid && imagesJSON.String != "" {
			json.Unmarshal([]byte(imagesJSON.String), &msg.Images)
		}
		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}
		msg.ToolCallID = toolCallID.String
		sess.Messages = append(sess.Messages, msg)
	}
	return &sess, rows.Err()
}

func (s *sqliteSessionStore) GetOrCreate(key string) *SessionData {
	s.ensureHydrated(key)
	return sessionToData(s.mgr.GetOrCreate(key))
}

func (s *sqliteSessionStore) AddMessage(key string, msg providers.Message) {
	s.ensureHydrated(key)
	s.mgr.AddMessage(key, msg)
}

func (s *sqliteSessionStore) GetHistory(key string) []providers.Message {
	s.ensureHydrated(key)
	return s.mgr.GetHistory(key)
}

func (s *sqliteSessionStore) GetSummary(key string) string {
	s.ensureHydrated(key)
	return s.mgr.GetSummary(key)
}

func (s *sqliteSessionStore) SetSummary(key, summary string) {
	s.ensureHydrated(key)
	s.mgr.SetSummary(key, summary)
}

func (s *sqliteSessionStore) SetLabel(key, label string) {
	s.ensureHydrated(key)
	s.mgr.SetLabel(key, label)
}

// SetAgentInfo is a no-op: this store is single-agent local-first, so the
// session key itself already encodes agent scope.
func (s *sqliteSessionStore) SetAgentInfo(string, uuid.UUID, string) {}

func (s *sqliteSessionStore) UpdateMetadata(key, model, provider, channel string) {
	s.ensureHydrated(key)
	s.mgr.UpdateMetadata(key, model, provider, channel)
}

func (s *sqliteSessionStore) AccumulateTokens(key string, input, output int64) {
	s.ensureHydrated(key)
	s.mgr.AccumulateTokens(key, input, output)
}

func (s *sqliteSessionStore) IncrementCompaction(key string) {
	s.ensureHydrated(key)
	s.mgr.IncrementCompaction(key)
}

func (s *sqliteSessionStore) GetCompactionCount(key string) int {
	s.ensureHydrated(key)
	return s.mgr.GetCompactionCount(key)
}

func (s *sqliteSessionStore) GetMemoryFlushCompactionCount(key string) int {
	s.ensureHydrated(key)
	return s.mgr.GetMemoryFlushCompactionCount(key)
}

func (s *sqliteSessionStore) SetMemoryFlushDone(key string) {
	s.ensureHydrated(key)
	s.mgr.SetMemoryFlushDone(key)
}

func (s *sqliteSessionStore) SetSpawnInfo(key, spawnedBy string, depth int) {
	s.ensureHydrated(key)
	s.mgr.SetSpawnInfo(key, spawnedBy, depth)
}

func (s *sqliteSessionStore) SetContextWindow(key string, cw int) {
	s.ensureHydrated(key)
	s.mgr.SetContextWindow(key, cw)
}

func (s *sqliteSessionStore) GetContextWindow(key string) int {
	s.ensureHydrated(key)
	return s.mgr.GetContextWindow(key)
}

func (s *sqliteSessionStore) SetLastPromptTokens(key string, tokens, msgCount int) {
	s.ensureHydrated(key)
	s.mgr.SetLastPromptTokens(key, tokens, msgCount)
}

func (s *sqliteSessionStore) GetLastPromptTokens(key string) (int, int) {
	s.ensureHydrated(key)
	return s.mgr.GetLastPromptTokens(key)
}

func (s *sqliteSessionStore) TruncateHistory(key string, keepLast int) {
	s.ensureHydrated(key)
	s.mgr.TruncateHistory(key, keepLast)
}

func (s *sqliteSessionStore) Reset(key string) {
	s.ensureHydrated(key)
	s.mgr.Reset(key)
}

func (s *sqliteSessionStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.hydrated, key)
	s.mu.Unlock()
	s.mgr.Delete(key)
	_, err := s.db.Exec(`DELETE FROM sessions WHERE key = ?`, key)
	return err
}

func (s *sqliteSessionStore) List(agentID string) []SessionInfo {
	rows, err := s.db.Query(`SELECT key, created_at, updated_at,
		(SELECT COUNT(*) FROM messages WHERE messages.session_key = sessions.key)
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	prefix := ""
	if agentID != "" {
		prefix = "agent:" + agentID + ":"
	}

	var result []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var created, updated int64
		if err := rows.Scan(&info.Key, &created, &updated, &info.MessageCount); err != nil {
			continue
		}
		if prefix != "" && len(info.Key) < len(prefix) {
			continue
		}
		if prefix != "" && info.Key[:len(prefix)] != prefix {
			continue
		}
		info.Created = time.UnixMilli(created)
		info.Updated = time.UnixMilli(updated)
		result = append(result, info)
	}
	return result
}

func (s *sqliteSessionStore) ListPaged(opts SessionListOpts) SessionListResult {
	all := s.List(opts.AgentID)
	total := len(all)

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return SessionListResult{Sessions: all[start:end], Total: total}
}

// Save flushes the session's current in-memory snapshot to SQL. Messages are
// replaced wholesale rather than appended incrementally: session history is
// bounded by compaction, so a full rewrite stays cheap.
func (s *sqliteSessionStore) Save(key string) error {
	sess, ok := s.mgr.Peek(key)
	if !ok {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if sess.Created.IsZero() {
		sess.Created = now
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (key, label, summary, model, provider, channel,
			input_tokens, output_tokens, compaction_count, memory_flush_compaction_count,
			memory_flush_at, spawned_by, spawn_depth, context_window, last_prompt_tokens,
			last_message_count, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET
			label=excluded.label, summary=excluded.summary, model=excluded.model,
			provider=excluded.provider, channel=excluded.channel,
			input_tokens=excluded.input_tokens, output_tokens=excluded.output_tokens,
			compaction_count=excluded.compaction_count,
			memory_flush_compaction_count=excluded.memory_flush_compaction_count,
			memory_flush_at=excluded.memory_flush_at, spawned_by=excluded.spawned_by,
			spawn_depth=excluded.spawn_depth, context_window=excluded.context_window,
			last_prompt_tokens=excluded.last_prompt_tokens,
			last_message_count=excluded.last_message_count, updated_at=excluded.updated_at`,
		key, sess.Label, sess.Summary, sess.Model, sess.Provider, sess.Channel,
		sess.InputTokens, sess.OutputTokens, sess.CompactionCount, sess.MemoryFlushCompactionCount,
		sess.MemoryFlushAt, sess.SpawnedBy, sess.SpawnDepth, sess.ContextWindow,
		sess.LastPromptTokens, sess.LastMessageCount, sess.Created.UnixMilli(), now.UnixMilli())
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_key = ?`, key); err != nil {
		return err
	}

	for i, msg := range sess.Messages {
		var imagesJSON, toolCallsJSON []byte
		if len(msg.Images) > 0 {
			imagesJSON, _ = json.Marshal(msg.Images)
		}
		if len(msg.ToolCalls) > 0 {
			toolCallsJSON, _ = json.Marshal(msg.ToolCalls)
		}
		_, err := tx.Exec(`
			INSERT INTO messages (session_key, idx, role, content, images_json, tool_calls_json, tool_call_id)
			VALUES (?,?,?,?,?,?,?)`,
			key, i, msg.Role, msg.Content, string(imagesJSON), string(toolCallsJSON), msg.ToolCallID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteSessionStore) LastUsedChannel(agentID string) (channel, chatID string) {
	return s.mgr.LastUsedChannel(agentID)
}

func sessionToData(s *sessions.Session) *SessionData {
	return &SessionData{
		Key:                        s.Key,
		Messages:                   s.Messages,
		Summary:                    s.Summary,
		Created:                    s.Created,
		Updated:                    s.Updated,
		Model:                      s.Model,
		Provider:                   s.Provider,
		Channel:                    s.Channel,
		InputTokens:                s.InputTokens,
		OutputTokens:               s.OutputTokens,
		CompactionCount:            s.CompactionCount,
		MemoryFlushCompactionCount: s.MemoryFlushCompactionCount,
		MemoryFlushAt:              s.MemoryFlushAt,
		Label:                      s.Label,
		SpawnedBy:                  s.SpawnedBy,
		SpawnDepth:                 s.SpawnDepth,
		ContextWindow:              s.ContextWindow,
		LastPromptTokens:           s.LastPromptTokens,
		LastMessageCount:           s.LastMessageCount,
	}
}
