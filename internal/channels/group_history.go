package channels

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultGroupHistoryLimit is the number of pending group messages buffered
// per chat when a channel isn't configured with an explicit history_limit.
const DefaultGroupHistoryLimit = 20

// HistoryEntry is one buffered group message, recorded while the bot is
// unaddressed and replayed as context once it is finally mentioned.
type HistoryEntry struct {
	Sender    string
	Body      string
	Timestamp time.Time
	MessageID string
}

// PendingHistory buffers recent unaddressed group messages per chat key so
// that, once the bot is mentioned, the agent sees the conversation that led
// up to the mention instead of just the single triggering message.
// Safe for concurrent use.
type PendingHistory struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
}

// NewPendingHistory creates an empty pending history buffer.
func NewPendingHistory() *PendingHistory {
	return &PendingHistory{entries: make(map[string][]HistoryEntry)}
}

// Record appends entry to key's buffer and keeps only the newest limit
// entries, dropping the oldest once the buffer exceeds limit.
func (h *PendingHistory) Record(key string, entry HistoryEntry, limit int) {
	if limit <= 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	buf := append(h.entries[key], entry)
	if len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	h.entries[key] = buf
}

// BuildContext renders key's buffered messages as a transcript, followed by
// current (the message that triggered the mention). Returns current
// unchanged if there's no buffered history.
func (h *PendingHistory) BuildContext(key, current string, limit int) string {
	h.mu.Lock()
	buf := h.entries[key]
	h.mu.Unlock()

	if len(buf) == 0 {
		return current
	}

	var sb strings.Builder
	sb.WriteString("Recent messages in this chat before the mention:\n")
	for _, e := range buf {
		sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", e.Timestamp.Format("15:04:05"), e.Sender, e.Body))
	}
	sb.WriteString("\n")
	sb.WriteString(current)
	return sb.String()
}

// Clear drops key's buffered history, typically called once its contents
// have been folded into a message sent to the agent.
func (h *PendingHistory) Clear(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, key)
}
