// Package health runs a periodic connectivity sweep over the embedding
// backend and every registered channel, and broadcasts the result as a
// bus.Event so WebSocket clients and the status endpoint can show it without
// polling each subsystem themselves.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/openpawz/pawgo/internal/bus"
)

// DefaultInterval is how often Service runs its connectivity sweep.
const DefaultInterval = 30 * time.Second

// EmbeddingProber reports whether the embedding backend is currently
// reachable. Satisfied by *embedding.Client's Probe method.
type EmbeddingProber interface {
	Probe(ctx context.Context) bool
}

// ChannelStatuser reports the running status of every registered channel,
// keyed by channel name. Satisfied by *channels.Manager's GetStatus method.
type ChannelStatuser interface {
	GetStatus() map[string]interface{}
}

// Report is the payload published on each sweep, shaped like the other
// status records the gateway surfaces over its event stream.
type Report struct {
	CheckedAt     time.Time              `json:"checked_at"`
	EmbeddingUp   bool                   `json:"embedding_up"`
	HasEmbedding  bool                   `json:"has_embedding"` // false when no embedder is configured at all
	Channels      map[string]interface{} `json:"channels"`
}

// Service periodically probes the embedding backend and channel adapters and
// publishes the result on the message bus under the "health" event name.
type Service struct {
	embed    EmbeddingProber // nil when memory/embedding is disabled
	channels ChannelStatuser
	bus      *bus.MessageBus
	interval time.Duration
}

// NewService builds a health service. embed may be nil if no embedding
// backend is configured; the resulting reports will carry HasEmbedding=false.
func NewService(embed EmbeddingProber, channelMgr ChannelStatuser, msgBus *bus.MessageBus, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		embed:    embed,
		channels: channelMgr,
		bus:      msgBus,
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is cancelled. It blocks; call it in
// its own goroutine. An initial sweep runs immediately so subscribers don't
// wait a full interval for the first report.
func (s *Service) Start(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	report := Report{CheckedAt: time.Now()}

	if s.embed != nil {
		report.HasEmbedding = true
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		report.EmbeddingUp = s.embed.Probe(probeCtx)
		cancel()
	}

	if s.channels != nil {
		report.Channels = s.channels.GetStatus()
	}

	slog.Debug("health sweep", "embedding_up", report.EmbeddingUp, "has_embedding", report.HasEmbedding, "channels", report.Channels)
	s.bus.Broadcast(bus.Event{Name: "health", Payload: report})
}
