// Package relay connects the gateway to a hosted relay server over an
// outbound WebSocket, for deployments with no inbound-reachable address of
// their own. The relay multiplexes frames for many agent instances; this
// channel presents its auth token as a bearer header when it dials, so the
// relay can route; the frames themselves carry no token.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/openpawz/pawgo/internal/bus"
	"github.com/openpawz/pawgo/internal/channels"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/retry"
)

// frame is the wire shape exchanged with the relay in both directions.
type frame struct {
	Type     string   `json:"type"` // "message"
	From     string   `json:"from,omitempty"`
	Chat     string   `json:"chat,omitempty"`
	To       string   `json:"to,omitempty"`
	Content  string   `json:"content,omitempty"`
	Media    []string `json:"media,omitempty"`
	PeerKind string   `json:"peer_kind,omitempty"` // "direct" or "group", inbound only
}

// Channel maintains a reconnecting outbound WebSocket session to a relay
// server and forwards messages between it and the message bus.
type Channel struct {
	*channels.BaseChannel
	config       config.RelayConfig
	backoff      retry.Config
	inboundLimit *channels.InboundRateLimiter

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a relay channel from config.
func New(cfg config.RelayConfig, msgBus *bus.MessageBus) (*Channel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("relay url is required")
	}

	base := channels.NewBaseChannel("relay", msgBus, cfg.AllowFrom)
	base.ValidatePolicy(cfg.DMPolicy, cfg.GroupPolicy)

	return &Channel{
		BaseChannel:  base,
		config:       cfg,
		backoff:      retry.DefaultConfig(),
		inboundLimit: channels.NewInboundRateLimiter(),
	}, nil
}

// Start connects to the relay and begins listening. A failed initial dial
// doesn't fail startup; the reconnect loop keeps retrying with backoff.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting relay channel", "url", c.config.URL)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(c.ctx); err != nil {
		slog.Warn("initial relay connection failed, will retry", "error", err)
	}

	go c.listenLoop()

	c.SetRunning(true)
	return nil
}

// Stop closes the relay connection and stops the reconnect loop.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping relay channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "shutting down")
		c.conn = nil
	}
	c.SetRunning(false)
	return nil
}

// Send delivers an outbound message to the relay.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("relay not connected")
	}

	data, err := json.Marshal(frame{Type: "message", To: msg.ChatID, Content: msg.Content})
	if err != nil {
		return fmt.Errorf("marshal relay frame: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send relay frame: %w", err)
	}
	return nil
}

func (c *Channel) connect(ctx context.Context) error {
	opts := &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.config.AuthToken}},
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.config.URL, opts)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", c.config.URL, err)
	}
	conn.SetReadLimit(1 << 20) // 1MB

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("relay connected", "url", c.config.URL)
	return nil
}

// listenLoop reads relay frames until stopped, reconnecting with the shared
// retry backoff policy when the socket drops.
func (c *Channel) listenLoop() {
	attempt := 0

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			delay := c.backoff.Delay(attempt)
			slog.Info("attempting relay reconnect", "delay", delay, "attempt", attempt)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(delay):
			}

			if err := c.connect(c.ctx); err != nil {
				slog.Warn("relay reconnect failed", "error", err)
				attempt++
				continue
			}
			attempt = 0
			continue
		}

		_, data, err := conn.Read(c.ctx)
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			slog.Warn("relay read error, will reconnect", "error", err)
			c.mu.Lock()
			if c.conn != nil {
				c.conn.Close(websocket.StatusAbnormalClosure, "read error")
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("invalid relay frame JSON", "error", err)
			continue
		}
		if f.Type == "message" {
			c.handleIncoming(f)
		}
	}
}

func (c *Channel) handleIncoming(f frame) {
	if f.From == "" {
		return
	}
	if !c.inboundLimit.Allow(f.From) {
		slog.Warn("relay sender exceeded inbound rate limit, dropping message", "sender_id", f.From)
		return
	}
	chatID := f.Chat
	if chatID == "" {
		chatID = f.From
	}
	peerKind := f.PeerKind
	if peerKind == "" {
		peerKind = "direct"
	}

	if !c.CheckPolicy(peerKind, c.config.DMPolicy, c.config.GroupPolicy, f.From) {
		slog.Debug("relay message rejected by policy", "sender_id", f.From, "peer_kind", peerKind)
		return
	}
	if !c.IsAllowed(f.From) {
		slog.Debug("relay message rejected by allowlist", "sender_id", f.From)
		return
	}

	content := f.Content
	if content == "" {
		content = "[empty message]"
	}

	slog.Debug("relay message received",
		"sender_id", f.From, "chat_id", chatID,
		"preview", channels.Truncate(content, 50),
	)

	c.HandleMessage(f.From, chatID, content, f.Media, nil, peerKind)
}
