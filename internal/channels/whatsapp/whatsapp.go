// Package whatsapp bridges WhatsApp to the agent runtime over a WebSocket
// connection to an external bridge process (e.g. a whatsapp-web.js relay).
// This package never speaks the WhatsApp wire protocol itself: the bridge
// owns the phone-pairing/session state, and talks JSON frames over WS.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openpawz/pawgo/internal/bus"
	"github.com/openpawz/pawgo/internal/channels"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/retry"
	"github.com/openpawz/pawgo/internal/store"
)

const pairingReplyDebounce = 60 * time.Second

// Channel connects to a WhatsApp bridge via WebSocket. The bridge handles
// the actual WhatsApp protocol; this channel only exchanges JSON messages
// over the WS connection it maintains.
type Channel struct {
	*channels.BaseChannel
	config         config.WhatsAppConfig
	pairingService store.PairingStore
	backoff        retry.Config
	inboundLimit   *channels.InboundRateLimiter

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc

	pairingReplySent sync.Map // senderID string → time.Time
}

// New creates a WhatsApp channel from config. pairingSvc is optional
// (nil disables the pairing flow, falling back to allowlist-only DMs).
func New(cfg config.WhatsAppConfig, msgBus *bus.MessageBus, pairingSvc store.PairingStore) (*Channel, error) {
	if cfg.BridgeURL == "" {
		return nil, fmt.Errorf("whatsapp bridge_url is required")
	}

	base := channels.NewBaseChannel("whatsapp", msgBus, cfg.AllowFrom)
	base.ValidatePolicy(cfg.DMPolicy, cfg.GroupPolicy)

	return &Channel{
		BaseChannel:    base,
		config:         cfg,
		pairingService: pairingSvc,
		backoff:        retry.DefaultConfig(),
		inboundLimit:   channels.NewInboundRateLimiter(),
	}, nil
}

// Start connects to the WhatsApp bridge and begins listening. A failed
// initial connection doesn't fail startup: the reconnect loop keeps trying.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting whatsapp channel", "bridge_url", c.config.BridgeURL)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		slog.Warn("initial whatsapp bridge connection failed, will retry", "error", err)
	}

	go c.listenLoop()

	c.SetRunning(true)
	return nil
}

// Stop closes the bridge connection and stops the reconnect loop.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping whatsapp channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.SetRunning(false)
	return nil
}

// Send delivers an outbound message to the WhatsApp bridge.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":    "message",
		"to":      msg.ChatID,
		"content": msg.Content,
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("whatsapp bridge not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

func (c *Channel) connect() error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.config.BridgeURL, nil)
	if err != nil {
		return fmt.Errorf("dial whatsapp bridge %s: %w", c.config.BridgeURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("whatsapp bridge connected", "url", c.config.BridgeURL)
	return nil
}

// listenLoop reads bridge frames until the channel is stopped, reconnecting
// with the shared retry backoff policy when the socket drops.
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
			slog.Info("attempting whatsapp bridge reconnect", "delay", delay, "attempt", attempt)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(delay):
			}

			if err := c.connect(); err != nil {
				slog.Warn("whatsapp bridge reconnect failed", "error", err)
				if attempt < c.backoff.MaxRetries*4 { // keep growing the delay well past the HTTP retry budget, this is a long-lived socket
					attempt++
				}
				continue
			}
			attempt = 0
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("whatsapp read error, will reconnect", "error", err)
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var frame map[string]interface{}
		if err := json.Unmarshal(message, &frame); err != nil {
			slog.Warn("invalid whatsapp message JSON", "error", err)
			continue
		}
		if msgType, _ := frame["type"].(string); msgType == "message" {
			c.handleIncomingMessage(frame)
		}
	}
}

// handleIncomingMessage processes a bridge frame shaped like:
// {"type":"message","from":"...","chat":"...","content":"...","id":"...","from_name":"...","media":[...]}
func (c *Channel) handleIncomingMessage(msg map[string]interface{}) {
	senderID, _ := msg["from"].(string)
	if senderID == "" {
		return
	}

	chatID, _ := msg["chat"].(string)
	if chatID == "" {
		chatID = senderID
	}

	if !c.inboundLimit.Allow(senderID) {
		slog.Warn("whatsapp sender exceeded inbound rate limit, dropping message", "sender_id", senderID)
		return
	}

	peerKind := "direct"
	if strings.HasSuffix(chatID, "@g.us") {
		peerKind = "group"
	}

	if peerKind == "direct" {
		if !c.checkDMPolicy(senderID, chatID) {
			return
		}
	} else if !c.CheckPolicy("group", "", c.config.GroupPolicy, senderID) {
		slog.Debug("whatsapp group message rejected by policy", "sender_id", senderID)
		return
	}

	if !c.IsAllowed(senderID) {
		slog.Debug("whatsapp message rejected by allowlist", "sender_id", senderID)
		return
	}

	content, _ := msg["content"].(string)
	if content == "" {
		content = "[empty message]"
	}

	var media []string
	if raw, ok := msg["media"].([]interface{}); ok {
		for _, m := range raw {
			if path, ok := m.(string); ok {
				media = append(media, path)
			}
		}
	}

	metadata := make(map[string]string)
	if messageID, ok := msg["id"].(string); ok {
		metadata["message_id"] = messageID
	}
	if userName, ok := msg["from_name"].(string); ok {
		metadata["user_name"] = userName
	}

	slog.Debug("whatsapp message received",
		"sender_id", senderID, "chat_id", chatID,
		"preview", channels.Truncate(content, 50),
	)

	c.HandleMessage(senderID, chatID, content, media, metadata, peerKind)
}

// checkDMPolicy evaluates the DM policy for a sender, driving the pairing
// flow when the policy is "pairing" (the default) and the sender is unknown.
func (c *Channel) checkDMPolicy(senderID, chatID string) bool {
	dmPolicy := c.config.DMPolicy
	if dmPolicy == "" {
		dmPolicy = "pairing"
	}

	switch dmPolicy {
	case "disabled":
		return false
	case "open":
		return true
	case "allowlist":
		return c.IsAllowed(senderID)
	default: // "pairing"
		paired := false
		if c.pairingService != nil {
			paired, _ = c.pairingService.IsPaired(c.Name(), senderID)
		}
		inAllowList := c.HasAllowList() && c.IsAllowed(senderID)
		if paired || inAllowList {
			return true
		}
		c.sendPairingReply(senderID, chatID)
		return false
	}
}

// sendPairingReply issues a pairing code to an unpaired DM sender over the
// bridge, debounced to once per pairingReplyDebounce window.
func (c *Channel) sendPairingReply(senderID, chatID string) {
	if c.pairingService == nil {
		return
	}

	if lastSent, ok := c.pairingReplySent.Load(senderID); ok {
		if time.Since(lastSent.(time.Time)) < pairingReplyDebounce {
			return
		}
	}

	code, err := c.pairingService.CreatePending(c.Name(), senderID)
	if err != nil {
		slog.Debug("whatsapp pairing request failed", "sender_id", senderID, "error", err)
		return
	}

	replyText := fmt.Sprintf(
		"PawD: access not configured.\n\nYour WhatsApp id: %s\n\nPairing code: %s\n\nAsk the bot owner to approve with:\n  pawd pairing approve %s",
		senderID, code, code,
	)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		slog.Warn("whatsapp bridge not connected, cannot send pairing reply")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"type":    "message",
		"to":      chatID,
		"content": replyText,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		slog.Warn("failed to send whatsapp pairing reply", "error", err)
		return
	}
	c.pairingReplySent.Store(senderID, time.Now())
	slog.Info("whatsapp pairing reply sent", "sender_id", senderID, "code", code)
}
