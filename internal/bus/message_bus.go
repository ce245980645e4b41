package bus

import (
	"context"
	"sync"
)

// MessageBus is the in-process hub connecting channel adapters (Telegram,
// Discord, ...), the agent runtime, and WebSocket clients. Inbound/outbound
// message queues are buffered channels; event broadcast is a simple fan-out
// over registered subscriber callbacks.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

// NewMessageBus creates a MessageBus with the given inbound/outbound queue depth.
func NewMessageBus(queueSize int) *MessageBus {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &MessageBus{
		inbound:     make(chan InboundMessage, queueSize),
		outbound:    make(chan OutboundMessage, queueSize),
		subscribers: make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a message received from a channel adapter.
// Non-blocking: if the queue is full the message is dropped silently (nothing
// is returned or logged) — channel adapters call this from their own receive
// loop and must not stall on a full bus.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
// The second return value is false once the bus is permanently drained
// (ctx cancelled).
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a message for delivery to a channel adapter.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
	}
}

// SubscribeOutbound blocks until an outbound message is available or ctx is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Subscribe registers a handler for broadcast events under id, replacing
// any handler already registered for that id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes the handler registered under id.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Broadcast fans an event out to every subscribed handler. Handlers run
// synchronously on the caller's goroutine; callers that need isolation
// (e.g. one slow WebSocket client) should make their handler non-blocking.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
