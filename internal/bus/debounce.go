package bus

import (
	"strings"
	"sync"
	"time"
)

// InboundDebouncer merges rapid-fire messages from the same sender into a
// single flush, so a user firing off three messages in two seconds produces
// one agent run instead of three interleaved ones.
type InboundDebouncer struct {
	delay time.Duration
	flush func(InboundMessage)

	mu      sync.Mutex
	pending map[string]*pendingGroup
}

type pendingGroup struct {
	msg   InboundMessage
	timer *time.Timer
}

// NewInboundDebouncer creates a debouncer that waits delay after the last
// message in a group before calling flush with the merged message.
func NewInboundDebouncer(delay time.Duration, flush func(InboundMessage)) *InboundDebouncer {
	return &InboundDebouncer{
		delay:   delay,
		flush:   flush,
		pending: make(map[string]*pendingGroup),
	}
}

func debounceKey(msg InboundMessage) string {
	return msg.Channel + "|" + msg.SenderID + "|" + msg.ChatID
}

// Push adds msg to its group, merging its content with any message already
// pending for the same (channel, sender, chat) and resetting the flush timer.
func (d *InboundDebouncer) Push(msg InboundMessage) {
	key := debounceKey(msg)

	d.mu.Lock()
	defer d.mu.Unlock()

	if group, ok := d.pending[key]; ok {
		group.timer.Stop()
		group.msg = mergeInbound(group.msg, msg)
		group.timer = time.AfterFunc(d.delay, func() { d.fire(key) })
		return
	}

	group := &pendingGroup{msg: msg}
	group.timer = time.AfterFunc(d.delay, func() { d.fire(key) })
	d.pending[key] = group
}

func (d *InboundDebouncer) fire(key string) {
	d.mu.Lock()
	group, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()
	if ok {
		d.flush(group.msg)
	}
}

// Stop cancels all pending timers without flushing them.
func (d *InboundDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, group := range d.pending {
		group.timer.Stop()
		delete(d.pending, key)
	}
}

// mergeInbound folds the newer message's content/media into the older one,
// keeping the older message's identity fields (session key, metadata set on
// the first message in the burst).
func mergeInbound(base, next InboundMessage) InboundMessage {
	if next.Content != "" {
		if base.Content == "" {
			base.Content = next.Content
		} else {
			base.Content = strings.TrimRight(base.Content, "\n") + "\n" + next.Content
		}
	}
	base.Media = append(base.Media, next.Media...)
	if next.Metadata != nil {
		if base.Metadata == nil {
			base.Metadata = make(map[string]string, len(next.Metadata))
		}
		for k, v := range next.Metadata {
			base.Metadata[k] = v
		}
	}
	return base
}
