package retry

import (
	"sync"
	"time"
)

// breakerState mirrors the standard three-state circuit breaker.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a per-endpoint circuit breaker. Opens after Threshold consecutive
// failures, stays open for Cooldown, then lets calls through (half-open) until
// the next recorded result: a success closes it, a failure reopens it.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu        sync.Mutex
	state     breakerState
	failures  int
	openSince time.Time
}

// NewBreaker creates a breaker with the given failure threshold and cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown}
}

// Allow reports whether a call should be attempted right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if time.Since(b.openSince) >= b.Cooldown {
			b.state = stateHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = stateClosed
}

// RecordFailure counts a failure, tripping the breaker open once the
// threshold is reached (or immediately, if the probe call in half-open fails).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openSince = time.Now()
		return
	}

	b.failures++
	if b.failures >= b.Threshold {
		b.state = stateOpen
		b.openSince = time.Now()
	}
}

// Open reports whether the breaker currently rejects calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen && time.Since(b.openSince) < b.Cooldown
}
