// Package scheduler runs agent turns with a per-session concurrency limit
// so a burst of messages for the same session queues up instead of racing
// the same conversation history.
package scheduler

import (
	"context"
	"sync"

	"github.com/openpawz/pawgo/internal/agent"
)

// RunFunc executes one agent turn. Supplied by the caller (cmd/gateway.go)
// so the scheduler stays decoupled from agent.Router lookup details.
type RunFunc func(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)

// Outcome is delivered on the channel returned by Schedule/ScheduleWithOpts.
type Outcome struct {
	Result *agent.RunResult
	Err    error
}

// ScheduleOpts controls how a run is admitted.
type ScheduleOpts struct {
	// MaxConcurrent bounds how many runs for the same session key may be
	// in flight at once. 0 defaults to 1 (strictly serialized).
	MaxConcurrent int
}

// Scheduler serializes (or lightly parallelizes) agent runs per session key.
type Scheduler struct {
	run RunFunc

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

type sessionSlot struct {
	sem     chan struct{}
	mu      sync.Mutex
	cancels []*cancelHandle
}

// cancelHandle wraps a CancelFunc so a specific registration can be removed
// from a slot's slice by pointer identity (func values aren't comparable).
type cancelHandle struct {
	cancel context.CancelFunc
}

// New creates a Scheduler that executes admitted runs via run.
func New(run RunFunc) *Scheduler {
	return &Scheduler{run: run, sessions: make(map[string]*sessionSlot)}
}

func (s *Scheduler) slotFor(sessionKey string, maxConcurrent int) *sessionSlot {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.sessions[sessionKey]
	if !ok || cap(slot.sem) != maxConcurrent {
		slot = &sessionSlot{sem: make(chan struct{}, maxConcurrent)}
		s.sessions[sessionKey] = slot
	}
	return slot
}

// Schedule admits req with default options (max 1 concurrent run per session).
func (s *Scheduler) Schedule(ctx context.Context, _ string, req agent.RunRequest) <-chan Outcome {
	return s.ScheduleWithOpts(ctx, "", req, ScheduleOpts{})
}

// ScheduleWithOpts admits req, blocking until a concurrency slot for its
// session key is free, then runs it in its own goroutine. The lane argument
// is accepted for call-site readability but all lanes share the same
// per-session concurrency accounting.
func (s *Scheduler) ScheduleWithOpts(ctx context.Context, _ string, req agent.RunRequest, opts ScheduleOpts) <-chan Outcome {
	outCh := make(chan Outcome, 1)
	slot := s.slotFor(req.SessionKey, opts.MaxConcurrent)

	go func() {
		select {
		case slot.sem <- struct{}{}:
		case <-ctx.Done():
			outCh <- Outcome{Err: ctx.Err()}
			close(outCh)
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		handle := &cancelHandle{cancel: cancel}
		slot.mu.Lock()
		slot.cancels = append(slot.cancels, handle)
		slot.mu.Unlock()

		result, err := s.run(runCtx, req)

		slot.mu.Lock()
		slot.cancels = removeHandle(slot.cancels, handle)
		slot.mu.Unlock()
		cancel()
		<-slot.sem

		outCh <- Outcome{Result: result, Err: err}
		close(outCh)
	}()

	return outCh
}

// CancelOneSession cancels the oldest in-flight run for sessionKey.
// Reports whether a run was found to cancel.
func (s *Scheduler) CancelOneSession(sessionKey string) bool {
	s.mu.Lock()
	slot, ok := s.sessions[sessionKey]
	s.mu.Unlock()
	if !ok {
		return false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if len(slot.cancels) == 0 {
		return false
	}
	slot.cancels[0].cancel()
	slot.cancels = slot.cancels[1:]
	return true
}

// CancelSession cancels every in-flight run for sessionKey.
// Reports whether any run was found to cancel.
func (s *Scheduler) CancelSession(sessionKey string) bool {
	s.mu.Lock()
	slot, ok := s.sessions[sessionKey]
	s.mu.Unlock()
	if !ok {
		return false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	found := len(slot.cancels) > 0
	for _, h := range slot.cancels {
		h.cancel()
	}
	slot.cancels = nil
	return found
}

func removeHandle(handles []*cancelHandle, target *cancelHandle) []*cancelHandle {
	for i, h := range handles {
		if h == target {
			return append(handles[:i:i], handles[i+1:]...)
		}
	}
	return handles
}
