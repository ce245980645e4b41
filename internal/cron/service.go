// Package cron runs scheduled session flows: lightweight automations that
// trigger an agent run on a cron schedule and optionally deliver the result
// back out over a channel. Schedule matching uses adhocore/gronx; job
// definitions and run bookkeeping live in the store package alongside
// sessions and memories.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/openpawz/pawgo/internal/store"
)

// JobResult carries the outcome of one trigger back from Handler.
type JobResult struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
}

// Handler executes one job trigger, running the job's message through the
// owning agent and returning its reply.
type Handler func(job *store.CronJob) (*JobResult, error)

// DefaultTickInterval is how often the service checks job schedules for a
// match. Cron expressions are minute-granular, so a minute is sufficient;
// ticking faster doesn't trigger jobs any sooner.
const DefaultTickInterval = 30 * time.Second

// Service polls enabled cron jobs and fires Handler when their schedule
// matches the current tick.
type Service struct {
	store    store.CronStore
	handler  Handler
	interval time.Duration
	gron     gronx.Gronx
}

// NewService builds a cron service. handler is called in its own goroutine
// whenever a job's schedule is due; interval controls how often jobs are
// checked against the clock (DefaultTickInterval if zero).
func NewService(cronStore store.CronStore, handler Handler, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Service{
		store:    cronStore,
		handler:  handler,
		interval: interval,
		gron:     gronx.New(),
	}
}

// Start runs the tick loop until ctx is cancelled. It blocks; call it in its
// own goroutine.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Service) tick(ctx context.Context, now time.Time) {
	jobs, err := s.store.List()
	if err != nil {
		slog.Warn("cron: list jobs failed", "error", err)
		return
	}

	for _, job := range jobs {
		if !job.Enabled {
			continue
		}
		due, err := s.gron.IsDue(job.Schedule, now)
		if err != nil {
			slog.Warn("cron: invalid schedule", "job", job.ID, "schedule", job.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}

		job := job
		go s.run(ctx, job, now)
	}
}

// run fires the handler for one due job. Delivery of the result (if any)
// back to a channel is the handler's responsibility; run only tracks
// success/failure for the job's last-run bookkeeping.
func (s *Service) run(ctx context.Context, job *store.CronJob, firedAt time.Time) {
	_, err := s.handler(job)
	if err != nil {
		slog.Warn("cron: job run failed", "job", job.ID, "name", job.Name, "error", err)
		if recErr := s.store.RecordRun(job.ID, firedAt, "error", err.Error()); recErr != nil {
			slog.Warn("cron: record run failed", "job", job.ID, "error", recErr)
		}
		return
	}

	slog.Debug("cron: job run completed", "job", job.ID, "name", job.Name)
	if recErr := s.store.RecordRun(job.ID, firedAt, "ok", ""); recErr != nil {
		slog.Warn("cron: record run failed", "job", job.ID, "error", recErr)
	}
}
