package cmd

import (
	"context"
	"fmt"

	"github.com/openpawz/pawgo/internal/agent"
	"github.com/openpawz/pawgo/internal/bus"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/cron"
	"github.com/openpawz/pawgo/internal/scheduler"
	"github.com/openpawz/pawgo/internal/sessions"
	"github.com/openpawz/pawgo/internal/store"
)

// makeCronJobHandler creates a cron job handler that routes through the
// scheduler's concurrency control, so a job can't run concurrently with
// itself and still honors /stop, /stopall on its session.
func makeCronJobHandler(sched *scheduler.Scheduler, msgBus *bus.MessageBus, cfg *config.Config) cron.Handler {
	return func(job *store.CronJob) (*cron.JobResult, error) {
		agentID := job.AgentID
		if agentID == "" {
			agentID = cfg.ResolveDefaultAgentID()
		} else {
			agentID = config.NormalizeAgentID(agentID)
		}

		sessionKey := sessions.BuildCronSessionKey(agentID, job.ID)
		channel := job.Channel
		if channel == "" {
			channel = "cron"
		}

		outCh := sched.Schedule(context.Background(), "cron", agent.RunRequest{
			SessionKey: sessionKey,
			Message:    job.Message,
			Channel:    channel,
			ChatID:     job.ChatID,
			UserID:     job.UserID,
			RunID:      fmt.Sprintf("cron:%s", job.ID),
			Stream:     false,
		})

		// Block until the scheduled run completes.
		outcome := <-outCh
		if outcome.Err != nil {
			return nil, outcome.Err
		}

		result := outcome.Result

		if job.Deliver && job.Channel != "" && job.ChatID != "" {
			msgBus.PublishOutbound(bus.OutboundMessage{
				Channel: job.Channel,
				ChatID:  job.ChatID,
				Content: result.Content,
			})
		}

		jobResult := &cron.JobResult{Content: result.Content}
		if result.Usage != nil {
			jobResult.InputTokens = int64(result.Usage.PromptTokens)
			jobResult.OutputTokens = int64(result.Usage.CompletionTokens)
		}

		return jobResult, nil
	}
}
