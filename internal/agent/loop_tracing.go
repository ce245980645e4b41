package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/tools"
)

func (l *Loop) emit(event AgentEvent) {
	if l.onEvent != nil {
		l.onEvent(event)
	}
}

// ID returns the agent's identifier.
func (l *Loop) ID() string { return l.id }

// Model returns the model identifier for this agent loop.
func (l *Loop) Model() string { return l.model }

// IsRunning returns whether the agent is currently processing.
func (l *Loop) IsRunning() bool { return l.activeRuns.Load() > 0 }

// emitLLMSpan logs one LLM call's timing, token usage, and outcome.
func (l *Loop) emitLLMSpan(ctx context.Context, start time.Time, iteration int, messages []providers.Message, resp *providers.ChatResponse, callErr error) {
	dur := time.Since(start)
	if callErr != nil {
		slog.Warn("llm call",
			"agent", l.id, "provider", l.provider.Name(), "model", l.model,
			"iteration", iteration, "duration_ms", dur.Milliseconds(), "error", callErr,
		)
		return
	}
	attrs := []any{
		"agent", l.id, "provider", l.provider.Name(), "model", l.model,
		"iteration", iteration, "duration_ms", dur.Milliseconds(),
	}
	if resp != nil {
		if resp.Usage != nil {
			attrs = append(attrs,
				"input_tokens", resp.Usage.PromptTokens,
				"output_tokens", resp.Usage.CompletionTokens,
			)
		}
		attrs = append(attrs, "finish_reason", resp.FinishReason)
	}
	slog.Debug("llm call", attrs...)
}

// emitToolSpan logs one tool call's timing and outcome. result carries the
// full execution result, which may include Usage from an inner LLM call
// (e.g. read_image's vision pass).
func (l *Loop) emitToolSpan(ctx context.Context, start time.Time, toolName, toolCallID, input string, result *tools.Result) {
	dur := time.Since(start)
	attrs := []any{
		"agent", l.id, "tool", toolName, "tool_call_id", toolCallID,
		"duration_ms", dur.Milliseconds(), "is_error", result.IsError,
	}
	if result.Usage != nil {
		attrs = append(attrs,
			"input_tokens", result.Usage.PromptTokens,
			"output_tokens", result.Usage.CompletionTokens,
			"provider", result.Provider, "model", result.Model,
		)
	}
	if result.IsError {
		attrs = append(attrs, "output", truncateStr(result.ForLLM, 200))
		slog.Warn("tool call", attrs...)
		return
	}
	slog.Debug("tool call", attrs...)
}

// emitAgentSpan logs the overall outcome of one agent run.
func (l *Loop) emitAgentSpan(ctx context.Context, start time.Time, result *RunResult, runErr error) {
	dur := time.Since(start)
	if runErr != nil {
		slog.Warn("agent run",
			"agent", l.id, "model", l.model, "provider", l.provider.Name(),
			"duration_ms", dur.Milliseconds(), "error", runErr,
		)
		return
	}
	attrs := []any{
		"agent", l.id, "model", l.model, "provider", l.provider.Name(),
		"duration_ms", dur.Milliseconds(),
	}
	if result != nil {
		attrs = append(attrs, "iterations", result.Iterations)
		if result.Usage != nil {
			attrs = append(attrs, "total_tokens", result.Usage.TotalTokens)
		}
	}
	slog.Debug("agent run", attrs...)
}

func truncateStr(s string, maxLen int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= maxLen {
		return s
	}
	// Don't cut in the middle of a multi-byte rune
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}

// EstimateTokens returns a rough token estimate for a slice of messages.
// Used internally for summarization thresholds and externally for adaptive throttle.
func EstimateTokens(messages []providers.Message) int {
	total := 0
	for _, m := range messages {
		total += utf8.RuneCountInString(m.Content) / 3
	}
	return total
}
