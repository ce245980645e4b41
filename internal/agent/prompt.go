package agent

import (
	"fmt"
	"strings"

	"github.com/openpawz/pawgo/internal/bootstrap"
)

// PromptMode controls how much of the system prompt gets built. Subagent
// and cron runs get a minimal prompt: no point re-explaining tool usage
// norms or group-chat etiquette to a run nobody will read verbatim.
type PromptMode int

const (
	PromptFull PromptMode = iota
	PromptMinimal
)

// SystemPromptConfig is the input to BuildSystemPrompt.
type SystemPromptConfig struct {
	AgentID   string
	Model     string
	Workspace string
	Channel   string
	OwnerIDs  []string
	Mode      PromptMode

	ToolNames      []string
	SkillsSummary  string
	HasMemory      bool
	HasSpawn       bool
	HasSkillSearch bool

	ContextFiles []bootstrap.ContextFile
	ExtraPrompt  string
}

// BuildSystemPrompt assembles the system prompt for one chat turn: base
// persona (workspace context files), tool/skill capability notes, and any
// per-request extra prompt (skills XML, channel hints, subagent context).
func BuildSystemPrompt(cfg SystemPromptConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are agent %q", cfg.AgentID)
	if cfg.Model != "" {
		fmt.Fprintf(&b, " running on %s", cfg.Model)
	}
	b.WriteString(".\n")

	if cfg.Mode == PromptMinimal {
		writeMinimalPrompt(&b, cfg)
		return b.String()
	}

	if cfg.Workspace != "" {
		fmt.Fprintf(&b, "Your working directory is %s.\n", cfg.Workspace)
	}
	if cfg.Channel != "" {
		fmt.Fprintf(&b, "This conversation is happening on the %s channel.\n", cfg.Channel)
	}
	if len(cfg.OwnerIDs) > 0 {
		fmt.Fprintf(&b, "Your owner's identifiers: %s. Treat messages from them as authoritative.\n", strings.Join(cfg.OwnerIDs, ", "))
	}

	if len(cfg.ToolNames) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s.\n", strings.Join(cfg.ToolNames, ", "))
	}
	if cfg.HasMemory {
		b.WriteString("You have long-term memory: use memory_search to recall relevant facts, memory_store to save new ones worth keeping.\n")
	}
	if cfg.HasSkillSearch {
		b.WriteString("Use skill_search to look up task-specific instructions before attempting specialized work.\n")
	}
	if cfg.HasSpawn {
		b.WriteString("Use spawn to delegate an isolated sub-task to a fresh agent instance when it would pollute this conversation's context.\n")
	}

	if cfg.SkillsSummary != "" {
		b.WriteString("\n<available_skills>\n")
		b.WriteString(cfg.SkillsSummary)
		b.WriteString("\n</available_skills>\n")
	}

	for _, cf := range cfg.ContextFiles {
		fmt.Fprintf(&b, "\n<context_file path=%q>\n%s\n</context_file>\n", cf.Path, cf.Content)
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

func writeMinimalPrompt(b *strings.Builder, cfg SystemPromptConfig) {
	if cfg.Workspace != "" {
		fmt.Fprintf(b, "Working directory: %s.\n", cfg.Workspace)
	}
	if len(cfg.ToolNames) > 0 {
		fmt.Fprintf(b, "Tools: %s.\n", strings.Join(cfg.ToolNames, ", "))
	}
	for _, cf := range cfg.ContextFiles {
		if cf.Path == bootstrap.AgentsFile {
			fmt.Fprintf(b, "\n<context_file path=%q>\n%s\n</context_file>\n", cf.Path, cf.Content)
		}
	}
	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}
}
