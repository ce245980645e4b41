package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openpawz/pawgo/internal/agent"
	"github.com/openpawz/pawgo/internal/bootstrap"
	"github.com/openpawz/pawgo/internal/bus"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/embedding"
	"github.com/openpawz/pawgo/internal/memory"
	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/sessions"
	"github.com/openpawz/pawgo/internal/skills"
	"github.com/openpawz/pawgo/internal/store"
	"github.com/openpawz/pawgo/internal/store/file"
	"github.com/openpawz/pawgo/internal/tools"
)

// resolveSessionStore returns db's SQLite-backed session store, unless
// cfg.Sessions.Storage names a directory, in which case sessions are kept
// as JSON files under that directory instead (everything else — memory,
// skills, pairing, cron — still lives in the SQLite database).
func resolveSessionStore(cfg *config.Config, db *store.DB) store.SessionStore {
	if cfg.Sessions.Storage == "" {
		return db.Sessions
	}
	mgr := sessions.NewManager(config.ExpandHome(cfg.Sessions.Storage))
	return file.NewFileSessionStore(mgr)
}

// registerProviders builds one providers.Provider per configured API key and
// adds it to reg. Anthropic gets its own native client and DashScope gets
// providers.NewDashScopeProvider; every other entry in ProvidersConfig speaks
// the OpenAI-compatible chat completions shape, so they all route through
// providers.NewOpenAIProvider with a provider-specific base URL and default
// model.
func registerProviders(reg *providers.Registry, cfg *config.Config) {
	p := cfg.Providers

	if p.Anthropic.APIKey != "" {
		var opts []providers.AnthropicOption
		if p.Anthropic.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(p.Anthropic.APIBase))
		}
		reg.Register(providers.NewAnthropicProvider(p.Anthropic.APIKey, opts...))
	}

	type openAICompat struct {
		name         string
		cfg          config.ProviderConfig
		defaultBase  string
		defaultModel string
	}

	compats := []openAICompat{
		{"openai", p.OpenAI, "https://api.openai.com/v1", "gpt-4o"},
		{"openrouter", p.OpenRouter, "https://openrouter.ai/api/v1", "anthropic/claude-3.5-sonnet"},
		{"groq", p.Groq, "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
		{"gemini", p.Gemini, "https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
		{"deepseek", p.DeepSeek, "https://api.deepseek.com/v1", "deepseek-chat"},
		{"mistral", p.Mistral, "https://api.mistral.ai/v1", "mistral-large-latest"},
		{"xai", p.XAI, "https://api.x.ai/v1", "grok-2-latest"},
		{"minimax", p.MiniMax, "https://api.minimax.chat/v1", "abab6.5s-chat"},
		{"cohere", p.Cohere, "https://api.cohere.ai/compatibility/v1", "command-r-plus"},
		{"perplexity", p.Perplexity, "https://api.perplexity.ai", "sonar"},
	}

	for _, c := range compats {
		if c.cfg.APIKey == "" {
			continue
		}
		base := c.cfg.APIBase
		if base == "" {
			base = c.defaultBase
		}
		reg.Register(providers.NewOpenAIProvider(c.name, c.cfg.APIKey, base, c.defaultModel))
	}

	if p.DashScope.APIKey != "" {
		base := p.DashScope.APIBase
		if base == "" {
			base = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		reg.Register(providers.NewDashScopeProvider(p.DashScope.APIKey, base, "qwen-plus"))
	}
}

// setupMemory wires the hybrid memory engine to db. When memCfg disables
// memory outright it returns a nil *memory.Engine, false, and a nil client.
// Otherwise it tries to bring up the local embedding runtime; failure there
// degrades to keyword-only search rather than blocking startup. The
// embedding client is returned alongside so callers (the health monitor)
// can probe it without duplicating the bootstrap.
func setupMemory(ctx context.Context, db *store.DB, memCfg *config.MemoryConfig) (*memory.Engine, bool, *embedding.Client) {
	if memCfg != nil && memCfg.Enabled != nil && !*memCfg.Enabled {
		return nil, false, nil
	}

	embedCfg := embedding.DefaultConfig()
	if memCfg != nil && memCfg.EmbeddingModel != "" {
		embedCfg.Model = memCfg.EmbeddingModel
	}
	if memCfg != nil && memCfg.EmbeddingAPIBase != "" {
		embedCfg.BaseURL = memCfg.EmbeddingAPIBase
	}

	client := embedding.NewClient(embedCfg)
	status := client.EnsureReady(ctx, nil)
	if !status.Ready {
		slog.Warn("embedding runtime not ready, memory search runs keyword-only", "model", embedCfg.Model)
		return memory.New(db, nil), true, client
	}

	return memory.New(db, client), true, client
}

// createAgentLoop builds one agent.Loop for agentID from cfg and registers
// it on router under that key.
func createAgentLoop(
	agentID string,
	cfg *config.Config,
	router *agent.Router,
	registry *providers.Registry,
	msgBus *bus.MessageBus,
	sessStore store.SessionStore,
	toolsReg *tools.Registry,
	toolPE *tools.PolicyEngine,
	contextFiles []bootstrap.ContextFile,
	skillsLoader *skills.Loader,
	hasMemory bool,
	onEvent func(agent.AgentEvent),
) error {
	spec := cfg.ResolveAgent(agentID)

	providerName := spec.Provider
	if providerName == "" {
		def, err := registry.Default()
		if err != nil {
			return fmt.Errorf("agent %s: %w", agentID, err)
		}
		providerName = def.Name()
	}
	provider, err := registry.Get(providerName)
	if err != nil {
		return fmt.Errorf("agent %s: %w", agentID, err)
	}

	workspace := config.ExpandHome(spec.Workspace)

	var eventPub bus.EventPublisher
	if msgBus != nil {
		eventPub = msgBus
	}

	var toolPolicy *config.ToolPolicySpec
	if as, ok := cfg.Agents.List[agentID]; ok {
		toolPolicy = as.Tools
	}

	var skillAllow []string
	if as, ok := cfg.Agents.List[agentID]; ok {
		skillAllow = as.Skills
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:                agentID,
		Provider:          provider,
		Model:             spec.Model,
		ContextWindow:     spec.ContextWindow,
		MaxIterations:     spec.MaxToolIterations,
		Workspace:         workspace,
		Bus:               eventPub,
		Sessions:          sessStore,
		Tools:             toolsReg,
		ToolPolicy:        toolPE,
		AgentToolPolicy:   toolPolicy,
		OnEvent:           onEvent,
		OwnerIDs:          cfg.Gateway.OwnerIDs,
		SkillsLoader:      skillsLoader,
		SkillAllowList:    skillAllow,
		HasMemory:         hasMemory,
		ContextFiles:      contextFiles,
		CompactionCfg:     spec.Compaction,
		ContextPruningCfg: spec.ContextPruning,
		InjectionAction:   cfg.Gateway.InjectionAction,
		MaxMessageChars:   cfg.Gateway.MaxMessageChars,
	})

	router.Register(agentID, loop)
	return nil
}
