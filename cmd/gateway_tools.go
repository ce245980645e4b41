package cmd

import (
	"time"

	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/memory"
	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/store"
	"github.com/openpawz/pawgo/internal/tools"
	"github.com/openpawz/pawgo/internal/tools/trello"
	"github.com/openpawz/pawgo/internal/vault"
)

// webFetchCacheTTL caches fetched pages and search results, matching the
// short lifetime of a typical chat exchange.
const webFetchCacheTTL = 10 * time.Minute

// buildToolRegistry registers every built-in tool and wires the handful
// that need a live dependency (session store, memory engine, provider
// registry for vision/image generation) via their concrete setter methods.
// There is no marker-interface indirection here: each tool exposes the
// setter it needs and we call it directly after construction.
func buildToolRegistry(workspace string, restrict bool, cfg *config.Config, sessStore store.SessionStore, mem *memory.Engine, hasMemory bool, providerReg *providers.Registry, skillStore store.SkillStore, secretVault *vault.Vault) *tools.Registry {
	reg := tools.NewRegistry()

	reg.Register(tools.NewReadFileTool(workspace, restrict))
	reg.Register(tools.NewWriteFileTool(workspace, restrict))
	reg.Register(tools.NewEditTool(workspace, restrict))
	reg.Register(tools.NewListFilesTool(workspace, restrict))
	reg.Register(tools.NewGlobTool(workspace, restrict))
	reg.Register(tools.NewSearchTool(workspace, restrict))

	execTool := tools.NewExecTool(workspace, restrict)
	reg.Register(execTool)
	reg.MarkPrivileged("exec")

	reg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{
		CacheTTL: webFetchCacheTTL,
	}))
	reg.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey:     cfg.Tools.Web.Brave.APIKey,
		BraveEnabled:    cfg.Tools.Web.Brave.Enabled,
		BraveMaxResults: cfg.Tools.Web.Brave.MaxResults,
		DDGEnabled:      cfg.Tools.Web.DuckDuckGo.Enabled,
		DDGMaxResults:   cfg.Tools.Web.DuckDuckGo.MaxResults,
		CacheTTL:        webFetchCacheTTL,
	}))

	reg.Register(tools.NewReadImageTool(providerReg))
	reg.Register(tools.NewCreateImageTool(providerReg))

	reg.Register(tools.NewSessionsListTool())
	reg.Register(tools.NewSessionStatusTool())
	reg.Register(tools.NewSessionsHistoryTool())
	reg.Register(tools.NewSessionsSendTool())

	if t, ok := reg.Get("sessions_list"); ok {
		if st, ok := t.(*tools.SessionsListTool); ok {
			st.SetSessionStore(sessStore)
		}
	}
	if t, ok := reg.Get("session_status"); ok {
		if st, ok := t.(*tools.SessionStatusTool); ok {
			st.SetSessionStore(sessStore)
		}
	}

	if hasMemory && mem != nil {
		reg.Register(tools.NewMemorySearchTool(mem))
		reg.Register(tools.NewMemoryGetTool(mem))
	}

	reg.Register(tools.NewDexPoolsTool())
	dexSwap := tools.NewDexSwapTool()
	reg.Register(dexSwap)
	reg.MarkPrivileged(dexSwap.Name())

	reg.Register(tools.NewCoinbaseBalanceTool())
	coinbaseTrade := tools.NewCoinbaseTradeTool()
	reg.Register(coinbaseTrade)
	reg.MarkPrivileged(coinbaseTrade.Name())

	if skillStore != nil && secretVault != nil {
		resolve := credentialResolver(skillStore, secretVault)
		reg.Register(trello.NewBoardsTool(resolve))
		reg.Register(trello.NewListsTool(resolve))
		reg.Register(trello.NewCardsTool(resolve))
		reg.Register(trello.NewChecklistsTool(resolve))
		reg.Register(trello.NewLabelsTool(resolve))
		reg.Register(trello.NewMembersTool(resolve))
		reg.Register(trello.NewSearchTool(resolve))
	}

	if cfg.Tools.RateLimitPerHour > 0 {
		reg.SetRateLimitPerHour(cfg.Tools.RateLimitPerHour)
	}

	if cfg.Tools.OutboundRPS > 0 {
		burst := cfg.Tools.OutboundBurst
		if burst <= 0 {
			burst = 1
		}
		reg.SetOutboundRateLimit(cfg.Tools.OutboundRPS, burst)
	}

	return reg
}

// credentialResolver composes the skill store's encrypted-at-rest lookup
// with the vault's decrypt step, giving tool packages (like trello) a
// function instead of a direct dependency on internal/skills or internal/store.
func credentialResolver(skillStore store.SkillStore, secretVault *vault.Vault) trello.CredentialResolver {
	return func(skillID, key string) (string, bool, error) {
		ciphertext, ok, err := skillStore.GetCredential(skillID, key)
		if err != nil || !ok {
			return "", ok, err
		}
		plaintext, err := secretVault.Decrypt(ciphertext)
		if err != nil {
			return "", false, err
		}
		return plaintext, true, nil
	}
}
