package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/openpawz/pawgo/internal/agent"
	"github.com/openpawz/pawgo/internal/bootstrap"
	"github.com/openpawz/pawgo/internal/bus"
	"github.com/openpawz/pawgo/internal/channels"
	"github.com/openpawz/pawgo/internal/channels/discord"
	"github.com/openpawz/pawgo/internal/channels/relay"
	"github.com/openpawz/pawgo/internal/channels/telegram"
	"github.com/openpawz/pawgo/internal/channels/whatsapp"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/cron"
	"github.com/openpawz/pawgo/internal/gateway"
	"github.com/openpawz/pawgo/internal/health"
	"github.com/openpawz/pawgo/internal/mcp"
	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/scheduler"
	"github.com/openpawz/pawgo/internal/skills"
	"github.com/openpawz/pawgo/internal/store"
	"github.com/openpawz/pawgo/internal/tools"
	"github.com/openpawz/pawgo/internal/vault"
	"github.com/openpawz/pawgo/pkg/protocol"
)

// shutdownTimeout bounds how long channel adapters get to close their
// connections cleanly (e.g. Telegram's long-poll loop) once the process
// receives a termination signal.
const shutdownTimeout = 10 * time.Second

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if _, statErr := os.Stat(cfgPath); os.IsNotExist(statErr) {
		slog.Warn("no config file found, running with built-in defaults", "path", cfgPath)
	} else if cfgWatcher, watchErr := config.NewWatcher(cfgPath, cfg); watchErr != nil {
		slog.Warn("config hot-reload disabled", "error", watchErr)
	} else {
		go cfgWatcher.Run()
		defer cfgWatcher.Close()
	}

	if !cfg.HasAnyProvider() {
		fmt.Println("No AI provider API key configured.")
		fmt.Println()
		fmt.Printf("Edit %s (or set an API key env var) and set one of:\n", cfgPath)
		fmt.Println("  providers.anthropic.api_key, providers.openai.api_key, ...")
		fmt.Println()
		fmt.Println("Run `pawd doctor` to see what's currently configured.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgBus := bus.NewMessageBus(256)

	dbPath := config.ExpandHome(cfg.Database.SQLitePath)
	if dir := filepath.Dir(dbPath); dir != "" {
		os.MkdirAll(dir, 0o755)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessStore := resolveSessionStore(cfg, db)

	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)
	if len(providerRegistry.Names()) == 0 {
		slog.Error("no providers registered despite HasAnyProvider() — check provider config")
		os.Exit(1)
	}

	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	os.MkdirAll(workspace, 0o755)

	if seeded, seedErr := bootstrap.EnsureWorkspaceFiles(workspace); seedErr != nil {
		slog.Warn("failed to seed workspace bootstrap files", "error", seedErr)
	} else if len(seeded) > 0 {
		slog.Info("seeded workspace bootstrap files", "files", seeded)
	}

	mem, hasMemory, embedClient := setupMemory(ctx, db, cfg.Agents.Defaults.Memory)

	secretVault := vault.New()
	skillsManifestDir := filepath.Join(workspace, "skills")
	skillsLoader := skills.NewLoader(skillsManifestDir, secretVault, db.Skills)

	toolPE := tools.NewPolicyEngine(&cfg.Tools)
	toolsReg := buildToolRegistry(workspace, cfg.Agents.Defaults.RestrictToWorkspace, cfg, sessStore, mem, hasMemory, providerRegistry, db.Skills, secretVault)

	mcpMgr := mcp.NewManager(toolsReg, mcp.WithConfigs(cfg.Tools.McpServers))
	if err := mcpMgr.Start(ctx); err != nil {
		slog.Warn("some MCP servers failed to start", "error", err)
	}
	defer mcpMgr.Stop()

	agentRouter := agent.NewRouter()

	onAgentEvent := func(e agent.AgentEvent) {
		msgBus.Broadcast(bus.Event{Name: protocol.EventAgent, Payload: e})
	}

	contextFiles := bootstrap.BuildContextFiles(bootstrap.LoadWorkspaceFiles(workspace), bootstrap.TruncateConfig{
		MaxCharsPerFile: cfg.Agents.Defaults.BootstrapMaxChars,
		TotalMaxChars:   cfg.Agents.Defaults.BootstrapTotalMaxChars,
	})

	agentIDs := map[string]bool{cfg.ResolveDefaultAgentID(): true}
	for id := range cfg.Agents.List {
		agentIDs[config.NormalizeAgentID(id)] = true
	}
	for id := range agentIDs {
		if err := createAgentLoop(id, cfg, agentRouter, providerRegistry, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, hasMemory, onAgentEvent); err != nil {
			slog.Error("failed to build agent", "agent", id, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("agents ready", "agents", agentRouter.List())

	sched := scheduler.New(makeSchedulerRunFunc(agentRouter, cfg))

	cronSvc := cron.NewService(db.Cron, makeCronJobHandler(sched, msgBus, cfg), cfg.Cron.ToTickInterval(cron.DefaultTickInterval))
	go cronSvc.Start(ctx)

	channelMgr := channels.NewManager(msgBus)
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Channels.Telegram, msgBus, db.Pairing)
		if err != nil {
			slog.Error("failed to create telegram channel", "error", err)
		} else {
			channelMgr.RegisterChannel("telegram", tg)
		}
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		dc, err := discord.New(cfg.Channels.Discord, msgBus, db.Pairing)
		if err != nil {
			slog.Error("failed to create discord channel", "error", err)
		} else {
			channelMgr.RegisterChannel("discord", dc)
		}
	}

	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BridgeURL != "" {
		wa, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus, db.Pairing)
		if err != nil {
			slog.Error("failed to create whatsapp channel", "error", err)
		} else {
			channelMgr.RegisterChannel("whatsapp", wa)
		}
	}
	if cfg.Channels.Relay.Enabled && cfg.Channels.Relay.URL != "" {
		rl, err := relay.New(cfg.Channels.Relay, msgBus)
		if err != nil {
			slog.Error("failed to create relay channel", "error", err)
		} else {
			channelMgr.RegisterChannel("relay", rl)
		}
	}

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
	}

	var embedProber health.EmbeddingProber
	if embedClient != nil {
		embedProber = embedClient
	}
	healthSvc := health.NewService(embedProber, channelMgr, msgBus, health.DefaultInterval)
	go healthSvc.Start(ctx)

	go consumeInboundMessages(ctx, msgBus, agentRouter, cfg, sched, channelMgr)

	msgBus.Subscribe("channel-streaming", func(event bus.Event) {
		e, ok := event.Payload.(agent.AgentEvent)
		if !ok {
			return
		}
		channelMgr.HandleAgentEvent(e.Type, e.RunID, e.Payload)
	})

	server := gateway.NewServer(cfg, msgBus, agentRouter, sessStore, toolsReg)
	server.SetPairingService(db.Pairing)
	server.SetScheduler(sched)
	server.SetSkillsLoader(skillsLoader)

	go func() {
		if err := server.Start(ctx); err != nil {
			slog.Error("gateway server stopped", "error", err)
		}
	}()

	slog.Info("pawd gateway running", "host", cfg.Gateway.Host, "port", cfg.Gateway.Port)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := channelMgr.StopAll(shutdownCtx); err != nil {
		slog.Warn("error stopping channels", "error", err)
	}
}
