package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openpawz/pawgo/internal/agent"
	"github.com/openpawz/pawgo/internal/bootstrap"
	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/store"
	"github.com/openpawz/pawgo/internal/tools"
	"github.com/openpawz/pawgo/internal/vault"
)

// runStandaloneMode builds one agent loop in-process, without a gateway,
// and runs the chat directly against the local database and workspace.
func runStandaloneMode(cfg *config.Config, agentName, message, sessionKey string) {
	dbPath := config.ExpandHome(cfg.Database.SQLitePath)
	db, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sessStore := resolveSessionStore(cfg, db)

	providerReg := providers.NewRegistry()
	registerProviders(providerReg, cfg)

	spec := cfg.ResolveAgent(agentName)
	workspace := config.ExpandHome(spec.Workspace)
	secretVault := vault.New()
	toolsReg := buildToolRegistry(workspace, spec.RestrictToWorkspace, cfg, sessStore, nil, false, providerReg, db.Skills, secretVault)
	toolPE := tools.NewPolicyEngine(&cfg.Tools)

	router := agent.NewRouter()
	contextFiles := bootstrap.BuildContextFiles(bootstrap.LoadWorkspaceFiles(workspace), bootstrap.TruncateConfig{
		MaxCharsPerFile: spec.BootstrapMaxChars,
		TotalMaxChars:   spec.BootstrapTotalMaxChars,
	})
	if err := createAgentLoop(agentName, cfg, router, providerReg, nil, sessStore, toolsReg, toolPE, contextFiles, nil, false, nil); err != nil {
		fmt.Fprintf(os.Stderr, "build agent: %v\n", err)
		os.Exit(1)
	}

	loop, err := router.Get(agentName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent %s: %v\n", agentName, err)
		os.Exit(1)
	}

	ctx := context.Background()
	runOne := func(msg string) {
		result, err := loop.Run(ctx, agent.RunRequest{
			SessionKey: sessionKey,
			Message:    msg,
			Channel:    "cli",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			return
		}
		fmt.Println(result.Content)
	}

	if message != "" {
		runOne(message)
		return
	}

	fmt.Println("Interactive chat (standalone). Type a message and press enter; Ctrl+D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		runOne(line)
	}
}
