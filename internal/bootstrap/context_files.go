package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
)

// ContextFile is one workspace markdown file injected into the compiled
// system prompt.
type ContextFile struct {
	Path    string // filename, e.g. AGENTS.md
	Content string
}

// workspaceFileOrder is the order context files appear in the prompt.
var workspaceFileOrder = []string{
	AgentsFile,
	SoulFile,
	ToolsFile,
	IdentityFile,
	UserFile,
	HeartbeatFile,
	BootstrapFile,
}

// LoadWorkspaceFiles reads whichever workspace context files exist, in
// prompt order. Missing files are silently skipped.
func LoadWorkspaceFiles(workspaceDir string) []ContextFile {
	if workspaceDir == "" {
		return nil
	}
	var files []ContextFile
	for _, name := range workspaceFileOrder {
		data, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		files = append(files, ContextFile{Path: name, Content: content})
	}
	return files
}

// TruncateConfig bounds how much of the workspace context files makes it
// into the system prompt, so a sprawling USER.md can't crowd out the
// context window.
type TruncateConfig struct {
	MaxCharsPerFile int // 0 = use DefaultMaxCharsPerFile
	TotalMaxChars   int // 0 = use DefaultTotalMaxChars
}

const (
	DefaultMaxCharsPerFile = 8000
	DefaultTotalMaxChars   = 24000
)

// BuildContextFiles truncates each file to cfg.MaxCharsPerFile, then drops
// or trims trailing files once the running total exceeds cfg.TotalMaxChars.
func BuildContextFiles(raw []ContextFile, cfg TruncateConfig) []ContextFile {
	perFile := cfg.MaxCharsPerFile
	if perFile <= 0 {
		perFile = DefaultMaxCharsPerFile
	}
	total := cfg.TotalMaxChars
	if total <= 0 {
		total = DefaultTotalMaxChars
	}

	var out []ContextFile
	budget := total
	for _, f := range raw {
		if budget <= 0 {
			break
		}
		content := f.Content
		if len(content) > perFile {
			content = content[:perFile] + "\n...(truncated)"
		}
		if len(content) > budget {
			content = content[:budget] + "\n...(truncated)"
		}
		out = append(out, ContextFile{Path: f.Path, Content: content})
		budget -= len(content)
	}
	return out
}

// IsSubagentSession reports whether a session key was built for a spawned
// subagent run (as opposed to a top-level chat), so the prompt builder can
// use a minimal system prompt for it.
func IsSubagentSession(sessionKey string) bool {
	return strings.Contains(sessionKey, ":system:subagent:")
}

// IsCronSession reports whether a session key belongs to a scheduled
// (cron-triggered) run, as built by sessions.BuildCronSessionKey.
func IsCronSession(sessionKey string) bool {
	return strings.Contains(sessionKey, ":system:cron:")
}
