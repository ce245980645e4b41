package skills

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/openpawz/pawgo/internal/store"
)

// Loader discovers and enables skills from two sources: a fixed built-in
// set and TOML manifests under a skills directory. It reads no community
// or agent-scoped skills from the database.
type Loader struct {
	manifestDir string
	vault       Vault
	skillStore  store.SkillStore

	builtins []Skill
	enabledSet map[string]bool // nil = all enabled
	customInstructions map[string]string
}

// Vault decrypts stored credential ciphertext. Satisfied by
// internal/vault.Vault.
type Vault interface {
	Decrypt(ciphertext string) (string, error)
}

// NewLoader creates a Loader over the given manifest directory (e.g.
// ~/.pawd/skills) and credential vault.
func NewLoader(manifestDir string, vault Vault, skillStore store.SkillStore) *Loader {
	return &Loader{
		manifestDir: manifestDir,
		vault:       vault,
		skillStore:  skillStore,
		builtins:    builtinSkills(),
	}
}

// SetEnabled restricts which skill IDs are considered enabled. A nil map
// means every discovered skill is enabled.
func (l *Loader) SetEnabled(ids map[string]bool) {
	l.enabledSet = ids
}

// SetCustomInstructions overrides a skill's default instructions (a user
// may have hand-edited them).
func (l *Loader) SetCustomInstructions(skillID, instructions string) {
	if l.customInstructions == nil {
		l.customInstructions = make(map[string]string)
	}
	l.customInstructions[skillID] = instructions
}

func (l *Loader) isEnabled(id string) bool {
	if l.enabledSet == nil {
		return true
	}
	return l.enabledSet[id]
}

// enabled returns built-in skills plus manifest skills discovered under
// manifestDir, deduplicated (built-ins win on ID collision).
func (l *Loader) enabled() []Skill {
	seen := make(map[string]bool)
	var out []Skill

	for _, s := range l.builtins {
		if !l.isEnabled(s.ID) {
			continue
		}
		s.Instructions = l.resolveInstructions(s)
		if s.Instructions == "" {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	for _, s := range l.scanManifests() {
		if seen[s.ID] || !l.isEnabled(s.ID) {
			continue
		}
		s.Instructions = l.resolveInstructions(s)
		if s.Instructions == "" {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	return out
}

func (l *Loader) resolveInstructions(s Skill) string {
	if custom, ok := l.customInstructions[s.ID]; ok && custom != "" {
		return custom
	}
	return s.Instructions
}

// manifest is the on-disk shape of a skill TOML file.
type manifest struct {
	ID                   string   `toml:"id"`
	Name                 string   `toml:"name"`
	Description          string   `toml:"description"`
	Instructions         string   `toml:"instructions"`
	Credentials          []string `toml:"credentials"`
	OAuth                bool     `toml:"oauth"`
	OAuthTokenURL        string   `toml:"oauth_token_url"`
	OAuthClientIDEnv     string   `toml:"oauth_client_id_env"`
	OAuthClientSecretEnv string   `toml:"oauth_client_secret_env"`
}

// scanManifests reads every *.toml file directly under manifestDir as a
// community/user-installed skill definition. Malformed manifests are
// skipped with a warning rather than failing the whole scan.
func (l *Loader) scanManifests() []Skill {
	if l.manifestDir == "" {
		return nil
	}
	entries, err := os.ReadDir(l.manifestDir)
	if err != nil {
		return nil
	}

	var out []Skill
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(l.manifestDir, entry.Name())
		var m manifest
		if _, err := toml.DecodeFile(path, &m); err != nil {
			slog.Warn("skills: failed to parse manifest", "path", path, "error", err)
			continue
		}
		if m.ID == "" {
			continue
		}
		var creds []CredentialField
		for _, key := range m.Credentials {
			creds = append(creds, CredentialField{Key: key})
		}
		var oauthSpec *OAuthSpec
		if m.OAuth {
			oauthSpec = &OAuthSpec{
				TokenURL:        m.OAuthTokenURL,
				ClientIDEnv:     m.OAuthClientIDEnv,
				ClientSecretEnv: m.OAuthClientSecretEnv,
			}
		}
		out = append(out, Skill{
			ID:                  m.ID,
			Name:                m.Name,
			Description:         m.Description,
			Path:                path,
			Instructions:        m.Instructions,
			RequiredCredentials: creds,
			Source:              "manifest",
			OAuth:               oauthSpec,
		})
	}
	return out
}
