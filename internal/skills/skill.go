// Package skills compiles the enabled built-in and manifest skills for an
// agent into a single system prompt fragment (community or agent-scoped
// skill sections are not read), decrypting any
// stored credentials and compressing the result to fit a fixed context
// budget when it would otherwise be too large to send to the model.
package skills

import (
	"sort"
	"strings"
)

// CredentialField names one credential a skill needs injected (e.g. an API
// key), matched against vault-stored values by Key.
type CredentialField struct {
	Key         string
	Description string
}

// Skill is one enabled capability the agent can be told about: a name, a
// short description used in the inline summary, and longer instructions
// folded into the compiled system prompt fragment.
type Skill struct {
	ID                  string
	Name                string
	Description         string
	Path                string // manifest file path, "" for built-ins
	Instructions        string
	RequiredCredentials []CredentialField
	HideCredentials     bool // e.g. coinbase/dex: auth stays server-side
	Source              string // "builtin", "manifest", "community"
	OAuth               *OAuthSpec // set when the manifest declares oauth = true
}

// OAuthSpec describes how to refresh a skill's vault-stored OAuth credential
// (stored under the "refresh_token" key) into a short-lived access token via
// the standard refresh_token grant. Client ID/secret are read from the named
// environment variables at refresh time, never persisted to the manifest or
// the vault.
type OAuthSpec struct {
	TokenURL         string
	ClientIDEnv      string
	ClientSecretEnv  string
}

// hiddenCredentialSkills never get credential values injected into their
// prompt text even when they declare RequiredCredentials — their tool
// executor already holds the credentials server-side.
var hiddenCredentialSkills = map[string]bool{
	"coinbase": true,
	"dex":      true,
}

// FilterSkills returns the enabled skills, restricted to allowList when
// non-nil. A nil allowList means "all skills"; an empty, non-nil slice means
// "no skills".
func (l *Loader) FilterSkills(allowList []string) []Skill {
	all := l.enabled()
	if allowList == nil {
		return all
	}
	allowed := make(map[string]bool, len(allowList))
	for _, id := range allowList {
		allowed[id] = true
	}
	var out []Skill
	for _, s := range all {
		if allowed[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// BuildSummary renders a compact XML-ish summary of the given skills for
// inline injection into the system prompt, used when the skill set is small
// enough that full descriptions fit cheaply (see skillInlineMaxCount/Tokens
// in the agent package).
func (l *Loader) BuildSummary(allowList []string) string {
	filtered := l.FilterSkills(allowList)
	if len(filtered) == 0 {
		return ""
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range filtered {
		b.WriteString("  <skill id=\"")
		b.WriteString(s.ID)
		b.WriteString("\" name=\"")
		b.WriteString(s.Name)
		b.WriteString("\">")
		b.WriteString(s.Description)
		b.WriteString("</skill>\n")
	}
	b.WriteString("</available_skills>\n")
	return b.String()
}
