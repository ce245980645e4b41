package skills

import (
	"strings"
	"testing"
)

type fakeVault struct{ values map[string]string }

func (f *fakeVault) Decrypt(ciphertext string) (string, error) {
	if v, ok := f.values[ciphertext]; ok {
		return v, nil
	}
	return "", nil
}

type fakeSkillStore struct{ creds map[string]map[string]string }

func (f *fakeSkillStore) SetCredential(skillID, key, ciphertext string) error { return nil }
func (f *fakeSkillStore) GetCredential(skillID, key string) (string, bool, error) {
	v, ok := f.creds[skillID][key]
	return v, ok, nil
}
func (f *fakeSkillStore) Credentials(skillID string) (map[string]string, error) {
	return f.creds[skillID], nil
}
func (f *fakeSkillStore) RecordOutput(skillID, sessionKey, content string) error { return nil }
func (f *fakeSkillStore) RecentOutputs(skillID string, limit int) ([]string, error) { return nil, nil }

func TestFilterSkillsRespectsAllowList(t *testing.T) {
	l := NewLoader("", nil, nil)

	all := l.FilterSkills(nil)
	if len(all) == 0 {
		t.Fatal("expected builtin skills with nil allowList")
	}

	none := l.FilterSkills([]string{})
	if len(none) != 0 {
		t.Fatalf("expected no skills with empty allowList, got %d", len(none))
	}

	one := l.FilterSkills([]string{"web_research"})
	if len(one) != 1 || one[0].ID != "web_research" {
		t.Fatalf("expected only web_research, got %+v", one)
	}
}

func TestBuildSummaryContainsAllowedSkills(t *testing.T) {
	l := NewLoader("", nil, nil)
	summary := l.BuildSummary([]string{"shell"})
	if !strings.Contains(summary, "id=\"shell\"") {
		t.Errorf("expected shell skill in summary, got %q", summary)
	}
	if strings.Contains(summary, "id=\"web_research\"") {
		t.Errorf("expected web_research excluded from summary, got %q", summary)
	}
}

func TestCompileHidesCredentialsForHiddenSkills(t *testing.T) {
	store := &fakeSkillStore{creds: map[string]map[string]string{
		"coinbase": {"api_key": "ct-abc"},
	}}
	vault := &fakeVault{values: map[string]string{"ct-abc": "sk-live-12345"}}
	l := NewLoader("", vault, store)

	out := l.Compile("agent-1", []string{"coinbase"})
	// coinbase hides credentials by design — the plain key must never appear.
	if strings.Contains(out, "sk-live-12345") {
		t.Error("expected coinbase credentials to stay hidden from the prompt")
	}
}

func TestCompileInjectsNonHiddenCredentials(t *testing.T) {
	l := NewLoader("", nil, nil)
	l.builtins = append(l.builtins, Skill{
		ID:           "weather",
		Name:         "Weather",
		Description:  "Look up forecasts",
		Instructions: "Call the weather API with the provided key.",
		RequiredCredentials: []CredentialField{{Key: "api_key"}},
		Source:       "builtin",
	})
	store := &fakeSkillStore{creds: map[string]map[string]string{"weather": {"api_key": "ct-1"}}}
	vault := &fakeVault{values: map[string]string{"ct-1": "plain-weather-key"}}
	l.skillStore = store
	l.vault = vault

	out := l.Compile("agent-1", []string{"weather"})
	if !strings.Contains(out, "plain-weather-key") {
		t.Errorf("expected decrypted credential inlined, got %q", out)
	}
}

func TestCompressSectionsKeepsCredentialSectionsOverTruncation(t *testing.T) {
	sections := []string{
		"## Weather Skill (weather)\nAPI Key: " + strings.Repeat("x", 500),
		"## Long Skill (long)\n" + strings.Repeat("y", 20000),
	}
	out := compressSections(sections, 2000)
	if !strings.Contains(out, "API Key:") {
		t.Error("expected credential-bearing section to survive compression")
	}
	if len(out) > 2500 {
		t.Errorf("expected compressed output near budget, got %d chars", len(out))
	}
}
