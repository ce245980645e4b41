package agent

import "github.com/openpawz/pawgo/internal/security"

// InputGuard screens inbound user messages for prompt-injection patterns
// before they reach the chat loop. It is a thin adapter over
// internal/security's deterministic scanner: the chat loop only cares about
// which pattern categories fired, not the full scored result.
type InputGuard struct{}

// NewInputGuard creates an InputGuard using the default pattern set.
func NewInputGuard() *InputGuard {
	return &InputGuard{}
}

// Scan returns the category names of every injection pattern that matched
// text. An empty slice means nothing suspicious was found.
func (g *InputGuard) Scan(text string) []string {
	res := security.Scan(text)
	if len(res.Matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(res.Matches))
	seen := make(map[string]bool, len(res.Matches))
	for _, m := range res.Matches {
		if seen[m.Category] {
			continue
		}
		seen[m.Category] = true
		names = append(names, m.Category)
	}
	return names
}
