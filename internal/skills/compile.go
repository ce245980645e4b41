package skills

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

const maxSkillChars = 16000

const (
	skillsHeader = "\n\n# Enabled Skills\nYou have the following skills available. Use exec, fetch, read_file, " +
		"write_file, and other built-in tools to leverage them.\n\n"
	skillsFooter = "\n\n[Some skill instructions were compressed to fit the context budget. Ask the skill's " +
		"owner for full documentation if a compressed section isn't enough.]\n"
)

// Compile assembles every enabled skill (filtered by allowList, nil = all)
// into one system-prompt fragment: built-in instructions, manifest
// instructions, decrypted credentials inlined where the skill allows it,
// and the whole thing compressed under maxSkillChars when it would
// otherwise run over budget.
func (l *Loader) Compile(agentID string, allowList []string) string {
	filtered := l.FilterSkills(allowList)
	if len(filtered) == 0 {
		return ""
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	var sections []string
	for _, s := range filtered {
		instructions := s.Instructions
		if len(s.RequiredCredentials) > 0 && !s.HideCredentials {
			instructions = l.injectCredentials(s, instructions)
		}
		sections = append(sections, fmt.Sprintf("## %s Skill (%s)\n%s", s.Name, s.ID, instructions))
	}

	result := skillsHeader + strings.Join(sections, "\n\n") + "\n"

	if len(result) > maxSkillChars {
		slog.Warn("skills: compiled instructions exceed budget, compressing",
			"chars", len(result), "budget", maxSkillChars)
		result = compressSections(sections, maxSkillChars)
	}

	return result
}

// injectCredentials appends a "Credentials available" block listing
// decrypted values for a skill's required credential keys, skipping any
// key with no stored value.
func (l *Loader) injectCredentials(s Skill, instructions string) string {
	if l.skillStore == nil || l.vault == nil {
		return instructions
	}
	encrypted, err := l.skillStore.Credentials(s.ID)
	if err != nil || len(encrypted) == 0 {
		return instructions
	}

	var lines []string
	for _, field := range s.RequiredCredentials {
		ct, ok := encrypted[field.Key]
		if !ok {
			continue
		}
		plain, err := l.vault.Decrypt(ct)
		if err != nil {
			slog.Warn("skills: credential decrypt failed", "skill", s.ID, "key", field.Key, "error", err)
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s = %s", field.Key, plain))
	}
	if len(lines) == 0 {
		return instructions
	}

	return instructions + "\n\nCredentials available (use these values directly — do NOT ask the user for them):\n" +
		strings.Join(lines, "\n")
}

// hasCredentialMarkers flags a section as "priority": it already carries
// real credential values and must never be silently dropped.
func hasCredentialMarkers(section string) bool {
	sl := strings.ToLower(section)
	markers := []string{"api key", "api_key", "bearer ", "token:", "credentials available", "base url:", "endpoint:"}
	for _, m := range markers {
		if strings.Contains(sl, m) {
			return true
		}
	}
	return false
}

// compressSections fits sections under budget: priority (credential-bearing)
// sections are kept in full or compressed to ~600 chars if they still don't
// fit; normal sections are kept in full, compressed to ~300 chars, or
// dropped entirely once the budget is exhausted. Original ordering is
// restored at the end.
func compressSections(sections []string, budget int) string {
	overhead := len(skillsHeader) + len(skillsFooter)
	sectionBudget := budget - overhead
	if sectionBudget < 0 {
		sectionBudget = 0
	}

	type indexed struct {
		idx     int
		section string
	}
	var priority, normal []indexed
	for i, s := range sections {
		if hasCredentialMarkers(s) {
			priority = append(priority, indexed{i, s})
		} else {
			normal = append(normal, indexed{i, s})
		}
	}

	used := 0
	var kept []indexed

	for _, p := range priority {
		if used+len(p.section) < sectionBudget {
			kept = append(kept, p)
			used += len(p.section) + 2
			continue
		}
		compressed := compressOne(p.section, 600)
		if used+len(compressed) < sectionBudget {
			kept = append(kept, indexed{p.idx, compressed})
			used += len(compressed) + 2
		}
	}

	for _, n := range normal {
		if used+len(n.section) < sectionBudget {
			kept = append(kept, n)
			used += len(n.section) + 2
		} else if used+350 < sectionBudget {
			compressed := compressOne(n.section, 300)
			kept = append(kept, indexed{n.idx, compressed})
			used += len(compressed) + 2
		}
		// else: dropped, budget exhausted.
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].idx < kept[j].idx })

	parts := make([]string, len(kept))
	for i, k := range kept {
		parts[i] = k.section
	}

	return skillsHeader + strings.Join(parts, "\n\n") + skillsFooter
}

// compressOne truncates a section at a line boundary and appends a
// truncation note, keeping its header line intact.
func compressOne(section string, maxChars int) string {
	if len(section) <= maxChars {
		return section
	}
	headerEnd := strings.IndexByte(section, '\n')
	if headerEnd < 0 {
		headerEnd = len(section)
	}
	header := section[:headerEnd]
	body := section[headerEnd:]

	bodyBudget := maxChars - len(header) - 40
	if bodyBudget < 0 {
		bodyBudget = 0
	}
	if len(body) > bodyBudget {
		slice := body[:bodyBudget]
		if lastNL := strings.LastIndexByte(slice, '\n'); lastNL >= 0 {
			body = body[:lastNL]
		} else {
			body = slice
		}
	}

	return header + body + "\n[... truncated to fit context budget]"
}
