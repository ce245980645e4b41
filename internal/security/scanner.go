// Package security implements a deterministic scanner for prompt-injection
// patterns found in tool output and inbound channel messages, and the
// pattern-matched content policy applied before it reaches the chat loop.
package security

import (
	"regexp"
	"strings"
)

// Severity buckets a Scan score into a human-meaningful category.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Match records one triggered pattern and its contribution to the score.
type Match struct {
	Category string
	Pattern  string
	Weight   int
}

// Result is the outcome of a Scan.
type Result struct {
	Score    int // 0-100
	Severity Severity
	Matches  []Match
}

// weighted is one classification pattern with its scoring weight.
type weighted struct {
	category string
	re       *regexp.Regexp
	weight   int
}

// patterns are ordered roughly by how unambiguously malicious a match is.
// Weights are additive and capped at 100 by Scan.
var patterns = []weighted{
	// ── Instruction override ──
	{"override", regexp.MustCompile(`(?i)\bignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts?)\b`), 35},
	{"override", regexp.MustCompile(`(?i)\bdisregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules)\b`), 35},
	{"override", regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(in\s+)?(dan|jailbreak|developer\s+mode)\b`), 40},
	{"override", regexp.MustCompile(`(?i)\bnew\s+system\s+prompt\b`), 30},
	{"override", regexp.MustCompile(`(?i)\bforget\s+(everything|all\s+prior)\b`), 25},

	// ── Role / identity spoofing ──
	{"spoofing", regexp.MustCompile(`(?i)\[?\s*(system|assistant)\s*\]?\s*:\s*`), 15},
	{"spoofing", regexp.MustCompile(`(?i)\bact\s+as\s+(if\s+you\s+(are|were)|a)\b`), 10},
	{"spoofing", regexp.MustCompile(`(?i)\bpretend\s+(to\s+be|you\s+are)\b`), 10},

	// ── Exfiltration / credential probing ──
	{"exfiltration", regexp.MustCompile(`(?i)\b(reveal|print|dump|show)\s+(your\s+)?(system\s+prompt|instructions|api\s*key|credentials?|secrets?)\b`), 35},
	{"exfiltration", regexp.MustCompile(`(?i)\bsend\s+(this|it|the\s+above)\s+to\s+https?://`), 30},
	{"exfiltration", regexp.MustCompile(`https?://[^\s]+\.(burpcollaborator|oastify|requestbin|webhook\.site)`), 45},

	// ── Tool-call coercion embedded in observed content ──
	{"tool_coercion", regexp.MustCompile(`(?i)\bcall\s+the\s+\w+\s+tool\s+with\b`), 20},
	{"tool_coercion", regexp.MustCompile(`(?i)\bexecute\s+the\s+following\s+(command|code)\b`), 20},

	// ── Encoded payload smuggling ──
	{"encoded_payload", regexp.MustCompile(`(?i)\bbase64\s*(decode|:)\s*[A-Za-z0-9+/]{24,}={0,2}`), 20},
}

// classifyScore maps a numeric score to a severity bucket.
func classifyScore(score int) Severity {
	switch {
	case score <= 0:
		return SeverityNone
	case score < 25:
		return SeverityLow
	case score < 50:
		return SeverityMedium
	case score < 80:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Scan classifies text for injection attempts. It never panics on arbitrary
// Unicode input: all matching runs on the raw string via regexp, which
// operates byte-safely over UTF-8 without requiring valid rune decoding.
func Scan(text string) Result {
	if text == "" {
		return Result{Severity: SeverityNone}
	}

	// Cap the scanned window; injection payloads are front-loaded in
	// practice and this bounds cost on pathologically large tool output.
	const maxScanLen = 32_000
	scanText := text
	if len(scanText) > maxScanLen {
		scanText = scanText[:maxScanLen]
	}

	var matches []Match
	score := 0
	seen := make(map[string]bool)

	for _, p := range patterns {
		loc := p.re.FindStringIndex(scanText)
		if loc == nil {
			continue
		}
		key := p.category + "|" + p.re.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, Match{
			Category: p.category,
			Pattern:  p.re.String(),
			Weight:   p.weight,
		})
		score += p.weight
	}

	// Repeated role-spoofing markers compound risk: a message stuffed with
	// many "System:" / "Assistant:" headers is characteristic of a
	// multi-turn transcript forgery attempt.
	if n := strings.Count(strings.ToLower(scanText), "system:"); n >= 3 {
		score += 15
	}

	if score > 100 {
		score = 100
	}

	return Result{Score: score, Severity: classifyScore(score), Matches: matches}
}
