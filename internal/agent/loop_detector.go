package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// toolLoopCallKeepLast bounds how many recent result strings are kept per
// call signature — only the last two are ever compared.
const toolLoopCallKeepLast = 2

// toolLoopCall tracks repeated invocations of one tool with one exact set of
// arguments.
type toolLoopCall struct {
	name    string
	count   int
	results []string
}

// toolLoopState detects a tool being called repeatedly without making
// progress, by comparing the last two results of the same (name, args)
// call with token-Jaccard similarity. It is the only loop detector in the
// chat loop: consecutive assistant messages are not compared.
type toolLoopState struct {
	calls map[string]*toolLoopCall
}

// record registers one invocation of name with args and returns a stable
// hash identifying this exact (name, args) signature.
func (s *toolLoopState) record(name string, args map[string]interface{}) string {
	if s.calls == nil {
		s.calls = make(map[string]*toolLoopCall)
	}
	hash := hashCall(name, args)
	c, ok := s.calls[hash]
	if !ok {
		c = &toolLoopCall{name: name}
		s.calls[hash] = c
	}
	c.count++
	return hash
}

// recordResult stores the tool's output for the given call signature.
func (s *toolLoopState) recordResult(argsHash, forLLM string) {
	c, ok := s.calls[argsHash]
	if !ok {
		return
	}
	c.results = append(c.results, forLLM)
	if len(c.results) > toolLoopCallKeepLast {
		c.results = c.results[len(c.results)-toolLoopCallKeepLast:]
	}
}

// detect reports whether the call signature has entered a no-progress loop.
// Returns level "warning" or "critical" and a message to surface; empty
// level means no loop detected yet.
func (s *toolLoopState) detect(name, argsHash string) (level, msg string) {
	c, ok := s.calls[argsHash]
	if !ok {
		return "", ""
	}

	if c.count >= 5 {
		return "critical", "repeated " + name + " calls without progress"
	}

	if c.count >= 3 && len(c.results) == toolLoopCallKeepLast {
		if jaccardSimilarity(c.results[0], c.results[1]) > 0.4 {
			return "warning", "You appear to be in a loop — try a different approach for your last request."
		}
	}

	return "", ""
}

func hashCall(name string, args map[string]interface{}) string {
	argsJSON, _ := json.Marshal(args)
	h := sha256.Sum256(append([]byte(name+"\x00"), argsJSON...))
	return hex.EncodeToString(h[:])
}

// jaccardSimilarity computes token-set Jaccard similarity over lowercase
// words longer than 2 characters (after trimming surrounding punctuation).
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) > 2 {
			set[word] = true
		}
	}
	return set
}
