package agent

import "testing"

func TestToolLoopStateDetectsRepeatedNoProgress(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "/tmp/x"}

	var hash string
	for i := 0; i < 2; i++ {
		hash = s.record("read_file", args)
		s.recordResult(hash, "file not found: /tmp/x")
		if level, _ := s.detect("read_file", hash); level != "" {
			t.Fatalf("call %d: expected no detection yet, got %q", i+1, level)
		}
	}

	hash = s.record("read_file", args)
	s.recordResult(hash, "file not found: /tmp/x again, still not found")
	level, msg := s.detect("read_file", hash)
	if level != "warning" {
		t.Fatalf("expected warning on 3rd identical-ish call, got %q", level)
	}
	if msg == "" {
		t.Error("expected non-empty loop message")
	}
}

func TestToolLoopStateCriticalAfterFiveCalls(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"cmd": "ls"}

	var hash string
	for i := 0; i < 5; i++ {
		hash = s.record("exec", args)
		s.recordResult(hash, "some output")
	}
	level, _ := s.detect("exec", hash)
	if level != "critical" {
		t.Fatalf("expected critical after 5 calls, got %q", level)
	}
}

func TestToolLoopStateDifferentArgsDontInterfere(t *testing.T) {
	var s toolLoopState
	h1 := s.record("read_file", map[string]interface{}{"path": "/a"})
	h2 := s.record("read_file", map[string]interface{}{"path": "/b"})
	if h1 == h2 {
		t.Fatal("expected distinct hashes for distinct arguments")
	}
}

func TestJaccardSimilarity(t *testing.T) {
	a := "file not found at this path"
	b := "file not found at this path"
	if sim := jaccardSimilarity(a, b); sim != 1 {
		t.Errorf("identical strings: got %v, want 1", sim)
	}
	if sim := jaccardSimilarity("completely different text here", "totally unrelated other words"); sim > 0.2 {
		t.Errorf("dissimilar strings: got %v, want low similarity", sim)
	}
}
