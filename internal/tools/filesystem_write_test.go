package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileToolCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir, true)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "nested/dir/out.txt",
		"content": "hello",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}

	data, err := os.ReadFile(filepath.Join(dir, "nested/dir/out.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}
}

func TestWriteFileToolRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir, true)

	res := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "../../etc/passwd",
		"content": "pwned",
	})
	if !res.IsError {
		t.Fatal("expected path escape to be rejected")
	}
}

func TestEditFileToolReplacesUniqueMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc old() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{
		"path":     "f.go",
		"old_text": "func old()",
		"new_text": "func renamed()",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "func renamed()") {
		t.Errorf("edit did not apply: %s", data)
	}
}

func TestEditFileToolRejectsAmbiguousMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	os.WriteFile(path, []byte("foo\nfoo\n"), 0o644)

	tool := NewEditTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{
		"path":     "f.txt",
		"old_text": "foo",
		"new_text": "bar",
	})
	if !res.IsError {
		t.Fatal("expected ambiguous match to be rejected without replace_all")
	}
}

func TestListFilesToolSortsEntries(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)

	tool := NewListFilesTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	lines := strings.Split(res.ForLLM, "\n")
	if len(lines) != 3 || lines[0] != "a.txt" || lines[2] != "sub/" {
		t.Errorf("unexpected listing: %v", lines)
	}
}

func TestGlobToolMatchesExtension(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644)

	tool := NewGlobTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{"pattern": "*.go"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if res.ForLLM != "a.go" {
		t.Errorf("expected only a.go, got %q", res.ForLLM)
	}
}

func TestSearchToolFindsLineMatches(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\nfunc needle() {}\n"), 0o644)

	tool := NewSearchTool(dir, true)
	res := tool.Execute(context.Background(), map[string]interface{}{"query": "needle"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "a.go:2:") {
		t.Errorf("expected a.go:2 match, got %q", res.ForLLM)
	}
}
