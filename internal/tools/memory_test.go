package tools

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/openpawz/pawgo/internal/memory"
)

type fakeMemorySearcher struct {
	results []memory.Result
	err     error
}

func (f *fakeMemorySearcher) Search(ctx context.Context, agentID, query string, k int, threshold float64) ([]memory.Result, error) {
	return f.results, f.err
}

func TestMemorySearchToolFormatsResults(t *testing.T) {
	searcher := &fakeMemorySearcher{results: []memory.Result{{Score: 0.9}}}
	searcher.results[0].ID = 1
	searcher.results[0].Content = "likes dark roast coffee"
	searcher.results[0].Category = "preference"
	tool := NewMemorySearchTool(searcher)

	res := tool.Execute(context.Background(), map[string]interface{}{"query": "coffee"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "likes dark roast coffee") {
		t.Errorf("expected memory content in result, got %q", res.ForLLM)
	}
}

func TestMemorySearchToolRequiresQuery(t *testing.T) {
	tool := NewMemorySearchTool(&fakeMemorySearcher{})
	res := tool.Execute(context.Background(), map[string]interface{}{})
	if !res.IsError {
		t.Fatal("expected error for missing query")
	}
}

func TestMemorySearchToolHandlesNoResults(t *testing.T) {
	tool := NewMemorySearchTool(&fakeMemorySearcher{})
	res := tool.Execute(context.Background(), map[string]interface{}{"query": "anything"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if !res.Silent {
		t.Error("expected silent no-results response")
	}
}

type fakeMemoryGetter struct {
	result memory.Result
	err    error
}

func (f *fakeMemoryGetter) Get(id int64, agentID string) (memory.Result, error) {
	return f.result, f.err
}

func TestMemoryGetToolReturnsNotFound(t *testing.T) {
	tool := NewMemoryGetTool(&fakeMemoryGetter{err: sql.ErrNoRows})
	res := tool.Execute(context.Background(), map[string]interface{}{"id": float64(5)})
	if !res.IsError || res.ForLLM != "memory not found" {
		t.Fatalf("expected not-found error, got %+v", res)
	}
}

func TestMemoryGetToolReturnsContent(t *testing.T) {
	getter := &fakeMemoryGetter{}
	getter.result.ID = 7
	getter.result.Content = "birthday is March 3rd"
	tool := NewMemoryGetTool(getter)

	res := tool.Execute(context.Background(), map[string]interface{}{"id": float64(7)})
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.ForLLM)
	}
	if !strings.Contains(res.ForLLM, "birthday is March 3rd") {
		t.Errorf("expected content in result, got %q", res.ForLLM)
	}
}
