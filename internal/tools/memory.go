package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openpawz/pawgo/internal/memory"
)

// memorySearcher is the subset of *memory.Engine the search tool needs, so
// tests can substitute a fake without a real database.
type memorySearcher interface {
	Search(ctx context.Context, agentID, query string, k int, threshold float64) ([]memory.Result, error)
}

// MemorySearchTool runs a hybrid (BM25 + vector) search over stored
// memories and formats the ranked results for inlining into a reply.
type MemorySearchTool struct {
	engine memorySearcher
}

func NewMemorySearchTool(engine memorySearcher) *MemorySearchTool {
	return &MemorySearchTool{engine: engine}
}

func (t *MemorySearchTool) Name() string { return "memory_search" }
func (t *MemorySearchTool) Description() string {
	return "Search the agent's long-term memory for relevant facts, preferences, or past events."
}
func (t *MemorySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "What to search for"},
			"limit": map[string]interface{}{"type": "number", "description": "Maximum results to return (default 10)"},
		},
		"required": []string{"query"},
	}
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	query, _ := args["query"].(string)
	if query == "" {
		return ErrorResult("query is required")
	}
	limit := 10
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	agentID := ToolAgentIDFromCtx(ctx)
	results, err := t.engine.Search(ctx, agentID, query, limit, 0)
	if err != nil {
		return ErrorResult(fmt.Sprintf("memory search failed: %v", err))
	}
	if len(results) == 0 {
		return SilentResult("No relevant memories found.")
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("[id=%d score=%.3f category=%s] %s\n", r.ID, r.Score, r.Category, r.Content))
	}
	return SilentResult(sb.String())
}

// memoryGetter is the subset of *memory.Engine the get tool needs.
type memoryGetter interface {
	Get(id int64, agentID string) (memory.Result, error)
}

// MemoryGetTool fetches one memory by ID, for when a prior search result
// needs to be re-read in full.
type MemoryGetTool struct {
	engine memoryGetter
}

func NewMemoryGetTool(engine memoryGetter) *MemoryGetTool {
	return &MemoryGetTool{engine: engine}
}

func (t *MemoryGetTool) Name() string        { return "memory_get" }
func (t *MemoryGetTool) Description() string { return "Fetch a specific memory by its ID" }
func (t *MemoryGetTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "number", "description": "Memory ID from a previous memory_search result"},
		},
		"required": []string{"id"},
	}
}

func (t *MemoryGetTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	idFloat, ok := args["id"].(float64)
	if !ok {
		return ErrorResult("id is required")
	}
	agentID := ToolAgentIDFromCtx(ctx)
	m, err := t.engine.Get(int64(idFloat), agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrorResult("memory not found")
		}
		return ErrorResult(fmt.Sprintf("memory lookup failed: %v", err))
	}
	return SilentResult(fmt.Sprintf("[id=%d category=%s] %s", m.ID, m.Category, m.Content))
}
