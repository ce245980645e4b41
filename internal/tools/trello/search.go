package trello

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// SearchTool searches across the authenticated member's boards, cards, and
// other Trello objects using Trello's own query syntax.
type SearchTool struct{ c *client }

func NewSearchTool(resolve CredentialResolver) *SearchTool {
	return &SearchTool{c: newClient(resolve)}
}

func (t *SearchTool) Name() string { return "trello_search" }

func (t *SearchTool) Description() string {
	return "Search Trello cards by text query, optionally scoped to one board (Trello query syntax, e.g. \"board:abc123 label:red overdue:true\")."
}

func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string"},
			"limit": map[string]interface{}{"type": "integer", "description": "Max results, default 10."},
		},
		"required": []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	query := argString(args, "query")
	if query == "" {
		return &tools.Result{ForLLM: "query is required", IsError: true}
	}
	limit := 10
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	var result struct {
		Cards []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			URL    string `json:"url"`
			Closed bool   `json:"closed"`
		} `json:"cards"`
	}
	params := url.Values{
		"query":       {query},
		"modelTypes":  {"cards"},
		"cards_limit": {strconv.Itoa(limit)},
		"card_fields": {"name,url,closed"},
		"partial":     {"true"},
	}
	if err := t.c.do(ctx, "GET", "/search", params, &result); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}

	if len(result.Cards) == 0 {
		return &tools.Result{ForLLM: "No matching cards found."}
	}
	var out []string
	for _, c := range result.Cards {
		status := ""
		if c.Closed {
			status = " (archived)"
		}
		out = append(out, fmt.Sprintf("%s (%s)%s — %s", c.Name, c.ID, status, c.URL))
	}
	return &tools.Result{ForLLM: strings.Join(out, "\n")}
}
