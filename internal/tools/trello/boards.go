package trello

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// BoardsTool lists the boards visible to the authenticated member, or
// fetches one board by ID.
type BoardsTool struct{ c *client }

func NewBoardsTool(resolve CredentialResolver) *BoardsTool {
	return &BoardsTool{c: newClient(resolve)}
}

func (t *BoardsTool) Name() string { return "trello_boards" }

func (t *BoardsTool) Description() string {
	return "List the Trello boards visible to the connected account, or fetch one board's details by ID."
}

func (t *BoardsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"boardId": map[string]interface{}{
				"type":        "string",
				"description": "Board ID to fetch. Omit to list all boards.",
			},
		},
	}
}

func (t *BoardsTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	boardID := argString(args, "boardId")

	var names []string
	var path string
	if boardID != "" {
		var board struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		}
		path = "/boards/" + url.PathEscape(boardID)
		if err := t.c.do(ctx, "GET", path, nil, &board); err != nil {
			return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
		}
		return &tools.Result{ForLLM: fmt.Sprintf("%s (%s) — %s", board.Name, board.ID, board.URL)}
	}

	var boards []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Closed bool   `json:"closed"`
	}
	if err := t.c.do(ctx, "GET", "/members/me/boards", url.Values{"fields": {"name,closed"}}, &boards); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	for _, b := range boards {
		if b.Closed {
			continue
		}
		names = append(names, fmt.Sprintf("%s (%s)", b.Name, b.ID))
	}
	if len(names) == 0 {
		return &tools.Result{ForLLM: "No open boards found."}
	}
	return &tools.Result{ForLLM: strings.Join(names, "\n")}
}
