package trello

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// ListsTool lists a board's lists (columns), or creates a new one.
type ListsTool struct{ c *client }

func NewListsTool(resolve CredentialResolver) *ListsTool {
	return &ListsTool{c: newClient(resolve)}
}

func (t *ListsTool) Name() string { return "trello_lists" }

func (t *ListsTool) Description() string {
	return "List the lists (columns) on a Trello board, or create a new list on a board."
}

func (t *ListsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"boardId": map[string]interface{}{
				"type":        "string",
				"description": "Board ID to list or add a list to.",
			},
			"createName": map[string]interface{}{
				"type":        "string",
				"description": "If set, creates a new list with this name instead of listing.",
			},
		},
		"required": []string{"boardId"},
	}
}

func (t *ListsTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	boardID := argString(args, "boardId")
	if boardID == "" {
		return &tools.Result{ForLLM: "boardId is required", IsError: true}
	}

	if name := argString(args, "createName"); name != "" {
		var created struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		params := url.Values{"name": {name}, "idBoard": {boardID}}
		if err := t.c.do(ctx, "POST", "/lists", params, &created); err != nil {
			return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
		}
		return &tools.Result{ForLLM: fmt.Sprintf("Created list %q (%s)", created.Name, created.ID)}
	}

	var lists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	path := "/boards/" + url.PathEscape(boardID) + "/lists"
	if err := t.c.do(ctx, "GET", path, nil, &lists); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	var out []string
	for _, l := range lists {
		out = append(out, fmt.Sprintf("%s (%s)", l.Name, l.ID))
	}
	if len(out) == 0 {
		return &tools.Result{ForLLM: "No lists on that board."}
	}
	return &tools.Result{ForLLM: strings.Join(out, "\n")}
}
