package trello

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// LabelsTool lists a board's labels and applies one to a card.
type LabelsTool struct{ c *client }

func NewLabelsTool(resolve CredentialResolver) *LabelsTool {
	return &LabelsTool{c: newClient(resolve)}
}

func (t *LabelsTool) Name() string { return "trello_labels" }

func (t *LabelsTool) Description() string {
	return "List the labels defined on a board, or apply an existing label to a card."
}

func (t *LabelsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"boardId": map[string]interface{}{"type": "string", "description": "Board ID to list labels for."},
			"cardId":  map[string]interface{}{"type": "string", "description": "Card ID to apply a label to."},
			"labelId": map[string]interface{}{"type": "string", "description": "Label ID to apply (with cardId)."},
		},
	}
}

func (t *LabelsTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	cardID := argString(args, "cardId")
	labelID := argString(args, "labelId")
	if cardID != "" && labelID != "" {
		path := "/cards/" + url.PathEscape(cardID) + "/idLabels"
		if err := t.c.do(ctx, "POST", path, url.Values{"value": {labelID}}, nil); err != nil {
			return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
		}
		return &tools.Result{ForLLM: "Label applied."}
	}

	boardID := argString(args, "boardId")
	if boardID == "" {
		return &tools.Result{ForLLM: "boardId is required to list labels", IsError: true}
	}
	var labels []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	path := "/boards/" + url.PathEscape(boardID) + "/labels"
	if err := t.c.do(ctx, "GET", path, nil, &labels); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	var out []string
	for _, l := range labels {
		name := l.Name
		if name == "" {
			name = "(unnamed)"
		}
		out = append(out, fmt.Sprintf("%s [%s] (%s)", name, l.Color, l.ID))
	}
	if len(out) == 0 {
		return &tools.Result{ForLLM: "No labels on that board."}
	}
	return &tools.Result{ForLLM: strings.Join(out, "\n")}
}
