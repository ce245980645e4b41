package trello

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// ChecklistsTool adds a checklist to a card and appends items to it.
type ChecklistsTool struct{ c *client }

func NewChecklistsTool(resolve CredentialResolver) *ChecklistsTool {
	return &ChecklistsTool{c: newClient(resolve)}
}

func (t *ChecklistsTool) Name() string { return "trello_checklists" }

func (t *ChecklistsTool) Description() string {
	return "Add a checklist to a card, or add an item to an existing checklist."
}

func (t *ChecklistsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"cardId":      map[string]interface{}{"type": "string", "description": "Required to create a new checklist."},
			"checklistId": map[string]interface{}{"type": "string", "description": "Required to add an item to an existing checklist."},
			"name":        map[string]interface{}{"type": "string", "description": "Checklist name (when creating)."},
			"item":        map[string]interface{}{"type": "string", "description": "Item text to add (when checklistId is set)."},
		},
	}
}

func (t *ChecklistsTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	if checklistID := argString(args, "checklistId"); checklistID != "" {
		item := argString(args, "item")
		if item == "" {
			return &tools.Result{ForLLM: "item is required when checklistId is set", IsError: true}
		}
		var created struct {
			Name string `json:"name"`
		}
		path := "/checklists/" + url.PathEscape(checklistID) + "/checkItems"
		if err := t.c.do(ctx, "POST", path, url.Values{"name": {item}}, &created); err != nil {
			return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
		}
		return &tools.Result{ForLLM: fmt.Sprintf("Added item %q to checklist", strings.TrimSpace(created.Name))}
	}

	cardID := argString(args, "cardId")
	if cardID == "" {
		return &tools.Result{ForLLM: "cardId is required to create a checklist", IsError: true}
	}
	name := argString(args, "name")
	if name == "" {
		name = "Checklist"
	}
	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	path := "/cards/" + url.PathEscape(cardID) + "/checklists"
	if err := t.c.do(ctx, "POST", path, url.Values{"name": {name}}, &created); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	return &tools.Result{ForLLM: fmt.Sprintf("Created checklist %q (%s) on card", created.Name, created.ID)}
}
