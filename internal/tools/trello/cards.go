package trello

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openpawz/pawgo/internal/tools"
)

// CardsTool creates, fetches, and updates Trello cards.
type CardsTool struct{ c *client }

func NewCardsTool(resolve CredentialResolver) *CardsTool {
	return &CardsTool{c: newClient(resolve)}
}

func (t *CardsTool) Name() string { return "trello_cards" }

func (t *CardsTool) Description() string {
	return "Create a card on a list, fetch a card by ID, or update a card's name/description/closed state."
}

func (t *CardsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type": "string",
				"enum": []string{"create", "get", "update"},
			},
			"cardId":      map[string]interface{}{"type": "string", "description": "Required for get/update."},
			"listId":      map[string]interface{}{"type": "string", "description": "Required for create."},
			"name":        map[string]interface{}{"type": "string"},
			"description": map[string]interface{}{"type": "string"},
			"closed":      map[string]interface{}{"type": "boolean", "description": "Archive (true) or reopen (false) a card during update."},
		},
		"required": []string{"action"},
	}
}

func (t *CardsTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	switch argString(args, "action") {
	case "create":
		return t.create(ctx, args)
	case "get":
		return t.get(ctx, args)
	case "update":
		return t.update(ctx, args)
	default:
		return &tools.Result{ForLLM: `action must be "create", "get", or "update"`, IsError: true}
	}
}

func (t *CardsTool) create(ctx context.Context, args map[string]interface{}) *tools.Result {
	listID := argString(args, "listId")
	if listID == "" {
		return &tools.Result{ForLLM: "listId is required to create a card", IsError: true}
	}
	params := url.Values{"idList": {listID}, "name": {argString(args, "name")}}
	if desc := argString(args, "description"); desc != "" {
		params.Set("desc", desc)
	}
	var card struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := t.c.do(ctx, "POST", "/cards", params, &card); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	return &tools.Result{ForLLM: fmt.Sprintf("Created card %q (%s): %s", card.Name, card.ID, card.URL)}
}

func (t *CardsTool) get(ctx context.Context, args map[string]interface{}) *tools.Result {
	cardID := argString(args, "cardId")
	if cardID == "" {
		return &tools.Result{ForLLM: "cardId is required", IsError: true}
	}
	var card struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Desc   string `json:"desc"`
		URL    string `json:"url"`
		Closed bool   `json:"closed"`
	}
	if err := t.c.do(ctx, "GET", "/cards/"+url.PathEscape(cardID), nil, &card); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	return &tools.Result{ForLLM: fmt.Sprintf("%s (%s)\nClosed: %t\nURL: %s\n\n%s", card.Name, card.ID, card.Closed, card.URL, card.Desc)}
}

func (t *CardsTool) update(ctx context.Context, args map[string]interface{}) *tools.Result {
	cardID := argString(args, "cardId")
	if cardID == "" {
		return &tools.Result{ForLLM: "cardId is required", IsError: true}
	}
	params := url.Values{}
	if v := argString(args, "name"); v != "" {
		params.Set("name", v)
	}
	if v := argString(args, "description"); v != "" {
		params.Set("desc", v)
	}
	if v, ok := args["closed"].(bool); ok {
		params.Set("closed", fmt.Sprintf("%t", v))
	}
	var card struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := t.c.do(ctx, "PUT", "/cards/"+url.PathEscape(cardID), params, &card); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	return &tools.Result{ForLLM: fmt.Sprintf("Updated card %q (%s)", card.Name, card.ID)}
}
