package trello

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openpawz/pawgo/internal/tools"
)

// MembersTool lists a board's members and assigns a member to a card.
type MembersTool struct{ c *client }

func NewMembersTool(resolve CredentialResolver) *MembersTool {
	return &MembersTool{c: newClient(resolve)}
}

func (t *MembersTool) Name() string { return "trello_members" }

func (t *MembersTool) Description() string {
	return "List the members on a board, or assign an existing member to a card."
}

func (t *MembersTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"boardId":  map[string]interface{}{"type": "string", "description": "Board ID to list members for."},
			"cardId":   map[string]interface{}{"type": "string", "description": "Card ID to assign a member to."},
			"memberId": map[string]interface{}{"type": "string", "description": "Member ID to assign (with cardId)."},
		},
	}
}

func (t *MembersTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	cardID := argString(args, "cardId")
	memberID := argString(args, "memberId")
	if cardID != "" && memberID != "" {
		path := "/cards/" + url.PathEscape(cardID) + "/idMembers"
		if err := t.c.do(ctx, "POST", path, url.Values{"value": {memberID}}, nil); err != nil {
			return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
		}
		return &tools.Result{ForLLM: "Member assigned."}
	}

	boardID := argString(args, "boardId")
	if boardID == "" {
		return &tools.Result{ForLLM: "boardId is required to list members", IsError: true}
	}
	var members []struct {
		ID       string `json:"id"`
		FullName string `json:"fullName"`
		Username string `json:"username"`
	}
	path := "/boards/" + url.PathEscape(boardID) + "/members"
	if err := t.c.do(ctx, "GET", path, nil, &members); err != nil {
		return &tools.Result{ForLLM: err.Error(), IsError: true, Err: err}
	}
	var out []string
	for _, m := range members {
		out = append(out, fmt.Sprintf("%s (@%s, %s)", m.FullName, m.Username, m.ID))
	}
	if len(out) == 0 {
		return &tools.Result{ForLLM: "No members on that board."}
	}
	return &tools.Result{ForLLM: strings.Join(out, "\n")}
}
