// Package trello implements a skill-gated tool suite against the Trello
// REST API: boards, lists, cards, checklists, labels, members, and search.
// Every tool resolves its API key/token from the credential vault at call
// time rather than holding them in memory, matching the pattern the other
// vault-backed tools in this tree use.
package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	skillID     = "trello"
	apiBase     = "https://api.trello.com/1"
	apiTimeout  = 20 * time.Second
	maxBodyRead = 200_000
)

// CredentialResolver decrypts a skill's stored credential by key. Satisfied
// by internal/skills.Vault composed with a store.SkillStore lookup; the
// tools package can't import internal/skills (it would create an import
// cycle, since skills compiles tool instructions), so each tool takes this
// narrow function instead.
type CredentialResolver func(skillID, key string) (string, bool, error)

// client is shared by every Trello tool; it owns credential resolution and
// the low-level REST call.
type client struct {
	resolve CredentialResolver
	http    *http.Client
}

func newClient(resolve CredentialResolver) *client {
	return &client{
		resolve: resolve,
		http:    &http.Client{Timeout: apiTimeout},
	}
}

func (c *client) auth() (key, token string, err error) {
	key, ok, err := c.resolve(skillID, "api_key")
	if err != nil {
		return "", "", fmt.Errorf("trello: resolve api_key: %w", err)
	}
	if !ok || key == "" {
		return "", "", fmt.Errorf("trello: no api_key configured for the trello skill")
	}
	token, ok, err = c.resolve(skillID, "token")
	if err != nil {
		return "", "", fmt.Errorf("trello: resolve token: %w", err)
	}
	if !ok || token == "" {
		return "", "", fmt.Errorf("trello: no token configured for the trello skill")
	}
	return key, token, nil
}

// do issues method against path (e.g. "/boards/abc123") with extra query
// params, authenticates with the vault-resolved key/token, and decodes the
// JSON response into out (when out is non-nil).
func (c *client) do(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	key, token, err := c.auth()
	if err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", key)
	params.Set("token", token)

	u := apiBase + path
	if !strings.HasPrefix(path, "/") {
		u = apiBase + "/" + path
	}

	var body io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete:
		u += "?" + params.Encode()
	default:
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return fmt.Errorf("trello: reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("trello: %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("trello: decoding response: %w", err)
	}
	return nil
}

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}
