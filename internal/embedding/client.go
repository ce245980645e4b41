package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/openpawz/pawgo/internal/retry"
)

// Embed returns the embedding vector for text, bootstrapping the runtime on
// first call. Returns an error without panicking if bootstrap failed.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	status := c.EnsureReady(ctx, nil)
	if !status.Ready {
		return nil, fmt.Errorf("embedding: runtime not ready")
	}
	if !c.breaker.Allow() {
		return nil, retry.ErrBreakerOpen
	}
	vec, err := c.embedRaw(ctx, text)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	c.breaker.RecordSuccess()
	return vec, nil
}

// embedRaw tries the current Ollama embed shape, then the legacy single-shot
// shape, then an OpenAI-compatible shape, stopping at the first one the
// endpoint accepts. Local embedding runtimes disagree on the wire format
// across versions, so fallback here avoids a hard version pin.
func (c *Client) embedRaw(ctx context.Context, text string) ([]float32, error) {
	shapes := []func(context.Context, string) ([]float32, error){
		c.embedOllamaNew,
		c.embedOllamaLegacy,
		c.embedOpenAICompatible,
	}

	var lastErr error
	for _, shape := range shapes {
		vec, err := shape(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) embedOllamaNew(ctx context.Context, text string) ([]float32, error) {
	reqBody, _ := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": text,
	})
	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.postJSON(ctx, "/api/embed", reqBody, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("embedding: empty response from /api/embed")
	}
	return out.Embeddings[0], nil
}

func (c *Client) embedOllamaLegacy(ctx context.Context, text string) ([]float32, error) {
	reqBody, _ := json.Marshal(map[string]any{
		"model":  c.cfg.Model,
		"prompt": text,
	})
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.postJSON(ctx, "/api/embeddings", reqBody, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding: empty response from /api/embeddings")
	}
	return out.Embedding, nil
}

func (c *Client) embedOpenAICompatible(ctx context.Context, text string) ([]float32, error) {
	reqBody, _ := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": []string{text},
	})
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/v1/embeddings", reqBody, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response from /v1/embeddings")
	}
	return out.Data[0].Embedding, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("embedding: %s returned %d: %s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
