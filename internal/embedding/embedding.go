// Package embedding bootstraps and talks to a local embedding runtime
// (an Ollama-shaped HTTP API). It establishes the endpoint once per process
// via Client.EnsureReady and serves Embed calls to the memory engine.
package embedding

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/openpawz/pawgo/internal/retry"
)

// Config configures where to find (or launch) the embedding runtime.
type Config struct {
	BaseURL   string        // e.g. http://127.0.0.1:11434
	Model     string        // embedding model name
	Candidates []string     // local binary names to try launching, in order
	ProbeTimeout time.Duration
	PullTimeout  time.Duration
}

// DefaultConfig returns the standard local-first embedding setup: an Ollama
// instance on its default port, launched from PATH if not already running.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://127.0.0.1:11434",
		Model:        "nomic-embed-text",
		Candidates:   []string{"ollama"},
		ProbeTimeout: 15 * time.Second,
		PullTimeout:  10 * time.Minute,
	}
}

// StepResult records the outcome of one ensure_ready step, for diagnostics.
type StepResult struct {
	Step string
	OK   bool
	Note string
}

// Status is the structured result of EnsureReady.
type Status struct {
	Ready      bool
	Dimension  int
	Steps      []StepResult
}

// ProgressSink receives pull-progress updates (e.g. for a CLI progress bar).
type ProgressSink func(status string, completed, total int64)

// Client talks to the embedding runtime and bootstraps it on first use.
type Client struct {
	cfg    Config
	http   *http.Client
	breaker *retry.Breaker

	once   sync.Once
	ready  bool
	status Status
	mu     sync.Mutex
}

// NewClient creates a Client. EnsureReady must be called (it is idempotent)
// before the first Embed call; Embed calls it automatically if needed.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 60 * time.Second},
		breaker: retry.NewBreaker(5, 30*time.Second),
	}
}

// EnsureReady probes, launches, pulls, and verifies the embedding endpoint.
// Subsequent calls short-circuit on the once-flag and return the cached
// status.
func (c *Client) EnsureReady(ctx context.Context, progress ProgressSink) Status {
	c.once.Do(func() {
		c.status = c.bootstrap(ctx, progress)
		c.ready = c.status.Ready
	})
	return c.status
}

func (c *Client) bootstrap(ctx context.Context, progress ProgressSink) Status {
	var status Status

	reachable := c.probe(ctx)
	status.Steps = append(status.Steps, StepResult{Step: "probe", OK: reachable})

	if !reachable {
		if !isLoopback(c.cfg.BaseURL) {
			status.Steps = append(status.Steps, StepResult{Step: "launch", OK: false, Note: "endpoint is not loopback, refusing to launch a child process"})
			return status
		}
		launched := c.launchLocal(ctx)
		status.Steps = append(status.Steps, StepResult{Step: "launch", OK: launched})
		if !launched {
			return status
		}

		ok := c.pollReady(ctx, c.cfg.ProbeTimeout)
		status.Steps = append(status.Steps, StepResult{Step: "poll", OK: ok})
		if !ok {
			return status
		}
	}

	hasModel, err := c.hasModel(ctx)
	status.Steps = append(status.Steps, StepResult{Step: "catalog", OK: err == nil, Note: errNote(err)})
	if err != nil {
		return status
	}

	if !hasModel {
		pullErr := c.pullModel(ctx, progress)
		status.Steps = append(status.Steps, StepResult{Step: "pull", OK: pullErr == nil, Note: errNote(pullErr)})
		if pullErr != nil {
			return status
		}
	}

	dim, err := c.probeDimension(ctx)
	status.Steps = append(status.Steps, StepResult{Step: "verify", OK: err == nil, Note: errNote(err)})
	if err != nil {
		return status
	}

	status.Dimension = dim
	status.Ready = true
	return status
}

// Probe reports whether the embedding backend is currently reachable,
// without attempting to launch or pull a model. Used by the health
// monitor's periodic connectivity check.
func (c *Client) Probe(ctx context.Context) bool {
	return c.probe(ctx)
}

func (c *Client) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) launchLocal(ctx context.Context) bool {
	for _, name := range c.cfg.Candidates {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "serve")
		// Detach: the embedding runtime outlives this bootstrap call.
		if err := cmd.Start(); err != nil {
			continue
		}
		go cmd.Wait()
		return true
	}
	return false
}

func (c *Client) pollReady(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.probe(ctx) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}

func (c *Client) hasModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	for _, m := range body.Models {
		if m.Name == c.cfg.Model || strings.HasPrefix(m.Name, c.cfg.Model+":") {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) pullModel(ctx context.Context, progress ProgressSink) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PullTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"name": c.cfg.Model})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/pull", bytes.NewReader(body))
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
		return fmt.Errorf("embedding: pull failed with status %d", resp.StatusCode)
	}

	// NDJSON progress stream, same parsing style as the provider SSE readers.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev struct {
			Status    string `json:"status"`
			Completed int64  `json:"completed"`
			Total     int64  `json:"total"`
		}
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if progress != nil {
			progress(ev.Status, ev.Completed, ev.Total)
		}
	}
	return scanner.Err()
}

func (c *Client) probeDimension(ctx context.Context) (int, error) {
	vec, err := c.embedRaw(ctx, "test")
	if err != nil {
		return 0, err
	}
	return len(vec), nil
}

func errNote(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func isLoopback(baseURL string) bool {
	host := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		h = host
	}
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
