package agent

import (
	"context"
	"fmt"
	"sync"
)

// Agent is anything that can service a chat run for a given session.
// *Loop is the only implementation.
type Agent interface {
	ID() string
	Model() string
	IsRunning() bool
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// ResolverFunc builds (or looks up) the Agent for an agent key, e.g. "default".
type ResolverFunc func(agentKey string) (Agent, error)

// Router caches resolved agents by key and resolves missing ones lazily.
// In this single-workspace runtime agents are usually created eagerly at
// startup and the router is just a lookup table, but a ResolverFunc lets
// callers create agents on demand.
type Router struct {
	mu       sync.RWMutex
	agents   map[string]Agent
	resolver ResolverFunc
}

// NewRouter creates a Router with no resolver; agents must be registered
// via Register.
func NewRouter() *Router {
	return &Router{agents: make(map[string]Agent)}
}

// SetResolver installs a fallback resolver used by Get when an agent key
// has no registered agent yet.
func (r *Router) SetResolver(fn ResolverFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = fn
}

// Register adds a pre-built agent under the given key.
func (r *Router) Register(agentKey string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentKey] = a
}

// Get returns the agent for agentKey, resolving it via the configured
// resolver on first access if it isn't already registered.
func (r *Router) Get(agentKey string) (Agent, error) {
	r.mu.RLock()
	a, ok := r.agents[agentKey]
	resolver := r.resolver
	r.mu.RUnlock()
	if ok {
		return a, nil
	}
	if resolver == nil {
		return nil, fmt.Errorf("agent not found: %s", agentKey)
	}
	a, err := resolver(agentKey)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.agents[agentKey] = a
	r.mu.Unlock()
	return a, nil
}

// List returns the keys of all currently registered agents.
func (r *Router) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.agents))
	for k := range r.agents {
		keys = append(keys, k)
	}
	return keys
}

// InvalidateAgent drops a cached agent so the next Get re-resolves it.
func (r *Router) InvalidateAgent(agentKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentKey)
}
