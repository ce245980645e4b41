package tools

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	auditTrailMax   = 500
	outboundRingMax = 100
)

// NetworkPolicy lists which outbound hosts a tool may reach, as answered by
// Registry.CheckNetwork. Entries may use "*" glob segments, e.g.
// "*.example.com". No built-in tool calls CheckNetwork: web_fetch applies
// only its own SSRF check, so the policy does not gate its requests.
type NetworkPolicy struct {
	Allow []string
	Deny  []string
}

// Allowed reports whether host passes the policy: an empty Allow list means
// "allow everything not denied"; a non-empty Allow list means "only these".
func (p NetworkPolicy) Allowed(host string) bool {
	for _, d := range p.Deny {
		if hostMatch(d, host) {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, a := range p.Allow {
		if hostMatch(a, host) {
			return true
		}
	}
	return false
}

func hostMatch(pattern, host string) bool {
	pattern = strings.ToLower(pattern)
	host = strings.ToLower(host)
	ok, err := path.Match(pattern, host)
	return err == nil && ok
}

// outboundRecord is one logged outbound request made by a tool.
type outboundRecord struct {
	Tool string
	Host string
	At   time.Time
	Note string
}

// AuditEntry is one completed tool invocation, retained for operator review.
type AuditEntry struct {
	Tool     string
	Agent    string
	Args     map[string]interface{}
	At       time.Time
	Approved bool
	Error    bool
}

// ApprovalFunc decides whether a privileged tool call may proceed. It blocks
// until a decision is made (e.g. via a UI prompt) or ctx is canceled.
type ApprovalFunc func(ctx context.Context, agentID, toolName string, args map[string]interface{}) (bool, error)

// Registry holds every tool the agent knows about, plus the policy
// machinery (network reach, approval gating, auditing) that wraps
// execution regardless of which tool is called.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	privileged map[string]bool // tool names requiring approval
	approve    ApprovalFunc
	network    NetworkPolicy

	rateLimitPerHour int
	rateMu           sync.Mutex
	rateWindows      map[string][]time.Time // agentID -> call timestamps

	auditMu sync.Mutex
	audit   []AuditEntry

	outboundMu sync.Mutex
	outbound   map[string][]outboundRecord // tool -> ring buffer

	limiterMu    sync.Mutex
	outboundRPS  float64
	outboundBurst int
	limiters     map[string]*rate.Limiter // tool -> outbound request limiter
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:       make(map[string]Tool),
		privileged:  make(map[string]bool),
		rateWindows: make(map[string][]time.Time),
		outbound:    make(map[string][]outboundRecord),
		limiters:    make(map[string]*rate.Limiter),
	}
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the names of every registered tool.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// ProviderDefs returns schema definitions for every registered tool,
// unfiltered by policy (callers needing policy filtering should go through
// PolicyEngine.FilterTools instead).
func (r *Registry) ProviderDefs() []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]interface{}, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToProviderDef(t))
	}
	return defs
}

// MarkPrivileged flags a tool as requiring approval before execution.
func (r *Registry) MarkPrivileged(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.privileged[name] = true
}

// SetApprovalFunc installs the callback used to gate privileged tools.
// A nil func means privileged tools always execute (approval disabled).
func (r *Registry) SetApprovalFunc(fn ApprovalFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approve = fn
}

// SetNetworkPolicy installs the outbound host policy tools can consult via
// CheckNetwork.
func (r *Registry) SetNetworkPolicy(p NetworkPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.network = p
}

// SetRateLimitPerHour bounds how many tool calls a single agent may make in
// a rolling hour. 0 disables the limit.
func (r *Registry) SetRateLimitPerHour(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimitPerHour = n
}

// SetOutboundRateLimit bounds how many outbound network calls any single
// tool may make per second, independent of the per-agent hourly cap. Each
// tool gets its own token bucket, lazily created on first use, so a chatty
// web_fetch never starves a quieter tool's quota. rps <= 0 disables limiting.
func (r *Registry) SetOutboundRateLimit(rps float64, burst int) {
	r.limiterMu.Lock()
	defer r.limiterMu.Unlock()
	r.outboundRPS = rps
	r.outboundBurst = burst
	r.limiters = make(map[string]*rate.Limiter)
}

func (r *Registry) outboundLimiter(toolName string) *rate.Limiter {
	r.limiterMu.Lock()
	defer r.limiterMu.Unlock()
	if r.outboundRPS <= 0 {
		return nil
	}
	l, ok := r.limiters[toolName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.outboundRPS), r.outboundBurst)
		r.limiters[toolName] = l
	}
	return l
}

// CheckNetwork reports whether a tool may reach host, and records the
// attempt in that tool's outbound ring buffer regardless of outcome. A host
// that passes the allow/deny policy can still be throttled by the per-tool
// outbound rate limit.
func (r *Registry) CheckNetwork(toolName, host string) bool {
	r.mu.RLock()
	policy := r.network
	r.mu.RUnlock()

	allowed := policy.Allowed(host)
	note := "allowed"
	if !allowed {
		note = "denied"
	} else if limiter := r.outboundLimiter(toolName); limiter != nil && !limiter.Allow() {
		allowed = false
		note = "rate-limited"
	}
	r.recordOutbound(toolName, host, note)
	return allowed
}

func (r *Registry) recordOutbound(toolName, host, note string) {
	r.outboundMu.Lock()
	defer r.outboundMu.Unlock()
	buf := r.outbound[toolName]
	buf = append(buf, outboundRecord{Tool: toolName, Host: host, At: time.Now(), Note: note})
	if len(buf) > outboundRingMax {
		buf = buf[len(buf)-outboundRingMax:]
	}
	r.outbound[toolName] = buf
}

// OutboundLog returns the recent outbound attempts recorded for a tool.
func (r *Registry) OutboundLog(toolName string) []outboundRecord {
	r.outboundMu.Lock()
	defer r.outboundMu.Unlock()
	out := make([]outboundRecord, len(r.outbound[toolName]))
	copy(out, r.outbound[toolName])
	return out
}

// AuditLog returns the most recent audit entries, oldest first.
func (r *Registry) AuditLog() []AuditEntry {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()
	out := make([]AuditEntry, len(r.audit))
	copy(out, r.audit)
	return out
}

func (r *Registry) recordAudit(entry AuditEntry) {
	r.auditMu.Lock()
	defer r.auditMu.Unlock()
	r.audit = append(r.audit, entry)
	if len(r.audit) > auditTrailMax {
		r.audit = r.audit[len(r.audit)-auditTrailMax:]
	}
}

func (r *Registry) allowRate(agentID string) bool {
	r.mu.RLock()
	limit := r.rateLimitPerHour
	r.mu.RUnlock()
	if limit <= 0 {
		return true
	}

	r.rateMu.Lock()
	defer r.rateMu.Unlock()
	cutoff := time.Now().Add(-time.Hour)
	windows := r.rateWindows[agentID]
	kept := windows[:0]
	for _, t := range windows {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		r.rateWindows[agentID] = kept
		return false
	}
	r.rateWindows[agentID] = append(kept, time.Now())
	return true
}

// ExecuteWithContext runs a tool by name, enforcing the rate limit and
// approval gate, and records an audit entry regardless of outcome.
func (r *Registry) ExecuteWithContext(ctx context.Context, agentID, name string, args map[string]interface{}) *Result {
	tool, ok := r.Get(name)
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	if !r.allowRate(agentID) {
		return ErrorResult("tool call rate limit exceeded for this session, try again later")
	}

	r.mu.RLock()
	needsApproval := r.privileged[name]
	approveFn := r.approve
	r.mu.RUnlock()

	approved := !needsApproval
	if needsApproval {
		if approveFn == nil {
			slog.Warn("privileged tool called with no approval function installed, denying", "tool", name)
			r.recordAudit(AuditEntry{Tool: name, Agent: agentID, Args: args, At: time.Now(), Approved: false})
			return ErrorResult(fmt.Sprintf("%s requires approval, which is not configured", name))
		}
		ok, err := approveFn(ctx, agentID, name, args)
		if err != nil {
			r.recordAudit(AuditEntry{Tool: name, Agent: agentID, Args: args, At: time.Now(), Approved: false, Error: true})
			return ErrorResult(fmt.Sprintf("approval check failed: %v", err))
		}
		approved = ok
	}

	if !approved {
		r.recordAudit(AuditEntry{Tool: name, Agent: agentID, Args: args, At: time.Now(), Approved: false})
		return ErrorResult(fmt.Sprintf("%s was not approved", name))
	}

	result := tool.Execute(ctx, args)
	r.recordAudit(AuditEntry{Tool: name, Agent: agentID, Args: args, At: time.Now(), Approved: true, Error: result != nil && result.IsError})
	return result
}
