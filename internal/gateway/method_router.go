package gateway

import (
	"context"
	"fmt"

	"github.com/openpawz/pawgo/internal/agent"
	"github.com/openpawz/pawgo/internal/providers"
	"github.com/openpawz/pawgo/internal/store"
	"github.com/openpawz/pawgo/pkg/protocol"
)

func providerMessage(role, content string) providers.Message {
	return providers.Message{Role: role, Content: content}
}

// MethodRouter dispatches request frames from a Client to the server's
// domain logic, keyed by Frame.Method.
type MethodRouter struct {
	server *Server
}

// NewMethodRouter builds a router bound to s.
func NewMethodRouter(s *Server) *MethodRouter {
	return &MethodRouter{server: s}
}

// Dispatch handles one request frame and returns the response frame to
// send back, or nil if no response is expected.
func (m *MethodRouter) Dispatch(ctx context.Context, c *Client, f *protocol.Frame) *protocol.Frame {
	s := m.server

	if s.rateLimiter.Enabled() && !s.rateLimiter.Allow(c.id) {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("rate limit exceeded"))
	}

	switch f.Method {
	case protocol.MethodConnect:
		return m.handleConnect(c, f)
	case protocol.MethodHealth:
		return protocol.NewOKResponse(f.ID, map[string]string{"status": "ok"})
	case protocol.MethodStatus:
		return m.handleStatus(f)
	case protocol.MethodChatSend:
		return m.handleChatSend(ctx, f)
	case protocol.MethodChatHistory:
		return m.handleChatHistory(f)
	case protocol.MethodChatAbort:
		return m.handleChatAbort(f)
	case protocol.MethodChatInject:
		return m.handleChatInject(f)
	case protocol.MethodSessionsList:
		return m.handleSessionsList(f)
	case protocol.MethodSessionsDelete:
		return m.handleSessionsDelete(f)
	case protocol.MethodSessionsReset:
		return m.handleSessionsReset(f)
	case protocol.MethodSkillsList:
		return m.handleSkillsList(f)
	case protocol.MethodDevicePairRequest:
		return m.handleDevicePairRequest(f)
	case protocol.MethodDevicePairApprove:
		return m.handleDevicePairApprove(f)
	default:
		return protocol.NewErrorResponse(f.ID, protocol.ErrNotFound(f.Method))
	}
}

type connectParams struct {
	Token string `json:"token"`
}

func (m *MethodRouter) handleConnect(c *Client, f *protocol.Frame) *protocol.Frame {
	var p connectParams
	_ = f.RequestFrame(&p)

	token := m.server.cfg.Gateway.Token
	if token != "" && p.Token != token {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("invalid token"))
	}

	c.authed = true
	return protocol.NewOKResponse(f.ID, map[string]interface{}{"protocol": protocol.ProtocolVersion})
}

func (m *MethodRouter) handleStatus(f *protocol.Frame) *protocol.Frame {
	return protocol.NewOKResponse(f.ID, map[string]interface{}{
		"agents": m.server.agents.List(),
	})
}

type chatSendParams struct {
	AgentID    string `json:"agentId"`
	SessionKey string `json:"sessionKey"`
	Message    string `json:"message"`
	Stream     bool   `json:"stream"`
}

func (m *MethodRouter) handleChatSend(ctx context.Context, f *protocol.Frame) *protocol.Frame {
	var p chatSendParams
	if err := f.RequestFrame(&p); err != nil || p.AgentID == "" || p.SessionKey == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("agentId and sessionKey are required"))
	}

	loop, err := m.server.agents.Get(p.AgentID)
	if err != nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest(fmt.Sprintf("unknown agent %q", p.AgentID)))
	}

	req := agent.RunRequest{
		SessionKey: p.SessionKey,
		Message:    p.Message,
		Channel:    "ws",
		RunID:      f.ID,
		Stream:     p.Stream,
	}

	var result *agent.RunResult
	if m.server.scheduler != nil {
		outCh := m.server.scheduler.Schedule(ctx, "ws", req)
		outcome := <-outCh
		if outcome.Err != nil {
			return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(outcome.Err))
		}
		result = outcome.Result
	} else {
		result, err = loop.Run(ctx, req)
		if err != nil {
			return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(err))
		}
	}

	return protocol.NewOKResponse(f.ID, result)
}

type sessionKeyParams struct {
	SessionKey string `json:"sessionKey"`
}

func (m *MethodRouter) handleChatHistory(f *protocol.Frame) *protocol.Frame {
	var p sessionKeyParams
	if err := f.RequestFrame(&p); err != nil || p.SessionKey == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("sessionKey is required"))
	}
	history := m.server.sessions.GetHistory(p.SessionKey)
	return protocol.NewOKResponse(f.ID, map[string]interface{}{"messages": history})
}

func (m *MethodRouter) handleChatAbort(f *protocol.Frame) *protocol.Frame {
	var p sessionKeyParams
	if err := f.RequestFrame(&p); err != nil || p.SessionKey == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("sessionKey is required"))
	}
	if m.server.scheduler == nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("abort not available"))
	}
	cancelled := m.server.scheduler.CancelSession(p.SessionKey)
	return protocol.NewOKResponse(f.ID, map[string]bool{"cancelled": cancelled})
}

type chatInjectParams struct {
	SessionKey string `json:"sessionKey"`
	Role       string `json:"role"`
	Content    string `json:"content"`
}

func (m *MethodRouter) handleChatInject(f *protocol.Frame) *protocol.Frame {
	var p chatInjectParams
	if err := f.RequestFrame(&p); err != nil || p.SessionKey == "" || p.Content == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("sessionKey and content are required"))
	}
	role := p.Role
	if role == "" {
		role = "user"
	}
	m.server.sessions.GetOrCreate(p.SessionKey)
	m.server.sessions.AddMessage(p.SessionKey, providerMessage(role, p.Content))
	return protocol.NewOKResponse(f.ID, map[string]bool{"injected": true})
}

type sessionsListParams struct {
	AgentID string `json:"agentId"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

func (m *MethodRouter) handleSessionsList(f *protocol.Frame) *protocol.Frame {
	var p sessionsListParams
	_ = f.RequestFrame(&p)
	result := m.server.sessions.ListPaged(store.SessionListOpts{
		AgentID: p.AgentID,
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
	return protocol.NewOKResponse(f.ID, result)
}

func (m *MethodRouter) handleSessionsDelete(f *protocol.Frame) *protocol.Frame {
	var p sessionKeyParams
	if err := f.RequestFrame(&p); err != nil || p.SessionKey == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("sessionKey is required"))
	}
	if err := m.server.sessions.Delete(p.SessionKey); err != nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(err))
	}
	return protocol.NewOKResponse(f.ID, map[string]bool{"deleted": true})
}

func (m *MethodRouter) handleSessionsReset(f *protocol.Frame) *protocol.Frame {
	var p sessionKeyParams
	if err := f.RequestFrame(&p); err != nil || p.SessionKey == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("sessionKey is required"))
	}
	m.server.sessions.Reset(p.SessionKey)
	return protocol.NewOKResponse(f.ID, map[string]bool{"reset": true})
}

func (m *MethodRouter) handleSkillsList(f *protocol.Frame) *protocol.Frame {
	if m.server.skillsLoader == nil {
		return protocol.NewOKResponse(f.ID, map[string]interface{}{"skills": []string{}})
	}
	skills := m.server.skillsLoader.FilterSkills(nil)
	names := make([]string, 0, len(skills))
	for _, sk := range skills {
		names = append(names, sk.ID)
	}
	return protocol.NewOKResponse(f.ID, map[string]interface{}{"skills": names})
}

type devicePairRequestParams struct {
	Channel  string `json:"channel"`
	SenderID string `json:"senderId"`
}

func (m *MethodRouter) handleDevicePairRequest(f *protocol.Frame) *protocol.Frame {
	var p devicePairRequestParams
	if err := f.RequestFrame(&p); err != nil || p.Channel == "" || p.SenderID == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("channel and senderId are required"))
	}
	if m.server.pairingService == nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("pairing not available"))
	}
	code, err := m.server.pairingService.CreatePending(p.Channel, p.SenderID)
	if err != nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(err))
	}
	return protocol.NewOKResponse(f.ID, map[string]string{"code": code})
}

type devicePairApproveParams struct {
	Channel string `json:"channel"`
	Code    string `json:"code"`
}

func (m *MethodRouter) handleDevicePairApprove(f *protocol.Frame) *protocol.Frame {
	var p devicePairApproveParams
	if err := f.RequestFrame(&p); err != nil || p.Channel == "" || p.Code == "" {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("channel and code are required"))
	}
	if m.server.pairingService == nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("pairing not available"))
	}
	pending, ok, err := m.server.pairingService.FindByCode(p.Channel, p.Code)
	if err != nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(err))
	}
	if !ok {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInvalidRequest("unknown or expired code"))
	}
	if err := m.server.pairingService.Promote(pending.Channel, pending.SenderID); err != nil {
		return protocol.NewErrorResponse(f.ID, protocol.ErrInternal(err))
	}
	return protocol.NewOKResponse(f.ID, map[string]bool{"approved": true})
}
