package tools

import (
	"context"

	"github.com/openpawz/pawgo/internal/config"
)

type toolCtxKey int

const (
	workspaceCtxKey toolCtxKey = iota
	sessionKeyCtxKey
	agentIDCtxKey
	visionCtxKey
	imageGenCtxKey
)

// WithVisionConfig attaches a per-agent vision provider/model override so
// read_image can pick it up ahead of the global builtin_tools.settings.
func WithVisionConfig(ctx context.Context, cfg *config.VisionConfig) context.Context {
	return context.WithValue(ctx, visionCtxKey, cfg)
}

// VisionConfigFromCtx returns the override set by WithVisionConfig, or nil.
func VisionConfigFromCtx(ctx context.Context) *config.VisionConfig {
	v, _ := ctx.Value(visionCtxKey).(*config.VisionConfig)
	return v
}

// WithImageGenConfig attaches a per-agent image generation override so
// create_image can pick it up ahead of the global builtin_tools.settings.
func WithImageGenConfig(ctx context.Context, cfg *config.ImageGenConfig) context.Context {
	return context.WithValue(ctx, imageGenCtxKey, cfg)
}

// ImageGenConfigFromCtx returns the override set by WithImageGenConfig, or nil.
func ImageGenConfigFromCtx(ctx context.Context) *config.ImageGenConfig {
	v, _ := ctx.Value(imageGenCtxKey).(*config.ImageGenConfig)
	return v
}

// WithToolWorkspace scopes Execute calls to a per-request workspace
// directory (managed mode: one workspace per user).
func WithToolWorkspace(ctx context.Context, workspace string) context.Context {
	return context.WithValue(ctx, workspaceCtxKey, workspace)
}

// ToolWorkspaceFromCtx returns the workspace set by WithToolWorkspace, or ""
// if none was set.
func ToolWorkspaceFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(workspaceCtxKey).(string)
	return v
}

// WithToolSessionKey attaches the current session key so tools can look up
// "the current session" without it being passed as an explicit argument.
func WithToolSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyCtxKey, key)
}

// ToolSessionKeyFromCtx returns the session key set by WithToolSessionKey.
func ToolSessionKeyFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(sessionKeyCtxKey).(string)
	return v
}

// WithToolAgentID attaches the executing agent's ID for tools that need to
// scope access (e.g. session_status refusing cross-agent reads).
func WithToolAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDCtxKey, agentID)
}

// ToolAgentIDFromCtx returns the agent ID set by WithToolAgentID.
func ToolAgentIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(agentIDCtxKey).(string)
	return v
}
