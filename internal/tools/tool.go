package tools

import (
	"context"

	"github.com/openpawz/pawgo/internal/providers"
)

// Tool is anything the agent loop can dispatch a tool call to.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// ToProviderDef converts a registered Tool into the schema shape a provider
// sends to the model.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// BuiltinToolSettings carries global knobs for builtin tools that need to
// behave differently depending on runtime configuration (e.g. image tools
// picking a model), set once at startup and read through the context.
type BuiltinToolSettings struct {
	ImageModel    string
	ImageProvider string
}

type builtinSettingsKey struct{}

// WithBuiltinToolSettings attaches settings to ctx for the duration of a run.
func WithBuiltinToolSettings(ctx context.Context, s BuiltinToolSettings) context.Context {
	return context.WithValue(ctx, builtinSettingsKey{}, &s)
}

// BuiltinToolSettingsFromCtx reads settings attached by WithBuiltinToolSettings,
// or nil if none were set.
func BuiltinToolSettingsFromCtx(ctx context.Context) *BuiltinToolSettings {
	v, _ := ctx.Value(builtinSettingsKey{}).(*BuiltinToolSettings)
	return v
}
