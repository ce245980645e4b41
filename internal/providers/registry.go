package providers

import "fmt"

// Registry holds the configured LLM providers, keyed by name ("anthropic",
// "openai", "openrouter", ...). Agents look up their configured provider by
// name at run time; tools that need a model call (read_image's vision
// fallback, create_image) resolve one explicitly or fall back to Default.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under its own Name(). The first provider registered
// becomes the default used when no provider is specified.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
	if r.defaultName == "" {
		r.defaultName = p.Name()
	}
}

// Get returns the named provider, or an error if it isn't configured.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("providers: %q not configured", name)
	}
	return p, nil
}

// Default returns the first-registered provider, or an error if none are
// configured.
func (r *Registry) Default() (Provider, error) {
	if r.defaultName == "" {
		return nil, fmt.Errorf("providers: no provider configured")
	}
	return r.providers[r.defaultName], nil
}

// Names lists every registered provider name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
