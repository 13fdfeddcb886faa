package etl

import (
	"github.com/raphaelgruber/contextuse-go/internal/etl/chatgpt"
	"github.com/raphaelgruber/contextuse-go/internal/etl/instagram"
	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
)

// ProviderConfig describes everything the orchestrator needs for one
// provider: the registry key, the human-readable name used in previews, and
// the interaction-type pipes.
type ProviderConfig struct {
	Name    string
	Display string
	Pipes   []pipe.Pipe
}

// Registry maps provider names to their configs. Built once and passed by
// reference; never mutated afterwards.
type Registry struct {
	providers map[string]ProviderConfig
}

func NewRegistry(configs ...ProviderConfig) *Registry {
	r := &Registry{providers: make(map[string]ProviderConfig, len(configs))}
	for _, cfg := range configs {
		r.providers[cfg.Name] = cfg
	}
	return r
}

// Provider looks up a provider config by name.
func (r *Registry) Provider(name string) (ProviderConfig, bool) {
	cfg, ok := r.providers[name]
	return cfg, ok
}

// Providers returns the registered provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry wires up all supported providers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ProviderConfig{
			Name:    chatgpt.Provider,
			Display: chatgpt.Display,
			Pipes:   chatgpt.Pipes(),
		},
		ProviderConfig{
			Name:    instagram.Provider,
			Display: instagram.Display,
			Pipes:   instagram.Pipes(),
		},
	)
}
