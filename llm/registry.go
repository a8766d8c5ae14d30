package llm

import (
	"sort"
	"strings"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
)

// Registry maps provider names to Provider instances and resolves model
// references. A reference is either "provider/model" slash notation, a bare
// model string (resolved against the default provider), or empty (default
// provider and default model).
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
	defaultModel    string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under the given name. Registering the same name
// twice replaces the earlier provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetDefault sets the provider and model used when a reference omits them.
func (r *Registry) SetDefault(provider, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProvider = provider
	r.defaultModel = model
}

// Provider looks up a registered provider by name.
func (r *Registry) Provider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Resolve parses a model reference and returns the provider plus the model
// string to send to it.
func (r *Registry) Resolve(ref string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerName := r.defaultProvider
	model := r.defaultModel

	if ref != "" {
		if before, after, found := strings.Cut(ref, "/"); found {
			providerName = before
			model = after
		} else {
			model = ref
		}
	}

	if providerName == "" {
		return nil, "", NewConfigurationError("no default provider configured")
	}
	p, ok := r.providers[providerName]
	if !ok {
		return nil, "", NewConfigurationError("unknown provider: " + providerName)
	}
	return p, model, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
