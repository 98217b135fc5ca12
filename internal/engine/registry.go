package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds an adapter. Credentials and other settings are resolved
// here, so a factory is the place to fail with a config error.
type Factory func() (Adapter, error)

// Registry maps marketplace names to adapter factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous one
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Names returns the registered names sorted alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get constructs the adapter registered under name
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()

	if !ok {
		return nil, NewEngineError(
			ErrCodeUnknownMarketplace,
			fmt.Sprintf("unknown marketplace %q, known: %s", name, strings.Join(r.Names(), ", ")),
			nil,
		).WithDetail(DetailMarketplace, name)
	}
	return f()
}
