package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/leadflow/pkg/ports"
)

// Registry manages the available action handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.ActionHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ports.ActionHandler),
	}
}

// Register binds a handler to one or more action names.
// An existing binding for a name is overwritten.
func (r *Registry) Register(h ports.ActionHandler, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.handlers[name] = h
	}
}

// Lookup returns the handler bound to name.
func (r *Registry) Lookup(name string) (ports.ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Has reports whether name is bound. Usable as flow.Validate's knownAction.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names lists the bound action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
