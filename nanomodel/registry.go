package nanomodel

import (
	"fmt"
	"sync"
)

// Registry holds model types by name, in registration order.
type Registry struct {
	mu    sync.RWMutex
	metas map[string]*Meta
	order []string
}

// DefaultRegistry is the registry used by Register and Lookup.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{metas: make(map[string]*Meta)}
}

// Register adds meta under its name. Names are unique.
func (r *Registry) Register(meta *Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.metas[meta.name]; dup {
		return fmt.Errorf("model %q already registered", meta.name)
	}
	r.metas[meta.name] = meta
	r.order = append(r.order, meta.name)
	return nil
}

// Lookup returns the model type called name.
func (r *Registry) Lookup(name string) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metas[name]
	return m, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Metas returns the registered types in registration order.
func (r *Registry) Metas() []*Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Meta, len(r.order))
	for i, name := range r.order {
		out[i] = r.metas[name]
	}
	return out
}

// SetManager attaches mgr to every registered type.
func (r *Registry) SetManager(mgr Manager) {
	for _, m := range r.Metas() {
		m.SetManager(mgr)
	}
}

// Register adds meta to the DefaultRegistry.
func Register(meta *Meta) error { return DefaultRegistry.Register(meta) }

// Lookup finds a type in the DefaultRegistry.
func Lookup(name string) (*Meta, bool) { return DefaultRegistry.Lookup(name) }
