package layout

import (
	"sort"
	"sync"

	"github.com/wippyai/stable-abi/errors"
)

// Registry caches descriptors by fully qualified name. Descriptors are
// immutable, so concurrent reads need no coordination; insertion is mutually
// exclusive per name. Entries live for the registry's lifetime and are never
// invalidated (types are not hot-reloaded).
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeLayout
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeLayout)}
}

// Register caches a descriptor. Re-registering a structurally identical
// descriptor is a no-op; a conflicting layout under the same name is an
// error.
func (r *Registry) Register(t *TypeLayout) error {
	if t == nil {
		return errors.InvalidInput(errors.PhaseRegister, "nil layout")
	}

	r.mu.RLock()
	existing, ok := r.types[t.Name]
	r.mu.RUnlock()
	if ok {
		if existing.Fingerprint() == t.Fingerprint() {
			return nil
		}
		return errors.Duplicate("type", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.types[t.Name]; ok {
		if existing.Fingerprint() == t.Fingerprint() {
			return nil
		}
		return errors.Duplicate("type", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*TypeLayout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// global is the process-wide registry, populated lazily on first use.
var global = NewRegistry()

// Register caches a descriptor in the process-wide registry.
func Register(t *TypeLayout) error {
	return global.Register(t)
}

// Lookup returns a descriptor from the process-wide registry.
func Lookup(name string) (*TypeLayout, bool) {
	return global.Lookup(name)
}

// Closure returns every descriptor reachable from the roots, following struct
// fields, variant payload fields and pointer indirections. The result is
// deduplicated and ordered by first visit.
func Closure(roots ...*TypeLayout) []*TypeLayout {
	seen := make(map[*TypeLayout]bool)
	var out []*TypeLayout

	var walk func(t *TypeLayout)
	walk = func(t *TypeLayout) {
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
		for _, f := range t.Fields {
			walk(f.Type)
		}
		for _, v := range t.Variants {
			for _, f := range v.Fields {
				walk(f.Type)
			}
		}
	}

	for _, t := range roots {
		walk(t)
	}
	return out
}
