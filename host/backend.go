package host

import (
	"context"
	"sync"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/root"
)

// Symbol is a resolved root constructor plus whatever the backend needs torn
// down when the library is released. Close may be nil.
type Symbol struct {
	Constructor root.Constructor
	Close       func() error
}

// Backend maps a library path to its exported root constructor. It owns the
// OS-level mechanics of locating and mapping the library; everything above
// it is mechanism-agnostic.
type Backend interface {
	Lookup(ctx context.Context, path, symbol string) (*Symbol, error)
}

// MemoryBackend serves constructors registered in-process. It is the backend
// for tests and for embedders that link their "libraries" statically.
type MemoryBackend struct {
	mu      sync.RWMutex
	modules map[string]map[string]root.Constructor
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{modules: make(map[string]map[string]root.Constructor)}
}

// Register binds a constructor to (path, symbol). Later registrations
// replace earlier ones.
func (b *MemoryBackend) Register(path, symbol string, ctor root.Constructor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[path]
	if !ok {
		m = make(map[string]root.Constructor)
		b.modules[path] = m
	}
	m[symbol] = ctor
}

// Lookup resolves a registered constructor.
func (b *MemoryBackend) Lookup(_ context.Context, path, symbol string) (*Symbol, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.modules[path]
	if !ok {
		return nil, errors.LoadFailed(path, nil)
	}
	ctor, ok := m[symbol]
	if !ok {
		return nil, errors.SymbolNotFound(path, symbol)
	}
	return &Symbol{Constructor: ctor}, nil
}
