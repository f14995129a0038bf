package host

import (
	"context"
	"plugin"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/root"
)

// PluginBackend opens Go plugin shared objects. The exported symbol must be
// a plain function value of the constructor shape; nothing else about the
// plugin is inspected.
//
// The runtime never unmaps a plugin, so Symbol.Close is nil here: releasing
// a plugin-backed library only discards the handle.
type PluginBackend struct{}

// NewPluginBackend creates a plugin backend.
func NewPluginBackend() *PluginBackend {
	return &PluginBackend{}
}

// Lookup opens the shared object and resolves the constructor symbol.
func (b *PluginBackend) Lookup(_ context.Context, path, symbol string) (*Symbol, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}

	sym, err := p.Lookup(symbol)
	if err != nil {
		return nil, errors.SymbolNotFound(path, symbol)
	}

	switch fn := sym.(type) {
	case func() (*root.Root, error):
		return &Symbol{Constructor: fn}, nil
	case root.Constructor:
		return &Symbol{Constructor: fn}, nil
	case *root.Constructor:
		// Exported variables resolve to a pointer.
		return &Symbol{Constructor: *fn}, nil
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindSymbolNotFound).
			Detail("symbol %q in %q is %T, not a root constructor", symbol, path, sym).
			Build()
	}
}
