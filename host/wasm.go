package host

import (
	"context"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/root"
	"github.com/wippyai/stable-abi/wire"
)

// WASMBackend treats a WebAssembly module as the dynamic library. The guest
// exports a function (the lookup symbol) returning a packed ptr<<32|len
// pointing at a wire manifest in linear memory; every export the manifest
// declares must also exist as a guest function, and becomes a callable that
// dispatches into the instance.
type WASMBackend struct {
	runtime wazero.Runtime
}

// NewWASMBackend creates a backend with its own wazero runtime. Close it
// when every library loaded through it has been released.
func NewWASMBackend(ctx context.Context) *WASMBackend {
	return &WASMBackend{runtime: wazero.NewRuntime(ctx)}
}

// Close tears down the runtime and every instance created from it.
func (b *WASMBackend) Close(ctx context.Context) error {
	return b.runtime.Close(ctx)
}

// Lookup compiles and instantiates the module at path, reads its manifest,
// and wraps it as a root constructor.
func (b *WASMBackend) Lookup(ctx context.Context, path, symbol string) (*Symbol, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}

	compiled, err := b.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}

	mod, err := b.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(path))
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}

	manifest, err := b.readManifest(ctx, mod, path, symbol)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}

	ctor := func() (*root.Root, error) {
		funcs := make(map[string]any, len(manifest.Exports))
		for _, e := range manifest.Exports {
			fn := mod.ExportedFunction(e.Name)
			if fn == nil {
				return nil, errors.SymbolNotFound(path, e.Name)
			}
			funcs[e.Name] = guestFunc(fn)
		}
		return manifest.Root(funcs)
	}

	return &Symbol{
		Constructor: ctor,
		Close: func() error {
			return mod.Close(context.Background())
		},
	}, nil
}

// GuestFunc dispatches one guest export with raw stack values. The loader's
// layout check has already validated the declared parameter and result
// layouts by the time one of these is callable.
type GuestFunc func(ctx context.Context, args ...uint64) ([]uint64, error)

func guestFunc(fn api.Function) GuestFunc {
	return func(ctx context.Context, args ...uint64) ([]uint64, error) {
		return fn.Call(ctx, args...)
	}
}

func (b *WASMBackend) readManifest(ctx context.Context, mod api.Module, path, symbol string) (*wire.Manifest, error) {
	fn := mod.ExportedFunction(symbol)
	if fn == nil {
		return nil, errors.SymbolNotFound(path, symbol)
	}

	results, err := fn.Call(ctx)
	if err != nil {
		return nil, errors.LoadFailed(path, err)
	}
	if len(results) != 1 {
		return nil, errors.InvalidManifest("manifest export returned no ptr/len", nil)
	}

	mem := mod.Memory()
	if mem == nil {
		return nil, errors.InvalidManifest("module exports no memory", nil)
	}
	ptr := uint32(results[0] >> 32)
	length := uint32(results[0])
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseLoad, []string{path, symbol}, int(ptr), int(length))
	}

	manifest, err := wire.DecodeManifest(data)
	if err != nil {
		return nil, err
	}

	Logger().Debug("manifest read from guest memory",
		zap.String("path", path),
		zap.String("module", manifest.ModuleName),
		zap.String("version", manifest.Version.String()),
		zap.Int("exports", len(manifest.Exports)))
	return manifest, nil
}
