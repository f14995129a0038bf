package host

import (
	"context"
	"errors"
	"testing"

	abierrors "github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
	"github.com/wippyai/stable-abi/root"
)

// pointRoot builds a module whose single export returns a Point. Field order
// is the caller's choice, so two differently ordered compilations of the
// "same" struct can face each other in tests.
func pointRoot(t *testing.T, version string, fields ...string) *root.Root {
	t.Helper()

	b := layout.NewStruct("geometry.Point")
	for _, f := range fields {
		b = b.Field(f, layout.U32)
	}
	point, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	return &root.Root{
		Name:    "geometry",
		Version: root.MustParseVersion(version),
		Exports: []root.Export{
			{Name: "origin", Kind: root.ExportFunc, Func: func() {}, Result: point},
		},
	}
}

func memLoader(t *testing.T, lib *root.Root, libErr error) *Loader {
	t.Helper()
	backend := NewMemoryBackend()
	backend.Register("libgeometry.so", DefaultRootSymbol, func() (*root.Root, error) {
		return lib, libErr
	})
	return NewLoader(backend, Options{})
}

func TestLoad_Ready(t *testing.T) {
	expect := pointRoot(t, "1.0.0", "x", "y")
	lib := pointRoot(t, "1.0.0", "x", "y")

	ld, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ld.State() != StateCheckedReady {
		t.Fatalf("state = %s, want checked-ready", ld.State())
	}

	r, err := ld.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if r.Name != "geometry" {
		t.Errorf("root name = %q", r.Name)
	}
}

// A library compiled with the same struct but reordered fields must be
// rejected: the committed offsets no longer agree even though names and
// sizes do.
func TestLoad_ReorderedFieldsRejected(t *testing.T) {
	expect := pointRoot(t, "1.0.0", "x", "y")
	lib := pointRoot(t, "1.0.0", "y", "x")

	ld, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
	if err == nil {
		t.Fatal("reordered fields must reject")
	}
	if ld.State() != StateRejected {
		t.Fatalf("state = %s, want rejected", ld.State())
	}

	var e *abierrors.Error
	if !errors.As(err, &e) || e.Kind != abierrors.KindRejected {
		t.Fatalf("outer kind = %v", err)
	}
	var inner *abierrors.Error
	if !errors.As(e.Cause, &inner) || inner.Kind != abierrors.KindLayoutMismatch {
		t.Fatalf("cause = %v, want layout_mismatch", e.Cause)
	}
	if inner.TypeName != "geometry.Point" {
		t.Errorf("mismatch names type %q, want geometry.Point", inner.TypeName)
	}
	if _, rootErr := ld.Root(); rootErr == nil {
		t.Error("rejected library must not expose its root")
	}
}

func TestLoad_VersionGateBeforeLayouts(t *testing.T) {
	expect := pointRoot(t, "2.0.0", "x", "y")
	// Wrong major AND wrong layout: the version gate must fire first.
	lib := pointRoot(t, "1.0.0", "y", "x")

	_, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
	if err == nil {
		t.Fatal("major mismatch must reject")
	}
	var e *abierrors.Error
	if !errors.As(err, &e) {
		t.Fatal(err)
	}
	inner := &abierrors.Error{}
	if !errors.As(e.Cause, &inner) || inner.Kind != abierrors.KindVersionIncompatible {
		t.Fatalf("cause = %v, want version_incompatible", e.Cause)
	}
}

func TestLoad_VersionRule(t *testing.T) {
	tests := []struct {
		host string
		lib  string
		ok   bool
	}{
		{"1.2.0", "1.2.0", true},
		{"1.2.0", "1.5.1", true},  // library is ahead: additive, fine
		{"1.5.0", "1.2.0", false}, // library is behind what the host needs
		{"1.2.0", "2.2.0", false},
	}

	for _, tt := range tests {
		expect := pointRoot(t, tt.host, "x", "y")
		lib := pointRoot(t, tt.lib, "x", "y")
		_, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
		if ok := err == nil; ok != tt.ok {
			t.Errorf("host %s lib %s: err = %v, want ok=%v", tt.host, tt.lib, err, tt.ok)
		}
	}
}

func TestLoad_AdditiveExports(t *testing.T) {
	expect := pointRoot(t, "1.0.0", "x", "y")

	lib := pointRoot(t, "1.1.0", "x", "y")
	lib.Exports = append(lib.Exports, root.Export{
		Name: "translate", Kind: root.ExportFunc, Func: func() {},
		Params: []*layout.TypeLayout{layout.F64, layout.F64},
	})

	_, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
	if err != nil {
		t.Fatalf("appended exports must stay loadable: %v", err)
	}
}

func TestLoad_MissingExportRejected(t *testing.T) {
	expect := pointRoot(t, "1.0.0", "x", "y")
	lib := &root.Root{Name: "geometry", Version: root.MustParseVersion("1.0.0")}

	_, err := memLoader(t, lib, nil).Load(context.Background(), "libgeometry.so", expect)
	if err == nil {
		t.Fatal("missing exports must reject")
	}
}

func TestLoad_SymbolNotFound(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Register("libgeometry.so", "OtherSymbol", func() (*root.Root, error) { return nil, nil })
	loader := NewLoader(backend, Options{})

	ld, err := loader.Load(context.Background(), "libgeometry.so", pointRoot(t, "1.0.0", "x", "y"))
	if err == nil {
		t.Fatal("unknown symbol must fail")
	}
	var e *abierrors.Error
	if !errors.As(err, &e) || e.Kind != abierrors.KindSymbolNotFound {
		t.Fatalf("kind = %v", err)
	}
	if ld.State() != StateRejected {
		t.Errorf("state = %s", ld.State())
	}
}

func TestLoad_ConstructorFailure(t *testing.T) {
	boom := errors.New("library init exploded")
	_, err := memLoader(t, nil, boom).Load(context.Background(), "libgeometry.so", pointRoot(t, "1.0.0", "x", "y"))
	if err == nil {
		t.Fatal("constructor failure must reject")
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause lost: %v", err)
	}
}

type closeTrackingBackend struct {
	inner  Backend
	closed int
}

func (b *closeTrackingBackend) Lookup(ctx context.Context, path, symbol string) (*Symbol, error) {
	sym, err := b.inner.Lookup(ctx, path, symbol)
	if err != nil {
		return nil, err
	}
	return &Symbol{
		Constructor: sym.Constructor,
		Close: func() error {
			b.closed++
			return nil
		},
	}, nil
}

func TestLoad_RejectionReleasesBackend(t *testing.T) {
	mem := NewMemoryBackend()
	mem.Register("libgeometry.so", DefaultRootSymbol, func() (*root.Root, error) {
		return pointRoot(t, "1.0.0", "y", "x"), nil
	})
	backend := &closeTrackingBackend{inner: mem}
	loader := NewLoader(backend, Options{})

	ld, err := loader.Load(context.Background(), "libgeometry.so", pointRoot(t, "1.0.0", "x", "y"))
	if err == nil {
		t.Fatal("expected rejection")
	}
	if backend.closed != 1 {
		t.Fatalf("backend released %d times, want 1", backend.closed)
	}
	// The handle's Close is already spent.
	if err := ld.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if backend.closed != 1 {
		t.Errorf("backend released %d times after handle close", backend.closed)
	}
}

func TestLoadAll(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Register("a.so", DefaultRootSymbol, func() (*root.Root, error) {
		return pointRoot(t, "1.0.0", "x", "y"), nil
	})
	backend.Register("b.so", DefaultRootSymbol, func() (*root.Root, error) {
		return pointRoot(t, "1.2.0", "x", "y"), nil
	})
	loader := NewLoader(backend, Options{})

	specs := []LoadSpec{
		{Path: "a.so", Expect: pointRoot(t, "1.0.0", "x", "y")},
		{Path: "b.so", Expect: pointRoot(t, "1.0.0", "x", "y")},
	}
	handles, err := loader.LoadAll(context.Background(), specs)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for i, ld := range handles {
		if ld.State() != StateCheckedReady {
			t.Errorf("handle %d state = %s", i, ld.State())
		}
	}

	specs[1].Expect = pointRoot(t, "3.0.0", "x", "y")
	if _, err := loader.LoadAll(context.Background(), specs); err == nil {
		t.Fatal("one incompatible library must fail the batch")
	}
}
