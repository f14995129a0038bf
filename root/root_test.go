package root

import (
	"testing"

	"github.com/wippyai/stable-abi/layout"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.4.2")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if v.Major != 1 || v.Minor != 4 || v.Patch != 2 {
		t.Fatalf("v = %+v", v)
	}
	if v.String() != "1.4.2" {
		t.Errorf("String() = %q", v.String())
	}

	for _, bad := range []string{"", "1.2", "x.y.z", "1.2.3.4"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) accepted", bad)
		}
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		host string
		lib  string
		want bool
	}{
		{"1.2.0", "1.2.0", true},
		{"1.2.0", "1.3.0", true},  // library added features
		{"1.2.0", "1.2.5", true},  // library fixed bugs
		{"1.3.0", "1.2.9", false}, // host expects more than library has
		{"1.2.3", "1.2.2", false},
		{"1.0.0", "2.0.0", false}, // major mismatch, either direction
		{"2.0.0", "1.9.9", false},
		{"0.3.0", "0.4.0", true},
	}

	for _, tt := range tests {
		host, lib := MustParseVersion(tt.host), MustParseVersion(tt.lib)
		if got := Compatible(host, lib); got != tt.want {
			t.Errorf("Compatible(host %s, lib %s) = %v, want %v", tt.host, tt.lib, got, tt.want)
		}
	}
}

func testRoot(exports ...Export) *Root {
	return &Root{Name: "app.module", Version: MustParseVersion("1.0.0"), Exports: exports}
}

func fn(name string) Export {
	return Export{
		Name:   name,
		Kind:   ExportFunc,
		Func:   func() {},
		Params: []*layout.TypeLayout{layout.U32},
		Result: layout.U32,
	}
}

func TestRoot_Validate(t *testing.T) {
	if err := testRoot(fn("a"), fn("b")).Validate(); err != nil {
		t.Fatalf("valid root: %v", err)
	}

	tests := []struct {
		name string
		root *Root
	}{
		{"nil root", nil},
		{"empty name", &Root{}},
		{"duplicate export", testRoot(fn("a"), fn("a"))},
		{"unnamed export", testRoot(Export{Func: func() {}})},
		{"nil func", testRoot(Export{Name: "a"})},
		{"nil param layout", testRoot(Export{Name: "a", Func: func() {}, Params: []*layout.TypeLayout{nil}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.root.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCheckAdditive(t *testing.T) {
	older := testRoot(fn("open"), fn("read"))

	if err := CheckAdditive(older, testRoot(fn("open"), fn("read"), fn("close"))); err != nil {
		t.Errorf("appending exports must pass: %v", err)
	}
	if err := CheckAdditive(older, testRoot(fn("open"), fn("read"))); err != nil {
		t.Errorf("identical table must pass: %v", err)
	}
	if err := CheckAdditive(older, testRoot(fn("open"))); err == nil {
		t.Error("removing an export must fail")
	}
	if err := CheckAdditive(older, testRoot(fn("read"), fn("open"))); err == nil {
		t.Error("reordering exports must fail")
	}
	if err := CheckAdditive(older, &Root{Name: "other.module", Exports: older.Exports}); err == nil {
		t.Error("different module names must fail")
	}

	ctor := older.Exports[0]
	ctor.Kind = ExportConstructor
	if err := CheckAdditive(older, testRoot(ctor, fn("read"))); err == nil {
		t.Error("changing export kind must fail")
	}
}

func TestReachableLayouts(t *testing.T) {
	point, err := layout.NewStruct("app.Point").
		Field("x", layout.U32).
		Field("y", layout.U32).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	r := testRoot(
		Export{Name: "mk", Kind: ExportFunc, Func: func() {}, Result: point},
		Export{Name: "norm", Kind: ExportFunc, Func: func() {}, Params: []*layout.TypeLayout{point}, Result: layout.F64},
	)

	got := ReachableLayouts(r)
	// point, u32 (its field type), f64: each exactly once.
	if len(got) != 3 {
		names := make([]string, len(got))
		for i, l := range got {
			names[i] = l.Name
		}
		t.Fatalf("reachable = %v, want 3 entries", names)
	}
}
