package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseCheck,
				Kind:     KindLayoutMismatch,
				Path:     []string{"point", "x"},
				TypeName: "geometry.Point",
				Detail:   "offset 4, expected 0",
			},
			contains: []string{"[check]", "layout_mismatch", "point.x", "geometry.Point", "offset 4"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLoadFailure,
				Detail: "load \"./a.so\"",
				Cause:  errors.New("no such file"),
			},
			contains: []string{"[load]", "load_failure", "./a.so", "caused by", "no such file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindLoadFailure,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseCheck,
		Kind:  KindLayoutMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseCheck, Kind: KindLayoutMismatch}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseLoad, Kind: KindLayoutMismatch}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseCheck, Kind: KindVersionIncompatible}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseCheck, Kind: KindLayoutMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseEncode, KindOverflow).
		Path("payload", "count").
		TypeName("u8").
		Value(300).
		Detail("value %d exceeds %d", 300, 255).
		Build()

	if err.Phase != PhaseEncode || err.Kind != KindOverflow {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "value 300 exceeds 255" {
		t.Errorf("unexpected detail: %q", err.Detail)
	}
	if err.Value != 300 {
		t.Errorf("unexpected value: %v", err.Value)
	}
	if len(err.Path) != 2 || err.Path[0] != "payload" {
		t.Errorf("unexpected path: %v", err.Path)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		phase    Phase
		kind     Kind
		contains string
	}{
		{"SymbolNotFound", SymbolNotFound("./p.so", "StableABIRoot"), PhaseLoad, KindSymbolNotFound, "StableABIRoot"},
		{"VersionIncompatible", VersionIncompatible("geo", "1.0.0", "2.0.0"), PhaseVersion, KindVersionIncompatible, "2.0.0"},
		{"LoadFailed", LoadFailed("./p.so", errors.New("mmap")), PhaseLoad, KindLoadFailure, "./p.so"},
		{"DoubleDrop", DoubleDrop("geo.Shape"), PhaseCall, KindDoubleDrop, "destructor"},
		{"UseAfterMove", UseAfterMove("geo.Shape"), PhaseCall, KindUseAfterMove, "moved"},
		{"NotCloneable", NotCloneable("geo.Shape"), PhaseCall, KindNotCloneable, "clone"},
		{"Duplicate", Duplicate("type", "geo.Point"), PhaseRegister, KindDuplicate, "geo.Point"},
		{"Rejected", Rejected("./p.so", errors.New("bad layout")), PhaseLoad, KindRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("phase = %s, want %s", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("message %q does not contain %q", tt.err.Error(), tt.contains)
			}
		})
	}
}
