package root

import (
	"fmt"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
)

// ExportKind distinguishes plain functions from constructors in the export
// table.
type ExportKind uint8

const (
	ExportFunc ExportKind = iota
	ExportConstructor
)

func (k ExportKind) String() string {
	switch k {
	case ExportFunc:
		return "func"
	case ExportConstructor:
		return "constructor"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Export is one entry of a module root's export table. Params and Result are
// the committed layouts the loader checks before the function is ever
// invoked; Func is the callable itself and is opaque until checking passes.
type Export struct {
	Func   any
	Result *layout.TypeLayout
	Name   string
	Params []*layout.TypeLayout
	Kind   ExportKind
}

// Root is the single value a dynamic library exports: a name, an interface
// version triple, and an ordered export table. Order is part of the contract;
// revisions may only append.
type Root struct {
	Name    string
	Version Version
	Exports []Export
}

// Constructor is the shape of the library's sole exported symbol. The loader
// resolves it by name, calls it once, and checks the returned root before
// trusting anything inside it.
type Constructor func() (*Root, error)

// Export returns the named table entry.
func (r *Root) Export(name string) (*Export, bool) {
	for i := range r.Exports {
		if r.Exports[i].Name == name {
			return &r.Exports[i], true
		}
	}
	return nil, false
}

// Validate checks the root's own declaration: a name, uniquely named exports
// each carrying a callable, and a layout for every declared parameter.
func (r *Root) Validate() error {
	if r == nil {
		return errors.InvalidInput(errors.PhaseLoad, "module root is nil")
	}
	if r.Name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "module root has no name")
	}
	seen := make(map[string]bool, len(r.Exports))
	for _, e := range r.Exports {
		if e.Name == "" {
			return errors.InvalidInput(errors.PhaseLoad, "export with empty name in "+r.Name)
		}
		if seen[e.Name] {
			return errors.Duplicate("export", e.Name)
		}
		seen[e.Name] = true
		if e.Func == nil {
			return errors.InvalidInput(errors.PhaseLoad, "export "+e.Name+" has no function")
		}
		for _, p := range e.Params {
			if p == nil {
				return errors.InvalidInput(errors.PhaseLoad, "export "+e.Name+" has a parameter without a layout")
			}
		}
	}
	return nil
}

// CheckAdditive verifies that newer is an additive revision of older: every
// export of older appears in newer at the same position with the same name
// and kind. Newer may append exports; removing or reordering breaks the
// contract and requires a major bump.
func CheckAdditive(older, newer *Root) error {
	if older.Name != newer.Name {
		return errors.New(errors.PhaseVersion, errors.KindInvalidInput).
			Detail("roots name different modules: %q vs %q", older.Name, newer.Name).
			Build()
	}
	if len(newer.Exports) < len(older.Exports) {
		return errors.New(errors.PhaseVersion, errors.KindRejected).
			TypeName(older.Name).
			Detail("revision removes exports: %d declared, %d expected", len(newer.Exports), len(older.Exports)).
			Build()
	}
	for i := range older.Exports {
		o, n := &older.Exports[i], &newer.Exports[i]
		if o.Name != n.Name {
			return errors.New(errors.PhaseVersion, errors.KindRejected).
				TypeName(older.Name).
				Path(o.Name).
				Detail("export %d renamed or reordered: %q vs %q", i, o.Name, n.Name).
				Build()
		}
		if o.Kind != n.Kind {
			return errors.New(errors.PhaseVersion, errors.KindRejected).
				TypeName(older.Name).
				Path(o.Name).
				Detail("export kind changed: %s vs %s", o.Kind, n.Kind).
				Build()
		}
	}
	return nil
}

// ReachableLayouts returns every descriptor reachable from the root's export
// table, deduplicated, in deterministic walk order. This is the set a loader
// must check before trusting any export.
func ReachableLayouts(r *Root) []*layout.TypeLayout {
	var roots []*layout.TypeLayout
	for i := range r.Exports {
		roots = append(roots, r.Exports[i].Params...)
		if r.Exports[i].Result != nil {
			roots = append(roots, r.Exports[i].Result)
		}
	}
	return layout.Closure(roots...)
}
