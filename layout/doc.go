// Package layout defines self-describing binary layout descriptors.
//
// A TypeLayout records the shape a code generator committed to for one type:
// its kind, size, alignment, ordered fields with explicit offsets, enum
// variants with explicit discriminants, and generic parameter identities.
// Descriptors are built once per type with the Struct/Enum builders, which
// derive every offset deterministically from declaration order; nothing is
// inferred from the Go compiler's own layout decisions.
//
// Descriptors are immutable once built. They are identified by fully
// qualified name plus a structural fingerprint, and the process-wide registry
// caches them for the lifetime of the process.
//
//	point, err := layout.NewStruct("geometry.Point").
//		Package("geometry", "1.0.0").
//		Field("x", layout.S32).
//		Field("y", layout.S32).
//		Build()
//
// Recursive types tie the knot through Declare and BuildInto:
//
//	node := layout.Declare("list.Node")
//	_, err := layout.NewStruct("list.Node").
//		Field("value", layout.S64).
//		Field("next", layout.Pointer(node)).
//		BuildInto(node)
package layout
