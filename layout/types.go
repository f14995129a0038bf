package layout

import (
	"fmt"
	"sync"
)

// Kind classifies what a descriptor describes.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindStruct
	KindEnum
	KindParam
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindParam:
		return "param"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Prim identifies a primitive with a committed fixed-width encoding.
type Prim uint8

const (
	PrimBool Prim = iota
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimS8
	PrimS16
	PrimS32
	PrimS64
	PrimF32
	PrimF64
	PrimChar
	PrimString
)

var primNames = [...]string{
	PrimBool:   "bool",
	PrimU8:     "u8",
	PrimU16:    "u16",
	PrimU32:    "u32",
	PrimU64:    "u64",
	PrimS8:     "s8",
	PrimS16:    "s16",
	PrimS32:    "s32",
	PrimS64:    "s64",
	PrimF32:    "f32",
	PrimF64:    "f64",
	PrimChar:   "char",
	PrimString: "string",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return fmt.Sprintf("prim(%d)", uint8(p))
}

// Field is one struct field or variant payload field: name, committed offset,
// and the field type's own descriptor. For variant fields the offset is
// relative to the start of the payload region.
type Field struct {
	Type   *TypeLayout
	Name   string
	Offset uint32
}

// Variant is one enum variant with its explicit discriminant encoding.
type Variant struct {
	Name         string
	Fields       []Field
	Discriminant uint32
	Size         uint32 // payload bytes this variant occupies
}

// TypeLayout is the self-describing layout record for one type. It is built
// once per distinct type per compilation unit and must not be mutated after
// construction.
type TypeLayout struct {
	Name           string // fully qualified, e.g. "geometry.Point"
	Package        string // diagnostics only
	PackageVersion string // diagnostics only
	Kind           Kind
	Prim           Prim // valid when Kind == KindPrimitive
	Size           uint32
	Align          uint32
	Fields         []Field   // KindStruct; KindPointer holds a single elem field
	Variants       []Variant // KindEnum
	Params         []string  // generic parameter identities, in declaration order
	DiscSize       uint32    // KindEnum: discriminant bytes (1, 2 or 4)
	PayloadOffset  uint32    // KindEnum: where the payload region starts
	PayloadSize    uint32    // KindEnum: payload region bytes (the variant cap)
	PayloadAlign   uint32    // KindEnum: payload region alignment
	Nonexhaustive  bool      // KindEnum: newer libraries may append variants

	fpOnce sync.Once
	fp     string
}

func (t *TypeLayout) String() string {
	if t == nil {
		return "<nil layout>"
	}
	return fmt.Sprintf("%s %s (%d bytes, align %d)", t.Kind, t.Name, t.Size, t.Align)
}

// FieldByName returns the struct field with the given name.
func (t *TypeLayout) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// VariantByName returns the enum variant with the given name.
func (t *TypeLayout) VariantByName(name string) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByTag returns the enum variant with the given discriminant.
func (t *TypeLayout) VariantByTag(disc uint32) (Variant, bool) {
	for _, v := range t.Variants {
		if v.Discriminant == disc {
			return v, true
		}
	}
	return Variant{}, false
}

// Elem returns the pointee descriptor of a pointer layout.
func (t *TypeLayout) Elem() *TypeLayout {
	if t.Kind != KindPointer || len(t.Fields) == 0 {
		return nil
	}
	return t.Fields[0].Type
}
