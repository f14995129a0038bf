package layout

import (
	"github.com/wippyai/stable-abi/errors"
)

// AlignTo rounds offset up to the next multiple of align. Align must be a
// power of two.
func AlignTo(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// DiscriminantSize returns the committed discriminant width for an exhaustive
// enum with the given variant count. Nonexhaustive enums always use 4 bytes so
// the width never changes when variants are appended.
func DiscriminantSize(variants int) uint32 {
	switch {
	case variants <= 1<<8:
		return 1
	case variants <= 1<<16:
		return 2
	default:
		return 4
	}
}

// Declare creates an empty forward declaration for a recursive type. It must
// be completed with BuildInto before the descriptor is used.
func Declare(name string) *TypeLayout {
	return &TypeLayout{Name: name}
}

// StructBuilder assembles a struct descriptor, committing field offsets from
// declaration order.
type StructBuilder struct {
	name    string
	pkg     string
	version string
	params  []string
	fields  []fieldDecl
	err     error
}

type fieldDecl struct {
	typ  *TypeLayout
	name string
}

// NewStruct starts a struct descriptor with the given fully qualified name.
func NewStruct(name string) *StructBuilder {
	b := &StructBuilder{name: name}
	if name == "" {
		b.err = errors.InvalidLayout(name, "empty type name")
	}
	return b
}

// Package records the declaring package and its version, used only for
// diagnostics.
func (b *StructBuilder) Package(pkg, version string) *StructBuilder {
	b.pkg = pkg
	b.version = version
	return b
}

// TypeParam records a generic parameter identity.
func (b *StructBuilder) TypeParam(name string) *StructBuilder {
	b.params = append(b.params, name)
	return b
}

// Field appends a field. Order is significant: offsets are derived from it.
func (b *StructBuilder) Field(name string, t *TypeLayout) *StructBuilder {
	b.fields = append(b.fields, fieldDecl{name: name, typ: t})
	return b
}

// Build computes offsets, size and alignment, and returns the finished
// descriptor.
func (b *StructBuilder) Build() (*TypeLayout, error) {
	return b.BuildInto(Declare(b.name))
}

// BuildInto completes a forward declaration in place, so pointers created
// against the declaration resolve to the finished descriptor.
func (b *StructBuilder) BuildInto(decl *TypeLayout) (*TypeLayout, error) {
	if b.err != nil {
		return nil, b.err
	}
	if decl == nil || decl.Name != b.name {
		return nil, errors.InvalidLayout(b.name, "declaration does not match builder name")
	}
	if decl.Kind != Kind(0) || decl.Align != 0 {
		return nil, errors.InvalidLayout(b.name, "declaration already built")
	}

	fields, size, align, err := commitFields(b.name, b.fields)
	if err != nil {
		return nil, err
	}

	decl.Package = b.pkg
	decl.PackageVersion = b.version
	decl.Kind = KindStruct
	decl.Size = size
	decl.Align = align
	decl.Fields = fields
	decl.Params = b.params
	return decl, nil
}

// commitFields lays out fields in declaration order and returns the committed
// field list, total size and alignment.
func commitFields(typeName string, decls []fieldDecl) ([]Field, uint32, uint32, error) {
	if len(decls) == 0 {
		return nil, 0, 1, nil
	}

	seen := make(map[string]bool, len(decls))
	fields := make([]Field, 0, len(decls))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, d := range decls {
		if d.name == "" {
			return nil, 0, 0, errors.InvalidLayout(typeName, "empty field name")
		}
		if seen[d.name] {
			return nil, 0, 0, errors.InvalidLayout(typeName, "duplicate field "+d.name)
		}
		seen[d.name] = true
		if d.typ == nil {
			return nil, 0, 0, errors.InvalidLayout(typeName, "field "+d.name+" has no type")
		}

		fieldAlign := d.typ.Align
		if fieldAlign == 0 {
			// Forward declarations are only legal behind a pointer, which has
			// its own fixed layout.
			return nil, 0, 0, errors.InvalidLayout(typeName, "field "+d.name+" uses an incomplete declaration")
		}

		offset = AlignTo(offset, fieldAlign)
		fields = append(fields, Field{Name: d.name, Offset: offset, Type: d.typ})
		if fieldAlign > maxAlign {
			maxAlign = fieldAlign
		}
		offset += d.typ.Size
	}

	return fields, AlignTo(offset, maxAlign), maxAlign, nil
}

// EnumBuilder assembles an enum descriptor with an explicit discriminant
// encoding and a committed payload region.
type EnumBuilder struct {
	name       string
	pkg        string
	version    string
	variants   []variantDecl
	capSize    uint32
	capAlign   uint32
	nonexhaust bool
	err        error
}

type variantDecl struct {
	name   string
	fields []fieldDecl
}

// FieldDecl names one payload field of a variant. Use F to construct it.
type FieldDecl struct {
	Type *TypeLayout
	Name string
}

// F is shorthand for a variant payload field declaration.
func F(name string, t *TypeLayout) FieldDecl {
	return FieldDecl{Name: name, Type: t}
}

// NewEnum starts an enum descriptor with the given fully qualified name.
func NewEnum(name string) *EnumBuilder {
	b := &EnumBuilder{name: name}
	if name == "" {
		b.err = errors.InvalidLayout(name, "empty type name")
	}
	return b
}

// Package records the declaring package and its version, used only for
// diagnostics.
func (b *EnumBuilder) Package(pkg, version string) *EnumBuilder {
	b.pkg = pkg
	b.version = version
	return b
}

// Variant appends a variant. Discriminants are committed sequentially from
// declaration order, starting at zero.
func (b *EnumBuilder) Variant(name string, fields ...FieldDecl) *EnumBuilder {
	decls := make([]fieldDecl, len(fields))
	for i, f := range fields {
		decls[i] = fieldDecl{name: f.Name, typ: f.Type}
	}
	b.variants = append(b.variants, variantDecl{name: name, fields: decls})
	return b
}

// Nonexhaustive marks the enum as forward-compatible and fixes the payload
// region at maxPayload bytes with the given alignment. The cap is part of the
// interface contract: it is declared here, never negotiated at runtime, and
// every variant's payload must fit within it.
func (b *EnumBuilder) Nonexhaustive(maxPayload, payloadAlign uint32) *EnumBuilder {
	b.nonexhaust = true
	b.capSize = maxPayload
	b.capAlign = payloadAlign
	return b
}

// Build computes the discriminant encoding and payload region and returns the
// finished descriptor.
func (b *EnumBuilder) Build() (*TypeLayout, error) {
	return b.BuildInto(Declare(b.name))
}

// BuildInto completes a forward declaration in place.
func (b *EnumBuilder) BuildInto(decl *TypeLayout) (*TypeLayout, error) {
	if b.err != nil {
		return nil, b.err
	}
	if decl == nil || decl.Name != b.name {
		return nil, errors.InvalidLayout(b.name, "declaration does not match builder name")
	}
	if decl.Kind != Kind(0) || decl.Align != 0 {
		return nil, errors.InvalidLayout(b.name, "declaration already built")
	}
	if len(b.variants) == 0 {
		return nil, errors.InvalidLayout(b.name, "enum has no variants")
	}

	seen := make(map[string]bool, len(b.variants))
	variants := make([]Variant, 0, len(b.variants))
	payloadAlign := uint32(1)
	payloadSize := uint32(0)

	for i, vd := range b.variants {
		if vd.name == "" {
			return nil, errors.InvalidLayout(b.name, "empty variant name")
		}
		if seen[vd.name] {
			return nil, errors.InvalidLayout(b.name, "duplicate variant "+vd.name)
		}
		seen[vd.name] = true

		fields, size, align, err := commitFields(b.name+"::"+vd.name, vd.fields)
		if err != nil {
			return nil, err
		}
		if align > payloadAlign {
			payloadAlign = align
		}
		if size > payloadSize {
			payloadSize = size
		}
		variants = append(variants, Variant{
			Name:         vd.name,
			Discriminant: uint32(i),
			Fields:       fields,
			Size:         size,
		})
	}

	discSize := DiscriminantSize(len(b.variants))
	if b.nonexhaust {
		discSize = 4
		if b.capAlign != 0 && b.capAlign&(b.capAlign-1) != 0 {
			return nil, errors.InvalidLayout(b.name, "payload alignment is not a power of two")
		}
		if b.capAlign > payloadAlign {
			payloadAlign = b.capAlign
		} else if b.capAlign != 0 && b.capAlign < payloadAlign {
			return nil, errors.InvalidLayout(b.name, "declared payload alignment is below a variant's requirement")
		}
		if b.capSize < payloadSize {
			return nil, errors.InvalidLayout(b.name, "declared payload cap is below a variant's size")
		}
		payloadSize = b.capSize
	}

	align := discSize
	if payloadAlign > align {
		align = payloadAlign
	}
	payloadOffset := AlignTo(discSize, payloadAlign)

	decl.Package = b.pkg
	decl.PackageVersion = b.version
	decl.Kind = KindEnum
	decl.Align = align
	decl.Size = AlignTo(payloadOffset+payloadSize, align)
	decl.Variants = variants
	decl.DiscSize = discSize
	decl.PayloadOffset = payloadOffset
	decl.PayloadSize = payloadSize
	decl.PayloadAlign = payloadAlign
	decl.Nonexhaustive = b.nonexhaust
	return decl, nil
}
