package layout

// The committed primitive encodings. Pointers are 8 bytes regardless of host
// word size; string is a (ptr, len) pair. These are contract constants, not a
// reflection of any particular compiler's choices.
const (
	PointerSize  = 8
	PointerAlign = 8
)

func prim(p Prim, size, align uint32) *TypeLayout {
	return &TypeLayout{
		Name:  p.String(),
		Kind:  KindPrimitive,
		Prim:  p,
		Size:  size,
		Align: align,
	}
}

var (
	Bool   = prim(PrimBool, 1, 1)
	U8     = prim(PrimU8, 1, 1)
	U16    = prim(PrimU16, 2, 2)
	U32    = prim(PrimU32, 4, 4)
	U64    = prim(PrimU64, 8, 8)
	S8     = prim(PrimS8, 1, 1)
	S16    = prim(PrimS16, 2, 2)
	S32    = prim(PrimS32, 4, 4)
	S64    = prim(PrimS64, 8, 8)
	F32    = prim(PrimF32, 4, 4)
	F64    = prim(PrimF64, 8, 8)
	Char   = prim(PrimChar, 4, 4)
	String = prim(PrimString, 16, 8) // (ptr, len)
)

// PrimSize returns the committed byte width of a fixed-width primitive.
// String has no fixed inline width beyond its (ptr, len) header.
func PrimSize(p Prim) uint32 {
	switch p {
	case PrimBool, PrimU8, PrimS8:
		return 1
	case PrimU16, PrimS16:
		return 2
	case PrimU32, PrimS32, PrimF32, PrimChar:
		return 4
	case PrimU64, PrimS64, PrimF64:
		return 8
	case PrimString:
		return 16
	default:
		return 0
	}
}

// Pointer returns a pointer-like descriptor for elem. The pointee may be a
// forward declaration from Declare; its layout does not influence the
// pointer's own size or alignment.
func Pointer(elem *TypeLayout) *TypeLayout {
	name := "*"
	if elem != nil {
		name += elem.Name
	}
	return &TypeLayout{
		Name:  name,
		Kind:  KindPointer,
		Size:  PointerSize,
		Align: PointerAlign,
		Fields: []Field{
			{Name: "elem", Offset: 0, Type: elem},
		},
	}
}

// Param returns a generic-parameter identity descriptor. Parameters occupy no
// space of their own; they are compared by name during checking.
func Param(name string) *TypeLayout {
	return &TypeLayout{
		Name:  name,
		Kind:  KindParam,
		Size:  0,
		Align: 1,
	}
}
