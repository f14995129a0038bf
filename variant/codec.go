package variant

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
)

// encodeField writes one payload field at its committed offset. Only
// fixed-width primitives and nested structs of them can live inline in a
// payload region; strings and pointers indirect to memory the wrapper cannot
// carry across the boundary.
func encodeField(buf []byte, f layout.Field, val any, path []string) error {
	switch f.Type.Kind {
	case layout.KindPrimitive:
		return encodePrim(buf, f.Offset, f.Type.Prim, val, path)
	case layout.KindStruct:
		fields, ok := val.(map[string]any)
		if !ok {
			return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				TypeName(f.Type.Name).
				Path(path...).
				Detail("struct field requires map[string]any, got %T", val).
				Build()
		}
		for _, nested := range f.Type.Fields {
			nestedVal, ok := fields[nested.Name]
			if !ok {
				return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
					TypeName(f.Type.Name).
					Path(append(path, nested.Name)...).
					Detail("payload field not provided").
					Build()
			}
			shifted := nested
			shifted.Offset += f.Offset
			if err := encodeField(buf, shifted, nestedVal, append(path, nested.Name)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Unsupported(errors.PhaseEncode,
			f.Type.Kind.String()+" fields cannot live inline in a variant payload")
	}
}

func decodeField(buf []byte, f layout.Field, path []string) (any, error) {
	switch f.Type.Kind {
	case layout.KindPrimitive:
		return decodePrim(buf, f.Offset, f.Type.Prim, path)
	case layout.KindStruct:
		fields := make(map[string]any, len(f.Type.Fields))
		for _, nested := range f.Type.Fields {
			shifted := nested
			shifted.Offset += f.Offset
			val, err := decodeField(buf, shifted, append(path, nested.Name))
			if err != nil {
				return nil, err
			}
			fields[nested.Name] = val
		}
		return fields, nil
	default:
		return nil, errors.Unsupported(errors.PhaseDecode,
			f.Type.Kind.String()+" fields cannot live inline in a variant payload")
	}
}

func encodePrim(buf []byte, off uint32, p layout.Prim, val any, path []string) error {
	size := layout.PrimSize(p)
	if size == 0 || p == layout.PrimString {
		return errors.Unsupported(errors.PhaseEncode, "string fields cannot live inline in a variant payload")
	}
	if uint32(len(buf)) < off+size {
		return errors.OutOfBounds(errors.PhaseEncode, path, int(off+size), len(buf))
	}
	dst := buf[off:]

	switch p {
	case layout.PrimBool:
		b, ok := val.(bool)
		if !ok {
			return typeMismatch(p, val, path)
		}
		if b {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case layout.PrimU8:
		n, ok := asUint(val, math.MaxUint8)
		if !ok {
			return typeMismatch(p, val, path)
		}
		dst[0] = byte(n)
	case layout.PrimU16:
		n, ok := asUint(val, math.MaxUint16)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case layout.PrimU32:
		n, ok := asUint(val, math.MaxUint32)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case layout.PrimU64:
		n, ok := asUint(val, math.MaxUint64)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint64(dst, n)
	case layout.PrimS8:
		n, ok := asInt(val, math.MinInt8, math.MaxInt8)
		if !ok {
			return typeMismatch(p, val, path)
		}
		dst[0] = byte(int8(n))
	case layout.PrimS16:
		n, ok := asInt(val, math.MinInt16, math.MaxInt16)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint16(dst, uint16(int16(n)))
	case layout.PrimS32, layout.PrimChar:
		n, ok := asInt(val, math.MinInt32, math.MaxInt32)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint32(dst, uint32(int32(n)))
	case layout.PrimS64:
		n, ok := asInt(val, math.MinInt64, math.MaxInt64)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case layout.PrimF32:
		f, ok := val.(float32)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
	case layout.PrimF64:
		f, ok := val.(float64)
		if !ok {
			return typeMismatch(p, val, path)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	default:
		return errors.Unsupported(errors.PhaseEncode, "primitive "+p.String())
	}
	return nil
}

func decodePrim(buf []byte, off uint32, p layout.Prim, path []string) (any, error) {
	size := layout.PrimSize(p)
	if size == 0 || p == layout.PrimString {
		return nil, errors.Unsupported(errors.PhaseDecode, "string fields cannot live inline in a variant payload")
	}
	if uint32(len(buf)) < off+size {
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, int(off+size), len(buf))
	}
	src := buf[off:]

	switch p {
	case layout.PrimBool:
		return src[0] != 0, nil
	case layout.PrimU8:
		return src[0], nil
	case layout.PrimU16:
		return binary.LittleEndian.Uint16(src), nil
	case layout.PrimU32:
		return binary.LittleEndian.Uint32(src), nil
	case layout.PrimU64:
		return binary.LittleEndian.Uint64(src), nil
	case layout.PrimS8:
		return int8(src[0]), nil
	case layout.PrimS16:
		return int16(binary.LittleEndian.Uint16(src)), nil
	case layout.PrimS32, layout.PrimChar:
		return int32(binary.LittleEndian.Uint32(src)), nil
	case layout.PrimS64:
		return int64(binary.LittleEndian.Uint64(src)), nil
	case layout.PrimF32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src)), nil
	case layout.PrimF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src)), nil
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, "primitive "+p.String())
	}
}

func typeMismatch(p layout.Prim, val any, path []string) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
		TypeName(p.String()).
		Path(path...).
		Detail("cannot encode %T", val).
		Value(val).
		Build()
}

// asUint accepts the unsigned fixed-width types plus untyped-int literals,
// range-checked against max.
func asUint(val any, max uint64) (uint64, bool) {
	var n uint64
	switch v := val.(type) {
	case uint8:
		n = uint64(v)
	case uint16:
		n = uint64(v)
	case uint32:
		n = uint64(v)
	case uint64:
		n = v
	case uint:
		n = uint64(v)
	case int:
		if v < 0 {
			return 0, false
		}
		n = uint64(v)
	default:
		return 0, false
	}
	return n, n <= max
}

// asInt accepts the signed fixed-width types plus untyped-int literals,
// range-checked against [min, max].
func asInt(val any, min, max int64) (int64, bool) {
	var n int64
	switch v := val.(type) {
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	default:
		return 0, false
	}
	return n, n >= min && n <= max
}
