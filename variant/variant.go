package variant

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
)

// Value is one enum value in its committed binary form: a discriminant plus a
// payload region sized to the descriptor's declared cap.
type Value struct {
	Payload []byte
	Tag     uint32
}

// Decoded is the result of interpreting a Value against a reader's
// descriptor: either Known or Unknown.
type Decoded interface {
	isDecoded()
}

// Known is a decoded value whose variant the reader's descriptor declares.
type Known struct {
	Fields  map[string]any
	Variant string
	Tag     uint32
}

func (Known) isDecoded() {}

// Unknown is a decoded value whose discriminant the reader does not
// recognize. The payload is opaque; the reader must not guess its structure.
type Unknown struct {
	Payload []byte
	Tag     uint32
}

func (Unknown) isDecoded() {}

// Encode builds a Value for the named variant from its payload fields. The
// descriptor must be an enum and must declare the variant; every declared
// payload field must be provided, and nothing else.
func Encode(desc *layout.TypeLayout, variantName string, fields map[string]any) (Value, error) {
	if desc == nil || desc.Kind != layout.KindEnum {
		return Value{}, errors.InvalidInput(errors.PhaseEncode, "descriptor is not an enum")
	}

	v, ok := desc.VariantByName(variantName)
	if !ok {
		return Value{}, errors.UnknownVariant(desc.Name, fmt.Sprintf("variant %q not declared", variantName))
	}

	payload := make([]byte, desc.PayloadSize)
	for _, f := range v.Fields {
		val, ok := fields[f.Name]
		if !ok {
			return Value{}, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				TypeName(desc.Name).
				Path(variantName, f.Name).
				Detail("payload field not provided").
				Build()
		}
		if err := encodeField(payload, f, val, []string{desc.Name, variantName, f.Name}); err != nil {
			return Value{}, err
		}
	}

	for name := range fields {
		if _, ok := fieldByName(v.Fields, name); !ok {
			return Value{}, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				TypeName(desc.Name).
				Path(variantName, name).
				Detail("field not declared by variant").
				Build()
		}
	}

	return Value{Tag: v.Discriminant, Payload: payload}, nil
}

// Decode interprets a Value against the reader's descriptor. An unrecognized
// discriminant yields Unknown, not an error; the reader keeps the raw bytes
// and may pass them through untouched.
func Decode(desc *layout.TypeLayout, v Value) (Decoded, error) {
	if desc == nil || desc.Kind != layout.KindEnum {
		return nil, errors.InvalidInput(errors.PhaseDecode, "descriptor is not an enum")
	}

	variant, ok := desc.VariantByTag(v.Tag)
	if !ok {
		if !desc.Nonexhaustive {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
				TypeName(desc.Name).
				Detail("discriminant %d out of range for exhaustive enum", v.Tag).
				Value(v.Tag).
				Build()
		}
		payload := make([]byte, len(v.Payload))
		copy(payload, v.Payload)
		return Unknown{Tag: v.Tag, Payload: payload}, nil
	}

	if uint32(len(v.Payload)) < variant.Size {
		return nil, errors.OutOfBounds(errors.PhaseDecode, []string{desc.Name, variant.Name}, int(variant.Size), len(v.Payload))
	}

	fields := make(map[string]any, len(variant.Fields))
	for _, f := range variant.Fields {
		val, err := decodeField(v.Payload, f, []string{desc.Name, variant.Name, f.Name})
		if err != nil {
			return nil, err
		}
		fields[f.Name] = val
	}

	return Known{Variant: variant.Name, Tag: v.Tag, Fields: fields}, nil
}

// Marshal renders the full committed byte image of the enum: discriminant at
// offset zero in its declared width, payload at the descriptor's payload
// offset.
func Marshal(desc *layout.TypeLayout, v Value) ([]byte, error) {
	if desc == nil || desc.Kind != layout.KindEnum {
		return nil, errors.InvalidInput(errors.PhaseEncode, "descriptor is not an enum")
	}
	if uint32(len(v.Payload)) > desc.PayloadSize {
		return nil, errors.OutOfBounds(errors.PhaseEncode, []string{desc.Name}, len(v.Payload), int(desc.PayloadSize))
	}

	buf := make([]byte, desc.Size)
	switch desc.DiscSize {
	case 1:
		if v.Tag > 0xff {
			return nil, errors.Overflow(errors.PhaseEncode, []string{desc.Name}, v.Tag, "u8 discriminant")
		}
		buf[0] = byte(v.Tag)
	case 2:
		if v.Tag > 0xffff {
			return nil, errors.Overflow(errors.PhaseEncode, []string{desc.Name}, v.Tag, "u16 discriminant")
		}
		binary.LittleEndian.PutUint16(buf, uint16(v.Tag))
	default:
		binary.LittleEndian.PutUint32(buf, v.Tag)
	}
	copy(buf[desc.PayloadOffset:], v.Payload)
	return buf, nil
}

// Unmarshal reads a committed byte image back into a Value.
func Unmarshal(desc *layout.TypeLayout, data []byte) (Value, error) {
	if desc == nil || desc.Kind != layout.KindEnum {
		return Value{}, errors.InvalidInput(errors.PhaseDecode, "descriptor is not an enum")
	}
	if uint32(len(data)) < desc.Size {
		return Value{}, errors.OutOfBounds(errors.PhaseDecode, []string{desc.Name}, int(desc.Size), len(data))
	}

	var tag uint32
	switch desc.DiscSize {
	case 1:
		tag = uint32(data[0])
	case 2:
		tag = uint32(binary.LittleEndian.Uint16(data))
	default:
		tag = binary.LittleEndian.Uint32(data)
	}

	payload := make([]byte, desc.PayloadSize)
	copy(payload, data[desc.PayloadOffset:desc.PayloadOffset+desc.PayloadSize])
	return Value{Tag: tag, Payload: payload}, nil
}

func fieldByName(fields []layout.Field, name string) (layout.Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return layout.Field{}, false
}
