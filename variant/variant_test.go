package variant

import (
	"errors"
	"testing"

	abierrors "github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
)

func eventDesc(t *testing.T) *layout.TypeLayout {
	t.Helper()
	desc, err := layout.NewEnum("app.Event").
		Variant("opened").
		Variant("resized", layout.F("w", layout.U32), layout.F("h", layout.U32)).
		Variant("scrolled", layout.F("delta", layout.F64)).
		Nonexhaustive(16, 8).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return desc
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	desc := eventDesc(t)

	v, err := Encode(desc, "resized", map[string]any{"w": uint32(800), "h": uint32(600)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if v.Tag != 1 {
		t.Fatalf("tag = %d, want 1", v.Tag)
	}
	if uint32(len(v.Payload)) != desc.PayloadSize {
		t.Fatalf("payload %d bytes, want cap %d", len(v.Payload), desc.PayloadSize)
	}

	decoded, err := Decode(desc, v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	known, ok := decoded.(Known)
	if !ok {
		t.Fatalf("decoded %T, want Known", decoded)
	}
	if known.Variant != "resized" {
		t.Errorf("variant = %q, want resized", known.Variant)
	}
	if known.Fields["w"] != uint32(800) || known.Fields["h"] != uint32(600) {
		t.Errorf("fields = %v", known.Fields)
	}
}

func TestEncode_FieldlessVariant(t *testing.T) {
	desc := eventDesc(t)
	v, err := Encode(desc, "opened", nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(desc, v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if known, ok := decoded.(Known); !ok || known.Variant != "opened" {
		t.Fatalf("decoded %v", decoded)
	}
}

func TestEncode_Errors(t *testing.T) {
	desc := eventDesc(t)

	tests := []struct {
		name    string
		variant string
		fields  map[string]any
		kind    abierrors.Kind
	}{
		{"undeclared variant", "closed", nil, abierrors.KindUnknownVariant},
		{"missing field", "resized", map[string]any{"w": uint32(1)}, abierrors.KindInvalidInput},
		{"extra field", "opened", map[string]any{"x": 1}, abierrors.KindInvalidInput},
		{"wrong field type", "resized", map[string]any{"w": "wide", "h": uint32(1)}, abierrors.KindInvalidInput},
		{"untyped overflow", "resized", map[string]any{"w": -1, "h": uint32(1)}, abierrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(desc, tt.variant, tt.fields)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *abierrors.Error
			if !errors.As(err, &e) || e.Kind != tt.kind {
				t.Fatalf("kind = %v, want %s", err, tt.kind)
			}
		})
	}
}

// An unrecognized discriminant yields the explicit Unknown value and never an
// error or a guessed structure.
func TestDecode_UnknownDiscriminant(t *testing.T) {
	desc := eventDesc(t)

	raw := Value{Tag: 99, Payload: make([]byte, desc.PayloadSize)}
	raw.Payload[0] = 0xAB

	decoded, err := Decode(desc, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	unknown, ok := decoded.(Unknown)
	if !ok {
		t.Fatalf("decoded %T, want Unknown", decoded)
	}
	if unknown.Tag != 99 {
		t.Errorf("tag = %d, want 99", unknown.Tag)
	}
	if unknown.Payload[0] != 0xAB {
		t.Error("payload bytes must be preserved")
	}

	// The Unknown payload is a copy; mutating it must not touch the source.
	unknown.Payload[0] = 0
	if raw.Payload[0] != 0xAB {
		t.Error("Unknown payload must not alias the source value")
	}
}

func TestDecode_ExhaustiveRejectsUnknownTag(t *testing.T) {
	desc, err := layout.NewEnum("app.Mode").
		Variant("on").
		Variant("off").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decode(desc, Value{Tag: 7, Payload: nil})
	if err == nil {
		t.Fatal("exhaustive enums must reject out-of-range discriminants")
	}
}

func TestDecode_ShortPayload(t *testing.T) {
	desc := eventDesc(t)
	_, err := Decode(desc, Value{Tag: 1, Payload: []byte{1, 2}})
	if err == nil {
		t.Fatal("expected out of bounds error")
	}
	var e *abierrors.Error
	if !errors.As(err, &e) || e.Kind != abierrors.KindOutOfBounds {
		t.Fatalf("kind = %v, want out_of_bounds", err)
	}
}

func TestDecode_NestedStructField(t *testing.T) {
	size, err := layout.NewStruct("app.Size").
		Field("w", layout.U32).
		Field("h", layout.U32).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	desc, err := layout.NewEnum("app.Event").
		Variant("resized", layout.F("size", size)).
		Nonexhaustive(16, 8).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	v, err := Encode(desc, "resized", map[string]any{
		"size": map[string]any{"w": uint32(1920), "h": uint32(1080)},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(desc, v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	known := decoded.(Known)
	nested, ok := known.Fields["size"].(map[string]any)
	if !ok {
		t.Fatalf("size field = %T", known.Fields["size"])
	}
	if nested["w"] != uint32(1920) || nested["h"] != uint32(1080) {
		t.Errorf("nested fields = %v", nested)
	}
}

func TestMarshalUnmarshal_Image(t *testing.T) {
	desc := eventDesc(t)

	v, err := Encode(desc, "scrolled", map[string]any{"delta": 3.5})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := Marshal(desc, v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if uint32(len(img)) != desc.Size {
		t.Fatalf("image %d bytes, want %d", len(img), desc.Size)
	}
	// Nonexhaustive enums commit a 4-byte little-endian discriminant.
	if img[0] != 2 || img[1] != 0 || img[2] != 0 || img[3] != 0 {
		t.Errorf("discriminant bytes = %v", img[:4])
	}

	back, err := Unmarshal(desc, img)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Tag != v.Tag {
		t.Errorf("tag = %d, want %d", back.Tag, v.Tag)
	}
	decoded, err := Decode(desc, back)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if known := decoded.(Known); known.Fields["delta"] != 3.5 {
		t.Errorf("delta = %v", known.Fields["delta"])
	}
}

func TestEncode_StringFieldUnsupported(t *testing.T) {
	desc, err := layout.NewEnum("app.Event").
		Variant("named", layout.F("name", layout.String)).
		Nonexhaustive(32, 8).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	_, err = Encode(desc, "named", map[string]any{"name": "x"})
	if err == nil {
		t.Fatal("expected unsupported error")
	}
	var e *abierrors.Error
	if !errors.As(err, &e) || e.Kind != abierrors.KindUnsupported {
		t.Fatalf("kind = %v, want unsupported", err)
	}
}
