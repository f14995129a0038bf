package layout

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Fingerprint returns the structural fingerprint of the descriptor: a SHA-256
// over a canonical serialization of everything the checker compares. Two
// descriptors with equal fingerprints are structurally identical. Diagnostic
// fields (package, package version) do not participate.
//
// The walk is cycle-safe: a back-edge contributes the referenced type's name
// instead of recursing.
func (t *TypeLayout) Fingerprint() string {
	t.fpOnce.Do(func() {
		h := sha256.New()
		hashLayout(h, t, map[*TypeLayout]bool{})
		t.fp = hex.EncodeToString(h.Sum(nil))
	})
	return t.fp
}

func hashLayout(h hash.Hash, t *TypeLayout, visiting map[*TypeLayout]bool) {
	if t == nil {
		h.Write([]byte("nil;"))
		return
	}
	if visiting[t] {
		h.Write([]byte("cycle:"))
		h.Write([]byte(t.Name))
		h.Write([]byte(";"))
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	h.Write([]byte(t.Kind.String()))
	h.Write([]byte(":"))
	h.Write([]byte(t.Name))
	h.Write([]byte(";"))
	hashU32(h, uint32(t.Prim))
	hashU32(h, t.Size)
	hashU32(h, t.Align)

	for _, p := range t.Params {
		h.Write([]byte("param:"))
		h.Write([]byte(p))
		h.Write([]byte(";"))
	}

	for _, f := range t.Fields {
		h.Write([]byte("field:"))
		h.Write([]byte(f.Name))
		h.Write([]byte(";"))
		hashU32(h, f.Offset)
		hashLayout(h, f.Type, visiting)
	}

	if t.Kind == KindEnum {
		hashU32(h, t.DiscSize)
		hashU32(h, t.PayloadOffset)
		hashU32(h, t.PayloadSize)
		hashU32(h, t.PayloadAlign)
		if t.Nonexhaustive {
			h.Write([]byte("nonexhaustive;"))
		}
		for _, v := range t.Variants {
			h.Write([]byte("variant:"))
			h.Write([]byte(v.Name))
			h.Write([]byte(";"))
			hashU32(h, v.Discriminant)
			hashU32(h, v.Size)
			for _, f := range v.Fields {
				h.Write([]byte("field:"))
				h.Write([]byte(f.Name))
				h.Write([]byte(";"))
				hashU32(h, f.Offset)
				hashLayout(h, f.Type, visiting)
			}
		}
	}
}

func hashU32(h hash.Hash, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	h.Write(buf[:])
}
