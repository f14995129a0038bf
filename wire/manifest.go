package wire

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
	"github.com/wippyai/stable-abi/root"
)

// ManifestVersion is the wire schema version. Bump it when the encoded shape
// changes.
const ManifestVersion uint16 = 1

// Export is one decoded export-table entry. Only the declaration travels on
// the wire; the callable is bound by whichever backend owns the boundary.
type Export struct {
	Result *layout.TypeLayout
	Name   string
	Params []*layout.TypeLayout
	Kind   root.ExportKind
}

// Manifest is a module root's interface declaration, decoded back into
// descriptor form.
type Manifest struct {
	ModuleName string
	Version    root.Version
	Exports    []Export
	Layouts    []*layout.TypeLayout
}

// wireManifest is the msgpack image: types flattened into an index table,
// type references encoded as indices. -1 means no type.
type wireManifest struct {
	Schema  uint16       `msgpack:"schema"`
	Module  string       `msgpack:"module"`
	Version string       `msgpack:"version"`
	Exports []wireExport `msgpack:"exports"`
	Types   []wireType   `msgpack:"types"`
}

type wireExport struct {
	Name   string  `msgpack:"name"`
	Kind   uint8   `msgpack:"kind"`
	Params []int32 `msgpack:"params"`
	Result int32   `msgpack:"result"`
}

type wireType struct {
	Name          string        `msgpack:"name"`
	Package       string        `msgpack:"pkg,omitempty"`
	Version       string        `msgpack:"pkg_version,omitempty"`
	Kind          uint8         `msgpack:"kind"`
	Prim          uint8         `msgpack:"prim"`
	Size          uint32        `msgpack:"size"`
	Align         uint32        `msgpack:"align"`
	Params        []string      `msgpack:"params,omitempty"`
	Fields        []wireField   `msgpack:"fields,omitempty"`
	Variants      []wireVariant `msgpack:"variants,omitempty"`
	DiscSize      uint32        `msgpack:"disc_size,omitempty"`
	PayloadOffset uint32        `msgpack:"payload_offset,omitempty"`
	PayloadSize   uint32        `msgpack:"payload_size,omitempty"`
	PayloadAlign  uint32        `msgpack:"payload_align,omitempty"`
	Nonexhaustive bool          `msgpack:"nonexhaustive,omitempty"`
	Fingerprint   string        `msgpack:"fp"`
}

type wireField struct {
	Name   string `msgpack:"name"`
	Offset uint32 `msgpack:"offset"`
	Type   int32  `msgpack:"type"`
}

type wireVariant struct {
	Name         string      `msgpack:"name"`
	Discriminant uint32      `msgpack:"disc"`
	Size         uint32      `msgpack:"size"`
	Fields       []wireField `msgpack:"fields,omitempty"`
}

// EncodeManifest flattens the root's declaration into the wire image. The
// callables in the export table do not travel; only names, kinds and layouts
// do.
func EncodeManifest(r *root.Root) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	layouts := root.ReachableLayouts(r)
	index := make(map[*layout.TypeLayout]int32, len(layouts))
	for i, l := range layouts {
		index[l] = int32(i)
	}

	ref := func(t *layout.TypeLayout) int32 {
		if t == nil {
			return -1
		}
		return index[t]
	}

	wm := wireManifest{
		Schema:  ManifestVersion,
		Module:  r.Name,
		Version: r.Version.String(),
	}

	for _, l := range layouts {
		wt := wireType{
			Name:          l.Name,
			Package:       l.Package,
			Version:       l.PackageVersion,
			Kind:          uint8(l.Kind),
			Prim:          uint8(l.Prim),
			Size:          l.Size,
			Align:         l.Align,
			Params:        l.Params,
			DiscSize:      l.DiscSize,
			PayloadOffset: l.PayloadOffset,
			PayloadSize:   l.PayloadSize,
			PayloadAlign:  l.PayloadAlign,
			Nonexhaustive: l.Nonexhaustive,
			Fingerprint:   l.Fingerprint(),
		}
		for _, f := range l.Fields {
			wt.Fields = append(wt.Fields, wireField{Name: f.Name, Offset: f.Offset, Type: ref(f.Type)})
		}
		for _, v := range l.Variants {
			wv := wireVariant{Name: v.Name, Discriminant: v.Discriminant, Size: v.Size}
			for _, f := range v.Fields {
				wv.Fields = append(wv.Fields, wireField{Name: f.Name, Offset: f.Offset, Type: ref(f.Type)})
			}
			wt.Variants = append(wt.Variants, wv)
		}
		wm.Types = append(wm.Types, wt)
	}

	for i := range r.Exports {
		e := &r.Exports[i]
		we := wireExport{Name: e.Name, Kind: uint8(e.Kind), Result: ref(e.Result)}
		for _, p := range e.Params {
			we.Params = append(we.Params, ref(p))
		}
		wm.Exports = append(wm.Exports, we)
	}

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&wm); err != nil {
		return nil, errors.InvalidManifest("encoding failed", err)
	}
	return buf.Bytes(), nil
}

// DecodeManifest parses the wire image, rebuilds the descriptor graph, and
// verifies every descriptor's fingerprint against the encoded one.
func DecodeManifest(data []byte) (*Manifest, error) {
	var wm wireManifest
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&wm); err != nil {
		return nil, errors.InvalidManifest("malformed manifest", err)
	}
	if wm.Schema != ManifestVersion {
		return nil, errors.InvalidManifest(fmt.Sprintf("schema %d, expected %d", wm.Schema, ManifestVersion), nil)
	}
	if wm.Module == "" {
		return nil, errors.InvalidManifest("manifest names no module", nil)
	}

	version, err := root.ParseVersion(wm.Version)
	if err != nil {
		return nil, errors.InvalidManifest("bad version "+wm.Version, err)
	}

	// Two passes: allocate every descriptor first, then resolve index
	// references into pointers so cycles rebuild correctly.
	layouts := make([]*layout.TypeLayout, len(wm.Types))
	for i := range wm.Types {
		wt := &wm.Types[i]
		layouts[i] = &layout.TypeLayout{
			Name:           wt.Name,
			Package:        wt.Package,
			PackageVersion: wt.Version,
			Kind:           layout.Kind(wt.Kind),
			Prim:           layout.Prim(wt.Prim),
			Size:           wt.Size,
			Align:          wt.Align,
			Params:         wt.Params,
			DiscSize:       wt.DiscSize,
			PayloadOffset:  wt.PayloadOffset,
			PayloadSize:    wt.PayloadSize,
			PayloadAlign:   wt.PayloadAlign,
			Nonexhaustive:  wt.Nonexhaustive,
		}
	}

	resolve := func(ref int32, where string) (*layout.TypeLayout, error) {
		if ref < 0 || int(ref) >= len(layouts) {
			return nil, errors.InvalidManifest(fmt.Sprintf("%s references type %d of %d", where, ref, len(layouts)), nil)
		}
		return layouts[ref], nil
	}

	for i := range wm.Types {
		wt := &wm.Types[i]
		t := layouts[i]
		for _, wf := range wt.Fields {
			ft, err := resolve(wf.Type, t.Name+"."+wf.Name)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, layout.Field{Name: wf.Name, Offset: wf.Offset, Type: ft})
		}
		for _, wv := range wt.Variants {
			v := layout.Variant{Name: wv.Name, Discriminant: wv.Discriminant, Size: wv.Size}
			for _, wf := range wv.Fields {
				ft, err := resolve(wf.Type, t.Name+"::"+wv.Name+"."+wf.Name)
				if err != nil {
					return nil, err
				}
				v.Fields = append(v.Fields, layout.Field{Name: wf.Name, Offset: wf.Offset, Type: ft})
			}
			t.Variants = append(t.Variants, v)
		}
	}

	for i, t := range layouts {
		if got, want := t.Fingerprint(), wm.Types[i].Fingerprint; got != want {
			return nil, errors.InvalidManifest(fmt.Sprintf("fingerprint mismatch for %s: computed %s, declared %s", t.Name, got, want), nil)
		}
	}

	m := &Manifest{ModuleName: wm.Module, Version: version, Layouts: layouts}
	for _, we := range wm.Exports {
		if we.Name == "" {
			return nil, errors.InvalidManifest("export with empty name", nil)
		}
		e := Export{Name: we.Name, Kind: root.ExportKind(we.Kind)}
		if we.Result >= 0 {
			if e.Result, err = resolve(we.Result, "export "+we.Name); err != nil {
				return nil, err
			}
		}
		for _, p := range we.Params {
			pt, err := resolve(p, "export "+we.Name)
			if err != nil {
				return nil, err
			}
			e.Params = append(e.Params, pt)
		}
		m.Exports = append(m.Exports, e)
	}
	return m, nil
}

// Root rebuilds a root.Root declaration from the manifest with the given
// callables bound by export name. Every export must be bound; a manifest is
// a declaration, not an implementation.
func (m *Manifest) Root(funcs map[string]any) (*root.Root, error) {
	r := &root.Root{Name: m.ModuleName, Version: m.Version}
	for _, e := range m.Exports {
		fn, ok := funcs[e.Name]
		if !ok || fn == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "callable for export", e.Name)
		}
		r.Exports = append(r.Exports, root.Export{
			Name:   e.Name,
			Kind:   e.Kind,
			Func:   fn,
			Params: e.Params,
			Result: e.Result,
		})
	}
	return r, nil
}
