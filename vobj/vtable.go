package vobj

import (
	"github.com/wippyai/stable-abi/errors"
	"github.com/wippyai/stable-abi/layout"
)

// Method is one dispatchable entry of a virtual table. The data value is
// passed as the implicit first argument; Params and Result record the
// committed layouts of the remaining arguments for load-time checking.
type Method struct {
	Func   func(data any, args []any) ([]any, error)
	Result *layout.TypeLayout
	Name   string
	Params []*layout.TypeLayout
}

// VTable is the explicit function table of a stable virtual object. Its shape
// is fixed when both sides compile against the same interface declaration:
// a destructor entry is mandatory, a clone entry is optional, and method
// order is significant.
type VTable struct {
	Drop    func(data any)
	Clone   func(data any) any
	Layout  *layout.TypeLayout
	TypeID  string
	Methods []Method

	byName map[string]int
}

// MethodByName returns the named table entry.
func (vt *VTable) MethodByName(name string) (*Method, bool) {
	if i, ok := vt.byName[name]; ok {
		return &vt.Methods[i], true
	}
	// Tables assembled without the builder have no index.
	for i := range vt.Methods {
		if vt.Methods[i].Name == name {
			return &vt.Methods[i], true
		}
	}
	return nil, false
}

// Cloneable reports whether the table carries a clone entry. Its absence
// makes objects move-only at the API level, not as a convention.
func (vt *VTable) Cloneable() bool {
	return vt.Clone != nil
}

// typeName names the table's data type for diagnostics. Tables assembled
// without the builder may carry no descriptor.
func (vt *VTable) typeName() string {
	if vt.Layout != nil {
		return vt.Layout.Name
	}
	if vt.TypeID != "" {
		return vt.TypeID
	}
	return "<undescribed>"
}

// VTableBuilder assembles a virtual table against a data descriptor.
type VTableBuilder struct {
	vt  VTable
	err error
}

// NewVTable starts a table for values described by desc. The descriptor's
// fingerprint becomes the table's type identity.
func NewVTable(desc *layout.TypeLayout) *VTableBuilder {
	b := &VTableBuilder{}
	if desc == nil {
		b.err = errors.InvalidInput(errors.PhaseRegister, "virtual table requires a data descriptor")
		return b
	}
	b.vt.Layout = desc
	b.vt.TypeID = desc.Fingerprint()
	b.vt.byName = make(map[string]int)
	return b
}

// WithDrop sets the mandatory destructor entry.
func (b *VTableBuilder) WithDrop(drop func(data any)) *VTableBuilder {
	b.vt.Drop = drop
	return b
}

// WithClone sets the optional clone entry.
func (b *VTableBuilder) WithClone(clone func(data any) any) *VTableBuilder {
	b.vt.Clone = clone
	return b
}

// Method appends a dispatchable entry. Order is significant: it is part of
// the committed table shape.
func (b *VTableBuilder) Method(m Method) *VTableBuilder {
	if b.err != nil {
		return b
	}
	if m.Name == "" {
		b.err = errors.InvalidInput(errors.PhaseRegister, "method has no name")
		return b
	}
	if m.Func == nil {
		b.err = errors.InvalidInput(errors.PhaseRegister, "method "+m.Name+" has no function")
		return b
	}
	if _, dup := b.vt.byName[m.Name]; dup {
		b.err = errors.Duplicate("method", m.Name)
		return b
	}
	b.vt.byName[m.Name] = len(b.vt.Methods)
	b.vt.Methods = append(b.vt.Methods, m)
	return b
}

// Build validates and returns the finished table.
func (b *VTableBuilder) Build() (*VTable, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.vt.Drop == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "virtual table requires a destructor entry")
	}
	vt := b.vt
	return &vt, nil
}
