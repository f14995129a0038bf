package vobj

import (
	"sync"

	"github.com/wippyai/stable-abi/errors"
)

type objectState uint8

const (
	stateLive objectState = iota
	stateMoved
	stateDropped
)

// Object pairs an opaque data value with its virtual table. The consumer may
// invoke any table entry but must never reinterpret the data directly; only
// the table's own entries know its true type.
//
// Objects are move-only. Drop runs the destructor exactly once; a second drop
// and any use after a move are reported as errors instead of reaching the
// table again.
type Object struct {
	data  any
	vt    *VTable
	state objectState
	mu    sync.Mutex
}

// New wraps data in its virtual table. The table must carry a destructor
// entry.
func New(data any, vt *VTable) (*Object, error) {
	if vt == nil || vt.Drop == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "virtual table requires a destructor entry")
	}
	return &Object{data: data, vt: vt}, nil
}

// TypeID returns the table's type identity.
func (o *Object) TypeID() string {
	return o.vt.TypeID
}

// Cloneable reports whether the table carries a clone entry.
func (o *Object) Cloneable() bool {
	return o.vt.Cloneable()
}

// Live reports whether the object still owns its value.
func (o *Object) Live() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == stateLive
}

// Move transfers ownership into a fresh object and poisons the source. The
// source can no longer be called, cloned, or dropped; the destructor
// obligation travels with the returned object.
func (o *Object) Move() (*Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.usable(); err != nil {
		return nil, err
	}

	moved := &Object{data: o.data, vt: o.vt}
	o.data = nil
	o.state = stateMoved
	return moved, nil
}

// Drop invokes the table's destructor entry. Exactly one drop is legal across
// the object's whole lifetime; the second returns a double_drop error without
// reaching the destructor.
func (o *Object) Drop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case stateDropped:
		return errors.DoubleDrop(o.vt.typeName())
	case stateMoved:
		return errors.UseAfterMove(o.vt.typeName())
	}

	o.vt.Drop(o.data)
	o.data = nil
	o.state = stateDropped
	return nil
}

// Clone duplicates the underlying value through the table's clone entry. A
// table without one makes the object move-only.
func (o *Object) Clone() (*Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.usable(); err != nil {
		return nil, err
	}
	if o.vt.Clone == nil {
		return nil, errors.NotCloneable(o.vt.typeName())
	}
	return &Object{data: o.vt.Clone(o.data), vt: o.vt}, nil
}

// Call dispatches the named table entry with the data value as implicit
// first argument.
func (o *Object) Call(name string, args ...any) ([]any, error) {
	o.mu.Lock()
	if err := o.usable(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	m, ok := o.vt.MethodByName(name)
	if !ok {
		o.mu.Unlock()
		return nil, errors.NotFound(errors.PhaseCall, "method", name)
	}
	data := o.data
	o.mu.Unlock()

	// Dispatch outside the lock; calls carry no implicit locking beyond
	// whatever the entry itself documents.
	return m.Func(data, args)
}

func (o *Object) usable() error {
	switch o.state {
	case stateMoved:
		return errors.UseAfterMove(o.vt.typeName())
	case stateDropped:
		return errors.DoubleDrop(o.vt.typeName())
	}
	return nil
}
