// Package vobj implements the stable virtual object: a boundary-safe
// substitute for a natively dispatched value, pairing an opaque data value
// with an explicit table of function pointers whose shape is committed at
// interface-declaration time.
//
// Objects are move-only. Ownership transfers with Move, the destructor in the
// table runs exactly once through Drop, and duplication exists only when the
// table carries an explicit clone entry. The Table type tracks live objects by
// handle and drops every survivor on Close, logging leaks.
package vobj
