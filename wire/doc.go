// Package wire serializes a module root's interface declaration so it can
// cross a process or sandbox boundary as bytes. Descriptors are flattened
// into an index table: every type is assigned an index and references between
// types are encoded as indices, so recursive descriptors encode without
// cycles. The payload is msgpack.
//
// Decoding rebuilds the pointer graph, bounds-checks every index, and
// recomputes each descriptor's fingerprint against the encoded one; any
// disagreement means corruption or tampering and fails with invalid_manifest.
package wire
