// Package host loads dynamic libraries and gates them behind version and
// layout checks before any of their exports can be called.
//
// A library goes through a strict state machine: Unloaded, then
// LoadedUnchecked once its root constructor has produced a declaration, then
// either CheckedReady or Rejected. Both end states are terminal; a rejected
// library's backend handle is released and nothing from it is ever invoked.
// The order of the gates is fixed: symbol lookup, constructor call, version
// triple, then a structural layout check of every descriptor reachable from
// the export table.
//
// Backends supply the OS-level mechanics. MemoryBackend serves registered
// constructors for tests and embedders, PluginBackend opens Go plugin
// shared objects, and WASMBackend treats a WebAssembly module as the
// library, reading its declaration from a manifest in guest memory.
package host
