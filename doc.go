// Package stableabi provides safe, checked typed calls between independently
// compiled binary modules.
//
// Two compilations of the same interface have no guaranteed binary layout
// agreement. This library removes the ambiguity by committing every layout
// decision explicitly at interface-declaration time, shipping a
// self-describing descriptor for each boundary type, and structurally
// verifying both sides' descriptors before a single cross-boundary call is
// made.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	stableabi/           Root package with shared interfaces
//	├── layout/          Self-describing type descriptors with committed offsets
//	├── check/           Recursive structural compatibility checker
//	├── vobj/            Stable virtual objects: data + explicit vtable
//	├── variant/         Forward-compatible enum values with opaque payloads
//	├── root/            Versioned module root and export table
//	├── wire/            Manifest codec for declarations crossing a boundary
//	├── host/            Library loading, version gate, layout gate
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Declare the interface once, on both sides:
//
//	point, _ := layout.NewStruct("geometry.Point").
//	    Field("x", layout.U32).
//	    Field("y", layout.U32).
//	    Build()
//
// The host loads a library and checks it before use:
//
//	loader := host.NewLoader(host.NewMemoryBackend(), host.Options{})
//	lib, err := loader.Load(ctx, "libgeometry.so", expected)
//	if err != nil {
//	    log.Fatal(err) // incompatible layouts never get this far
//	}
//	root, _ := lib.Root()
//
// Every descriptor reachable from the library's export table is compared
// structurally against the host's expectation; any disagreement rejects the
// whole library with a field-by-field incompatibility report.
package stableabi
