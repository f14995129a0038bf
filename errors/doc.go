// Package errors provides structured error types for the stable-abi library.
//
// Errors are categorized by Phase (where in the load/check/call sequence the
// error occurred) and Kind (error category). The Error type includes rich
// context: field path, type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCheck, errors.KindLayoutMismatch).
//		Path("point", "x").
//		TypeName("geometry.Point").
//		Detail("offset 4, expected 0").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolNotFound("./plugin.so", "StableABIRoot")
//	err := errors.VersionIncompatible("plugin", "1.2.0", "2.0.0")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
