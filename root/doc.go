// Package root defines the versioned module root: the single value a dynamic
// library exports. It carries the library's name, its interface version
// triple, and an ordered export table whose entries record committed layouts
// for every parameter and result.
//
// The version triple gates loading before any layout is inspected: a major
// mismatch rejects the library outright, while minor and patch follow the
// additive rule: the library may declare more than the host expects, never
// less. CheckAdditive enforces the same rule between two revisions of the
// same root.
package root
