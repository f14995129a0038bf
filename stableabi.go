package stableabi

import (
	"github.com/wippyai/stable-abi/layout"
)

// DefaultRootSymbol is the symbol name libraries export their root
// constructor under. It mirrors host.DefaultRootSymbol so generated
// libraries need not import the host package.
const DefaultRootSymbol = "StableABIRoot"

// TypeDescriber is implemented by boundary types that can produce their own
// committed layout descriptor. Code generators emit one implementation per
// interface type; hand-written types may implement it directly.
type TypeDescriber interface {
	TypeLayout() *layout.TypeLayout
}

// Describe returns the descriptors for a set of boundary values.
func Describe(values ...TypeDescriber) []*layout.TypeLayout {
	out := make([]*layout.TypeLayout, len(values))
	for i, v := range values {
		out[i] = v.TypeLayout()
	}
	return out
}
