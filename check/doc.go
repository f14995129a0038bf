// Package check compares two layout descriptors structurally and reports
// every point where they disagree.
//
// Check is the single safety gate of the library: a loader must refuse to use
// any function whose argument or result layouts fail it. There is no partial
// acceptance; one mismatch anywhere in the type graph is fatal, because an
// incorrect layout assumption corrupts memory the moment a mismatched field
// is accessed.
//
// Struct fields are matched by name and validated by committed offset, so a
// reordering surfaces as an offset mismatch at the first moved field rather
// than as a cosmetic difference. Exhaustive enums must declare identical
// variant sets; nonexhaustive enums validate the variants known to the older
// of the two sides and tolerate trailing additions on the newer one.
//
// A Checker memoizes verdicts per descriptor-fingerprint pair and is safe for
// concurrent use. Comparison of self-referential type graphs terminates by
// treating an in-progress pair as compatible until proven otherwise.
package check
