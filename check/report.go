package check

import (
	"fmt"
	"strings"

	"github.com/wippyai/stable-abi/layout"
)

// MismatchKind classifies one point of disagreement between two descriptors.
type MismatchKind string

const (
	MismatchTypeKind     MismatchKind = "type_kind"
	MismatchTypeName     MismatchKind = "type_name"
	MismatchPrimitive    MismatchKind = "primitive"
	MismatchSize         MismatchKind = "size"
	MismatchAlign        MismatchKind = "align"
	MismatchTypeParam    MismatchKind = "type_param"
	MismatchFieldMissing MismatchKind = "missing_field"
	MismatchFieldExtra   MismatchKind = "extra_field"
	MismatchFieldOffset  MismatchKind = "field_offset"
	MismatchVariantCount MismatchKind = "variant_count"
	MismatchVariantName  MismatchKind = "variant_name"
	MismatchDiscriminant MismatchKind = "discriminant"
	MismatchDiscSize     MismatchKind = "discriminant_size"
	MismatchPayload      MismatchKind = "payload_region"
	MismatchExhaustive   MismatchKind = "exhaustiveness"
)

// Mismatch is one annotated node of the incompatibility report.
type Mismatch struct {
	Kind     MismatchKind
	Expected string
	Actual   string
	Path     []string
}

func (m Mismatch) String() string {
	loc := strings.Join(m.Path, ".")
	if loc == "" {
		loc = "<root>"
	}
	return fmt.Sprintf("%s at %s: expected %s, found %s", m.Kind, loc, m.Expected, m.Actual)
}

// Report is the structured diff produced when two layouts fail to match. It
// mirrors the compared descriptors and records every node that disagreed.
// Reports are transient: surfaced to the caller, then discarded.
type Report struct {
	Expected   *layout.TypeLayout
	Actual     *layout.TypeLayout
	Mismatches []Mismatch
}

// Empty reports whether no mismatch was found.
func (r *Report) Empty() bool {
	return len(r.Mismatches) == 0
}

func (r *Report) add(path []string, kind MismatchKind, expected, actual string) {
	r.Mismatches = append(r.Mismatches, Mismatch{
		Kind:     kind,
		Expected: expected,
		Actual:   actual,
		// Paths share backing arrays while descending; copy on record.
		Path: append([]string(nil), path...),
	})
}

// String renders the report grouped by location.
func (r *Report) String() string {
	if r.Empty() {
		return fmt.Sprintf("layouts of %s are compatible", r.Expected.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "incompatible layouts for %s (%d mismatch(es)):\n", r.Expected.Name, len(r.Mismatches))

	byLoc := make(map[string][]Mismatch)
	var order []string
	for _, m := range r.Mismatches {
		loc := strings.Join(m.Path, ".")
		if loc == "" {
			loc = "<root>"
		}
		if _, ok := byLoc[loc]; !ok {
			order = append(order, loc)
		}
		byLoc[loc] = append(byLoc[loc], m)
	}

	for _, loc := range order {
		b.WriteString("\n  ")
		b.WriteString(loc)
		b.WriteString(":\n")
		for _, m := range byLoc[loc] {
			fmt.Fprintf(&b, "    - %s: expected %s, found %s\n", m.Kind, m.Expected, m.Actual)
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// IncompatibilityError is returned by Check when two layouts disagree.
type IncompatibilityError struct {
	Report *Report
}

func (e *IncompatibilityError) Error() string {
	return e.Report.String()
}

// Is reports whether target matches this error type
func (e *IncompatibilityError) Is(target error) bool {
	_, ok := target.(*IncompatibilityError)
	return ok
}
