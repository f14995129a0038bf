package check

import (
	"fmt"
	"sync"

	"github.com/wippyai/stable-abi/layout"
)

// Checker compares descriptors and memoizes verdicts per fingerprint pair for
// its own lifetime. A loader keeps one Checker per loaded library, since the
// same pair is checked repeatedly when many functions share argument types.
// Safe for concurrent use.
type Checker struct {
	mu   sync.RWMutex
	memo map[pairKey]error
}

type pairKey struct {
	expected string
	actual   string
}

// NewChecker creates a checker with an empty memo.
func NewChecker() *Checker {
	return &Checker{memo: make(map[pairKey]error)}
}

// Check compares two descriptors structurally. It returns nil when every
// reachable node matches, or an *IncompatibilityError carrying the full
// report. Any mismatch is fatal; there is no partial acceptance.
func (c *Checker) Check(expected, actual *layout.TypeLayout) error {
	if expected == nil || actual == nil {
		if expected == actual {
			return nil
		}
		r := &Report{Expected: expected, Actual: actual}
		r.add(nil, MismatchTypeKind, describe(expected), describe(actual))
		return &IncompatibilityError{Report: r}
	}

	key := pairKey{expected.Fingerprint(), actual.Fingerprint()}

	c.mu.RLock()
	verdict, ok := c.memo[key]
	c.mu.RUnlock()
	if ok {
		return verdict
	}

	run := &comparison{
		report:     &Report{Expected: expected, Actual: actual},
		inProgress: make(map[pairKey]bool),
	}
	run.compare(nil, expected, actual)

	verdict = nil
	if !run.report.Empty() {
		verdict = &IncompatibilityError{Report: run.report}
	}

	c.mu.Lock()
	c.memo[key] = verdict
	c.mu.Unlock()
	return verdict
}

// Check is the one-shot form, for callers without a Checker to reuse.
func Check(expected, actual *layout.TypeLayout) error {
	return NewChecker().Check(expected, actual)
}

// comparison is the state of one recursive check run.
type comparison struct {
	report     *Report
	inProgress map[pairKey]bool
}

func (c *comparison) compare(path []string, expected, actual *layout.TypeLayout) {
	if expected == nil || actual == nil {
		if expected != actual {
			c.report.add(path, MismatchTypeKind, describe(expected), describe(actual))
		}
		return
	}

	// Identical structure, nothing to descend into.
	if expected.Fingerprint() == actual.Fingerprint() {
		return
	}

	// Compare by identity before recursing into fields so self-referential
	// graphs terminate: an in-progress pair is assumed compatible here and
	// proven (or refuted) at its first occurrence.
	key := pairKey{expected.Fingerprint(), actual.Fingerprint()}
	if c.inProgress[key] {
		return
	}
	c.inProgress[key] = true
	defer delete(c.inProgress, key)

	if expected.Kind != actual.Kind {
		c.report.add(path, MismatchTypeKind, describe(expected), describe(actual))
		return
	}
	if expected.Name != actual.Name {
		c.report.add(path, MismatchTypeName, expected.Name, actual.Name)
	}
	if expected.Size != actual.Size {
		c.report.add(path, MismatchSize, fmt.Sprintf("%d bytes", expected.Size), fmt.Sprintf("%d bytes", actual.Size))
	}
	if expected.Align != actual.Align {
		c.report.add(path, MismatchAlign, fmt.Sprintf("align %d", expected.Align), fmt.Sprintf("align %d", actual.Align))
	}

	switch expected.Kind {
	case layout.KindPrimitive:
		if expected.Prim != actual.Prim {
			c.report.add(path, MismatchPrimitive, expected.Prim.String(), actual.Prim.String())
		}
	case layout.KindParam:
		// Name equality was already validated above; parameters carry
		// nothing else.
	case layout.KindPointer:
		c.compare(append(path, "*"), expected.Elem(), actual.Elem())
	case layout.KindStruct:
		c.compareParams(path, expected, actual)
		c.compareFields(path, expected.Fields, actual.Fields)
	case layout.KindEnum:
		c.compareEnums(path, expected, actual)
	}
}

func (c *comparison) compareParams(path []string, expected, actual *layout.TypeLayout) {
	if len(expected.Params) != len(actual.Params) {
		c.report.add(path, MismatchTypeParam,
			fmt.Sprintf("%d type parameter(s)", len(expected.Params)),
			fmt.Sprintf("%d type parameter(s)", len(actual.Params)))
		return
	}
	for i, p := range expected.Params {
		if actual.Params[i] != p {
			c.report.add(path, MismatchTypeParam, p, actual.Params[i])
		}
	}
}

// compareFields matches fields by name and validates each committed offset.
// Field order is significant only through offsets: a reordering therefore
// surfaces as an offset mismatch at the first moved field.
func (c *comparison) compareFields(path []string, expected, actual []layout.Field) {
	actualByName := make(map[string]layout.Field, len(actual))
	for _, f := range actual {
		actualByName[f.Name] = f
	}

	for _, ef := range expected {
		af, ok := actualByName[ef.Name]
		if !ok {
			c.report.add(append(path, ef.Name), MismatchFieldMissing, "field present", "field absent")
			continue
		}
		fieldPath := append(path, ef.Name)
		if ef.Offset != af.Offset {
			c.report.add(fieldPath, MismatchFieldOffset,
				fmt.Sprintf("offset %d", ef.Offset), fmt.Sprintf("offset %d", af.Offset))
		}
		c.compare(fieldPath, ef.Type, af.Type)
	}

	expectedByName := make(map[string]bool, len(expected))
	for _, f := range expected {
		expectedByName[f.Name] = true
	}
	for _, af := range actual {
		if !expectedByName[af.Name] {
			c.report.add(append(path, af.Name), MismatchFieldExtra, "field absent", "field present")
		}
	}
}

func (c *comparison) compareEnums(path []string, expected, actual *layout.TypeLayout) {
	if expected.Nonexhaustive != actual.Nonexhaustive {
		c.report.add(path, MismatchExhaustive,
			exhaustiveness(expected), exhaustiveness(actual))
		return
	}
	if expected.DiscSize != actual.DiscSize {
		c.report.add(path, MismatchDiscSize,
			fmt.Sprintf("%d-byte discriminant", expected.DiscSize),
			fmt.Sprintf("%d-byte discriminant", actual.DiscSize))
	}
	if expected.PayloadOffset != actual.PayloadOffset ||
		expected.PayloadSize != actual.PayloadSize ||
		expected.PayloadAlign != actual.PayloadAlign {
		c.report.add(path, MismatchPayload,
			payloadRegion(expected), payloadRegion(actual))
	}

	common := len(expected.Variants)
	if expected.Nonexhaustive {
		// Validate only the variants the older (shorter) side knows; the
		// newer side may carry extra trailing variants.
		if len(actual.Variants) < common {
			common = len(actual.Variants)
		}
	} else if len(expected.Variants) != len(actual.Variants) {
		c.report.add(path, MismatchVariantCount,
			fmt.Sprintf("%d variant(s)", len(expected.Variants)),
			fmt.Sprintf("%d variant(s)", len(actual.Variants)))
		if len(actual.Variants) < common {
			common = len(actual.Variants)
		}
	}

	for i := 0; i < common; i++ {
		ev, av := expected.Variants[i], actual.Variants[i]
		variantPath := append(path, ev.Name)
		if ev.Name != av.Name {
			c.report.add(path, MismatchVariantName, ev.Name, av.Name)
			continue
		}
		if ev.Discriminant != av.Discriminant {
			c.report.add(variantPath, MismatchDiscriminant,
				fmt.Sprintf("discriminant %d", ev.Discriminant),
				fmt.Sprintf("discriminant %d", av.Discriminant))
		}
		c.compareFields(variantPath, ev.Fields, av.Fields)
	}
}

func describe(t *layout.TypeLayout) string {
	if t == nil {
		return "no layout"
	}
	return fmt.Sprintf("%s %s", t.Kind, t.Name)
}

func exhaustiveness(t *layout.TypeLayout) string {
	if t.Nonexhaustive {
		return "nonexhaustive enum"
	}
	return "exhaustive enum"
}

func payloadRegion(t *layout.TypeLayout) string {
	return fmt.Sprintf("payload at %d, %d bytes, align %d", t.PayloadOffset, t.PayloadSize, t.PayloadAlign)
}
