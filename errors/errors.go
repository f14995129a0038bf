package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the load/check/call sequence the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // locating and mapping a library
	PhaseVersion  Phase = "version"  // version triple gate
	PhaseCheck    Phase = "check"    // layout compatibility checking
	PhaseRegister Phase = "register" // descriptor registration
	PhaseEncode   Phase = "encode"   // value to committed byte layout
	PhaseDecode   Phase = "decode"   // committed byte layout to value
	PhaseCall     Phase = "call"     // cross-boundary dispatch
)

// Kind categorizes the error
type Kind string

const (
	KindLayoutMismatch      Kind = "layout_mismatch"
	KindVersionIncompatible Kind = "version_incompatible"
	KindSymbolNotFound      Kind = "symbol_not_found"
	KindLoadFailure         Kind = "load_failure"
	KindUnknownVariant      Kind = "unknown_variant"
	KindDoubleDrop          Kind = "double_drop"
	KindUseAfterMove        Kind = "use_after_move"
	KindNotCloneable        Kind = "not_cloneable"
	KindInvalidManifest     Kind = "invalid_manifest"
	KindInvalidLayout       Kind = "invalid_layout"
	KindDuplicate           Kind = "duplicate"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindOutOfBounds         Kind = "out_of_bounds"
	KindUnsupported         Kind = "unsupported"
	KindOverflow            Kind = "overflow"
	KindRejected            Kind = "rejected"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.TypeName != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeName)
	}

	if e.Detail != "" {
		if e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// TypeName sets the offending type's name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// LayoutMismatch creates a layout mismatch error carrying the incompatibility
// report as its cause.
func LayoutMismatch(typeName string, report error) *Error {
	return &Error{
		Phase:    PhaseCheck,
		Kind:     KindLayoutMismatch,
		TypeName: typeName,
		Cause:    report,
	}
}

// VersionIncompatible creates a major-version rejection error
func VersionIncompatible(module, host, lib string) *Error {
	return &Error{
		Phase:  PhaseVersion,
		Kind:   KindVersionIncompatible,
		Detail: fmt.Sprintf("module %q: host expects %s, library declares %s", module, host, lib),
	}
}

// SymbolNotFound creates an error for a missing module root symbol
func SymbolNotFound(path, symbol string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSymbolNotFound,
		Detail: fmt.Sprintf("symbol %q not found in %q", symbol, path),
	}
}

// LoadFailed creates an OS-level mapping failure error
func LoadFailed(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Detail: fmt.Sprintf("load %q", path),
		Cause:  cause,
	}
}

// UnknownVariant creates an error for a discriminant with no declared variant.
// Decoding an unrecognized discriminant is not an error (it yields an Unknown
// value); this is for callers that name a variant the descriptor lacks.
func UnknownVariant(typeName string, detail string) *Error {
	return &Error{
		Phase:    PhaseEncode,
		Kind:     KindUnknownVariant,
		TypeName: typeName,
		Detail:   detail,
	}
}

// DoubleDrop creates an error for a second destructor invocation
func DoubleDrop(typeName string) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindDoubleDrop,
		TypeName: typeName,
		Detail:   "destructor already invoked",
	}
}

// UseAfterMove creates an error for using an object whose ownership was transferred
func UseAfterMove(typeName string) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindUseAfterMove,
		TypeName: typeName,
		Detail:   "ownership was moved out of this object",
	}
}

// NotCloneable creates an error for cloning a move-only object
func NotCloneable(typeName string) *Error {
	return &Error{
		Phase:    PhaseCall,
		Kind:     KindNotCloneable,
		TypeName: typeName,
		Detail:   "vtable has no clone entry",
	}
}

// InvalidManifest creates an error for a malformed or tampered wire manifest
func InvalidManifest(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidManifest,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidLayout creates an error for a descriptor that cannot be constructed
func InvalidLayout(typeName, detail string) *Error {
	return &Error{
		Phase:    PhaseRegister,
		Kind:     KindInvalidLayout,
		TypeName: typeName,
		Detail:   detail,
	}
}

// Duplicate creates an error for conflicting re-registration
func Duplicate(what, name string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already registered with a different layout", what, name),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, offset, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("offset %d out of bounds (payload %d bytes)", offset, length),
		Value:  offset,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		TypeName: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// Rejected creates the terminal rejection error for a loaded library
func Rejected(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindRejected,
		Detail: fmt.Sprintf("library %q rejected", path),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
