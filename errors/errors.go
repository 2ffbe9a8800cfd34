package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the build or load lifecycle the error occurred
type Phase string

const (
	PhaseBuild      Phase = "build"      // builder calls
	PhaseCompile    Phase = "compile"    // make(): finalization and registry compilation
	PhaseEmit       Phase = "emit"       // binary emission
	PhaseLoad       Phase = "load"       // defining types in a namespace
	PhaseInitialize Phase = "initialize" // type initialization
	PhaseDispatch   Phase = "dispatch"   // nexus registration and dispatch
	PhasePersist    Phase = "persist"    // file output
	PhaseConfig     Phase = "config"     // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidDefinition     Kind = "invalid_definition"
	KindUnresolvedPlaceholder Kind = "unresolved_placeholder"
	KindHandlerMismatch       Kind = "handler_mismatch"
	KindDuplicate             Kind = "duplicate"
	KindNotFound              Kind = "not_found"
	KindDispatcherUnavailable Kind = "dispatcher_unavailable"
	KindLiveInitializers      Kind = "live_initializers"
	KindAlreadyDefined        Kind = "already_defined"
	KindUnsupported           Kind = "unsupported"
	KindIO                    Kind = "io"
	KindInstantiation         Kind = "instantiation"
	KindInvalidInput          Kind = "invalid_input"
)

// Sentinels for errors.Is checks. They match any phase.
var (
	ErrDispatcherUnavailable = &Error{Kind: KindDispatcherUnavailable}
	ErrLiveInitializers      = &Error{Kind: KindLiveInitializers}
	ErrHandlerMismatch       = &Error{Kind: KindHandlerMismatch}
	ErrInvalidDefinition     = &Error{Kind: KindInvalidDefinition}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrAlreadyDefined        = &Error{Kind: KindAlreadyDefined}
	ErrDuplicate             = &Error{Kind: KindDuplicate}
)

// Error is the structured error type used throughout dyntype
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	TypeRef string
	Detail  string
	Path    []string
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

	if e.TypeRef != "" {
		b.WriteString(": type ")
		b.WriteString(e.TypeRef)
	}

	if e.Detail != "" {
		if e.TypeRef != "" {
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

// Is reports whether target matches this error.
// A target without a phase matches on kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// TypeRef sets the offending type reference
func (b *Builder) TypeRef(t string) *Builder {
	b.err.TypeRef = t
	return b
}

// Value sets the problematic value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets additional context
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
	e := b.err
	return &e
}

// InvalidDefinition reports a malformed member or type definition
func InvalidDefinition(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidDefinition,
		Path:   path,
		Detail: detail,
	}
}

// UnresolvedPlaceholder reports a self-type placeholder that could not be substituted
func UnresolvedPlaceholder(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedPlaceholder,
		Path:   path,
		Detail: "self-type placeholder used before the type identity is known",
	}
}

// HandlerMismatch reports a handler incompatible with the member it was assigned to
func HandlerMismatch(path []string, handler, detail string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindHandlerMismatch,
		Path:   path,
		Value:  handler,
		Detail: fmt.Sprintf("%s handler: %s", handler, detail),
	}
}

// Duplicate reports a member declared twice
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Path:   []string{name},
		Detail: fmt.Sprintf("%s %q declared more than once", what, name),
	}
}

// NotFound creates a not found error
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

// Unsupported reports a construct the emitter or loader cannot express
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what + " is not supported",
	}
}

// DispatcherUnavailable reports that the nexus cannot serve a namespace
func DispatcherUnavailable(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindDispatcherUnavailable,
		Detail: detail,
		Cause:  cause,
	}
}

// LiveInitializers reports live initializers under a strategy that cannot run them
func LiveInitializers(typeName string) *Error {
	return &Error{
		Phase:  PhaseInitialize,
		Kind:   KindLiveInitializers,
		Path:   []string{typeName},
		Detail: "type has live initializers but initializer dispatch is disabled",
	}
}

// AlreadyDefined reports a type name already present in a namespace
func AlreadyDefined(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindAlreadyDefined,
		Path:   []string{name},
		Detail: "type already defined in namespace",
	}
}

// Instantiation wraps a module instantiation failure
func Instantiation(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseInitialize,
		Kind:   KindInstantiation,
		Path:   []string{name},
		Detail: "failed to initialize type",
		Cause:  cause,
	}
}

// IO wraps a filesystem failure
func IO(phase Phase, op string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: op,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}
