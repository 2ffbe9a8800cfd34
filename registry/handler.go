package registry

import (
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/implementation"
)

// HandlerKind tags the Handler variants.
type HandlerKind uint8

const (
	KindImplemented HandlerKind = iota
	KindAbstract
	KindDefaultValue
)

func (k HandlerKind) String() string {
	switch k {
	case KindImplemented:
		return "implemented"
	case KindAbstract:
		return "abstract"
	case KindDefaultValue:
		return "default value"
	}
	return "unknown"
}

// Handler decides how a method is emitted.
type Handler struct {
	kind  HandlerKind
	impl  implementation.Implementation
	value any
}

// Implemented emits a body produced by impl.
func Implemented(impl implementation.Implementation) Handler {
	return Handler{kind: KindImplemented, impl: impl}
}

// Abstract emits no body.
var Abstract = Handler{kind: KindAbstract}

// DefaultValue records an annotation default. The method stays without a body.
func DefaultValue(v any) Handler {
	return Handler{kind: KindDefaultValue, value: v}
}

func (h Handler) Kind() HandlerKind { return h.kind }

// Implementation returns the implementation of an Implemented handler.
func (h Handler) Implementation() implementation.Implementation { return h.impl }

// Value returns the default of a DefaultValue handler.
func (h Handler) Value() any { return h.value }

// DefaultMethodHandler is the handler for methods no entry claims.
func DefaultMethodHandler(typ *description.Type, m description.Method) Handler {
	if m.IsAbstract() || (typ != nil && typ.IsInterface()) {
		return Abstract
	}
	return Implemented(implementation.PassThrough)
}
