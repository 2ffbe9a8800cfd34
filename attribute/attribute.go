// Package attribute contributes annotations and custom sections to emitted
// types. Appenders run once per type, field and method during emission.
package attribute

import (
	"slices"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
)

// Sink receives what an appender contributes.
type Sink interface {
	Annotate(a description.Annotation) error
	CustomSection(name string, data []byte)
}

// Target is anything carrying annotations.
type Target interface {
	*description.Type | description.Field | description.Method
}

// Appender writes attributes for one target.
type Appender[T Target] interface {
	Apply(sink Sink, target T) error
}

// Factory creates an appender once the instrumented type is finalized.
type Factory[T Target] interface {
	Make(typ *description.Type) Appender[T]
}

// Static is an appender that needs no type context and is its own factory.
type Static[T Target] interface {
	Appender[T]
	Factory[T]
}

type (
	TypeAppender   = Appender[*description.Type]
	FieldAppender  = Appender[description.Field]
	MethodAppender = Appender[description.Method]
	FieldFactory   = Factory[description.Field]
	MethodFactory  = Factory[description.Method]
)

// Func adapts a function to Appender.
type Func[T Target] func(sink Sink, target T) error

func (f Func[T]) Apply(sink Sink, target T) error { return f(sink, target) }

type noOp[T Target] struct{}

func (noOp[T]) Apply(Sink, T) error { return nil }
func (n noOp[T]) Make(*description.Type) Appender[T] { return n }

// NoOp contributes nothing. It is both an appender and a factory.
func NoOp[T Target]() Static[T] {
	return noOp[T]{}
}

type forInstrumented[T Target] struct{}

func (forInstrumented[T]) Apply(sink Sink, target T) error {
	for _, a := range annotationsOf(target) {
		if err := sink.Annotate(a); err != nil {
			return err
		}
	}
	return nil
}

func (f forInstrumented[T]) Make(*description.Type) Appender[T] { return f }

// ForInstrumented copies the annotations declared on the target itself.
func ForInstrumented[T Target]() Static[T] {
	return forInstrumented[T]{}
}

type explicit[T Target] struct {
	annotations []description.Annotation
}

func (e explicit[T]) Apply(sink Sink, _ T) error {
	for _, a := range e.annotations {
		if err := sink.Annotate(a.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (e explicit[T]) Make(*description.Type) Appender[T] { return e }

// Explicit writes the given annotations regardless of the target.
func Explicit[T Target](annotations ...description.Annotation) Static[T] {
	return explicit[T]{annotations: slices.Clone(annotations)}
}

type section[T Target] struct {
	name string
	data []byte
}

func (s section[T]) Apply(sink Sink, _ T) error {
	sink.CustomSection(s.name, slices.Clone(s.data))
	return nil
}

func (s section[T]) Make(*description.Type) Appender[T] { return s }

// Section emits a custom section with fixed content.
func Section[T Target](name string, data []byte) Static[T] {
	return section[T]{name: name, data: slices.Clone(data)}
}

// Compound applies appenders in order.
type Compound[T Target] []Appender[T]

func (c Compound[T]) Apply(sink Sink, target T) error {
	for _, a := range c {
		if err := a.Apply(sink, target); err != nil {
			return err
		}
	}
	return nil
}

// CompoundFactory makes one appender per factory and applies them in order.
type CompoundFactory[T Target] []Factory[T]

func (c CompoundFactory[T]) Make(typ *description.Type) Appender[T] {
	out := make(Compound[T], len(c))
	for i, f := range c {
		out[i] = f.Make(typ)
	}
	return out
}

func annotationsOf[T Target](target T) []description.Annotation {
	switch v := any(target).(type) {
	case *description.Type:
		if v == nil {
			return nil
		}
		return v.Annotations
	case description.Field:
		return v.Annotations
	case description.Method:
		return v.Annotations
	}
	return nil
}

// Collector is a Sink recording everything it receives. An annotation type
// may appear once per target.
type Collector struct {
	Annotations []description.Annotation
	Sections    []wasm.CustomSection
}

func (c *Collector) Annotate(a description.Annotation) error {
	for _, existing := range c.Annotations {
		if existing.Type == a.Type {
			return errors.Duplicate(errors.PhaseEmit, "annotation", a.Type)
		}
	}
	c.Annotations = append(c.Annotations, a)
	return nil
}

func (c *Collector) CustomSection(name string, data []byte) {
	c.Sections = append(c.Sections, wasm.CustomSection{Name: name, Data: data})
}
