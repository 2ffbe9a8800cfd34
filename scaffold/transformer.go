package scaffold

import (
	"github.com/wippyai/dyntype/description"
)

// Transformer rewrites a member after matching, before emission. It must
// not change the member's signature.
type Transformer[T any] interface {
	Transform(t *description.Type, target T) T
}

type noOpTransformer[T any] struct{}

func (noOpTransformer[T]) Transform(_ *description.Type, target T) T { return target }

// NoOpTransformer returns target unchanged.
func NoOpTransformer[T any]() Transformer[T] { return noOpTransformer[T]{} }

type modifierTransformer[T description.Field | description.Method] struct {
	set, clear description.Modifiers
}

func (m modifierTransformer[T]) Transform(_ *description.Type, target T) T {
	switch v := any(target).(type) {
	case description.Field:
		v.Modifiers = v.Modifiers.Without(m.clear).With(m.set)
		return any(v).(T)
	case description.Method:
		v.Modifiers = v.Modifiers.Without(m.clear).With(m.set)
		return any(v).(T)
	}
	return target
}

// ModifierTransformer clears then sets modifier bits.
func ModifierTransformer[T description.Field | description.Method](set, clear description.Modifiers) Transformer[T] {
	return modifierTransformer[T]{set: set, clear: clear}
}

// CompoundTransformer applies transformers in order.
func CompoundTransformer[T any](ts ...Transformer[T]) Transformer[T] {
	return compoundTransformer[T](ts)
}

type compoundTransformer[T any] []Transformer[T]

func (c compoundTransformer[T]) Transform(t *description.Type, target T) T {
	for _, tr := range c {
		target = tr.Transform(t, target)
	}
	return target
}
