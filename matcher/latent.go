package matcher

import (
	"github.com/wippyai/dyntype/description"
)

// Latent produces a matcher once the finalized type is known. Resolve must
// be pure: the same type always yields an equivalent matcher.
type Latent[T any] interface {
	Resolve(t *description.Type) Matcher[T]
}

// LatentFunc adapts a function to Latent.
type LatentFunc[T any] func(t *description.Type) Matcher[T]

func (f LatentFunc[T]) Resolve(t *description.Type) Matcher[T] { return f(t) }

type resolved[T any] struct {
	m Matcher[T]
}

func (r resolved[T]) Resolve(*description.Type) Matcher[T] { return r.m }

// Resolved wraps a matcher that does not depend on the type.
func Resolved[T any](m Matcher[T]) Latent[T] {
	return resolved[T]{m: m}
}

// ForFieldToken matches the field described by token once Self is resolved.
func ForFieldToken(token description.FieldToken) Latent[description.Field] {
	return LatentFunc[description.Field](func(t *description.Type) Matcher[description.Field] {
		want := token.Signature(t.Name)
		return Func[description.Field](func(f description.Field) bool {
			return f.Signature() == want
		})
	})
}

// ForMethodToken matches the method described by token once Self is resolved.
func ForMethodToken(token description.MethodToken) Latent[description.Method] {
	return LatentFunc[description.Method](func(t *description.Type) Matcher[description.Method] {
		want := token.Resolve(t.Name).Signature(t.Name)
		return Func[description.Method](func(m description.Method) bool {
			return m.Signature() == want
		})
	})
}

// ForSelfDeclared matches members declared (or, if declared is false, not
// declared) by the type being built.
func ForSelfDeclared[T description.Member](declared bool) Latent[T] {
	return LatentFunc[T](func(t *description.Type) Matcher[T] {
		return Func[T](func(v T) bool {
			return (v.DeclaringTypeName() == t.Name) == declared
		})
	})
}

// Conjunction matches when every latent matcher matches.
func Conjunction[T any](ls ...Latent[T]) Latent[T] {
	return LatentFunc[T](func(t *description.Type) Matcher[T] {
		ms := make([]Matcher[T], len(ls))
		for i, l := range ls {
			ms[i] = l.Resolve(t)
		}
		return And(ms...)
	})
}

// Disjunction matches when any latent matcher matches.
func Disjunction[T any](ls ...Latent[T]) Latent[T] {
	return LatentFunc[T](func(t *description.Type) Matcher[T] {
		ms := make([]Matcher[T], len(ls))
		for i, l := range ls {
			ms[i] = l.Resolve(t)
		}
		return Or(ms...)
	})
}
