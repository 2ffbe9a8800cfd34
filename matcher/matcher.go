// Package matcher provides element predicates over members and latent
// matchers that only become concrete once the owning type is finalized.
package matcher

import (
	"strings"

	"github.com/wippyai/dyntype/description"
)

// Matcher is a predicate over T.
type Matcher[T any] interface {
	Matches(T) bool
}

// Func adapts a function to Matcher.
type Func[T any] func(T) bool

func (f Func[T]) Matches(v T) bool { return f(v) }

// Any matches everything.
func Any[T any]() Matcher[T] { return Func[T](func(T) bool { return true }) }

// None matches nothing.
func None[T any]() Matcher[T] { return Func[T](func(T) bool { return false }) }

// Not negates m.
func Not[T any](m Matcher[T]) Matcher[T] {
	return Func[T](func(v T) bool { return !m.Matches(v) })
}

// And matches when every matcher matches.
func And[T any](ms ...Matcher[T]) Matcher[T] {
	return Func[T](func(v T) bool {
		for _, m := range ms {
			if !m.Matches(v) {
				return false
			}
		}
		return true
	})
}

// Or matches when any matcher matches.
func Or[T any](ms ...Matcher[T]) Matcher[T] {
	return Func[T](func(v T) bool {
		for _, m := range ms {
			if m.Matches(v) {
				return true
			}
		}
		return false
	})
}

// Named matches members called name.
func Named[T description.Member](name string) Matcher[T] {
	return Func[T](func(v T) bool { return v.MemberName() == name })
}

// NameHasPrefix matches members whose name starts with prefix.
func NameHasPrefix[T description.Member](prefix string) Matcher[T] {
	return Func[T](func(v T) bool { return strings.HasPrefix(v.MemberName(), prefix) })
}

// HasModifiers matches members carrying all bits of mods.
func HasModifiers[T description.Member](mods description.Modifiers) Matcher[T] {
	return Func[T](func(v T) bool { return v.MemberModifiers().Has(mods) })
}

// IsAbstract matches abstract members.
func IsAbstract[T description.Member]() Matcher[T] {
	return HasModifiers[T](description.Abstract)
}

// IsDeclaredBy matches members declared by the named type.
func IsDeclaredBy[T description.Member](typeName string) Matcher[T] {
	return Func[T](func(v T) bool { return v.DeclaringTypeName() == typeName })
}

// TakesArguments matches methods with n parameters.
func TakesArguments(n int) Matcher[description.Method] {
	return Func[description.Method](func(m description.Method) bool { return len(m.Parameters) == n })
}

// Returns matches methods whose erased return type equals ref.
func Returns(ref description.TypeRef) Matcher[description.Method] {
	return Func[description.Method](func(m description.Method) bool {
		return description.Equal(description.Erasure(description.ResolveType(m.Return, m.DeclaringType)), description.Erasure(ref))
	})
}
