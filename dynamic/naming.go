package dynamic

import (
	"fmt"
	"math/rand/v2"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/scaffold"
)

// NamingStrategy names types built without an explicit name.
type NamingStrategy interface {
	Name(it scaffold.InstrumentedType) string
}

// NamingFunc adapts a function to NamingStrategy.
type NamingFunc func(it scaffold.InstrumentedType) string

func (f NamingFunc) Name(it scaffold.InstrumentedType) string { return f(it) }

type suffixingRandom struct {
	suffix string
}

// SuffixingRandom names a type after its supertype (or first interface)
// followed by $suffix$ and a random hex tag.
func SuffixingRandom(suffix string) NamingStrategy {
	return suffixingRandom{suffix: suffix}
}

func (s suffixingRandom) Name(it scaffold.InstrumentedType) string {
	base := "dyntype.Object"
	if super := it.Supertype(); super != nil && !description.Equal(description.Erasure(super), description.Object) {
		base = description.Erasure(super).String()
	} else if ifaces := it.Interfaces(); len(ifaces) > 0 {
		base = description.Erasure(ifaces[0]).String()
	}
	return fmt.Sprintf("%s$%s$%08x", base, s.suffix, rand.Uint32())
}

// Fixed always returns name.
func Fixed(name string) NamingStrategy {
	return NamingFunc(func(scaffold.InstrumentedType) string { return name })
}
