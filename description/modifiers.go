package description

import "strings"

// Modifiers is a set of member and type modifier bits.
type Modifiers uint32

const (
	Public Modifiers = 1 << iota
	Private
	Protected
	Static
	Final
	Abstract
	Synthetic
	Interface
	AnnotationType
	Enum
	Varargs
)

var modifierNames = []struct {
	m    Modifiers
	name string
}{
	{Public, "public"},
	{Private, "private"},
	{Protected, "protected"},
	{Static, "static"},
	{Final, "final"},
	{Abstract, "abstract"},
	{Synthetic, "synthetic"},
	{Interface, "interface"},
	{AnnotationType, "annotation"},
	{Enum, "enum"},
	{Varargs, "varargs"},
}

// Has reports whether all bits of o are set.
func (m Modifiers) Has(o Modifiers) bool { return m&o == o }

// With returns m with the bits of o set.
func (m Modifiers) With(o Modifiers) Modifiers { return m | o }

// Without returns m with the bits of o cleared.
func (m Modifiers) Without(o Modifiers) Modifiers { return m &^ o }

func (m Modifiers) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m.Has(mn.m) {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, " ")
}

// Names returns the set modifier names in canonical order.
func (m Modifiers) Names() []string {
	if m == 0 {
		return nil
	}
	return strings.Fields(m.String())
}

// ParseModifiers parses names produced by Names.
func ParseModifiers(names ...string) (Modifiers, bool) {
	var m Modifiers
	for _, n := range names {
		found := false
		for _, mn := range modifierNames {
			if mn.name == n {
				m |= mn.m
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return m, true
}
