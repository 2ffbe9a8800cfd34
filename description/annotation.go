package description

import "maps"

// Annotation is a typed set of named values attached to a type or member.
type Annotation struct {
	Type   string
	Values map[string]any
}

// Annotate creates an annotation from alternating name/value pairs.
// A trailing name without a value is ignored.
func Annotate(typ string, kv ...any) Annotation {
	a := Annotation{Type: typ}
	for i := 0; i+1 < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			continue
		}
		if a.Values == nil {
			a.Values = make(map[string]any)
		}
		a.Values[name] = kv[i+1]
	}
	return a
}

// Clone returns a deep copy of the value map.
func (a Annotation) Clone() Annotation {
	return Annotation{Type: a.Type, Values: maps.Clone(a.Values)}
}

func cloneAnnotations(in []Annotation) []Annotation {
	if len(in) == 0 {
		return nil
	}
	out := make([]Annotation, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
