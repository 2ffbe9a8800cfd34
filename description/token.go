package description

import (
	"strconv"
	"strings"

	"github.com/wippyai/dyntype/errors"
)

// FieldToken describes a field independently of its declaring type.
type FieldToken struct {
	Name        string
	Modifiers   Modifiers
	Type        TypeRef
	Annotations []Annotation
}

// NewField creates a field token. The annotation slice is copied.
func NewField(name string, t TypeRef, mods Modifiers, annotations ...Annotation) FieldToken {
	return FieldToken{Name: name, Modifiers: mods, Type: t, Annotations: cloneAnnotations(annotations)}
}

// Validate reports construction errors.
func (f FieldToken) Validate() error {
	if f.Name == "" {
		return errors.InvalidDefinition(errors.PhaseBuild, nil, "field name is empty")
	}
	if f.Type == nil {
		return errors.InvalidDefinition(errors.PhaseBuild, []string{f.Name}, "field type is not set")
	}
	if IsVoid(f.Type) {
		return errors.InvalidDefinition(errors.PhaseBuild, []string{f.Name}, "field cannot be void")
	}
	return validateRef(f.Type, []string{f.Name})
}

// WithAnnotations returns a copy with annotations appended.
func (f FieldToken) WithAnnotations(annotations ...Annotation) FieldToken {
	f.Annotations = append(cloneAnnotations(f.Annotations), cloneAnnotations(annotations)...)
	return f
}

// Resolve substitutes Self with identity.
func (f FieldToken) Resolve(identity string) FieldToken {
	f.Type = ResolveType(f.Type, identity)
	f.Annotations = cloneAnnotations(f.Annotations)
	return f
}

// Signature returns the identity-relevant part of the token relative to declaring.
func (f FieldToken) Signature(declaring string) FieldSignature {
	return FieldSignature{Name: f.Name, Type: Erasure(ResolveType(f.Type, declaring)).String()}
}

// FieldSignature identifies a field by name and erased type.
type FieldSignature struct {
	Name string
	Type string
}

// ParameterToken describes a method parameter.
type ParameterToken struct {
	Name        string
	Type        TypeRef
	Modifiers   Modifiers
	Annotations []Annotation
}

// Param creates a parameter token.
func Param(t TypeRef, name string, annotations ...Annotation) ParameterToken {
	return ParameterToken{Name: name, Type: t, Annotations: cloneAnnotations(annotations)}
}

func (p ParameterToken) resolve(identity string) ParameterToken {
	p.Type = ResolveType(p.Type, identity)
	p.Annotations = cloneAnnotations(p.Annotations)
	return p
}

// TypeVariableToken declares a type variable with optional bounds.
type TypeVariableToken struct {
	Symbol string
	Bounds []TypeRef
}

// TypeVar creates a type variable token.
func TypeVar(symbol string, bounds ...TypeRef) TypeVariableToken {
	return TypeVariableToken{Symbol: symbol, Bounds: append([]TypeRef(nil), bounds...)}
}

// Validate reports an empty symbol or a nil or malformed bound.
func (v TypeVariableToken) Validate(path ...string) error {
	if v.Symbol == "" {
		return errors.InvalidDefinition(errors.PhaseBuild, path, "type variable symbol is empty")
	}
	for _, b := range v.Bounds {
		if b == nil || IsVoid(b) {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "type variable "+v.Symbol+" has an invalid bound")
		}
		if err := validateRef(b, path); err != nil {
			return err
		}
	}
	return nil
}

func (v TypeVariableToken) resolve(identity string) TypeVariableToken {
	return TypeVariableToken{Symbol: v.Symbol, Bounds: resolveAll(v.Bounds, identity)}
}

// MethodToken describes a method independently of its declaring type.
type MethodToken struct {
	Name          string
	Modifiers     Modifiers
	TypeVariables []TypeVariableToken
	Return        TypeRef
	Parameters    []ParameterToken
	Exceptions    []TypeRef
	DefaultValue  any
	Receiver      TypeRef
	Annotations   []Annotation
}

// NewMethod creates a method token without parameters.
func NewMethod(name string, returns TypeRef, mods Modifiers) MethodToken {
	return MethodToken{Name: name, Modifiers: mods, Return: returns}
}

// WithParameters returns a copy with params appended.
func (m MethodToken) WithParameters(params ...ParameterToken) MethodToken {
	m.Parameters = append(m.Parameters[:len(m.Parameters):len(m.Parameters)], params...)
	return m
}

// WithExceptions returns a copy with exceptions appended.
func (m MethodToken) WithExceptions(types ...TypeRef) MethodToken {
	m.Exceptions = append(m.Exceptions[:len(m.Exceptions):len(m.Exceptions)], types...)
	return m
}

// WithTypeVariables returns a copy with type variables appended.
func (m MethodToken) WithTypeVariables(vars ...TypeVariableToken) MethodToken {
	m.TypeVariables = append(m.TypeVariables[:len(m.TypeVariables):len(m.TypeVariables)], vars...)
	return m
}

// WithAnnotations returns a copy with annotations appended.
func (m MethodToken) WithAnnotations(annotations ...Annotation) MethodToken {
	m.Annotations = append(cloneAnnotations(m.Annotations), cloneAnnotations(annotations)...)
	return m
}

// Validate reports construction errors.
func (m MethodToken) Validate() error {
	if m.Name == "" {
		return errors.InvalidDefinition(errors.PhaseBuild, nil, "method name is empty")
	}
	path := []string{m.Name}
	if m.Return == nil {
		return errors.InvalidDefinition(errors.PhaseBuild, path, "return type is not set")
	}
	if err := validateRef(m.Return, path); err != nil {
		return err
	}
	for i, p := range m.Parameters {
		if p.Type == nil {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "parameter "+paramName(p, i)+" has no type")
		}
		if IsVoid(p.Type) {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "parameter "+paramName(p, i)+" cannot be void")
		}
		if err := validateRef(p.Type, path); err != nil {
			return err
		}
	}
	for _, e := range m.Exceptions {
		if e == nil || IsVoid(e) {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "invalid exception type")
		}
		if err := validateRef(e, path); err != nil {
			return err
		}
	}
	for _, v := range m.TypeVariables {
		if err := v.Validate(path...); err != nil {
			return err
		}
	}
	return nil
}

// Resolve substitutes Self with identity in every nested reference.
func (m MethodToken) Resolve(identity string) MethodToken {
	out := m
	out.Return = ResolveType(m.Return, identity)
	out.Receiver = ResolveType(m.Receiver, identity)
	out.Exceptions = resolveAll(m.Exceptions, identity)
	if m.Parameters != nil {
		out.Parameters = make([]ParameterToken, len(m.Parameters))
		for i, p := range m.Parameters {
			out.Parameters[i] = p.resolve(identity)
		}
	}
	if m.TypeVariables != nil {
		out.TypeVariables = make([]TypeVariableToken, len(m.TypeVariables))
		for i, v := range m.TypeVariables {
			out.TypeVariables[i] = v.resolve(identity)
		}
	}
	out.Annotations = cloneAnnotations(m.Annotations)
	return out
}

// Signature returns the identity-relevant part of the token relative to declaring.
func (m MethodToken) Signature(declaring string) SignatureToken {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = m.erase(ResolveType(p.Type, declaring))
	}
	return SignatureToken{
		Name:   m.Name,
		Return: m.erase(ResolveType(m.Return, declaring)),
		Params: strings.Join(params, ","),
	}
}

// erase uses the first bound of a method-level variable when one is declared.
func (m MethodToken) erase(ref TypeRef) string {
	if v, ok := ref.(Variable); ok {
		for _, tv := range m.TypeVariables {
			if tv.Symbol == v.Symbol && len(tv.Bounds) > 0 {
				return Erasure(tv.Bounds[0]).String()
			}
		}
	}
	return Erasure(ref).String()
}

// SignatureToken identifies a method by name and erased signature. It is
// comparable and stable under Self substitution.
type SignatureToken struct {
	Name   string
	Return string
	Params string
}

func (s SignatureToken) String() string {
	return s.Qualified() + s.Return
}

// Qualified returns the name with its parameter list. Generated types export
// every method under this name.
func (s SignatureToken) Qualified() string {
	return s.Name + "(" + s.Params + ")"
}

func resolveAll(refs []TypeRef, identity string) []TypeRef {
	if refs == nil {
		return nil
	}
	out := make([]TypeRef, len(refs))
	for i, r := range refs {
		out[i] = ResolveType(r, identity)
	}
	return out
}

func validateRef(ref TypeRef, path []string) error {
	switch r := ref.(type) {
	case Primitive:
		if _, err := r.WIT(); err != nil {
			return errors.New(errors.PhaseBuild, errors.KindInvalidDefinition).
				Path(path...).
				TypeRef(string(r)).
				Cause(err).
				Detail("unknown primitive type").
				Build()
		}
	case Parameterized:
		if r.Raw == nil || IsVoid(r.Raw) {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "parameterized type without raw type")
		}
		if err := validateRef(r.Raw, path); err != nil {
			return err
		}
		for _, a := range r.Args {
			if a == nil {
				return errors.InvalidDefinition(errors.PhaseBuild, path, "nil type argument")
			}
			if err := validateRef(a, path); err != nil {
				return err
			}
		}
	case Array:
		if r.Component == nil || IsVoid(r.Component) {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "invalid array component")
		}
		return validateRef(r.Component, path)
	case Named:
		if r.Name == "" {
			return errors.InvalidDefinition(errors.PhaseBuild, path, "named type without name")
		}
	}
	return nil
}

func paramName(p ParameterToken, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return "#" + strconv.Itoa(i)
}
