package scaffold

import (
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/plist"
)

// InstrumentedType accumulates the definition of a type. The zero value is
// an unnamed, public-less type extending Object.
type InstrumentedType struct {
	name        string
	modifiers   description.Modifiers
	supertype   description.TypeRef
	interfaces  plist.List[description.TypeRef]
	typeVars    plist.List[description.TypeVariableToken]
	fields      plist.List[description.FieldToken]
	methods     plist.List[description.MethodToken]
	annotations plist.List[description.Annotation]
	initializer TypeInitializer
	loaded      plist.List[LoadedTypeInitializer]
}

// NewInstrumentedType starts a descriptor. An empty name is filled in at
// finalization.
func NewInstrumentedType(name string, mods description.Modifiers, supertype description.TypeRef) InstrumentedType {
	return InstrumentedType{name: name, modifiers: mods, supertype: supertype}
}

func (it InstrumentedType) Name() string { return it.name }
func (it InstrumentedType) Modifiers() description.Modifiers { return it.modifiers }
func (it InstrumentedType) Supertype() description.TypeRef { return it.supertype }

func (it InstrumentedType) Interfaces() []description.TypeRef { return it.interfaces.Slice() }

func (it InstrumentedType) TypeVariables() []description.TypeVariableToken {
	return it.typeVars.Slice()
}

// Fields returns the declared field tokens in declaration order.
func (it InstrumentedType) Fields() []description.FieldToken { return it.fields.Slice() }

// Methods returns the declared method tokens in declaration order.
func (it InstrumentedType) Methods() []description.MethodToken { return it.methods.Slice() }

func (it InstrumentedType) Annotations() []description.Annotation { return it.annotations.Slice() }

// TypeInitializer returns the initializer blocks.
func (it InstrumentedType) TypeInitializer() TypeInitializer { return it.initializer }

// LoadedTypeInitializer returns every registered runtime initializer as one.
func (it InstrumentedType) LoadedTypeInitializer() LoadedTypeInitializer {
	return NewCompound(it.loaded.Slice()...)
}

// HasField reports whether a field named name is declared.
func (it InstrumentedType) HasField(name string) bool {
	found := false
	it.fields.Reverse(func(f description.FieldToken) bool {
		found = f.Name == name
		return !found
	})
	return found
}

func (it InstrumentedType) WithName(name string) InstrumentedType {
	it.name = name
	return it
}

func (it InstrumentedType) WithModifiers(mods description.Modifiers) InstrumentedType {
	it.modifiers = mods
	return it
}

func (it InstrumentedType) WithSupertype(ref description.TypeRef) InstrumentedType {
	it.supertype = ref
	return it
}

func (it InstrumentedType) WithInterfaces(refs ...description.TypeRef) InstrumentedType {
	for _, r := range refs {
		it.interfaces = it.interfaces.Append(r)
	}
	return it
}

func (it InstrumentedType) WithTypeVariable(v description.TypeVariableToken) InstrumentedType {
	it.typeVars = it.typeVars.Append(v)
	return it
}

func (it InstrumentedType) WithField(token description.FieldToken) InstrumentedType {
	it.fields = it.fields.Append(token)
	return it
}

func (it InstrumentedType) WithMethod(token description.MethodToken) InstrumentedType {
	it.methods = it.methods.Append(token)
	return it
}

func (it InstrumentedType) WithAnnotations(annotations ...description.Annotation) InstrumentedType {
	for _, a := range annotations {
		it.annotations = it.annotations.Append(a.Clone())
	}
	return it
}

// WithInitializer appends an initializer block to the start function.
func (it InstrumentedType) WithInitializer(block bytecode.Appender) InstrumentedType {
	it.initializer = it.initializer.Expand(block)
	return it
}

// WithLoadedInitializer registers a runtime initializer.
func (it InstrumentedType) WithLoadedInitializer(l LoadedTypeInitializer) InstrumentedType {
	it.loaded = it.loaded.Append(l)
	return it
}

// Validate finalizes the descriptor. Self is substituted with the type's
// name in every token and initializer block.
func (it InstrumentedType) Validate() (*description.Type, TypeInitializer, error) {
	if it.name == "" {
		return nil, TypeInitializer{}, errors.UnresolvedPlaceholder(errors.PhaseCompile, nil)
	}
	name := it.name

	supertype := it.supertype
	if supertype == nil {
		supertype = description.Object
	}
	if description.ContainsSelf(supertype) {
		return nil, TypeInitializer{}, errors.InvalidDefinition(errors.PhaseCompile, []string{name}, "type cannot extend itself")
	}
	interfaces := it.interfaces.Slice()
	for _, i := range interfaces {
		if description.ContainsSelf(i) {
			return nil, TypeInitializer{}, errors.InvalidDefinition(errors.PhaseCompile, []string{name}, "type cannot implement itself")
		}
	}

	t := &description.Type{
		Name:        name,
		Modifiers:   it.modifiers,
		Supertype:   supertype,
		Interfaces:  interfaces,
		Annotations: it.annotations.Slice(),
	}
	for _, v := range it.typeVars.Slice() {
		if err := v.Validate(name); err != nil {
			return nil, TypeInitializer{}, err
		}
		bounds := make([]description.TypeRef, len(v.Bounds))
		for i, b := range v.Bounds {
			bounds[i] = description.ResolveType(b, name)
		}
		t.TypeVariables = append(t.TypeVariables, description.TypeVar(v.Symbol, bounds...))
	}

	seenFields := make(map[string]bool)
	for _, f := range it.fields.Slice() {
		if seenFields[f.Name] {
			return nil, TypeInitializer{}, errors.Duplicate(errors.PhaseCompile, "field", f.Name)
		}
		seenFields[f.Name] = true
		t.Fields = append(t.Fields, description.Field{FieldToken: f.Resolve(name), DeclaringType: name})
	}

	seenMethods := make(map[description.SignatureToken]bool)
	for _, m := range it.methods.Slice() {
		resolved := m.Resolve(name)
		sig := resolved.Signature(name)
		if seenMethods[sig] {
			return nil, TypeInitializer{}, errors.Duplicate(errors.PhaseCompile, "method", sig.String())
		}
		seenMethods[sig] = true
		t.Methods = append(t.Methods, description.Method{MethodToken: resolved, DeclaringType: name})
	}

	return t, it.initializer.Resolve(name), nil
}
