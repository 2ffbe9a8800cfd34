package description

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
)

// TypeRef is a reference to a type. Implementations are Primitive, Named,
// SelfType, Parameterized, Variable, Array and VoidType.
type TypeRef interface {
	String() string
	resolve(identity string) TypeRef
	containsSelf() bool
}

// Primitive is a WIT primitive type name.
type Primitive string

const (
	Bool Primitive = "bool"
	U8   Primitive = "u8"
	S8   Primitive = "s8"
	U16  Primitive = "u16"
	S16  Primitive = "s16"
	U32  Primitive = "u32"
	S32  Primitive = "s32"
	U64  Primitive = "u64"
	S64  Primitive = "s64"
	F32  Primitive = "f32"
	F64  Primitive = "f64"
	Char Primitive = "char"

	Int  = S32
	Long = S64
)

func (p Primitive) String() string { return string(p) }
func (p Primitive) resolve(string) TypeRef { return p }
func (p Primitive) containsSelf() bool { return false }

// WIT returns the WIT type for p.
func (p Primitive) WIT() (wit.Type, error) {
	t, err := wit.ParseType(string(p))
	if err != nil {
		return nil, err
	}
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.U64, wit.S64, wit.F32, wit.F64, wit.Char:
		return t, nil
	}
	return nil, fmt.Errorf("%q is not a primitive", string(p))
}

// ParsePrimitive validates a primitive type name.
func ParsePrimitive(name string) (Primitive, error) {
	p := Primitive(name)
	if _, err := p.WIT(); err != nil {
		return "", errors.New(errors.PhaseBuild, errors.KindInvalidDefinition).
			TypeRef(name).
			Cause(err).
			Detail("unknown primitive type").
			Build()
	}
	return p, nil
}

// VoidType is the return type of methods without a result.
type VoidType struct{}

// Void is the only VoidType value.
var Void TypeRef = VoidType{}

func (VoidType) String() string { return "void" }
func (v VoidType) resolve(string) TypeRef { return v }
func (VoidType) containsSelf() bool { return false }

// Named is a concrete type identity.
type Named struct {
	Name string
}

// Object is the root type. Types without an explicit supertype extend it.
var Object = Named{Name: "object"}

// Of returns a named reference.
func Of(name string) Named { return Named{Name: name} }

func (n Named) String() string { return n.Name }
func (n Named) resolve(string) TypeRef { return n }
func (Named) containsSelf() bool { return false }

// SelfType is the placeholder for the type currently being built.
type SelfType struct{}

// Self is the only SelfType value.
var Self TypeRef = SelfType{}

func (SelfType) String() string { return "$self" }
func (SelfType) resolve(identity string) TypeRef { return Named{Name: identity} }
func (SelfType) containsSelf() bool { return true }

// Parameterized is a generic type applied to arguments.
type Parameterized struct {
	Raw  TypeRef
	Args []TypeRef
}

// Generic returns raw<args...>.
func Generic(raw TypeRef, args ...TypeRef) Parameterized {
	return Parameterized{Raw: raw, Args: append([]TypeRef(nil), args...)}
}

func (p Parameterized) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return p.Raw.String() + "<" + strings.Join(args, ",") + ">"
}

func (p Parameterized) resolve(identity string) TypeRef {
	args := make([]TypeRef, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.resolve(identity)
	}
	return Parameterized{Raw: p.Raw.resolve(identity), Args: args}
}

func (p Parameterized) containsSelf() bool {
	if p.Raw.containsSelf() {
		return true
	}
	for _, a := range p.Args {
		if a.containsSelf() {
			return true
		}
	}
	return false
}

// Variable is a reference to a declared type variable.
type Variable struct {
	Symbol string
}

func (v Variable) String() string { return "'" + v.Symbol }
func (v Variable) resolve(string) TypeRef { return v }
func (Variable) containsSelf() bool { return false }

// Array is an array of Component.
type Array struct {
	Component TypeRef
}

// ArrayOf returns component[].
func ArrayOf(component TypeRef) Array { return Array{Component: component} }

func (a Array) String() string { return a.Component.String() + "[]" }
func (a Array) resolve(identity string) TypeRef {
	return Array{Component: a.Component.resolve(identity)}
}
func (a Array) containsSelf() bool { return a.Component.containsSelf() }

// ResolveType substitutes every Self in ref with identity.
func ResolveType(ref TypeRef, identity string) TypeRef {
	if ref == nil {
		return nil
	}
	return ref.resolve(identity)
}

// ContainsSelf reports whether ref embeds the Self placeholder.
func ContainsSelf(ref TypeRef) bool {
	return ref != nil && ref.containsSelf()
}

// Erasure strips generic arguments and replaces type variables with the root type.
func Erasure(ref TypeRef) TypeRef {
	switch r := ref.(type) {
	case Parameterized:
		return Erasure(r.Raw)
	case Variable:
		return Object
	case Array:
		return Array{Component: Erasure(r.Component)}
	}
	return ref
}

// Equal reports structural equality of two references.
func Equal(a, b TypeRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsVoid reports whether ref is the void type.
func IsVoid(ref TypeRef) bool {
	_, ok := ref.(VoidType)
	return ok
}

// ValType lowers ref to a core value type. Primitives map by width, every
// reference form is an i32 handle into the namespace value table. Void has
// no value type and reports false.
func ValType(ref TypeRef) (wasm.ValType, bool) {
	switch r := ref.(type) {
	case VoidType:
		return 0, false
	case Primitive:
		t, err := r.WIT()
		if err != nil {
			return 0, false
		}
		switch t.(type) {
		case wit.U64, wit.S64:
			return wasm.ValI64, true
		case wit.F32:
			return wasm.ValF32, true
		case wit.F64:
			return wasm.ValF64, true
		}
		return wasm.ValI32, true
	case nil:
		return 0, false
	}
	return wasm.ValI32, true
}
