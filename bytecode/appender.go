package bytecode

import (
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/internal/wasm"
)

// Auxiliary is a helper type an implementation requires to be loaded
// alongside the type it instruments.
type Auxiliary interface {
	TypeName() string
}

// Context is the emission environment of one type.
type Context interface {
	// Instrumented returns the finalized type being emitted.
	Instrumented() *description.Type

	// Import returns a reference to a host or sibling function, adding the
	// import on first use.
	Import(module, name string, sig wasm.FuncType) FuncRef

	// Method returns a reference to a declared, non-abstract method.
	Method(sig description.SignatureToken) (FuncRef, bool)

	// Global returns the global index backing a declared field.
	Global(field string) (uint32, bool)

	// Require registers an auxiliary type.
	Require(aux Auxiliary)
}

// Appender writes instructions for a method body or an initializer block.
// For initializer blocks method is nil.
type Appender interface {
	Apply(code *Code, ctx Context, method *description.Method) error
}

// AppenderFunc adapts a function to Appender.
type AppenderFunc func(code *Code, ctx Context, method *description.Method) error

func (f AppenderFunc) Apply(code *Code, ctx Context, method *description.Method) error {
	return f(code, ctx, method)
}

// Compound applies appenders in order.
type Compound []Appender

func (c Compound) Apply(code *Code, ctx Context, method *description.Method) error {
	for _, a := range c {
		if err := a.Apply(code, ctx, method); err != nil {
			return err
		}
	}
	return nil
}

// Signature lowers a method to its core function type.
func Signature(m description.Method) wasm.FuncType {
	var ft wasm.FuncType
	for _, p := range m.Parameters {
		vt, _ := description.ValType(p.Type)
		ft.Params = append(ft.Params, vt)
	}
	if vt, ok := description.ValType(m.Return); ok {
		ft.Results = []wasm.ValType{vt}
	}
	return ft
}

// Zero pushes the zero value of t.
func Zero(code *Code, t wasm.ValType) {
	code.Const(t, 0)
}

// ToRaw widens the value on top of the stack to an i64 carrying its bits.
func ToRaw(code *Code, t wasm.ValType) {
	switch t {
	case wasm.ValI32:
		code.Op(wasm.OpI64ExtendI32U)
	case wasm.ValF32:
		code.Op(wasm.OpI32ReinterpretF32).Op(wasm.OpI64ExtendI32U)
	case wasm.ValF64:
		code.Op(wasm.OpI64ReinterpretF64)
	}
}

// FromRaw narrows an i64 carrying raw bits back to t.
func FromRaw(code *Code, t wasm.ValType) {
	switch t {
	case wasm.ValI32:
		code.Op(wasm.OpI32WrapI64)
	case wasm.ValF32:
		code.Op(wasm.OpI32WrapI64).Op(wasm.OpF32ReinterpretI32)
	case wasm.ValF64:
		code.Op(wasm.OpF64ReinterpretI64)
	}
}

// LoadParameters pushes every parameter of m in order.
func LoadParameters(code *Code, m *description.Method) {
	for i := range m.Parameters {
		code.LocalGet(uint32(i))
	}
}
