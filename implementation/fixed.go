package implementation

import (
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/scaffold"
)

type constant struct {
	value any
}

// Value returns a constant. The method must return a primitive the value
// converts to.
func Value(v any) Implementation {
	return constant{value: v}
}

func (c constant) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }

func (c constant) Appender(*description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, _ bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "Value"); err != nil {
			return err
		}
		vt, ok := description.ValType(method.Return)
		if !ok {
			return errors.HandlerMismatch(methodPath(method), "fixed value", "void method cannot return a value")
		}
		bits, err := description.EncodeConstant(method.Return, c.value)
		if err != nil {
			return errors.New(errors.PhaseEmit, errors.KindHandlerMismatch).
				Path(methodPath(method)...).
				TypeRef(method.Return.String()).
				Cause(err).
				Detail("constant does not fit the return type; use Reference for live values").
				Build()
		}
		code.Const(vt, bits)
		return nil
	})
}

type reference struct {
	value any
	field string
}

// Reference returns a live Go value. The value is bound when the type
// loads; the method returns its handle in the namespace value table.
func Reference(v any) Implementation {
	return reference{value: v, field: hiddenFieldName("value")}
}

func (r reference) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType {
	if it.HasField(r.field) {
		return it
	}
	return it.
		WithField(description.NewField(r.field, description.Object, hiddenFieldModifiers)).
		WithLoadedInitializer(scaffold.ForField{Field: r.field, Value: r.value})
}

func (r reference) Appender(*description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, ctx bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "Reference"); err != nil {
			return err
		}
		if _, isPrimitive := method.Return.(description.Primitive); isPrimitive || description.IsVoid(method.Return) {
			return errors.HandlerMismatch(methodPath(method), "reference", "method must return a reference type")
		}
		idx, ok := ctx.Global(r.field)
		if !ok {
			return errors.NotFound(errors.PhaseEmit, "field", r.field)
		}
		code.GlobalGet(idx)
		return nil
	})
}

type stub struct{}

// StubValue returns the zero value of the method's return type.
var StubValue Implementation = stub{}

func (stub) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }

func (stub) Appender(*description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, _ bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "StubValue"); err != nil {
			return err
		}
		if vt, ok := description.ValType(method.Return); ok {
			bytecode.Zero(code, vt)
		}
		return nil
	})
}
