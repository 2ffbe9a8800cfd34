package implementation

import (
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/scaffold"
)

type superCall struct{}

// SuperMethodCall calls the method with the same signature on the supertype,
// which must be a generated type loaded in the same namespace.
var SuperMethodCall Implementation = superCall{}

func (superCall) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }

func (superCall) Appender(target *description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, ctx bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "SuperMethodCall"); err != nil {
			return err
		}
		if !target.HasSupertype() {
			return errors.Unsupported(errors.PhaseEmit, "super call on "+target.Name+" without a supertype")
		}
		super := description.Erasure(target.Supertype).String()
		ref := ctx.Import(super, method.Signature().Qualified(), bytecode.Signature(*method))
		bytecode.LoadParameters(code, method)
		code.Call(ref)
		return nil
	})
}

type passThrough struct{}

// PassThrough calls the super method when the type has a supertype and
// returns the zero value otherwise.
var PassThrough Implementation = passThrough{}

func (passThrough) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }

func (passThrough) Appender(target *description.Type) bytecode.Appender {
	if target.HasSupertype() {
		return SuperMethodCall.Appender(target)
	}
	return StubValue.Appender(target)
}
