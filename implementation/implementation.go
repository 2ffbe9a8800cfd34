package implementation

import (
	"fmt"
	"math/rand/v2"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/scaffold"
)

// Implementation provides the body of one or more methods.
type Implementation interface {
	Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType
	Appender(target *description.Type) bytecode.Appender
}

// hiddenFieldModifiers marks fields implementations add for their own use.
const hiddenFieldModifiers = description.Private | description.Static | description.Synthetic

func hiddenFieldName(prefix string) string {
	return fmt.Sprintf("%s$%08x", prefix, rand.Uint32())
}

func requireMethod(method *description.Method, what string) error {
	if method == nil {
		return errors.InvalidInput(errors.PhaseEmit, what+" can only implement methods")
	}
	return nil
}

func methodPath(method *description.Method) []string {
	return []string{method.DeclaringType, method.Name}
}

type simple struct {
	appender bytecode.Appender
}

func (s simple) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }
func (s simple) Appender(*description.Type) bytecode.Appender { return s.appender }

// Simple implements a method with fixed appenders.
func Simple(appenders ...bytecode.Appender) Implementation {
	if len(appenders) == 1 {
		return simple{appender: appenders[0]}
	}
	return simple{appender: bytecode.Compound(appenders)}
}

// Code implements a method with an instruction-writing function.
func Code(fn func(code *bytecode.Code, ctx bytecode.Context, method *description.Method) error) Implementation {
	return simple{appender: bytecode.AppenderFunc(fn)}
}

// Unreachable traps when called.
var Unreachable Implementation = Code(func(code *bytecode.Code, _ bytecode.Context, _ *description.Method) error {
	code.Unreachable()
	return nil
})

type compound []Implementation

// Compound prepares every implementation in order and concatenates their code.
// Only the last one should leave a return value.
func Compound(impls ...Implementation) Implementation {
	var flat compound
	for _, i := range impls {
		if c, ok := i.(compound); ok {
			flat = append(flat, c...)
			continue
		}
		flat = append(flat, i)
	}
	return flat
}

func (c compound) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType {
	for _, i := range c {
		it = i.Prepare(it)
	}
	return it
}

func (c compound) Appender(target *description.Type) bytecode.Appender {
	out := make(bytecode.Compound, len(c))
	for i, impl := range c {
		out[i] = impl.Appender(target)
	}
	return out
}
