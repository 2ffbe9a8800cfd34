package implementation

import (
	"strings"
	"unicode"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/scaffold"
)

type accessMode uint8

const (
	accessAuto accessMode = iota
	accessGet
	accessSet
)

type fieldAccessor struct {
	name string
	mode accessMode
}

// FieldAccessor reads or writes a declared field. A method without
// parameters returns the field; a void method with one parameter stores it.
func FieldAccessor(name string) Implementation {
	return fieldAccessor{name: name}
}

// FieldGetter returns the named field.
func FieldGetter(name string) Implementation {
	return fieldAccessor{name: name, mode: accessGet}
}

// FieldSetter stores the single parameter into the named field.
func FieldSetter(name string) Implementation {
	return fieldAccessor{name: name, mode: accessSet}
}

// BeanProperty is a FieldAccessor deriving the field from the method name:
// getCount, isReady and setCount access count, ready and count.
var BeanProperty Implementation = fieldAccessor{}

func (f fieldAccessor) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType { return it }

func (f fieldAccessor) Appender(*description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, ctx bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "FieldAccessor"); err != nil {
			return err
		}
		name := f.name
		if name == "" {
			name = propertyName(method.Name)
			if name == "" {
				return errors.HandlerMismatch(methodPath(method), "field accessor", "method name is not a bean property")
			}
		}
		idx, ok := ctx.Global(name)
		if !ok {
			return errors.NotFound(errors.PhaseEmit, "field", name)
		}

		getter := len(method.Parameters) == 0 && !description.IsVoid(method.Return)
		setter := len(method.Parameters) == 1 && description.IsVoid(method.Return)
		switch {
		case getter && f.mode != accessSet:
			code.GlobalGet(idx)
		case setter && f.mode != accessGet:
			code.LocalGet(0).GlobalSet(idx)
		default:
			return errors.HandlerMismatch(methodPath(method), "field accessor", "method is neither a getter nor a setter")
		}
		return nil
	})
}

func propertyName(method string) string {
	for _, prefix := range []string{"get", "set", "is"} {
		rest, ok := strings.CutPrefix(method, prefix)
		if !ok || rest == "" {
			continue
		}
		r := []rune(rest)
		if !unicode.IsUpper(r[0]) {
			continue
		}
		r[0] = unicode.ToLower(r[0])
		return string(r)
	}
	return ""
}
