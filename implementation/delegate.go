package implementation

import (
	"context"
	"strconv"
	"sync"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/scaffold"
)

// Call describes one delegated method invocation. Args carry the raw bits
// of each parameter widened to 64 bits; use description.DecodeValue to
// interpret them.
type Call struct {
	Type   string
	Method string
	Args   []uint64
}

// Callback is the Go side of a delegated method. Its result is narrowed to
// the method's return type; void methods ignore it.
type Callback func(ctx context.Context, call Call) (uint64, error)

// Delegation forwards method calls to a Go callback.
type Delegation struct {
	fn    Callback
	field string

	mu      sync.Mutex
	methods []string
	index   map[string]uint32
}

// Delegate forwards calls to fn through the dispatch host module.
// Methods may take at most loading.MaxInvokeArity parameters.
func Delegate(fn Callback) *Delegation {
	return &Delegation{
		fn:    fn,
		field: hiddenFieldName("delegate"),
		index: make(map[string]uint32),
	}
}

// Field returns the hidden field holding the delegate handle.
func (d *Delegation) Field() string { return d.field }

func (d *Delegation) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType {
	if it.HasField(d.field) {
		return it
	}
	return it.
		WithField(description.NewField(d.field, description.Object, hiddenFieldModifiers)).
		WithLoadedInitializer(scaffold.ForField{Field: d.field, Value: d})
}

func (d *Delegation) Appender(*description.Type) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, ctx bytecode.Context, method *description.Method) error {
		if err := requireMethod(method, "Delegate"); err != nil {
			return err
		}
		arity := len(method.Parameters)
		if arity > loading.MaxInvokeArity {
			return errors.HandlerMismatch(methodPath(method), "delegate",
				"method takes "+strconv.Itoa(arity)+" parameters, at most "+strconv.Itoa(loading.MaxInvokeArity)+" supported")
		}
		field, ok := ctx.Global(d.field)
		if !ok {
			return errors.NotFound(errors.PhaseEmit, "field", d.field)
		}

		sig := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}}
		for range arity {
			sig.Params = append(sig.Params, wasm.ValI64)
		}
		invoke := ctx.Import(loading.DispatchModule, loading.InvokeName(arity), sig)

		code.GlobalGet(field).I32Const(int32(d.register(method.Name)))
		for i, p := range method.Parameters {
			vt, _ := description.ValType(p.Type)
			code.LocalGet(uint32(i))
			bytecode.ToRaw(code, vt)
		}
		code.Call(invoke)

		if vt, ok := description.ValType(method.Return); ok {
			bytecode.FromRaw(code, vt)
		} else {
			code.Drop()
		}
		return nil
	})
}

// Invoke implements loading.Invocable.
func (d *Delegation) Invoke(ctx context.Context, inv loading.Invocation) (uint64, error) {
	name, ok := d.method(inv.Method)
	if !ok {
		return 0, errors.NotFound(errors.PhaseDispatch, "delegated method", strconv.FormatUint(uint64(inv.Method), 10))
	}
	call := Call{Method: name, Args: inv.Args}
	if inv.Caller != nil {
		call.Type = inv.Caller.Name()
	}
	return d.fn(ctx, call)
}

func (d *Delegation) register(name string) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx, ok := d.index[name]; ok {
		return idx
	}
	idx := uint32(len(d.methods))
	d.methods = append(d.methods, name)
	d.index[name] = idx
	return idx
}

func (d *Delegation) method(idx uint32) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(idx) >= len(d.methods) {
		return "", false
	}
	return d.methods[idx], true
}
