package loading

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/resource"
)

const (
	// DispatchModule is the host module generated code calls Go delegates through.
	DispatchModule = "dyntype:dispatch"

	// MaxInvokeArity is the largest parameter count a delegated method may have.
	MaxInvokeArity = 8
)

// InvokeName returns the dispatch export for a delegate call with arity arguments.
func InvokeName(arity int) string {
	return "invoke_" + strconv.Itoa(arity)
}

// InvokeSignature returns the core parameter and result types of invoke_N:
// (handle i32, method i32, args i64...) -> i64.
func InvokeSignature(arity int) ([]api.ValueType, []api.ValueType) {
	params := make([]api.ValueType, 0, arity+2)
	params = append(params, api.ValueTypeI32, api.ValueTypeI32)
	for range arity {
		params = append(params, api.ValueTypeI64)
	}
	return params, []api.ValueType{api.ValueTypeI64}
}

// Invocation is one delegated call.
type Invocation struct {
	Caller api.Module
	Method uint32
	Args   []uint64
}

// Invocable is a live value generated code can call into.
type Invocable interface {
	Invoke(ctx context.Context, inv Invocation) (uint64, error)
}

func (n *Namespace) defineDispatch(b wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	for arity := 0; arity <= MaxInvokeArity; arity++ {
		params, results := InvokeSignature(arity)
		b.NewFunctionBuilder().
			WithGoModuleFunction(n.invokeHandler(arity), params, results).
			Export(InvokeName(arity))
	}
	return b
}

func (n *Namespace) invokeHandler(arity int) api.GoModuleFunction {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		h := resource.Handle(api.DecodeU32(stack[0]))
		v, ok := n.values.Get(h)
		if !ok {
			panic(errors.NotFound(errors.PhaseDispatch, "delegate handle", strconv.FormatUint(uint64(h), 10)))
		}
		target, ok := v.(Invocable)
		if !ok {
			panic(errors.InvalidInput(errors.PhaseDispatch, fmt.Sprintf("handle %d holds %T, not an invocable delegate", h, v)))
		}

		args := make([]uint64, arity)
		copy(args, stack[2:2+arity])
		result, err := target.Invoke(ctx, Invocation{
			Caller: mod,
			Method: api.DecodeU32(stack[1]),
			Args:   args,
		})
		if err != nil {
			panic(err)
		}
		stack[0] = result
	})
}
