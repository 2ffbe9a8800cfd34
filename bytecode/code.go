package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/dyntype/internal/wasm"
)

// FuncRef is a symbolic reference to an imported or defined function.
type FuncRef struct {
	id int
}

// NewFuncRef is used by emitters to mint references.
func NewFuncRef(id int) FuncRef { return FuncRef{id: id} }

// ID returns the emitter-assigned symbol id.
func (r FuncRef) ID() int { return r.id }

type instr struct {
	op   byte
	imm  []byte
	call *FuncRef
}

// Code is an instruction buffer for one function body.
type Code struct {
	params int
	locals []wasm.ValType
	instrs []instr
}

// NewCode creates a buffer for a function with the given parameter count.
// Parameters occupy the first local indices.
func NewCode(params int) *Code {
	return &Code{params: params}
}

// Local allocates a local of type t and returns its index.
func (c *Code) Local(t wasm.ValType) uint32 {
	c.locals = append(c.locals, t)
	return uint32(c.params + len(c.locals) - 1)
}

// Locals returns the non-parameter locals allocated so far.
func (c *Code) Locals() []wasm.ValType { return c.locals }

// Len returns the number of instructions.
func (c *Code) Len() int { return len(c.instrs) }

// Op appends an instruction without immediates.
func (c *Code) Op(op byte) *Code {
	c.instrs = append(c.instrs, instr{op: op})
	return c
}

// Raw appends an instruction with pre-encoded immediates.
func (c *Code) Raw(op byte, imm ...byte) *Code {
	c.instrs = append(c.instrs, instr{op: op, imm: imm})
	return c
}

func (c *Code) I32Const(v int32) *Code {
	return c.Raw(wasm.OpI32Const, wasm.AppendSLEB128(nil, v)...)
}

func (c *Code) I64Const(v int64) *Code {
	return c.Raw(wasm.OpI64Const, wasm.AppendSLEB128(nil, v)...)
}

func (c *Code) F32Const(v float32) *Code {
	return c.Raw(wasm.OpF32Const, binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))...)
}

func (c *Code) F64Const(v float64) *Code {
	return c.Raw(wasm.OpF64Const, binary.LittleEndian.AppendUint64(nil, math.Float64bits(v))...)
}

// Const pushes raw bits as a constant of type t.
func (c *Code) Const(t wasm.ValType, bits uint64) *Code {
	switch t {
	case wasm.ValI64:
		return c.I64Const(int64(bits))
	case wasm.ValF32:
		return c.Raw(wasm.OpF32Const, binary.LittleEndian.AppendUint32(nil, uint32(bits))...)
	case wasm.ValF64:
		return c.Raw(wasm.OpF64Const, binary.LittleEndian.AppendUint64(nil, bits)...)
	}
	return c.I32Const(int32(uint32(bits)))
}

func (c *Code) LocalGet(idx uint32) *Code {
	return c.Raw(wasm.OpLocalGet, wasm.AppendULEB128(nil, idx)...)
}

func (c *Code) LocalSet(idx uint32) *Code {
	return c.Raw(wasm.OpLocalSet, wasm.AppendULEB128(nil, idx)...)
}

func (c *Code) GlobalGet(idx uint32) *Code {
	return c.Raw(wasm.OpGlobalGet, wasm.AppendULEB128(nil, idx)...)
}

func (c *Code) GlobalSet(idx uint32) *Code {
	return c.Raw(wasm.OpGlobalSet, wasm.AppendULEB128(nil, idx)...)
}

// Call appends a call to a symbolic function.
func (c *Code) Call(ref FuncRef) *Code {
	r := ref
	c.instrs = append(c.instrs, instr{op: wasm.OpCall, call: &r})
	return c
}

func (c *Code) Drop() *Code        { return c.Op(wasm.OpDrop) }
func (c *Code) Return() *Code      { return c.Op(wasm.OpReturn) }
func (c *Code) Unreachable() *Code { return c.Op(wasm.OpUnreachable) }

// Encode serializes the body, resolving calls through resolve, and appends end.
func (c *Code) Encode(resolve func(FuncRef) uint32) []byte {
	var out []byte
	for _, in := range c.instrs {
		out = append(out, in.op)
		if in.call != nil {
			out = wasm.AppendULEB128(out, resolve(*in.call))
			continue
		}
		out = append(out, in.imm...)
	}
	return append(out, wasm.OpEnd)
}
