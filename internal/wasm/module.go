package wasm

import (
	"encoding/binary"
	"math"
	"slices"
)

// ValType is a core value type.
type ValType byte

const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	}
	return "unknown"
}

// Section IDs
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionCode     byte = 10
)

// Export kinds
const (
	KindFunc   byte = 0x00
	KindGlobal byte = 0x03
)

const (
	magic   = 0x6d736100
	version = 0x01
)

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether both signatures are identical.
func (f FuncType) Equal(o FuncType) bool {
	return slices.Equal(f.Params, o.Params) && slices.Equal(f.Results, o.Results)
}

// Import is a function import.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Global is a module-defined global with a constant initializer.
type Global struct {
	Type    ValType
	Mutable bool
	Init    []byte // constant expression including the trailing end opcode
}

// Export exposes a function or global by name.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody is the code of a defined function.
type FuncBody struct {
	Locals []ValType
	Code   []byte // instructions including the trailing end opcode
}

// CustomSection is an opaque named section.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is a core module under construction.
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // type index per defined function
	Globals        []Global
	Exports        []Export
	Start          *uint32
	Code           []FuncBody
	CustomSections []CustomSection
}

// AddType returns the index of ft, reusing an equal existing entry.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// ConstExpr encodes a constant initializer for t holding bits.
func ConstExpr(t ValType, bits uint64) []byte {
	var out []byte
	switch t {
	case ValI32:
		out = AppendSLEB128([]byte{OpI32Const}, int32(uint32(bits)))
	case ValI64:
		out = AppendSLEB128([]byte{OpI64Const}, int64(bits))
	case ValF32:
		out = binary.LittleEndian.AppendUint32([]byte{OpF32Const}, uint32(bits))
	case ValF64:
		out = binary.LittleEndian.AppendUint64([]byte{OpF64Const}, bits)
	}
	return append(out, OpEnd)
}

// F32Bits and F64Bits convert floats to the raw bit layout ConstExpr expects.
func F32Bits(v float32) uint64 { return uint64(math.Float32bits(v)) }
func F64Bits(v float64) uint64 { return math.Float64bits(v) }

// Encode encodes the module to the WebAssembly binary format.
func (m *Module) Encode() []byte {
	out := binary.LittleEndian.AppendUint32(nil, magic)
	out = binary.LittleEndian.AppendUint32(out, version)

	if len(m.Types) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec = append(sec, 0x60)
			sec = appendValTypes(sec, ft.Params)
			sec = appendValTypes(sec, ft.Results)
		}
		out = appendSection(out, SectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec = appendName(sec, imp.Module)
			sec = appendName(sec, imp.Name)
			sec = append(sec, KindFunc)
			sec = AppendULEB128(sec, imp.TypeIdx)
		}
		out = appendSection(out, SectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			sec = AppendULEB128(sec, idx)
		}
		out = appendSection(out, SectionFunction, sec)
	}

	if len(m.Globals) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec = append(sec, byte(g.Type))
			if g.Mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			sec = append(sec, g.Init...)
		}
		out = appendSection(out, SectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec = appendName(sec, exp.Name)
			sec = append(sec, exp.Kind)
			sec = AppendULEB128(sec, exp.Idx)
		}
		out = appendSection(out, SectionExport, sec)
	}

	if m.Start != nil {
		out = appendSection(out, SectionStart, AppendULEB128(nil, *m.Start))
	}

	if len(m.Code) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Code)))
		for _, body := range m.Code {
			fn := appendLocals(nil, body.Locals)
			fn = append(fn, body.Code...)
			sec = AppendULEB128(sec, uint32(len(fn)))
			sec = append(sec, fn...)
		}
		out = appendSection(out, SectionCode, sec)
	}

	for _, cs := range m.CustomSections {
		sec := appendName(nil, cs.Name)
		sec = append(sec, cs.Data...)
		out = appendSection(out, SectionCustom, sec)
	}

	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = AppendULEB128(out, uint32(len(content)))
	return append(out, content...)
}

func appendName(out []byte, s string) []byte {
	out = AppendULEB128(out, uint32(len(s)))
	return append(out, s...)
}

func appendValTypes(out []byte, types []ValType) []byte {
	out = AppendULEB128(out, uint32(len(types)))
	for _, t := range types {
		out = append(out, byte(t))
	}
	return out
}

// appendLocals groups consecutive locals of the same type.
func appendLocals(out []byte, locals []ValType) []byte {
	type run struct {
		n uint32
		t ValType
	}
	var runs []run
	for _, t := range locals {
		if len(runs) > 0 && runs[len(runs)-1].t == t {
			runs[len(runs)-1].n++
			continue
		}
		runs = append(runs, run{1, t})
	}
	out = AppendULEB128(out, uint32(len(runs)))
	for _, r := range runs {
		out = AppendULEB128(out, r.n)
		out = append(out, byte(r.t))
	}
	return out
}
