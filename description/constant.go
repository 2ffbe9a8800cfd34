package description

import (
	"fmt"
	"math"
	"reflect"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/dyntype/errors"
)

// EncodeConstant converts a Go value to the raw bits of a primitive of type ref.
// Integers are range checked against the primitive width.
func EncodeConstant(ref TypeRef, v any) (uint64, error) {
	p, ok := ref.(Primitive)
	if !ok {
		return 0, constantError(ref, v, "only primitive types hold constants")
	}
	t, err := p.WIT()
	if err != nil {
		return 0, constantError(ref, v, err.Error())
	}

	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return 0, constantError(ref, v, "expected bool")
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case wit.F32:
		f, ok := toFloat(v)
		if !ok {
			return 0, constantError(ref, v, "expected number")
		}
		return uint64(math.Float32bits(float32(f))), nil
	case wit.F64:
		f, ok := toFloat(v)
		if !ok {
			return 0, constantError(ref, v, "expected number")
		}
		return math.Float64bits(f), nil
	}

	n, u, ok := toInt(v)
	if !ok {
		return 0, constantError(ref, v, "expected integer")
	}
	lo, hi := intRange(t)
	if (n < 0 && n < lo) || (n >= 0 && u > hi) {
		return 0, constantError(ref, v, "value out of range")
	}
	switch t.(type) {
	case wit.U64, wit.S64:
		if n < 0 {
			return uint64(n), nil
		}
		return u, nil
	}
	if n < 0 {
		return uint64(uint32(int32(n))), nil
	}
	return u, nil
}

// DecodeValue converts raw bits of type ref back into a Go value.
// Reference types decode to their uint32 handle.
func DecodeValue(ref TypeRef, bits uint64) any {
	p, ok := ref.(Primitive)
	if !ok {
		return uint32(bits)
	}
	t, err := p.WIT()
	if err != nil {
		return bits
	}
	switch t.(type) {
	case wit.Bool:
		return uint32(bits) != 0
	case wit.U8:
		return uint8(bits)
	case wit.S8:
		return int8(bits)
	case wit.U16:
		return uint16(bits)
	case wit.S16:
		return int16(bits)
	case wit.U32:
		return uint32(bits)
	case wit.S32:
		return int32(bits)
	case wit.U64:
		return bits
	case wit.S64:
		return int64(bits)
	case wit.F32:
		return math.Float32frombits(uint32(bits))
	case wit.F64:
		return math.Float64frombits(bits)
	case wit.Char:
		return rune(bits)
	}
	return bits
}

func intRange(t wit.Type) (int64, uint64) {
	switch t.(type) {
	case wit.U8:
		return 0, math.MaxUint8
	case wit.S8:
		return math.MinInt8, math.MaxInt8
	case wit.U16:
		return 0, math.MaxUint16
	case wit.S16:
		return math.MinInt16, math.MaxInt16
	case wit.U32:
		return 0, math.MaxUint32
	case wit.S32:
		return math.MinInt32, math.MaxInt32
	case wit.Char:
		return 0, 0x10FFFF
	case wit.U64:
		return 0, math.MaxUint64
	}
	return math.MinInt64, math.MaxInt64
}

// toInt returns the value as int64 and, when non-negative, as uint64.
func toInt(v any) (int64, uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		return n, uint64(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 0, rv.Uint(), true
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if n, u, ok := toInt(v); ok {
		if n < 0 {
			return float64(n), true
		}
		return float64(u), true
	}
	return 0, false
}

func constantError(ref TypeRef, v any, detail string) error {
	name := "<nil>"
	if ref != nil {
		name = ref.String()
	}
	return errors.New(errors.PhaseCompile, errors.KindInvalidDefinition).
		TypeRef(name).
		Value(v).
		Detail("cannot encode %v: %s", fmt.Sprintf("%T(%v)", v, v), detail).
		Build()
}
