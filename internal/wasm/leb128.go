package wasm

import "errors"

// ErrOverflow is returned when a LEB128 value exceeds 32 bits or runs past the input.
var ErrOverflow = errors.New("leb128: overflow")

// AppendULEB128 appends v as unsigned LEB128.
func AppendULEB128(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// AppendSLEB128 appends v as signed LEB128.
func AppendSLEB128[T int32 | int64](buf []byte, v T) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeULEB128 decodes an unsigned LEB128 value and returns it with the bytes consumed.
func DecodeULEB128(data []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i, b := range data {
		if shift >= 35 {
			return 0, 0, ErrOverflow
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrOverflow
}
