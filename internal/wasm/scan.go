package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Section is a raw section located in a binary.
type Section struct {
	ID      byte
	Name    string // custom sections only
	Content []byte // excludes the custom section name
}

// Sections splits a binary into its top-level sections.
func Sections(bin []byte) ([]Section, error) {
	if len(bin) < 8 || binary.LittleEndian.Uint32(bin) != magic {
		return nil, fmt.Errorf("not a wasm binary")
	}
	var out []Section
	pos := 8
	for pos < len(bin) {
		id := bin[pos]
		pos++
		size, n, err := DecodeULEB128(bin[pos:])
		if err != nil {
			return nil, fmt.Errorf("section size at %d: %w", pos, err)
		}
		pos += n
		end := pos + int(size)
		if end > len(bin) {
			return nil, fmt.Errorf("section %d overruns binary", id)
		}
		sec := Section{ID: id, Content: bin[pos:end]}
		if id == SectionCustom {
			nameLen, n, err := DecodeULEB128(sec.Content)
			if err != nil || n+int(nameLen) > len(sec.Content) {
				return nil, fmt.Errorf("malformed custom section name at %d", pos)
			}
			sec.Name = string(sec.Content[n : n+int(nameLen)])
			sec.Content = sec.Content[n+int(nameLen):]
		}
		out = append(out, sec)
		pos = end
	}
	return out, nil
}

// CustomSectionData returns the content of the first custom section named name.
func CustomSectionData(bin []byte, name string) ([]byte, bool, error) {
	secs, err := Sections(bin)
	if err != nil {
		return nil, false, err
	}
	for _, s := range secs {
		if s.ID == SectionCustom && s.Name == name {
			return bytes.Clone(s.Content), true, nil
		}
	}
	return nil, false, nil
}
