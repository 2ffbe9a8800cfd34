package emit

import (
	"encoding/json"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
)

// MetadataSection names the custom section holding the type descriptor.
const MetadataSection = "dyntype.type"

// Metadata is the descriptor stored in every emitted type.
type Metadata struct {
	Name          string         `json:"name"`
	Modifiers     []string       `json:"modifiers,omitempty"`
	Supertype     string         `json:"supertype,omitempty"`
	Interfaces    []string       `json:"interfaces,omitempty"`
	TypeVariables []TypeVariable `json:"type_variables,omitempty"`
	Annotations   []Annotation   `json:"annotations,omitempty"`
	Fields        []Field        `json:"fields,omitempty"`
	Methods       []Method       `json:"methods,omitempty"`
	Initializer   bool           `json:"initializer,omitempty"`
	Auxiliary     []string       `json:"auxiliary,omitempty"`
}

type TypeVariable struct {
	Symbol string   `json:"symbol"`
	Bounds []string `json:"bounds,omitempty"`
}

type Annotation struct {
	Type   string         `json:"type"`
	Values map[string]any `json:"values,omitempty"`
}

type Field struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Modifiers   []string     `json:"modifiers,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Default     any          `json:"default,omitempty"`
}

type Parameter struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type Method struct {
	Name        string       `json:"name"`
	Export      string       `json:"export,omitempty"`
	Return      string       `json:"return"`
	Parameters  []Parameter  `json:"parameters,omitempty"`
	Exceptions  []string     `json:"exceptions,omitempty"`
	Modifiers   []string     `json:"modifiers,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Handler     string       `json:"handler"`
	Default     any          `json:"default,omitempty"`
}

// Field returns the named field.
func (m *Metadata) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Method returns the first method exported under export or, failing
// that, declared under that name.
func (m *Metadata) Method(name string) (Method, bool) {
	for _, meth := range m.Methods {
		if meth.Export == name {
			return meth, true
		}
	}
	for _, meth := range m.Methods {
		if meth.Name == name {
			return meth, true
		}
	}
	return Method{}, false
}

// ReadMetadata extracts the descriptor from an emitted binary.
func ReadMetadata(bin []byte) (*Metadata, error) {
	data, ok, err := wasm.CustomSectionData(bin, MetadataSection)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "malformed module")
	}
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "custom section", MetadataSection)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "malformed type descriptor")
	}
	return &md, nil
}

func annotations(in []description.Annotation) []Annotation {
	if len(in) == 0 {
		return nil
	}
	out := make([]Annotation, len(in))
	for i, a := range in {
		out[i] = Annotation{Type: a.Type, Values: a.Values}
	}
	return out
}

func typeNames(refs []description.TypeRef) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
