package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/dyntype"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/dynamic"
	"github.com/wippyai/dyntype/implementation"
)

// typeDef is the YAML form of a type accepted by build and run.
type typeDef struct {
	Name        string          `yaml:"name"`
	Modifiers   []string        `yaml:"modifiers"`
	Supertype   string          `yaml:"supertype"`
	Interfaces  []string        `yaml:"interfaces"`
	Resolution  string          `yaml:"resolution"`
	Annotations []annotationDef `yaml:"annotations"`
	Fields      []fieldDef      `yaml:"fields"`
	Methods     []methodDef     `yaml:"methods"`
}

type annotationDef struct {
	Type   string         `yaml:"type"`
	Values map[string]any `yaml:"values"`
}

type fieldDef struct {
	Name        string          `yaml:"name"`
	Type        string          `yaml:"type"`
	Modifiers   []string        `yaml:"modifiers"`
	Value       any             `yaml:"value"`
	Annotations []annotationDef `yaml:"annotations"`
}

type paramDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type methodDef struct {
	Name        string          `yaml:"name"`
	Returns     string          `yaml:"returns"`
	Modifiers   []string        `yaml:"modifiers"`
	Parameters  []paramDef      `yaml:"parameters"`
	Throws      []string        `yaml:"throws"`
	Annotations []annotationDef `yaml:"annotations"`
	Body        bodyDef         `yaml:"body"`
}

// bodyDef selects a method handler. Exactly one key may be set; an empty
// body passes through to the supertype.
type bodyDef struct {
	Value       any    `yaml:"value"`
	Reference   any    `yaml:"reference"`
	Field       string `yaml:"field"`
	Getter      string `yaml:"getter"`
	Setter      string `yaml:"setter"`
	Property    bool   `yaml:"property"`
	Super       bool   `yaml:"super"`
	Stub        bool   `yaml:"stub"`
	Unreachable bool   `yaml:"unreachable"`
	Abstract    bool   `yaml:"abstract"`
	Default     any    `yaml:"default"`
}

func loadDefinition(path string) (*typeDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return parseDefinition(data)
}

func parseDefinition(data []byte) (*typeDef, error) {
	var def typeDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	return &def, nil
}

// builder turns the definition into a builder from f.
func (d *typeDef) builder(f *dyntype.Factory) (dynamic.Builder, error) {
	b := f.Builder()
	if d.Name != "" {
		b = b.Name(d.Name)
	}
	if d.Resolution != "" {
		s, err := dynamic.ParseStrategy(d.Resolution)
		if err != nil {
			return b, err
		}
		if active, ok := s.(dynamic.Active); ok {
			active.Nexus = f.Nexus()
			s = active
		}
		b = b.Strategy(s)
	}
	if len(d.Modifiers) > 0 {
		mods, err := parseModifiers(d.Modifiers)
		if err != nil {
			return b, err
		}
		b = b.Modifiers(mods)
	}
	if d.Supertype != "" {
		b = b.Supertype(parseType(d.Supertype))
	}
	for _, i := range d.Interfaces {
		b = b.Implement(parseType(i))
	}
	b = b.Annotate(annotations(d.Annotations)...)

	for _, fd := range d.Fields {
		mods, err := parseModifiers(fd.Modifiers)
		if err != nil {
			return b, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		fb := b.DefineField(fd.Name, parseType(fd.Type), mods).Annotate(annotations(fd.Annotations)...)
		if fd.Value != nil {
			fb = fb.Value(fd.Value)
		}
		b = fb.Done()
	}

	for _, md := range d.Methods {
		mods, err := parseModifiers(md.Modifiers)
		if err != nil {
			return b, fmt.Errorf("method %s: %w", md.Name, err)
		}
		returns := description.Void
		if md.Returns != "" {
			returns = parseType(md.Returns)
		}
		mb := b.DefineMethod(md.Name, returns, mods).Annotate(annotations(md.Annotations)...)
		for _, p := range md.Parameters {
			mb = mb.Parameter(parseType(p.Type), p.Name)
		}
		for _, t := range md.Throws {
			mb = mb.Throws(parseType(t))
		}
		impl, err := md.Body.implement(mb)
		if err != nil {
			return b, fmt.Errorf("method %s: %w", md.Name, err)
		}
		b = impl.Done()
	}
	return b, b.Err()
}

func (body bodyDef) implement(mb dynamic.MethodDefinition) (dynamic.MethodImplemented, error) {
	var choices []dynamic.MethodImplemented
	if body.Value != nil {
		choices = append(choices, mb.Intercept(implementation.Value(body.Value)))
	}
	if body.Reference != nil {
		choices = append(choices, mb.Intercept(implementation.Reference(body.Reference)))
	}
	if body.Field != "" {
		choices = append(choices, mb.Intercept(implementation.FieldAccessor(body.Field)))
	}
	if body.Getter != "" {
		choices = append(choices, mb.Intercept(implementation.FieldGetter(body.Getter)))
	}
	if body.Setter != "" {
		choices = append(choices, mb.Intercept(implementation.FieldSetter(body.Setter)))
	}
	if body.Property {
		choices = append(choices, mb.Intercept(implementation.BeanProperty))
	}
	if body.Super {
		choices = append(choices, mb.Intercept(implementation.SuperMethodCall))
	}
	if body.Stub {
		choices = append(choices, mb.Intercept(implementation.StubValue))
	}
	if body.Unreachable {
		choices = append(choices, mb.Intercept(implementation.Unreachable))
	}
	if body.Abstract {
		choices = append(choices, mb.WithoutCode())
	}
	if body.Default != nil {
		choices = append(choices, mb.DefaultValue(body.Default))
	}
	switch len(choices) {
	case 0:
		return mb.Intercept(implementation.PassThrough), nil
	case 1:
		return choices[0], nil
	}
	return dynamic.MethodImplemented{}, fmt.Errorf("body sets %d handlers, expected one", len(choices))
}

func parseModifiers(names []string) (description.Modifiers, error) {
	if len(names) == 0 {
		return description.Public, nil
	}
	mods, ok := description.ParseModifiers(names...)
	if !ok {
		return 0, fmt.Errorf("unknown modifier in %v", names)
	}
	return mods, nil
}

// parseType reads the type names printed by inspect: primitives, void,
// object, $self, name[] arrays and named types.
func parseType(name string) description.TypeRef {
	name = strings.TrimSpace(name)
	switch name {
	case "void":
		return description.Void
	case "object":
		return description.Object
	case "$self":
		return description.Self
	}
	if inner, ok := strings.CutSuffix(name, "[]"); ok {
		return description.ArrayOf(parseType(inner))
	}
	if p, err := description.ParsePrimitive(name); err == nil {
		return p
	}
	return description.Of(name)
}

func annotations(defs []annotationDef) []description.Annotation {
	out := make([]description.Annotation, 0, len(defs))
	for _, a := range defs {
		out = append(out, description.Annotation{Type: a.Type, Values: a.Values})
	}
	return out
}
