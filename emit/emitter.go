package emit

import (
	"encoding/json"
	stderrors "errors"
	"slices"

	"github.com/wippyai/dyntype/attribute"
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
	"github.com/wippyai/dyntype/registry"
	"github.com/wippyai/dyntype/scaffold"
)

// Input is everything needed to emit one type.
type Input struct {
	Type          *description.Type
	Fields        *registry.CompiledFields
	Methods       *registry.CompiledMethods
	Initializer   scaffold.TypeInitializer
	TypeAttribute attribute.TypeAppender
	Visitors      []Visitor
	Auxiliary     []string
}

// Output is an emitted type.
type Output struct {
	Bytes     []byte
	Metadata  *Metadata
	Auxiliary []bytecode.Auxiliary // required by implementations during emission
}

// Emitter produces a binary from an Input.
type Emitter interface {
	Emit(in Input) (*Output, error)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(in Input) (*Output, error)

func (f EmitterFunc) Emit(in Input) (*Output, error) { return f(in) }

// Visitor may rewrite the assembled module before it is encoded.
type Visitor interface {
	Visit(typ *description.Type, m *wasm.Module) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(typ *description.Type, m *wasm.Module) error

func (f VisitorFunc) Visit(typ *description.Type, m *wasm.Module) error { return f(typ, m) }

// Writer is the default Emitter.
type Writer struct{}

var _ Emitter = Writer{}

type funcTarget struct {
	imported bool
	idx      uint32
}

type methodFunc struct {
	rec  registry.MethodRecord
	ref  bytecode.FuncRef
	code *bytecode.Code
}

// session is the bytecode.Context for one emission.
type session struct {
	in      Input
	module  wasm.Module
	targets []funcTarget
	imports map[[2]string]bytecode.FuncRef
	methods map[description.SignatureToken]bytecode.FuncRef
	globals map[string]uint32
	aux     []bytecode.Auxiliary
	auxSeen map[string]bool
}

func (s *session) Instrumented() *description.Type { return s.in.Type }

func (s *session) Import(module, name string, sig wasm.FuncType) bytecode.FuncRef {
	key := [2]string{module, name}
	if ref, ok := s.imports[key]; ok {
		return ref
	}
	ref := bytecode.NewFuncRef(len(s.targets))
	s.targets = append(s.targets, funcTarget{imported: true, idx: uint32(len(s.module.Imports))})
	s.module.Imports = append(s.module.Imports, wasm.Import{Module: module, Name: name, TypeIdx: s.module.AddType(sig)})
	s.imports[key] = ref
	return ref
}

func (s *session) Method(sig description.SignatureToken) (bytecode.FuncRef, bool) {
	ref, ok := s.methods[sig]
	return ref, ok
}

func (s *session) Global(field string) (uint32, bool) {
	idx, ok := s.globals[field]
	return idx, ok
}

func (s *session) Require(aux bytecode.Auxiliary) {
	if s.auxSeen[aux.TypeName()] {
		return
	}
	s.auxSeen[aux.TypeName()] = true
	s.aux = append(s.aux, aux)
}

func (s *session) defined() bytecode.FuncRef {
	ref := bytecode.NewFuncRef(len(s.targets))
	s.targets = append(s.targets, funcTarget{idx: uint32(len(s.module.Funcs))})
	return ref
}

func (s *session) resolve(ref bytecode.FuncRef) uint32 {
	t := s.targets[ref.ID()]
	if t.imported {
		return t.idx
	}
	return uint32(len(s.module.Imports)) + t.idx
}

// Emit assembles and encodes the module.
func (Writer) Emit(in Input) (*Output, error) {
	if in.Type == nil || in.Fields == nil || in.Methods == nil {
		return nil, errors.InvalidInput(errors.PhaseEmit, "input requires a type and compiled registries")
	}
	s := &session{
		in:      in,
		imports: make(map[[2]string]bytecode.FuncRef),
		methods: make(map[description.SignatureToken]bytecode.FuncRef),
		globals: make(map[string]uint32),
		auxSeen: make(map[string]bool),
	}
	md := &Metadata{
		Name:        in.Type.Name,
		Modifiers:   in.Type.Modifiers.Names(),
		Interfaces:  typeNames(in.Type.Interfaces),
		Initializer: in.Initializer.Defined(),
		Auxiliary:   slices.Clone(in.Auxiliary),
	}
	if in.Type.HasSupertype() {
		md.Supertype = in.Type.Supertype.String()
	}
	for _, v := range in.Type.TypeVariables {
		md.TypeVariables = append(md.TypeVariables, TypeVariable{Symbol: v.Symbol, Bounds: typeNames(v.Bounds)})
	}

	typeAttr := in.TypeAttribute
	if typeAttr == nil {
		typeAttr = attribute.ForInstrumented[*description.Type]()
	}
	var typeSink attribute.Collector
	if err := typeAttr.Apply(&typeSink, in.Type); err != nil {
		return nil, wrap(err, in.Type.Name)
	}
	md.Annotations = annotations(typeSink.Annotations)
	sections := typeSink.Sections

	exported := make(map[string]bool)
	for _, rec := range in.Fields.Records() {
		vt, _ := description.ValType(rec.Field.Type)
		s.globals[rec.Field.Name] = uint32(len(s.module.Globals))
		s.module.Globals = append(s.module.Globals, wasm.Global{
			Type:    vt,
			Mutable: !rec.Field.Modifiers.Has(description.Final),
			Init:    wasm.ConstExpr(vt, rec.Bits),
		})
		s.module.Exports = append(s.module.Exports, wasm.Export{Name: rec.Field.Name, Kind: wasm.KindGlobal, Idx: s.globals[rec.Field.Name]})
		exported[rec.Field.Name] = true

		var sink attribute.Collector
		if err := rec.Attribute.Apply(&sink, rec.Field); err != nil {
			return nil, wrap(err, in.Type.Name, rec.Field.Name)
		}
		sections = append(sections, sink.Sections...)
		md.Fields = append(md.Fields, Field{
			Name:        rec.Field.Name,
			Type:        rec.Field.Type.String(),
			Modifiers:   rec.Field.Modifiers.Names(),
			Annotations: annotations(sink.Annotations),
			Default:     rec.Default,
		})
	}

	// Register every body first so methods can reference each other.
	names := make(map[string]int)
	var funcs []*methodFunc
	for _, rec := range in.Methods.Records() {
		if !rec.HasBody() {
			continue
		}
		f := &methodFunc{rec: rec, ref: s.defined(), code: bytecode.NewCode(len(rec.Method.Parameters))}
		s.module.Funcs = append(s.module.Funcs, 0)
		s.methods[rec.Method.Signature()] = f.ref
		funcs = append(funcs, f)
		names[rec.Method.Name]++
	}
	for _, f := range funcs {
		if err := f.rec.Appender.Apply(f.code, s, &f.rec.Method); err != nil {
			return nil, wrap(err, in.Type.Name, f.rec.Method.Name)
		}
	}

	var start *bytecode.Code
	if in.Initializer.Defined() {
		start = bytecode.NewCode(0)
		if err := in.Initializer.Appender().Apply(start, s, nil); err != nil {
			return nil, wrap(err, in.Type.Name, "<init>")
		}
	}

	exportName := make(map[description.SignatureToken]string)
	for i, f := range funcs {
		sig := f.rec.Method.Signature()
		s.module.Funcs[i] = s.module.AddType(bytecode.Signature(f.rec.Method))
		s.module.Code = append(s.module.Code, wasm.FuncBody{Locals: f.code.Locals(), Code: f.code.Encode(s.resolve)})

		idx := s.resolve(f.ref)
		qualified := sig.Qualified()
		s.module.Exports = append(s.module.Exports, wasm.Export{Name: qualified, Kind: wasm.KindFunc, Idx: idx})
		exportName[sig] = qualified
		if names[f.rec.Method.Name] == 1 && !exported[f.rec.Method.Name] {
			s.module.Exports = append(s.module.Exports, wasm.Export{Name: f.rec.Method.Name, Kind: wasm.KindFunc, Idx: idx})
			exportName[sig] = f.rec.Method.Name
		}
	}
	if start != nil {
		idx := uint32(len(s.module.Imports) + len(s.module.Funcs))
		s.module.Funcs = append(s.module.Funcs, s.module.AddType(wasm.FuncType{}))
		s.module.Code = append(s.module.Code, wasm.FuncBody{Locals: start.Locals(), Code: start.Encode(s.resolve)})
		s.module.Start = &idx
	}

	for _, rec := range in.Methods.Records() {
		var sink attribute.Collector
		if err := rec.Attribute.Apply(&sink, rec.Method); err != nil {
			return nil, wrap(err, in.Type.Name, rec.Method.Name)
		}
		sections = append(sections, sink.Sections...)
		md.Methods = append(md.Methods, methodMetadata(rec, exportName[rec.Method.Signature()], sink.Annotations))
	}

	for _, name := range s.aux {
		md.Auxiliary = appendUnique(md.Auxiliary, name.TypeName())
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEmit, errors.KindInvalidDefinition, err, "type descriptor is not serializable")
	}
	s.module.CustomSections = append(s.module.CustomSections, wasm.CustomSection{Name: MetadataSection, Data: data})
	s.module.CustomSections = append(s.module.CustomSections, sections...)

	for _, v := range in.Visitors {
		if err := v.Visit(in.Type, &s.module); err != nil {
			return nil, wrap(err, in.Type.Name)
		}
	}

	return &Output{Bytes: s.module.Encode(), Metadata: md, Auxiliary: s.aux}, nil
}

func methodMetadata(rec registry.MethodRecord, export string, anns []description.Annotation) Method {
	m := rec.Method
	out := Method{
		Name:        m.Name,
		Export:      export,
		Return:      m.Return.String(),
		Exceptions:  typeNames(m.Exceptions),
		Modifiers:   m.Modifiers.Names(),
		Annotations: annotations(anns),
		Handler:     rec.Handler.Kind().String(),
		Default:     m.DefaultValue,
	}
	for _, p := range m.Parameters {
		out.Parameters = append(out.Parameters, Parameter{Name: p.Name, Type: p.Type.String()})
	}
	return out
}

func appendUnique(list []string, name string) []string {
	if slices.Contains(list, name) {
		return list
	}
	return append(list, name)
}

func wrap(err error, path ...string) error {
	var de *errors.Error
	if stderrors.As(err, &de) {
		return err
	}
	return errors.New(errors.PhaseEmit, errors.KindInvalidDefinition).
		Path(path...).
		Cause(err).
		Detail("emission failed").
		Build()
}
