package dynamic

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/resource"
)

// Loaded is a type defined in a namespace together with its auxiliary
// types.
type Loaded struct {
	name     string
	metadata *emit.Metadata
	dt       *DynamicType
	ns       *loading.Namespace
	types    map[string]*loading.Type
}

// Name returns the main type name.
func (l *Loaded) Name() string { return l.name }

// Type returns the main loaded type.
func (l *Loaded) Type() *loading.Type { return l.types[l.name] }

// Metadata returns the descriptor of the main type.
func (l *Loaded) Metadata() *emit.Metadata { return l.metadata }

// Artifact returns the made type, or nil when the type was defined from a
// locator.
func (l *Loaded) Artifact() *DynamicType { return l.dt }

// Namespace returns the namespace the types were defined in.
func (l *Loaded) Namespace() *loading.Namespace { return l.ns }

// AllLoaded returns every loaded type by name.
func (l *Loaded) AllLoaded() map[string]*loading.Type {
	out := make(map[string]*loading.Type, len(l.types))
	for k, v := range l.types {
		out[k] = v
	}
	return out
}

// Initialize initializes the main type if that has not happened yet.
func (l *Loaded) Initialize(ctx context.Context) (loading.Live, error) {
	return l.Type().Live(ctx)
}

// Call invokes a method by name, or by name(params) when overloaded.
// Arguments are Go values converted to the parameter types; reference
// parameters take a resource.Handle. Results are decoded the same way, with
// reference results looked up in the namespace value table.
func (l *Loaded) Call(ctx context.Context, method string, args ...any) (any, error) {
	m, err := l.method(method)
	if err != nil {
		return nil, err
	}
	if len(args) != len(m.Parameters) {
		return nil, errors.InvalidInput(errors.PhaseDispatch,
			fmt.Sprintf("%s takes %d arguments, got %d", m.Export, len(m.Parameters), len(args)))
	}
	raw := make([]uint64, len(args))
	for i, p := range m.Parameters {
		ref, err := parseTypeRef(p.Type)
		if err != nil {
			return nil, err
		}
		if raw[i], err = encodeArg(ref, args[i]); err != nil {
			return nil, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
				Path(l.name, m.Export).
				Cause(err).
				Detail("argument %d", i).
				Build()
		}
	}

	live, err := l.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	fn := live.Module.ExportedFunction(m.Export)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseDispatch, "export", m.Export)
	}
	out, err := fn.Call(ctx, raw...)
	if err != nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindInstantiation).
			Path(l.name, m.Export).
			Cause(err).
			Detail("call failed").
			Build()
	}
	if len(out) == 0 {
		return nil, nil
	}
	ret, err := parseTypeRef(m.Return)
	if err != nil {
		return nil, err
	}
	return l.decode(ret, out[0]), nil
}

// Global returns the current value of a field, initializing the type first.
func (l *Loaded) Global(ctx context.Context, field string) (any, error) {
	f, ok := l.metadata.Field(field)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "field", field)
	}
	live, err := l.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	g := live.Module.ExportedGlobal(field)
	if g == nil {
		return nil, errors.NotFound(errors.PhaseDispatch, "global", field)
	}
	ref, err := parseTypeRef(f.Type)
	if err != nil {
		return nil, err
	}
	return l.decode(ref, g.Get()), nil
}

func (l *Loaded) method(name string) (emit.Method, error) {
	var candidates []emit.Method
	for _, m := range l.metadata.Methods {
		if m.Export == name || qualified(m) == name {
			return l.callable(m)
		}
		if m.Name == name {
			candidates = append(candidates, m)
		}
	}
	switch len(candidates) {
	case 0:
		return emit.Method{}, errors.NotFound(errors.PhaseDispatch, "method", name)
	case 1:
		return l.callable(candidates[0])
	}
	return emit.Method{}, errors.InvalidInput(errors.PhaseDispatch,
		fmt.Sprintf("method %s is overloaded; call it as name(params)", name))
}

func qualified(m emit.Method) string {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.Type
	}
	return m.Name + "(" + strings.Join(params, ",") + ")"
}

func (l *Loaded) callable(m emit.Method) (emit.Method, error) {
	if m.Export == "" {
		return emit.Method{}, errors.Unsupported(errors.PhaseDispatch, "calling bodiless method "+m.Name)
	}
	return m, nil
}

func (l *Loaded) decode(ref description.TypeRef, bits uint64) any {
	if _, ok := ref.(description.Primitive); ok {
		return description.DecodeValue(ref, bits)
	}
	h := resource.Handle(api.DecodeU32(bits))
	if h == 0 {
		return nil
	}
	if v, ok := l.ns.Values().Get(h); ok {
		return v
	}
	return h
}

func encodeArg(ref description.TypeRef, v any) (uint64, error) {
	if _, ok := ref.(description.Primitive); ok {
		return description.EncodeConstant(ref, v)
	}
	switch h := v.(type) {
	case nil:
		return 0, nil
	case resource.Handle:
		return api.EncodeU32(uint32(h)), nil
	}
	return 0, errors.InvalidInput(errors.PhaseDispatch, fmt.Sprintf("reference parameter of type %s takes a resource.Handle, got %T", ref, v))
}

// parseTypeRef reads back the type names stored in metadata. Only the
// distinction between primitives and references matters here.
func parseTypeRef(name string) (description.TypeRef, error) {
	if name == "void" {
		return description.Void, nil
	}
	if p, err := description.ParsePrimitive(name); err == nil {
		return p, nil
	}
	return description.Of(name), nil
}
