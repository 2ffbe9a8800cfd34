package dynamic

import (
	"go.uber.org/zap"

	"github.com/wippyai/dyntype/attribute"
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/plist"
	"github.com/wippyai/dyntype/matcher"
	"github.com/wippyai/dyntype/registry"
	"github.com/wippyai/dyntype/scaffold"
)

// DefaultNamingSuffix is the suffix SuffixingRandom uses by default.
const DefaultNamingSuffix = "dyntype"

// Builder accumulates a type definition. The zero value is not usable;
// start from New or Subclass.
type Builder struct {
	it         scaffold.InstrumentedType
	fields     registry.FieldRegistry
	methods    registry.MethodRegistry
	ignored    matcher.Latent[description.Method]
	typeAttrs  plist.List[attribute.TypeAppender]
	visitors   plist.List[emit.Visitor]
	aux        plist.List[*DynamicType]
	resolution TypeResolutionStrategy
	naming     NamingStrategy
	emitter    emit.Emitter
	err        error
}

// New starts a public type extending Object.
func New() Builder {
	return Builder{
		it:         scaffold.NewInstrumentedType("", description.Public, description.Object),
		resolution: Passive{},
		naming:     SuffixingRandom(DefaultNamingSuffix),
		emitter:    emit.Writer{},
	}
}

// Subclass starts a type extending a previously made type. The parent
// becomes an auxiliary type and loads first.
func Subclass(parent *DynamicType) Builder {
	return New().Supertype(description.Of(parent.Name())).Require(parent)
}

// Err returns the first error recorded by a builder method.
func (b Builder) Err() error { return b.err }

// Instrumented returns the type definition accumulated so far.
func (b Builder) Instrumented() scaffold.InstrumentedType { return b.it }

func (b Builder) fail(err error) Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Name sets the type name.
func (b Builder) Name(name string) Builder {
	b.it = b.it.WithName(name)
	return b
}

// Modifiers replaces the type modifiers.
func (b Builder) Modifiers(mods description.Modifiers) Builder {
	b.it = b.it.WithModifiers(mods)
	return b
}

// Merge adds modifiers to the current ones.
func (b Builder) Merge(mods description.Modifiers) Builder {
	b.it = b.it.WithModifiers(b.it.Modifiers().With(mods))
	return b
}

// Supertype sets the type this one extends.
func (b Builder) Supertype(ref description.TypeRef) Builder {
	if ref == nil {
		return b.fail(errors.InvalidDefinition(errors.PhaseBuild, []string{b.it.Name()}, "supertype is nil"))
	}
	if description.ContainsSelf(ref) {
		return b.fail(errors.InvalidDefinition(errors.PhaseBuild, []string{b.it.Name()}, "type cannot extend itself"))
	}
	b.it = b.it.WithSupertype(ref)
	return b
}

// Implement adds interfaces.
func (b Builder) Implement(refs ...description.TypeRef) Builder {
	for _, r := range refs {
		if r == nil {
			return b.fail(errors.InvalidDefinition(errors.PhaseBuild, []string{b.it.Name()}, "interface is nil"))
		}
		if description.ContainsSelf(r) {
			return b.fail(errors.InvalidDefinition(errors.PhaseBuild, []string{b.it.Name()}, "type cannot implement itself"))
		}
	}
	b.it = b.it.WithInterfaces(refs...)
	return b
}

// TypeVariable declares a type variable.
func (b Builder) TypeVariable(symbol string, bounds ...description.TypeRef) Builder {
	tv := description.TypeVar(symbol, bounds...)
	if err := tv.Validate(b.it.Name()); err != nil {
		return b.fail(err)
	}
	b.it = b.it.WithTypeVariable(tv)
	return b
}

// Annotate adds type annotations.
func (b Builder) Annotate(annotations ...description.Annotation) Builder {
	b.it = b.it.WithAnnotations(annotations...)
	return b
}

// Initializer appends a block to the type's start function.
func (b Builder) Initializer(block bytecode.Appender) Builder {
	b.it = b.it.WithInitializer(block)
	return b
}

// InitializerFunc adds a runtime-bound initializer run when the type loads.
func (b Builder) InitializerFunc(init scaffold.LoadedTypeInitializer) Builder {
	b.it = b.it.WithLoadedInitializer(init)
	return b
}

// Ignore excludes matching methods from every registry entry; they get the
// default handler. Repeated calls widen the set.
func (b Builder) Ignore(latent matcher.Latent[description.Method]) Builder {
	if latent == nil {
		return b.fail(errors.InvalidInput(errors.PhaseBuild, "ignore matcher is nil"))
	}
	if b.ignored == nil {
		b.ignored = latent
	} else {
		b.ignored = matcher.Disjunction(b.ignored, latent)
	}
	return b
}

// Visit adds a hook that may rewrite the assembled module.
func (b Builder) Visit(v emit.Visitor) Builder {
	b.visitors = b.visitors.Append(v)
	return b
}

// Attribute adds a type attribute appender. The type's own annotations are
// always written first.
func (b Builder) Attribute(a attribute.TypeAppender) Builder {
	b.typeAttrs = b.typeAttrs.Append(a)
	return b
}

// Require adds auxiliary types loaded before this one.
func (b Builder) Require(aux ...*DynamicType) Builder {
	for _, a := range aux {
		if a == nil {
			return b.fail(errors.InvalidInput(errors.PhaseBuild, "auxiliary type is nil"))
		}
		b.aux = b.aux.Append(a)
	}
	return b
}

// Strategy sets the resolution strategy used by Make and Load.
func (b Builder) Strategy(s TypeResolutionStrategy) Builder {
	b.resolution = s
	return b
}

// Naming sets the strategy naming unnamed types.
func (b Builder) Naming(n NamingStrategy) Builder {
	b.naming = n
	return b
}

// Emitter replaces the binary emitter.
func (b Builder) Emitter(e emit.Emitter) Builder {
	b.emitter = e
	return b
}

// Make builds the type.
func (b Builder) Make() (*DynamicType, error) {
	if b.err != nil {
		return nil, b.err
	}

	it := b.it
	if it.Name() == "" {
		if b.naming == nil {
			return nil, errors.UnresolvedPlaceholder(errors.PhaseCompile, nil)
		}
		it = it.WithName(b.naming.Name(it))
	}
	resolved := b.resolution.Resolve()

	it = b.methods.Prepare(it)
	typ, ti, err := it.Validate()
	if err != nil {
		return nil, err
	}
	ti = resolved.InjectedInto(ti)

	fields, err := b.fields.Compile(typ)
	if err != nil {
		return nil, err
	}
	methods, err := b.methods.Compile(typ, b.ignored)
	if err != nil {
		return nil, err
	}

	aux := b.aux.Slice()
	auxNames := make([]string, 0, len(aux))
	for _, a := range aux {
		auxNames = append(auxNames, a.Name())
	}
	typeAttr := append(attribute.Compound[*description.Type]{attribute.ForInstrumented[*description.Type]()}, b.typeAttrs.Slice()...)

	out, err := b.emitter.Emit(emit.Input{
		Type:          typ,
		Fields:        fields,
		Methods:       methods,
		Initializer:   ti,
		TypeAttribute: typeAttr,
		Visitors:      b.visitors.Slice(),
		Auxiliary:     auxNames,
	})
	if err != nil {
		return nil, err
	}
	for _, a := range out.Auxiliary {
		dt, ok := a.(*DynamicType)
		if !ok {
			return nil, errors.Unsupported(errors.PhaseEmit, "auxiliary type "+a.TypeName()+" is not a made type")
		}
		if !containsType(aux, dt.Name()) {
			aux = append(aux, dt)
		}
	}

	dt := &DynamicType{
		typ:         typ,
		bytes:       out.Bytes,
		metadata:    out.Metadata,
		initializer: it.LoadedTypeInitializer(),
		aux:         aux,
		resolved:    resolved,
	}
	Logger().Debug("type made",
		zap.String("type", typ.Name),
		zap.Int("bytes", len(out.Bytes)),
		zap.Int("auxiliary", len(aux)),
		zap.Bool("live_initializers", dt.HasAliveLoadedTypeInitializers()))
	return dt, nil
}

func containsType(list []*DynamicType, name string) bool {
	for _, t := range list {
		if t.Name() == name {
			return true
		}
	}
	return false
}
