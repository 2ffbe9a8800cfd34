package dynamic

import (
	"context"
	"slices"

	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/scaffold"
)

// DynamicType is a made type with its auxiliary types. Immutable.
type DynamicType struct {
	typ         *description.Type
	bytes       []byte
	metadata    *emit.Metadata
	initializer scaffold.LoadedTypeInitializer
	aux         []*DynamicType
	resolved    ResolvedStrategy
}

// Name returns the type name.
func (d *DynamicType) Name() string { return d.typ.Name }

// TypeName implements bytecode.Auxiliary, so made types can be required by
// implementations of other types.
func (d *DynamicType) TypeName() string { return d.typ.Name }

// Description returns the finalized type.
func (d *DynamicType) Description() *description.Type { return d.typ }

// Bytes returns a copy of the binary.
func (d *DynamicType) Bytes() []byte { return slices.Clone(d.bytes) }

// Metadata returns the descriptor stored in the binary.
func (d *DynamicType) Metadata() *emit.Metadata { return d.metadata }

// Auxiliary returns the directly required types.
func (d *DynamicType) Auxiliary() []*DynamicType { return slices.Clone(d.aux) }

// LoadedTypeInitializer returns this type's own runtime-bound initializer.
func (d *DynamicType) LoadedTypeInitializer() scaffold.LoadedTypeInitializer { return d.initializer }

// Resolution returns the resolution chosen when the type was made.
func (d *DynamicType) Resolution() ResolvedStrategy { return d.resolved }

// AllTypes returns this type and every auxiliary type, transitively,
// dependencies first. Each name appears once.
func (d *DynamicType) AllTypes() []*DynamicType {
	var out []*DynamicType
	seen := make(map[string]bool)
	var walk func(t *DynamicType)
	walk = func(t *DynamicType) {
		if seen[t.Name()] {
			return
		}
		seen[t.Name()] = true
		for _, a := range t.aux {
			walk(a)
		}
		out = append(out, t)
	}
	walk(d)
	return out
}

// AllTypeBytes returns the binary of every type by name.
func (d *DynamicType) AllTypeBytes() map[string][]byte {
	out := make(map[string][]byte)
	for _, t := range d.AllTypes() {
		out[t.Name()] = t.Bytes()
	}
	return out
}

// LoadedTypeInitializers returns the initializer of every type by name.
func (d *DynamicType) LoadedTypeInitializers() map[string]scaffold.LoadedTypeInitializer {
	out := make(map[string]scaffold.LoadedTypeInitializer)
	for _, t := range d.AllTypes() {
		out[t.Name()] = t.initializer
	}
	return out
}

// HasAliveLoadedTypeInitializers reports whether any type needs an
// initializer run after loading.
func (d *DynamicType) HasAliveLoadedTypeInitializers() bool {
	for _, t := range d.AllTypes() {
		if t.initializer.IsAlive() {
			return true
		}
	}
	return false
}

func (d *DynamicType) definitions() []loading.Definition {
	all := d.AllTypes()
	defs := make([]loading.Definition, 0, len(all))
	for _, t := range all {
		deps := make([]string, 0, len(t.aux))
		for _, a := range t.aux {
			deps = append(deps, a.Name())
		}
		defs = append(defs, loading.Definition{Name: t.Name(), Bytes: t.bytes, Dependencies: deps})
	}
	return defs
}

// Load defines every type in ns and initializes them as the resolution
// strategy chosen at build time dictates. A nil strategy means
// loading.Default.
func (d *DynamicType) Load(ctx context.Context, ns *loading.Namespace, strategy loading.Strategy) (*Loaded, error) {
	return d.LoadWith(ctx, ns, strategy, d.resolved)
}

// LoadWith is Load with an explicit resolution.
func (d *DynamicType) LoadWith(ctx context.Context, ns *loading.Namespace, strategy loading.Strategy, resolved ResolvedStrategy) (*Loaded, error) {
	if strategy == nil {
		strategy = loading.Default
	}
	types, err := resolved.Initialize(ctx, d, ns, strategy)
	if err != nil {
		return nil, err
	}
	return &Loaded{name: d.Name(), metadata: d.metadata, dt: d, ns: ns, types: types}, nil
}
