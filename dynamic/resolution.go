package dynamic

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/nexus"
	"github.com/wippyai/dyntype/scaffold"
)

// TypeResolutionStrategy decides how runtime-bound initializers reach a
// loaded type. Resolve is called once per Make.
type TypeResolutionStrategy interface {
	Resolve() ResolvedStrategy
}

// ResolvedStrategy is a strategy bound to one build.
type ResolvedStrategy interface {
	// InjectedInto returns the start function blocks of the type.
	InjectedInto(ti scaffold.TypeInitializer) scaffold.TypeInitializer

	// Initialize defines every type of dt in ns and runs initializers.
	Initialize(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error)
}

// Passive initializes every type right after loading and runs its
// initializer directly.
type Passive struct{}

func (Passive) Resolve() ResolvedStrategy { return Passive{} }

func (Passive) InjectedInto(ti scaffold.TypeInitializer) scaffold.TypeInitializer { return ti }

func (Passive) Initialize(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error) {
	types, err := define(ctx, dt, ns, strategy)
	if err != nil {
		return nil, err
	}
	for _, t := range dt.AllTypes() {
		if err := initializeDirectly(ctx, t, types[t.Name()]); err != nil {
			return nil, err
		}
	}
	return types, nil
}

// Active hands the main type's initializer to its own start function
// through the nexus, so it runs on first use in whatever namespace loads
// the type. Auxiliary types are initialized directly.
//
// When the nexus cannot dispatch into the namespace, Active falls back to
// Passive unless Require is set, in which case loading fails with
// ErrDispatcherUnavailable.
type Active struct {
	Require bool
	Nexus   *nexus.Nexus // nil means nexus.Default()
}

// Resolve picks the correlation id of this build.
func (a Active) Resolve() ResolvedStrategy {
	n := a.Nexus
	if n == nil {
		n = nexus.Default()
	}
	return &ActiveResolved{id: rand.Int32(), require: a.Require, accessor: n.Accessor()}
}

// ActiveResolved is an Active strategy with a fixed correlation id.
type ActiveResolved struct {
	id       int32
	require  bool
	accessor nexus.Accessor
}

// ID returns the correlation id.
func (r *ActiveResolved) ID() int32 { return r.id }

// InjectedInto places the nexus bootstrap before every other block so the
// initializer has run when user blocks execute.
func (r *ActiveResolved) InjectedInto(ti scaffold.TypeInitializer) scaffold.TypeInitializer {
	return ti.Prepend(nexus.BootstrapAppender(r.id))
}

func (r *ActiveResolved) Initialize(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error) {
	dispatching, err := r.accessor.Install(ctx, ns)
	if err != nil {
		return nil, err
	}
	if !dispatching || !r.accessor.IsAlive() {
		if r.require {
			return nil, errors.DispatcherUnavailable("nexus cannot dispatch into namespace "+ns.Name(), nil)
		}
		Logger().Warn("nexus unavailable, initializing passively",
			zap.String("type", dt.Name()),
			zap.String("namespace", ns.Name()))
		return Passive{}.Initialize(ctx, dt, ns, strategy)
	}

	types, err := define(ctx, dt, ns, strategy)
	if err != nil {
		return nil, err
	}
	if err := r.accessor.Register(ctx, dt.Name(), ns, r.id, dt.initializer); err != nil {
		return nil, err
	}
	for _, t := range dt.AllTypes() {
		if t == dt {
			continue
		}
		if err := initializeDirectly(ctx, t, types[t.Name()]); err != nil {
			return nil, err
		}
	}
	return types, nil
}

// Lazy only defines the types. Initializers never run.
type Lazy struct{}

func (Lazy) Resolve() ResolvedStrategy { return Lazy{} }

func (Lazy) InjectedInto(ti scaffold.TypeInitializer) scaffold.TypeInitializer { return ti }

func (Lazy) Initialize(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error) {
	return define(ctx, dt, ns, strategy)
}

// Disabled refuses types with live initializers and otherwise behaves like
// Lazy.
type Disabled struct{}

func (Disabled) Resolve() ResolvedStrategy { return Disabled{} }

func (Disabled) InjectedInto(ti scaffold.TypeInitializer) scaffold.TypeInitializer { return ti }

func (Disabled) Initialize(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error) {
	for _, t := range dt.AllTypes() {
		if t.initializer.IsAlive() {
			return nil, errors.LiveInitializers(t.Name())
		}
	}
	return define(ctx, dt, ns, strategy)
}

// ParseStrategy maps a configuration name to a strategy: passive, active,
// active-required, lazy or disabled.
func ParseStrategy(name string) (TypeResolutionStrategy, error) {
	switch name {
	case "", "passive":
		return Passive{}, nil
	case "active":
		return Active{}, nil
	case "active-required":
		return Active{Require: true}, nil
	case "lazy":
		return Lazy{}, nil
	case "disabled":
		return Disabled{}, nil
	}
	return nil, errors.InvalidInput(errors.PhaseConfig, "unknown resolution strategy "+name)
}

// define loads every type of dt, first binding the nexus host module when
// any of them carries a bootstrap.
func define(ctx context.Context, dt *DynamicType, ns *loading.Namespace, strategy loading.Strategy) (map[string]*loading.Type, error) {
	for _, t := range dt.AllTypes() {
		if active, ok := t.resolved.(*ActiveResolved); ok {
			if _, err := active.accessor.Install(ctx, ns); err != nil {
				return nil, err
			}
		}
	}
	return strategy.Load(ctx, ns, dt.definitions())
}

func initializeDirectly(ctx context.Context, t *DynamicType, lt *loading.Type) error {
	live, err := lt.Live(ctx)
	if err != nil {
		return err
	}
	if !t.initializer.IsAlive() {
		return nil
	}
	if err := t.initializer.OnLoad(ctx, live); err != nil {
		return errors.New(errors.PhaseInitialize, errors.KindInstantiation).
			Path(t.Name()).
			Cause(err).
			Detail("loaded type initializer failed").
			Build()
	}
	return nil
}
