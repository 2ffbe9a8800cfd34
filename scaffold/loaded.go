package scaffold

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
)

// LoadedTypeInitializer binds runtime state to a loaded type. OnLoad runs
// at most once per loaded type.
type LoadedTypeInitializer interface {
	OnLoad(ctx context.Context, live loading.Live) error
	// IsAlive reports whether OnLoad does anything. Dead initializers are
	// never registered for dispatch.
	IsAlive() bool
}

type noOp struct{}

func (noOp) OnLoad(context.Context, loading.Live) error { return nil }
func (noOp) IsAlive() bool { return false }

// NoOp does nothing and is not alive.
var NoOp LoadedTypeInitializer = noOp{}

// ForField stores value in the namespace value table and writes its handle
// into the exported mutable global backing field.
type ForField struct {
	Field string
	Value any
}

func (f ForField) OnLoad(_ context.Context, live loading.Live) error {
	g := live.Module.ExportedGlobal(f.Field)
	if g == nil {
		return errors.NotFound(errors.PhaseInitialize, "field", f.Field)
	}
	mg, ok := g.(api.MutableGlobal)
	if !ok {
		return errors.New(errors.PhaseInitialize, errors.KindInvalidDefinition).
			Path(live.Name(), f.Field).
			Detail("field is final and cannot receive a live value").
			Build()
	}
	h := live.Namespace.Values().Insert(f.Value)
	if h == 0 {
		return errors.InvalidInput(errors.PhaseInitialize, "namespace value table is closed")
	}
	mg.Set(api.EncodeU32(uint32(h)))
	return nil
}

func (ForField) IsAlive() bool { return true }

// Func adapts a function to an always-alive initializer.
type Func func(ctx context.Context, live loading.Live) error

func (f Func) OnLoad(ctx context.Context, live loading.Live) error { return f(ctx, live) }
func (Func) IsAlive() bool { return true }

// Compound runs initializers in order.
type Compound struct {
	initializers []LoadedTypeInitializer
}

// NewCompound flattens nested compounds and drops dead initializers.
// It returns NoOp when nothing alive remains and the single initializer
// when exactly one does.
func NewCompound(initializers ...LoadedTypeInitializer) LoadedTypeInitializer {
	var flat []LoadedTypeInitializer
	for _, i := range initializers {
		switch v := i.(type) {
		case nil:
		case *Compound:
			flat = append(flat, v.initializers...)
		default:
			if v.IsAlive() {
				flat = append(flat, v)
			}
		}
	}
	switch len(flat) {
	case 0:
		return NoOp
	case 1:
		return flat[0]
	}
	return &Compound{initializers: flat}
}

func (c *Compound) OnLoad(ctx context.Context, live loading.Live) error {
	for _, i := range c.initializers {
		if err := i.OnLoad(ctx, live); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compound) IsAlive() bool {
	for _, i := range c.initializers {
		if i.IsAlive() {
			return true
		}
	}
	return false
}

// Initializers returns the flattened children.
func (c *Compound) Initializers() []LoadedTypeInitializer {
	return append([]LoadedTypeInitializer(nil), c.initializers...)
}
