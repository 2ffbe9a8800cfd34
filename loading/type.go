package loading

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/dyntype/errors"
)

// Type is a type defined in a namespace.
type Type struct {
	ns       *Namespace
	compiled wazero.CompiledModule
	mod      api.Module
	err      error
	name     string
	deps     []*Type

	mu   sync.Mutex
	done bool
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Namespace returns the defining namespace.
func (t *Type) Namespace() *Namespace { return t.ns }

// Dependencies returns the types this type was defined against.
func (t *Type) Dependencies() []*Type { return t.deps }

// Compiled returns the compiled module.
func (t *Type) Compiled() wazero.CompiledModule { return t.compiled }

// Initialize instantiates the type, running its start function. It happens
// at most once; later calls return the first outcome. Dependencies
// initialize first.
func (t *Type) Initialize(ctx context.Context) (api.Module, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return t.mod, t.err
	}

	for _, dep := range t.deps {
		if _, err := dep.Initialize(ctx); err != nil {
			t.done, t.err = true, errors.Instantiation(t.name, err)
			return nil, t.err
		}
	}

	cfg := wazero.NewModuleConfig().WithName(t.name).WithStartFunctions()
	mod, err := t.ns.runtime.InstantiateModule(ctx, t.compiled, cfg)
	t.done = true
	if err != nil {
		t.err = errors.Instantiation(t.name, err)
		Logger().Warn("type initialization failed",
			zap.String("namespace", t.ns.name),
			zap.String("type", t.name),
			zap.Error(err))
		return nil, t.err
	}
	t.mod = mod
	Logger().Debug("type initialized", zap.String("namespace", t.ns.name), zap.String("type", t.name))
	return mod, nil
}

// Initialized reports whether Initialize has completed successfully.
func (t *Type) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done && t.err == nil
}

// Module returns the instance, or nil before initialization.
func (t *Type) Module() api.Module {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mod
}

// Live returns the loaded handle, initializing the type if needed.
func (t *Type) Live(ctx context.Context) (Live, error) {
	mod, err := t.Initialize(ctx)
	if err != nil {
		return Live{}, err
	}
	return Live{Namespace: t.ns, Module: mod}, nil
}
