package loading

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/resource"
)

var namespaceIDs atomic.Uint64

type options struct {
	name          string
	runtimeConfig wazero.RuntimeConfig
	runtime       wazero.Runtime
}

// Option configures a Namespace.
type Option func(*options)

// WithName sets a human-readable namespace name used in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(cfg wazero.RuntimeConfig) Option {
	return func(o *options) { o.runtimeConfig = cfg }
}

// WithRuntime wraps an existing runtime instead of creating one. The
// namespace takes ownership and closes it on Close.
func WithRuntime(rt wazero.Runtime) Option {
	return func(o *options) { o.runtime = rt }
}

// Namespace is an isolated loading namespace. Thread-safe.
type Namespace struct {
	runtime wazero.Runtime
	values  *resource.Table
	types   map[string]*Type
	name    string
	id      uint64

	mu           sync.RWMutex
	hostModuleMu sync.Mutex
	closed       atomic.Bool
}

// New creates a namespace with its own runtime and installs the dispatch
// host module.
func New(ctx context.Context, opts ...Option) (*Namespace, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	rt := o.runtime
	if rt == nil {
		cfg := o.runtimeConfig
		if cfg == nil {
			cfg = wazero.NewRuntimeConfig()
		}
		rt = wazero.NewRuntimeWithConfig(ctx, cfg)
	}

	ns := &Namespace{
		runtime: rt,
		values:  resource.NewTable(),
		types:   make(map[string]*Type),
		name:    o.name,
		id:      namespaceIDs.Add(1),
	}
	if ns.name == "" {
		ns.name = "ns"
	}
	ns.values.Subscribe(valueLog{namespace: ns.name})

	if _, err := ns.EnsureHostModule(ctx, DispatchModule, ns.defineDispatch); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	Logger().Debug("namespace created", zap.String("name", ns.name), zap.Uint64("id", ns.id))
	return ns, nil
}

// ID returns a process-unique namespace id.
func (n *Namespace) ID() uint64 { return n.id }

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

// Runtime returns the underlying wazero runtime.
func (n *Namespace) Runtime() wazero.Runtime { return n.runtime }

// Values returns the live value table.
func (n *Namespace) Values() *resource.Table { return n.values }

// Closed reports whether Close was called.
func (n *Namespace) Closed() bool { return n.closed.Load() }

// Close releases the runtime and every live value.
func (n *Namespace) Close(ctx context.Context) error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	n.values.Close()
	Logger().Debug("namespace closed", zap.String("name", n.name), zap.Uint64("id", n.id))
	return n.runtime.Close(ctx)
}

// EnsureHostModule instantiates a host module named name unless a module
// with that name already exists. Reports whether it was installed now.
func (n *Namespace) EnsureHostModule(ctx context.Context, name string, define func(wazero.HostModuleBuilder) wazero.HostModuleBuilder) (bool, error) {
	n.hostModuleMu.Lock()
	defer n.hostModuleMu.Unlock()

	if n.Closed() {
		return false, errors.InvalidInput(errors.PhaseLoad, "namespace is closed")
	}
	if mod := n.runtime.Module(name); mod != nil {
		return false, nil
	}

	if _, err := define(n.runtime.NewHostModuleBuilder(name)).Instantiate(ctx); err != nil {
		return false, errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Path(n.name, name).
			Cause(err).
			Detail("failed to install host module").
			Build()
	}
	return true, nil
}

// HasModule reports whether a module named name is instantiated.
func (n *Namespace) HasModule(name string) bool {
	return n.runtime.Module(name) != nil
}

// Lookup returns a defined type.
func (n *Namespace) Lookup(name string) (*Type, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	t, ok := n.types[name]
	return t, ok
}

// Types returns the names of every defined type, sorted.
func (n *Namespace) Types() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.types))
	for name := range n.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// define compiles bin and records the type under name.
func (n *Namespace) define(ctx context.Context, name string, bin []byte, deps []*Type) (*Type, error) {
	if n.Closed() {
		return nil, errors.InvalidInput(errors.PhaseLoad, "namespace is closed")
	}
	if _, exists := n.Lookup(name); exists {
		return nil, errors.AlreadyDefined(name)
	}

	compiled, err := n.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(n.name, name).
			Cause(err).
			Detail("failed to compile type").
			Build()
	}

	n.mu.Lock()
	if _, exists := n.types[name]; exists {
		n.mu.Unlock()
		compiled.Close(ctx)
		return nil, errors.AlreadyDefined(name)
	}
	t := &Type{name: name, ns: n, compiled: compiled, deps: deps}
	n.types[name] = t
	n.mu.Unlock()

	Logger().Debug("type defined", zap.String("namespace", n.name), zap.String("type", name))
	return t, nil
}

// valueLog traces runtime-bound values entering and leaving the table.
type valueLog struct {
	namespace string
}

func (v valueLog) OnResourceEvent(e resource.Event) {
	msg := "value bound"
	if e.Type == resource.EventDropped {
		msg = "value released"
	}
	Logger().Debug(msg, zap.String("namespace", v.namespace), zap.Uint32("handle", uint32(e.Handle)))
}

// Live is a type whose module instance exists. It is what initializer
// callbacks receive.
type Live struct {
	Namespace *Namespace
	Module    api.Module
}

// Name returns the type name.
func (l Live) Name() string { return l.Module.Name() }
