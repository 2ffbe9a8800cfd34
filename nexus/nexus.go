package nexus

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/scaffold"
)

const (
	// HostModule is the module generated types import the bootstrap from.
	HostModule = "dyntype:nexus"

	// InitializeExport is the bootstrap function: initialize(id i32).
	InitializeExport = "initialize"

	// EnvDisabled disables the default nexus when set to a true value.
	EnvDisabled = "DYNTYPE_NEXUS_DISABLED"
)

type key struct {
	name string
	ns   weak.Pointer[loading.Namespace]
	nsID uint64
	id   int32
}

func newKey(name string, ns *loading.Namespace, id int32) key {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return key{name: name, ns: weak.Make(ns), nsID: ns.ID(), id: id}
}

// Nexus is a concurrent map of pending initializers. Thread-safe.
type Nexus struct {
	entries   sync.Map // key -> scaffold.LoadedTypeInitializer
	installed sync.Map // weak.Pointer[loading.Namespace] -> bool, true when bound to this nexus
	installs  singleflight.Group
	disabled  atomic.Bool
}

// New creates an empty, enabled nexus.
func New() *Nexus {
	return &Nexus{}
}

var defaultNexus = sync.OnceValue(func() *Nexus {
	n := New()
	if v, err := strconv.ParseBool(os.Getenv(EnvDisabled)); err == nil && v {
		n.Disable()
	}
	return n
})

// Default returns the process-wide nexus. It starts disabled when
// DYNTYPE_NEXUS_DISABLED is true.
func Default() *Nexus {
	return defaultNexus()
}

// Disable makes every later Install bind a no-op stub. Namespaces
// installed earlier keep dispatching.
func (n *Nexus) Disable() {
	if !n.disabled.Swap(true) {
		Logger().Info("nexus disabled")
	}
}

// Disabled reports whether the nexus was disabled.
func (n *Nexus) Disabled() bool { return n.disabled.Load() }

// Register stores init under (name, ns, id), replacing any existing entry.
func (n *Nexus) Register(name string, ns *loading.Namespace, id int32, init scaffold.LoadedTypeInitializer) {
	k := newKey(name, ns, id)
	if _, replaced := n.entries.Swap(k, init); replaced {
		Logger().Warn("initializer registration collided, replacing the previous entry",
			zap.String("type", k.name),
			zap.Uint64("namespace", k.nsID),
			zap.Int32("id", id))
		return
	}
	Logger().Debug("initializer registered",
		zap.String("type", k.name),
		zap.Uint64("namespace", k.nsID),
		zap.Int32("id", id))
}

// Dispatch takes the entry for the live type and id and runs it. A missing
// entry is not an error.
func (n *Nexus) Dispatch(ctx context.Context, live loading.Live, id int32) error {
	k := newKey(live.Name(), live.Namespace, id)
	v, ok := n.entries.LoadAndDelete(k)
	if !ok {
		Logger().Debug("no initializer pending", zap.String("type", k.name), zap.Int32("id", id))
		return nil
	}
	Logger().Debug("dispatching initializer", zap.String("type", k.name), zap.Int32("id", id))
	return v.(scaffold.LoadedTypeInitializer).OnLoad(ctx, live)
}

// Clean removes the entry for (name, ns, id) and reports whether one existed.
func (n *Nexus) Clean(name string, ns *loading.Namespace, id int32) bool {
	_, ok := n.entries.LoadAndDelete(newKey(name, ns, id))
	return ok
}

// CleanStaleEntries removes entries whose namespace was closed or
// collected and returns how many were removed.
func (n *Nexus) CleanStaleEntries() int {
	removed := 0
	n.entries.Range(func(k, _ any) bool {
		if stale(k.(key).ns) {
			if _, ok := n.entries.LoadAndDelete(k); ok {
				removed++
			}
		}
		return true
	})
	n.installed.Range(func(k, _ any) bool {
		if stale(k.(weak.Pointer[loading.Namespace])) {
			n.installed.Delete(k)
		}
		return true
	})
	if removed > 0 {
		Logger().Info("stale initializers removed", zap.Int("count", removed))
	}
	return removed
}

func stale(p weak.Pointer[loading.Namespace]) bool {
	ns := p.Value()
	return ns == nil || ns.Closed()
}

// Len returns the number of pending entries.
func (n *Nexus) Len() int {
	count := 0
	n.entries.Range(func(any, any) bool {
		count++
		return true
	})
	return count
}

// Install binds the host module to ns and reports whether it dispatches to
// this nexus. A disabled nexus binds a stub so bootstrapped types still
// instantiate. Repeated and concurrent calls are safe.
func (n *Nexus) Install(ctx context.Context, ns *loading.Namespace) (bool, error) {
	if ns.Closed() {
		return false, errors.DispatcherUnavailable("namespace is closed", nil)
	}
	wp := weak.Make(ns)
	if dispatching, ok := n.installed.Load(wp); ok {
		return dispatching.(bool), nil
	}

	v, err, _ := n.installs.Do(strconv.FormatUint(ns.ID(), 10), func() (any, error) {
		if dispatching, ok := n.installed.Load(wp); ok {
			return dispatching, nil
		}
		dispatching := !n.Disabled()
		created, err := ns.EnsureHostModule(ctx, HostModule, func(b wazero.HostModuleBuilder) wazero.HostModuleBuilder {
			fn := n.stub()
			if dispatching {
				fn = n.bootstrap(wp)
			}
			return b.NewFunctionBuilder().
				WithGoModuleFunction(fn, []api.ValueType{api.ValueTypeI32}, nil).
				Export(InitializeExport)
		})
		if err != nil {
			return false, errors.DispatcherUnavailable("failed to install host module", err)
		}
		if !created {
			// Bound by another nexus; its entries are not ours to dispatch.
			dispatching = false
		}
		n.installed.Store(wp, dispatching)
		Logger().Debug("nexus installed",
			zap.String("namespace", ns.Name()),
			zap.Bool("dispatching", dispatching))
		return dispatching, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (n *Nexus) bootstrap(wp weak.Pointer[loading.Namespace]) api.GoModuleFunction {
	return api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		ns := wp.Value()
		if ns == nil {
			return
		}
		id := api.DecodeI32(stack[0])
		if err := n.Dispatch(ctx, loading.Live{Namespace: ns, Module: mod}, id); err != nil {
			panic(err)
		}
	})
}

func (n *Nexus) stub() api.GoModuleFunction {
	return api.GoModuleFunc(func(context.Context, api.Module, []uint64) {})
}
