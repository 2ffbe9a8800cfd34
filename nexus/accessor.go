package nexus

import (
	"context"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/scaffold"
)

// Accessor is what resolution strategies use to reach a nexus.
type Accessor struct {
	nexus *Nexus
}

// Accessor returns an accessor bound to n.
func (n *Nexus) Accessor() Accessor {
	return Accessor{nexus: n}
}

// DefaultAccessor is bound to the process-wide nexus.
func DefaultAccessor() Accessor {
	return Default().Accessor()
}

// IsAlive reports whether registrations can be dispatched at all.
func (a Accessor) IsAlive() bool {
	return a.nexus != nil && !a.nexus.Disabled()
}

// Nexus returns the underlying nexus.
func (a Accessor) Nexus() *Nexus { return a.nexus }

// Install binds the host module into ns and reports whether the nexus
// will dispatch there.
func (a Accessor) Install(ctx context.Context, ns *loading.Namespace) (bool, error) {
	if a.nexus == nil {
		return false, errors.DispatcherUnavailable("no nexus", nil)
	}
	return a.nexus.Install(ctx, ns)
}

// Register installs the nexus into ns and registers init. Initializers
// that are not alive are skipped. When the nexus cannot dispatch into ns,
// Register fails with ErrDispatcherUnavailable and registers nothing.
func (a Accessor) Register(ctx context.Context, name string, ns *loading.Namespace, id int32, init scaffold.LoadedTypeInitializer) error {
	if init == nil || !init.IsAlive() {
		return nil
	}
	dispatching, err := a.Install(ctx, ns)
	if err != nil {
		return err
	}
	if !dispatching {
		return errors.DispatcherUnavailable("nexus does not dispatch into namespace "+ns.Name(), nil)
	}
	a.nexus.Register(name, ns, id, init)
	return nil
}

// BootstrapAppender is the initializer block calling initialize(id).
func BootstrapAppender(id int32) bytecode.Appender {
	return bytecode.AppenderFunc(func(code *bytecode.Code, ctx bytecode.Context, _ *description.Method) error {
		fn := ctx.Import(HostModule, InitializeExport, wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
		code.I32Const(id).Call(fn)
		return nil
	})
}
