package loading

import (
	"context"

	"github.com/wippyai/dyntype/errors"
)

// Definition is one type to define.
type Definition struct {
	Name         string
	Bytes        []byte
	Dependencies []string
}

// Strategy defines types into a namespace. Definitions are ordered so that
// dependencies precede dependents; dependencies may also name types already
// defined in the namespace.
type Strategy interface {
	Load(ctx context.Context, ns *Namespace, defs []Definition) (map[string]*Type, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, ns *Namespace, defs []Definition) (map[string]*Type, error)

func (f StrategyFunc) Load(ctx context.Context, ns *Namespace, defs []Definition) (map[string]*Type, error) {
	return f(ctx, ns, defs)
}

var (
	// Default defines every type and fails if a name is already taken.
	Default Strategy = StrategyFunc(func(ctx context.Context, ns *Namespace, defs []Definition) (map[string]*Type, error) {
		return load(ctx, ns, defs, false)
	})

	// Reuse returns types already defined under the same name.
	Reuse Strategy = StrategyFunc(func(ctx context.Context, ns *Namespace, defs []Definition) (map[string]*Type, error) {
		return load(ctx, ns, defs, true)
	})
)

func load(ctx context.Context, ns *Namespace, defs []Definition, reuse bool) (map[string]*Type, error) {
	out := make(map[string]*Type, len(defs))
	for _, def := range defs {
		if reuse {
			if t, ok := ns.Lookup(def.Name); ok {
				out[def.Name] = t
				continue
			}
		}

		deps := make([]*Type, 0, len(def.Dependencies))
		for _, name := range def.Dependencies {
			dep, ok := out[name]
			if !ok {
				dep, ok = ns.Lookup(name)
			}
			if !ok {
				return nil, errors.NotFound(errors.PhaseLoad, "dependency", name)
			}
			deps = append(deps, dep)
		}

		t, err := ns.define(ctx, def.Name, def.Bytes, deps)
		if err != nil {
			return nil, err
		}
		out[def.Name] = t
	}
	return out, nil
}
