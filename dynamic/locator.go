package dynamic

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/nexus"
)

// Resolution is the outcome of locating a type binary.
type Resolution struct {
	Name     string
	Resolved bool
	Bytes    []byte
}

// Illegal marks a name no locator could resolve.
func Illegal(name string) Resolution { return Resolution{Name: name} }

// Locator finds type binaries by name. A name that is not found yields an
// illegal resolution, not an error; errors are reserved for failed reads.
type Locator interface {
	Locate(name string) (Resolution, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(name string) (Resolution, error)

func (f LocatorFunc) Locate(name string) (Resolution, error) { return f(name) }

// ForArtifact locates the types of a made type, auxiliary types included.
func ForArtifact(dt *DynamicType) Locator {
	all := dt.AllTypes()
	return LocatorFunc(func(name string) (Resolution, error) {
		for _, t := range all {
			if t.Name() == name {
				return Resolution{Name: name, Resolved: true, Bytes: t.Bytes()}, nil
			}
		}
		return Illegal(name), nil
	})
}

// ForDir locates types written by Persist.
func ForDir(dir string) Locator {
	return LocatorFunc(func(name string) (Resolution, error) {
		if !validName(name) {
			return Illegal(name), nil
		}
		bin, err := os.ReadFile(filepath.Join(dir, typePath(name)))
		if os.IsNotExist(err) {
			return Illegal(name), nil
		}
		if err != nil {
			return Resolution{}, errors.IO(errors.PhaseLoad, "read "+name, err)
		}
		return Resolution{Name: name, Resolved: true, Bytes: bin}, nil
	})
}

// Compound asks each locator in turn and returns the first resolved result.
func Compound(locators ...Locator) Locator {
	return LocatorFunc(func(name string) (Resolution, error) {
		for _, l := range locators {
			res, err := l.Locate(name)
			if err != nil {
				return Resolution{}, err
			}
			if res.Resolved {
				return res, nil
			}
		}
		return Illegal(name), nil
	})
}

// typePath maps a dotted type name to its relative file path.
func typePath(name string) string {
	return filepath.FromSlash(strings.ReplaceAll(name, ".", "/")) + ".wasm"
}

// validName rejects names that would escape the target directory.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
	}
	return true
}

// Define resolves name and, transitively, the auxiliary types listed in
// its descriptor through l, and defines them in ns dependencies first.
// Auxiliary types l cannot resolve may already be defined in ns.
// Runtime-bound initializers are not part of a binary, so none run; the
// nexus host module is bound when any type has a start function, since
// types built with the active strategy import it.
func Define(ctx context.Context, ns *loading.Namespace, l Locator, name string, strategy loading.Strategy) (*Loaded, error) {
	if strategy == nil {
		strategy = loading.Default
	}

	var (
		defs       []loading.Definition
		main       *emit.Metadata
		needsNexus bool
	)
	const visiting, done = 1, 2
	state := make(map[string]int)
	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case visiting:
			return errors.InvalidDefinition(errors.PhaseLoad, []string{n}, "auxiliary types form a cycle")
		case done:
			return nil
		}
		state[n] = visiting

		res, err := l.Locate(n)
		if err != nil {
			return err
		}
		if !res.Resolved {
			if _, ok := ns.Lookup(n); ok && n != name {
				state[n] = done
				return nil
			}
			return errors.NotFound(errors.PhaseLoad, "type", n)
		}
		md, err := emit.ReadMetadata(res.Bytes)
		if err != nil {
			return err
		}
		for _, dep := range md.Auxiliary {
			if err := visit(dep); err != nil {
				return err
			}
		}
		if n == name {
			main = md
		}
		needsNexus = needsNexus || md.Initializer
		defs = append(defs, loading.Definition{Name: n, Bytes: res.Bytes, Dependencies: md.Auxiliary})
		state[n] = done
		return nil
	}
	if err := visit(name); err != nil {
		return nil, err
	}

	if needsNexus {
		if _, err := nexus.DefaultAccessor().Install(ctx, ns); err != nil {
			return nil, err
		}
	}
	types, err := strategy.Load(ctx, ns, defs)
	if err != nil {
		return nil, err
	}
	return &Loaded{name: name, metadata: main, ns: ns, types: types}, nil
}
