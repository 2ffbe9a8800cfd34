package dyntype

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/dyntype/config"
	"github.com/wippyai/dyntype/dynamic"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/nexus"
)

// Factory creates builders and namespaces configured from a Config.
type Factory struct {
	cfg      *config.Config
	logger   *zap.Logger
	nexus    *nexus.Nexus
	strategy dynamic.TypeResolutionStrategy
	naming   dynamic.NamingStrategy
}

// Option customizes a Factory.
type Option func(*Factory)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// WithNexus dispatches active initializers through n instead of the
// process-wide nexus.
func WithNexus(n *nexus.Nexus) Option {
	return func(f *Factory) { f.nexus = n }
}

// New validates cfg and returns a factory. A nil cfg means config.Default.
// The logger is installed into the loading, nexus and dynamic packages.
// When the configuration disables the nexus, a nexus given with WithNexus
// is disabled; otherwise the factory gets a private disabled nexus and the
// process-wide one is left untouched.
func New(cfg *config.Config, opts ...Option) (*Factory, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Factory{cfg: cfg}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		l, err := cfg.Logger()
		if err != nil {
			return nil, err
		}
		f.logger = l
	}
	switch {
	case f.nexus == nil && cfg.Nexus.Disabled:
		f.nexus = nexus.New()
		f.nexus.Disable()
	case f.nexus == nil:
		f.nexus = nexus.Default()
	case cfg.Nexus.Disabled:
		f.nexus.Disable()
	}

	strategy, err := dynamic.ParseStrategy(cfg.Resolution)
	if err != nil {
		return nil, err
	}
	if active, ok := strategy.(dynamic.Active); ok {
		active.Nexus = f.nexus
		strategy = active
	}
	f.strategy = strategy

	suffix := cfg.Naming.Suffix
	if suffix == "" {
		suffix = dynamic.DefaultNamingSuffix
	}
	f.naming = dynamic.SuffixingRandom(suffix)

	loading.SetLogger(f.logger.Named("loading"))
	nexus.SetLogger(f.logger.Named("nexus"))
	dynamic.SetLogger(f.logger.Named("dynamic"))
	return f, nil
}

// Config returns the configuration the factory was built from.
func (f *Factory) Config() *config.Config { return f.cfg }

// Logger returns the factory logger.
func (f *Factory) Logger() *zap.Logger { return f.logger }

// Nexus returns the nexus active types dispatch through.
func (f *Factory) Nexus() *nexus.Nexus { return f.nexus }

// Strategy returns the configured resolution strategy.
func (f *Factory) Strategy() dynamic.TypeResolutionStrategy { return f.strategy }

// Builder starts a type with the configured strategy and naming.
func (f *Factory) Builder() dynamic.Builder {
	return dynamic.New().Strategy(f.strategy).Naming(f.naming)
}

// Subclass starts a type extending parent with the configured strategy
// and naming.
func (f *Factory) Subclass(parent *dynamic.DynamicType) dynamic.Builder {
	return dynamic.Subclass(parent).Strategy(f.strategy).Naming(f.naming)
}

// Namespace creates a namespace with the nexus host module bound, so
// types built with any strategy load into it.
func (f *Factory) Namespace(ctx context.Context, opts ...loading.Option) (*loading.Namespace, error) {
	ns, err := loading.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := f.nexus.Install(ctx, ns); err != nil {
		ns.Close(ctx)
		return nil, err
	}
	return ns, nil
}

// Persist writes dt under the configured directory. With archiving
// enabled it writes <dir>/<name>.tar.gz instead and returns that path
// under the type name.
func (f *Factory) Persist(dt *dynamic.DynamicType) (map[string]string, error) {
	dir := f.cfg.Persist.Dir
	if dir == "" {
		dir = "."
	}
	if !f.cfg.Persist.Archive {
		return dt.Persist(dir)
	}

	if strings.ContainsAny(dt.Name(), `/\`) {
		return nil, errors.InvalidInput(errors.PhasePersist, "type name cannot be archived: "+dt.Name())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.IO(errors.PhasePersist, "mkdir "+dir, err)
	}
	path := filepath.Join(dir, dt.Name()+".tar.gz")
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.IO(errors.PhasePersist, "create "+path, err)
	}
	if err := dt.Archive(file); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, errors.IO(errors.PhasePersist, "close "+path, err)
	}
	f.logger.Debug("archived type", zap.String("type", dt.Name()), zap.String("path", path))
	return map[string]string{dt.Name(): path}, nil
}
