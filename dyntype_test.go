package dyntype

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/dyntype/config"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/dynamic"
	dterrors "github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/implementation"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/nexus"
)

func TestFactoryDefaults(t *testing.T) {
	f, err := New(nil, WithLogger(zap.NewNop()), WithNexus(nexus.New()))
	require.NoError(t, err)
	require.Equal(t, dynamic.Passive{}, f.Strategy())

	dt, err := f.Builder().Make()
	require.NoError(t, err)
	require.Contains(t, dt.Name(), "$dyntype$")
}

func TestFactoryActive(t *testing.T) {
	cfg := config.Default()
	cfg.Resolution = "active"
	cfg.Naming.Suffix = "gen"
	n := nexus.New()
	f, err := New(cfg, WithLogger(zap.NewNop()), WithNexus(n))
	require.NoError(t, err)
	require.Equal(t, dynamic.Active{Nexus: n}, f.Strategy())

	var calls int
	dt, err := f.Builder().
		DefineMethod("next", description.Int, description.Public).
		Intercept(implementation.Delegate(func(context.Context, implementation.Call) (uint64, error) {
			calls++
			return uint64(calls), nil
		})).
		Make()
	require.NoError(t, err)
	require.Contains(t, dt.Name(), "$gen$")

	ctx := context.Background()
	ns, err := f.Namespace(ctx)
	require.NoError(t, err)
	defer ns.Close(ctx)

	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.Equal(t, 1, n.Len())
	v, err := loaded.Call(ctx, "next")
	require.NoError(t, err)
	require.Equal(t, int32(1), v)
	require.Zero(t, n.Len())
}

func TestFactoryDisabledNexus(t *testing.T) {
	cfg := config.Default()
	cfg.Resolution = "active-required"
	cfg.Nexus.Disabled = true
	n := nexus.New()
	f, err := New(cfg, WithLogger(zap.NewNop()), WithNexus(n))
	require.NoError(t, err)
	require.True(t, n.Disabled())

	dt, err := f.Builder().Name("app.Strict").
		DefineMethod("get", description.Object, description.Public).
		Intercept(implementation.Reference("payload")).
		Make()
	require.NoError(t, err)

	ctx := context.Background()
	ns, err := f.Namespace(ctx)
	require.NoError(t, err)
	defer ns.Close(ctx)
	_, err = dt.Load(ctx, ns, nil)
	require.ErrorIs(t, err, dterrors.ErrDispatcherUnavailable)
}

func TestDisabledConfigKeepsSharedNexus(t *testing.T) {
	cfg := config.Default()
	cfg.Nexus.Disabled = true
	disabled, err := New(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.True(t, disabled.Nexus().Disabled())
	require.NotSame(t, nexus.Default(), disabled.Nexus())

	enabled, err := New(config.Default(), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.Same(t, nexus.Default(), enabled.Nexus())
	require.False(t, enabled.Nexus().Disabled())
	require.True(t, nexus.DefaultAccessor().IsAlive())
}

func TestFactoriesBuiltWhileLoading(t *testing.T) {
	ctx := context.Background()
	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			_, err := New(nil, WithLogger(zap.NewNop()), WithNexus(nexus.New()))
			return err
		})
		g.Go(func() error {
			ns, err := loading.New(ctx)
			if err != nil {
				return err
			}
			return ns.Close(ctx)
		})
	}
	require.NoError(t, g.Wait())
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Resolution = "eager"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestFactoryPersist(t *testing.T) {
	cfg := config.Default()
	cfg.Persist.Dir = t.TempDir()
	f, err := New(cfg, WithLogger(zap.NewNop()), WithNexus(nexus.New()))
	require.NoError(t, err)

	dt, err := f.Builder().Name("app.Saved").Make()
	require.NoError(t, err)
	paths, err := f.Persist(dt)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Persist.Dir, "app", "Saved.wasm"), paths["app.Saved"])

	cfg.Persist.Archive = true
	paths, err = f.Persist(dt)
	require.NoError(t, err)
	data, err := os.ReadFile(paths["app.Saved"])
	require.NoError(t, err)
	bundle, err := dynamic.ReadArchive(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "app.Saved", bundle.Main())
}
