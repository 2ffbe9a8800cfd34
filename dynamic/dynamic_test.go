package dynamic

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	dterrors "github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/implementation"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/matcher"
	"github.com/wippyai/dyntype/nexus"
	"github.com/wippyai/dyntype/scaffold"
)

func newNamespace(t *testing.T) (context.Context, *loading.Namespace) {
	t.Helper()
	ctx := context.Background()
	ns, err := loading.New(ctx, loading.WithName(t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { ns.Close(ctx) })
	return ctx, ns
}

func named(name string) matcher.Latent[description.Method] {
	return matcher.Resolved(matcher.Named[description.Method](name))
}

func counting(n *atomic.Int32) scaffold.LoadedTypeInitializer {
	return scaffold.Func(func(context.Context, loading.Live) error {
		n.Add(1)
		return nil
	})
}

func sample() Builder {
	return New().
		Name("Sample").
		DefineField("count", description.Int, description.Public).Value(3).Done().
		DefineMethod("get", description.Int, description.Public).Intercept(implementation.Value(7)).Done()
}

func TestMakeDescribesMembers(t *testing.T) {
	dt, err := sample().Make()
	require.NoError(t, err)

	typ := dt.Description()
	require.Equal(t, "Sample", typ.Name)
	require.Len(t, typ.Fields, 1)
	require.Equal(t, "count", typ.Fields[0].Name)
	require.Len(t, typ.Methods, 1)
	require.Equal(t, "get", typ.Methods[0].Name)

	md := dt.Metadata()
	require.Equal(t, "Sample", md.Name)
	require.Len(t, md.Fields, 1)
	require.Len(t, md.Methods, 1)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	got, err := loaded.Call(ctx, "get")
	require.NoError(t, err)
	require.Equal(t, int32(7), got)
	count, err := loaded.Global(ctx, "count")
	require.NoError(t, err)
	require.Equal(t, int32(3), count)
}

func TestSelfPlaceholderResolvedAtMake(t *testing.T) {
	b := New().Name("Sample").
		DefineMethod("same", description.Bool, description.Public).
		Parameter(description.Self, "other").
		Intercept(implementation.Value(true)).
		Done()

	// Still unresolved before Make.
	require.Equal(t, description.Self, b.Instrumented().Methods()[0].Parameters[0].Type)

	dt, err := b.Make()
	require.NoError(t, err)
	param := dt.Description().Methods[0].Parameters[0].Type
	require.True(t, description.Equal(description.Of("Sample"), param), "param = %v", param)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	got, err := loaded.Call(ctx, "same", nil)
	require.NoError(t, err)
	require.Equal(t, true, got)
}

func TestLastMatchingEntryWins(t *testing.T) {
	dt, err := sample().
		Method(named("get")).Intercept(implementation.Value(1)).Done().
		Method(named("get")).Intercept(implementation.Value(2)).
		Make()
	require.NoError(t, err)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	got, err := loaded.Call(ctx, "get")
	require.NoError(t, err)
	require.Equal(t, int32(2), got)
}

func TestIgnoredMethodsKeepDefault(t *testing.T) {
	dt, err := sample().
		Method(named("get")).Intercept(implementation.Value(1)).Done().
		Ignore(named("get")).
		Make()
	require.NoError(t, err)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	got, err := loaded.Call(ctx, "get")
	require.NoError(t, err)
	require.Equal(t, int32(0), got)
}

func TestLoadedTypeInitializersAggregate(t *testing.T) {
	var runs atomic.Int32
	base, err := New().Name("app.Base").InitializerFunc(counting(&runs)).Make()
	require.NoError(t, err)
	sub, err := Subclass(base).Name("app.Sub").Make()
	require.NoError(t, err)

	inits := sub.LoadedTypeInitializers()
	require.Len(t, inits, 2)
	require.True(t, inits["app.Base"].IsAlive())
	require.False(t, inits["app.Sub"].IsAlive())
	require.True(t, sub.HasAliveLoadedTypeInitializers())

	ctx, ns := newNamespace(t)
	_, err = sub.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, runs.Load())
}

func TestBuilderIsImmutable(t *testing.T) {
	base := New().Name("Base").DefineField("a", description.Int, description.Public).Done()
	left := base.DefineField("b", description.Int, description.Public).Done()
	right := base.DefineField("c", description.Long, description.Public).Done()

	require.Len(t, base.Instrumented().Fields(), 1)
	require.Len(t, left.Instrumented().Fields(), 2)
	require.Len(t, right.Instrumented().Fields(), 2)
	require.Equal(t, "b", left.Instrumented().Fields()[1].Name)
	require.Equal(t, "c", right.Instrumented().Fields()[1].Name)
}

func TestBuilderErrors(t *testing.T) {
	_, err := New().Supertype(nil).Name("X").Make()
	require.ErrorIs(t, err, dterrors.ErrInvalidDefinition)

	_, err = New().Name("X").
		DefineMethod("run", description.Void, description.Public).WithoutCode().
		Make()
	require.ErrorIs(t, err, dterrors.ErrHandlerMismatch, "abstract method on a concrete type")

	_, err = New().Name("X").
		DefineField("x", description.Int, description.Public).Value("nope").
		Make()
	require.ErrorIs(t, err, dterrors.ErrHandlerMismatch)

	_, err = New().Name("X").Require(nil).Make()
	require.Error(t, err)
}

func TestConstructionErrors(t *testing.T) {
	method := func() MethodDefinition {
		return New().Name("Sample").DefineMethod("f", description.Int, description.Public)
	}

	tests := []struct {
		name string
		make func() (*DynamicType, error)
		kind error
	}{
		{"nil method type variable bound", func() (*DynamicType, error) {
			return method().TypeVariable("T", nil).
				Parameter(description.Variable{Symbol: "T"}, "x").
				Intercept(implementation.StubValue).Make()
		}, dterrors.ErrInvalidDefinition},
		{"nil type variable bound", func() (*DynamicType, error) {
			return New().Name("Sample").TypeVariable("T", nil).Make()
		}, dterrors.ErrInvalidDefinition},
		{"empty type variable symbol", func() (*DynamicType, error) {
			return New().Name("Sample").TypeVariable("").Make()
		}, dterrors.ErrInvalidDefinition},
		{"generic exception without raw type", func() (*DynamicType, error) {
			return method().Throws(description.Generic(nil)).Intercept(implementation.StubValue).Make()
		}, dterrors.ErrInvalidDefinition},
		{"generic over nil raw parameter", func() (*DynamicType, error) {
			return method().Parameter(description.Generic(description.Generic(nil), description.Int), "x").
				Intercept(implementation.StubValue).Make()
		}, dterrors.ErrInvalidDefinition},
		{"self supertype", func() (*DynamicType, error) {
			return New().Name("Sample").Supertype(description.Self).Make()
		}, dterrors.ErrInvalidDefinition},
		{"self interface", func() (*DynamicType, error) {
			return New().Name("Sample").Implement(description.Generic(description.Of("app.Cmp"), description.Self)).Make()
		}, dterrors.ErrInvalidDefinition},
		{"nil ignore matcher", func() (*DynamicType, error) {
			return sample().Ignore(named("get")).Ignore(nil).Make()
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dt *DynamicType
			var err error
			require.NotPanics(t, func() { dt, err = tt.make() })
			require.Error(t, err)
			require.Nil(t, dt)
			if tt.kind != nil {
				require.ErrorIs(t, err, tt.kind)
			}
			var de *dterrors.Error
			require.True(t, errors.As(err, &de))
			require.Equal(t, dterrors.PhaseBuild, de.Phase)
		})
	}
}

func TestNaming(t *testing.T) {
	dt, err := New().Supertype(description.Of("app.Base")).Make()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dt.Name(), "app.Base$dyntype$"), dt.Name())

	dt, err = New().Implement(description.Of("app.Runnable")).Naming(SuffixingRandom("gen")).Make()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dt.Name(), "app.Runnable$gen$"), dt.Name())

	dt, err = New().Naming(Fixed("fixed.Name")).Make()
	require.NoError(t, err)
	require.Equal(t, "fixed.Name", dt.Name())
}

func TestAbstractAndAnnotationTypes(t *testing.T) {
	dt, err := New().Name("Shape").Merge(description.Abstract).
		DefineMethod("area", description.F64, description.Public).WithoutCode().Done().
		DefineMethod("sides", description.Int, description.Public).Intercept(implementation.Value(0)).
		Make()
	require.NoError(t, err)
	require.True(t, dt.Description().Methods[0].IsAbstract())

	ann, err := New().Name("Tag").Modifiers(description.Public|description.Interface|description.AnnotationType).
		DefineMethod("level", description.Int, description.Public).DefaultValue(5).
		Make()
	require.NoError(t, err)
	m, ok := ann.Metadata().Method("level")
	require.True(t, ok)
	require.EqualValues(t, 5, m.Default)
}

func TestPassiveRunsInitializers(t *testing.T) {
	var runs atomic.Int32
	dt, err := sample().InitializerFunc(counting(&runs)).Make()
	require.NoError(t, err)
	require.True(t, dt.HasAliveLoadedTypeInitializers())

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, runs.Load())
	require.True(t, loaded.Type().Initialized())
}

func TestLazyNeverInitializes(t *testing.T) {
	var runs atomic.Int32
	dt, err := sample().InitializerFunc(counting(&runs)).Strategy(Lazy{}).Make()
	require.NoError(t, err)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.False(t, loaded.Type().Initialized())
	_, err = loaded.Initialize(ctx)
	require.NoError(t, err)
	require.Zero(t, runs.Load())
}

func TestDisabledRejectsLiveInitializers(t *testing.T) {
	ctx, ns := newNamespace(t)

	dt, err := sample().InitializerFunc(counting(new(atomic.Int32))).Strategy(Disabled{}).Make()
	require.NoError(t, err)
	_, err = dt.Load(ctx, ns, nil)
	require.ErrorIs(t, err, dterrors.ErrLiveInitializers)

	dt, err = sample().Strategy(Disabled{}).Make()
	require.NoError(t, err)
	_, err = dt.Load(ctx, ns, nil)
	require.NoError(t, err)
}

func TestActiveDispatchesThroughNexus(t *testing.T) {
	n := nexus.New()
	var seen []implementation.Call
	d := implementation.Delegate(func(_ context.Context, c implementation.Call) (uint64, error) {
		seen = append(seen, c)
		return c.Args[0] * 2, nil
	})
	dt, err := New().Name("app.Doubler").
		DefineMethod("double", description.Long, description.Public).
		Parameter(description.Long, "v").
		Intercept(d).Done().
		Strategy(Active{Nexus: n}).
		Make()
	require.NoError(t, err)
	active, ok := dt.Resolution().(*ActiveResolved)
	require.True(t, ok)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.Equal(t, 1, n.Len(), "initializer registered under id %d", active.ID())
	require.False(t, loaded.Type().Initialized())

	got, err := loaded.Call(ctx, "double", int64(21))
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
	require.Zero(t, n.Len(), "entry consumed by bootstrap")
	require.Len(t, seen, 1)
	require.Equal(t, "app.Doubler", seen[0].Type)
}

func TestActiveDegradesToPassive(t *testing.T) {
	n := nexus.New()
	n.Disable()
	var runs atomic.Int32

	dt, err := sample().InitializerFunc(counting(&runs)).Strategy(Active{Nexus: n}).Make()
	require.NoError(t, err)
	ctx, ns := newNamespace(t)
	_, err = dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, runs.Load())
	require.Zero(t, n.Len())

	strict, err := sample().Name("Strict").InitializerFunc(counting(&runs)).Strategy(Active{Nexus: n, Require: true}).Make()
	require.NoError(t, err)
	_, err = strict.Load(ctx, ns, nil)
	require.ErrorIs(t, err, dterrors.ErrDispatcherUnavailable)
}

func TestSubclassCallsSuper(t *testing.T) {
	base, err := New().Name("app.Base").
		DefineMethod("id", description.Int, description.Public).Parameter(description.Int, "v").
		Intercept(implementation.Code(func(code *bytecode.Code, _ bytecode.Context, _ *description.Method) error {
			code.LocalGet(0)
			return nil
		})).
		Make()
	require.NoError(t, err)

	sub, err := Subclass(base).Name("app.Sub").
		DefineMethod("id", description.Int, description.Public).Parameter(description.Int, "v").
		Intercept(implementation.SuperMethodCall).Done().
		DefineMethod("tag", description.Int, description.Public).Intercept(implementation.Value(1)).
		Make()
	require.NoError(t, err)
	require.Equal(t, []string{"app.Base", "app.Sub"}, names(sub.AllTypes()))

	ctx, ns := newNamespace(t)
	loaded, err := sub.Load(ctx, ns, nil)
	require.NoError(t, err)
	require.Len(t, loaded.AllLoaded(), 2)
	require.Equal(t, []string{"app.Base", "app.Sub"}, ns.Types())

	got, err := loaded.Call(ctx, "id", int32(9))
	require.NoError(t, err)
	require.Equal(t, int32(9), got)
}

func TestReferenceReturnsLiveValue(t *testing.T) {
	payload := &struct{ n int }{n: 1}
	dt, err := New().Name("app.Holder").
		DefineMethod("get", description.Object, description.Public).Intercept(implementation.Reference(payload)).
		Make()
	require.NoError(t, err)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)
	got, err := loaded.Call(ctx, "get")
	require.NoError(t, err)
	require.Same(t, payload, got)
}

func TestCallResolution(t *testing.T) {
	dt, err := New().Name("app.Over").
		DefineMethod("f", description.Int, description.Public).Parameter(description.Int, "a").Intercept(implementation.Value(1)).Done().
		DefineMethod("f", description.Int, description.Public).Parameter(description.Long, "a").Intercept(implementation.Value(2)).
		Make()
	require.NoError(t, err)

	ctx, ns := newNamespace(t)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)

	_, err = loaded.Call(ctx, "f", 1)
	require.Error(t, err, "overloaded name is ambiguous")
	got, err := loaded.Call(ctx, "f(s64)", int64(1))
	require.NoError(t, err)
	require.Equal(t, int32(2), got)

	_, err = loaded.Call(ctx, "missing")
	require.ErrorIs(t, err, dterrors.ErrNotFound)
	_, err = loaded.Call(ctx, "f(s32)")
	require.Error(t, err, "wrong arity")
	_, err = loaded.Call(ctx, "f(s32)", "x")
	require.Error(t, err)
}

func TestLoadTwiceFailsWithDefaultStrategy(t *testing.T) {
	dt, err := sample().Make()
	require.NoError(t, err)
	ctx, ns := newNamespace(t)
	_, err = dt.Load(ctx, ns, nil)
	require.NoError(t, err)

	_, err = dt.Load(ctx, ns, loading.Default)
	require.True(t, errors.Is(err, dterrors.ErrAlreadyDefined), "err = %v", err)
	_, err = dt.Load(ctx, ns, loading.Reuse)
	require.NoError(t, err)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name string
		want TypeResolutionStrategy
	}{
		{"", Passive{}},
		{"passive", Passive{}},
		{"active", Active{}},
		{"active-required", Active{Require: true}},
		{"lazy", Lazy{}},
		{"disabled", Disabled{}},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.name)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, got, tt.name)
	}
	_, err := ParseStrategy("eager")
	require.Error(t, err)
}

func names(types []*DynamicType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name()
	}
	return out
}
