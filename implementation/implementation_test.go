package implementation

import (
	"context"
	"errors"
	"testing"

	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	dterrors "github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
	"github.com/wippyai/dyntype/loading"
	"github.com/wippyai/dyntype/resource"
	"github.com/wippyai/dyntype/scaffold"
)

// harness assembles a module from a validated type: one exported global per
// field and one exported function per method the test implements.
type harness struct {
	t       *testing.T
	typ     *description.Type
	module  wasm.Module
	globals map[string]uint32
	bodies  []func() // deferred until imports are fixed
}

func newHarness(t *testing.T, it scaffold.InstrumentedType) *harness {
	t.Helper()
	typ, _, err := it.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	h := &harness{t: t, typ: typ, globals: make(map[string]uint32)}
	for _, f := range typ.Fields {
		vt, _ := description.ValType(f.Type)
		idx := uint32(len(h.module.Globals))
		h.module.Globals = append(h.module.Globals, wasm.Global{
			Type:    vt,
			Mutable: !f.Modifiers.Has(description.Final),
			Init:    wasm.ConstExpr(vt, 0),
		})
		h.module.Exports = append(h.module.Exports, wasm.Export{Name: f.Name, Kind: wasm.KindGlobal, Idx: idx})
		h.globals[f.Name] = idx
	}
	return h
}

func (h *harness) Instrumented() *description.Type { return h.typ }

func (h *harness) Import(module, name string, sig wasm.FuncType) bytecode.FuncRef {
	for i, imp := range h.module.Imports {
		if imp.Module == module && imp.Name == name {
			return bytecode.NewFuncRef(i)
		}
	}
	h.module.Imports = append(h.module.Imports, wasm.Import{Module: module, Name: name, TypeIdx: h.module.AddType(sig)})
	return bytecode.NewFuncRef(len(h.module.Imports) - 1)
}

func (h *harness) Method(description.SignatureToken) (bytecode.FuncRef, bool) {
	return bytecode.FuncRef{}, false
}

func (h *harness) Global(field string) (uint32, bool) {
	idx, ok := h.globals[field]
	return idx, ok
}

func (h *harness) Require(bytecode.Auxiliary) {}

// implement applies impl to the method named name and exports it under export.
func (h *harness) implement(impl Implementation, name, export string) error {
	methods := h.typ.MethodsNamed(name)
	if len(methods) != 1 {
		h.t.Fatalf("method %s: found %d", name, len(methods))
	}
	m := methods[0]
	code := bytecode.NewCode(len(m.Parameters))
	if err := impl.Appender(h.typ).Apply(code, h, &m); err != nil {
		return err
	}
	sig := bytecode.Signature(m)
	h.bodies = append(h.bodies, func() {
		idx := uint32(len(h.module.Imports) + len(h.module.Funcs))
		h.module.Funcs = append(h.module.Funcs, h.module.AddType(sig))
		h.module.Code = append(h.module.Code, wasm.FuncBody{
			Locals: code.Locals(),
			Code:   code.Encode(func(r bytecode.FuncRef) uint32 { return uint32(r.ID()) }),
		})
		h.module.Exports = append(h.module.Exports, wasm.Export{Name: export, Kind: wasm.KindFunc, Idx: idx})
	})
	return nil
}

func (h *harness) encode() []byte {
	for _, b := range h.bodies {
		b()
	}
	h.bodies = nil
	return h.module.Encode()
}

func (h *harness) load(ctx context.Context, ns *loading.Namespace, deps ...string) loading.Live {
	h.t.Helper()
	types, err := loading.Default.Load(ctx, ns, []loading.Definition{{Name: h.typ.Name, Bytes: h.encode(), Dependencies: deps}})
	if err != nil {
		h.t.Fatalf("load %s: %v", h.typ.Name, err)
	}
	live, err := types[h.typ.Name].Live(ctx)
	if err != nil {
		h.t.Fatalf("initialize %s: %v", h.typ.Name, err)
	}
	return live
}

func newNamespace(t *testing.T) (context.Context, *loading.Namespace) {
	t.Helper()
	ctx := context.Background()
	ns, err := loading.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ns.Close(ctx) })
	return ctx, ns
}

func call(ctx context.Context, t *testing.T, live loading.Live, name string, args ...uint64) []uint64 {
	t.Helper()
	fn := live.Module.ExportedFunction(name)
	if fn == nil {
		t.Fatalf("no export %s", name)
	}
	out, err := fn.Call(ctx, args...)
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	return out
}

func TestValue(t *testing.T) {
	it := scaffold.NewInstrumentedType("Constants", description.Public, nil).
		WithMethod(description.NewMethod("answer", description.Int, description.Public)).
		WithMethod(description.NewMethod("ratio", description.F64, description.Public)).
		WithMethod(description.NewMethod("nothing", description.Void, description.Public))

	h := newHarness(t, it)
	if err := h.implement(Value(42), "answer", "answer"); err != nil {
		t.Fatal(err)
	}
	if err := h.implement(Value(0.5), "ratio", "ratio"); err != nil {
		t.Fatal(err)
	}
	if err := h.implement(Value(1), "nothing", "nothing"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("void method error = %v", err)
	}
	if err := h.implement(Value("text"), "answer", "bad"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("string into int error = %v", err)
	}

	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	if got := call(ctx, t, live, "answer"); int32(got[0]) != 42 {
		t.Errorf("answer = %d", got[0])
	}
	if got := description.DecodeValue(description.F64, call(ctx, t, live, "ratio")[0]); got != 0.5 {
		t.Errorf("ratio = %v", got)
	}
}

func TestStubValue(t *testing.T) {
	it := scaffold.NewInstrumentedType("Stubs", description.Public, nil).
		WithMethod(description.NewMethod("count", description.Long, description.Public)).
		WithMethod(description.NewMethod("run", description.Void, description.Public))

	h := newHarness(t, it)
	for _, name := range []string{"count", "run"} {
		if err := h.implement(StubValue, name, name); err != nil {
			t.Fatal(err)
		}
	}
	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	if got := call(ctx, t, live, "count"); got[0] != 0 {
		t.Errorf("count = %d", got[0])
	}
	if got := call(ctx, t, live, "run"); len(got) != 0 {
		t.Errorf("run returned %v", got)
	}
}

func TestReferenceBindsOnLoad(t *testing.T) {
	payload := &struct{ name string }{name: "config"}
	ref := Reference(payload)

	it := scaffold.NewInstrumentedType("Holder", description.Public, nil).
		WithMethod(description.NewMethod("get", description.Object, description.Public))
	it = ref.Prepare(it)
	if again := ref.Prepare(it); len(again.Fields()) != 1 {
		t.Errorf("Prepare is not idempotent: %d fields", len(again.Fields()))
	}

	h := newHarness(t, it)
	if err := h.implement(ref, "get", "get"); err != nil {
		t.Fatal(err)
	}
	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)

	if got := call(ctx, t, live, "get"); got[0] != 0 {
		t.Errorf("handle before OnLoad = %d", got[0])
	}
	if err := it.LoadedTypeInitializer().OnLoad(ctx, live); err != nil {
		t.Fatal(err)
	}
	h32 := resource.Handle(uint32(call(ctx, t, live, "get")[0]))
	if v, ok := ns.Values().Get(h32); !ok || v != payload {
		t.Errorf("value = %v, %v", v, ok)
	}
}

func TestReferenceRejectsPrimitiveReturn(t *testing.T) {
	ref := Reference(1)
	it := ref.Prepare(scaffold.NewInstrumentedType("Bad", description.Public, nil).
		WithMethod(description.NewMethod("get", description.Int, description.Public)))
	h := newHarness(t, it)
	if err := h.implement(ref, "get", "get"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("error = %v", err)
	}
}

func TestFieldAccessor(t *testing.T) {
	it := scaffold.NewInstrumentedType("Counter", description.Public, nil).
		WithField(description.NewField("count", description.Int, description.Private)).
		WithMethod(description.NewMethod("getCount", description.Int, description.Public)).
		WithMethod(description.NewMethod("setCount", description.Void, description.Public).
			WithParameters(description.Param(description.Int, "v"))).
		WithMethod(description.NewMethod("peek", description.Int, description.Public)).
		WithMethod(description.NewMethod("frob", description.Int, description.Public).
			WithParameters(description.Param(description.Int, "v")))

	h := newHarness(t, it)
	for _, name := range []string{"getCount", "setCount"} {
		if err := h.implement(BeanProperty, name, name); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.implement(FieldAccessor("count"), "peek", "peek"); err != nil {
		t.Fatal(err)
	}
	if err := h.implement(FieldAccessor("count"), "frob", "frob"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("frob error = %v", err)
	}
	if err := h.implement(FieldSetter("count"), "peek", "x"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("setter on getter shape error = %v", err)
	}
	if err := h.implement(FieldGetter("missing"), "peek", "x"); !errors.Is(err, dterrors.ErrNotFound) {
		t.Errorf("missing field error = %v", err)
	}

	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	call(ctx, t, live, "setCount", 5)
	if got := call(ctx, t, live, "getCount"); got[0] != 5 {
		t.Errorf("getCount = %d", got[0])
	}
	if got := call(ctx, t, live, "peek"); got[0] != 5 {
		t.Errorf("peek = %d", got[0])
	}
}

func TestPropertyName(t *testing.T) {
	cases := map[string]string{
		"getCount": "count",
		"setURL":   "uRL",
		"isReady":  "ready",
		"get":      "",
		"getter":   "",
		"compute":  "",
	}
	for in, want := range cases {
		if got := propertyName(in); got != want {
			t.Errorf("propertyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDelegate(t *testing.T) {
	var calls []Call
	d := Delegate(func(_ context.Context, c Call) (uint64, error) {
		calls = append(calls, c)
		switch c.Method {
		case "add":
			return c.Args[0] + uint64(int64(int32(uint32(c.Args[1])))), nil
		case "fail":
			return 0, errors.New("refused")
		}
		return 0, nil
	})

	it := scaffold.NewInstrumentedType("Calc", description.Public, nil).
		WithMethod(description.NewMethod("add", description.Long, description.Public).
			WithParameters(description.Param(description.Long, "a"), description.Param(description.Int, "b"))).
		WithMethod(description.NewMethod("touch", description.Void, description.Public)).
		WithMethod(description.NewMethod("fail", description.Int, description.Public))
	it = d.Prepare(it)
	if !it.HasField(d.Field()) {
		t.Fatal("delegate field missing")
	}

	h := newHarness(t, it)
	for _, name := range []string{"add", "touch", "fail"} {
		if err := h.implement(d, name, name); err != nil {
			t.Fatal(err)
		}
	}
	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	if err := it.LoadedTypeInitializer().OnLoad(ctx, live); err != nil {
		t.Fatal(err)
	}

	if got := call(ctx, t, live, "add", 40, 2); got[0] != 42 {
		t.Errorf("add = %d", got[0])
	}
	call(ctx, t, live, "touch")
	if _, err := live.Module.ExportedFunction("fail").Call(ctx); err == nil {
		t.Error("failing delegate should trap")
	}

	if len(calls) != 3 || calls[0].Method != "add" || calls[1].Method != "touch" || calls[0].Type != "Calc" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestDelegateArity(t *testing.T) {
	d := Delegate(func(context.Context, Call) (uint64, error) { return 0, nil })
	m := description.NewMethod("wide", description.Void, description.Public)
	for range loading.MaxInvokeArity + 1 {
		m = m.WithParameters(description.Param(description.Int, ""))
	}
	it := d.Prepare(scaffold.NewInstrumentedType("Wide", description.Public, nil).WithMethod(m))
	h := newHarness(t, it)
	if err := h.implement(d, "wide", "wide"); !errors.Is(err, dterrors.ErrHandlerMismatch) {
		t.Errorf("error = %v", err)
	}
}

func TestDelegateUnknownMethodIndex(t *testing.T) {
	d := Delegate(func(context.Context, Call) (uint64, error) { return 0, nil })
	if _, err := d.Invoke(context.Background(), loading.Invocation{Method: 3}); !errors.Is(err, dterrors.ErrNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestSuperMethodCall(t *testing.T) {
	ctx, ns := newNamespace(t)

	base := newHarness(t, scaffold.NewInstrumentedType("Base", description.Public, nil).
		WithMethod(description.NewMethod("id", description.Int, description.Public).
			WithParameters(description.Param(description.Int, "v"))))
	baseMethod := base.typ.MethodsNamed("id")[0]
	echo := Code(func(code *bytecode.Code, _ bytecode.Context, _ *description.Method) error {
		code.LocalGet(0)
		return nil
	})
	if err := base.implement(echo, "id", baseMethod.Signature().Qualified()); err != nil {
		t.Fatal(err)
	}
	base.load(ctx, ns)

	sub := newHarness(t, scaffold.NewInstrumentedType("Sub", description.Public, description.Of("Base")).
		WithMethod(description.NewMethod("id", description.Int, description.Public).
			WithParameters(description.Param(description.Int, "v"))))
	if err := sub.implement(PassThrough, "id", "id"); err != nil {
		t.Fatal(err)
	}
	live := sub.load(ctx, ns, "Base")
	if got := call(ctx, t, live, "id", 9); got[0] != 9 {
		t.Errorf("id = %d", got[0])
	}

	orphan := newHarness(t, scaffold.NewInstrumentedType("Orphan", description.Public, nil).
		WithMethod(description.NewMethod("id", description.Int, description.Public)))
	if err := orphan.implement(SuperMethodCall, "id", "id"); err == nil {
		t.Error("super call without supertype should fail")
	}
}

func TestCompound(t *testing.T) {
	applied := 0
	count := Code(func(*bytecode.Code, bytecode.Context, *description.Method) error {
		applied++
		return nil
	})
	ref := Reference("x")
	impl := Compound(count, Compound(ref))
	if n := len(impl.(compound)); n != 2 {
		t.Errorf("flattened to %d", n)
	}

	it := impl.Prepare(scaffold.NewInstrumentedType("Multi", description.Public, nil).
		WithMethod(description.NewMethod("get", description.Object, description.Public)))
	if len(it.Fields()) != 1 {
		t.Errorf("fields = %v", it.Fields())
	}
	h := newHarness(t, it)
	if err := h.implement(impl, "get", "get"); err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Errorf("first part applied %d times", applied)
	}

	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	if err := it.LoadedTypeInitializer().OnLoad(ctx, live); err != nil {
		t.Fatal(err)
	}
	handle := resource.Handle(uint32(call(ctx, t, live, "get")[0]))
	if v, _ := ns.Values().Get(handle); v != "x" {
		t.Errorf("value = %v", v)
	}
}

func TestSimple(t *testing.T) {
	push := func(v int32) bytecode.Appender {
		return bytecode.AppenderFunc(func(code *bytecode.Code, _ bytecode.Context, _ *description.Method) error {
			code.I32Const(v)
			return nil
		})
	}
	discard := bytecode.AppenderFunc(func(code *bytecode.Code, _ bytecode.Context, _ *description.Method) error {
		code.Drop()
		return nil
	})

	it := scaffold.NewInstrumentedType("Blocks", description.Public, nil).
		WithMethod(description.NewMethod("last", description.Int, description.Public))
	h := newHarness(t, it)
	if err := h.implement(Simple(push(5), discard, push(9)), "last", "last"); err != nil {
		t.Fatal(err)
	}

	ctx, ns := newNamespace(t)
	live := h.load(ctx, ns)
	if got := call(ctx, t, live, "last"); int32(got[0]) != 9 {
		t.Errorf("last = %d", got[0])
	}
}
