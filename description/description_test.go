package description

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	dterrors "github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
)

func TestResolveNestedSelf(t *testing.T) {
	tok := NewMethod("merge", Generic(Of("list"), Self), Public).
		WithParameters(
			Param(Self, "other"),
			Param(ArrayOf(Generic(Of("map"), S32, Self)), "index"),
		).
		WithExceptions(Self).
		WithTypeVariables(TypeVar("T", Generic(Of("cmp"), Self)))
	tok.Receiver = Self

	got := tok.Resolve("Sample")

	want := NewMethod("merge", Generic(Of("list"), Of("Sample")), Public).
		WithParameters(
			Param(Of("Sample"), "other"),
			Param(ArrayOf(Generic(Of("map"), S32, Of("Sample"))), "index"),
		).
		WithExceptions(Of("Sample")).
		WithTypeVariables(TypeVar("T", Generic(Of("cmp"), Of("Sample"))))
	want.Receiver = Of("Sample")

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
	if ContainsSelf(got.Return) || ContainsSelf(got.Parameters[1].Type) {
		t.Error("resolved token still contains the placeholder")
	}
	if !ContainsSelf(tok.Parameters[0].Type) {
		t.Error("Resolve mutated the original token")
	}
}

func TestResolveIdempotent(t *testing.T) {
	tokens := []MethodToken{
		NewMethod("get", S32, Public),
		NewMethod("copy", Self, Public).WithParameters(Param(Self, "src")),
		NewMethod("wrap", Generic(Of("box"), ArrayOf(Self)), Public|Static),
	}
	for _, tok := range tokens {
		once := tok.Resolve("Sample")
		twice := once.Resolve("Sample")
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("%s: second Resolve changed token:\n%s", tok.Name, diff)
		}
	}

	field := NewField("next", Self, Private).Resolve("Node")
	if diff := cmp.Diff(field, field.Resolve("Node")); diff != "" {
		t.Errorf("field resolve not idempotent:\n%s", diff)
	}
}

func TestSelfParameterScenario(t *testing.T) {
	tok := NewMethod("equalsTo", Bool, Public).WithParameters(Param(Self, "other"))
	resolved := tok.Resolve("Sample")
	if !Equal(resolved.Parameters[0].Type, Of("Sample")) {
		t.Errorf("parameter type = %s, want Sample", resolved.Parameters[0].Type)
	}
}

func TestSignatureStableUnderSubstitution(t *testing.T) {
	tok := NewMethod("copy", Self, Public).WithParameters(Param(Generic(Of("list"), Self), "src"))
	before := tok.Signature("Sample")
	after := tok.Resolve("Sample").Signature("Sample")
	if before != after {
		t.Errorf("signature changed: %v vs %v", before, after)
	}
	if before.Params != "list" || before.Return != "Sample" {
		t.Errorf("unexpected erasure: %+v", before)
	}
}

func TestSignatureErasesVariables(t *testing.T) {
	bounded := NewMethod("max", Variable{Symbol: "T"}, Public).
		WithTypeVariables(TypeVar("T", Of("number"))).
		WithParameters(Param(Variable{Symbol: "T"}, "a"))
	sig := bounded.Signature("X")
	if sig.Return != "number" || sig.Params != "number" {
		t.Errorf("bounded erasure = %+v", sig)
	}

	free := NewMethod("id", Variable{Symbol: "U"}, Public)
	if got := free.Signature("X").Return; got != Object.Name {
		t.Errorf("free variable erased to %s", got)
	}
}

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name    string
		token   FieldToken
		wantErr bool
	}{
		{"valid", NewField("count", Int, Public), false},
		{"empty name", NewField("", Int, Public), true},
		{"nil type", NewField("count", nil, Public), true},
		{"void", NewField("count", Void, Public), true},
		{"bad primitive", NewField("count", Primitive("s33"), Public), true},
		{"self is fine", NewField("next", Self, Private), false},
		{"bad array", NewField("xs", ArrayOf(nil), Private), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.token.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, dterrors.ErrInvalidDefinition) {
				t.Errorf("error %v is not an invalid definition", err)
			}
		})
	}
}

func TestMethodValidate(t *testing.T) {
	tests := []struct {
		name    string
		token   MethodToken
		wantErr bool
	}{
		{"valid", NewMethod("get", Int, Public), false},
		{"no name", NewMethod("", Int, Public), true},
		{"no return", NewMethod("get", nil, Public), true},
		{"nil param", NewMethod("set", Void, Public).WithParameters(Param(nil, "v")), true},
		{"void param", NewMethod("set", Void, Public).WithParameters(Param(Void, "v")), true},
		{"nil exception", NewMethod("run", Void, Public).WithExceptions(nil), true},
		{"generic without raw", NewMethod("run", Parameterized{}, Public), true},
		{"nested generic without raw", NewMethod("run", Generic(Generic(nil), Int), Public), true},
		{"generic exception without raw", NewMethod("run", Void, Public).WithExceptions(Generic(nil)), true},
		{"nil type variable bound", NewMethod("id", Variable{Symbol: "T"}, Public).WithTypeVariables(TypeVar("T", nil)), true},
		{"bounded type variable", NewMethod("id", Variable{Symbol: "T"}, Public).WithTypeVariables(TypeVar("T", Of("app.Base"))), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.token.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValType(t *testing.T) {
	tests := []struct {
		ref  TypeRef
		want wasm.ValType
		ok   bool
	}{
		{Bool, wasm.ValI32, true},
		{Char, wasm.ValI32, true},
		{U16, wasm.ValI32, true},
		{S64, wasm.ValI64, true},
		{U64, wasm.ValI64, true},
		{F32, wasm.ValF32, true},
		{F64, wasm.ValF64, true},
		{Of("Sample"), wasm.ValI32, true},
		{ArrayOf(S64), wasm.ValI32, true},
		{Void, 0, false},
	}
	for _, tt := range tests {
		got, ok := ValType(tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ValType(%s) = %v, %v; want %v, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePrimitive(t *testing.T) {
	if p, err := ParsePrimitive("s32"); err != nil || p != S32 {
		t.Errorf("ParsePrimitive(s32) = %v, %v", p, err)
	}
	if _, err := ParsePrimitive("string"); err == nil {
		t.Error("string is not a core primitive")
	}
	if _, err := ParsePrimitive("nonsense"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestEncodeConstant(t *testing.T) {
	tests := []struct {
		name    string
		ref     TypeRef
		v       any
		want    uint64
		wantErr bool
	}{
		{"s32", S32, 42, 42, false},
		{"s32 negative", S32, -1, 0xFFFFFFFF, false},
		{"s32 overflow", S32, int64(math.MaxInt32) + 1, 0, true},
		{"u8", U8, uint8(255), 255, false},
		{"u8 overflow", U8, 256, 0, true},
		{"u8 negative", U8, -1, 0, true},
		{"u64 max", U64, uint64(math.MaxUint64), math.MaxUint64, false},
		{"s64 negative", S64, int64(-2), uint64(math.MaxUint64 - 1), false},
		{"bool", Bool, true, 1, false},
		{"bool wrong type", Bool, 1, 0, true},
		{"f64", F64, 1.5, math.Float64bits(1.5), false},
		{"f32 from int", F32, 2, uint64(math.Float32bits(2)), false},
		{"char", Char, 'A', 65, false},
		{"string", S32, "x", 0, true},
		{"reference", Of("Sample"), 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeConstant(tt.ref, tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeConstant() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("EncodeConstant() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestDecodeValue(t *testing.T) {
	bits, _ := EncodeConstant(S32, -7)
	if got := DecodeValue(S32, bits); got != int32(-7) {
		t.Errorf("DecodeValue(s32) = %v", got)
	}
	bits, _ = EncodeConstant(F64, 2.25)
	if got := DecodeValue(F64, bits); got != 2.25 {
		t.Errorf("DecodeValue(f64) = %v", got)
	}
	if got := DecodeValue(Bool, 1); got != true {
		t.Errorf("DecodeValue(bool) = %v", got)
	}
	if got := DecodeValue(Of("Sample"), 3); got != uint32(3) {
		t.Errorf("DecodeValue(ref) = %v", got)
	}
}

func TestModifiers(t *testing.T) {
	m := Public.With(Static | Final)
	if !m.Has(Public|Final) || m.Has(Abstract) {
		t.Errorf("Has mismatch for %s", m)
	}
	if got := m.Without(Final).String(); got != "public static" {
		t.Errorf("String() = %q", got)
	}
	parsed, ok := ParseModifiers(m.Names()...)
	if !ok || parsed != m {
		t.Errorf("ParseModifiers(%v) = %v, %v", m.Names(), parsed, ok)
	}
	if _, ok := ParseModifiers("volatile"); ok {
		t.Error("unknown modifier accepted")
	}
}

func TestTypeLookups(t *testing.T) {
	typ := &Type{
		Name:      "Sample",
		Modifiers: Public,
		Supertype: Object,
		Fields:    []Field{{FieldToken: NewField("count", Int, Public), DeclaringType: "Sample"}},
		Methods: []Method{
			{MethodToken: NewMethod("get", Int, Public), DeclaringType: "Sample"},
			{MethodToken: NewMethod("get", Int, Public).WithParameters(Param(Int, "i")), DeclaringType: "Sample"},
		},
	}
	if _, ok := typ.Field("count"); !ok {
		t.Error("count not found")
	}
	if got := len(typ.MethodsNamed("get")); got != 2 {
		t.Errorf("MethodsNamed = %d", got)
	}
	sig := typ.Methods[1].Signature()
	if m, ok := typ.Method(sig); !ok || len(m.Parameters) != 1 {
		t.Errorf("Method(%v) = %v, %v", sig, m, ok)
	}
	if typ.HasSupertype() {
		t.Error("object supertype should not count")
	}
	typ.Supertype = Of("Base")
	if !typ.HasSupertype() {
		t.Error("Base supertype should count")
	}
}

func TestAnnotate(t *testing.T) {
	a := Annotate("Deprecated", "since", "1.2", "forRemoval", true, "dangling")
	want := Annotation{Type: "Deprecated", Values: map[string]any{"since": "1.2", "forRemoval": true}}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("Annotate mismatch:\n%s", diff)
	}
	c := a.Clone()
	c.Values["since"] = "2"
	if a.Values["since"] != "1.2" {
		t.Error("Clone shares the value map")
	}
}
