package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wippyai/dyntype"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/emit"
	"github.com/wippyai/dyntype/nexus"
)

const counterDef = `
name: app.Counter
fields:
  - name: count
    type: s32
    value: 5
  - name: label
    type: object
    modifiers: [private]
methods:
  - name: getCount
    returns: s32
    body:
      property: true
  - name: answer
    returns: s64
    body:
      value: 42
  - name: add
    returns: s32
    parameters:
      - {name: a, type: s32}
      - {name: b, type: s32}
    body:
      stub: true
  - name: title
    returns: object
    body:
      reference: counter
`

func testFactory(t *testing.T) *dyntype.Factory {
	t.Helper()
	f, err := dyntype.New(nil, dyntype.WithLogger(zap.NewNop()), dyntype.WithNexus(nexus.New()))
	require.NoError(t, err)
	return f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefinitionBuilds(t *testing.T) {
	def, err := parseDefinition([]byte(counterDef))
	require.NoError(t, err)
	b, err := def.builder(testFactory(t))
	require.NoError(t, err)
	dt, err := b.Make()
	require.NoError(t, err)

	assert.Equal(t, "app.Counter", dt.Name())
	assert.Len(t, dt.Description().Methods, 4)

	ctx := context.Background()
	ns, err := testFactory(t).Namespace(ctx)
	require.NoError(t, err)
	defer ns.Close(ctx)
	loaded, err := dt.Load(ctx, ns, nil)
	require.NoError(t, err)

	for method, want := range map[string]any{
		"getCount": int32(5),
		"answer":   int64(42),
		"title":    "counter",
	} {
		got, err := loaded.Call(ctx, method)
		require.NoError(t, err, method)
		assert.Equal(t, want, got, method)
	}
	got, err := loaded.Call(ctx, "add", int32(1), int32(2))
	require.NoError(t, err)
	assert.Equal(t, int32(0), got)
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown modifier", "name: X\nmodifiers: [sealed]\n"},
		{"two handlers", "name: X\nmethods:\n  - name: m\n    returns: s32\n    body: {value: 1, stub: true}\n"},
		{"bad resolution", "name: X\nresolution: eager\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := parseDefinition([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = def.builder(testFactory(t))
			assert.Error(t, err)
		})
	}

	_, err := parseDefinition([]byte("fields: {"))
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want description.TypeRef
	}{
		{"void", description.Void},
		{"object", description.Object},
		{"$self", description.Self},
		{"s32", description.Int},
		{"f64", description.F64},
		{"app.Thing", description.Of("app.Thing")},
		{"s64[]", description.ArrayOf(description.Long)},
	}
	for _, tt := range tests {
		assert.True(t, description.Equal(tt.want, parseType(tt.in)), tt.in)
	}
}

func TestConvertArg(t *testing.T) {
	tests := []struct {
		value, typ string
		want       any
		ok         bool
	}{
		{"12", "s32", int64(12), true},
		{"-3", "s64", int64(-3), true},
		{"7", "u8", uint64(7), true},
		{"1.5", "f64", 1.5, true},
		{"true", "bool", true, true},
		{"x", "char", 'x', true},
		{"null", "app.Thing", nil, true},
		{"abc", "s32", nil, false},
		{"xy", "char", nil, false},
		{"3", "app.Thing", nil, false},
	}
	for _, tt := range tests {
		got, err := convertArg(tt.value, tt.typ)
		if !tt.ok {
			assert.Error(t, err, tt.value)
			continue
		}
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
}

func TestPrintMetadataPlain(t *testing.T) {
	def, err := parseDefinition([]byte(counterDef))
	require.NoError(t, err)
	b, err := def.builder(testFactory(t))
	require.NoError(t, err)
	dt, err := b.Make()
	require.NoError(t, err)

	var out bytes.Buffer
	printMetadata(&out, dt.Metadata(), false)
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "app.Counter public"), text)
	assert.Contains(t, text, "count: s32 public = 5")
	assert.Contains(t, text, "add(a: s32, b: s32) s32 public [implemented]")
	assert.NotContains(t, text, "\x1b[")
}

func TestBuildAndInspectCommands(t *testing.T) {
	defPath := writeFile(t, "counter.yaml", counterDef)
	outDir := t.TempDir()
	configPath = filepath.Join(t.TempDir(), "missing.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"build", defPath, "-o", outDir})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "app.Counter -> ")

	wasmPath := filepath.Join(outDir, "app", "Counter.wasm")
	data, err := os.ReadFile(wasmPath)
	require.NoError(t, err)
	md, err := emit.ReadMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, "app.Counter", md.Name)

	src, err := openSource(wasmPath, "")
	require.NoError(t, err)
	assert.Equal(t, "app.Counter", src.name)

	out.Reset()
	rootCmd.SetArgs([]string{"inspect", wasmPath})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Methods")
}

func TestRunCommand(t *testing.T) {
	defPath := writeFile(t, "counter.yaml", counterDef)
	configPath = filepath.Join(t.TempDir(), "missing.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", defPath, "answer"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "42\n", out.String())

	rootCmd.SetArgs([]string{"run", defPath, "add", "1"})
	assert.Error(t, rootCmd.Execute())
}
