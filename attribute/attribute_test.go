package attribute

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/dyntype/description"
	dterrors "github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/wasm"
)

func TestForInstrumented(t *testing.T) {
	typ := &description.Type{
		Name:        "Sample",
		Annotations: []description.Annotation{description.Annotate("Entity", "table", "samples")},
	}
	method := description.Method{
		MethodToken:   description.NewMethod("run", description.Void, description.Public).WithAnnotations(description.Annotate("Deprecated")),
		DeclaringType: "Sample",
	}

	var c Collector
	if err := ForInstrumented[*description.Type]().Apply(&c, typ); err != nil {
		t.Fatal(err)
	}
	if err := ForInstrumented[description.Method]().Make(typ).Apply(&c, method); err != nil {
		t.Fatal(err)
	}
	want := []description.Annotation{
		description.Annotate("Entity", "table", "samples"),
		description.Annotate("Deprecated"),
	}
	if diff := cmp.Diff(want, c.Annotations); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
}

func TestExplicitAndSection(t *testing.T) {
	field := description.Field{FieldToken: description.NewField("id", description.Long, description.Public)}
	data := []byte{1, 2, 3}
	app := Compound[description.Field]{
		Explicit[description.Field](description.Annotate("Id")),
		Section[description.Field]("notes", data),
		NoOp[description.Field](),
	}
	data[0] = 9

	var c Collector
	if err := app.Apply(&c, field); err != nil {
		t.Fatal(err)
	}
	if len(c.Annotations) != 1 || c.Annotations[0].Type != "Id" {
		t.Errorf("annotations = %v", c.Annotations)
	}
	want := []wasm.CustomSection{{Name: "notes", Data: []byte{1, 2, 3}}}
	if diff := cmp.Diff(want, c.Sections); diff != "" {
		t.Errorf("sections (-want +got):\n%s", diff)
	}
}

func TestDuplicateAnnotation(t *testing.T) {
	field := description.Field{FieldToken: description.NewField("id", description.Long, description.Public).
		WithAnnotations(description.Annotate("Id"))}
	app := CompoundFactory[description.Field]{
		ForInstrumented[description.Field](),
		Explicit[description.Field](description.Annotate("Id")),
	}.Make(nil)

	var c Collector
	if err := app.Apply(&c, field); !errors.Is(err, dterrors.ErrDuplicate) {
		t.Errorf("error = %v", err)
	}
}

func TestFunc(t *testing.T) {
	var seen string
	app := Func[description.Method](func(sink Sink, m description.Method) error {
		seen = m.Name
		return sink.Annotate(description.Annotate("Seen"))
	})
	var c Collector
	if err := app.Apply(&c, description.Method{MethodToken: description.NewMethod("go", description.Void, 0)}); err != nil {
		t.Fatal(err)
	}
	if seen != "go" || len(c.Annotations) != 1 {
		t.Errorf("seen = %q, annotations = %v", seen, c.Annotations)
	}
}
