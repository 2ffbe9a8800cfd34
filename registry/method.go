package registry

import (
	"fmt"

	"github.com/wippyai/dyntype/attribute"
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/plist"
	"github.com/wippyai/dyntype/matcher"
	"github.com/wippyai/dyntype/scaffold"
)

type methodEntry struct {
	matcher     matcher.Latent[description.Method]
	handler     Handler
	attribute   attribute.MethodFactory
	transformer scaffold.Transformer[description.Method]
}

// MethodRegistry is an append-only list of method entries.
type MethodRegistry struct {
	entries plist.List[methodEntry]
}

// Append returns a registry with one more entry. A nil attribute factory
// copies the method's own annotations; a nil transformer keeps the method.
func (r MethodRegistry) Append(
	latent matcher.Latent[description.Method],
	handler Handler,
	attr attribute.MethodFactory,
	transformer scaffold.Transformer[description.Method],
) MethodRegistry {
	if attr == nil {
		attr = attribute.ForInstrumented[description.Method]()
	}
	if transformer == nil {
		transformer = scaffold.NoOpTransformer[description.Method]()
	}
	return MethodRegistry{entries: r.entries.Append(methodEntry{
		matcher:     latent,
		handler:     handler,
		attribute:   attr,
		transformer: transformer,
	})}
}

// Len returns the number of entries.
func (r MethodRegistry) Len() int { return r.entries.Len() }

// Prepare lets every implementation extend the instrumented type, in
// registration order.
func (r MethodRegistry) Prepare(it scaffold.InstrumentedType) scaffold.InstrumentedType {
	for _, e := range r.entries.Slice() {
		if e.handler.kind == KindImplemented && e.handler.impl != nil {
			it = e.handler.impl.Prepare(it)
		}
	}
	return it
}

// MethodRecord is the resolved emission plan of one method.
type MethodRecord struct {
	Method    description.Method
	Handler   Handler
	Appender  bytecode.Appender // nil without a body
	Attribute attribute.MethodAppender
	Matched   bool // false when the default policy applied
}

// HasBody reports whether the method is emitted as a function.
func (r MethodRecord) HasBody() bool { return r.Appender != nil }

// CompiledMethods maps every declared method to its record.
type CompiledMethods struct {
	records []MethodRecord
	index   map[description.SignatureToken]int
}

// Records returns the records in declaration order.
func (c *CompiledMethods) Records() []MethodRecord { return c.records }

// Target returns the record of the method with signature sig.
func (c *CompiledMethods) Target(sig description.SignatureToken) (MethodRecord, bool) {
	i, ok := c.index[sig]
	if !ok {
		return MethodRecord{}, false
	}
	return c.records[i], true
}

// Compile resolves every method of typ. Methods accepted by ignored always
// receive the default handler; ignored may be nil.
func (r MethodRegistry) Compile(typ *description.Type, ignored matcher.Latent[description.Method]) (*CompiledMethods, error) {
	type resolvedEntry struct {
		methodEntry
		m matcher.Matcher[description.Method]
	}
	entries := make([]resolvedEntry, 0, r.entries.Len())
	for _, e := range r.entries.Slice() {
		entries = append(entries, resolvedEntry{methodEntry: e, m: e.matcher.Resolve(typ)})
	}
	var skip matcher.Matcher[description.Method] = matcher.None[description.Method]()
	if ignored != nil {
		skip = ignored.Resolve(typ)
	}

	out := &CompiledMethods{
		records: make([]MethodRecord, 0, len(typ.Methods)),
		index:   make(map[description.SignatureToken]int, len(typ.Methods)),
	}
	for _, m := range typ.Methods {
		rec := MethodRecord{Method: m}
		var entry *resolvedEntry
		if !skip.Matches(m) {
			for i := len(entries) - 1; i >= 0; i-- {
				if entries[i].m.Matches(m) {
					entry = &entries[i]
					break
				}
			}
		}

		var attrFactory attribute.MethodFactory = attribute.ForInstrumented[description.Method]()
		if entry != nil {
			rec.Matched = true
			rec.Handler = entry.handler
			attrFactory = entry.attribute
			transformed := entry.transformer.Transform(typ, m)
			if transformed.Signature() != m.Signature() {
				return nil, errors.InvalidDefinition(errors.PhaseCompile, path(typ, m),
					fmt.Sprintf("transformer changed the signature to %s", transformed.Signature()))
			}
			rec.Method = transformed
		} else {
			rec.Handler = DefaultMethodHandler(typ, m)
		}

		if err := check(typ, &rec); err != nil {
			return nil, err
		}
		rec.Attribute = attrFactory.Make(typ)
		out.index[rec.Method.Signature()] = len(out.records)
		out.records = append(out.records, rec)
	}
	return out, nil
}

// check validates the handler against the method shape and fixes up the
// record's modifiers, default and appender.
func check(typ *description.Type, rec *MethodRecord) error {
	m := &rec.Method
	switch rec.Handler.kind {
	case KindImplemented:
		if m.IsAbstract() {
			return errors.HandlerMismatch(path(typ, *m), "implemented", "method is declared without a body")
		}
		if rec.Handler.impl == nil {
			return errors.HandlerMismatch(path(typ, *m), "implemented", "implementation is nil")
		}
		rec.Appender = rec.Handler.impl.Appender(typ)

	case KindAbstract:
		if !typ.IsAbstract() {
			return errors.HandlerMismatch(path(typ, *m), "abstract", "type "+typ.Name+" is neither abstract nor an interface")
		}
		m.Modifiers = m.Modifiers.With(description.Abstract)

	case KindDefaultValue:
		if !typ.IsAnnotation() {
			return errors.HandlerMismatch(path(typ, *m), "default value", "only annotation interfaces declare defaults")
		}
		if len(m.Parameters) != 0 {
			return errors.HandlerMismatch(path(typ, *m), "default value", "method takes parameters")
		}
		if err := compatibleDefault(m.Return, rec.Handler.value); err != nil {
			return errors.New(errors.PhaseCompile, errors.KindHandlerMismatch).
				Path(path(typ, *m)...).
				TypeRef(m.Return.String()).
				Cause(err).
				Detail("default value does not match the return type").
				Build()
		}
		m.Modifiers = m.Modifiers.With(description.Abstract)
		m.DefaultValue = rec.Handler.value
	}
	return nil
}

// compatibleDefault accepts primitives in range, strings for string-named
// types, and nil for any reference type.
func compatibleDefault(ref description.TypeRef, v any) error {
	if _, ok := ref.(description.Primitive); ok {
		_, err := description.EncodeConstant(ref, v)
		return err
	}
	if description.IsVoid(ref) {
		return errors.InvalidInput(errors.PhaseCompile, "void has no values")
	}
	switch v.(type) {
	case nil:
		return nil
	case string:
		if description.Equal(description.Erasure(ref), description.Of("string")) {
			return nil
		}
	}
	return errors.InvalidInput(errors.PhaseCompile, fmt.Sprintf("%T is not assignable to %s", v, ref))
}

func path(typ *description.Type, m description.Member) []string {
	return []string{typ.Name, m.MemberName()}
}
