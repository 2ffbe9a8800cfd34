package registry

import (
	"fmt"

	"github.com/wippyai/dyntype/attribute"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/internal/plist"
	"github.com/wippyai/dyntype/matcher"
	"github.com/wippyai/dyntype/scaffold"
)

type fieldEntry struct {
	matcher     matcher.Latent[description.Field]
	attribute   attribute.FieldFactory
	value       any
	transformer scaffold.Transformer[description.Field]
}

// FieldRegistry is an append-only list of field entries.
type FieldRegistry struct {
	entries plist.List[fieldEntry]
}

// Append returns a registry with one more entry. value is the field's
// initial value; nil leaves the zero value.
func (r FieldRegistry) Append(
	latent matcher.Latent[description.Field],
	attr attribute.FieldFactory,
	value any,
	transformer scaffold.Transformer[description.Field],
) FieldRegistry {
	if attr == nil {
		attr = attribute.ForInstrumented[description.Field]()
	}
	if transformer == nil {
		transformer = scaffold.NoOpTransformer[description.Field]()
	}
	return FieldRegistry{entries: r.entries.Append(fieldEntry{
		matcher:     latent,
		attribute:   attr,
		value:       value,
		transformer: transformer,
	})}
}

// Len returns the number of entries.
func (r FieldRegistry) Len() int { return r.entries.Len() }

// FieldRecord is the resolved emission plan of one field.
type FieldRecord struct {
	Field     description.Field
	Attribute attribute.FieldAppender
	Default   any    // nil for the zero value
	Bits      uint64 // Default encoded for the field type
	Matched   bool
}

// CompiledFields maps every declared field to its record.
type CompiledFields struct {
	records []FieldRecord
	index   map[string]int
}

// Records returns the records in declaration order.
func (c *CompiledFields) Records() []FieldRecord { return c.records }

// Target returns the record of the named field.
func (c *CompiledFields) Target(name string) (FieldRecord, bool) {
	i, ok := c.index[name]
	if !ok {
		return FieldRecord{}, false
	}
	return c.records[i], true
}

// Compile resolves every field of typ. Synthetic fields belong to
// implementations and only receive the defaults.
func (r FieldRegistry) Compile(typ *description.Type) (*CompiledFields, error) {
	type resolvedEntry struct {
		fieldEntry
		m matcher.Matcher[description.Field]
	}
	entries := make([]resolvedEntry, 0, r.entries.Len())
	for _, e := range r.entries.Slice() {
		entries = append(entries, resolvedEntry{fieldEntry: e, m: e.matcher.Resolve(typ)})
	}

	out := &CompiledFields{
		records: make([]FieldRecord, 0, len(typ.Fields)),
		index:   make(map[string]int, len(typ.Fields)),
	}
	for _, f := range typ.Fields {
		rec := FieldRecord{Field: f}
		var entry *resolvedEntry
		if !f.Modifiers.Has(description.Synthetic) {
			for i := len(entries) - 1; i >= 0; i-- {
				if entries[i].m.Matches(f) {
					entry = &entries[i]
					break
				}
			}
		}

		var attrFactory attribute.FieldFactory = attribute.ForInstrumented[description.Field]()
		if entry != nil {
			rec.Matched = true
			attrFactory = entry.attribute
			transformed := entry.transformer.Transform(typ, f)
			if transformed.Signature() != f.Signature() {
				return nil, errors.InvalidDefinition(errors.PhaseCompile, path(typ, f),
					fmt.Sprintf("transformer changed field %s to type %s", f.Name, transformed.Type))
			}
			rec.Field = transformed

			if entry.value != nil {
				bits, err := description.EncodeConstant(f.Type, entry.value)
				if err != nil {
					return nil, errors.New(errors.PhaseCompile, errors.KindHandlerMismatch).
						Path(path(typ, f)...).
						TypeRef(f.Type.String()).
						Value(entry.value).
						Cause(err).
						Detail("default value does not match the field type").
						Build()
				}
				rec.Default, rec.Bits = entry.value, bits
			}
		}
		rec.Attribute = attrFactory.Make(typ)
		out.index[f.Name] = len(out.records)
		out.records = append(out.records, rec)
	}
	return out, nil
}
