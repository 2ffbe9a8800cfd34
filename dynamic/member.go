package dynamic

import (
	"github.com/wippyai/dyntype/attribute"
	"github.com/wippyai/dyntype/description"
	"github.com/wippyai/dyntype/errors"
	"github.com/wippyai/dyntype/implementation"
	"github.com/wippyai/dyntype/matcher"
	"github.com/wippyai/dyntype/registry"
	"github.com/wippyai/dyntype/scaffold"
)

// FieldDefinition is a field being defined or matched. Done folds it back
// into the builder.
type FieldDefinition struct {
	b           Builder
	token       *description.FieldToken
	latent      matcher.Latent[description.Field]
	attrs       []attribute.FieldFactory
	transformer scaffold.Transformer[description.Field]
	value       any
}

// DefineField starts a new field.
func (b Builder) DefineField(name string, t description.TypeRef, mods description.Modifiers) FieldDefinition {
	token := description.NewField(name, t, mods)
	return FieldDefinition{b: b, token: &token}
}

// Field matches fields declared on the finalized type, including ones
// added by implementations.
func (b Builder) Field(latent matcher.Latent[description.Field]) FieldDefinition {
	return FieldDefinition{b: b, latent: latent}
}

// Annotate adds annotations to the field.
func (d FieldDefinition) Annotate(annotations ...description.Annotation) FieldDefinition {
	if d.token != nil {
		token := d.token.WithAnnotations(annotations...)
		d.token = &token
		return d
	}
	return d.Attribute(attribute.Explicit[description.Field](annotations...))
}

// Attribute adds a field attribute appender factory.
func (d FieldDefinition) Attribute(f attribute.FieldFactory) FieldDefinition {
	d.attrs = append(d.attrs[:len(d.attrs):len(d.attrs)], f)
	return d
}

// Transform rewrites the field before emission. Its signature must not change.
func (d FieldDefinition) Transform(t scaffold.Transformer[description.Field]) FieldDefinition {
	d.transformer = t
	return d
}

// Value sets the field's initial value. It must be a constant of the
// field's primitive type.
func (d FieldDefinition) Value(v any) FieldDefinition {
	d.value = v
	return d
}

// Done registers the field and returns the builder.
func (d FieldDefinition) Done() Builder {
	b := d.b
	latent := d.latent
	if d.token != nil {
		if err := d.token.Validate(); err != nil {
			return b.fail(err)
		}
		b.it = b.it.WithField(*d.token)
		latent = matcher.ForFieldToken(*d.token)
	}
	if latent == nil {
		return b.fail(errors.InvalidInput(errors.PhaseBuild, "field matcher is nil"))
	}
	b.fields = b.fields.Append(latent, fieldAttribute(d.attrs), d.value, d.transformer)
	return b
}

// Make is Done followed by Make.
func (d FieldDefinition) Make() (*DynamicType, error) { return d.Done().Make() }

func fieldAttribute(extra []attribute.FieldFactory) attribute.FieldFactory {
	if len(extra) == 0 {
		return nil
	}
	return append(attribute.CompoundFactory[description.Field]{attribute.ForInstrumented[description.Field]()}, extra...)
}

func methodAttribute(extra []attribute.MethodFactory) attribute.MethodFactory {
	if len(extra) == 0 {
		return nil
	}
	return append(attribute.CompoundFactory[description.Method]{attribute.ForInstrumented[description.Method]()}, extra...)
}

// MethodDefinition is a new method whose shape is still open.
type MethodDefinition struct {
	b     Builder
	token description.MethodToken
}

// DefineMethod starts a new method.
func (b Builder) DefineMethod(name string, returns description.TypeRef, mods description.Modifiers) MethodDefinition {
	return MethodDefinition{b: b, token: description.NewMethod(name, returns, mods)}
}

// Parameter appends a named parameter.
func (d MethodDefinition) Parameter(t description.TypeRef, name string, annotations ...description.Annotation) MethodDefinition {
	d.token = d.token.WithParameters(description.Param(t, name, annotations...))
	return d
}

// Parameters appends unnamed parameters.
func (d MethodDefinition) Parameters(types ...description.TypeRef) MethodDefinition {
	for _, t := range types {
		d.token = d.token.WithParameters(description.Param(t, ""))
	}
	return d
}

// Throws declares exception types.
func (d MethodDefinition) Throws(types ...description.TypeRef) MethodDefinition {
	d.token = d.token.WithExceptions(types...)
	return d
}

// TypeVariable declares a method type variable.
func (d MethodDefinition) TypeVariable(symbol string, bounds ...description.TypeRef) MethodDefinition {
	d.token = d.token.WithTypeVariables(description.TypeVar(symbol, bounds...))
	return d
}

// Annotate adds method annotations.
func (d MethodDefinition) Annotate(annotations ...description.Annotation) MethodDefinition {
	d.token = d.token.WithAnnotations(annotations...)
	return d
}

// Intercept implements the method.
func (d MethodDefinition) Intercept(impl implementation.Implementation) MethodImplemented {
	return d.implemented(registry.Implemented(impl))
}

// WithoutCode declares the method abstract.
func (d MethodDefinition) WithoutCode() MethodImplemented {
	d.token.Modifiers = d.token.Modifiers.With(description.Abstract)
	return d.implemented(registry.Abstract)
}

// DefaultValue declares an annotation property with a default.
func (d MethodDefinition) DefaultValue(v any) MethodImplemented {
	d.token.Modifiers = d.token.Modifiers.With(description.Abstract)
	return d.implemented(registry.DefaultValue(v))
}

func (d MethodDefinition) implemented(h registry.Handler) MethodImplemented {
	token := d.token
	return MethodImplemented{b: d.b, token: &token, handler: h}
}

// MethodMatch selects existing methods for a handler.
type MethodMatch struct {
	b      Builder
	latent matcher.Latent[description.Method]
}

// Method matches methods of the finalized type.
func (b Builder) Method(latent matcher.Latent[description.Method]) MethodMatch {
	return MethodMatch{b: b, latent: latent}
}

// Intercept implements matched methods.
func (m MethodMatch) Intercept(impl implementation.Implementation) MethodImplemented {
	return MethodImplemented{b: m.b, latent: m.latent, handler: registry.Implemented(impl)}
}

// WithoutCode leaves matched methods abstract.
func (m MethodMatch) WithoutCode() MethodImplemented {
	return MethodImplemented{b: m.b, latent: m.latent, handler: registry.Abstract}
}

// DefaultValue gives matched annotation properties a default.
func (m MethodMatch) DefaultValue(v any) MethodImplemented {
	return MethodImplemented{b: m.b, latent: m.latent, handler: registry.DefaultValue(v)}
}

// MethodImplemented is a method with a handler, awaiting decoration.
type MethodImplemented struct {
	b           Builder
	token       *description.MethodToken
	latent      matcher.Latent[description.Method]
	handler     registry.Handler
	attrs       []attribute.MethodFactory
	transformer scaffold.Transformer[description.Method]
}

// Annotate adds method annotations.
func (m MethodImplemented) Annotate(annotations ...description.Annotation) MethodImplemented {
	if m.token != nil {
		token := m.token.WithAnnotations(annotations...)
		m.token = &token
		return m
	}
	return m.Attribute(attribute.Explicit[description.Method](annotations...))
}

// Attribute adds a method attribute appender factory.
func (m MethodImplemented) Attribute(f attribute.MethodFactory) MethodImplemented {
	m.attrs = append(m.attrs[:len(m.attrs):len(m.attrs)], f)
	return m
}

// Transform rewrites the method before emission. Its signature must not change.
func (m MethodImplemented) Transform(t scaffold.Transformer[description.Method]) MethodImplemented {
	m.transformer = t
	return m
}

// Done registers the method and its handler and returns the builder.
func (m MethodImplemented) Done() Builder {
	b := m.b
	latent := m.latent
	if m.token != nil {
		if err := m.token.Validate(); err != nil {
			return b.fail(err)
		}
		b.it = b.it.WithMethod(*m.token)
		latent = matcher.ForMethodToken(*m.token)
	}
	if latent == nil {
		return b.fail(errors.InvalidInput(errors.PhaseBuild, "method matcher is nil"))
	}
	b.methods = b.methods.Append(latent, m.handler, methodAttribute(m.attrs), m.transformer)
	return b
}

// Make is Done followed by Make.
func (m MethodImplemented) Make() (*DynamicType, error) { return m.Done().Make() }
