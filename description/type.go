package description

// Member is implemented by Field and Method.
type Member interface {
	MemberName() string
	MemberModifiers() Modifiers
	DeclaringTypeName() string
}

// Field is a field declared by a finalized type.
type Field struct {
	FieldToken
	DeclaringType string
}

func (f Field) MemberName() string         { return f.Name }
func (f Field) MemberModifiers() Modifiers { return f.Modifiers }
func (f Field) DeclaringTypeName() string  { return f.DeclaringType }

// Signature returns the field's identity.
func (f Field) Signature() FieldSignature { return f.FieldToken.Signature(f.DeclaringType) }

// Method is a method declared by a finalized type.
type Method struct {
	MethodToken
	DeclaringType string
}

func (m Method) MemberName() string         { return m.Name }
func (m Method) MemberModifiers() Modifiers { return m.Modifiers }
func (m Method) DeclaringTypeName() string  { return m.DeclaringType }

// Signature returns the method's identity.
func (m Method) Signature() SignatureToken { return m.MethodToken.Signature(m.DeclaringType) }

// IsAbstract reports whether the method has no body.
func (m Method) IsAbstract() bool { return m.Modifiers.Has(Abstract) }

// Type is a finalized type: every Self placeholder has been substituted.
type Type struct {
	Name          string
	Modifiers     Modifiers
	Supertype     TypeRef
	Interfaces    []TypeRef
	TypeVariables []TypeVariableToken
	Fields        []Field
	Methods       []Method
	Annotations   []Annotation
}

// IsInterface reports whether the type is an interface or annotation type.
func (t *Type) IsInterface() bool { return t.Modifiers.Has(Interface) }

// IsAnnotation reports whether the type is an annotation type.
func (t *Type) IsAnnotation() bool { return t.Modifiers.Has(Interface | AnnotationType) }

// IsAbstract reports whether the type may declare methods without bodies.
func (t *Type) IsAbstract() bool { return t.Modifiers.Has(Abstract) || t.IsInterface() }

// HasSupertype reports whether the type extends something other than Object.
func (t *Type) HasSupertype() bool {
	return t.Supertype != nil && !Equal(Erasure(t.Supertype), Object)
}

// Field looks up a declared field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Method looks up a declared method by signature.
func (t *Type) Method(sig SignatureToken) (Method, bool) {
	for _, m := range t.Methods {
		if m.Signature() == sig {
			return m, true
		}
	}
	return Method{}, false
}

// MethodsNamed returns every declared method called name.
func (t *Type) MethodsNamed(name string) []Method {
	var out []Method
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}
