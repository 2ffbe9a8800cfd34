// Package description models the types that dyntype builds.
//
// A TypeRef names a type: a WIT primitive, a named type, a parameterized or
// array type, a type variable, or the Self placeholder that stands for the
// type currently under construction. Member tokens (FieldToken, MethodToken,
// ParameterToken) describe members independently of their owner and may embed
// Self anywhere, including inside generic arguments.
//
// Resolve substitutes Self with a concrete identity. It is structural and
// idempotent: resolving an already-resolved token returns an equal token.
//
// Type is the finalized, read-only view of a built type. Its Field and Method
// descriptions carry the name of the declaring type.
package description
