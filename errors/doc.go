// Package errors provides structured error types for dyntype.
//
// Errors are categorized by Phase (where in the build/load lifecycle the error
// occurred) and Kind (error category). The Error type carries the member path,
// the offending type reference and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCompile, errors.KindHandlerMismatch).
//		Path("Sample", "get").
//		TypeRef("s32").
//		Detail("abstract method cannot carry an implementation").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidDefinition(errors.PhaseBuild, path, "field type is nil")
//	err := errors.Duplicate(errors.PhaseCompile, "field", "count")
//
// All errors implement the standard error interface and support errors.Is/As.
// Sentinels such as ErrDispatcherUnavailable match by Kind alone.
package errors
