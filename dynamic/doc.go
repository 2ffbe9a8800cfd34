// Package dynamic builds runtime-loadable types.
//
// A Builder is an immutable value: every method returns a new builder and
// leaves the receiver untouched, so partially configured builders can be
// shared and branched. Nothing happens until Make, which
//
//  1. names the type (directly or through the NamingStrategy),
//  2. resolves the Self placeholder in every token and initializer block,
//  3. compiles the field and method registries,
//  4. hands everything to the emitter, and
//  5. returns a DynamicType bundling the binary with its auxiliary types
//     and runtime-bound initializers.
//
// Loading a DynamicType goes through the TypeResolutionStrategy chosen at
// build time. Passive runs initializers right after loading, Active hands
// them to the type's own start function through the nexus, Lazy never runs
// them and Disabled refuses types that have any.
package dynamic
