// Package emit turns a finalized type and its compiled registries into a
// WebAssembly module binary.
//
// Layout of an emitted type:
//
//	imports   host and sibling functions requested by implementations
//	globals   one exported global per field, mutable unless final
//	functions one per method with a body, exported as name(params) and,
//	          when the name is unique, also as name
//	start     the type initializer, when it has blocks
//	custom    "dyntype.type" with the JSON descriptor, plus any sections
//	          contributed by attribute appenders
//
// The binary is not validated here; the loading namespace compiles it.
package emit
