// Package wasm is the minimal WebAssembly core module model the emitter
// assembles before encoding: function types, function imports, globals,
// exports, a start function, code bodies and custom sections.
//
// It also provides the LEB128 primitives and a section scanner used to read
// custom sections back out of emitted binaries.
package wasm
