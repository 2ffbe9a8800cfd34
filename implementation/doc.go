// Package implementation provides method bodies for generated types.
//
// An Implementation first prepares the instrumented type (adding hidden
// fields, initializer blocks or runtime initializers it depends on) and is
// then asked for an appender once the type is finalized.
//
// Constant implementations (Value, StubValue) are fully static. Reference and
// Delegate bind Go values at load time: they add a hidden field and a
// scaffold.ForField initializer, which stores the value in the namespace
// value table and writes its handle into the field.
package implementation
