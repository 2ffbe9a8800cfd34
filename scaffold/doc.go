// Package scaffold holds the accumulating state of a type under construction.
//
// InstrumentedType is an immutable descriptor: every With* call returns a new
// value and leaves the receiver usable, so one descriptor can be extended
// along independent branches. Member lists are persistent, which keeps long
// builder chains linear.
//
// Validate finalizes a descriptor into a description.Type, substituting the
// Self placeholder exactly once, and resolves initializer blocks against the
// final identity.
//
// A LoadedTypeInitializer runs once per loaded type to bind runtime state the
// binary cannot carry, such as a Go value referenced from a field.
package scaffold
