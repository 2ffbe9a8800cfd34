// Package registry resolves which handler, attribute appender and
// transformer apply to each member of a finalized type.
//
// Registries are persistent: Append returns a new registry and never
// changes the receiver, so builders sharing a prefix can branch freely.
//
// When several entries match the same member, the most recently appended
// one wins. Members no entry matches, and members excluded by the ignore
// matcher, receive DefaultMethodHandler: Abstract for abstract or
// interface-declared methods, PassThrough otherwise.
package registry
