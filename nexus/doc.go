// Package nexus hands runtime-bound initializers to generated types across
// loading namespaces.
//
// A type built with the active resolution strategy carries a bootstrap in
// its start function: it calls the dyntype:nexus.initialize host function
// with a correlation id chosen when the build was resolved. The caller
// registers the type's initializer under (type name, namespace, id) before
// loading; the host function takes the entry out of the map and runs it.
// Because the entry is removed on lookup, each initializer runs at most once.
//
// Entries whose namespace is closed or collected before the type ever
// initializes stay in the map until CleanStaleEntries is called.
//
// The correlation id is a non-cryptographic random int32. Two builds of the
// same type name in the same namespace may collide; Register logs a warning
// and replaces the older entry.
package nexus
