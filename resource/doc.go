// Package resource provides the live value table of a loading namespace.
//
// Generated types cannot embed Go values in their binary. Instead, runtime-bound
// values are inserted into the namespace table and the resulting integer handle
// is written into an exported global of the loaded module:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(myDelegate)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove it when the owner goes away
//	value, ok := table.Remove(handle)
//
// Handle 0 is reserved and always invalid, so a zero-initialized global reads
// as "not yet bound". Removed handles are recycled.
//
// Values implementing Dropper are notified when removed or when the table is
// closed. Observers receive created/dropped events.
package resource
