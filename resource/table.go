package resource

import (
	"sync"
)

// Table maps handles to Go values. It is safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	values    map[Handle]any
	free      []Handle
	next      Handle
	observers []Observer
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		values: make(map[Handle]any),
		next:   1,
	}
}

// Insert adds a value and returns its handle. Returns 0 once the table is closed.
func (t *Table) Insert(value any) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}
	var h Handle
	if n := len(t.free); n > 0 {
		h = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		h = t.next
		t.next++
	}
	t.values[h] = value
	obs := t.observers
	t.mu.Unlock()

	notify(obs, Event{Type: EventCreated, Handle: h, Value: value})
	return h
}

// Get retrieves a value by handle.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[h]
	return v, ok
}

// Remove drops a value and returns (value, true) if found.
func (t *Table) Remove(h Handle) (any, bool) {
	t.mu.Lock()
	v, ok := t.values[h]
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.values, h)
	t.free = append(t.free, h)
	obs := t.observers
	t.mu.Unlock()

	if d, ok := v.(Dropper); ok {
		d.Drop()
	}
	notify(obs, Event{Type: EventDropped, Handle: h, Value: v})
	return v, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers[:len(t.observers):len(t.observers)], o)
}

// Len returns the number of live values.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

// Close drops every value and stops accepting inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	handles := make([]Handle, 0, len(t.values))
	for h := range t.values {
		handles = append(handles, h)
	}
	t.mu.Unlock()

	for _, h := range handles {
		t.Remove(h)
	}
	return nil
}

func notify(observers []Observer, e Event) {
	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}
