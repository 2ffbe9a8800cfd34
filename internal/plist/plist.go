// Package plist provides an immutable, append-only list with structural
// sharing. Appending to a list never changes it; the returned list shares
// every existing node with the receiver, so branching chains stay cheap.
package plist

type node[T any] struct {
	prev  *node[T]
	value T
	size  int
}

// List is a persistent list. The zero value is an empty list.
type List[T any] struct {
	tail *node[T]
}

// Of builds a list from values in order.
func Of[T any](values ...T) List[T] {
	var l List[T]
	for _, v := range values {
		l = l.Append(v)
	}
	return l
}

// Append returns a list with v added at the end.
func (l List[T]) Append(v T) List[T] {
	return List[T]{tail: &node[T]{prev: l.tail, value: v, size: l.Len() + 1}}
}

// Concat returns a list with all values of other appended.
func (l List[T]) Concat(other List[T]) List[T] {
	if other.tail == nil {
		return l
	}
	if l.tail == nil {
		return other
	}
	for _, v := range other.Slice() {
		l = l.Append(v)
	}
	return l
}

// Len returns the number of elements.
func (l List[T]) Len() int {
	if l.tail == nil {
		return 0
	}
	return l.tail.size
}

// Last returns the most recently appended element.
func (l List[T]) Last() (T, bool) {
	if l.tail == nil {
		var zero T
		return zero, false
	}
	return l.tail.value, true
}

// Slice materializes the list in append order. The result is a fresh slice.
func (l List[T]) Slice() []T {
	out := make([]T, l.Len())
	i := len(out) - 1
	for n := l.tail; n != nil; n = n.prev {
		out[i] = n.value
		i--
	}
	return out
}

// Reverse visits elements newest first until fn returns false.
func (l List[T]) Reverse(fn func(T) bool) {
	for n := l.tail; n != nil; n = n.prev {
		if !fn(n.value) {
			return
		}
	}
}

// Map returns a new list with fn applied to every element.
func Map[T, U any](l List[T], fn func(T) U) List[U] {
	var out List[U]
	for _, v := range l.Slice() {
		out = out.Append(fn(v))
	}
	return out
}
