package zone

import (
	"iter"
	"reflect"
	"slices"
)

// List is a growable array whose header and elements both live in a zone.
// Operations that may grow the list take the zone to allocate from; the
// list itself keeps no reference to it, which keeps it zone resident.
//
// Growing abandons the old backing array: its bytes are reclaimed by the
// next DeleteAll, like everything else in the zone.
type List[T any] struct {
	Object
	data   []T // len(data) is the capacity
	length int
}

// NewList allocates an empty list with room for capacity elements.
// A negative capacity panics with ErrInvariantViolation.
func NewList[T any](z *Zone, capacity int) *List[T] {
	if capacity < 0 {
		invariantViolation("negative list capacity %d", capacity)
	}
	checkResident(reflect.TypeFor[T]())
	l := New[List[T]](z)
	l.data = NewArray[T](z, capacity)
	return l
}

// Clone returns a new list in z holding a copy of every element of l.
func (l *List[T]) Clone(z *Zone) *List[T] {
	c := New[List[T]](z)
	c.data = NewArray[T](z, l.length)
	c.length = copy(c.data, l.data[:l.length])
	return c
}

func (l *List[T]) Len() int { return l.length }

func (l *List[T]) Cap() int { return len(l.data) }

func (l *List[T]) IsEmpty() bool { return l.length == 0 }

// At returns the i'th element.
func (l *List[T]) At(i int) T {
	l.checkIndex(i)
	return l.data[i]
}

// Set replaces the i'th element.
func (l *List[T]) Set(i int, v T) {
	l.checkIndex(i)
	l.data[i] = v
}

func (l *List[T]) First() T { return l.At(0) }

func (l *List[T]) Last() T { return l.At(l.length - 1) }

// Add appends v, growing the backing array from z when it is full.
func (l *List[T]) Add(z *Zone, v T) {
	if l.length == len(l.data) {
		l.resize(z, 1+2*len(l.data))
	}
	l.data[l.length] = v
	l.length++
}

// AddAll appends every element of other.
func (l *List[T]) AddAll(z *Zone, other *List[T]) {
	if need := l.length + other.length; need > len(l.data) {
		l.resize(z, need)
	}
	l.length += copy(l.data[l.length:], other.data[:other.length])
}

// InsertAt inserts v before the i'th element; i may equal Len.
func (l *List[T]) InsertAt(z *Zone, i int, v T) {
	if i < 0 || i > l.length {
		invariantViolation("list insert index %d out of range [0, %d]", i, l.length)
	}
	l.Add(z, v)
	copy(l.data[i+1:l.length], l.data[i:l.length-1])
	l.data[i] = v
}

// RemoveAt removes and returns the i'th element, shifting the tail down.
func (l *List[T]) RemoveAt(i int) T {
	l.checkIndex(i)
	v := l.data[i]
	copy(l.data[i:], l.data[i+1:l.length])
	l.length--
	var zero T
	l.data[l.length] = zero
	return v
}

// RemoveLast removes and returns the last element.
func (l *List[T]) RemoveLast() T {
	return l.RemoveAt(l.length - 1)
}

// Clear drops all elements and the backing array. The array's bytes stay
// in the zone until DeleteAll.
func (l *List[T]) Clear() {
	l.data = nil
	l.length = 0
}

// Rewind truncates the list to pos elements, keeping its capacity.
func (l *List[T]) Rewind(pos int) {
	if pos < 0 || pos > l.length {
		invariantViolation("list rewind to %d out of range [0, %d]", pos, l.length)
	}
	clear(l.data[pos:l.length])
	l.length = pos
}

// IndexFunc returns the index of the first element satisfying f, or -1.
func (l *List[T]) IndexFunc(f func(T) bool) int {
	return slices.IndexFunc(l.data[:l.length], f)
}

// Sort sorts the list in place using cmp.
func (l *List[T]) Sort(cmp func(a, b T) int) {
	slices.SortFunc(l.data[:l.length], cmp)
}

// Iterate calls f for each element in order.
func (l *List[T]) Iterate(f func(i int, v T)) {
	for i, v := range l.data[:l.length] {
		f(i, v)
	}
}

// All returns an iterator over the list's indices and elements.
func (l *List[T]) All() iter.Seq2[int, T] {
	return slices.All(l.data[:l.length])
}

// ToSlice returns the elements as a slice sharing the zone storage. It is
// valid until the list grows or the zone is deleted.
func (l *List[T]) ToSlice() []T {
	return l.data[:l.length:l.length]
}

// ListContains reports whether l holds an element equal to v.
func ListContains[T comparable](l *List[T], v T) bool {
	return slices.Contains(l.data[:l.length], v)
}

func (l *List[T]) resize(z *Zone, capacity int) {
	data := NewArray[T](z, capacity)
	copy(data, l.data[:l.length])
	l.data = data
}

func (l *List[T]) checkIndex(i int) {
	if i < 0 || i >= l.length {
		invariantViolation("list index %d out of range [0, %d)", i, l.length)
	}
}
