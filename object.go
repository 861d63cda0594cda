package zone

import (
	"reflect"
	"unsafe"
)

// ZoneObject is implemented by types that live in a zone. Embed Object to
// get it.
type ZoneObject interface {
	zoneObject()
}

// Object tags a struct as zone resident. Zone objects are never released
// one by one; DeleteAll reclaims them all together.
//
//	type Call struct {
//		zone.Object
//		Target *Expr
//		Args   *zone.List[*Expr]
//	}
//
//	c := zone.New[Call](z)
type Object struct{}

func (Object) zoneObject() {}

// Delete always panics with ErrForbiddenOperation.
func (Object) Delete() {
	forbiddenOperation("Object.Delete")
}

// Release is the generic individual release path. It always panics with
// ErrForbiddenOperation and never touches the zone.
func Release(obj ZoneObject) {
	forbiddenOperation("Release")
}

// New returns a pointer to a zeroed T stored in the zone. The pointer is
// valid until the next DeleteAll.
//
// The garbage collector does not scan zone memory: a T may point into the
// zone, but must not hold the only reference to Go heap memory.
func New[T any](z *Zone) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return new(T)
	}
	b := z.New(size)
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// NewArray returns a zeroed slice of length n stored in the zone. The same
// residency rules as for New apply to T.
func NewArray[T any](z *Zone, n int) []T {
	if n < 0 {
		invariantViolation("negative array length %d", n)
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if n == 0 || elemSize == 0 {
		return make([]T, n)
	}
	if n > maxRequestSize/elemSize {
		fatalOutOfMemory("NewArray", n, ErrOutOfMemory)
	}
	b := z.New(elemSize * n)
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// checkResident panics in debug builds if values of type t carry
// references the garbage collector would have to see: strings, maps,
// channels, functions and interfaces. Pointers and slices are accepted;
// they are expected to point into the zone.
func checkResident(t reflect.Type) {
	if !debugChecks {
		return
	}
	if what := heapReference(t, map[reflect.Type]bool{}); what != "" {
		invariantViolation("%s cannot live in a zone: it holds a %s", t, what)
	}
}

func heapReference(t reflect.Type, seen map[reflect.Type]bool) string {
	if seen[t] {
		return ""
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.String, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return t.Kind().String()
	case reflect.Array:
		return heapReference(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if what := heapReference(t.Field(i).Type, seen); what != "" {
				return what
			}
		}
	}
	return ""
}
