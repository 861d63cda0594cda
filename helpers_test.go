package zone

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// countingAllocator records every call that reaches the system allocator.
type countingAllocator struct {
	HeapAllocator
	allocs []int
	frees  int
	fail   error
}

func (a *countingAllocator) Allocate(size int) ([]byte, error) {
	if a.fail != nil {
		return nil, a.fail
	}
	a.allocs = append(a.allocs, size)
	return a.HeapAllocator.Allocate(size)
}

func (a *countingAllocator) Free(buf []byte) error {
	a.frees++
	return a.HeapAllocator.Free(buf)
}

func newTestOwner(t testing.TB, opts ...Option) *Owner {
	t.Helper()
	o, err := NewOwner(DefaultConfig(), nil, nil, opts...)
	require.NoError(t, err)
	return o
}

func newTestZone(t testing.TB) (*Zone, *countingAllocator) {
	t.Helper()
	alloc := &countingAllocator{}
	return newTestOwner(t, WithSegmentAllocator(alloc)).Zone(), alloc
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// recoverError runs f and returns the error it panicked with, or nil.
func recoverError(t *testing.T, f func()) (err error) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			err, ok = r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
		}
	}()
	f()
	return nil
}

func requirePanicsWith(t *testing.T, target error, f func()) {
	t.Helper()
	err := recoverError(t, f)
	require.Error(t, err, "expected a panic")
	require.True(t, errors.Is(err, target), "panic %v is not %v", err, target)
}

// checkZoneInvariants verifies the cursor invariants of z.
func checkZoneInvariants(t *testing.T, z *Zone) {
	t.Helper()
	require.LessOrEqual(t, z.position, z.limit)
	require.Zero(t, z.position%Alignment, "position %d not aligned", z.position)
	total := 0
	for seg := z.head; seg != nil; seg = seg.next {
		total += seg.Size()
	}
	require.Equal(t, total, z.SegmentBytesAllocated())
	if z.head != nil {
		require.Equal(t, z.head.Size(), z.limit)
	}
}
