package zone

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Segment is one contiguous block obtained from a SegmentAllocator. The
// zone keeps its segments in a singly linked chain, most recently created
// first.
type Segment struct {
	next *Segment
	buf  []byte // exactly as returned by the allocator
}

// Size returns the number of usable bytes in the segment.
func (s *Segment) Size() int { return len(s.buf) }

// Start returns the address of the first byte of the segment.
func (s *Segment) Start() uintptr { return uintptr(unsafe.Pointer(unsafe.SliceData(s.buf))) }

// End returns the address one past the last byte of the segment.
func (s *Segment) End() uintptr { return s.Start() + uintptr(len(s.buf)) }

// Next returns the segment created before s, or nil.
func (s *Segment) Next() *Segment { return s.next }

// SegmentAllocator obtains and returns the memory backing zone segments.
// Allocate must return a buffer of exactly size bytes whose first byte is
// aligned to Alignment. Free receives the same slice Allocate returned.
type SegmentAllocator interface {
	Allocate(size int) ([]byte, error)
	Free(buf []byte) error
}

// HeapAllocator backs segments with ordinary Go byte slices. Dropped
// segments are reclaimed by the garbage collector once nothing refers to
// them any more.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(size int) (buf []byte, err error) {
	defer func() {
		// make panics (rather than failing fatally) when the length cannot
		// be represented.
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = errors.Errorf("%v", r)
			}
			buf, err = nil, &OutOfMemoryError{Location: "HeapAllocator.Allocate", Size: size, Err: cause}
		}
	}()
	return make([]byte, size), nil
}

func (HeapAllocator) Free([]byte) error { return nil }

// alignUp rounds n up to the next multiple of Alignment.
func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// zapSegment fills buf with a recognizable pattern so that stale reads of
// released memory stand out in debug builds.
func zapSegment(buf []byte) {
	for i := range buf {
		buf[i] = zapDeadByte
	}
}
