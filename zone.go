package zone

import (
	"math"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// Alignment is the alignment of every address returned by Zone.New.
	Alignment = int(unsafe.Sizeof(uintptr(0)))

	// MinimumSegmentSize is the smallest segment a zone ever creates.
	MinimumSegmentSize = 8 << 10

	// MaximumSegmentSize caps geometric growth. Requests larger than this
	// get a segment of exactly their (aligned) size.
	MaximumSegmentSize = 1 << 20

	// MaximumKeptSegmentSize is the largest segment DeleteAll keeps around
	// for the next phase.
	MaximumKeptSegmentSize = 64 << 10

	// DefaultExcessLimit is the excess allocation threshold used when the
	// configuration does not set one.
	DefaultExcessLimit = 256 << 20

	// maxRequestSize keeps the growth arithmetic in expand from overflowing.
	maxRequestSize = math.MaxInt - 4*MaximumSegmentSize

	zapDeadByte = 0xcd
)

// Zone is a region allocator. Memory is handed out by bumping a cursor
// through the front segment and is only ever reclaimed all at once by
// DeleteAll. A zone needs no initialization: the first allocation creates
// the first segment.
//
// A zone belongs to exactly one Owner and must only be used by one
// goroutine at a time. No locking is done.
type Zone struct {
	// The free region of the head segment is [position, limit), as offsets
	// into head.buf. position is always a multiple of Alignment.
	position int
	limit    int

	head *Segment

	// Bytes held in segments, including space not yet handed out.
	segmentBytesAllocated int
	excessLimit           int
	scopeNesting          int

	owner     *Owner
	allocator SegmentAllocator
	logger    log.Logger
	metrics   *metrics

	segmentsCreated uint64
	bulkDeletions   uint64
}

func newZone(owner *Owner, allocator SegmentAllocator, excessLimit int, logger log.Logger, m *metrics) *Zone {
	return &Zone{
		owner:       owner,
		allocator:   allocator,
		excessLimit: excessLimit,
		logger:      logger,
		metrics:     m,
	}
}

// New returns size bytes of zone memory. The slice starts at an address
// aligned to Alignment and has len and cap equal to size; the contents are
// whatever the segment held before, zero for fresh segments.
//
// The memory stays valid until the next DeleteAll. A negative size panics
// with ErrInvariantViolation; a failing segment allocator invokes the
// process-wide out-of-memory handler.
func (z *Zone) New(size int) []byte {
	checkAllocationAllowed()
	if size < 0 {
		invariantViolation("negative allocation size %d", size)
	}

	n := alignUp(size)
	if z.head == nil || uint(n) > uint(z.limit-z.position) {
		return z.expand(size)
	}
	p := z.position
	z.position = p + n
	allocationSize.Add(uint64(n))
	return z.head.buf[p : p+size : p+size]
}

// expand creates a new head segment that can hold size more bytes and
// serves the request from it. It is only called when the current free
// region is too small.
func (z *Zone) expand(size int) []byte {
	if size > maxRequestSize {
		fatalOutOfMemory("Zone::expand", size, ErrOutOfMemory)
	}
	n := alignUp(size)

	oldSize := 0
	if z.head != nil {
		oldSize = z.head.Size()
	}
	newSize := MaximumSegmentSize
	if grown := n + oldSize<<1; oldSize <= MaximumSegmentSize && grown <= MaximumSegmentSize {
		newSize = max(grown, MinimumSegmentSize)
	}
	newSize = max(newSize, n)

	seg := z.newSegment(newSize)
	z.position = n
	z.limit = seg.Size()
	allocationSize.Add(uint64(n))
	return seg.buf[:size:size]
}

// newSegment obtains a segment from the allocator and pushes it to the
// front of the chain.
func (z *Zone) newSegment(size int) *Segment {
	buf, err := z.allocator.Allocate(size)
	if err != nil {
		fatalOutOfMemory("Zone::newSegment", size, err)
	}
	seg := &Segment{next: z.head, buf: buf}
	if seg.Size() != size || seg.Start()%uintptr(Alignment) != 0 {
		invariantViolation("segment allocator returned %d bytes at %#x for a %d byte request", seg.Size(), seg.Start(), size)
	}

	wasExcess := z.ExcessAllocation()
	z.head = seg
	z.segmentBytesAllocated += size
	z.segmentsCreated++
	z.metrics.segmentCreated(z)

	level.Debug(z.logger).Log(
		"msg", "zone segment allocated",
		"size", humanize.IBytes(uint64(size)),
		"segment_bytes", humanize.IBytes(uint64(z.segmentBytesAllocated)),
	)
	if !wasExcess && z.ExcessAllocation() {
		level.Warn(z.logger).Log(
			"msg", "zone allocation exceeds limit",
			"segment_bytes", humanize.IBytes(uint64(z.segmentBytesAllocated)),
			"limit", humanize.IBytes(uint64(z.excessLimit)),
		)
	}
	return seg
}

// deleteSegment returns seg to the allocator. It does not touch the chain.
func (z *Zone) deleteSegment(seg *Segment) {
	if err := z.allocator.Free(seg.buf); err != nil {
		level.Warn(z.logger).Log("msg", "failed to release zone segment", "size", seg.Size(), "err", err)
	}
	seg.buf, seg.next = nil, nil
}

// DeleteAll releases every segment and with it every object allocated in
// the zone. If the most recently created segment is no larger than
// MaximumKeptSegmentSize it is kept, emptied, for the next phase.
//
// All memory previously returned by New becomes invalid.
func (z *Zone) DeleteAll() {
	var keep *Segment
	if z.head != nil && z.head.Size() <= MaximumKeptSegmentSize {
		keep = z.head
	}

	released := 0
	for seg := z.head; seg != nil; {
		next := seg.next
		if seg != keep {
			released++
			z.deleteSegment(seg)
		}
		seg = next
	}

	z.head = keep
	z.position, z.limit, z.segmentBytesAllocated = 0, 0, 0
	if keep != nil {
		keep.next = nil
		if debugChecks {
			zapSegment(keep.buf)
		}
		z.limit = keep.Size()
		z.segmentBytesAllocated = keep.Size()
	}
	z.bulkDeletions++
	z.metrics.bulkDeleted(z, released)

	level.Debug(z.logger).Log(
		"msg", "zone deleted",
		"released_segments", released,
		"kept_bytes", z.segmentBytesAllocated,
	)
}

// DeleteKeptSegment releases the segment kept by the last DeleteAll, if
// any, leaving the zone as it was before its first allocation. It must
// only be called right after DeleteAll.
func (z *Zone) DeleteKeptSegment() {
	if z.head == nil {
		return
	}
	if z.head.next != nil {
		invariantViolation("DeleteKeptSegment with %d live segments", z.NumSegments())
	}
	z.deleteSegment(z.head)
	z.head = nil
	z.position, z.limit, z.segmentBytesAllocated = 0, 0, 0
	z.metrics.keptSegmentReleased(z)

	level.Debug(z.logger).Log("msg", "zone kept segment released")
}

// ExcessAllocation reports whether the zone holds more segment bytes than
// its excess limit allows. It is advisory: the owner decides what to do.
func (z *Zone) ExcessAllocation() bool {
	return z.segmentBytesAllocated > z.excessLimit
}

// AdjustSegmentBytesAllocated accounts for delta bytes of memory that the
// caller manages on the zone's behalf.
func (z *Zone) AdjustSegmentBytesAllocated(delta int) {
	z.segmentBytesAllocated += delta
	z.metrics.update(z)
}

// SegmentBytesAllocated returns the bytes held in segments, including the
// part of the head segment not yet handed out.
func (z *Zone) SegmentBytesAllocated() int { return z.segmentBytesAllocated }

// ExcessLimit returns the threshold used by ExcessAllocation.
func (z *Zone) ExcessLimit() int { return z.excessLimit }

// ScopeNesting returns the number of open scopes on this zone.
func (z *Zone) ScopeNesting() int { return z.scopeNesting }

// Owner returns the owner this zone belongs to.
func (z *Zone) Owner() *Owner { return z.owner }

// Head returns the front segment of the chain, or nil.
func (z *Zone) Head() *Segment { return z.head }

// NumSegments returns the length of the segment chain.
func (z *Zone) NumSegments() int {
	n := 0
	for seg := z.head; seg != nil; seg = seg.next {
		n++
	}
	return n
}
