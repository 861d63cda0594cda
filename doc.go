// Package zone implements a segment-chained region allocator ("zone") for
// short-lived objects that are freed all at once.
//
// # Overview
//
// A zone hands out memory by bumping a cursor through its current segment.
// Objects are never freed individually; DeleteAll reclaims everything in one
// operation. This suits phases that build large temporary structures, such
// as a parse tree, and throw them away when the phase ends.
//
//   - Allocation: O(1), a bounds check and an add on the fast path
//   - DeleteAll: O(number of segments)
//   - No per-object bookkeeping
//
// # Basic Usage
//
//	owner, err := zone.NewOwner(zone.DefaultConfig(), logger, prometheus.DefaultRegisterer)
//	if err != nil {
//		return err
//	}
//	defer owner.Close()
//
//	err = owner.WithScope(zone.DeleteOnExit, func(z *zone.Zone) error {
//		buf := z.New(128)                  // raw, pointer aligned bytes
//		n := zone.New[Node](z)             // zeroed typed value
//		l := zone.NewList[*Node](z, 4)     // growable list
//		l.Add(z, n)
//		return parse(z, buf, l)
//	})
//
// # Segments
//
// Segments come from a SegmentAllocator: Go heap slices by default, or
// anonymous mmap on unix. Each new segment is sized at the request plus
// twice the previous segment, bounded by MinimumSegmentSize and
// MaximumSegmentSize; larger requests get a segment of their own size.
// DeleteAll keeps the most recent segment if it is at most
// MaximumKeptSegmentSize, so the next phase starts without asking the
// allocator for memory.
//
// # Scopes
//
// Scopes mark phases. Only when the outermost scope exits in DeleteOnExit
// mode is the zone deleted, so a nested phase never sees memory vanish
// under it.
//
// # Residency Rules
//
// The garbage collector does not scan zone memory. Values stored in a zone
// may point to other zone memory, but must not hold the only reference to
// Go heap memory such as strings, maps or closures. Resources that need
// deterministic release must be owned elsewhere.
//
// # Thread Safety
//
// A zone is used by one goroutine at a time and does no locking. Only the
// process-wide state (AllocationSize, AssertNoAllocation, the out-of-memory
// handler) is safe for concurrent use.
//
// # Debug Checks
//
// By default the package checks its contracts: allocation inside
// AssertNoAllocation panics, typed front-ends reject element types that
// hold heap references, and kept segments are filled with 0xcd on
// DeleteAll. Build with -tags zone_release to compile these checks out.
package zone
