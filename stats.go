package zone

import "go.uber.org/atomic"

// allocationSize accumulates every byte handed out by any zone in the
// process. It is never reset, not even by DeleteAll.
var allocationSize = atomic.NewUint64(0)

// AllocationSize returns the cumulative number of bytes handed out by all
// zones since process start, including alignment padding.
func AllocationSize() uint64 {
	return allocationSize.Load()
}
