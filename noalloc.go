package zone

import "go.uber.org/atomic"

var allocationAllowed = atomic.NewBool(true)

// NoAllocationScope forbids zone allocation in the whole process while it
// is active. Scopes nest: Exit restores whatever state was in effect when
// the scope was created.
//
// The guard is a debug instrument. Building with the zone_release tag turns
// it into a no-op.
type NoAllocationScope struct {
	previous bool
}

// AssertNoAllocation marks the start of a section that must not allocate
// from any zone. Any Zone.New while the section is active panics with
// ErrInvariantViolation.
//
//	guard := zone.AssertNoAllocation()
//	defer guard.Exit()
func AssertNoAllocation() *NoAllocationScope {
	if !debugChecks {
		return &NoAllocationScope{previous: true}
	}
	return &NoAllocationScope{previous: allocationAllowed.Swap(false)}
}

// Exit restores the allocation state saved by AssertNoAllocation.
func (s *NoAllocationScope) Exit() {
	if !debugChecks {
		return
	}
	allocationAllowed.Store(s.previous)
}

// AllocationAllowed reports whether zone allocation is currently permitted.
func AllocationAllowed() bool {
	return !debugChecks || allocationAllowed.Load()
}

func checkAllocationAllowed() {
	if debugChecks && !allocationAllowed.Load() {
		invariantViolation("zone allocation inside a no-allocation scope")
	}
}
