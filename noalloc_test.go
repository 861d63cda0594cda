package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertNoAllocation(t *testing.T) {
	if !debugChecks {
		t.Skip("no-allocation guard is compiled out")
	}
	z, _ := newTestZone(t)
	z.New(16)
	before := z.Metrics()

	guard := AssertNoAllocation()
	require.False(t, AllocationAllowed())
	requirePanicsWith(t, ErrInvariantViolation, func() { z.New(8) })
	assert.Equal(t, before, z.Metrics(), "rejected allocation must not touch the zone")

	nested := AssertNoAllocation()
	nested.Exit()
	assert.False(t, AllocationAllowed(), "inner exit restores the outer forbidden state")

	guard.Exit()
	require.True(t, AllocationAllowed())
	z.New(8)
	checkZoneInvariants(t, z)
}

func TestAssertNoAllocationDoesNotBlockReads(t *testing.T) {
	z, _ := newTestZone(t)
	l := NewList[int](z, 4)
	for i := 0; i < 4; i++ {
		l.Add(z, i)
	}

	guard := AssertNoAllocation()
	defer guard.Exit()
	sum := 0
	l.Iterate(func(_ int, v int) { sum += v })
	assert.Equal(t, 6, sum)
}
