package main

import (
	"cmp"
	"math/rand/v2"

	"github.com/pavanmanishd/zone"
)

// node is a synthetic syntax tree node. It lives entirely in the zone.
type node struct {
	zone.Object
	id       int64
	depth    int32
	weight   int64
	children *zone.List[*node]
}

type phaseStats struct {
	nodes        int
	depth        int32
	weight       int64
	median       int64
	segments     int
	segmentBytes int
	excess       bool
}

// runPhase builds a random tree of n nodes, indexes it, and analyses it, all
// inside a DeleteOnExit scope. Everything the phase allocates is gone when
// it returns.
func runPhase(owner *zone.Owner, n int, rng *rand.Rand) (phaseStats, error) {
	var st phaseStats
	err := owner.WithScope(zone.DeleteOnExit, func(z *zone.Zone) error {
		all := buildTree(z, n, rng)
		index := zone.NewOrderedSplayTree[int64, *node](z)
		for _, nd := range all.All() {
			loc, _ := index.Insert(nd.id)
			loc.SetValue(nd)
		}

		median, err := medianWeight(owner, index)
		if err != nil {
			return err
		}
		st.median = median

		// The analysis below reads the tree only.
		guard := zone.AssertNoAllocation()
		index.ForEach(func(_ int64, nd *node) {
			st.nodes++
			st.weight += nd.weight
			st.depth = max(st.depth, nd.depth)
		})
		guard.Exit()

		st.segments = z.NumSegments()
		st.segmentBytes = z.SegmentBytesAllocated()
		st.excess = z.ExcessAllocation()
		return nil
	})
	return st, err
}

// buildTree creates n nodes, attaching each to a random earlier node, and
// returns them in creation order.
func buildTree(z *zone.Zone, n int, rng *rand.Rand) *zone.List[*node] {
	all := zone.NewList[*node](z, 0)
	for i := 0; i < n; i++ {
		nd := zone.New[node](z)
		nd.id = int64(i)
		nd.weight = rng.Int64N(1000)
		nd.children = zone.NewList[*node](z, 0)
		if i > 0 {
			parent := all.At(rng.IntN(i))
			nd.depth = parent.depth + 1
			parent.children.Add(z, nd)
		}
		all.Add(z, nd)
	}
	return all
}

// medianWeight sorts the weights in a nested scope that leaves deletion to
// the enclosing phase.
func medianWeight(owner *zone.Owner, index *zone.SplayTree[int64, *node]) (int64, error) {
	var median int64
	err := owner.WithScope(zone.DontDeleteOnExit, func(z *zone.Zone) error {
		weights := zone.NewList[int64](z, index.Len())
		index.ForEach(func(_ int64, nd *node) {
			weights.Add(z, nd.weight)
		})
		weights.Sort(cmp.Compare[int64])
		if !weights.IsEmpty() {
			median = weights.At(weights.Len() / 2)
		}
		return nil
	})
	return median, err
}
