package zone

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// SizeInUse returns the number of bytes handed out from the head segment.
// Space abandoned at the end of older segments is not counted.
func (z *Zone) SizeInUse() int {
	if z.head == nil {
		return 0
	}
	return z.position
}

// Available returns the free bytes left in the head segment.
func (z *Zone) Available() int {
	return z.limit - z.position
}

// Metrics returns a snapshot of zone statistics.
func (z *Zone) Metrics() ZoneMetrics {
	return ZoneMetrics{
		SegmentBytes:     z.segmentBytesAllocated,
		NumSegments:      z.NumSegments(),
		HeadInUse:        z.SizeInUse(),
		HeadAvailable:    z.Available(),
		SegmentsCreated:  z.segmentsCreated,
		BulkDeletions:    z.bulkDeletions,
		ScopeNesting:     z.scopeNesting,
		ExcessAllocation: z.ExcessAllocation(),
	}
}

// ZoneMetrics contains statistical information about a zone.
type ZoneMetrics struct {
	SegmentBytes     int    // Bytes held in segments
	NumSegments      int    // Length of the segment chain
	HeadInUse        int    // Bytes handed out from the head segment
	HeadAvailable    int    // Bytes still free in the head segment
	SegmentsCreated  uint64 // Segments obtained over the zone's lifetime
	BulkDeletions    uint64 // DeleteAll calls over the zone's lifetime
	ScopeNesting     int
	ExcessAllocation bool
}

// metrics mirrors zone state into prometheus. It is only touched on slow
// paths (segment creation, bulk deletion, scope entry and exit), so the
// allocation fast path stays free of it.
type metrics struct {
	segmentBytes     prometheus.Gauge
	segments         prometheus.Gauge
	scopeNesting     prometheus.Gauge
	excessAllocation prometheus.Gauge
	segmentsCreated  prometheus.Counter
	segmentsReleased prometheus.Counter
	bulkDeletions    prometheus.Counter
}

// newMetrics registers the collectors of one zone with reg, labelled with
// the owner's name. The process-wide allocation counter is shared by all
// zones and registered only once per registerer. A nil registerer yields
// working but unregistered collectors.
func newMetrics(reg prometheus.Registerer, owner string) (*metrics, error) {
	m := &metrics{
		segmentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zone_segment_bytes",
			Help: "Bytes held in zone segments, including space not yet handed out.",
		}),
		segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zone_segments",
			Help: "Number of segments in the zone's chain.",
		}),
		scopeNesting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zone_scope_nesting",
			Help: "Number of open zone scopes.",
		}),
		excessAllocation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zone_excess_allocation",
			Help: "1 if the zone holds more segment bytes than its excess limit.",
		}),
		segmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zone_segments_created_total",
			Help: "Segments obtained from the segment allocator.",
		}),
		segmentsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zone_segments_released_total",
			Help: "Segments returned to the segment allocator.",
		}),
		bulkDeletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zone_bulk_deletions_total",
			Help: "Number of DeleteAll calls.",
		}),
	}
	if reg == nil {
		return m, nil
	}

	allocated := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "zone_allocated_bytes_total",
		Help: "Bytes handed out by all zones in the process, including alignment padding.",
	}, func() float64 { return float64(AllocationSize()) })
	if err := reg.Register(allocated); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, errors.Wrap(err, "register zone metrics")
		}
	}

	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"owner": owner}, reg)
	collectors := []prometheus.Collector{
		m.segmentBytes, m.segments, m.scopeNesting, m.excessAllocation,
		m.segmentsCreated, m.segmentsReleased, m.bulkDeletions,
	}
	for i, c := range collectors {
		if err := wrapped.Register(c); err != nil {
			for _, r := range collectors[:i] {
				wrapped.Unregister(r)
			}
			return nil, errors.Wrapf(err, "register metrics of zone owner %q", owner)
		}
	}
	return m, nil
}

func (m *metrics) update(z *Zone) {
	if m == nil {
		return
	}
	m.segmentBytes.Set(float64(z.segmentBytesAllocated))
	m.segments.Set(float64(z.NumSegments()))
	m.scopeNesting.Set(float64(z.scopeNesting))
	excess := 0.0
	if z.ExcessAllocation() {
		excess = 1
	}
	m.excessAllocation.Set(excess)
}

func (m *metrics) segmentCreated(z *Zone) {
	if m == nil {
		return
	}
	m.segmentsCreated.Inc()
	m.update(z)
}

func (m *metrics) bulkDeleted(z *Zone, released int) {
	if m == nil {
		return
	}
	m.segmentsReleased.Add(float64(released))
	m.bulkDeletions.Inc()
	m.update(z)
}

func (m *metrics) keptSegmentReleased(z *Zone) {
	if m == nil {
		return
	}
	m.segmentsReleased.Inc()
	m.update(z)
}

func (m *metrics) scopeChanged(z *Zone) {
	if m == nil {
		return
	}
	m.scopeNesting.Set(float64(z.scopeNesting))
}
