package zone

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneMetrics(t *testing.T) {
	z, _ := newTestZone(t)

	m := z.Metrics()
	assert.Equal(t, ZoneMetrics{}, m)

	z.New(100)
	z.New(200)
	m = z.Metrics()
	assert.Equal(t, MinimumSegmentSize, m.SegmentBytes)
	assert.Equal(t, 1, m.NumSegments)
	assert.Equal(t, alignUp(100)+alignUp(200), m.HeadInUse)
	assert.Equal(t, MinimumSegmentSize-m.HeadInUse, m.HeadAvailable)
	assert.Equal(t, uint64(1), m.SegmentsCreated)

	z.New(MinimumSegmentSize)
	z.DeleteAll()
	m = z.Metrics()
	assert.Equal(t, uint64(2), m.SegmentsCreated)
	assert.Equal(t, uint64(1), m.BulkDeletions)
	assert.Zero(t, m.HeadInUse)
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig()
	cfg.ExcessLimit = 24 << 10
	o, err := NewOwner(cfg, nil, reg)
	require.NoError(t, err)
	z := o.Zone()
	pm := z.metrics

	s := NewScope(o, DeleteOnExit)
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.scopeNesting))

	z.New(100)
	z.New(MinimumSegmentSize)
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.segmentsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.segments))
	assert.Equal(t, float64(z.SegmentBytesAllocated()), testutil.ToFloat64(pm.segmentBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.excessAllocation))

	s.Exit()
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.scopeNesting))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.bulkDeletions))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.segmentsReleased), "the head segment was kept")
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.segments))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.excessAllocation))

	require.NoError(t, o.Close())
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.segmentsReleased))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.segmentBytes))

	n, err := testutil.GatherAndCount(reg, "zone_allocated_bytes_total", "zone_segments")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	types := map[string]dto.MetricType{}
	for _, mf := range mfs {
		types[mf.GetName()] = mf.GetType()
	}
	assert.Equal(t, dto.MetricType_COUNTER, types["zone_allocated_bytes_total"])
	assert.Equal(t, dto.MetricType_COUNTER, types["zone_segments_created_total"])
	assert.Equal(t, dto.MetricType_GAUGE, types["zone_segment_bytes"])
}

func TestOwnersShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewOwner(DefaultConfig(), nil, reg, WithName("parser"))
	require.NoError(t, err)
	b, err := NewOwner(DefaultConfig(), nil, reg, WithName("compiler"))
	require.NoError(t, err)
	c, err := NewOwner(DefaultConfig(), nil, reg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Name(), c.Name())

	a.Zone().New(100)
	b.Zone().New(100)
	b.Zone().New(MinimumSegmentSize)

	n, err := testutil.GatherAndCount(reg, "zone_segments")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one series per owner")
	n, err = testutil.GatherAndCount(reg, "zone_allocated_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the process-wide counter is registered once")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Zone().metrics.segments))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.Zone().metrics.segments))

	_, err = NewOwner(DefaultConfig(), nil, reg, WithName("parser"))
	require.Error(t, err)
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)

	// The failed owner left nothing behind.
	n, err = testutil.GatherAndCount(reg, "zone_segments")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, o := range []*Owner{a, b, c} {
		require.NoError(t, o.Close())
	}
}
