package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
	"github.com/dd0wney/cluso-hydronet/pkg/logging"
	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// testSnapshot builds a small branched network: one reservoir feeding two
// junctions through three pipes, with a short gap covered by snapping.
func testSnapshot() *network.Snapshot {
	return &network.Snapshot{
		Points: []network.PointFeature{
			{ID: "R1", Category: network.Reservoir, Location: point(0, 0),
				Attributes: map[string]float64{"elevation": 60}},
			{ID: "J1", Category: network.Junction, Location: point(100, 0),
				Attributes: map[string]float64{"elevation": 10, "demand": 2}},
			{ID: "J2", Category: network.Junction, Location: point(200, 0),
				Attributes: map[string]float64{"elevation": 12, "demand": 1}},
		},
		Lines: []network.LineFeature{
			{ID: "P1", Category: network.Pipe, Vertices: line(0, 0, 100, 0),
				Attributes: map[string]float64{"diameter": 100, "roughness": 130}},
			// Endpoint drawn 0.05 units short of J2; tolerance closes the gap.
			{ID: "P2", Category: network.Pipe, Vertices: line(100, 0, 199.95, 0),
				Attributes: map[string]float64{"diameter": 80, "roughness": 130}},
		},
	}
}

func point(x, y float64) geometry.Point {
	return geometry.Point{X: x, Y: y}
}

func line(x1, y1, x2, y2 float64) geometry.Polyline {
	return geometry.Polyline{{X: x1, Y: y1}, {X: x2, Y: y2}}
}

func metricConfig() engine.Config {
	return engine.Config{
		Mode:        engine.SingleTime,
		Formula:     units.HazenWilliams,
		InputUnits:  units.Metric,
		OutputUnits: units.Metric,
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))

	layers, report, err := p.Run(context.Background(), testSnapshot(), metricConfig(), Options{Tolerance: 0.5})
	require.NoError(t, err)
	require.NotNil(t, report, "a report is always returned")
	require.False(t, report.Blocking(), "diagnostics: %v", report.Diagnostics)

	require.Len(t, layers.Steps, 1)

	// Flow into the network equals total demand: 2 + 1 = 3 L/s through P1.
	p1, ok := layers.Link("P1")
	require.True(t, ok)
	assert.InDelta(t, 3.0, p1.Flow[0], 1e-9)

	p2, ok := layers.Link("P2")
	require.True(t, ok)
	assert.InDelta(t, 1.0, p2.Flow[0], 1e-9)

	j1, ok := layers.Node("J1")
	require.True(t, ok)
	assert.InDelta(t, 2.0, j1.Demand[0], 1e-9)
	assert.Less(t, j1.Head[0], 60.0, "head drops downstream of the reservoir")
}

func TestPipeline_BuildIsIdempotent(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))
	snap := testSnapshot()
	opts := Options{Tolerance: 0.5}

	m1, r1, err := p.BuildModel(snap, metricConfig(), opts)
	require.NoError(t, err)
	m2, r2, err := p.BuildModel(snap, metricConfig(), opts)
	require.NoError(t, err)

	assert.Equal(t, m1.NodeIDs(), m2.NodeIDs())
	assert.Equal(t, m1.LinkIDs(), m2.LinkIDs())
	assert.True(t, reflect.DeepEqual(r1.Diagnostics, r2.Diagnostics),
		"repeated builds must report identically")

	for _, id := range m1.LinkIDs() {
		assert.Equal(t, m1.Links[id].Start, m2.Links[id].Start, "link %s start", id)
		assert.Equal(t, m1.Links[id].End, m2.Links[id].End, "link %s end", id)
	}
}

func TestPipeline_BlockingReportStopsRun(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))

	snap := testSnapshot()
	// Disconnect J2: P2 now ends nowhere near it.
	snap.Lines[1].Vertices = line(100, 0, 150, 50)

	layers, report, err := p.Run(context.Background(), snap, metricConfig(), Options{Tolerance: 0.5})
	assert.Nil(t, layers)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Blocking())

	topo := report.ByKind(network.KindTopology)
	require.NotEmpty(t, topo, "expected a topology diagnostic")
	assert.Contains(t, topo[0].Entities, "J2")
}

func TestPipeline_ValidationErrorsAggregate(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))

	snap := testSnapshot()
	snap.Points[1].Attributes["demand"] = -5     // out of range
	delete(snap.Lines[0].Attributes, "diameter") // required attribute missing

	_, report, err := p.BuildModel(snap, metricConfig(), Options{Tolerance: 0.5})
	require.NoError(t, err)

	violations := report.ByKind(network.KindValidation)
	assert.Len(t, violations, 2, "both violations reported in one pass: %v", report.Diagnostics)
}

func TestPipeline_TimeSeriesRun(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))

	cfg := metricConfig()
	cfg.Mode = engine.TimeSeries
	cfg.Duration = 6 * time.Hour
	cfg.Step = 2 * time.Hour

	layers, report, err := p.Run(context.Background(), testSnapshot(), cfg, Options{Tolerance: 0.5})
	require.NoError(t, err)
	require.False(t, report.Blocking())

	// ceil(6/2)+1 timestamps, 0 through 6h inclusive.
	require.Len(t, layers.Steps, 4)
	assert.Equal(t, time.Duration(0), layers.Steps[0])
	assert.Equal(t, 6*time.Hour, layers.Steps[3])

	j1, ok := layers.Node("J1")
	require.True(t, ok)
	assert.Len(t, j1.Pressure, 4, "every node series spans every timestamp")
}

func TestPipeline_RunIsIdempotent(t *testing.T) {
	p := New(WithLogger(logging.NewNopLogger()))
	snap := testSnapshot()
	cfg := engine.Config{
		Mode:        engine.TimeSeries,
		Duration:    6 * time.Hour,
		Step:        90 * time.Minute,
		Formula:     units.HazenWilliams,
		InputUnits:  units.Metric,
		OutputUnits: units.Metric,
	}
	opts := Options{Tolerance: 0.5}

	l1, r1, err := p.Run(context.Background(), snap, cfg, opts)
	require.NoError(t, err)
	l2, r2, err := p.Run(context.Background(), snap, cfg, opts)
	require.NoError(t, err)

	// Same inputs must produce the same series down to the last bit, not
	// just the same shape.
	b1, err := json.Marshal(l1)
	require.NoError(t, err)
	b2, err := json.Marshal(l2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b1, b2), "repeated runs must produce identical layers")
	assert.True(t, reflect.DeepEqual(r1.Diagnostics, r2.Diagnostics),
		"repeated runs must report identically")
}

func TestPipeline_RecordsSnapMerges(t *testing.T) {
	reg := metrics.NewRegistry()
	p := New(WithLogger(logging.NewNopLogger()), WithMetrics(reg))

	snap := testSnapshot()
	// A second survey point within tolerance of J2; snapping merges the
	// pair into one node and flags the merge.
	snap.Points = append(snap.Points, network.PointFeature{
		ID: "J2b", Category: network.Junction, Location: point(200.05, 0),
		Attributes: map[string]float64{"elevation": 12},
	})

	_, report, err := p.BuildModel(snap, metricConfig(), Options{Tolerance: 0.5})
	require.NoError(t, err)
	require.NotEmpty(t, report.ByKind(network.KindSnap))

	var m dto.Metric
	require.NoError(t, reg.SnapMergesTotal.Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}
