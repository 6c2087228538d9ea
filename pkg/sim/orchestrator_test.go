package sim

import (
	"context"
	"testing"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/events"
	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
	"github.com/dd0wney/cluso-hydronet/pkg/logging"
	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

func testModel(t *testing.T) *network.Model {
	t.Helper()
	m := network.NewModel()

	demand := 0.002
	nodes := []*network.Node{
		{ID: "R1", Category: network.Reservoir, Location: geometry.Point{X: 0, Y: 0}, Elevation: 50},
		{ID: "J1", Category: network.Junction, Location: geometry.Point{X: 100, Y: 0}, Elevation: 10, Demand: &demand},
	}
	for _, n := range nodes {
		if err := m.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", n.ID, err)
		}
	}
	link := &network.Link{
		ID: "P1", Category: network.Pipe, Start: "R1", End: "J1",
		Vertices:  geometry.Polyline{{X: 0, Y: 0}, {X: 100, Y: 0}},
		Length:    100, Diameter: 0.05, Roughness: 130,
	}
	if err := m.AddLink(link); err != nil {
		t.Fatalf("AddLink failed: %v", err)
	}
	return m
}

func testConfig() engine.Config {
	return engine.Config{
		Mode:        engine.TimeSeries,
		Duration:    4 * time.Hour,
		Step:        time.Hour,
		Formula:     units.HazenWilliams,
		InputUnits:  units.Metric,
		OutputUnits: units.Metric,
	}
}

func newTestOrchestrator(opts ...Option) *Orchestrator {
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	return NewOrchestrator(engine.NewHydraulic(), opts...)
}

func waitDone(t *testing.T, r *Run) Status {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for run to finish")
	}
	return r.Status()
}

func TestOrchestrator_SuccessfulRun(t *testing.T) {
	o := newTestOrchestrator()

	r, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	st := waitDone(t, r)
	if st.State != StateSucceeded {
		t.Fatalf("state = %s, want %s (err: %v)", st.State, StateSucceeded, st.Err)
	}
	if st.Step != 5 {
		t.Errorf("steps executed = %d, want 5", st.Step)
	}

	rs, tr, err := r.Results()
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(rs.Steps) != 5 {
		t.Errorf("result steps = %d, want 5", len(rs.Steps))
	}
	if len(tr.Nodes) != 2 || len(tr.Links) != 1 {
		t.Errorf("translation sizes = %d nodes, %d links", len(tr.Nodes), len(tr.Links))
	}
}

func TestOrchestrator_RejectsInvalidConfig(t *testing.T) {
	o := newTestOrchestrator()

	cfg := testConfig()
	cfg.Step = 0

	if _, err := o.Submit(context.Background(), testModel(t), cfg); err == nil {
		t.Fatal("expected error for zero timestep")
	}
}

func TestOrchestrator_BuildFailure(t *testing.T) {
	o := newTestOrchestrator()

	// A model with no supply node cannot be serialized for the engine.
	m := network.NewModel()
	if err := m.AddNode(&network.Node{ID: "J1", Category: network.Junction}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	r, err := o.Submit(context.Background(), m, testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	st := waitDone(t, r)
	if st.State != StateFailed {
		t.Errorf("state = %s, want %s", st.State, StateFailed)
	}
	if st.Err == nil {
		t.Error("expected a recorded error")
	}
}

func TestOrchestrator_CancelledBeforeStart(t *testing.T) {
	o := newTestOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := o.Submit(ctx, testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	st := waitDone(t, r)
	if st.State != StateCancelled {
		t.Errorf("state = %s, want %s", st.State, StateCancelled)
	}
}

// blockingEngine parks in Run until its context is cancelled
type blockingEngine struct {
	inner   engine.Engine
	started chan struct{}
}

func (b *blockingEngine) Build(m *network.Model, cfg engine.Config) (*engine.Model, error) {
	return b.inner.Build(m, cfg)
}

func (b *blockingEngine) Run(ctx context.Context, m *engine.Model, progress engine.ProgressFunc) (*engine.RawResultSet, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestOrchestrator_CancelMidRun(t *testing.T) {
	eng := &blockingEngine{inner: engine.NewHydraulic(), started: make(chan struct{})}
	o := NewOrchestrator(eng, WithLogger(logging.NewNopLogger()))

	r, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-eng.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for engine start")
	}
	r.Cancel()

	st := waitDone(t, r)
	if st.State != StateCancelled {
		t.Errorf("state = %s, want %s", st.State, StateCancelled)
	}
}

func TestOrchestrator_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Shutdown()

	o := newTestOrchestrator(WithBus(bus))

	sub, _ := bus.Subscribe(context.Background(), events.TopicRuns)
	defer sub.Unsubscribe()

	r, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitDone(t, r)

	var sawRunning, sawProgress, sawSucceeded bool
	deadline := time.After(2 * time.Second)
	for !(sawRunning && sawProgress && sawSucceeded) {
		select {
		case ev := <-sub.Channel():
			switch {
			case ev.Type == events.TypeStateChanged && ev.State == string(StateRunning):
				sawRunning = true
			case ev.Type == events.TypeProgress:
				sawProgress = true
			case ev.Type == events.TypeStateChanged && ev.State == string(StateSucceeded):
				sawSucceeded = true
			}
		case <-deadline:
			t.Fatalf("missing events: running=%v progress=%v succeeded=%v",
				sawRunning, sawProgress, sawSucceeded)
		}
	}
}

func TestOrchestrator_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	o := newTestOrchestrator(WithMetrics(reg))

	r, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitDone(t, r)

	counter, err := reg.RunsTotal.GetMetricWithLabelValues("time-series", "succeeded")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	// One successful run recorded.
	if counter == nil {
		t.Fatal("RunsTotal metric missing")
	}
}

func TestOrchestrator_TracksRuns(t *testing.T) {
	o := newTestOrchestrator()

	r, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitDone(t, r)

	got, ok := o.Get(r.ID())
	if !ok || got != r {
		t.Error("Get did not return the submitted run")
	}
	if len(o.Runs()) != 1 {
		t.Errorf("Runs() = %d entries, want 1", len(o.Runs()))
	}
}

// parkingEngine parks every Run call until released, signalling each entry
type parkingEngine struct {
	inner   engine.Engine
	started chan struct{}
	release chan struct{}
}

func (p *parkingEngine) Build(m *network.Model, cfg engine.Config) (*engine.Model, error) {
	return p.inner.Build(m, cfg)
}

func (p *parkingEngine) Run(ctx context.Context, m *engine.Model, progress engine.ProgressFunc) (*engine.RawResultSet, error) {
	p.started <- struct{}{}
	select {
	case <-p.release:
		return &engine.RawResultSet{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestOrchestrator_SerializesSameModel(t *testing.T) {
	eng := &parkingEngine{
		inner:   engine.NewHydraulic(),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(eng, WithLogger(logging.NewNopLogger()))
	model := testModel(t)

	r1, err := o.Submit(context.Background(), model, testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	r2, err := o.Submit(context.Background(), model, testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	select {
	case <-eng.started:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for first run to start")
	}

	// The second run for the same model must queue behind the first.
	time.Sleep(50 * time.Millisecond)
	if st := r2.Status(); st.State != StateIdle {
		t.Errorf("queued run state = %s, want %s", st.State, StateIdle)
	}

	close(eng.release)
	if st := waitDone(t, r1); st.State != StateSucceeded {
		t.Errorf("first run state = %s, want %s", st.State, StateSucceeded)
	}
	if st := waitDone(t, r2); st.State != StateSucceeded {
		t.Errorf("second run state = %s, want %s", st.State, StateSucceeded)
	}
}

func TestOrchestrator_IndependentModelsRunConcurrently(t *testing.T) {
	eng := &parkingEngine{
		inner:   engine.NewHydraulic(),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(eng, WithLogger(logging.NewNopLogger()))

	r1, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	r2, err := o.Submit(context.Background(), testModel(t), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Both engines must enter Run before either is released.
	for i := 0; i < 2; i++ {
		select {
		case <-eng.started:
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for run %d to start", i+1)
		}
	}

	close(eng.release)
	if st := waitDone(t, r1); st.State != StateSucceeded {
		t.Errorf("first run state = %s, want %s", st.State, StateSucceeded)
	}
	if st := waitDone(t, r2); st.State != StateSucceeded {
		t.Errorf("second run state = %s, want %s", st.State, StateSucceeded)
	}
}
