// Package sim coordinates simulation runs: it drives the engine through
// build and execute, tracks each run's lifecycle state, publishes progress
// events, and records run metrics. Runs execute one at a time in the
// background; callers watch a run through its Done channel or the event bus.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/events"
	"github.com/dd0wney/cluso-hydronet/pkg/logging"
	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
)

// Status is a point-in-time copy of a run's observable state
type Status struct {
	ID       string
	State    State
	Step     int
	Total    int
	Started  time.Time
	Finished time.Time
	Err      error
}

// Run tracks one simulation run from submission to its terminal state
type Run struct {
	id     string
	cfg    engine.Config
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	step     int
	total    int
	started  time.Time
	finished time.Time
	results  *engine.RawResultSet
	model    *engine.Model
	err      error
}

// ID returns the run's identity
func (r *Run) ID() string { return r.id }

// Done returns a channel closed when the run reaches a terminal state
func (r *Run) Done() <-chan struct{} { return r.done }

// Status returns a copy of the run's current observable state
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		ID:       r.id,
		State:    r.state,
		Step:     r.step,
		Total:    r.total,
		Started:  r.started,
		Finished: r.finished,
		Err:      r.err,
	}
}

// Results returns the raw result set and the translation table once the run
// has succeeded, or an error describing why they are unavailable
func (r *Run) Results() (*engine.RawResultSet, *engine.Translation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateSucceeded:
		return r.results, &r.model.Translation, nil
	case StateFailed, StateCancelled:
		return nil, nil, r.err
	}
	return nil, nil, fmt.Errorf("run %s still %s", r.id, r.state)
}

// Cancel requests cancellation. The engine stops between timesteps; a run
// already terminal is unaffected.
func (r *Run) Cancel() {
	r.cancel()
}

// Orchestrator owns the run lifecycle. Runs against the same model are
// serialized; a second submission for it queues behind the first. Runs
// against independent models proceed concurrently.
type Orchestrator struct {
	eng engine.Engine
	bus *events.Bus
	reg *metrics.Registry
	log logging.Logger

	mu    sync.Mutex
	runs  map[string]*Run
	gates map[*network.Model]chan struct{}
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithBus publishes run events to the given bus
func WithBus(bus *events.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithMetrics records run metrics in the given registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *Orchestrator) { o.reg = reg }
}

// WithLogger sets the orchestrator's logger
func WithLogger(log logging.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator creates an orchestrator driving the given engine
func NewOrchestrator(eng engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eng:   eng,
		runs:  make(map[string]*Run),
		gates: make(map[*network.Model]chan struct{}),
		log:   logging.DefaultLogger().With(logging.Component("sim")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get returns a tracked run by ID
func (o *Orchestrator) Get(id string) (*Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[id]
	return r, ok
}

// Runs returns a snapshot of every tracked run's status
func (o *Orchestrator) Runs() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Status, 0, len(o.runs))
	for _, r := range o.runs {
		out = append(out, r.Status())
	}
	return out
}

// Submit registers a run for the validated model and starts it in the
// background. The model must have passed attribute validation; the engine
// rejects it otherwise during the build stage.
func (o *Orchestrator) Submit(ctx context.Context, model *network.Model, cfg engine.Config) (*Run, error) {
	if report := cfg.Validate(); report.Blocking() {
		return nil, report.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		id:     uuid.NewString(),
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateIdle,
		total:  len(cfg.Steps()),
	}

	o.mu.Lock()
	o.runs[r.id] = r
	o.mu.Unlock()

	o.log.Info("run submitted",
		logging.RunID(r.id),
		logging.String("mode", cfg.Mode.String()),
		logging.Count(r.total))

	go o.execute(runCtx, r, model)

	return r, nil
}

// gate returns the per-model serialization channel, creating it on first use
func (o *Orchestrator) gate(model *network.Model) chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.gates[model]
	if !ok {
		g = make(chan struct{}, 1)
		o.gates[model] = g
	}
	return g
}

// execute drives one run to a terminal state
func (o *Orchestrator) execute(ctx context.Context, r *Run, model *network.Model) {
	g := o.gate(model)
	g <- struct{}{}
	defer func() { <-g }()

	r.mu.Lock()
	r.started = time.Now()
	r.mu.Unlock()

	if o.reg != nil {
		o.reg.RunsInFlight.Inc()
		defer o.reg.RunsInFlight.Dec()
	}

	// Queued submissions may have been cancelled before their turn.
	if ctx.Err() != nil {
		o.finish(r, nil, ctx.Err())
		return
	}

	o.transition(r, StateBuilding)

	em, err := o.eng.Build(model, r.cfg)
	if err != nil {
		o.finish(r, nil, err)
		return
	}
	r.mu.Lock()
	r.model = em
	r.mu.Unlock()

	o.transition(r, StateRunning)

	timer := logging.StartTimer(o.log, "run finished", logging.RunID(r.id))
	rs, err := o.eng.Run(ctx, em, func(step, total int) {
		r.mu.Lock()
		r.step = step
		r.mu.Unlock()
		o.log.Debug("step solved", logging.RunID(r.id), logging.Step(step, total))
		if o.bus != nil {
			o.bus.Publish(events.Event{
				Type:  events.TypeProgress,
				RunID: r.id,
				Step:  step,
				Total: total,
			})
		}
	})
	if err != nil {
		timer.EndError(err)
		o.finish(r, nil, err)
		return
	}
	timer.End()
	o.finish(r, rs, nil)
}

// transition advances a run's state and publishes the change
func (o *Orchestrator) transition(r *Run, to State) {
	r.mu.Lock()
	from := r.state
	if !validNext(from, to) {
		r.mu.Unlock()
		o.log.Error("invalid state transition",
			logging.RunID(r.id),
			logging.String("from", string(from)),
			logging.String("to", string(to)))
		return
	}
	r.state = to
	r.mu.Unlock()

	if o.bus != nil {
		o.bus.Publish(events.Event{
			Type:  events.TypeStateChanged,
			RunID: r.id,
			State: string(to),
		})
	}
}

// finish moves a run to its terminal state and records the outcome
func (o *Orchestrator) finish(r *Run, rs *engine.RawResultSet, err error) {
	terminal := StateSucceeded
	if err != nil {
		terminal = StateFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			terminal = StateCancelled
		}
	}

	r.mu.Lock()
	r.results = rs
	r.err = err
	r.finished = time.Now()
	duration := r.finished.Sub(r.started)
	steps := r.step
	r.state = terminal
	r.mu.Unlock()

	if o.reg != nil {
		o.reg.RecordRun(r.cfg.Mode.String(), string(terminal), duration, steps)
		if rs != nil {
			for _, d := range rs.Warnings {
				o.reg.RecordDiagnostic(d.Kind.String(), d.Severity.String())
			}
		}
	}

	switch terminal {
	case StateSucceeded:
		o.log.Info("run succeeded", logging.RunID(r.id), logging.Count(steps))
	case StateCancelled:
		o.log.Warn("run cancelled", logging.RunID(r.id), logging.Error(err))
	default:
		o.log.Error("run failed", logging.RunID(r.id), logging.Error(err))
	}

	if o.bus != nil {
		if rs != nil {
			for _, d := range rs.Warnings {
				o.bus.Publish(events.Event{
					Type:    events.TypeDiagnostic,
					RunID:   r.id,
					Message: d.String(),
				})
			}
		}
		o.bus.Publish(events.Event{
			Type:  events.TypeStateChanged,
			RunID: r.id,
			State: string(terminal),
		})
	}

	close(r.done)
}
