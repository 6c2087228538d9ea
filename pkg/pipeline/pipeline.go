// Package pipeline wires the stages together: snapshot in, snapped geometry,
// topological model, validated attributes, simulation, feature-identified
// result layers out. A report is always returned, possibly empty, whether or
// not the pass succeeds; rebuilding from the same snapshot and options yields
// an identical model and report.
package pipeline

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
	"github.com/dd0wney/cluso-hydronet/pkg/logging"
	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/results"
	"github.com/dd0wney/cluso-hydronet/pkg/schema"
	"github.com/dd0wney/cluso-hydronet/pkg/topology"
)

// DefaultTolerance is the snapping tolerance applied when none is set,
// in snapshot coordinate units
const DefaultTolerance = 0.1

// Options tunes a pipeline pass
type Options struct {
	// Tolerance is the coordinate distance within which locations snap to
	// one node. Zero selects DefaultTolerance.
	Tolerance float64
	// AllowDuplicateLinks permits parallel links between one endpoint pair
	AllowDuplicateLinks bool
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// Pipeline converts snapshots to validated models and runs them
type Pipeline struct {
	eng engine.Engine
	log logging.Logger
	reg *metrics.Registry
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithEngine substitutes the hydraulic engine
func WithEngine(eng engine.Engine) Option {
	return func(p *Pipeline) { p.eng = eng }
}

// WithLogger sets the pipeline's logger
func WithLogger(log logging.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics records build metrics in the given registry
func WithMetrics(reg *metrics.Registry) Option {
	return func(p *Pipeline) { p.reg = reg }
}

// New creates a pipeline over the bundled hydraulic engine
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		eng: engine.NewHydraulic(),
		log: logging.DefaultLogger().With(logging.Component("pipeline")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildModel runs the geometry and attribute stages: snap the snapshot's
// coordinates, assemble and check the graph, then fill, validate, and convert
// attributes. The report aggregates every diagnostic from every stage; the
// model is only usable when the report has no blocking entries.
func (p *Pipeline) BuildModel(snap *network.Snapshot, cfg engine.Config, opts Options) (*network.Model, *network.Report, error) {
	started := time.Now()
	report := &network.Report{}
	report.Merge(cfg.Validate())

	points := make([]geometry.PointInput, 0, len(snap.Points))
	for _, pf := range snap.Points {
		points = append(points, geometry.PointInput{ID: pf.ID, Location: pf.Location})
	}
	lines := make([]geometry.LineInput, 0, len(snap.Lines))
	for _, lf := range snap.Lines {
		lines = append(lines, geometry.LineInput{ID: lf.ID, Vertices: lf.Vertices})
	}

	sr, err := geometry.Snap(points, lines, opts.tolerance())
	if err != nil {
		p.recordBuild("invalid", started, nil)
		return nil, report, err
	}
	if p.reg != nil && len(sr.Warnings) > 0 {
		p.reg.RecordSnapMerges(len(sr.Warnings))
	}

	model, topoReport := topology.Build(snap, sr, topology.Options{
		AllowDuplicateLinks: opts.AllowDuplicateLinks,
	})
	report.Merge(topoReport)

	mapper := schema.NewMapper(cfg.Formula, cfg.InputUnits)
	report.Merge(mapper.Apply(model, snap))

	status := "ok"
	if report.Blocking() {
		status = "blocked"
	}
	p.recordBuild(status, started, model)
	p.recordDiagnostics(report)

	p.log.Info("model built",
		logging.Int("nodes", len(model.Nodes)),
		logging.Int("links", len(model.Links)),
		logging.Count(len(report.Diagnostics)))

	return model, report, nil
}

// Run executes the full pass: build the model, simulate it, and map raw
// readings back to feature identities in the output unit set. The returned
// report always carries the build diagnostics plus any engine warnings.
func (p *Pipeline) Run(ctx context.Context, snap *network.Snapshot, cfg engine.Config, opts Options) (*results.Layers, *network.Report, error) {
	model, report, err := p.BuildModel(snap, cfg, opts)
	if err != nil {
		return nil, report, err
	}
	if report.Blocking() {
		return nil, report, report.Err()
	}

	em, err := p.eng.Build(model, cfg)
	if err != nil {
		return nil, report, err
	}

	rs, err := p.eng.Run(ctx, em, nil)
	if err != nil {
		return nil, report, err
	}
	report.Add(rs.Warnings...)

	mapper := results.NewMapper(cfg.Formula, cfg.OutputUnits)
	layers, err := mapper.Map(rs, &em.Translation)
	if err != nil {
		return nil, report, err
	}

	return layers, report, nil
}

func (p *Pipeline) recordBuild(status string, started time.Time, model *network.Model) {
	if p.reg == nil {
		return
	}
	nodes, links := 0, 0
	if model != nil {
		nodes, links = len(model.Nodes), len(model.Links)
	}
	p.reg.RecordBuild(status, time.Since(started), nodes, links)
}

func (p *Pipeline) recordDiagnostics(report *network.Report) {
	if p.reg == nil {
		return
	}
	for _, d := range report.Diagnostics {
		p.reg.RecordDiagnostic(d.Kind.String(), d.Severity.String())
	}
}
