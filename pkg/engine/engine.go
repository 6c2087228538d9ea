// Package engine defines the simulation engine boundary: the serialized
// topological model handed to a hydraulic solver, the raw readings coming
// back, and the identity-translation table tying both to the originating
// geographic features. A bundled demand-driven solver implements the
// interface; alternative solvers plug in without touching the pipeline.
package engine

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// NodeKind classifies an engine node
type NodeKind uint8

const (
	// KindDemand nodes consume water (junctions)
	KindDemand NodeKind = iota
	// KindSupply nodes hold a fixed head (reservoirs and tanks)
	KindSupply
)

// Node is the engine-side form of a network node, identified by index
type Node struct {
	Kind      NodeKind
	Elevation float64 // m
	Head      float64 // m, fixed boundary head for supply nodes
	Demand    float64 // m³/s, demand nodes only
}

// Link is the engine-side form of a network link, endpoints by node index
type Link struct {
	Category  network.LinkCategory
	From      int
	To        int
	Length    float64 // m
	Diameter  float64 // m
	Roughness float64 // formula-dependent
}

// Translation maps engine indices back to the originating feature identities
type Translation struct {
	Nodes []string
	Links []string
}

// Model is the serialized, engine-ready form of a validated network
type Model struct {
	Nodes       []Node
	Links       []Link
	Steps       []time.Duration
	Formula     units.HeadlossFormula
	Multiplier  float64
	Translation Translation
}

// NodeReading is one node's readings at one timestep, in SI working units
type NodeReading struct {
	Demand   float64 // m³/s
	Head     float64 // m
	Pressure float64 // m of water column
}

// LinkReading is one link's readings at one timestep, in SI working units
type LinkReading struct {
	Flow         float64 // m³/s, positive in From→To direction
	Velocity     float64 // m/s
	Headloss     float64 // m
	UnitHeadloss float64 // m/m
}

// RawResultSet holds per-entity, per-timestep readings keyed by engine index.
// It is produced once per successful run and never mutated afterwards.
type RawResultSet struct {
	Steps []time.Duration
	Nodes [][]NodeReading // [node index][step index]
	Links [][]LinkReading
	// Warnings are classified engine diagnostics: negative pressure and the
	// like, entity-tagged, never raw solver text.
	Warnings []network.Diagnostic
}

// ProgressFunc reports completion of one timestep
type ProgressFunc func(step, total int)

// Engine is the simulation engine capability. Build serializes a validated
// network into the engine's topological form; Run executes it. Run honors
// context cancellation only between timesteps; a step is atomic.
type Engine interface {
	Build(model *network.Model, cfg Config) (*Model, error)
	Run(ctx context.Context, m *Model, progress ProgressFunc) (*RawResultSet, error)
}
