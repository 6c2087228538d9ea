// Package results maps raw engine readings back onto geographic feature
// identities. The engine speaks indices and SI working units; consumers want
// feature IDs, display units, and per-feature time series. The mapper bridges
// the two using the run's identity-translation table.
package results

import (
	"sort"
	"time"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// NodeSeries holds one node's converted time series, one value per timestep
type NodeSeries struct {
	ID       string
	Demand   []float64
	Head     []float64
	Pressure []float64
}

// LinkSeries holds one link's converted time series
type LinkSeries struct {
	ID           string
	Flow         []float64
	Velocity     []float64
	Headloss     []float64
	UnitHeadloss []float64
}

// Layers is the consumer-facing result set: feature-identified, sorted by
// ID, expressed in the run's output unit set
type Layers struct {
	Steps []time.Duration
	Units UnitNames
	Nodes []NodeSeries
	Links []LinkSeries
}

// UnitNames carries the display name of each reported quantity
type UnitNames struct {
	Demand       string
	Head         string
	Pressure     string
	Flow         string
	Velocity     string
	Headloss     string
	UnitHeadloss string
}

// Node returns a node's series by feature ID
func (l *Layers) Node(id string) (NodeSeries, bool) {
	i := sort.Search(len(l.Nodes), func(i int) bool { return l.Nodes[i].ID >= id })
	if i < len(l.Nodes) && l.Nodes[i].ID == id {
		return l.Nodes[i], true
	}
	return NodeSeries{}, false
}

// Link returns a link's series by feature ID
func (l *Layers) Link(id string) (LinkSeries, bool) {
	i := sort.Search(len(l.Links), func(i int) bool { return l.Links[i].ID >= id })
	if i < len(l.Links) && l.Links[i].ID == id {
		return l.Links[i], true
	}
	return LinkSeries{}, false
}

// Mapper converts raw result sets into feature-identified layers
type Mapper struct {
	conv *units.Converter
	out  units.Set
}

// NewMapper creates a mapper targeting the given output unit set
func NewMapper(formula units.HeadlossFormula, out units.Set) *Mapper {
	return &Mapper{conv: units.NewConverter(formula), out: out}
}

// Map converts a raw result set to output units and reattaches feature
// identities. Every engine index must have a translation entry; a gap is an
// internal-consistency defect reported as a MappingFault.
func (m *Mapper) Map(rs *engine.RawResultSet, tr *engine.Translation) (*Layers, error) {
	if len(tr.Nodes) < len(rs.Nodes) {
		return nil, &network.MappingFault{EntityKind: "node", EngineID: len(tr.Nodes)}
	}
	if len(tr.Links) < len(rs.Links) {
		return nil, &network.MappingFault{EntityKind: "link", EngineID: len(tr.Links)}
	}

	out := &Layers{
		Steps: append([]time.Duration(nil), rs.Steps...),
		Units: UnitNames{
			Demand:       m.conv.Name(units.Flow, m.out),
			Head:         m.conv.Name(units.Head, m.out),
			Pressure:     m.conv.Name(units.Pressure, m.out),
			Flow:         m.conv.Name(units.Flow, m.out),
			Velocity:     m.conv.Name(units.Velocity, m.out),
			Headloss:     m.conv.Name(units.Head, m.out),
			UnitHeadloss: m.conv.Name(units.UnitHeadloss, m.out),
		},
		Nodes: make([]NodeSeries, 0, len(rs.Nodes)),
		Links: make([]LinkSeries, 0, len(rs.Links)),
	}

	for i, readings := range rs.Nodes {
		ns := NodeSeries{
			ID:       tr.Nodes[i],
			Demand:   make([]float64, len(readings)),
			Head:     make([]float64, len(readings)),
			Pressure: make([]float64, len(readings)),
		}
		for s, rd := range readings {
			var err error
			if ns.Demand[s], err = m.conv.FromSI(rd.Demand, units.Flow, m.out); err != nil {
				return nil, err
			}
			if ns.Head[s], err = m.conv.FromSI(rd.Head, units.Head, m.out); err != nil {
				return nil, err
			}
			if ns.Pressure[s], err = m.conv.FromSI(rd.Pressure, units.Pressure, m.out); err != nil {
				return nil, err
			}
		}
		out.Nodes = append(out.Nodes, ns)
	}

	for i, readings := range rs.Links {
		ls := LinkSeries{
			ID:           tr.Links[i],
			Flow:         make([]float64, len(readings)),
			Velocity:     make([]float64, len(readings)),
			Headloss:     make([]float64, len(readings)),
			UnitHeadloss: make([]float64, len(readings)),
		}
		for s, rd := range readings {
			var err error
			if ls.Flow[s], err = m.conv.FromSI(rd.Flow, units.Flow, m.out); err != nil {
				return nil, err
			}
			if ls.Velocity[s], err = m.conv.FromSI(rd.Velocity, units.Velocity, m.out); err != nil {
				return nil, err
			}
			if ls.Headloss[s], err = m.conv.FromSI(rd.Headloss, units.Head, m.out); err != nil {
				return nil, err
			}
			if ls.UnitHeadloss[s], err = m.conv.FromSI(rd.UnitHeadloss, units.UnitHeadloss, m.out); err != nil {
				return nil, err
			}
		}
		out.Links = append(out.Links, ls)
	}

	sort.Slice(out.Nodes, func(a, b int) bool { return out.Nodes[a].ID < out.Nodes[b].ID })
	sort.Slice(out.Links, func(a, b int) bool { return out.Links[a].ID < out.Links[b].ID })

	return out, nil
}
