package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
)

// Common sentinel errors
var (
	ErrDuplicateNode = errors.New("duplicate node identity")
	ErrDuplicateLink = errors.New("duplicate link identity")
	ErrMissingNode   = errors.New("link endpoint references missing node")
	ErrSelfLoop      = errors.New("link start and end are the same node")
	ErrEmptyID       = errors.New("empty identity")
)

// Node is a point entity in the hydraulic graph. Elevation doubles as the
// hydraulic head for reservoirs and tanks. Demand is only meaningful for
// junctions and stays nil when the feature carries none.
type Node struct {
	ID        string
	Category  NodeCategory
	Location  geometry.Point
	Elevation float64
	Demand    *float64
	Implicit  bool // created by the snapper from an unmatched line endpoint
}

// Link is a connecting entity between two distinct nodes. Length is derived
// from the vertex polyline unless an explicit attribute overrides it.
type Link struct {
	ID        string
	Category  LinkCategory
	Start     string
	End       string
	Vertices  geometry.Polyline
	Length    float64
	Diameter  float64
	Roughness float64
}

// Model owns the node and link maps of one network. It is constructed fresh
// per simulation request and never mutated across runs.
type Model struct {
	Nodes map[string]*Node
	Links map[string]*Link
}

// NewModel creates an empty network model
func NewModel() *Model {
	return &Model{
		Nodes: make(map[string]*Node),
		Links: make(map[string]*Link),
	}
}

// AddNode inserts a node, enforcing identity uniqueness
func (m *Model) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("add node: %w", ErrEmptyID)
	}
	if _, exists := m.Nodes[n.ID]; exists {
		return fmt.Errorf("add node %s: %w", n.ID, ErrDuplicateNode)
	}
	m.Nodes[n.ID] = n
	return nil
}

// AddLink inserts a link, enforcing identity uniqueness, endpoint existence,
// and the no-self-loop invariant
func (m *Model) AddLink(l *Link) error {
	if l.ID == "" {
		return fmt.Errorf("add link: %w", ErrEmptyID)
	}
	if _, exists := m.Links[l.ID]; exists {
		return fmt.Errorf("add link %s: %w", l.ID, ErrDuplicateLink)
	}
	if l.Start == l.End {
		return fmt.Errorf("add link %s: %w", l.ID, ErrSelfLoop)
	}
	if _, ok := m.Nodes[l.Start]; !ok {
		return fmt.Errorf("add link %s (start %s): %w", l.ID, l.Start, ErrMissingNode)
	}
	if _, ok := m.Nodes[l.End]; !ok {
		return fmt.Errorf("add link %s (end %s): %w", l.ID, l.End, ErrMissingNode)
	}
	m.Links[l.ID] = l
	return nil
}

// NodeIDs returns node identities in sorted order
func (m *Model) NodeIDs() []string {
	ids := make([]string, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LinkIDs returns link identities in sorted order
func (m *Model) LinkIDs() []string {
	ids := make([]string, 0, len(m.Links))
	for id := range m.Links {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sources returns the identities of all reservoir and tank nodes, sorted
func (m *Model) Sources() []string {
	var out []string
	for id, n := range m.Nodes {
		if n.Category.IsSource() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Adjacency returns an undirected adjacency map over node identities
func (m *Model) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(m.Nodes))
	for id := range m.Nodes {
		adj[id] = nil
	}
	for _, l := range m.Links {
		adj[l.Start] = append(adj[l.Start], l.End)
		adj[l.End] = append(adj[l.End], l.Start)
	}
	return adj
}

// Summary counts entities by category for the pre-run network description
type Summary struct {
	Junctions  int
	Reservoirs int
	Tanks      int
	Pipes      int
	Pumps      int
	Valves     int
}

// Summarize tallies the model by category
func (m *Model) Summarize() Summary {
	var s Summary
	for _, n := range m.Nodes {
		switch n.Category {
		case Junction:
			s.Junctions++
		case Reservoir:
			s.Reservoirs++
		case Tank:
			s.Tanks++
		}
	}
	for _, l := range m.Links {
		switch l.Category {
		case Pipe:
			s.Pipes++
		case Pump:
			s.Pumps++
		case Valve:
			s.Valves++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d junctions, %d reservoirs, %d tanks, %d pipes, %d pumps, %d valves",
		s.Junctions, s.Reservoirs, s.Tanks, s.Pipes, s.Pumps, s.Valves)
}
