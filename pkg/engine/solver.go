package engine

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
)

// Hydraulic is the bundled demand-driven solver. It routes each junction's
// demand along its shortest (by length) path to a supply node, accumulating
// flow on the links of those paths, then walks heads outward from the supply
// nodes through the accumulated losses. Mass is conserved exactly at every
// junction; looped mains resolve onto their shortest branch rather than
// splitting flow, which keeps the solution deterministic.
type Hydraulic struct{}

// NewHydraulic creates the bundled solver
func NewHydraulic() *Hydraulic {
	return &Hydraulic{}
}

// Build serializes a validated network into engine form. Entities are indexed
// in sorted-identity order so the translation table (and therefore results)
// is reproducible. Build re-checks the invariants the pipeline already
// enforced; a violation here means the caller handed over an unvalidated
// model and surfaces as an engine build fault.
func (h *Hydraulic) Build(model *network.Model, cfg Config) (*Model, error) {
	if report := cfg.Validate(); report.Blocking() {
		return nil, &network.EngineFault{Stage: "build", Detail: "invalid configuration", Cause: report.Err()}
	}

	nodeIDs := model.NodeIDs()
	if len(nodeIDs) == 0 {
		return nil, &network.EngineFault{Stage: "build", Detail: "model has no nodes"}
	}
	if len(model.Sources()) == 0 {
		return nil, &network.EngineFault{Stage: "build", Detail: "model has no supply node"}
	}

	nodeIndex := make(map[string]int, len(nodeIDs))
	em := &Model{
		Steps:      cfg.Steps(),
		Formula:    cfg.Formula,
		Multiplier: cfg.Multiplier(),
	}

	for i, id := range nodeIDs {
		n := model.Nodes[id]
		en := Node{Elevation: n.Elevation}
		if n.Category.IsSource() {
			en.Kind = KindSupply
			en.Head = n.Elevation
		} else {
			en.Kind = KindDemand
			if n.Demand != nil {
				en.Demand = *n.Demand
			}
		}
		nodeIndex[id] = i
		em.Nodes = append(em.Nodes, en)
		em.Translation.Nodes = append(em.Translation.Nodes, id)
	}

	for _, id := range model.LinkIDs() {
		l := model.Links[id]
		from, okF := nodeIndex[l.Start]
		to, okT := nodeIndex[l.End]
		if !okF || !okT {
			return nil, &network.EngineFault{
				Stage:  "build",
				Detail: fmt.Sprintf("link %s references a node outside the model", id),
			}
		}
		if from == to {
			return nil, &network.EngineFault{
				Stage:  "build",
				Detail: fmt.Sprintf("link %s is a self-loop", id),
			}
		}
		if l.Category == network.Pipe && (l.Diameter <= 0 || l.Roughness <= 0 || l.Length <= 0) {
			return nil, &network.EngineFault{
				Stage:  "build",
				Detail: fmt.Sprintf("pipe %s has non-physical parameters", id),
			}
		}
		em.Links = append(em.Links, Link{
			Category:  l.Category,
			From:      from,
			To:        to,
			Length:    l.Length,
			Diameter:  l.Diameter,
			Roughness: l.Roughness,
		})
		em.Translation.Links = append(em.Translation.Links, id)
	}

	return em, nil
}

// Run executes the model over its timesteps. Cancellation is honored at step
// boundaries only; each step is atomic.
func (h *Hydraulic) Run(ctx context.Context, m *Model, progress ProgressFunc) (*RawResultSet, error) {
	paths, err := supplyPaths(m)
	if err != nil {
		return nil, err
	}

	rs := &RawResultSet{
		Steps: m.Steps,
		Nodes: make([][]NodeReading, len(m.Nodes)),
		Links: make([][]LinkReading, len(m.Links)),
	}
	for i := range rs.Nodes {
		rs.Nodes[i] = make([]NodeReading, 0, len(m.Steps))
	}
	for i := range rs.Links {
		rs.Links[i] = make([]LinkReading, 0, len(m.Steps))
	}

	warned := make(map[int]bool)
	total := len(m.Steps)

	for stepIdx := range m.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run stopped after %d of %d steps: %w", stepIdx, total, err)
		}

		nodes, links := h.solveStep(m, paths)
		for i, nr := range nodes {
			rs.Nodes[i] = append(rs.Nodes[i], nr)
			if nr.Pressure < 0 && m.Nodes[i].Kind == KindDemand && !warned[i] {
				warned[i] = true
				rs.Warnings = append(rs.Warnings, network.EngineWarning(
					fmt.Sprintf("negative pressure %.2f m at step %d", nr.Pressure, stepIdx),
					m.Translation.Nodes[i]))
			}
		}
		for i, lr := range links {
			rs.Links[i] = append(rs.Links[i], lr)
		}

		if progress != nil {
			progress(stepIdx+1, total)
		}
	}

	return rs, nil
}

// solveStep computes one hydraulic snapshot. Demands are constant per step in
// the bundled solver, so steps differ only when a pattern layer is added on
// top; the step loop still runs so cancellation and progress behave the same
// as in a full solver.
func (h *Hydraulic) solveStep(m *Model, paths *pathForest) ([]NodeReading, []LinkReading) {
	flows := make([]float64, len(m.Links))

	// Accumulate each demand along its supply path, farthest nodes first so
	// downstream flow is complete before upstream links are visited.
	order := make([]int, 0, len(m.Nodes))
	for i := range m.Nodes {
		if m.Nodes[i].Kind == KindDemand {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool { return paths.dist[order[a]] > paths.dist[order[b]] })

	carried := make([]float64, len(m.Nodes))
	for i := range carried {
		if m.Nodes[i].Kind == KindDemand {
			carried[i] = m.Nodes[i].Demand * m.Multiplier
		}
	}
	for _, i := range order {
		li := paths.parentLink[i]
		if li < 0 {
			continue
		}
		l := m.Links[li]
		parent := paths.parentNode[i]
		if l.From == parent {
			// transport runs parent→i, matching the From→To orientation
			flows[li] += carried[i]
		} else {
			flows[li] -= carried[i]
		}
		carried[parent] += carried[i]
	}

	links := make([]LinkReading, len(m.Links))
	for i, l := range m.Links {
		q := math.Abs(flows[i])
		hl := headloss(m.Formula, l, q)
		lr := LinkReading{
			Flow:     flows[i],
			Velocity: velocity(l, q),
			Headloss: hl,
		}
		if l.Length > 0 {
			lr.UnitHeadloss = hl / l.Length
		}
		links[i] = lr
	}

	// Heads propagate outward from the supply nodes through the path forest.
	heads := make([]float64, len(m.Nodes))
	byDist := make([]int, 0, len(m.Nodes))
	for i := range m.Nodes {
		byDist = append(byDist, i)
	}
	sort.Slice(byDist, func(a, b int) bool { return paths.dist[byDist[a]] < paths.dist[byDist[b]] })
	for _, i := range byDist {
		if m.Nodes[i].Kind == KindSupply {
			heads[i] = m.Nodes[i].Head
			continue
		}
		heads[i] = heads[paths.parentNode[i]] - links[paths.parentLink[i]].Headloss
	}

	nodes := make([]NodeReading, len(m.Nodes))
	for i, n := range m.Nodes {
		nr := NodeReading{Head: heads[i]}
		if n.Kind == KindDemand {
			nr.Demand = n.Demand * m.Multiplier
			nr.Pressure = heads[i] - n.Elevation
		}
		nodes[i] = nr
	}

	return nodes, links
}

// pathForest is the multi-source shortest-path forest rooted at the supply nodes
type pathForest struct {
	dist       []float64
	parentNode []int
	parentLink []int
}

type pqItem struct {
	node int
	dist float64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// supplyPaths runs multi-source Dijkstra from every supply node over link
// lengths. Ties break toward the lower link index, which is the lower link
// identity, so the forest is deterministic.
func supplyPaths(m *Model) (*pathForest, error) {
	pf := &pathForest{
		dist:       make([]float64, len(m.Nodes)),
		parentNode: make([]int, len(m.Nodes)),
		parentLink: make([]int, len(m.Nodes)),
	}
	for i := range pf.dist {
		pf.dist[i] = math.Inf(1)
		pf.parentNode[i] = -1
		pf.parentLink[i] = -1
	}

	adj := make([][]int, len(m.Nodes)) // link indexes per node
	for li, l := range m.Links {
		adj[l.From] = append(adj[l.From], li)
		adj[l.To] = append(adj[l.To], li)
	}

	pq := &priorityQueue{}
	for i, n := range m.Nodes {
		if n.Kind == KindSupply {
			pf.dist[i] = 0
			heap.Push(pq, pqItem{node: i, dist: 0})
		}
	}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if item.dist > pf.dist[item.node] {
			continue
		}
		for _, li := range adj[item.node] {
			l := m.Links[li]
			next := l.To
			if next == item.node {
				next = l.From
			}
			// Links of zero length (pumps, valves) still cost a little so
			// the forest stays acyclic.
			w := l.Length
			if w <= 0 {
				w = 1e-9
			}
			d := item.dist + w
			if d < pf.dist[next] || (d == pf.dist[next] && li < pf.parentLink[next]) {
				pf.dist[next] = d
				pf.parentNode[next] = item.node
				pf.parentLink[next] = li
				heap.Push(pq, pqItem{node: next, dist: d})
			}
		}
	}

	for i, n := range m.Nodes {
		if n.Kind == KindDemand && math.IsInf(pf.dist[i], 1) {
			return nil, &network.EngineFault{
				Stage:  "run",
				Detail: fmt.Sprintf("no supply path to node %s", m.Translation.Nodes[i]),
			}
		}
	}

	return pf, nil
}
