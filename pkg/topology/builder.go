// Package topology constructs the node/link graph from snapped geometry and
// validates it. Violations are collected as diagnostics across the whole
// network, never raised one at a time, so a caller sees every problem in a
// single pass.
package topology

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
)

// Options tunes graph validation
type Options struct {
	// AllowDuplicateLinks permits two links between the same endpoint pair,
	// e.g. parallel pipes laid in one trench
	AllowDuplicateLinks bool
}

// Build assembles a fresh network model from the snapper's canonical mapping.
// Link lengths are measured from the vertex polylines; an explicit length
// attribute, when present, overrides the measurement later in the attribute
// mapping stage. The returned report carries every snap warning and topology
// error found.
func Build(snap *network.Snapshot, sr *geometry.SnapResult, opts Options) (*network.Model, *network.Report) {
	model := network.NewModel()
	report := &network.Report{}

	for _, w := range sr.Warnings {
		report.Add(network.SnapWarning(
			fmt.Sprintf("tolerance merged %d point features into node %s", len(w.PointIDs), w.NodeID),
			w.PointIDs...))
	}

	for _, sn := range sr.Nodes {
		node := &network.Node{
			ID:       sn.ID,
			Category: network.Junction,
			Location: sn.Location,
			Implicit: sn.Implicit,
		}
		if pf := snap.Point(sn.ID); pf != nil {
			node.Category = pf.Category
		}
		if err := model.AddNode(node); err != nil {
			report.Add(network.TopologyError(err.Error(), sn.ID))
		}
	}

	// Visit lines in identity order so diagnostics and duplicate detection
	// are reproducible.
	lines := make([]network.LineFeature, len(snap.Lines))
	copy(lines, snap.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

	endpointPairs := make(map[[2]string]string)
	for i := range lines {
		lf := &lines[i]
		ends, ok := sr.LineEnds[lf.ID]
		if !ok {
			report.Add(network.TopologyError("line feature was never snapped", lf.ID))
			continue
		}

		if ends[0] == ends[1] {
			report.Add(network.TopologyError(
				fmt.Sprintf("both endpoints snapped to node %s (self-loop)", ends[0]), lf.ID))
			continue
		}

		pair := [2]string{ends[0], ends[1]}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		if prev, dup := endpointPairs[pair]; dup && !opts.AllowDuplicateLinks {
			report.Add(network.TopologyError(
				fmt.Sprintf("duplicate link between %s and %s", ends[0], ends[1]), prev, lf.ID))
			continue
		}
		endpointPairs[pair] = lf.ID

		link := &network.Link{
			ID:       lf.ID,
			Category: lf.Category,
			Start:    ends[0],
			End:      ends[1],
			Vertices: lf.Vertices,
			Length:   lf.Vertices.Length(),
		}
		if err := model.AddLink(link); err != nil {
			// Covers dangling endpoints, which mean the snapper and the
			// builder disagree about what exists.
			report.Add(network.TopologyError(err.Error(), lf.ID))
			continue
		}
	}

	report.Add(checkReachability(model)...)

	return model, report
}

// checkReachability verifies that every node is reachable from at least one
// reservoir or tank. The whole unreachable set is reported as one diagnostic
// so disconnected geometry surfaces as a single actionable error rather than
// a flood.
func checkReachability(model *network.Model) []network.Diagnostic {
	if len(model.Nodes) == 0 {
		return nil
	}

	sources := model.Sources()
	if len(sources) == 0 {
		return []network.Diagnostic{network.TopologyError(
			"network has no reservoir or tank to supply it", model.NodeIDs()...)}
	}

	adj := model.Adjacency()
	visited := make(map[string]bool, len(model.Nodes))
	queue := append([]string(nil), sources...)
	for _, s := range sources {
		visited[s] = true
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	var unreachable []string
	for _, id := range model.NodeIDs() {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	if len(unreachable) == 0 {
		return nil
	}
	return []network.Diagnostic{network.TopologyError(
		fmt.Sprintf("%d nodes unreachable from any reservoir or tank", len(unreachable)),
		unreachable...)}
}
