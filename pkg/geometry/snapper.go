package geometry

import (
	"fmt"
	"sort"
)

// PointInput is a candidate node location offered to the snapper
type PointInput struct {
	ID       string
	Location Point
}

// LineInput is a candidate link whose endpoints need node identities
type LineInput struct {
	ID       string
	Vertices Polyline
}

// SnapNode is a canonical node produced by snapping. Its location is the
// location of the cluster's founding member and never moves afterwards.
type SnapNode struct {
	ID       string
	Location Point
	Implicit bool     // created from a line endpoint with no point feature in reach
	PointIDs []string // explicit point features merged into this node
}

// SnapWarning flags a cluster that merged more than one explicit point
// feature. The merge is resolved deterministically (lowest feature identity
// wins) but the user's intent is ambiguous, so it is surfaced rather than
// silently accepted.
type SnapWarning struct {
	NodeID   string
	PointIDs []string
}

func (w SnapWarning) String() string {
	return fmt.Sprintf("node %s merges point features %v", w.NodeID, w.PointIDs)
}

// SnapResult maps the original geometry onto canonical node identities
type SnapResult struct {
	Nodes    []SnapNode
	ByPoint  map[string]string    // point feature ID -> canonical node ID
	LineEnds map[string][2]string // line feature ID -> [start, end] node IDs
	Warnings []SnapWarning
}

// Node returns the canonical node with the given ID, or nil
func (r *SnapResult) Node(id string) *SnapNode {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

type cluster struct {
	id       string
	location Point
	implicit bool
	pointIDs []string
}

// Snap clusters point features and line endpoints into canonical nodes.
// Two locations merge when their distance is within tolerance. Input geometry
// is read-only; candidates are visited in identity order so repeated runs on
// the same input produce identical assignments.
func Snap(points []PointInput, lines []LineInput, tolerance float64) (*SnapResult, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("snap tolerance must be non-negative, got %v", tolerance)
	}

	sortedPoints := make([]PointInput, len(points))
	copy(sortedPoints, points)
	sort.Slice(sortedPoints, func(i, j int) bool { return sortedPoints[i].ID < sortedPoints[j].ID })

	sortedLines := make([]LineInput, len(lines))
	copy(sortedLines, lines)
	sort.Slice(sortedLines, func(i, j int) bool { return sortedLines[i].ID < sortedLines[j].ID })

	index := newGridIndex(tolerance)
	var clusters []*cluster

	// join finds the nearest cluster representative within tolerance of p,
	// preferring the lower canonical ID on distance ties, or founds a new
	// cluster when nothing is in reach.
	join := func(p Point, found func() *cluster) *cluster {
		best := -1
		bestDist := tolerance
		for _, ci := range index.Neighbors(p) {
			d := clusters[ci].location.DistanceTo(p)
			if d > tolerance {
				continue
			}
			if best == -1 || d < bestDist || (d == bestDist && clusters[ci].id < clusters[best].id) {
				best = ci
				bestDist = d
			}
		}
		if best >= 0 {
			return clusters[best]
		}
		c := found()
		index.Insert(c.location, len(clusters))
		clusters = append(clusters, c)
		return c
	}

	result := &SnapResult{
		ByPoint:  make(map[string]string, len(points)),
		LineEnds: make(map[string][2]string, len(lines)),
	}

	// Explicit point features first: they anchor clusters and win naming.
	for _, pt := range sortedPoints {
		if _, dup := result.ByPoint[pt.ID]; dup {
			return nil, fmt.Errorf("duplicate point feature identity %q", pt.ID)
		}
		pt := pt
		c := join(pt.Location, func() *cluster {
			return &cluster{id: pt.ID, location: pt.Location}
		})
		c.pointIDs = append(c.pointIDs, pt.ID)
		result.ByPoint[pt.ID] = c.id
	}

	// Line endpoints second: unmatched ones become implicit junctions.
	for _, ln := range sortedLines {
		if _, dup := result.LineEnds[ln.ID]; dup {
			return nil, fmt.Errorf("duplicate line feature identity %q", ln.ID)
		}
		if len(ln.Vertices) < 2 {
			return nil, fmt.Errorf("line feature %q has fewer than two vertices", ln.ID)
		}
		var ends [2]string
		for i, loc := range []Point{ln.Vertices.Start(), ln.Vertices.End()} {
			suffix := "start"
			if i == 1 {
				suffix = "end"
			}
			lnID := ln.ID
			c := join(loc, func() *cluster {
				return &cluster{
					id:       fmt.Sprintf("%s.%s", lnID, suffix),
					location: loc,
					implicit: true,
				}
			})
			ends[i] = c.id
		}
		result.LineEnds[ln.ID] = ends
	}

	for _, c := range clusters {
		result.Nodes = append(result.Nodes, SnapNode{
			ID:       c.id,
			Location: c.location,
			Implicit: c.implicit,
			PointIDs: c.pointIDs,
		})
		if len(c.pointIDs) > 1 {
			result.Warnings = append(result.Warnings, SnapWarning{
				NodeID:   c.id,
				PointIDs: c.pointIDs,
			})
		}
	}

	return result, nil
}
