package geometry

import (
	"reflect"
	"testing"
)

// TestPolylineLength checks measured length over multiple segments
func TestPolylineLength(t *testing.T) {
	pl := Polyline{{0, 0}, {3, 4}, {3, 14}}
	if got := pl.Length(); got != 15 {
		t.Errorf("Length() = %v, want 15", got)
	}

	if got := (Polyline{{2, 2}}).Length(); got != 0 {
		t.Errorf("single-vertex length = %v, want 0", got)
	}
}

// TestSnap_EndpointsMatchPoints verifies line endpoints adopt nearby point identities
func TestSnap_EndpointsMatchPoints(t *testing.T) {
	points := []PointInput{
		{ID: "R1", Location: Point{0, 0}},
		{ID: "J1", Location: Point{100, 0}},
	}
	lines := []LineInput{
		// Endpoints drawn slightly off the point features, within tolerance
		{ID: "P1", Vertices: Polyline{{0.2, 0.1}, {50, 0}, {99.8, 0.1}}},
	}

	result, err := Snap(points, lines, 0.5)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}

	if got := result.LineEnds["P1"]; got != [2]string{"R1", "J1"} {
		t.Errorf("LineEnds[P1] = %v, want [R1 J1]", got)
	}
	if len(result.Nodes) != 2 {
		t.Errorf("expected 2 canonical nodes, got %d", len(result.Nodes))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

// TestSnap_ImplicitJunction verifies unmatched endpoints create implicit nodes
func TestSnap_ImplicitJunction(t *testing.T) {
	points := []PointInput{{ID: "R1", Location: Point{0, 0}}}
	lines := []LineInput{{ID: "P1", Vertices: Polyline{{0, 0}, {100, 0}}}}

	result, err := Snap(points, lines, 0.5)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}

	ends := result.LineEnds["P1"]
	if ends[0] != "R1" {
		t.Errorf("start node = %q, want R1", ends[0])
	}
	if ends[1] != "P1.end" {
		t.Errorf("end node = %q, want P1.end", ends[1])
	}

	implicit := result.Node("P1.end")
	if implicit == nil || !implicit.Implicit {
		t.Fatalf("expected implicit node P1.end, got %+v", implicit)
	}
	if implicit.Location != (Point{100, 0}) {
		t.Errorf("implicit node location = %v, want {100 0}", implicit.Location)
	}
}

// TestSnap_MergeWarning verifies ambiguous merges are flagged with a deterministic winner
func TestSnap_MergeWarning(t *testing.T) {
	points := []PointInput{
		{ID: "J2", Location: Point{0.3, 0}},
		{ID: "J1", Location: Point{0, 0}},
	}

	result, err := Snap(points, nil, 1.0)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}

	if len(result.Nodes) != 1 {
		t.Fatalf("expected 1 merged node, got %d", len(result.Nodes))
	}
	// Lower feature identity wins the merge
	if result.Nodes[0].ID != "J1" {
		t.Errorf("canonical ID = %q, want J1", result.Nodes[0].ID)
	}
	if result.ByPoint["J2"] != "J1" {
		t.Errorf("ByPoint[J2] = %q, want J1", result.ByPoint["J2"])
	}

	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if !reflect.DeepEqual(result.Warnings[0].PointIDs, []string{"J1", "J2"}) {
		t.Errorf("warning point IDs = %v, want [J1 J2]", result.Warnings[0].PointIDs)
	}
}

// TestSnap_Deterministic verifies repeated runs produce identical assignments
// regardless of input ordering
func TestSnap_Deterministic(t *testing.T) {
	points := []PointInput{
		{ID: "T1", Location: Point{0, 50}},
		{ID: "J3", Location: Point{10, 10}},
		{ID: "J1", Location: Point{0, 0}},
		{ID: "J2", Location: Point{0.4, 0.1}},
	}
	lines := []LineInput{
		{ID: "P2", Vertices: Polyline{{10, 10}, {0, 50}}},
		{ID: "P1", Vertices: Polyline{{0.1, 0}, {10, 10}}},
	}

	first, err := Snap(points, lines, 0.5)
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}

	// Reversed input order must not change the outcome
	revPoints := []PointInput{points[3], points[2], points[1], points[0]}
	revLines := []LineInput{lines[1], lines[0]}

	for i := 0; i < 5; i++ {
		again, err := Snap(revPoints, revLines, 0.5)
		if err != nil {
			t.Fatalf("Snap failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

// TestSnap_InputValidation covers tolerance and malformed feature errors
func TestSnap_InputValidation(t *testing.T) {
	if _, err := Snap(nil, nil, -1); err == nil {
		t.Error("expected error for negative tolerance")
	}

	_, err := Snap(nil, []LineInput{{ID: "P1", Vertices: Polyline{{0, 0}}}}, 1)
	if err == nil {
		t.Error("expected error for single-vertex line")
	}

	_, err = Snap([]PointInput{
		{ID: "J1", Location: Point{0, 0}},
		{ID: "J1", Location: Point{5, 5}},
	}, nil, 1)
	if err == nil {
		t.Error("expected error for duplicate point identity")
	}
}

// TestGridIndex_Neighbors checks the 3x3 neighborhood query
func TestGridIndex_Neighbors(t *testing.T) {
	g := newGridIndex(1.0)
	g.Insert(Point{0.5, 0.5}, 0)
	g.Insert(Point{1.5, 0.5}, 1)
	g.Insert(Point{5, 5}, 2)

	got := g.Neighbors(Point{0.9, 0.5})
	seen := make(map[int]bool)
	for _, idx := range got {
		seen[idx] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("expected neighbors 0 and 1, got %v", got)
	}
	if seen[2] {
		t.Errorf("distant index 2 should not be returned, got %v", got)
	}
}
