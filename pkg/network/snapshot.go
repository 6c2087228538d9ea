package network

import "github.com/dd0wney/cluso-hydronet/pkg/geometry"

// PointFeature is a raw user-drawn point with its engineering attributes.
// Unrecognized attributes are carried along and ignored by the schema.
type PointFeature struct {
	ID         string
	Category   NodeCategory
	Location   geometry.Point
	Attributes map[string]float64
}

// LineFeature is a raw user-drawn line with its engineering attributes
type LineFeature struct {
	ID         string
	Category   LinkCategory
	Vertices   geometry.Polyline
	Attributes map[string]float64
}

// Snapshot is the read-only geometry+attribute input the pipeline consumes.
// A fresh Model is built from it per simulation request; the snapshot itself
// is never mutated.
type Snapshot struct {
	Points []PointFeature
	Lines  []LineFeature
}

// Point returns the point feature with the given ID, or nil
func (s *Snapshot) Point(id string) *PointFeature {
	for i := range s.Points {
		if s.Points[i].ID == id {
			return &s.Points[i]
		}
	}
	return nil
}

// Line returns the line feature with the given ID, or nil
func (s *Snapshot) Line(id string) *LineFeature {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return &s.Lines[i]
		}
	}
	return nil
}
