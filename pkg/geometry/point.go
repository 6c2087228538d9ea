package geometry

import "math"

// Point is a 2D location in the input coordinate reference system
type Point struct {
	X float64
	Y float64
}

// DistanceTo returns the Euclidean distance between two points
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Polyline is an ordered vertex sequence describing a line feature
type Polyline []Point

// Length returns the measured length of the polyline in coordinate units
func (pl Polyline) Length() float64 {
	var total float64
	for i := 1; i < len(pl); i++ {
		total += pl[i-1].DistanceTo(pl[i])
	}
	return total
}

// Start returns the first vertex. Callers must not pass empty polylines.
func (pl Polyline) Start() Point {
	return pl[0]
}

// End returns the last vertex
func (pl Polyline) End() Point {
	return pl[len(pl)-1]
}
