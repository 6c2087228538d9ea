package geometry

import "math"

// gridIndex buckets points into square cells sized to the query radius so
// that a radius query only inspects the 3x3 cell neighborhood.
type gridIndex struct {
	cell  float64
	cells map[[2]int][]int // cell coordinate -> indexes into the owner's slice
}

func newGridIndex(cell float64) *gridIndex {
	if cell <= 0 {
		cell = 1
	}
	return &gridIndex{
		cell:  cell,
		cells: make(map[[2]int][]int),
	}
}

func (g *gridIndex) key(p Point) [2]int {
	return [2]int{int(math.Floor(p.X / g.cell)), int(math.Floor(p.Y / g.cell))}
}

// Insert records an index at the given location
func (g *gridIndex) Insert(p Point, idx int) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], idx)
}

// Neighbors returns the stored indexes whose cells lie within one cell of p.
// Callers still need an exact distance check on the candidates.
func (g *gridIndex) Neighbors(p Point) []int {
	k := g.key(p)
	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			out = append(out, g.cells[[2]int{k[0] + dx, k[1] + dy}]...)
		}
	}
	return out
}
