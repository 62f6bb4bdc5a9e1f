package telemetry

import "math"

// Grid describes the sensor layout: Width columns by Height rows of
// nodes on a regular lattice, SpacingM metres apart. Node IDs are
// row-major: id = row*Width + col.
type Grid struct {
	Width    int
	Height   int
	SpacingM float64
}

// Size returns the number of nodes in the grid.
func (g Grid) Size() int { return g.Width * g.Height }

// Cell returns the (row, col) of a node ID.
func (g Grid) Cell(id int) (row, col int) {
	return id / g.Width, id % g.Width
}

// ID returns the node ID at (row, col).
func (g Grid) ID(row, col int) int { return row*g.Width + col }

// Contains reports whether id is a valid node ID.
func (g Grid) Contains(id int) bool { return id >= 0 && id < g.Size() }

// Distance returns the Euclidean distance between two nodes in grid units.
func (g Grid) Distance(a, b int) float64 {
	ar, ac := g.Cell(a)
	br, bc := g.Cell(b)
	dr := float64(ar - br)
	dc := float64(ac - bc)
	return math.Sqrt(dr*dr + dc*dc)
}

// DistanceM returns the Euclidean distance between two nodes in metres.
func (g Grid) DistanceM(a, b int) float64 {
	return g.Distance(a, b) * g.SpacingM
}

// Within calls fn for every node other than id whose grid distance from
// id is at most radius, in node-ID order.
func (g Grid) Within(id int, radius float64, fn func(other int, dist float64)) {
	row, col := g.Cell(id)
	r := int(math.Ceil(radius))
	for dr := -r; dr <= r; dr++ {
		for dc := -r; dc <= r; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := row+dr, col+dc
			if nr < 0 || nr >= g.Height || nc < 0 || nc >= g.Width {
				continue
			}
			d := math.Sqrt(float64(dr*dr + dc*dc))
			if d <= radius {
				fn(g.ID(nr, nc), d)
			}
		}
	}
}
