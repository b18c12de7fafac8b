package collision

import (
	"math"
	"sort"

	"ability-engine/internal/geom"
)

// cellKey identifies a grid cell occupied by a candidate's bounding cube.
type cellKey struct {
	X int
	Y int
	Z int
}

const (
	// DefaultCellSize is the edge length of a broad-phase cell in blocks.
	DefaultCellSize = 4.0

	// MaxExtent bounds coordinates and radii accepted into the grid so cell
	// indices stay within int range.
	MaxExtent = 1 << 40

	// maxCellSpan caps the cells walked per axis for one point.
	maxCellSpan = 64
)

// grid is a uniform 3D bucket index over candidate indices. It is rebuilt
// for every pair, so it only supports insertion and queries.
type grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]int
}

// newGrid sizes cells so the cube around any point spans at most two cells
// per axis.
func newGrid(cellSize, maxRadius float64) *grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if span := 2 * maxRadius; span > cellSize {
		cellSize = span
	}
	return &grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]int),
	}
}

// insert records idx in every cell touched by the cubes of half-extent
// radius around points.
func (g *grid) insert(idx int, points []geom.Vec3, radius float64) {
	seen := make(map[cellKey]struct{}, len(points)*8)
	for _, p := range points {
		g.visit(p, radius, func(key cellKey) {
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			g.cells[key] = append(g.cells[key], idx)
		})
	}
}

// query returns the distinct indices sharing a cell with the cubes around
// points, in ascending order.
func (g *grid) query(points []geom.Vec3, radius float64) []int {
	found := make(map[int]struct{})
	for _, p := range points {
		g.visit(p, radius, func(key cellKey) {
			for _, idx := range g.cells[key] {
				found[idx] = struct{}{}
			}
		})
	}
	out := make([]int, 0, len(found))
	for idx := range found {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (g *grid) visit(p geom.Vec3, radius float64, fn func(cellKey)) {
	if !withinExtent(p, radius) {
		return
	}
	if radius < 0 {
		radius = 0
	}
	minX, maxX := g.coordToCell(p.X-radius), g.coordToCell(p.X+radius)
	minY, maxY := g.coordToCell(p.Y-radius), g.coordToCell(p.Y+radius)
	minZ, maxZ := g.coordToCell(p.Z-radius), g.coordToCell(p.Z+radius)
	if maxX-minX > maxCellSpan || maxY-minY > maxCellSpan || maxZ-minZ > maxCellSpan {
		return
	}
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				fn(cellKey{X: x, Y: y, Z: z})
			}
		}
	}
}

// withinExtent reports whether p and radius are finite and inside MaxExtent.
func withinExtent(p geom.Vec3, radius float64) bool {
	if !p.Finite() || math.IsNaN(radius) || math.Abs(radius) > MaxExtent {
		return false
	}
	return math.Abs(p.X) <= MaxExtent && math.Abs(p.Y) <= MaxExtent && math.Abs(p.Z) <= MaxExtent
}

func (g *grid) coordToCell(value float64) int {
	return int(math.Floor(value * g.invCellSize))
}
