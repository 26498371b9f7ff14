package pathfinding

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// Gate is a boundary cell through which a route leaves Chunk for Next.
type Gate struct {
	Chunk grid.ChunkCoord
	Next  grid.ChunkCoord
	Cell  grid.GlobalCell
}

// Hop is the part of a route confined to one chunk.
type Hop struct {
	Chunk grid.ChunkCoord
	Path  []grid.LocalCell
}

// Route is a planned path across one or more chunks.
type Route struct {
	Start grid.GlobalCell
	End   grid.GlobalCell
	Gates []Gate
	Hops  []Hop
	Cells []grid.GlobalCell // Whole route, shared gate cells listed once

	searcher *Searcher
}

// Len returns the number of cells on the route.
func (r *Route) Len() int {
	return len(r.Cells)
}

// ChunkPaths returns the local path through each chunk the route visits.
func (r *Route) ChunkPaths() map[grid.ChunkCoord][]grid.LocalCell {
	paths := make(map[grid.ChunkCoord][]grid.LocalCell, len(r.Hops))
	for _, hop := range r.Hops {
		paths[hop.Chunk] = append(paths[hop.Chunk], hop.Path...)
	}
	return paths
}

// Points returns the route as world positions with terrain heights.
func (r *Route) Points() []mgl32.Vec3 {
	return r.points(r.Cells)
}

func (r *Route) points(cells []grid.GlobalCell) []mgl32.Vec3 {
	pts := make([]mgl32.Vec3, len(cells))
	for i, c := range cells {
		x, y, z := r.searcher.position(c)
		pts[i] = mgl32.Vec3{float32(x), float32(y), float32(z)}
	}
	return pts
}

// Simplify reduces the route to waypoints for a follower. A waypoint is kept
// only where the straight run from the previous kept one would break the slope
// limit; kept waypoints closer than two cells to the previous one are dropped.
// The start and end are always kept.
func (r *Route) Simplify() []grid.GlobalCell {
	cells := r.Cells
	if len(cells) < 3 {
		return append([]grid.GlobalCell(nil), cells...)
	}

	kept := []grid.GlobalCell{cells[0]}
	check := 0
	for cur := 1; cur < len(cells); cur++ {
		if !r.lineOfSight(cells[check], cells[cur]) {
			check = cur - 1
			kept = append(kept, cells[check])
		}
	}
	kept = append(kept, cells[len(cells)-1])

	out := []grid.GlobalCell{kept[0]}
	for _, c := range kept[1 : len(kept)-1] {
		if chebyshev(out[len(out)-1], c) > 2 {
			out = append(out, c)
		}
	}
	last := kept[len(kept)-1]
	if out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

// SimplifiedPoints returns Simplify as world positions.
func (r *Route) SimplifiedPoints() []mgl32.Vec3 {
	return r.points(r.Simplify())
}

// lineOfSight samples the straight line from a to b one cell at a time and
// reports whether every sampled step stays within the slope limit.
func (r *Route) lineOfSight(a, b grid.GlobalCell) bool {
	d := a.To(b)
	steps := chebyshev(a, b)
	if steps <= 1 {
		return true
	}

	prev := a
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c := grid.GlobalCell{
			X: a.X + int(math.Round(float64(d.DX)*t)),
			Y: a.Y + int(math.Round(float64(d.DY)*t)),
		}
		if !r.searcher.Traversable(prev, c) {
			return false
		}
		prev = c
	}
	return true
}

func chebyshev(a, b grid.GlobalCell) int {
	d := a.To(b)
	dx, dy := d.DX, d.DY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}
