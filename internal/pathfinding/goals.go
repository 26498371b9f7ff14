package pathfinding

import (
	"sort"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// GoalSet is a set of local cells that end a best-gate search.
type GoalSet map[grid.LocalCell]struct{}

// NewGoalSet returns a set holding cells.
func NewGoalSet(cells ...grid.LocalCell) GoalSet {
	g := make(GoalSet, len(cells))
	for _, c := range cells {
		g[c] = struct{}{}
	}
	return g
}

// Contains reports whether c is a goal.
func (g GoalSet) Contains(c grid.LocalCell) bool {
	_, ok := g[c]
	return ok
}

// Cells returns the goals in row-major order.
func (g GoalSet) Cells() []grid.LocalCell {
	cells := make([]grid.LocalCell, 0, len(g))
	for c := range g {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// GetGoalSet returns the boundary cells of a v*v chunk grid that face the
// neighbor in direction dir: a full edge for orthogonal directions and the
// single shared corner for diagonal ones. A zero direction yields an empty set.
func GetGoalSet(v int, dir grid.Step) GoalSet {
	dir = dir.Sign()
	last := v - 1

	switch {
	case dir == (grid.Step{}):
		return GoalSet{}
	case dir.IsDiagonal():
		return NewGoalSet(grid.LocalCell{X: edge(dir.DX, last), Y: edge(dir.DY, last)})
	}

	goals := make(GoalSet, v)
	for i := 0; i < v; i++ {
		if dir.DX != 0 {
			goals[grid.LocalCell{X: edge(dir.DX, last), Y: i}] = struct{}{}
		} else {
			goals[grid.LocalCell{X: i, Y: edge(dir.DY, last)}] = struct{}{}
		}
	}
	return goals
}

// edge maps a direction component to the grid index on that side.
func edge(d, last int) int {
	if d > 0 {
		return last
	}
	return 0
}
