// Package pathfinding finds slope-limited routes over the terrain grid, one
// chunk at a time, and stitches them into routes that cross chunk borders.
package pathfinding

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

var (
	// ErrNoPath is returned when no traversable route reaches the goal.
	ErrNoPath = errors.New("no path found")
	// ErrBrokenChain is returned when a found path cannot be walked back to
	// its start. It indicates a bookkeeping bug and is never retried.
	ErrBrokenChain = errors.New("predecessor chain broken")
)

// Heights samples terrain elevation at a global cell.
type Heights interface {
	HeightAt(l grid.Layout, g grid.GlobalCell) float32
}

// PathNode represents a cell in the A* frontier.
type PathNode struct {
	Cell   grid.LocalCell
	G      float64 // Accumulated cost from start
	H      float64 // Heuristic to the goal
	F      float64 // G + H
	Parent *PathNode
	Index  int // Index in heap, -1 once popped
}

// PathHeap implements a priority queue for A* pathfinding.
type PathHeap []*PathNode

func (h PathHeap) Len() int           { return len(h) }
func (h PathHeap) Less(i, j int) bool { return h[i].F < h[j].F }
func (h PathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *PathHeap) Push(x any) {
	n := len(*h)
	node := x.(*PathNode)
	node.Index = n
	*h = append(*h, node)
}

func (h *PathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.Index = -1
	*h = old[0 : n-1]
	return node
}

// GateResult is the outcome of a best-gate search. A failed search returns the
// start cell with an infinite cost; check Reached rather than the cell.
type GateResult struct {
	Cell grid.LocalCell
	Cost float64
}

// Reached reports whether the search found a goal.
func (r GateResult) Reached() bool {
	return !math.IsInf(r.Cost, 1)
}

// Searcher runs best-first searches over one chunk's 8-connected vertex grid.
// It holds no per-search state and is safe for concurrent use.
type Searcher struct {
	layout        grid.Layout
	heights       Heights
	maxSlopeSq    float64 // Squared percent slope
	maxIterations int
}

// NewSearcher creates a searcher. maxSlopePercent is the steepest allowed
// grade between adjacent cells in percent; maxIterations caps node expansions
// per search, with 0 selecting 8*V*V.
func NewSearcher(l grid.Layout, heights Heights, maxSlopePercent float64, maxIterations int) *Searcher {
	if maxIterations <= 0 {
		maxIterations = 8 * l.VerticesPerChunk * l.VerticesPerChunk
	}
	return &Searcher{
		layout:        l,
		heights:       heights,
		maxSlopeSq:    maxSlopePercent * maxSlopePercent,
		maxIterations: maxIterations,
	}
}

// Layout returns the chunk layout searched over.
func (s *Searcher) Layout() grid.Layout {
	return s.layout
}

// MaxSlopePercent returns the configured slope limit.
func (s *Searcher) MaxSlopePercent() float64 {
	return math.Sqrt(s.maxSlopeSq)
}

func (s *Searcher) height(g grid.GlobalCell) float64 {
	if s.heights == nil {
		return 0
	}
	return float64(s.heights.HeightAt(s.layout, g))
}

// position returns the world position of g as float64 components.
func (s *Searcher) position(g grid.GlobalCell) (x, y, z float64) {
	w := s.layout.World(g)
	return float64(w.X()), float64(w.Y()), s.height(g)
}

func distSq(ax, ay, az, bx, by, bz float64) float64 {
	dx, dy, dz := bx-ax, by-ay, bz-az
	return dx*dx + dy*dy + dz*dz
}

// SlopeSq returns the squared percent slope between two cells.
func (s *Searcher) SlopeSq(a, b grid.GlobalCell) float64 {
	ax, ay, az := s.position(a)
	bx, by, bz := s.position(b)
	run := (bx-ax)*(bx-ax) + (by-ay)*(by-ay)
	if run == 0 {
		return 0
	}
	rise := bz - az
	return rise * rise / run * 100 * 100
}

// Traversable reports whether the slope between a and b is within the limit.
func (s *Searcher) Traversable(a, b grid.GlobalCell) bool {
	return s.SlopeSq(a, b) <= s.maxSlopeSq
}

// edgeCost returns the squared 3D distance from a to b, or +Inf when the
// slope between them is too steep.
func (s *Searcher) edgeCost(a, b grid.GlobalCell) float64 {
	ax, ay, az := s.position(a)
	bx, by, bz := s.position(b)
	run := (bx-ax)*(bx-ax) + (by-ay)*(by-ay)
	rise := bz - az
	if run > 0 && rise*rise/run*100*100 > s.maxSlopeSq {
		return math.Inf(1)
	}
	return run + rise*rise
}

// search expands from start until isGoal accepts a popped cell. The heuristic
// is the squared distance to target. It returns the goal node, or nil when the
// frontier or the iteration budget is exhausted.
func (s *Searcher) search(chunk grid.ChunkCoord, start grid.LocalCell, target grid.GlobalCell, isGoal func(grid.LocalCell) bool) (*PathNode, map[grid.LocalCell]*PathNode) {
	tx, ty, tz := s.position(target)
	heuristic := func(c grid.LocalCell) float64 {
		x, y, z := s.position(s.layout.ToGlobal(chunk, c))
		return distSq(x, y, z, tx, ty, tz)
	}

	openSet := &PathHeap{}
	heap.Init(openSet)
	nodeMap := make(map[grid.LocalCell]*PathNode)

	startNode := &PathNode{Cell: start, H: heuristic(start)}
	startNode.F = startNode.G + startNode.H
	heap.Push(openSet, startNode)
	nodeMap[start] = startNode

	iterations := 0
	for openSet.Len() > 0 && iterations < s.maxIterations {
		iterations++

		current := heap.Pop(openSet).(*PathNode)
		if isGoal(current.Cell) {
			return current, nodeMap
		}

		from := s.layout.ToGlobal(chunk, current.Cell)
		for _, dir := range grid.Neighbors8 {
			next := current.Cell.Add(dir)
			if !s.layout.Contains(next) {
				continue
			}

			cost := s.edgeCost(from, s.layout.ToGlobal(chunk, next))
			if math.IsInf(cost, 1) {
				continue
			}
			g := current.G + cost

			neighbor, exists := nodeMap[next]
			switch {
			case !exists:
				neighbor = &PathNode{Cell: next, G: g, H: heuristic(next), Parent: current}
				neighbor.F = neighbor.G + neighbor.H
				nodeMap[next] = neighbor
				heap.Push(openSet, neighbor)
			case g < neighbor.G:
				neighbor.G = g
				neighbor.F = neighbor.G + neighbor.H
				neighbor.Parent = current
				if neighbor.Index >= 0 {
					heap.Fix(openSet, neighbor.Index)
				} else {
					// Already expanded: reopen with the cheaper cost.
					heap.Push(openSet, neighbor)
				}
			}
		}
	}
	return nil, nodeMap
}

// GetBestGate searches from start toward the cells in goals, ordering the
// frontier by the squared distance to target, and returns the first goal
// popped with its accumulated cost. When no goal is reachable, including an
// empty goal set, it returns start with an infinite cost.
func (s *Searcher) GetBestGate(chunk grid.ChunkCoord, start grid.LocalCell, goals GoalSet, target grid.GlobalCell) GateResult {
	failed := GateResult{Cell: start, Cost: math.Inf(1)}
	if len(goals) == 0 || !s.layout.Contains(start) {
		return failed
	}

	goal, _ := s.search(chunk, start, target, goals.Contains)
	if goal == nil {
		return failed
	}
	return GateResult{Cell: goal.Cell, Cost: goal.G}
}

// GetPath returns the cells from start to end inclusive inside chunk.
func (s *Searcher) GetPath(chunk grid.ChunkCoord, start, end grid.LocalCell) ([]grid.LocalCell, error) {
	if !s.layout.Contains(start) || !s.layout.Contains(end) {
		return nil, fmt.Errorf("%w: %v -> %v outside chunk %v", ErrNoPath, start, end, chunk)
	}

	goal, nodes := s.search(chunk, start, s.layout.ToGlobal(chunk, end), func(c grid.LocalCell) bool {
		return c == end
	})
	if goal == nil {
		return nil, fmt.Errorf("%w: %v -> %v in chunk %v", ErrNoPath, start, end, chunk)
	}
	return reconstructPath(goal, start, len(nodes))
}

// reconstructPath walks parents from node back to start. More than limit
// steps means the chain loops.
func reconstructPath(node *PathNode, start grid.LocalCell, limit int) ([]grid.LocalCell, error) {
	var path []grid.LocalCell
	for node != nil {
		path = append(path, node.Cell)
		if len(path) > limit {
			return nil, fmt.Errorf("%w: cycle after %d cells", ErrBrokenChain, limit)
		}
		node = node.Parent
	}
	if path[len(path)-1] != start {
		return nil, fmt.Errorf("%w: chain ends at %v, want %v", ErrBrokenChain, path[len(path)-1], start)
	}

	// Reverse path (it's built from goal to start)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
