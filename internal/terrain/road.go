package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// StepKind classifies one path segment for flattening and re-triangulation.
type StepKind uint8

const (
	StepInvalid    StepKind = iota // Not a unit step
	StepVertical                   // (0,±1)
	StepHorizontal                 // (±1,0)
	StepDiagonalA                  // (±1,∓1), parallel to the default quad split
	StepDiagonalB                  // (±1,±1), crosses the default quad split
)

// ClassifyStep returns the family of the step from now to next.
func ClassifyStep(s grid.Step) StepKind {
	if !s.IsUnit() {
		return StepInvalid
	}
	switch {
	case s.DX == 0:
		return StepVertical
	case s.DY == 0:
		return StepHorizontal
	case s.DX == s.DY:
		return StepDiagonalB
	default:
		return StepDiagonalA
	}
}

// Reservation is the outcome of one flattening pass.
type Reservation struct {
	Heights map[grid.LocalCell]float32 // Every reserved cell, including ones outside the chunk
	Path    map[grid.LocalCell]bool    // Cells of the path itself
}

// Shoulders returns the reserved cells that are not on the path.
func (r Reservation) Shoulders() map[grid.LocalCell]float32 {
	out := make(map[grid.LocalCell]float32, len(r.Heights))
	for c, h := range r.Heights {
		if !r.Path[c] {
			out[c] = h
		}
	}
	return out
}

// QuadSplit is a split decided for one quad, identified by its lowest corner.
type QuadSplit struct {
	Quad  grid.LocalCell
	Split Split
}

// RoadFlattener carves a path into a chunk's heights and triangulation.
type RoadFlattener struct {
	layout  grid.Layout
	heights Heights
}

// NewRoadFlattener returns a flattener sampling original heights from heights.
func NewRoadFlattener(l grid.Layout, heights Heights) *RoadFlattener {
	return &RoadFlattener{layout: l, heights: heights}
}

func (f *RoadFlattener) heightOf(chunk grid.ChunkCoord, c grid.LocalCell) float32 {
	if f.heights == nil {
		return 0
	}
	return f.heights.HeightAt(f.layout, f.layout.ToGlobal(chunk, c))
}

// Flatten levels the shoulders of every segment of path and writes the result
// into vertices, the chunk's core grid. Path cells keep their own height.
// Within one pass the first segment to claim a cell wins; cells outside the
// chunk are claimed the same way but only reported, never written.
func (f *RoadFlattener) Flatten(chunk grid.ChunkCoord, path []grid.LocalCell, vertices []mgl32.Vec3) Reservation {
	res := Reservation{
		Heights: make(map[grid.LocalCell]float32, len(path)*3),
		Path:    make(map[grid.LocalCell]bool, len(path)),
	}
	for _, c := range path {
		res.Heights[c] = f.heightOf(chunk, c)
		res.Path[c] = true
	}

	for i := 0; i+1 < len(path); i++ {
		now, next := path[i], path[i+1]
		step := now.To(next)
		hNow := f.heightOf(chunk, now)
		hNext := f.heightOf(chunk, next)

		// Proposals for this segment are collected apart and merged once.
		proposed := make(map[grid.LocalCell]float32, 4)
		propose := func(c grid.LocalCell, h float32) {
			if _, taken := res.Heights[c]; taken {
				return
			}
			if _, taken := proposed[c]; taken {
				return
			}
			proposed[c] = h
		}

		switch ClassifyStep(step) {
		case StepVertical:
			propose(now.Add(grid.Step{DX: 1}), hNow)
			propose(now.Add(grid.Step{DX: -1}), hNow)
		case StepHorizontal:
			propose(now.Add(grid.Step{DY: 1}), hNow)
			propose(now.Add(grid.Step{DY: -1}), hNow)
		case StepDiagonalA, StepDiagonalB:
			// The two neighbors of now facing away from next stay at now's
			// height; the two cells adjacent to both ends form the ramp.
			ramp := (hNow + hNext) / 2
			propose(now.Add(grid.Step{DX: -step.DX}), hNow)
			propose(now.Add(grid.Step{DY: -step.DY}), hNow)
			propose(now.Add(grid.Step{DX: step.DX}), ramp)
			propose(now.Add(grid.Step{DY: step.DY}), ramp)
		default:
			continue
		}

		for c, h := range proposed {
			res.Heights[c] = h
		}
		for c, h := range res.Heights {
			if f.layout.Contains(c) {
				vertices[f.layout.Index(c)][2] = h
			}
		}
	}

	// A single-cell path still pins its own height.
	for c, h := range res.Heights {
		if f.layout.Contains(c) {
			vertices[f.layout.Index(c)][2] = h
		}
	}
	return res
}

// DiagonalQuads returns the quads touching either end of a diagonal step:
// four around now and four around next. The crossed quad appears twice.
func DiagonalQuads(now, next grid.LocalCell) [8]grid.LocalCell {
	var quads [8]grid.LocalCell
	i := 0
	for _, c := range [2]grid.LocalCell{now, next} {
		for _, off := range [4]grid.Step{{DX: -1, DY: -1}, {DX: 0, DY: -1}, {DX: -1, DY: 0}, {DX: 0, DY: 0}} {
			quads[i] = c.Add(off)
			i++
		}
	}
	return quads
}

// AdjustTriangles re-splits the quads around every diagonal step so the
// triangle diagonal follows the road. triangles belongs to an n*n grid.
// Quads that are fully inside the grid are rewritten in place, later steps
// overwriting earlier ones; the returned slice lists every decided split,
// including quads outside the grid, for publication to neighbors.
func (f *RoadFlattener) AdjustTriangles(n int, path []grid.LocalCell, triangles []uint32) []QuadSplit {
	var decided []QuadSplit
	for i := 0; i+1 < len(path); i++ {
		now, next := path[i], path[i+1]

		var split Split
		switch ClassifyStep(now.To(next)) {
		case StepDiagonalA:
			split = SplitDefault
		case StepDiagonalB:
			split = SplitInverted
		default:
			continue
		}

		for _, q := range DiagonalQuads(now, next) {
			if QuadInGrid(n, q) {
				MakeSquare(triangles, q, n, split)
			}
			decided = append(decided, QuadSplit{Quad: q, Split: split})
		}
	}
	return decided
}
