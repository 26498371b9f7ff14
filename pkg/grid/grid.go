// Package grid provides the chunk and cell coordinate types shared by terrain and pathfinding.
package grid

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkCoord identifies a chunk in chunk space.
type ChunkCoord struct {
	X, Y int
}

// LocalCell identifies a vertex inside one chunk's grid, in [0, VerticesPerChunk).
type LocalCell struct {
	X, Y int
}

// GlobalCell identifies a vertex in world grid units.
type GlobalCell struct {
	X, Y int
}

// Step is an integer offset between two cells or chunks.
type Step struct {
	DX, DY int
}

// Neighbors8 lists the eight unit offsets of an 8-connected grid.
var Neighbors8 = [8]Step{
	{0, 1},   // S
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
}

// Add returns c moved by s.
func (c ChunkCoord) Add(s Step) ChunkCoord {
	return ChunkCoord{c.X + s.DX, c.Y + s.DY}
}

// To returns the offset from c to other.
func (c ChunkCoord) To(other ChunkCoord) Step {
	return Step{other.X - c.X, other.Y - c.Y}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns c moved by s.
func (c LocalCell) Add(s Step) LocalCell {
	return LocalCell{c.X + s.DX, c.Y + s.DY}
}

// To returns the offset from c to other.
func (c LocalCell) To(other LocalCell) Step {
	return Step{other.X - c.X, other.Y - c.Y}
}

func (c LocalCell) String() string {
	return fmt.Sprintf("[%d,%d]", c.X, c.Y)
}

// Add returns c moved by s.
func (c GlobalCell) Add(s Step) GlobalCell {
	return GlobalCell{c.X + s.DX, c.Y + s.DY}
}

// To returns the offset from c to other.
func (c GlobalCell) To(other GlobalCell) Step {
	return Step{other.X - c.X, other.Y - c.Y}
}

func (c GlobalCell) String() string {
	return fmt.Sprintf("<%d,%d>", c.X, c.Y)
}

// Sign clamps each component of s to -1, 0 or 1.
func (s Step) Sign() Step {
	return Step{sign(s.DX), sign(s.DY)}
}

// IsUnit reports whether s is one of the eight neighbor offsets.
func (s Step) IsUnit() bool {
	return s != (Step{}) && abs(s.DX) <= 1 && abs(s.DY) <= 1
}

// IsDiagonal reports whether both components of s are non-zero.
func (s Step) IsDiagonal() bool {
	return s.DX != 0 && s.DY != 0
}

// Layout describes how chunks tile the plane.
type Layout struct {
	Spacing          float32 // World units between adjacent vertices
	VerticesPerChunk int     // Vertices along one chunk edge
}

// Validate checks the layout invariants.
func (l Layout) Validate() error {
	if l.VerticesPerChunk < 2 {
		return fmt.Errorf("vertices per chunk must be at least 2, got %d", l.VerticesPerChunk)
	}
	if !(l.Spacing > 0) {
		return fmt.Errorf("vertex spacing must be positive, got %v", l.Spacing)
	}
	return nil
}

// Span is the number of quads along one chunk edge.
// Adjacent chunks share the vertices on their common edge.
func (l Layout) Span() int {
	return l.VerticesPerChunk - 1
}

// ChunkLength is the world length of one chunk edge.
func (l Layout) ChunkLength() float32 {
	return l.Spacing * float32(l.Span())
}

// Contains reports whether c lies inside the chunk grid.
func (l Layout) Contains(c LocalCell) bool {
	return c.X >= 0 && c.X < l.VerticesPerChunk && c.Y >= 0 && c.Y < l.VerticesPerChunk
}

// Index returns the row-major vertex index of c.
func (l Layout) Index(c LocalCell) int {
	return c.Y*l.VerticesPerChunk + c.X
}

// CellAt is the inverse of Index.
func (l Layout) CellAt(index int) LocalCell {
	return LocalCell{index % l.VerticesPerChunk, index / l.VerticesPerChunk}
}

// ToGlobal converts a chunk-local cell to world grid units.
func (l Layout) ToGlobal(chunk ChunkCoord, c LocalCell) GlobalCell {
	span := l.Span()
	return GlobalCell{chunk.X*span + c.X, chunk.Y*span + c.Y}
}

// ToLocal converts a global cell into chunk's local grid.
// ok is false when the cell is outside that chunk.
func (l Layout) ToLocal(chunk ChunkCoord, g GlobalCell) (c LocalCell, ok bool) {
	span := l.Span()
	c = LocalCell{g.X - chunk.X*span, g.Y - chunk.Y*span}
	return c, l.Contains(c)
}

// ChunkOf returns the chunk that owns g when boundaries are split half-open.
// Cells on a shared edge map to the chunk with the larger coordinate.
func (l Layout) ChunkOf(g GlobalCell) ChunkCoord {
	span := l.Span()
	return ChunkCoord{floorDiv(g.X, span), floorDiv(g.Y, span)}
}

// Owners lists every chunk whose grid contains g, in row-major order.
func (l Layout) Owners(g GlobalCell) []ChunkCoord {
	base := l.ChunkOf(g)
	owners := make([]ChunkCoord, 0, 4)
	for dy := -1; dy <= 0; dy++ {
		for dx := -1; dx <= 0; dx++ {
			chunk := base.Add(Step{dx, dy})
			if _, ok := l.ToLocal(chunk, g); ok {
				owners = append(owners, chunk)
			}
		}
	}
	return owners
}

// ChunksNear lists every chunk in which g maps to a local cell with both
// components in [lo, hi]. Use lo=-1, hi=V to include halo rings.
func (l Layout) ChunksNear(g GlobalCell, lo, hi int) []ChunkCoord {
	base := l.ChunkOf(g)
	var chunks []ChunkCoord
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			chunk := base.Add(Step{dx, dy})
			c, _ := l.ToLocal(chunk, g)
			if c.X >= lo && c.X <= hi && c.Y >= lo && c.Y <= hi {
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}

// ChunkAt returns the chunk containing a world position.
func (l Layout) ChunkAt(pos mgl32.Vec2) ChunkCoord {
	length := float64(l.ChunkLength())
	return ChunkCoord{
		int(math.Floor(float64(pos.X()) / length)),
		int(math.Floor(float64(pos.Y()) / length)),
	}
}

// Origin returns the world position of a chunk's first vertex.
func (l Layout) Origin(chunk ChunkCoord) mgl32.Vec2 {
	length := l.ChunkLength()
	return mgl32.Vec2{float32(chunk.X) * length, float32(chunk.Y) * length}
}

// World returns the world position of a global cell.
func (l Layout) World(g GlobalCell) mgl32.Vec2 {
	return mgl32.Vec2{float32(g.X) * l.Spacing, float32(g.Y) * l.Spacing}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
