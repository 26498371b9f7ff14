package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// Split selects which diagonal cuts a grid quad into two triangles.
type Split uint8

const (
	// SplitDefault cuts along (x, y+1)-(x+1, y), i.e. parallel to a (1,-1) step.
	SplitDefault Split = iota
	// SplitInverted cuts along (x, y)-(x+1, y+1), i.e. parallel to a (1,1) step.
	SplitInverted
)

func (s Split) String() string {
	if s == SplitInverted {
		return "inverted"
	}
	return "default"
}

// BuildGrid returns the vertices for local rows and columns in [start, end).
// [0, V) yields the core grid and [-1, V+1) the halo grid. Positions are
// chunk-local; heights are sampled at the matching global cell.
func BuildGrid(l grid.Layout, heights Heights, chunk grid.ChunkCoord, start, end int) []mgl32.Vec3 {
	n := end - start
	if n <= 0 {
		return nil
	}

	vertices := make([]mgl32.Vec3, 0, n*n)
	for y := start; y < end; y++ {
		for x := start; x < end; x++ {
			v := mgl32.Vec3{float32(x) * l.Spacing, float32(y) * l.Spacing, 0}
			if heights != nil {
				v[2] = heights.HeightAt(l, l.ToGlobal(chunk, grid.LocalCell{X: x, Y: y}))
			}
			vertices = append(vertices, v)
		}
	}
	return vertices
}

// BuildUVs returns per-vertex texture coordinates for local rows and columns in
// [start, end). UVs derive from the global row and column, so a vertex shared
// by two chunks gets the same UV in both.
func BuildUVs(l grid.Layout, chunk grid.ChunkCoord, start, end int, uvScale float32) []mgl32.Vec2 {
	n := end - start
	if n <= 0 {
		return nil
	}

	uvs := make([]mgl32.Vec2, 0, n*n)
	for y := start; y < end; y++ {
		for x := start; x < end; x++ {
			g := l.ToGlobal(chunk, grid.LocalCell{X: x, Y: y})
			uvs = append(uvs, mgl32.Vec2{float32(g.X) * uvScale, float32(g.Y) * uvScale})
		}
	}
	return uvs
}

// BuildTriangleIndices returns 6*(n-1)^2 indices for an n*n vertex grid,
// two triangles per quad in the default split.
func BuildTriangleIndices(n int) []uint32 {
	if n < 2 {
		return nil
	}

	triangles := make([]uint32, (n-1)*(n-1)*6)
	for y := 0; y < n-1; y++ {
		for x := 0; x < n-1; x++ {
			MakeSquare(triangles, grid.LocalCell{X: x, Y: y}, n, SplitDefault)
		}
	}
	return triangles
}

// QuadOffset returns the position of a quad's six indices in a triangle array
// built for an n*n vertex grid. quad is the quad's lowest corner.
func QuadOffset(n int, quad grid.LocalCell) int {
	return (quad.Y*(n-1) + quad.X) * 6
}

// QuadInGrid reports whether quad has all four corners inside an n*n grid.
func QuadInGrid(n int, quad grid.LocalCell) bool {
	return quad.X >= 0 && quad.Y >= 0 && quad.X < n-1 && quad.Y < n-1
}

// MakeSquare overwrites the six indices of one quad with the given split.
// Both splits keep the same winding.
func MakeSquare(triangles []uint32, quad grid.LocalCell, n int, split Split) {
	i := QuadOffset(n, quad)
	v := uint32(quad.Y*n + quad.X)
	row := uint32(n)

	switch split {
	case SplitInverted:
		triangles[i+0] = v
		triangles[i+1] = v + row + 1
		triangles[i+2] = v + 1

		triangles[i+3] = v
		triangles[i+4] = v + row
		triangles[i+5] = v + row + 1
	default:
		triangles[i+0] = v
		triangles[i+1] = v + row
		triangles[i+2] = v + 1

		triangles[i+3] = v + row
		triangles[i+4] = v + row + 1
		triangles[i+5] = v + 1
	}
}

// SplitOf reads back the split of one quad.
func SplitOf(triangles []uint32, quad grid.LocalCell, n int) Split {
	i := QuadOffset(n, quad)
	v := uint32(quad.Y*n + quad.X)
	if triangles[i+1] == v+uint32(n)+1 {
		return SplitInverted
	}
	return SplitDefault
}
