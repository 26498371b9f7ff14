// Package terrain builds chunk meshes from a procedural height field and carves roads into them.
package terrain

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// ErrMalformedStream is returned when a built stream would violate the mesh sink contract.
var ErrMalformedStream = errors.New("malformed mesh stream")

// NoiseLayer is one octave of the height field.
type NoiseLayer struct {
	Frequency float32 `yaml:"frequency" json:"frequency"` // World units per noise period
	Amplitude float32 `yaml:"amplitude" json:"amplitude"` // Peak contribution in world units
	Offset    float32 `yaml:"offset" json:"offset"`       // Phase offset, acts as a per-layer seed
}

// Heights samples terrain elevation at a global cell.
type Heights interface {
	HeightAt(l grid.Layout, g grid.GlobalCell) float32
}

// MeshStream holds one chunk's mesh data ready for the mesh sink.
// Index i across Vertices, Normals, Tangents and UVs refers to the same vertex.
type MeshStream struct {
	Chunk     grid.ChunkCoord
	Origin    mgl32.Vec2 // World position of vertex 0; vertices are chunk-local
	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec3
	UVs       []mgl32.Vec2
	Triangles []uint32 // Index triples, clockwise seen from +Z
}

// TriangleCount returns the number of triangles in the stream.
func (m *MeshStream) TriangleCount() int {
	return len(m.Triangles) / 3
}

// Validate checks array lengths and index ranges.
func (m *MeshStream) Validate() error {
	n := len(m.Vertices)
	if n == 0 {
		return fmt.Errorf("%w: no vertices", ErrMalformedStream)
	}
	if len(m.Normals) != n || len(m.Tangents) != n || len(m.UVs) != n {
		return fmt.Errorf("%w: %d vertices, %d normals, %d tangents, %d uvs",
			ErrMalformedStream, n, len(m.Normals), len(m.Tangents), len(m.UVs))
	}
	if len(m.Triangles)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrMalformedStream, len(m.Triangles))
	}
	for i, idx := range m.Triangles {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at %d out of range", ErrMalformedStream, idx, i)
		}
	}
	for t := 0; t < len(m.Triangles); t += 3 {
		a, b, c := m.Triangles[t], m.Triangles[t+1], m.Triangles[t+2]
		if a == b || b == c || a == c {
			return fmt.Errorf("%w: degenerate triangle %d", ErrMalformedStream, t/3)
		}
	}
	return nil
}
