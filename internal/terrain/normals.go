package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SolveSeamNormals computes per-vertex normals and tangents for a core grid of
// v*v vertices from its halo grid of (v+2)*(v+2) vertices. Accumulating over
// the halo triangles lets boundary vertices see the neighbor chunk's geometry,
// so both chunks produce the same normal for a shared vertex. Results for the
// halo's outer ring are discarded.
func SolveSeamNormals(v int, halo []mgl32.Vec3, haloUVs []mgl32.Vec2, haloTris []uint32) (normals, tangents []mgl32.Vec3) {
	rowLength := v + 2

	haloNormals, haloTangents := accumulateTangentFrames(halo, haloUVs, haloTris)

	normals = make([]mgl32.Vec3, v*v)
	tangents = make([]mgl32.Vec3, v*v)
	for idx := range halo {
		row := idx / rowLength
		col := idx % rowLength
		if row <= 0 || row >= rowLength-1 || col <= 0 || col >= rowLength-1 {
			continue
		}

		core := (col - 1) + (row-1)*v
		normals[core] = haloNormals[idx]
		tangents[core] = haloTangents[idx]
	}
	return normals, tangents
}

// accumulateTangentFrames sums area-weighted face normals and UV tangents per
// vertex, then normalizes and orthogonalizes them.
func accumulateTangentFrames(vertices []mgl32.Vec3, uvs []mgl32.Vec2, triangles []uint32) (normals, tangents []mgl32.Vec3) {
	normals = make([]mgl32.Vec3, len(vertices))
	tangents = make([]mgl32.Vec3, len(vertices))

	for t := 0; t+2 < len(triangles); t += 3 {
		i0, i1, i2 := triangles[t], triangles[t+1], triangles[t+2]
		p0, p1, p2 := vertices[i0], vertices[i1], vertices[i2]

		e1 := p1.Sub(p0)
		e2 := p2.Sub(p0)
		face := FaceNormal(p0, p1, p2)

		var tangent mgl32.Vec3
		if uvs != nil {
			d1 := uvs[i1].Sub(uvs[i0])
			d2 := uvs[i2].Sub(uvs[i0])
			r := d1.X()*d2.Y() - d2.X()*d1.Y()
			if r > 1e-12 || r < -1e-12 {
				tangent = e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(1 / r)
			}
		}

		for _, i := range [3]uint32{i0, i1, i2} {
			normals[i] = normals[i].Add(face)
			tangents[i] = tangents[i].Add(tangent)
		}
	}

	for i := range normals {
		n := normals[i]
		if n.Len() < 1e-8 {
			n = mgl32.Vec3{0, 0, 1}
		}
		n = n.Normalize()
		normals[i] = n
		tangents[i] = orthogonalTangent(n, tangents[i])
	}
	return normals, tangents
}

// FaceNormal returns the unnormalized normal of a triangle in the mesh winding.
// Its length is twice the triangle area.
func FaceNormal(p0, p1, p2 mgl32.Vec3) mgl32.Vec3 {
	return p2.Sub(p0).Cross(p1.Sub(p0))
}

// orthogonalTangent removes the normal component from t (Gram-Schmidt).
func orthogonalTangent(n, t mgl32.Vec3) mgl32.Vec3 {
	t = t.Sub(n.Mul(n.Dot(t)))
	if t.Len() > 1e-8 {
		return t.Normalize()
	}

	// No usable UV gradient: fall back to the grid X axis.
	axis := mgl32.Vec3{1, 0, 0}
	if n.Dot(axis) > 0.99 || n.Dot(axis) < -0.99 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	return axis.Sub(n.Mul(n.Dot(axis))).Normalize()
}
