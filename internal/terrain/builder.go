package terrain

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// BuilderConfig holds the geometry settings shared by every chunk build.
type BuilderConfig struct {
	Layout      grid.Layout
	TextureSize float32 // World units covered by one texture repeat
}

// UVScale returns the UV step between adjacent vertices.
func (c BuilderConfig) UVScale() float32 {
	if c.TextureSize <= 0 {
		return 1
	}
	return c.Layout.Spacing / c.TextureSize
}

// ChunkBuilder turns a chunk coordinate and an optional road path into a mesh
// stream. A nil or empty path builds plain terrain.
//
// Build may run on the streaming worker while the consumer reads the ledger;
// the height field is read-only and the ledger is locked.
type ChunkBuilder struct {
	cfg     BuilderConfig
	heights Heights
	ledger  *EditLedger
	roads   *RoadFlattener
	log     *zap.Logger
}

// NewChunkBuilder creates a builder. heights may be nil for flat terrain and
// ledger may be nil when no cross-chunk edits are tracked.
func NewChunkBuilder(cfg BuilderConfig, heights Heights, ledger *EditLedger, log *zap.Logger) *ChunkBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	if ledger == nil {
		ledger = NewEditLedger()
	}
	return &ChunkBuilder{
		cfg:     cfg,
		heights: heights,
		ledger:  ledger,
		roads:   NewRoadFlattener(cfg.Layout, heights),
		log:     log,
	}
}

// Layout returns the chunk layout the builder was created with.
func (b *ChunkBuilder) Layout() grid.Layout {
	return b.cfg.Layout
}

// Ledger returns the edit ledger shared by all builds.
func (b *ChunkBuilder) Ledger() *EditLedger {
	return b.ledger
}

// Build generates the mesh for chunk, carving path into it when non-empty.
// It returns the other chunks whose geometry changed because of edits this
// build published; resident copies of those should be rebuilt.
func (b *ChunkBuilder) Build(chunk grid.ChunkCoord, path []grid.LocalCell) (*MeshStream, []grid.ChunkCoord, error) {
	l := b.cfg.Layout
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}
	v := l.VerticesPerChunk
	uvScale := b.cfg.UVScale()

	vertices := BuildGrid(l, b.heights, chunk, 0, v)
	uvs := BuildUVs(l, chunk, 0, v, uvScale)
	triangles := BuildTriangleIndices(v)

	b.ledger.applyHeights(l, chunk, 0, v, vertices)
	b.ledger.applySplits(l, chunk, triangles)

	var affected []grid.ChunkCoord
	if len(path) > 0 {
		res := b.roads.Flatten(chunk, path, vertices)
		quads := b.roads.AdjustTriangles(v, path, triangles)

		heights := make(map[grid.GlobalCell]float32, len(res.Heights))
		for c, h := range res.Heights {
			heights[l.ToGlobal(chunk, c)] = h
		}
		splits := make(map[grid.GlobalCell]Split, len(quads))
		for _, q := range quads {
			splits[l.ToGlobal(chunk, q.Quad)] = q.Split
		}
		affected = b.ledger.Publish(l, chunk, heights, splits)

		// Cells owned by a neighbor keep the neighbor's value so shared
		// vertices agree whichever chunk was carved first.
		b.ledger.applyHeights(l, chunk, 0, v, vertices)
		b.ledger.applySplits(l, chunk, triangles)

		b.log.Debug("road carved",
			zap.Stringer("chunk", chunk),
			zap.Int("path", len(path)),
			zap.Int("reserved", len(res.Heights)),
			zap.Int("quads", len(quads)),
			zap.Int("affected", len(affected)))
	}

	halo := b.buildHalo(chunk, vertices)
	haloUVs := BuildUVs(l, chunk, -1, v+1, uvScale)
	haloTris := b.haloTriangles(chunk, triangles)
	normals, tangents := SolveSeamNormals(v, halo, haloUVs, haloTris)

	stream := &MeshStream{
		Chunk:     chunk,
		Origin:    l.Origin(chunk),
		Vertices:  vertices,
		Normals:   normals,
		Tangents:  tangents,
		UVs:       uvs,
		Triangles: triangles,
	}
	if err := stream.Validate(); err != nil {
		b.log.Error("built stream rejected", zap.Stringer("chunk", chunk), zap.Error(err))
		return nil, affected, fmt.Errorf("build chunk %v: %w", chunk, err)
	}
	return stream, affected, nil
}

// buildHalo returns the (v+2)^2 halo grid. The inner v*v block repeats the
// final core vertices; the outer ring uses field heights overridden by ledger
// edits, which is what the neighbor chunk holds for those cells.
func (b *ChunkBuilder) buildHalo(chunk grid.ChunkCoord, core []mgl32.Vec3) []mgl32.Vec3 {
	l := b.cfg.Layout
	v := l.VerticesPerChunk
	halo := BuildGrid(l, b.heights, chunk, -1, v+1)
	b.ledger.applyHeights(l, chunk, -1, v+1, halo)

	row := v + 2
	for y := 0; y < v; y++ {
		copy(halo[(y+1)*row+1:(y+1)*row+1+v], core[y*v:(y+1)*v])
	}
	return halo
}

// haloTriangles triangulates the halo grid so that every quad matches the
// split the owning chunk uses: core quads copy the final core split and ring
// quads take the ledger split, if any.
func (b *ChunkBuilder) haloTriangles(chunk grid.ChunkCoord, core []uint32) []uint32 {
	l := b.cfg.Layout
	v := l.VerticesPerChunk
	n := v + 2
	tris := BuildTriangleIndices(n)

	for hy := 0; hy < n-1; hy++ {
		for hx := 0; hx < n-1; hx++ {
			q := grid.LocalCell{X: hx - 1, Y: hy - 1}
			split := SplitDefault
			if QuadInGrid(v, q) {
				split = SplitOf(core, q, v)
			} else if s, ok := b.ledger.SplitAt(l.ToGlobal(chunk, q)); ok {
				split = s
			}
			if split != SplitDefault {
				MakeSquare(tris, grid.LocalCell{X: hx, Y: hy}, n, split)
			}
		}
	}
	return tris
}
