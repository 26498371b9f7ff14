package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

func TestEditLedger_PublishHeights(t *testing.T) {
	l := grid.Layout{Spacing: 1, VerticesPerChunk: 5}
	e := NewEditLedger()
	src := grid.ChunkCoord{X: 0, Y: 0}
	edge := grid.GlobalCell{X: 4, Y: 2}

	got := e.Publish(l, src, map[grid.GlobalCell]float32{edge: 7}, nil)
	if len(got) != 1 || got[0] != (grid.ChunkCoord{X: 1, Y: 0}) {
		t.Fatalf("affected = %v, want [(1,0)]", got)
	}

	if got := e.Publish(l, src, map[grid.GlobalCell]float32{edge: 7}, nil); len(got) != 0 {
		t.Errorf("republishing the same value affected %v", got)
	}

	// Another chunk cannot take over an owned cell.
	if got := e.Publish(l, grid.ChunkCoord{X: 1, Y: 0}, map[grid.GlobalCell]float32{edge: 9}, nil); len(got) != 0 {
		t.Errorf("foreign edit affected %v", got)
	}
	if h, ok := e.HeightAt(edge); !ok || h != 7 {
		t.Errorf("HeightAt = %v, %v, want 7, true", h, ok)
	}

	// The owner may change its own edit.
	if got := e.Publish(l, src, map[grid.GlobalCell]float32{edge: 8}, nil); len(got) != 1 {
		t.Errorf("owner update affected %v, want one chunk", got)
	}
	if e.Len() != 1 {
		t.Errorf("Len = %d, want 1", e.Len())
	}
}

func TestEditLedger_PublishSplits(t *testing.T) {
	l := grid.Layout{Spacing: 1, VerticesPerChunk: 5}
	e := NewEditLedger()

	corner := grid.GlobalCell{X: 3, Y: 3}
	got := e.Publish(l, grid.ChunkCoord{}, nil, map[grid.GlobalCell]Split{corner: SplitInverted})
	want := []grid.ChunkCoord{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	if len(got) != len(want) {
		t.Fatalf("affected = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("affected[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if s, ok := e.SplitAt(corner); !ok || s != SplitInverted {
		t.Errorf("SplitAt = %v, %v", s, ok)
	}
	if _, ok := e.SplitAt(grid.GlobalCell{}); ok {
		t.Error("unexpected split at origin")
	}
}

func TestEditLedger_Apply(t *testing.T) {
	l := grid.Layout{Spacing: 1, VerticesPerChunk: 4}
	e := NewEditLedger()
	e.Publish(l, grid.ChunkCoord{}, map[grid.GlobalCell]float32{{X: 3, Y: 1}: 5}, map[grid.GlobalCell]Split{{X: 2, Y: 0}: SplitInverted})

	// Chunk (1,0) sees the edits at local column 0 and in its halo ring.
	chunk := grid.ChunkCoord{X: 1, Y: 0}
	verts := make([]mgl32.Vec3, 16)
	e.applyHeights(l, chunk, 0, 4, verts)
	if verts[l.Index(grid.LocalCell{X: 0, Y: 1})][2] != 5 {
		t.Errorf("shared vertex not updated: %v", verts[4])
	}

	tris := BuildTriangleIndices(4)
	e.applySplits(l, chunk, tris)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if SplitOf(tris, grid.LocalCell{X: x, Y: y}, 4) != SplitDefault {
				t.Errorf("quad (%d,%d) of chunk (1,0) changed", x, y)
			}
		}
	}

	own := BuildTriangleIndices(4)
	e.applySplits(l, grid.ChunkCoord{}, own)
	if SplitOf(own, grid.LocalCell{X: 2, Y: 0}, 4) != SplitInverted {
		t.Error("recorded split not applied to its chunk")
	}
}
