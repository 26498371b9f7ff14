package grid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLayout_ToGlobalToLocal(t *testing.T) {
	l := Layout{Spacing: 10, VerticesPerChunk: 5}

	chunk := ChunkCoord{-2, 3}
	local := LocalCell{1, 4}
	g := l.ToGlobal(chunk, local)
	if g != (GlobalCell{-7, 16}) {
		t.Fatalf("ToGlobal = %v, want <-7,16>", g)
	}

	back, ok := l.ToLocal(chunk, g)
	if !ok || back != local {
		t.Errorf("ToLocal = %v, %v, want %v, true", back, ok, local)
	}

	if _, ok := l.ToLocal(ChunkCoord{0, 0}, g); ok {
		t.Error("expected cell outside chunk (0,0)")
	}
}

func TestLayout_SharedBoundary(t *testing.T) {
	l := Layout{Spacing: 1, VerticesPerChunk: 5}

	// Right edge of chunk (0,0) is the left edge of chunk (1,0).
	a := l.ToGlobal(ChunkCoord{0, 0}, LocalCell{4, 2})
	b := l.ToGlobal(ChunkCoord{1, 0}, LocalCell{0, 2})
	if a != b {
		t.Errorf("boundary cells differ: %v vs %v", a, b)
	}
}

func TestLayout_Owners(t *testing.T) {
	l := Layout{Spacing: 1, VerticesPerChunk: 5}

	corner := GlobalCell{4, 4}
	owners := l.Owners(corner)
	if len(owners) != 4 {
		t.Fatalf("corner owners = %v, want 4 chunks", owners)
	}

	inner := GlobalCell{2, 2}
	if got := l.Owners(inner); len(got) != 1 || got[0] != (ChunkCoord{0, 0}) {
		t.Errorf("inner owners = %v, want [(0,0)]", got)
	}

	edge := GlobalCell{-4, 1}
	if got := l.Owners(edge); len(got) != 2 {
		t.Errorf("edge owners = %v, want 2 chunks", got)
	}
}

func TestLayout_ChunksNear(t *testing.T) {
	l := Layout{Spacing: 1, VerticesPerChunk: 5}

	// Column 3 is interior to chunk 0 but sits in the halo ring of chunk 1.
	got := l.ChunksNear(GlobalCell{3, 2}, -1, l.VerticesPerChunk)
	want := map[ChunkCoord]bool{{0, 0}: true, {1, 0}: true}
	if len(got) != len(want) {
		t.Fatalf("ChunksNear = %v, want %v", got, want)
	}
	for _, c := range got {
		if !want[c] {
			t.Errorf("unexpected chunk %v", c)
		}
	}

	if got := l.ChunksNear(GlobalCell{2, 2}, 0, l.Span()); len(got) != 1 {
		t.Errorf("interior cell near = %v, want one chunk", got)
	}
}

func TestLayout_ChunkOf(t *testing.T) {
	l := Layout{Spacing: 1, VerticesPerChunk: 5}

	tests := []struct {
		cell GlobalCell
		want ChunkCoord
	}{
		{GlobalCell{0, 0}, ChunkCoord{0, 0}},
		{GlobalCell{3, 3}, ChunkCoord{0, 0}},
		{GlobalCell{4, 0}, ChunkCoord{1, 0}},
		{GlobalCell{-1, 0}, ChunkCoord{-1, 0}},
		{GlobalCell{-4, -5}, ChunkCoord{-1, -2}},
	}
	for _, tt := range tests {
		if got := l.ChunkOf(tt.cell); got != tt.want {
			t.Errorf("ChunkOf(%v) = %v, want %v", tt.cell, got, tt.want)
		}
	}
}

func TestLayout_ChunkAt(t *testing.T) {
	l := Layout{Spacing: 10, VerticesPerChunk: 5} // chunk length 40

	if got := l.ChunkAt(mgl32.Vec2{39.9, 0}); got != (ChunkCoord{0, 0}) {
		t.Errorf("ChunkAt(39.9,0) = %v", got)
	}
	if got := l.ChunkAt(mgl32.Vec2{40, -0.1}); got != (ChunkCoord{1, -1}) {
		t.Errorf("ChunkAt(40,-0.1) = %v", got)
	}
}

func TestLayout_Validate(t *testing.T) {
	if err := (Layout{Spacing: 1, VerticesPerChunk: 1}).Validate(); err == nil {
		t.Error("expected error for one vertex per chunk")
	}
	if err := (Layout{Spacing: 0, VerticesPerChunk: 4}).Validate(); err == nil {
		t.Error("expected error for zero spacing")
	}
	if err := (Layout{Spacing: 100, VerticesPerChunk: 2}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStep_Classify(t *testing.T) {
	if !(Step{1, -1}).IsDiagonal() || (Step{0, 1}).IsDiagonal() {
		t.Error("IsDiagonal misclassified")
	}
	if (Step{}).IsUnit() || (Step{2, 0}).IsUnit() || !(Step{-1, 1}).IsUnit() {
		t.Error("IsUnit misclassified")
	}
	if got := (Step{-7, 3}).Sign(); got != (Step{-1, 1}) {
		t.Errorf("Sign = %v", got)
	}
}
