package streaming

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

var testLayout = grid.Layout{Spacing: 10, VerticesPerChunk: 5} // 40 units per chunk

// countingBuilder records every build and can hold each one until released.
type countingBuilder struct {
	inner   *terrain.ChunkBuilder
	release chan struct{} // nil: never block

	mu     sync.Mutex
	builds []grid.ChunkCoord
}

func newCountingBuilder(heights terrain.Heights, gated bool) *countingBuilder {
	b := &countingBuilder{
		inner: terrain.NewChunkBuilder(terrain.BuilderConfig{Layout: testLayout, TextureSize: 40}, heights, nil, nil),
	}
	if gated {
		b.release = make(chan struct{})
	}
	return b
}

func (b *countingBuilder) Layout() grid.Layout { return b.inner.Layout() }

func (b *countingBuilder) Build(c grid.ChunkCoord, path []grid.LocalCell) (*terrain.MeshStream, []grid.ChunkCoord, error) {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	b.builds = append(b.builds, c)
	b.mu.Unlock()
	return b.inner.Build(c, path)
}

func (b *countingBuilder) count(c grid.ChunkCoord) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, x := range b.builds {
		if x == c {
			n++
		}
	}
	return n
}

func (b *countingBuilder) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.builds)
}

type slope struct{}

func (slope) HeightAt(_ grid.Layout, g grid.GlobalCell) float32 {
	return float32(g.X)*3 - float32(g.Y)
}

func TestStreamer_Sync_Tick(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	b := newCountingBuilder(slope{}, false)
	s := New(Config{Radius: 1}, b, nil, sink, nil)
	defer s.Close()

	if err := s.Tick(ctx, mgl32.Vec2{20, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := len(s.Resident()); got != 9 {
		t.Fatalf("resident = %d, want 9", got)
	}
	if got := len(sink.Chunks()); got != 9 {
		t.Errorf("sink holds %d chunks, want 9", got)
	}

	// Move one chunk east: column -1 leaves, column 2 arrives.
	if err := s.Tick(ctx, mgl32.Vec2{60, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Center() != (grid.ChunkCoord{X: 1, Y: 0}) {
		t.Errorf("center = %v", s.Center())
	}
	for y := -1; y <= 1; y++ {
		if st := s.State(grid.ChunkCoord{X: -1, Y: y}); st != Unresident {
			t.Errorf("chunk (-1,%d) state = %v, want unresident", y, st)
		}
		if st := s.State(grid.ChunkCoord{X: 2, Y: y}); st != Resident {
			t.Errorf("chunk (2,%d) state = %v, want resident", y, st)
		}
	}
	if sink.Removes != 3 || sink.Adds != 12 {
		t.Errorf("adds=%d removes=%d, want 12 and 3", sink.Adds, sink.Removes)
	}
	if b.total() != 12 {
		t.Errorf("builds = %d, want 12", b.total())
	}
}

func TestStreamer_Sync_RebuildsAffectedNeighbor(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	b := newCountingBuilder(slope{}, false)

	// The road in (1,0) runs next to its west edge, so its shoulders land on
	// the column shared with (0,0), which is built first.
	roads := map[grid.ChunkCoord][]grid.LocalCell{
		{X: 1, Y: 0}: {{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}},
	}
	s := New(Config{Radius: 1}, b, roads, sink, nil)
	defer s.Close()

	if err := s.Tick(ctx, mgl32.Vec2{20, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if n := b.count(grid.ChunkCoord{}); n != 2 {
		t.Errorf("chunk (0,0) built %d times, want 2", n)
	}

	left, _ := sink.Mesh(grid.ChunkCoord{X: 0, Y: 0})
	right, _ := sink.Mesh(grid.ChunkCoord{X: 1, Y: 0})
	v := testLayout.VerticesPerChunk
	for y := 0; y < v; y++ {
		if a, c := left.Vertices[y*v+v-1].Z(), right.Vertices[y*v].Z(); a != c {
			t.Errorf("row %d: seam heights %v vs %v", y, a, c)
		}
	}

	// A second tick in place is quiet.
	before := b.total()
	if err := s.Tick(ctx, mgl32.Vec2{20, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if b.total() != before {
		t.Errorf("idle tick built %d chunks", b.total()-before)
	}
}

func TestStreamer_Async_SingleOutstanding(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	b := newCountingBuilder(nil, true)
	s := New(Config{Radius: 1, Async: true}, b, nil, sink, nil)
	defer s.Close()

	viewer := mgl32.Vec2{20, 20}
	if err := s.Tick(ctx, viewer); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !s.Busy() || s.State(grid.ChunkCoord{}) != Building {
		t.Fatalf("busy=%v state=%v, want the center chunk building", s.Busy(), s.State(grid.ChunkCoord{}))
	}

	// The worker is held: further ticks must not start more work.
	for i := 0; i < 3; i++ {
		if err := s.Tick(ctx, viewer); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	building := 0
	for _, c := range ChunkOrder(1) {
		if s.State(c) == Building {
			building++
		}
	}
	if building != 1 {
		t.Errorf("%d chunks building, want 1", building)
	}

	b.release <- struct{}{}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.State(grid.ChunkCoord{}) != Resident {
		t.Errorf("center state = %v, want resident", s.State(grid.ChunkCoord{}))
	}

	// Drain the remaining chunks one unit at a time, in spiral order.
	for i := 0; i < 20; i++ {
		if err := s.Tick(ctx, viewer); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if !s.Busy() {
			break
		}
		b.release <- struct{}{}
		if err := s.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}
	if got := len(s.Resident()); got != 9 {
		t.Errorf("resident = %d, want 9", got)
	}
	order := ChunkOrder(1)
	for i, c := range order {
		b.mu.Lock()
		got := b.builds[i]
		b.mu.Unlock()
		if got != c {
			t.Errorf("build %d = %v, want %v", i, got, c)
		}
	}
}

func TestStreamer_Async_DiscardsStaleBuild(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	b := newCountingBuilder(nil, true)
	s := New(Config{Radius: 0, Async: true}, b, nil, sink, nil)
	defer s.Close()

	if err := s.Tick(ctx, mgl32.Vec2{20, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	// Jump far away while (0,0) is still building.
	far := mgl32.Vec2{400, 400}
	if err := s.Tick(ctx, far); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	b.release <- struct{}{}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if st := s.State(grid.ChunkCoord{}); st != Unresident {
		t.Errorf("stale chunk state = %v, want unresident", st)
	}
	if _, ok := sink.Mesh(grid.ChunkCoord{}); ok {
		t.Error("stale build reached the sink")
	}

	if err := s.Tick(ctx, far); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	b.release <- struct{}{}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if st := s.State(grid.ChunkCoord{X: 10, Y: 10}); st != Resident {
		t.Errorf("new center state = %v, want resident", st)
	}
}

func TestStreamer_Async_EvictsThroughMailbox(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	b := newCountingBuilder(nil, false)
	s := New(Config{Radius: 0, Async: true}, b, nil, sink, nil)
	defer s.Close()

	if err := s.Tick(ctx, mgl32.Vec2{20, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// One unit carries both the new center and the eviction of the old one.
	if err := s.Tick(ctx, mgl32.Vec2{60, 20}); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if st := s.State(grid.ChunkCoord{}); st != PendingRemoval {
		t.Errorf("old center state = %v, want pending-removal", st)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := sink.Chunks(); len(got) != 1 || got[0] != (grid.ChunkCoord{X: 1, Y: 0}) {
		t.Errorf("sink chunks = %v, want [(1,0)]", got)
	}
}

func TestStreamer_Close(t *testing.T) {
	s := New(Config{Radius: 1, Async: true}, newCountingBuilder(nil, false), nil, NewMemorySink(), nil)
	s.Close()
	s.Close()

	if err := s.Tick(context.Background(), mgl32.Vec2{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Tick after Close: err = %v, want ErrClosed", err)
	}
	if err := s.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close: err = %v, want ErrClosed", err)
	}
}

func TestStreamer_Tick_ContextCanceled(t *testing.T) {
	s := New(Config{Radius: 1}, newCountingBuilder(nil, false), nil, NewMemorySink(), nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Tick(ctx, mgl32.Vec2{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChunkState_String(t *testing.T) {
	for st, want := range map[ChunkState]string{
		Unresident:     "unresident",
		Building:       "building",
		Resident:       "resident",
		PendingRemoval: "pending-removal",
	} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
