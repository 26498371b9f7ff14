package terrain

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

type heightEdit struct {
	height float32
	owner  grid.ChunkCoord
}

type splitEdit struct {
	split Split
	owner grid.ChunkCoord
}

// EditLedger records road edits in global cells so that every chunk sharing or
// bordering an edited cell can pick the edit up when it is built. The first
// chunk to edit a cell owns it; later edits from other chunks are ignored.
// It is safe for concurrent use by the streamer's worker and consumer.
type EditLedger struct {
	mu      sync.RWMutex
	heights map[grid.GlobalCell]heightEdit
	splits  map[grid.GlobalCell]splitEdit // Keyed by the quad's lowest corner
}

// NewEditLedger returns an empty ledger.
func NewEditLedger() *EditLedger {
	return &EditLedger{
		heights: make(map[grid.GlobalCell]heightEdit),
		splits:  make(map[grid.GlobalCell]splitEdit),
	}
}

// HeightAt returns the recorded height for g, if any.
func (e *EditLedger) HeightAt(g grid.GlobalCell) (float32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.heights[g]
	return h.height, ok
}

// SplitAt returns the recorded split for the quad whose lowest corner is q, if any.
func (e *EditLedger) SplitAt(q grid.GlobalCell) (Split, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.splits[q]
	return s.split, ok
}

// Len returns the number of recorded height and split edits.
func (e *EditLedger) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.heights) + len(e.splits)
}

// Publish merges a batch of edits made while building source and returns the
// other chunks whose core or halo grid saw a changed value, sorted. Edits that
// repeat a recorded value, or touch a cell owned by another chunk, change
// nothing, so rebuilding a chunk is quiet.
func (e *EditLedger) Publish(l grid.Layout, source grid.ChunkCoord, heights map[grid.GlobalCell]float32, splits map[grid.GlobalCell]Split) []grid.ChunkCoord {
	affected := make(map[grid.ChunkCoord]struct{})

	e.mu.Lock()
	for g, h := range heights {
		if old, ok := e.heights[g]; ok && (old.owner != source || old.height == h) {
			continue
		}
		e.heights[g] = heightEdit{height: h, owner: source}
		for _, c := range l.ChunksNear(g, -1, l.VerticesPerChunk) {
			affected[c] = struct{}{}
		}
	}
	for q, s := range splits {
		if old, ok := e.splits[q]; ok && (old.owner != source || old.split == s) {
			continue
		}
		e.splits[q] = splitEdit{split: s, owner: source}
		for _, c := range l.ChunksNear(q, -1, l.Span()) {
			affected[c] = struct{}{}
		}
	}
	e.mu.Unlock()

	delete(affected, source)
	out := make([]grid.ChunkCoord, 0, len(affected))
	for c := range affected {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// applyHeights overwrites the z of every vertex in the local range [start, end)
// that has a recorded height.
func (e *EditLedger) applyHeights(l grid.Layout, chunk grid.ChunkCoord, start, end int, vertices []mgl32.Vec3) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.heights) == 0 {
		return
	}

	n := end - start
	for y := start; y < end; y++ {
		for x := start; x < end; x++ {
			g := l.ToGlobal(chunk, grid.LocalCell{X: x, Y: y})
			if h, ok := e.heights[g]; ok {
				vertices[(y-start)*n+(x-start)][2] = h.height
			}
		}
	}
}

// applySplits rewrites every core quad of chunk that has a recorded split.
func (e *EditLedger) applySplits(l grid.Layout, chunk grid.ChunkCoord, triangles []uint32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.splits) == 0 {
		return
	}

	v := l.VerticesPerChunk
	for y := 0; y < v-1; y++ {
		for x := 0; x < v-1; x++ {
			q := grid.LocalCell{X: x, Y: y}
			if s, ok := e.splits[l.ToGlobal(chunk, q)]; ok {
				MakeSquare(triangles, q, v, s.split)
			}
		}
	}
}
