package streaming

import (
	"sort"
	"sync"

	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

// MeshSink receives chunk meshes as they become resident and leave.
// AddChunk replaces any mesh already held for the same chunk.
type MeshSink interface {
	AddChunk(stream *terrain.MeshStream) error
	RemoveChunk(chunk grid.ChunkCoord) error
}

// MemorySink keeps the current meshes in memory.
type MemorySink struct {
	mu      sync.Mutex
	meshes  map[grid.ChunkCoord]*terrain.MeshStream
	Adds    int
	Removes int
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{meshes: make(map[grid.ChunkCoord]*terrain.MeshStream)}
}

func (m *MemorySink) AddChunk(stream *terrain.MeshStream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meshes[stream.Chunk] = stream
	m.Adds++
	return nil
}

func (m *MemorySink) RemoveChunk(chunk grid.ChunkCoord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meshes, chunk)
	m.Removes++
	return nil
}

// Mesh returns the mesh held for chunk, if any.
func (m *MemorySink) Mesh(chunk grid.ChunkCoord) (*terrain.MeshStream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.meshes[chunk]
	return s, ok
}

// Chunks returns the chunks currently held, sorted.
func (m *MemorySink) Chunks() []grid.ChunkCoord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]grid.ChunkCoord, 0, len(m.meshes))
	for c := range m.meshes {
		out = append(out, c)
	}
	sortChunks(out)
	return out
}

func sortChunks(chunks []grid.ChunkCoord) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Y != chunks[j].Y {
			return chunks[i].Y < chunks[j].Y
		}
		return chunks[i].X < chunks[j].X
	})
}
