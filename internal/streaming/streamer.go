// Package streaming keeps the chunks around a moving viewer resident,
// building new ones nearest first and evicting those that fall out of range.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

// ErrClosed is returned by Tick and Flush after Close.
var ErrClosed = errors.New("streamer closed")

// ChunkState is the lifecycle state of one chunk.
type ChunkState uint8

const (
	Unresident ChunkState = iota
	Building
	Resident
	PendingRemoval
)

func (s ChunkState) String() string {
	switch s {
	case Building:
		return "building"
	case Resident:
		return "resident"
	case PendingRemoval:
		return "pending-removal"
	}
	return "unresident"
}

// Builder produces chunk meshes.
type Builder interface {
	Layout() grid.Layout
	Build(chunk grid.ChunkCoord, path []grid.LocalCell) (*terrain.MeshStream, []grid.ChunkCoord, error)
}

// Config controls streaming.
type Config struct {
	Radius int  // Chunks kept on each side of the viewer's chunk
	Async  bool // Build on a background worker, one chunk at a time
}

// unit is one piece of background work: at most one chunk to build and at
// most one chunk to remove.
type unit struct {
	id      uuid.UUID
	add     *grid.ChunkCoord
	rebuild bool
	remove  *grid.ChunkCoord
}

type result struct {
	unit
	stream   *terrain.MeshStream
	affected []grid.ChunkCoord
	err      error
}

// Streamer owns the resident chunk map. Tick, Flush and Close must be called
// from a single goroutine; only chunk builds run on the worker.
type Streamer struct {
	cfg     Config
	builder Builder
	roads   map[grid.ChunkCoord][]grid.LocalCell
	sink    MeshSink
	log     *zap.Logger

	order  []grid.ChunkCoord
	center grid.ChunkCoord
	states map[grid.ChunkCoord]ChunkState
	dirty  map[grid.ChunkCoord]struct{} // Resident chunks whose edits changed

	// Async mode. Each channel holds at most one unit, and a new unit is only
	// sent once the previous result has been applied.
	requests chan unit
	results  chan result
	busy     bool
	done     chan struct{}

	closeOnce sync.Once
	closed    bool
}

// New creates a streamer. roads maps chunks to the road path carved into
// them and may be nil. In async mode New starts the build worker; call Close
// to stop it.
func New(cfg Config, builder Builder, roads map[grid.ChunkCoord][]grid.LocalCell, sink MeshSink, log *zap.Logger) *Streamer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}

	s := &Streamer{
		cfg:     cfg,
		builder: builder,
		roads:   roads,
		sink:    sink,
		log:     log,
		order:   ChunkOrder(cfg.Radius),
		states:  make(map[grid.ChunkCoord]ChunkState),
		dirty:   make(map[grid.ChunkCoord]struct{}),
	}
	if cfg.Async {
		s.requests = make(chan unit, 1)
		s.results = make(chan result, 1)
		s.done = make(chan struct{})
		go s.work()
	}
	return s
}

func (s *Streamer) work() {
	defer close(s.done)
	for u := range s.requests {
		r := result{unit: u}
		if u.add != nil {
			r.stream, r.affected, r.err = s.builder.Build(*u.add, s.roads[*u.add])
		}
		s.results <- r
	}
}

// State returns the lifecycle state of chunk.
func (s *Streamer) State(chunk grid.ChunkCoord) ChunkState {
	return s.states[chunk]
}

// Center returns the viewer chunk seen by the last Tick.
func (s *Streamer) Center() grid.ChunkCoord {
	return s.center
}

// Resident returns every resident chunk, sorted.
func (s *Streamer) Resident() []grid.ChunkCoord {
	out := make([]grid.ChunkCoord, 0, len(s.states))
	for c, st := range s.states {
		if st == Resident {
			out = append(out, c)
		}
	}
	sortChunks(out)
	return out
}

// Busy reports whether a background unit is in flight.
func (s *Streamer) Busy() bool {
	return s.busy
}

// Tick updates residency for a viewer at the given world position. In sync
// mode every missing chunk is built before Tick returns. In async mode Tick
// applies a finished unit, if any, and starts at most one new unit.
func (s *Streamer) Tick(ctx context.Context, viewer mgl32.Vec2) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	center := s.builder.Layout().ChunkAt(viewer)
	if center != s.center {
		s.log.Debug("viewer moved", zap.Stringer("from", s.center), zap.Stringer("to", center))
	}
	s.center = center

	if !s.cfg.Async {
		return s.tickSync()
	}

	select {
	case r := <-s.results:
		s.busy = false
		if err := s.apply(r); err != nil {
			return err
		}
	default:
	}

	if !s.busy {
		s.dispatch()
	}
	return nil
}

// Flush waits for the in-flight unit, if any, and applies it.
func (s *Streamer) Flush(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if !s.busy {
		return nil
	}

	select {
	case r := <-s.results:
		s.busy = false
		return s.apply(r)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after its current build. A result still in the
// mailbox is dropped.
func (s *Streamer) Close() {
	s.closeOnce.Do(func() {
		s.closed = true
		if s.cfg.Async {
			close(s.requests)
			// Unblock a worker waiting to deliver.
			for {
				select {
				case <-s.results:
				case <-s.done:
					return
				}
			}
		}
	})
}

func (s *Streamer) tickSync() error {
	for _, c := range s.outOfRange() {
		if err := s.evict(c); err != nil {
			return err
		}
	}

	for _, off := range s.order {
		c := s.center.Add(grid.Step{DX: off.X, DY: off.Y})
		if s.states[c] != Unresident {
			continue
		}
		s.states[c] = Building
		stream, affected, err := s.builder.Build(c, s.roads[c])
		if err := s.place(c, stream, affected, err, false); err != nil {
			return err
		}
	}

	for len(s.dirty) > 0 {
		c := s.nextDirty()
		stream, affected, err := s.builder.Build(c, s.roads[c])
		if err := s.place(c, stream, affected, err, true); err != nil {
			return err
		}
	}
	return nil
}

// dispatch picks the next unit of work and hands it to the worker.
func (s *Streamer) dispatch() {
	u := unit{id: uuid.New()}

	if len(s.dirty) > 0 {
		c := s.nextDirty()
		u.add, u.rebuild = &c, true
	} else {
		for _, off := range s.order {
			c := s.center.Add(grid.Step{DX: off.X, DY: off.Y})
			if s.states[c] == Unresident {
				u.add = &c
				s.states[c] = Building
				break
			}
		}
	}

	if out := s.outOfRange(); len(out) > 0 {
		c := out[0]
		u.remove = &c
		s.states[c] = PendingRemoval
	}

	if u.add == nil && u.remove == nil {
		return
	}

	fields := []zap.Field{zap.Stringer("unit", u.id), zap.Bool("rebuild", u.rebuild)}
	if u.add != nil {
		fields = append(fields, zap.Stringer("add", *u.add))
	}
	if u.remove != nil {
		fields = append(fields, zap.Stringer("remove", *u.remove))
	}
	s.log.Debug("unit started", fields...)

	s.busy = true
	s.requests <- u
}

// apply consumes one finished unit: the removal first, then the build.
func (s *Streamer) apply(r result) error {
	s.log.Debug("unit finished", zap.Stringer("unit", r.id))

	if r.remove != nil {
		if err := s.evict(*r.remove); err != nil {
			return err
		}
	}
	if r.add == nil {
		return nil
	}

	c := *r.add
	if !InRange(s.center, c, s.cfg.Radius) {
		s.log.Debug("discarding stale build", zap.Stringer("chunk", c), zap.Stringer("unit", r.id))
		if !r.rebuild {
			delete(s.states, c)
		}
		s.markAffected(r.affected)
		return nil
	}
	return s.place(c, r.stream, r.affected, r.err, r.rebuild)
}

// place hands a finished build to the sink and records the result.
func (s *Streamer) place(c grid.ChunkCoord, stream *terrain.MeshStream, affected []grid.ChunkCoord, buildErr error, rebuild bool) error {
	if buildErr != nil {
		if !rebuild {
			delete(s.states, c)
		}
		return fmt.Errorf("build chunk %v: %w", c, buildErr)
	}
	if err := s.sink.AddChunk(stream); err != nil {
		if !rebuild {
			delete(s.states, c)
		}
		return fmt.Errorf("add chunk %v: %w", c, err)
	}

	s.states[c] = Resident
	if rebuild {
		s.log.Debug("chunk rebuilt", zap.Stringer("chunk", c))
	} else {
		s.log.Debug("chunk added", zap.Stringer("chunk", c), zap.Int("triangles", stream.TriangleCount()))
	}
	s.markAffected(affected)
	return nil
}

func (s *Streamer) evict(c grid.ChunkCoord) error {
	s.states[c] = PendingRemoval
	delete(s.dirty, c)
	if err := s.sink.RemoveChunk(c); err != nil {
		return fmt.Errorf("remove chunk %v: %w", c, err)
	}
	delete(s.states, c)
	s.log.Debug("chunk evicted", zap.Stringer("chunk", c))
	return nil
}

// markAffected queues resident chunks touched by another chunk's edits.
func (s *Streamer) markAffected(affected []grid.ChunkCoord) {
	for _, c := range affected {
		if s.states[c] == Resident {
			s.dirty[c] = struct{}{}
		}
	}
}

func (s *Streamer) nextDirty() grid.ChunkCoord {
	chunks := make([]grid.ChunkCoord, 0, len(s.dirty))
	for c := range s.dirty {
		chunks = append(chunks, c)
	}
	sortChunks(chunks)
	delete(s.dirty, chunks[0])
	return chunks[0]
}

// outOfRange lists resident chunks outside the radius, sorted.
func (s *Streamer) outOfRange() []grid.ChunkCoord {
	var out []grid.ChunkCoord
	for c, st := range s.states {
		if st == Resident && !InRange(s.center, c, s.cfg.Radius) {
			out = append(out, c)
		}
	}
	sortChunks(out)
	return out
}
