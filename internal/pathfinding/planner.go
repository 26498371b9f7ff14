package pathfinding

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// Planner stitches per-chunk searches into routes that cross chunk borders.
type Planner struct {
	searcher *Searcher
	log      *zap.Logger
}

// NewPlanner creates a planner over searcher.
func NewPlanner(searcher *Searcher, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{searcher: searcher, log: log}
}

// Plan finds a route from start to end. Each chunk between them is crossed
// through a gate on the side facing the destination; a chunk that offers no
// traversable gate fails the whole plan with ErrNoPath.
func (p *Planner) Plan(start, end grid.GlobalCell) (*Route, error) {
	l := p.searcher.layout
	if err := l.Validate(); err != nil {
		return nil, err
	}
	span := l.Span()
	log := p.log.With(zap.String("run", uuid.NewString()))

	chunk := l.ChunkOf(start)
	local, _ := l.ToLocal(chunk, start)
	endChunk := l.ChunkOf(end)
	endLocal, _ := l.ToLocal(endChunk, end)

	route := &Route{Start: start, End: end, searcher: p.searcher}

	// Gates first: every hop ends on the side facing the destination.
	type leg struct {
		chunk    grid.ChunkCoord
		from, to grid.LocalCell
	}
	var legs []leg
	for chunk != endChunk {
		dir := chunk.To(endChunk).Sign()
		gate := p.searcher.GetBestGate(chunk, local, GetGoalSet(l.VerticesPerChunk, dir), end)
		if !gate.Reached() {
			log.Debug("no gate", zap.Stringer("chunk", chunk), zap.Stringer("from", local))
			return nil, fmt.Errorf("%w: no gate out of chunk %v toward %v", ErrNoPath, chunk, endChunk)
		}

		next := chunk.Add(dir)
		global := l.ToGlobal(chunk, gate.Cell)
		log.Debug("gate found",
			zap.Stringer("chunk", chunk),
			zap.Stringer("gate", global),
			zap.Float64("cost", gate.Cost))

		route.Gates = append(route.Gates, Gate{Chunk: chunk, Next: next, Cell: global})
		legs = append(legs, leg{chunk: chunk, from: local, to: gate.Cell})

		chunk = next
		local = gate.Cell.Add(grid.Step{DX: -dir.DX * span, DY: -dir.DY * span})
	}
	legs = append(legs, leg{chunk: endChunk, from: local, to: endLocal})

	for _, lg := range legs {
		path, err := p.searcher.GetPath(lg.chunk, lg.from, lg.to)
		if err != nil {
			if errors.Is(err, ErrBrokenChain) {
				log.Error("path reconstruction failed", zap.Stringer("chunk", lg.chunk), zap.Error(err))
			}
			return nil, fmt.Errorf("hop in chunk %v: %w", lg.chunk, err)
		}

		route.Hops = append(route.Hops, Hop{Chunk: lg.chunk, Path: path})
		for i, c := range path {
			if i == 0 && len(route.Cells) > 0 {
				continue // Gate cell already added by the previous hop
			}
			route.Cells = append(route.Cells, l.ToGlobal(lg.chunk, c))
		}
	}

	log.Info("route planned",
		zap.Stringer("start", start),
		zap.Stringer("end", end),
		zap.Int("gates", len(route.Gates)),
		zap.Int("cells", len(route.Cells)))
	return route, nil
}
