package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Faultbox/roadtrain/internal/pathfinding"
)

// RouteFile is the on-disk form of a planned route.
type RouteFile struct {
	Start     [2]int       `json:"start"`
	End       [2]int       `json:"end"`
	Gates     []GateRecord `json:"gates"`
	Cells     [][2]int     `json:"cells"`
	Waypoints [][3]float32 `json:"waypoints"` // Simplified route in world space
}

// GateRecord is one chunk crossing.
type GateRecord struct {
	Chunk [2]int `json:"chunk"`
	Next  [2]int `json:"next"`
	Cell  [2]int `json:"cell"`
}

// NewRouteFile converts a route for writing.
func NewRouteFile(r *pathfinding.Route) RouteFile {
	out := RouteFile{
		Start:     [2]int{r.Start.X, r.Start.Y},
		End:       [2]int{r.End.X, r.End.Y},
		Gates:     make([]GateRecord, 0, len(r.Gates)),
		Cells:     make([][2]int, 0, len(r.Cells)),
		Waypoints: make([][3]float32, 0),
	}
	for _, g := range r.Gates {
		out.Gates = append(out.Gates, GateRecord{
			Chunk: [2]int{g.Chunk.X, g.Chunk.Y},
			Next:  [2]int{g.Next.X, g.Next.Y},
			Cell:  [2]int{g.Cell.X, g.Cell.Y},
		})
	}
	for _, c := range r.Cells {
		out.Cells = append(out.Cells, [2]int{c.X, c.Y})
	}
	for _, p := range r.SimplifiedPoints() {
		out.Waypoints = append(out.Waypoints, [3]float32{p.X(), p.Y(), p.Z()})
	}
	return out
}

// WriteRoute writes r as indented JSON.
func WriteRoute(path string, r RouteFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRoute loads a route written by WriteRoute.
func ReadRoute(path string) (RouteFile, error) {
	var r RouteFile
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode route: %w", err)
	}
	return r, nil
}
