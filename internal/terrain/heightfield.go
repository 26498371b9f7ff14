package terrain

import (
	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/pkg/grid"
)

// HeightConfig configures a HeightField.
type HeightConfig struct {
	Enabled bool
	Seed    int64
	Layers  []NoiseLayer
}

// HeightField is a deterministic elevation function over the plane.
// It is read-only after construction and safe for concurrent use.
type HeightField struct {
	enabled bool
	layers  []NoiseLayer
	noise   *perlin.Perlin
}

// NewHeightField builds a height field. Layers with zero frequency are reported
// and left out of the sum.
func NewHeightField(cfg HeightConfig, log *zap.Logger) *HeightField {
	if log == nil {
		log = zap.NewNop()
	}

	layers := make([]NoiseLayer, 0, len(cfg.Layers))
	for i, layer := range cfg.Layers {
		if layer.Frequency == 0 {
			log.Warn("noise layer frequency can't be 0, layer ignored", zap.Int("layer", i))
			continue
		}
		layers = append(layers, layer)
	}

	return &HeightField{
		enabled: cfg.Enabled,
		layers:  layers,
		// One octave per perlin instance; octaves come from the configured layers.
		noise: perlin.NewPerlin(2, 2, 1, cfg.Seed),
	}
}

// Enabled reports whether heights are generated at all.
func (h *HeightField) Enabled() bool {
	return h.enabled
}

// Height returns the elevation at a world location.
func (h *HeightField) Height(location mgl32.Vec2) float32 {
	if !h.enabled || len(h.layers) == 0 {
		return 0
	}

	x, y := float64(location.X()), float64(location.Y())
	var height float64
	for _, layer := range h.layers {
		scale := 1 / float64(layer.Frequency)
		offset := float64(layer.Offset)
		height += h.noise.Noise2D(x*scale+offset, y*scale+offset) * float64(layer.Amplitude)
	}
	return float32(height)
}

// HeightAt returns the elevation at a global cell. Every chunk that shares the
// cell evaluates the same world position, so shared vertices agree exactly.
func (h *HeightField) HeightAt(l grid.Layout, g grid.GlobalCell) float32 {
	return h.Height(l.World(g))
}
