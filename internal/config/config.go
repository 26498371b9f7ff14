// Package config handles terrain and routing configuration loading and management.
package config

import (
	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

// Config holds all settings.
type Config struct {
	Terrain   TerrainConfig   `yaml:"terrain" json:"terrain"`
	Path      PathConfig      `yaml:"path" json:"path"`
	Streaming StreamingConfig `yaml:"streaming" json:"streaming"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// TerrainConfig holds grid and height field settings.
type TerrainConfig struct {
	VertexSpacing    float32              `yaml:"vertex_spacing" json:"vertex_spacing"`
	VerticesPerChunk int                  `yaml:"vertices_per_chunk" json:"vertices_per_chunk"` // At least two
	ChunkRadius      int                  `yaml:"chunk_radius" json:"chunk_radius"`
	TextureSize      float32              `yaml:"texture_size" json:"texture_size"`
	GenerateHeight   bool                 `yaml:"generate_height" json:"generate_height"`
	Seed             int64                `yaml:"seed" json:"seed"`
	NoiseLayers      []terrain.NoiseLayer `yaml:"noise_layers" json:"noise_layers"`
}

// PathConfig holds route planning settings. Endpoints are global grid cells.
type PathConfig struct {
	Start         [2]int  `yaml:"start" json:"start"`
	End           [2]int  `yaml:"end" json:"end"`
	MaxSlope      float64 `yaml:"max_slope" json:"max_slope"`           // Percent grade
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"` // 0 = 8*V*V
}

// StreamingConfig holds chunk streaming settings.
type StreamingConfig struct {
	Async      bool    `yaml:"async" json:"async"`
	ViewerStep float32 `yaml:"viewer_step" json:"viewer_step"` // World units the simulated viewer moves per tick
}

// ExportConfig holds mesh and route export settings.
type ExportConfig struct {
	Dir         string `yaml:"dir" json:"dir"`
	Compression string `yaml:"compression" json:"compression"` // fastest, default, better or best
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	LogFile string `yaml:"log_file" json:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			VertexSpacing:    1000,
			VerticesPerChunk: 128,
			ChunkRadius:      2,
			TextureSize:      300,
			GenerateHeight:   true,
			Seed:             1,
			NoiseLayers: []terrain.NoiseLayer{
				{Frequency: 40000, Amplitude: 3000, Offset: 0.17},
				{Frequency: 9000, Amplitude: 400, Offset: 2.9},
				{Frequency: 2500, Amplitude: 60, Offset: 7.3},
			},
		},
		Path: PathConfig{
			Start:         [2]int{1, 1},
			End:           [2]int{500, 500},
			MaxSlope:      30,
			MaxIterations: 0,
		},
		Streaming: StreamingConfig{
			Async:      true,
			ViewerStep: 2000,
		},
		Export: ExportConfig{
			Dir:         "./export",
			Compression: "default",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Layout returns the chunk layout described by the terrain settings.
func (t TerrainConfig) Layout() grid.Layout {
	return grid.Layout{Spacing: t.VertexSpacing, VerticesPerChunk: t.VerticesPerChunk}
}

// HeightConfig returns the height field settings.
func (t TerrainConfig) HeightConfig() terrain.HeightConfig {
	return terrain.HeightConfig{Enabled: t.GenerateHeight, Seed: t.Seed, Layers: t.NoiseLayers}
}

// BuilderConfig returns the chunk builder settings.
func (t TerrainConfig) BuilderConfig() terrain.BuilderConfig {
	return terrain.BuilderConfig{Layout: t.Layout(), TextureSize: t.TextureSize}
}

// StartCell returns the route start as a global cell.
func (p PathConfig) StartCell() grid.GlobalCell {
	return grid.GlobalCell{X: p.Start[0], Y: p.Start[1]}
}

// EndCell returns the route end as a global cell.
func (p PathConfig) EndCell() grid.GlobalCell {
	return grid.GlobalCell{X: p.End[0], Y: p.End[1]}
}
