// terrainctl generates terrain chunks, plans roads across them and streams
// the result to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/roadtrain/internal/config"
	"github.com/Faultbox/roadtrain/internal/export"
	"github.com/Faultbox/roadtrain/internal/logger"
	"github.com/Faultbox/roadtrain/internal/pathfinding"
	"github.com/Faultbox/roadtrain/internal/streaming"
	"github.com/Faultbox/roadtrain/internal/terrain"
	"github.com/Faultbox/roadtrain/pkg/grid"
)

func main() {
	// Global flags come before the command
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	switch command {
	case "plan":
		err = cmdPlan(cfg, args)
	case "stream":
		err = cmdStream(cfg, args)
	case "chunk":
		err = cmdChunk(cfg, args)
	case "config":
		err = cmdConfig(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`terrainctl - procedural terrain and road tool

Usage:
  terrainctl [global flags] <command> [options]

Global flags:
  -config <file>   Config file (default ./terrain.yaml)
  -debug           Debug logging
  -radius <n>      Chunk radius around the viewer
  -async <bool>    Build chunks on a background worker
  -seed <n>        Height field seed
  -out <dir>       Export directory

Commands:
  plan [-o file]                 Plan the configured route and write it as JSON
  stream [-ticks n] [-memory]    Walk a viewer along the route, streaming chunks
  chunk [-o file] <x> <y>        Build one chunk and write it as OBJ
  config [-save]                 Print the effective config

Examples:
  terrainctl plan
  terrainctl -radius 1 -async false stream
  terrainctl chunk 0 -1 > chunk.obj
  terrainctl -seed 42 config -save`)
}

// world bundles the pieces every command shares.
type world struct {
	layout  grid.Layout
	heights *terrain.HeightField
	builder *terrain.ChunkBuilder
	planner *pathfinding.Planner
}

func newWorld(cfg *config.Config) *world {
	layout := cfg.Terrain.Layout()
	heights := terrain.NewHeightField(cfg.Terrain.HeightConfig(), logger.Named("heightfield"))
	searcher := pathfinding.NewSearcher(layout, heights, cfg.Path.MaxSlope, cfg.Path.MaxIterations)
	return &world{
		layout:  layout,
		heights: heights,
		builder: terrain.NewChunkBuilder(cfg.Terrain.BuilderConfig(), heights, terrain.NewEditLedger(), logger.Named("builder")),
		planner: pathfinding.NewPlanner(searcher, logger.Named("planner")),
	}
}

func (w *world) plan(cfg *config.Config) (*pathfinding.Route, error) {
	return w.planner.Plan(cfg.Path.StartCell(), cfg.Path.EndCell())
}

func cmdPlan(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default <export dir>/route.json)")
	fs.Parse(args)

	w := newWorld(cfg)
	route, err := w.plan(cfg)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Join(cfg.Export.Dir, "route.json")
	}
	if err := export.WriteRoute(path, export.NewRouteFile(route)); err != nil {
		return fmt.Errorf("write route: %w", err)
	}

	fmt.Printf("Route:     %v -> %v\n", route.Start, route.End)
	fmt.Printf("Cells:     %d\n", route.Len())
	fmt.Printf("Gates:     %d\n", len(route.Gates))
	fmt.Printf("Waypoints: %d\n", len(route.Simplify()))
	fmt.Printf("Written:   %s\n", path)
	return nil
}

func cmdStream(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	ticks := fs.Int("ticks", 0, "Ticks to walk without a route (0 = follow the route)")
	memory := fs.Bool("memory", false, "Keep meshes in memory instead of writing them")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := newWorld(cfg)

	var roads map[grid.ChunkCoord][]grid.LocalCell
	var viewer []mgl32.Vec2
	if *ticks > 0 {
		viewer = straightWalk(cfg, *ticks)
	} else {
		route, err := w.plan(cfg)
		if err != nil {
			return err
		}
		roads = route.ChunkPaths()
		viewer = routeWalk(route, cfg.Streaming.ViewerStep)
	}

	var sink streaming.MeshSink
	if *memory {
		sink = streaming.NewMemorySink()
	} else {
		level, err := cfg.Export.EncoderLevel()
		if err != nil {
			return err
		}
		objs, err := export.NewObjSink(cfg.Export.Dir, level, logger.Named("export"))
		if err != nil {
			return err
		}
		sink = objs
	}

	s := streaming.New(streaming.Config{
		Radius: cfg.Terrain.ChunkRadius,
		Async:  cfg.Streaming.Async,
	}, w.builder, roads, sink, logger.Named("streamer"))
	defer s.Close()

	for i, pos := range viewer {
		if err := s.Tick(ctx, pos); err != nil {
			return err
		}
		logger.Debug("tick", zap.Int("n", i), zap.Stringer("center", s.Center()), zap.Bool("busy", s.Busy()))
	}

	// Let the worker catch up at the final position.
	last := viewer[len(viewer)-1]
	for s.Busy() {
		if err := s.Flush(ctx); err != nil {
			return err
		}
		if err := s.Tick(ctx, last); err != nil {
			return err
		}
	}

	resident := s.Resident()
	logger.Info("streaming finished",
		zap.Int("ticks", len(viewer)),
		zap.Int("resident", len(resident)),
		zap.Int("edits", w.builder.Ledger().Len()))
	fmt.Printf("Resident chunks (%d):\n", len(resident))
	for _, c := range resident {
		fmt.Printf("  %v\n", c)
	}
	return nil
}

// straightWalk moves the viewer along +X from the world origin.
func straightWalk(cfg *config.Config, ticks int) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, ticks)
	for i := range out {
		out[i] = mgl32.Vec2{float32(i) * cfg.Streaming.ViewerStep, 0}
	}
	return out
}

// routeWalk samples the route every step world units.
func routeWalk(route *pathfinding.Route, step float32) []mgl32.Vec2 {
	pts := route.Points()
	out := []mgl32.Vec2{pts[0].Vec2()}
	travelled := float32(0)
	for i := 1; i < len(pts); i++ {
		travelled += pts[i].Vec2().Sub(pts[i-1].Vec2()).Len()
		if travelled >= step {
			out = append(out, pts[i].Vec2())
			travelled = 0
		}
	}
	if end := pts[len(pts)-1].Vec2(); out[len(out)-1] != end {
		out = append(out, end)
	}
	return out
}

func cmdChunk(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default stdout)")
	road := fs.Bool("road", false, "Carve the planned route into the chunk")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: terrainctl chunk [-o file] [-road] <x> <y>")
		os.Exit(1)
	}
	x, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("chunk x: %w", err)
	}
	y, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("chunk y: %w", err)
	}
	chunk := grid.ChunkCoord{X: x, Y: y}

	w := newWorld(cfg)
	var path []grid.LocalCell
	if *road {
		route, err := w.plan(cfg)
		if err != nil {
			return err
		}
		path = route.ChunkPaths()[chunk]
	}

	stream, _, err := w.builder.Build(chunk, path)
	if err != nil {
		return err
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	if err := export.WriteObj(dst, stream); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}

	logger.Info("chunk written",
		zap.Stringer("chunk", chunk),
		zap.Int("vertices", len(stream.Vertices)),
		zap.Int("triangles", stream.TriangleCount()),
		zap.Int("road", len(path)))
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Save to the user config directory")
	fs.Parse(args)

	if *save {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", filepath.Join(config.ConfigDir(), "terrain.yaml"))
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}
