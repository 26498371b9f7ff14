package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagRadius = flag.Int("radius", -1, "Chunk radius around the viewer")
	flagAsync  = flag.String("async", "", "Build chunks on a background worker (true|false)")
	flagSeed   = flag.Int64("seed", 0, "Height field seed (0 keeps the configured seed)")
	flagOut    = flag.String("out", "", "Export directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagRadius >= 0 {
		cfg.Terrain.ChunkRadius = *flagRadius
	}
	switch *flagAsync {
	case "true", "1":
		cfg.Streaming.Async = true
	case "false", "0":
		cfg.Streaming.Async = false
	}
	if *flagSeed != 0 {
		cfg.Terrain.Seed = *flagSeed
	}
	if *flagOut != "" {
		cfg.Export.Dir = *flagOut
	}
}
