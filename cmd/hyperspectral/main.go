package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"hyperspectral/pkg/config"
	"hyperspectral/pkg/loader"
	"hyperspectral/pkg/visualization"
)

func main() {
	// Parse command line arguments; flags override the config file
	configPath := flag.String("config", "hyperspectral.yaml", "YAML configuration file")
	inputDir := flag.String("input", "", "Root directory containing <i>_<j> frame folders")
	frameType := flag.String("type", "", "Frame type: calibrated, raw or temperature")
	frameIndex := flag.Int("index", 0, "Frame index to load")
	height := flag.Int("height", 0, "Frame height in pixels")
	width := flag.Int("width", 0, "Frame width in pixels")
	exportSlices := flag.Bool("export-slices", false, "Save JPEG previews of every stacked frame")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Only flags given on the command line override the config file
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(cfg, set, flagValues{
		input:        *inputDir,
		frameType:    *frameType,
		index:        *frameIndex,
		height:       *height,
		width:        *width,
		exportSlices: *exportSlices,
		verbose:      *verbose,
	})

	if cfg.Input.Root == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	l, err := loader.New(&loader.Params{
		Root:   cfg.Input.Root,
		Height: cfg.Frames.Height,
		Width:  cfg.Frames.Width,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("Failed to open %s: %v", cfg.Input.Root, err)
	}

	startTime := time.Now()
	cube, reference, err := l.LoadFrames(cfg.Load.FrameType, cfg.Load.FrameIndex)
	if err != nil {
		log.Fatalf("Loading frames failed: %v", err)
	}
	loadTime := time.Since(startTime)

	depth, h, w := cube.Shape()
	fmt.Printf("Loaded %s frame %d from %s in %.2f seconds\n",
		cfg.Load.FrameType, cfg.Load.FrameIndex, cfg.Input.Root, loadTime.Seconds())
	fmt.Printf("Hypercube shape: (%d, %d, %d) %s\n", depth, h, w, cube.Elem)

	for k, pos := range cube.Positions {
		plane, err := cube.Plane(k)
		if err != nil {
			log.Fatalf("Frame %d: %v", k, err)
		}
		fmt.Printf("  [%3d] %-8s %s\n", k, pos, summarize(plane))
	}

	if reference != nil {
		fmt.Printf("Full transmission (0_0): %s\n", summarize(reference.Dense()))
	} else {
		fmt.Println("Full transmission (0_0): absent")
	}

	if cfg.Output.ExportSlices {
		slicesPath, err := previewDir(cfg)
		if err != nil {
			log.Fatalf("Failed to resolve %s: %v", cfg.Output.SlicesDir, err)
		}
		viewer := visualization.NewViewer(cube)
		fmt.Printf("Saving frame previews to: %s\n", slicesPath)
		if err := viewer.SaveSliceSequence("z", slicesPath); err != nil {
			log.Printf("Warning: Failed to save previews: %v", err)
		}
	}
}

// previewDir resolves the slices directory against the working directory,
// never the input tree
func previewDir(cfg *config.Config) (string, error) {
	return filepath.Abs(cfg.Output.SlicesDir)
}

// flagValues holds the parsed command line values
type flagValues struct {
	input        string
	frameType    string
	index        int
	height       int
	width        int
	exportSlices bool
	verbose      bool
}

// applyFlags overrides config values with the flags named in set
func applyFlags(cfg *config.Config, set map[string]bool, v flagValues) {
	if set["input"] {
		cfg.Input.Root = v.input
	}
	if set["type"] {
		cfg.Load.FrameType = v.frameType
	}
	if set["index"] {
		cfg.Load.FrameIndex = v.index
	}
	if set["height"] {
		cfg.Frames.Height = v.height
	}
	if set["width"] {
		cfg.Frames.Width = v.width
	}
	if set["export-slices"] {
		cfg.Output.ExportSlices = v.exportSlices
	}
	if set["verbose"] {
		cfg.Output.Verbose = v.verbose
	}
}

// summarize reports min, max and mean of a frame matrix
func summarize(m *mat.Dense) string {
	if m == nil {
		return "empty"
	}
	return fmt.Sprintf("min=%.3f max=%.3f mean=%.3f",
		mat.Min(m), mat.Max(m), stat.Mean(m.RawMatrix().Data, nil))
}
