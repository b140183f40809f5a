package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"xray-mike/internal/config"
	"xray-mike/internal/host"
	"xray-mike/internal/logger"
	"xray-mike/internal/models"
	"xray-mike/internal/shutdown"

	"github.com/rs/zerolog"
)

const (
	AppName       = "xray-mike"
	shutdownGrace = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	srcPath    string
	dstPath    string
	debug      bool

	mode      string
	intensity float64
	sharpen   float64
	edge      float64
	contrast  float64

	// names of the flags given on the command line
	set map[string]bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "xray-mike.yaml", "config file path")
	fs.StringVar(&opts.srcPath, "src", "", "input image path")
	fs.StringVar(&opts.dstPath, "dst", "", "output PNG path (default: new file in processing.output_dir)")
	fs.StringVar(&opts.mode, "mode", "", "enhancement mode: neutral, clahe, retinex, adaptive, wavelet, gradient")
	fs.Float64Var(&opts.intensity, "intensity", 0, "see-through intensity [0,10] (default from config)")
	fs.Float64Var(&opts.sharpen, "sharpen", 0, "sharpen strength [0,3] (default from config)")
	fs.Float64Var(&opts.edge, "edge", 0, "edge overlay strength [0,1] (default from config)")
	fs.Float64Var(&opts.contrast, "contrast", 0, "contrast factor [0.5,2.0] (default from config)")
	fs.BoolVar(&opts.debug, "debug", false, "debug logging level")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	if opts.srcPath == "" {
		fs.Usage()
		return opts, fmt.Errorf("-src is required")
	}

	return opts, nil
}

// applyOverrides copies the parameter flags given on the command line over
// defaults and validates the result.
func applyOverrides(defaults models.Params, opts options) (models.Params, error) {
	params := defaults

	if opts.set["mode"] {
		m, err := models.ParseMode(opts.mode)
		if err != nil {
			return params, err
		}
		params.Mode = m
	}
	if opts.set["intensity"] {
		params.Intensity = opts.intensity
	}
	if opts.set["sharpen"] {
		params.Sharpen = opts.sharpen
	}
	if opts.set["edge"] {
		params.Edge = opts.edge
	}
	if opts.set["contrast"] {
		params.Contrast = opts.contrast
	}

	return params, params.Validate()
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if opts.debug {
		level = zerolog.DebugLevel
	}
	log := logger.New(level, cfg.Log.Human)

	params, err := applyOverrides(cfg.Defaults, opts)
	if err != nil {
		return err
	}

	predictor, err := host.NewPredictor(cfg, log)
	if err != nil {
		return err
	}

	shutdownManager := shutdown.NewManager(context.Background(), log, shutdownGrace)
	shutdownManager.Register(predictor)
	stop := shutdownManager.Listen()
	defer stop()
	defer shutdownManager.Shutdown()

	start := time.Now()
	outputPath, err := predictor.Predict(shutdownManager.Context(), opts.srcPath, params)
	if err != nil {
		return err
	}

	if opts.dstPath != "" {
		if err := moveFile(outputPath, opts.dstPath); err != nil {
			return err
		}
		outputPath = opts.dstPath
	}

	log.Info("main", "done", map[string]interface{}{
		"dst":         outputPath,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	fmt.Println(outputPath)

	return nil
}

// moveFile renames src to dst, copying when they live on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open result: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return os.Remove(src)
}
