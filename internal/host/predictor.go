// Package host is the inference-host side of the enhancer: it validates
// parameters, decodes input files, runs the pipeline under a deadline and
// writes the result as PNG.
package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"xray-mike/internal/config"
	"xray-mike/internal/logger"
	"xray-mike/internal/metrics"
	"xray-mike/internal/models"
	"xray-mike/internal/opencv/conversion"
	"xray-mike/internal/pipeline"
	"xray-mike/internal/processing/colormap"
)

const component = "Predictor"

// ErrShutdown is returned by predictions started after Shutdown.
var ErrShutdown = errors.New("predictor is shut down")

type Predictor struct {
	cfg    config.Config
	logger logger.Logger
	driver *pipeline.Driver
	closed atomic.Bool
}

// Result is an enhanced image with its summary statistics.
type Result struct {
	Image *image.RGBA
	Stats metrics.Stats
}

// NewPredictor performs the one-time setup shared by all predictions.
func NewPredictor(cfg config.Config, log logger.Logger) (*Predictor, error) {
	if log == nil {
		log = logger.Nop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	colormap.Init()

	log.Info(component, "predictor initialised", map[string]interface{}{
		"timeout":    cfg.Processing.Timeout.String(),
		"output_dir": cfg.Processing.OutputDir,
	})

	return &Predictor{
		cfg:    cfg,
		logger: log,
		driver: pipeline.NewDriver(log),
	}, nil
}

// Defaults returns the configured default parameter set.
func (p *Predictor) Defaults() models.Params {
	return p.cfg.Defaults
}

// Predict enhances the image file at inputPath and returns the path of a new
// PNG file holding the result.
func (p *Predictor) Predict(ctx context.Context, inputPath string, params models.Params) (string, error) {
	start := time.Now()

	fields := params.Fields()
	fields["input"] = inputPath
	p.logger.Info(component, "processing started", fields)

	if p.closed.Load() {
		return "", ErrShutdown
	}

	if err := params.Validate(); err != nil {
		return "", err
	}

	img, format, err := p.loadImage(inputPath)
	if err != nil {
		return "", err
	}

	res, err := p.PredictImage(ctx, img, params)
	if err != nil {
		p.logger.Error(component, err, map[string]interface{}{"input": inputPath})
		return "", err
	}

	outputPath, err := p.saveImage(p.cfg.Processing.OutputDir, res.Image)
	if err != nil {
		return "", err
	}

	done := res.Stats.Fields()
	done["input_format"] = format
	done["output"] = outputPath
	done["duration_ms"] = time.Since(start).Milliseconds()
	p.logger.Info(component, "processing completed", done)

	return outputPath, nil
}

// PredictImage enhances an already decoded image.
func (p *Predictor) PredictImage(ctx context.Context, img image.Image, params models.Params) (Result, error) {
	if p.closed.Load() {
		return Result{}, ErrShutdown
	}

	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	return withProcessingTimeout(ctx, p.cfg.Processing.Timeout, "enhancement", func() (Result, error) {
		return p.enhance(img, params)
	})
}

func (p *Predictor) enhance(img image.Image, params models.Params) (Result, error) {
	src, err := conversion.ImageToBuffer(img)
	if err != nil {
		return Result{}, fmt.Errorf("input conversion failed: %w", err)
	}
	defer src.Close()

	out, err := p.driver.Run(src, params)
	if err != nil {
		return Result{}, err
	}
	defer out.Close()

	stats, err := metrics.Compute(out)
	if err != nil {
		return Result{}, fmt.Errorf("output statistics failed: %w", err)
	}

	rgba, err := conversion.BufferToRGBA(out)
	if err != nil {
		return Result{}, fmt.Errorf("output conversion failed: %w", err)
	}

	return Result{Image: rgba, Stats: stats}, nil
}

// Shutdown rejects further predictions. Work already running finishes.
func (p *Predictor) Shutdown() {
	if p.closed.Swap(true) {
		return
	}
	p.logger.Info(component, "predictor shut down", nil)
}
