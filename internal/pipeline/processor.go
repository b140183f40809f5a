package pipeline

import (
	"fmt"
	"time"

	"xray-mike/internal/logger"
	"xray-mike/internal/models"
	"xray-mike/internal/opencv/safe"
	"xray-mike/internal/processing/chain"
	"xray-mike/internal/processing/filters"
	"xray-mike/internal/processing/recovery"
	"xray-mike/internal/raster"
)

const component = "Pipeline"

// Driver sequences detail recovery, the optional post stages and the final
// clamp. A Driver holds no per-call state and may be shared by goroutines.
type Driver struct {
	logger logger.Logger
	chain  *chain.ProcessingChain
}

func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.Nop()
	}

	post := chain.NewProcessingChain()
	post.AddStep(filters.NewSharpenFilter())
	post.AddStep(filters.NewEdgeOverlayFilter())
	post.AddStep(filters.NewContrastFilter())

	log.Debug(component, "post processing chain built", map[string]interface{}{
		"steps": post.GetStepNames(),
		"count": post.StepCount(),
	})

	return &Driver{
		logger: log,
		chain:  post,
	}
}

// Steps names the post-processing steps in execution order.
func (d *Driver) Steps() []string {
	return d.chain.GetStepNames()
}

// Run enhances src, which must be an 8-bit Buffer with one or three
// channels, and returns a new three-channel Buffer of the same size. src is
// not modified or closed. On error no partial result is returned.
func (d *Driver) Run(src *raster.Buffer, params models.Params) (*raster.Buffer, error) {
	if err := validateInput(src); err != nil {
		return nil, err
	}

	if !params.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedMode, string(params.Mode))
	}

	start := time.Now()
	fields := params.Fields()
	fields["width"] = src.Cols()
	fields["height"] = src.Rows()
	fields["steps"] = d.chain.ActiveSteps(params)
	d.logger.Debug(component, "processing started", fields)

	rgb, err := src.Replicate()
	if err != nil {
		return nil, fmt.Errorf("input replication failed: %w", err)
	}
	defer rgb.Close()

	stageStart := time.Now()
	recovered, err := recovery.Recover(rgb, params.Mode, params.Intensity)
	if err != nil {
		return nil, fmt.Errorf("detail recovery failed: %w", err)
	}
	defer recovered.Close()

	if err := recovered.CheckFinite(); err != nil {
		return nil, fmt.Errorf("detail recovery failed: %w", err)
	}

	d.logger.Debug(component, "detail recovery completed", map[string]interface{}{
		"mode":        string(params.Mode),
		"duration_ms": time.Since(stageStart).Milliseconds(),
	})

	stageStart = time.Now()
	processed, err := d.chain.Execute(recovered, params)
	if err != nil {
		return nil, fmt.Errorf("post processing failed: %w", err)
	}
	if processed != recovered {
		defer processed.Close()
	}

	d.logger.Debug(component, "post processing completed", map[string]interface{}{
		"duration_ms": time.Since(stageStart).Milliseconds(),
	})

	result, err := processed.Clamp()
	if err != nil {
		return nil, fmt.Errorf("final clamp failed: %w", err)
	}

	if err := checkOutputShape(result, src); err != nil {
		result.Close()
		return nil, err
	}

	d.logger.Debug(component, "processing completed", map[string]interface{}{
		"mode":        string(params.Mode),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return result, nil
}

func validateInput(src *raster.Buffer) error {
	if src == nil || !src.IsValid() {
		return fmt.Errorf("%w: input buffer is nil or closed", raster.ErrInvalidShape)
	}

	if err := safe.ValidateDimensions(src.Cols(), src.Rows(), "pipeline input"); err != nil {
		return fmt.Errorf("%w: %v", raster.ErrInvalidShape, err)
	}

	if ch := src.Channels(); ch != 1 && ch != 3 {
		return fmt.Errorf("%w: unsupported channel count %d", raster.ErrInvalidShape, ch)
	}

	return nil
}

// checkOutputShape requires out to be a three-channel Buffer of src's size.
func checkOutputShape(out, src *raster.Buffer) error {
	rows, cols, channels := out.Rows(), out.Cols(), out.Channels()
	if rows != src.Rows() || cols != src.Cols() || channels != 3 {
		return fmt.Errorf("%w: output %dx%dx%d does not match input %dx%d",
			raster.ErrInvalidShape, cols, rows, channels, src.Cols(), src.Rows())
	}
	return nil
}
