package filters

import (
	"fmt"
	"image"

	"xray-mike/internal/models"
	"xray-mike/internal/opencv/safe"
	"xray-mike/internal/raster"

	"gocv.io/x/gocv"
)

type SharpenFilter struct{}

func NewSharpenFilter() *SharpenFilter {
	return &SharpenFilter{}
}

func (s *SharpenFilter) Name() string {
	return "sharpen_filter"
}

func (s *SharpenFilter) ShouldExecute(params models.Params) bool {
	return params.Sharpen > 0
}

func (s *SharpenFilter) Apply(input *raster.Field, params models.Params) (*raster.Field, error) {
	return Sharpen(input, params.Sharpen)
}

// Sharpen convolves every channel with a cross kernel whose centre is
// 5+strength and whose orthogonal neighbours are -1. Borders replicate the
// nearest pixel. Strength <= 0 returns an unmodified copy.
func Sharpen(input *raster.Field, strength float64) (*raster.Field, error) {
	if strength <= 0 {
		return input.Clone()
	}

	kernel, err := sharpenKernel(strength)
	if err != nil {
		return nil, err
	}
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.Filter2D(input.Mat(), &dst, gocv.MatTypeCV32F, kernel.GetMat(), image.Point{X: -1, Y: -1}, 0, gocv.BorderReplicate)

	return raster.NewField(dst)
}

func sharpenKernel(strength float64) (*safe.Mat, error) {
	kernel, err := safe.NewMat(3, 3, gocv.MatTypeCV32FC1, "sharpen_kernel")
	if err != nil {
		return nil, fmt.Errorf("failed to create kernel Mat: %w", err)
	}

	k := kernel.GetMat()
	k.SetTo(gocv.NewScalar(0, 0, 0, 0))
	k.SetFloatAt(0, 1, -1)
	k.SetFloatAt(1, 0, -1)
	k.SetFloatAt(1, 1, float32(5+strength))
	k.SetFloatAt(1, 2, -1)
	k.SetFloatAt(2, 1, -1)

	return kernel, nil
}
