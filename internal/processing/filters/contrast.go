package filters

import (
	"xray-mike/internal/models"
	"xray-mike/internal/raster"
)

type ContrastFilter struct{}

func NewContrastFilter() *ContrastFilter {
	return &ContrastFilter{}
}

func (c *ContrastFilter) Name() string {
	return "contrast_filter"
}

func (c *ContrastFilter) ShouldExecute(params models.Params) bool {
	return params.Contrast != 1.0
}

func (c *ContrastFilter) Apply(input *raster.Field, params models.Params) (*raster.Field, error) {
	return AdjustContrast(input, params.Contrast)
}

// AdjustContrast scales every sample by factor with no offset.
func AdjustContrast(input *raster.Field, factor float64) (*raster.Field, error) {
	if factor == 1.0 {
		return input.Clone()
	}
	return input.Scale(factor)
}
