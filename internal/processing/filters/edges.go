package filters

import (
	"fmt"

	"xray-mike/internal/models"
	"xray-mike/internal/raster"

	"gocv.io/x/gocv"
)

const (
	cannyLow      = 50
	cannyHigh     = 150
	edgeWeightMul = 0.3
)

type EdgeOverlayFilter struct{}

func NewEdgeOverlayFilter() *EdgeOverlayFilter {
	return &EdgeOverlayFilter{}
}

func (e *EdgeOverlayFilter) Name() string {
	return "edge_overlay_filter"
}

func (e *EdgeOverlayFilter) ShouldExecute(params models.Params) bool {
	return params.Edge > 0
}

func (e *EdgeOverlayFilter) Apply(input *raster.Field, params models.Params) (*raster.Field, error) {
	return OverlayEdges(input, params.Edge)
}

// EdgeMap runs Canny (50/150) on the luminance of the saturated input and
// returns the binary map with as many channels as input.
func EdgeMap(input *raster.Field) (*raster.Buffer, error) {
	saturated, err := input.Clamp()
	if err != nil {
		return nil, fmt.Errorf("edge map saturation: %w", err)
	}
	defer saturated.Close()

	lum, err := saturated.Luminance()
	if err != nil {
		return nil, err
	}
	defer lum.Close()

	edges := gocv.NewMat()
	gocv.Canny(lum.Mat(), &edges, cannyLow, cannyHigh)

	edgeBuf, err := raster.NewBuffer(edges)
	if err != nil {
		return nil, err
	}

	if input.Channels() == 1 {
		return edgeBuf, nil
	}
	defer edgeBuf.Close()

	return edgeBuf.Replicate()
}

// OverlayEdges adds the edge map to input with weight strength*0.3. The
// result may exceed 255. Strength <= 0 returns an unmodified copy.
func OverlayEdges(input *raster.Field, strength float64) (*raster.Field, error) {
	if strength <= 0 {
		return input.Clone()
	}

	edges, err := EdgeMap(input)
	if err != nil {
		return nil, err
	}
	defer edges.Close()

	edgeField, err := edges.ToField()
	if err != nil {
		return nil, err
	}
	defer edgeField.Close()

	dst := gocv.NewMat()
	gocv.AddWeighted(input.Mat(), 1.0, edgeField.Mat(), strength*edgeWeightMul, 0, &dst)

	return raster.NewField(dst)
}
