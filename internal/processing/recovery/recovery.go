// Package recovery implements the six detail-recovery algorithms. Each takes
// the RGB input Buffer and the intensity and produces an unclamped
// three-channel Field.
package recovery

import (
	"fmt"
	"math"

	"xray-mike/internal/models"
	"xray-mike/internal/raster"
)

// Tuned constants.
const (
	claheTileGrid   = 8
	claheClipBase   = 2.0
	claheClipSlope  = 0.5
	adaptiveBase    = 31
	adaptiveSlope   = 10
	adaptiveC       = 2
	adaptiveMaxMix  = 0.8
	gradientMaxMix  = 0.7
	waveletKernel   = 5
	waveletGain     = 0.5
	neutralGain     = 0.1
	retinexGain     = 10
	retinexLogShift = 1.0
)

// RetinexScales are the Gaussian standard deviations of the multi-scale
// decomposition.
var RetinexScales = []float64{15, 80, 250}

// Recover runs the algorithm selected by mode.
func Recover(src *raster.Buffer, mode models.Mode, intensity float64) (*raster.Field, error) {
	if !src.IsValid() {
		return nil, fmt.Errorf("%w: recovery input is not a valid buffer", raster.ErrInvalidShape)
	}

	if src.Channels() != 3 {
		return nil, fmt.Errorf("%w: recovery expects 3 channels, got %d", raster.ErrInvalidShape, src.Channels())
	}

	switch mode {
	case models.ModeNeutral:
		return neutral(src, intensity)
	case models.ModeCLAHE:
		return clahe(src, intensity)
	case models.ModeRetinex:
		return retinex(src, intensity)
	case models.ModeAdaptive:
		return adaptive(src, intensity)
	case models.ModeWavelet:
		return wavelet(src, intensity)
	case models.ModeGradient:
		return gradient(src, intensity)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedMode, string(mode))
	}
}

// ClipLimit is the CLAHE clip limit for intensity.
func ClipLimit(intensity float64) float64 {
	return claheClipBase + intensity*claheClipSlope
}

// BlockSize is the adaptive threshold neighbourhood for intensity: the
// integer part of 31 + intensity*10, bumped to the next odd value.
func BlockSize(intensity float64) int {
	size := int(adaptiveBase + intensity*adaptiveSlope)
	if size < adaptiveBase {
		size = adaptiveBase
	}
	if size%2 == 0 {
		size++
	}
	return size
}

// AdaptiveAlpha is the weight of the inverted threshold mask.
func AdaptiveAlpha(intensity float64) float64 {
	return math.Min(intensity/10, adaptiveMaxMix)
}

// GradientAlpha is the weight of the heat map over the grey original.
func GradientAlpha(intensity float64) float64 {
	return math.Min(intensity/10, gradientMaxMix)
}

// NeutralGain is the linear gain applied to luminance in neutral mode.
func NeutralGain(intensity float64) float64 {
	return 1 + intensity*neutralGain
}

// grayToField replicates a luminance Buffer to RGB and widens it.
func grayToField(gray *raster.Buffer) (*raster.Field, error) {
	rgb, err := gray.Replicate()
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	return rgb.ToField()
}
