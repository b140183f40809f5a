package recovery

import (
	"fmt"
	"image"
	"math"

	"xray-mike/internal/processing/colormap"
	"xray-mike/internal/raster"

	"gocv.io/x/gocv"
)

// neutral applies a saturating linear gain to luminance.
func neutral(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	lum, err := src.Luminance()
	if err != nil {
		return nil, fmt.Errorf("neutral luminance: %w", err)
	}
	defer lum.Close()

	scaled := gocv.NewMat()
	gocv.ConvertScaleAbs(lum.Mat(), &scaled, NeutralGain(intensity), 0)

	gray, err := raster.NewBuffer(scaled)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return grayToField(gray)
}

// clahe equalises luminance per tile of an 8x8 grid with a clip limit that
// grows with intensity; OpenCV interpolates bilinearly between tiles.
func clahe(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	lum, err := src.Luminance()
	if err != nil {
		return nil, fmt.Errorf("clahe luminance: %w", err)
	}
	defer lum.Close()

	eq := gocv.NewCLAHEWithParams(ClipLimit(intensity), image.Point{X: claheTileGrid, Y: claheTileGrid})
	defer eq.Close()

	equalized := gocv.NewMat()
	eq.Apply(lum.Mat(), &equalized)

	gray, err := raster.NewBuffer(equalized)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return grayToField(gray)
}

// retinex is multi-scale retinex over all three channels. The log ratio is
// taken in natural log and rescaled to base 10 together with the averaging
// and the intensity gain.
func retinex(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	field, err := src.ToField()
	if err != nil {
		return nil, fmt.Errorf("retinex widen: %w", err)
	}
	defer field.Close()

	base := field.Mat()
	shifted := base.Clone()
	defer shifted.Close()
	shifted.AddFloat(retinexLogShift)

	logImg := gocv.NewMat()
	defer logImg.Close()
	gocv.Log(shifted, &logImg)

	msr := gocv.NewMatWithSize(shifted.Rows(), shifted.Cols(), shifted.Type())
	defer msr.Close()
	msr.SetTo(gocv.NewScalar(0, 0, 0, 0))

	for _, sigma := range RetinexScales {
		if err := accumulateReflectance(shifted, logImg, &msr, sigma); err != nil {
			return nil, err
		}
	}

	msr.MultiplyFloat(float32(intensity * retinexGain / (float64(len(RetinexScales)) * math.Ln10)))

	normalized := gocv.NewMat()
	gocv.Normalize(msr, &normalized, 0, 255, gocv.NormMinMax)

	return raster.NewField(normalized)
}

func accumulateReflectance(shifted, logImg gocv.Mat, msr *gocv.Mat, sigma float64) error {
	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(shifted, &blur, image.Point{}, sigma, sigma, gocv.BorderDefault)
	if blur.Empty() {
		return fmt.Errorf("retinex blur at sigma %g produced no output", sigma)
	}

	logBlur := gocv.NewMat()
	defer logBlur.Close()
	gocv.Log(blur, &logBlur)

	reflectance := gocv.NewMat()
	defer reflectance.Close()
	gocv.Subtract(logImg, logBlur, &reflectance)

	gocv.Add(*msr, reflectance, msr)
	return nil
}

// adaptive blends the inverted local threshold mask into luminance.
func adaptive(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	lum, err := src.Luminance()
	if err != nil {
		return nil, fmt.Errorf("adaptive luminance: %w", err)
	}
	defer lum.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.AdaptiveThreshold(lum.Mat(), &mask, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinary, BlockSize(intensity), adaptiveC)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(mask, &inverted)

	lumField, err := lum.ToField()
	if err != nil {
		return nil, err
	}
	defer lumField.Close()

	invertedF := gocv.NewMat()
	defer invertedF.Close()
	inverted.ConvertTo(&invertedF, gocv.MatTypeCV32F)

	alpha := AdaptiveAlpha(intensity)
	blended := gocv.NewMat()
	gocv.AddWeighted(lumField.Mat(), 1-alpha, invertedF, alpha, 0, &blended)

	gray, err := raster.NewField(blended)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return gray.Replicate()
}

// wavelet boosts the high-frequency residual left after a 5x5 Gaussian
// low-pass. The residual keeps its sign.
func wavelet(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	field, err := src.ToField()
	if err != nil {
		return nil, fmt.Errorf("wavelet widen: %w", err)
	}
	defer field.Close()

	img := field.Mat()

	lowPass := gocv.NewMat()
	defer lowPass.Close()
	gocv.GaussianBlur(img, &lowPass, image.Point{X: waveletKernel, Y: waveletKernel}, 0, 0, gocv.BorderDefault)

	residual := gocv.NewMat()
	defer residual.Close()
	gocv.Subtract(img, lowPass, &residual)

	boosted := gocv.NewMat()
	gocv.AddWeighted(img, 1, residual, intensity*waveletGain, 0, &boosted)

	return raster.NewField(boosted)
}

// gradient paints the Sobel magnitude of luminance with the heat colormap
// and mixes it over the grey original.
func gradient(src *raster.Buffer, intensity float64) (*raster.Field, error) {
	lum, err := src.Luminance()
	if err != nil {
		return nil, fmt.Errorf("gradient luminance: %w", err)
	}
	defer lum.Close()

	magnitude, err := GradientMagnitude(lum)
	if err != nil {
		return nil, err
	}
	defer magnitude.Close()

	heat := gocv.NewMat()
	defer heat.Close()
	colormap.Apply(magnitude.Mat(), &heat)

	heatF := gocv.NewMat()
	defer heatF.Close()
	heat.ConvertTo(&heatF, gocv.MatTypeCV32F)

	gray, err := grayToField(lum)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	alpha := GradientAlpha(intensity)
	blended := gocv.NewMat()
	gocv.AddWeighted(gray.Mat(), 1-alpha, heatF, alpha, 0, &blended)

	return raster.NewField(blended)
}

// GradientMagnitude returns sqrt(gx^2+gy^2) of a luminance Buffer from 3x3
// Sobel derivatives, min-max normalised to an 8-bit Buffer.
func GradientMagnitude(lum *raster.Buffer) (*raster.Buffer, error) {
	if lum.Channels() != 1 {
		return nil, fmt.Errorf("%w: gradient magnitude expects luminance", raster.ErrInvalidShape)
	}

	gx := gocv.NewMat()
	defer gx.Close()
	gocv.Sobel(lum.Mat(), &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)

	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(lum.Mat(), &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(gx, gy, &mag)

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(mag, &normalized, 0, 255, gocv.NormMinMax)

	mag8 := gocv.NewMat()
	normalized.ConvertTo(&mag8, gocv.MatTypeCV8U)

	return raster.NewBuffer(mag8)
}
