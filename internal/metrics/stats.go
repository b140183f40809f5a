// Package metrics summarises enhancement output for logs and tests.
package metrics

import (
	"fmt"

	"xray-mike/internal/raster"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Stats describes one image.
type Stats struct {
	Width             int
	Height            int
	Channels          int
	Mean              float64 // over all samples
	StdDev            float64 // over all samples
	LuminanceVariance float64 // unbiased, luminance only
	HistogramPeak     int     // largest luminance bin count
	LaplacianVariance float64 // high-frequency energy of luminance
}

func (s Stats) Fields() map[string]interface{} {
	return map[string]interface{}{
		"width":              s.Width,
		"height":             s.Height,
		"channels":           s.Channels,
		"mean":               s.Mean,
		"std_dev":            s.StdDev,
		"luminance_variance": s.LuminanceVariance,
		"histogram_peak":     s.HistogramPeak,
		"laplacian_variance": s.LaplacianVariance,
	}
}

func Compute(buf *raster.Buffer) (Stats, error) {
	if !buf.IsValid() {
		return Stats{}, fmt.Errorf("%w: cannot compute stats of invalid buffer", raster.ErrInvalidShape)
	}

	samples := toFloat64(buf.Bytes())
	mean, std := stat.MeanStdDev(samples, nil)

	lumVar, err := Variance(buf)
	if err != nil {
		return Stats{}, err
	}

	hist, err := Histogram(buf)
	if err != nil {
		return Stats{}, err
	}

	lapVar, err := LaplacianVariance(buf)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		Width:             buf.Cols(),
		Height:            buf.Rows(),
		Channels:          buf.Channels(),
		Mean:              mean,
		StdDev:            std,
		LuminanceVariance: lumVar,
		HistogramPeak:     Peak(hist),
		LaplacianVariance: lapVar,
	}, nil
}

// Histogram counts luminance values.
func Histogram(buf *raster.Buffer) ([256]int, error) {
	var hist [256]int

	lum, err := buf.Luminance()
	if err != nil {
		return hist, err
	}
	defer lum.Close()

	for _, v := range lum.Bytes() {
		hist[v]++
	}
	return hist, nil
}

func Peak(hist [256]int) int {
	peak := 0
	for _, n := range hist {
		if n > peak {
			peak = n
		}
	}
	return peak
}

// LaplacianVariance is the variance of the 3x3 Laplacian of luminance.
func LaplacianVariance(buf *raster.Buffer) (float64, error) {
	lum, err := buf.Luminance()
	if err != nil {
		return 0, err
	}
	defer lum.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(lum.Mat(), &lap, gocv.MatTypeCV32F, 3, 1, 0, gocv.BorderReplicate)

	data, err := lap.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("laplacian samples: %w", err)
	}

	values := make([]float64, len(data))
	for i, v := range data {
		values[i] = float64(v)
	}
	return stat.Variance(values, nil), nil
}

// Variance of a Buffer's luminance.
func Variance(buf *raster.Buffer) (float64, error) {
	lum, err := buf.Luminance()
	if err != nil {
		return 0, err
	}
	defer lum.Close()

	return stat.Variance(toFloat64(lum.Bytes()), nil), nil
}

func toFloat64(b []byte) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		out[i] = float64(v)
	}
	return out
}
