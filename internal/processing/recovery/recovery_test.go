package recovery

import (
	"math"
	"testing"

	"xray-mike/internal/metrics"
	"xray-mike/internal/models"
	"xray-mike/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRGB(t *testing.T, rows, cols int, fn func(x, y int) (uint8, uint8, uint8)) *raster.Buffer {
	t.Helper()

	data := make([]byte, 0, rows*cols*3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, g, b := fn(x, y)
			data = append(data, r, g, b)
		}
	}

	buf, err := raster.NewBufferFromBytes(rows, cols, 3, data)
	require.NoError(t, err)
	return buf
}

func gray(v uint8) (uint8, uint8, uint8) { return v, v, v }

func clamped(t *testing.T, f *raster.Field) *raster.Buffer {
	t.Helper()
	buf, err := f.Clamp()
	require.NoError(t, err)
	return buf
}

func recoverBytes(t *testing.T, src *raster.Buffer, mode models.Mode, intensity float64) []byte {
	t.Helper()

	f, err := Recover(src, mode, intensity)
	require.NoError(t, err)
	defer f.Close()

	buf := clamped(t, f)
	defer buf.Close()
	return buf.Bytes()
}

// texture is a low-contrast pattern whose histogram peaks at 128.
func texture(x, y int) (uint8, uint8, uint8) {
	v := 128 + math.Round(12*math.Sin(float64(x)/11)*math.Sin(float64(y)/13))
	return gray(uint8(v))
}

func TestFormulas(t *testing.T) {
	assert.Equal(t, 2.0, ClipLimit(0))
	assert.Equal(t, 4.25, ClipLimit(4.5))
	assert.Equal(t, 7.0, ClipLimit(10))

	assert.Equal(t, 31, BlockSize(0))
	assert.Equal(t, 37, BlockSize(0.55))
	assert.Equal(t, 77, BlockSize(4.5))
	assert.Equal(t, 131, BlockSize(10))

	assert.Equal(t, 0.5, AdaptiveAlpha(5))
	assert.Equal(t, 0.8, AdaptiveAlpha(9))
	assert.Equal(t, 0.7, GradientAlpha(9))
	assert.Equal(t, 0.3, GradientAlpha(3))
	assert.Equal(t, 1.5, NeutralGain(5))

	assert.Equal(t, []float64{15, 80, 250}, RetinexScales)
}

func TestEveryModeKeepsShapeAndRange(t *testing.T) {
	src := newRGB(t, 40, 56, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x * 4), uint8(y * 6), uint8((x + y) % 256)
	})
	defer src.Close()

	for _, mode := range models.Modes() {
		for _, intensity := range []float64{0, 4.5, 10} {
			f, err := Recover(src, mode, intensity)
			require.NoErrorf(t, err, "mode %s intensity %g", mode, intensity)

			assert.Equal(t, 40, f.Rows())
			assert.Equal(t, 56, f.Cols())
			assert.Equal(t, 3, f.Channels())
			assert.NoError(t, f.CheckFinite())
			f.Close()
		}
	}
}

func TestUnsupportedMode(t *testing.T) {
	src := newRGB(t, 4, 4, func(int, int) (uint8, uint8, uint8) { return gray(1) })
	defer src.Close()

	_, err := Recover(src, models.Mode("infrared"), 1)
	require.ErrorIs(t, err, models.ErrUnsupportedMode)
}

func TestRejectsLuminanceInput(t *testing.T) {
	lum, err := raster.NewBufferFromBytes(2, 2, 1, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	defer lum.Close()

	_, err = Recover(lum, models.ModeNeutral, 1)
	require.ErrorIs(t, err, raster.ErrInvalidShape)
}

func TestNeutralZeroIsIdentityOnLuminance(t *testing.T) {
	src := newRGB(t, 16, 16, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x * 16), uint8(y * 16), uint8(255 - x*y)
	})
	defer src.Close()

	lum, err := src.Luminance()
	require.NoError(t, err)
	defer lum.Close()
	want, err := lum.Replicate()
	require.NoError(t, err)
	defer want.Close()

	assert.Equal(t, want.Bytes(), recoverBytes(t, src, models.ModeNeutral, 0))
}

func TestNeutralGainSaturates(t *testing.T) {
	src := newRGB(t, 2, 2, func(x, y int) (uint8, uint8, uint8) {
		if x == 0 {
			return gray(128)
		}
		return gray(200)
	})
	defer src.Close()

	out := recoverBytes(t, src, models.ModeNeutral, 5)
	assert.Equal(t, uint8(192), out[0])
	assert.Equal(t, uint8(255), out[3], "200*1.5 saturates")
}

func TestCLAHEFlattensHistogram(t *testing.T) {
	src := newRGB(t, 256, 256, texture)
	defer src.Close()

	before, err := metrics.Histogram(src)
	require.NoError(t, err)

	f, err := Recover(src, models.ModeCLAHE, 4.5)
	require.NoError(t, err)
	defer f.Close()
	out := clamped(t, f)
	defer out.Close()

	after, err := metrics.Histogram(out)
	require.NoError(t, err)

	assert.Less(t, metrics.Peak(after), metrics.Peak(before))
}

func TestCLAHEChannelsEqual(t *testing.T) {
	src := newRGB(t, 32, 32, texture)
	defer src.Close()

	out := recoverBytes(t, src, models.ModeCLAHE, 2)
	for i := 0; i < len(out); i += 3 {
		require.Equal(t, out[i], out[i+1])
		require.Equal(t, out[i], out[i+2])
	}
}

func TestRetinexContrastNonDecreasingInIntensity(t *testing.T) {
	src := newRGB(t, 48, 48, func(x, y int) (uint8, uint8, uint8) {
		r, g, b := texture(x, y)
		if x > 24 {
			return r / 2, g / 2, b / 2
		}
		return r, g, b
	})
	defer src.Close()

	prev := -1.0
	for _, intensity := range []float64{0, 1, 4.5, 10} {
		f, err := Recover(src, models.ModeRetinex, intensity)
		require.NoError(t, err)
		out := clamped(t, f)
		f.Close()

		stats, err := metrics.Compute(out)
		out.Close()
		require.NoError(t, err)

		assert.GreaterOrEqualf(t, stats.StdDev, prev-0.5, "intensity %g", intensity)
		prev = stats.StdDev
	}
	assert.Greater(t, prev, 0.0)
}

func TestRetinexZeroIntensityIsFlat(t *testing.T) {
	src := newRGB(t, 24, 24, texture)
	defer src.Close()

	for _, v := range recoverBytes(t, src, models.ModeRetinex, 0) {
		require.Equal(t, uint8(0), v)
	}
}

func TestAdaptiveZeroIntensityKeepsLuminance(t *testing.T) {
	src := newRGB(t, 40, 40, texture)
	defer src.Close()

	lum, err := src.Luminance()
	require.NoError(t, err)
	defer lum.Close()
	want, err := lum.Replicate()
	require.NoError(t, err)
	defer want.Close()

	assert.Equal(t, want.Bytes(), recoverBytes(t, src, models.ModeAdaptive, 0))
}

func TestAdaptiveMixesInvertedMask(t *testing.T) {
	// a dark square on a bright field falls below its local mean
	src := newRGB(t, 64, 64, func(x, y int) (uint8, uint8, uint8) {
		if x >= 28 && x < 36 && y >= 28 && y < 36 {
			return gray(40)
		}
		return gray(200)
	})
	defer src.Close()

	out := recoverBytes(t, src, models.ModeAdaptive, 10)

	centre := (32*64 + 32) * 3
	// 0.2*40 + 0.8*255
	assert.InDelta(t, 212, int(out[centre]), 1)
}

func TestWaveletResidualKeepsSign(t *testing.T) {
	src := newRGB(t, 16, 16, func(x, y int) (uint8, uint8, uint8) {
		if x < 8 {
			return gray(100)
		}
		return gray(150)
	})
	defer src.Close()

	f, err := Recover(src, models.ModeWavelet, 10)
	require.NoError(t, err)
	defer f.Close()

	samples, err := f.Samples()
	require.NoError(t, err)

	row := 8 * 16 * 3
	assert.Less(t, samples[row+7*3], float32(100), "dark side of the step undershoots")
	assert.Greater(t, samples[row+8*3], float32(150), "bright side of the step overshoots")
	assert.InDelta(t, 100, samples[row], 0.01, "flat area is unchanged")
}

func TestGradientHeatBandOnSplit(t *testing.T) {
	src := newRGB(t, 64, 64, func(x, y int) (uint8, uint8, uint8) {
		if x < 32 {
			return gray(0)
		}
		return gray(255)
	})
	defer src.Close()

	out := recoverBytes(t, src, models.ModeGradient, 5)
	px := func(x, y int) (r, b int) {
		i := (y*64 + x) * 3
		return int(out[i]), int(out[i+2])
	}

	for _, y := range []int{0, 20, 63} {
		for _, x := range []int{31, 32} {
			r, b := px(x, y)
			assert.Greaterf(t, r, b, "split column %d row %d should be warm", x, y)
		}
		for _, x := range []int{0, 10, 50, 63} {
			r, b := px(x, y)
			assert.Greaterf(t, b, r, "column %d row %d should be cool", x, y)
		}
	}
}

func TestGradientMagnitudeNormalised(t *testing.T) {
	src := newRGB(t, 8, 8, func(x, y int) (uint8, uint8, uint8) { return gray(uint8(x * 30)) })
	defer src.Close()

	lum, err := src.Luminance()
	require.NoError(t, err)
	defer lum.Close()

	mag, err := GradientMagnitude(lum)
	require.NoError(t, err)
	defer mag.Close()

	peak := 0
	for _, v := range mag.Bytes() {
		peak = max(peak, int(v))
	}
	assert.Equal(t, 255, peak)

	_, err = GradientMagnitude(src)
	assert.ErrorIs(t, err, raster.ErrInvalidShape)
}

func TestRecoverIsDeterministic(t *testing.T) {
	src := newRGB(t, 33, 47, func(x, y int) (uint8, uint8, uint8) {
		return uint8(x*y + 3), uint8(x * 5), uint8(y * 7)
	})
	defer src.Close()

	for _, mode := range models.Modes() {
		first := recoverBytes(t, src, mode, 6)
		second := recoverBytes(t, src, mode, 6)
		assert.Equalf(t, first, second, "mode %s", mode)
	}
}

func TestRecoverDoesNotModifyInput(t *testing.T) {
	src := newRGB(t, 20, 20, texture)
	defer src.Close()
	before := src.Bytes()

	for _, mode := range models.Modes() {
		f, err := Recover(src, mode, 7)
		require.NoError(t, err)
		f.Close()
	}

	assert.Equal(t, before, src.Bytes())
}
