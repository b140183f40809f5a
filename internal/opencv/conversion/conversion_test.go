package conversion

import (
	"image"
	"image/color"
	"testing"

	"xray-mike/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageToBufferKeepsRGBOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 0, A: 255})

	buf, err := ImageToBuffer(img)
	require.NoError(t, err)
	defer buf.Close()

	assert.Equal(t, 3, buf.Channels())
	assert.Equal(t, []byte{10, 20, 30, 200, 100, 0}, buf.Bytes())
}

func TestImageToBufferHonoursSubImageBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	buf, err := ImageToBuffer(sub)
	require.NoError(t, err)
	defer buf.Close()

	assert.Equal(t, 2, buf.Rows())
	assert.Equal(t, 2, buf.Cols())
	assert.Equal(t, []byte{1, 2, 3}, buf.Bytes()[6:9])
}

func TestGrayAndGenericInputs(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.SetGray(0, 0, color.Gray{Y: 77})

	buf, err := ImageToBuffer(gray)
	require.NoError(t, err)
	assert.Equal(t, []byte{77, 77, 77}, buf.Bytes())
	buf.Close()

	paletted := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.RGBA{R: 5, G: 6, B: 7, A: 255}})
	buf, err = ImageToBuffer(paletted)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7}, buf.Bytes())
	buf.Close()
}

func TestImageToBufferRejectsEmpty(t *testing.T) {
	_, err := ImageToBuffer(nil)
	require.ErrorIs(t, err, raster.ErrInvalidShape)

	_, err = ImageToBuffer(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	require.ErrorIs(t, err, raster.ErrInvalidShape)
}

func TestTranslucentRGBAMatchesNRGBA(t *testing.T) {
	straight := color.NRGBA{R: 200, G: 100, B: 40, A: 128}

	n := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	n.SetNRGBA(0, 0, straight)
	n.SetNRGBA(1, 0, color.NRGBA{R: 9, G: 9, B: 9, A: 255})

	p := image.NewRGBA(image.Rect(0, 0, 2, 1))
	p.Set(0, 0, straight)
	p.Set(1, 0, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	require.False(t, p.Opaque())

	fromN, err := ImageToBuffer(n)
	require.NoError(t, err)
	defer fromN.Close()

	fromP, err := ImageToBuffer(p)
	require.NoError(t, err)
	defer fromP.Close()

	want := fromN.Bytes()
	got := fromP.Bytes()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDeltaf(t, int(want[i]), int(got[i]), 1, "sample %d", i)
	}
	assert.InDelta(t, 200, int(got[0]), 1, "red must not be darkened by alpha")
}

func TestBufferToRGBA(t *testing.T) {
	buf, err := raster.NewBufferFromBytes(1, 2, 3, []byte{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	defer buf.Close()

	img, err := BufferToRGBA(buf)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 4, G: 5, B: 6, A: 255}, img.RGBAAt(1, 0))

	lum, err := raster.NewBufferFromBytes(1, 2, 1, []byte{9, 8})
	require.NoError(t, err)
	defer lum.Close()

	out, err := BufferToRGBA(lum)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 9, G: 9, B: 9, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 8, G: 8, B: 8, A: 255}, out.RGBAAt(1, 0))

	lum.Close()
	_, err = BufferToRGBA(lum)
	assert.ErrorIs(t, err, raster.ErrInvalidShape)
}
