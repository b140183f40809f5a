package conversion

import (
	"fmt"
	"image"

	"xray-mike/internal/raster"

	"github.com/disintegration/imaging"
)

// ImageToBuffer converts a decoded Go image to a three-channel RGB Buffer.
// Alpha is discarded.
func ImageToBuffer(img image.Image) (*raster.Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: input image is nil", raster.ErrInvalidShape)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty image bounds %v", raster.ErrInvalidShape, bounds)
	}

	var data []byte
	switch typedImg := img.(type) {
	case *image.RGBA:
		if !typedImg.Opaque() {
			// premultiplied; let imaging recover the straight colour
			data = genericToRGB(img, width, height)
			break
		}
		data = rgbaToRGB(typedImg.Pix, typedImg.Stride, width, height)
	case *image.NRGBA:
		data = rgbaToRGB(typedImg.Pix, typedImg.Stride, width, height)
	case *image.Gray:
		data = grayToRGB(typedImg, width, height)
	default:
		data = genericToRGB(img, width, height)
	}

	return raster.NewBufferFromBytes(height, width, 3, data)
}

// BufferToRGBA converts a Buffer to an opaque *image.RGBA. Luminance is
// replicated to all three colour channels.
func BufferToRGBA(buf *raster.Buffer) (*image.RGBA, error) {
	if !buf.IsValid() {
		return nil, fmt.Errorf("%w: buffer is not valid", raster.ErrInvalidShape)
	}

	rgb, err := buf.Replicate()
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	return rgbToRGBA(rgb.Bytes(), rgb.Rows(), rgb.Cols()), nil
}

func rgbToRGBA(samples []byte, rows, cols int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		src := samples[y*cols*3 : (y+1)*cols*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+cols*4]
		for x := 0; x < cols; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 255
		}
	}
	return img
}

// rgbaToRGB drops the alpha byte of RGBA or NRGBA pixel rows.
func rgbaToRGB(pix []byte, stride, width, height int) []byte {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := pix[y*stride : y*stride+width*4]
		out := data[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			out[x*3] = row[x*4]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+2]
		}
	}
	return data
}

func grayToRGB(img *image.Gray, width, height int) []byte {
	data := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for x, v := range row {
			i := (y*width + x) * 3
			data[i], data[i+1], data[i+2] = v, v, v
		}
	}
	return data
}

// genericToRGB normalises paletted, YCbCr, 16-bit and other decoder
// outputs to NRGBA first.
func genericToRGB(img image.Image, width, height int) []byte {
	nrgba := imaging.Clone(img)
	return rgbaToRGB(nrgba.Pix, nrgba.Stride, width, height)
}
