// Package raster holds the two image representations that flow through the
// enhancement pipeline: Buffer, an 8-bit image whose samples are always in
// [0,255], and Field, a float32 image of the same shape that may carry
// out-of-range or signed values between stages. A Field only becomes a
// Buffer again through Field.Clamp.
package raster

import (
	"errors"
	"fmt"

	"xray-mike/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var (
	ErrInvalidShape = errors.New("invalid image shape")
	ErrNonFinite    = errors.New("non-finite sample")
)

// Buffer is an 8-bit image with one (luminance) or three (RGB) channels.
type Buffer struct {
	m *safe.Mat
}

// NewBuffer takes ownership of mat, which must be CV_8UC1 or CV_8UC3.
func NewBuffer(mat gocv.Mat) (*Buffer, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: empty Mat", ErrInvalidShape)
	}

	if t := mat.Type(); t != gocv.MatTypeCV8UC1 && t != gocv.MatTypeCV8UC3 {
		mat.Close()
		return nil, fmt.Errorf("%w: want 8-bit with 1 or 3 channels, got type %d", ErrInvalidShape, int(t))
	}

	m, err := safe.Adopt(mat, "buffer")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	return &Buffer{m: m}, nil
}

// NewBufferFromBytes copies interleaved samples into a new Buffer.
func NewBufferFromBytes(rows, cols, channels int, data []byte) (*Buffer, error) {
	var mt gocv.MatType
	switch channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	default:
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidShape, channels)
	}

	if err := safe.ValidateDimensions(cols, rows, "buffer from bytes"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrInvalidShape, len(data), cols, rows, channels)
	}

	view, err := gocv.NewMatFromBytes(rows, cols, mt, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	defer view.Close()

	// view aliases data; clone so the Buffer owns its samples
	return NewBuffer(view.Clone())
}

func (b *Buffer) IsValid() bool {
	return b != nil && b.m.IsValid()
}

func (b *Buffer) Rows() int     { return b.m.Rows() }
func (b *Buffer) Cols() int     { return b.m.Cols() }
func (b *Buffer) Channels() int { return b.m.Channels() }

// Mat returns the backing Mat for read-only use by gocv calls.
func (b *Buffer) Mat() gocv.Mat {
	return b.m.GetMat()
}

// Bytes returns a copy of the interleaved samples, row-major.
func (b *Buffer) Bytes() []byte {
	mat := b.m.GetMat()
	return mat.ToBytes()
}

func (b *Buffer) Clone() (*Buffer, error) {
	m, err := b.m.Clone()
	if err != nil {
		return nil, err
	}
	return &Buffer{m: m}, nil
}

// Luminance returns the single-channel brightness view. A one-channel
// Buffer is cloned as is.
func (b *Buffer) Luminance() (*Buffer, error) {
	if err := safe.ValidateMatForOperation(b.m, "luminance"); err != nil {
		return nil, err
	}

	if b.Channels() == 1 {
		return b.Clone()
	}

	gray := gocv.NewMat()
	gocv.CvtColor(b.Mat(), &gray, gocv.ColorRGBToGray)
	return NewBuffer(gray)
}

// Replicate copies a luminance Buffer into all three RGB channels. A
// three-channel Buffer is cloned as is.
func (b *Buffer) Replicate() (*Buffer, error) {
	if err := safe.ValidateMatForOperation(b.m, "replicate"); err != nil {
		return nil, err
	}

	if b.Channels() == 3 {
		return b.Clone()
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(b.Mat(), &rgb, gocv.ColorGrayToRGB)
	return NewBuffer(rgb)
}

// ToField widens the samples to float32 without scaling.
func (b *Buffer) ToField() (*Field, error) {
	if err := safe.ValidateMatForOperation(b.m, "to field"); err != nil {
		return nil, err
	}

	src := b.Mat()
	f := gocv.NewMat()
	src.ConvertTo(&f, gocv.MatTypeCV32F)
	return NewField(f)
}

func (b *Buffer) Close() {
	if b == nil {
		return
	}
	b.m.Close()
}
