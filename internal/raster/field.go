package raster

import (
	"fmt"
	"math"

	"xray-mike/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Field is a float32 image with one or three channels. Its values are not
// bounded.
type Field struct {
	m *safe.Mat
}

// NewField takes ownership of mat, which must be CV_32FC1 or CV_32FC3.
func NewField(mat gocv.Mat) (*Field, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: empty Mat", ErrInvalidShape)
	}

	if t := mat.Type(); t != gocv.MatTypeCV32FC1 && t != gocv.MatTypeCV32FC3 {
		mat.Close()
		return nil, fmt.Errorf("%w: want float32 with 1 or 3 channels, got type %d", ErrInvalidShape, int(t))
	}

	m, err := safe.Adopt(mat, "field")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	return &Field{m: m}, nil
}

func (f *Field) IsValid() bool {
	return f != nil && f.m.IsValid()
}

func (f *Field) Rows() int     { return f.m.Rows() }
func (f *Field) Cols() int     { return f.m.Cols() }
func (f *Field) Channels() int { return f.m.Channels() }

func (f *Field) Mat() gocv.Mat {
	return f.m.GetMat()
}

func (f *Field) Clone() (*Field, error) {
	m, err := f.m.Clone()
	if err != nil {
		return nil, err
	}
	return &Field{m: m}, nil
}

// Samples returns a copy of the interleaved values, row-major.
func (f *Field) Samples() ([]float32, error) {
	mat := f.Mat()
	if !mat.IsContinuous() {
		cont := mat.Clone()
		defer cont.Close()
		return copySamples(cont)
	}
	return copySamples(mat)
}

func copySamples(mat gocv.Mat) ([]float32, error) {
	data, err := mat.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// CheckFinite reports ErrNonFinite if any sample is NaN or infinite.
func (f *Field) CheckFinite() error {
	if err := safe.ValidateMatForOperation(f.m, "finite check"); err != nil {
		return err
	}

	mat := f.Mat()
	if !mat.IsContinuous() {
		mat = mat.Clone()
		defer mat.Close()
	}

	data, err := mat.DataPtrFloat32()
	if err != nil {
		return err
	}

	for i, v := range data {
		x := float64(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			ch := f.Channels()
			pixel := i / ch
			return fmt.Errorf("%w at (%d,%d) channel %d", ErrNonFinite, pixel%f.Cols(), pixel/f.Cols(), i%ch)
		}
	}

	return nil
}

// Clamp saturates every sample into [0,255] and narrows to 8 bits. Non-finite
// samples are rejected rather than saturated.
func (f *Field) Clamp() (*Buffer, error) {
	if err := f.CheckFinite(); err != nil {
		return nil, err
	}

	src := f.Mat()
	out := gocv.NewMat()
	src.ConvertTo(&out, gocv.MatTypeCV8U)
	return NewBuffer(out)
}

// Replicate copies a one-channel Field into three channels.
func (f *Field) Replicate() (*Field, error) {
	if err := safe.ValidateMatForOperation(f.m, "replicate"); err != nil {
		return nil, err
	}

	if f.Channels() == 3 {
		return f.Clone()
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(f.Mat(), &rgb, gocv.ColorGrayToRGB)
	return NewField(rgb)
}

// Scale returns a new Field holding f * factor.
func (f *Field) Scale(factor float64) (*Field, error) {
	if err := safe.ValidateMatForOperation(f.m, "scale"); err != nil {
		return nil, err
	}

	src := f.Mat()
	out := gocv.NewMat()
	src.ConvertToWithParams(&out, gocv.MatTypeCV32F, float32(factor), 0)
	return NewField(out)
}

func (f *Field) Close() {
	if f == nil {
		return
	}
	f.m.Close()
}
