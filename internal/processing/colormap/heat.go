// Package colormap provides the fixed heat lookup table used to paint
// gradient magnitude. The table is built once per process and shared
// read-only by every caller.
package colormap

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"
)

// Anchors of the cool-to-warm ramp, evenly spaced over [0,255]. Blue and red
// are the extremes so that red minus blue never decreases along the table.
var heatAnchors = []colorful.Color{
	{R: 0, G: 0, B: 1},
	{R: 0, G: 1, B: 1},
	{R: 1, G: 1, B: 0},
	{R: 1, G: 0, B: 0},
}

var (
	heatOnce  sync.Once
	heatTable [256][3]uint8
	heatLUT   gocv.Mat
)

func initHeat() {
	segments := len(heatAnchors) - 1
	data := make([]byte, 0, 256*3)

	for i := 0; i < 256; i++ {
		t := float64(i) / 255 * float64(segments)
		seg := int(t)
		if seg >= segments {
			seg = segments - 1
		}

		c := heatAnchors[seg].BlendRgb(heatAnchors[seg+1], t-float64(seg))
		r, g, b := c.RGB255()
		heatTable[i] = [3]uint8{r, g, b}
		data = append(data, r, g, b)
	}

	view, err := gocv.NewMatFromBytes(256, 1, gocv.MatTypeCV8UC3, data)
	if err != nil {
		panic("colormap: building heat LUT: " + err.Error())
	}
	heatLUT = view.Clone()
	view.Close()
}

// Init builds the table if it has not been built yet. Calling it during
// process setup keeps the one-time cost off the first request.
func Init() {
	heatOnce.Do(initHeat)
}

// Table returns a copy of the RGB heat table.
func Table() [256][3]uint8 {
	Init()
	return heatTable
}

// Color returns the RGB triple for magnitude v.
func Color(v uint8) (r, g, b uint8) {
	Init()
	c := heatTable[v]
	return c[0], c[1], c[2]
}

// Apply maps a CV_8UC1 magnitude image to a CV_8UC3 RGB heat image.
func Apply(src gocv.Mat, dst *gocv.Mat) {
	Init()
	gocv.ApplyCustomColorMap(src, dst, heatLUT)
}
