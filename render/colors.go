package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}

	// Tree marks detected dead tree polygons
	Tree = color.RGBA{R: 255, G: 56, B: 56, A: 255}
	// Buffer marks the dissolved buffer zones around detections
	Buffer = color.RGBA{R: 255, G: 178, B: 29, A: 255}
	// Matched marks ground truth points confirmed by a detection
	Matched = color.RGBA{R: 72, G: 249, B: 10, A: 255}
	// Missed marks ground truth points no detection covers
	Missed = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// RegionPalette returns n distinct colors for painting region overlays,
// hues are spaced evenly so neighboring region ids stay tellable apart.
// The same n always produces the same colors.
func RegionPalette(n int) []color.RGBA {

	out := make([]color.RGBA, n)

	for i := 0; i < n; i++ {
		c := colorful.Hsv(float64(i)*360.0/float64(n), 0.65, 0.95)
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	return out
}
