package floor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Raster maps floor metres onto a Width×Height pixel buffer whose centre is
// the floor centre.
type Raster struct {
	Width, Height  int
	Center         mgl64.Vec2
	ScaleX, ScaleY float64 // pixels per metre
}

// NewRaster fits the floor into a w×h buffer keeping square pixels.
func NewRaster(b Bounds, w, h int) Raster {
	sz := b.Size()
	ppm := math.Min(float64(w)/sz[0], float64(h)/sz[1])
	return Raster{Width: w, Height: h, Center: b.Center(), ScaleX: ppm, ScaleY: ppm}
}

// Scaled returns the same floor mapping resampled onto a w×h buffer.
func (r Raster) Scaled(w, h int) Raster {
	return Raster{
		Width:  w,
		Height: h,
		Center: r.Center,
		ScaleX: r.ScaleX * float64(w) / float64(r.Width),
		ScaleY: r.ScaleY * float64(h) / float64(r.Height),
	}
}

// ToPixel returns the continuous pixel coordinate of a floor point.
func (r Raster) ToPixel(p mgl64.Vec2) (float64, float64) {
	return (p[0]-r.Center[0])*r.ScaleX + float64(r.Width)/2,
		(p[1]-r.Center[1])*r.ScaleY + float64(r.Height)/2
}

// ToFloor is the inverse of ToPixel.
func (r Raster) ToFloor(x, y float64) mgl64.Vec2 {
	return mgl64.Vec2{
		(x-float64(r.Width)/2)/r.ScaleX + r.Center[0],
		(y-float64(r.Height)/2)/r.ScaleY + r.Center[1],
	}
}

// PixelsPerMeter is the smaller of the two axis scales.
func (r Raster) PixelsPerMeter() float64 {
	return math.Min(r.ScaleX, r.ScaleY)
}

// CanvasSize picks canvas dimensions with roughly area pixels and the
// floor's aspect ratio.
func CanvasSize(b Bounds, area int) (int, int) {
	sz := b.Size()
	sc := math.Sqrt(float64(area) / (sz[0] * sz[1]))
	w := int(sc * sz[0])
	h := int(sc * sz[1])
	return max(w, 1), max(h, 1)
}

// MaskSize is the reduced resolution used for coverage and mask buffers.
func MaskSize(w, h int, scale float64) (int, int) {
	mw := int(float64(w)/scale + 0.5)
	mh := int(float64(h)/scale + 0.5)
	return max(mw, 1), max(mh, 1)
}
