package canvas

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"pulsefield/internal/floor"
)

var (
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

func newTestCanvas() *Canvas {
	// 20 px per metre
	return New(floor.NewRaster(floor.Bounds{MinX: -5, MaxX: 5, MinY: 0, MaxY: 5}, 200, 100))
}

func at(c *Canvas, p mgl64.Vec2) color.RGBA {
	x, y := c.Raster().ToPixel(p)
	return c.Image().RGBAAt(int(x), int(y))
}

func TestClear(t *testing.T) {
	c := newTestCanvas()
	c.Clear(red)
	if got := c.Image().RGBAAt(199, 99); got != red {
		t.Errorf("corner = %v", got)
	}
}

func TestFillCircle(t *testing.T) {
	c := newTestCanvas()
	c.Clear(black)
	c.FillCircle(mgl64.Vec2{1, 2}, 0.5, red)

	if got := at(c, mgl64.Vec2{1, 2}); got != red {
		t.Errorf("centre = %v", got)
	}
	if got := at(c, mgl64.Vec2{1.3, 2.2}); got != red {
		t.Errorf("inside = %v", got)
	}
	if got := at(c, mgl64.Vec2{2, 2}); got != black {
		t.Errorf("outside = %v", got)
	}

	// Off-canvas discs are ignored.
	c.FillCircle(mgl64.Vec2{100, 100}, 0.5, red)
}

func TestFillPolygon_Clipped(t *testing.T) {
	c := newTestCanvas()
	c.Clear(black)
	c.FillPolygon(orb.Ring{{-100, -100}, {0, -100}, {0, 100}, {-100, 100}, {-100, -100}}, red)

	if got := at(c, mgl64.Vec2{-2, 2.5}); got != red {
		t.Errorf("left half = %v", got)
	}
	if got := at(c, mgl64.Vec2{2, 2.5}); got != black {
		t.Errorf("right half = %v", got)
	}
}

func TestLine(t *testing.T) {
	c := newTestCanvas()
	c.Clear(black)
	c.Line(mgl64.Vec2{-4, 1}, mgl64.Vec2{4, 1}, 0.2, red)
	if got := at(c, mgl64.Vec2{0, 1}); got != red {
		t.Errorf("on line = %v", got)
	}
	if got := at(c, mgl64.Vec2{0, 1.5}); got != black {
		t.Errorf("off line = %v", got)
	}
}

func TestNonFiniteShapesSkipped(t *testing.T) {
	c := newTestCanvas()
	c.Clear(black)
	nan, inf := math.NaN(), math.Inf(1)

	c.FillCircle(mgl64.Vec2{nan, 2}, 0.5, red)
	c.FillCircle(mgl64.Vec2{1, 2}, inf, red)
	c.FillPolygon(orb.Ring{{0, 0}, {1, nan}, {1, 1}, {0, 0}}, red)
	c.Line(mgl64.Vec2{0, 1}, mgl64.Vec2{inf, 1}, 0.2, red)
	c.Arrow(mgl64.Vec2{0, 1}, mgl64.Vec2{nan, nan}, 0.05, red)

	img := c.Image()
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			if got := img.RGBAAt(x, y); got != black {
				t.Fatalf("pixel (%d,%d) = %v", x, y, got)
			}
		}
	}
}

func TestOn(t *testing.T) {
	r := floor.NewRaster(floor.Bounds{MinX: -5, MaxX: 5, MinY: 0, MaxY: 5}, 200, 100)
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	c := On(img, r)
	c.FillCircle(mgl64.Vec2{0, 2.5}, 0.5, red)
	x, y := r.ToPixel(mgl64.Vec2{0, 2.5})
	if got := img.RGBAAt(int(x), int(y)); got != red {
		t.Errorf("centre = %v", got)
	}
}

func TestResize(t *testing.T) {
	c := newTestCanvas()
	if c.Resize(floor.NewRaster(floor.Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 5}, 200, 100)) {
		t.Error("same size reallocated")
	}
	if !c.Resize(floor.NewRaster(floor.Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 5}, 100, 50)) {
		t.Fatal("new size not reallocated")
	}
	if b := c.Image().Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("image bounds %v", b)
	}
}
