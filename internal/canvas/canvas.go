// Package canvas is the shared floor-space drawing surface visualizers paint
// on. Coordinates are floor metres; the canvas maps them to pixels with its
// raster.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"golang.org/x/image/vector"

	"pulsefield/internal/floor"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// Canvas is an RGBA image laid over the floor.
type Canvas struct {
	img    *image.RGBA
	raster floor.Raster
	z      *vector.Rasterizer
}

// New allocates a canvas for r.
func New(r floor.Raster) *Canvas {
	return &Canvas{
		img:    image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)),
		raster: r,
		z:      vector.NewRasterizer(r.Width, r.Height),
	}
}

// On wraps img, which must be r.Width x r.Height, so shapes draw straight
// into it.
func On(img *image.RGBA, r floor.Raster) *Canvas {
	return &Canvas{img: img, raster: r, z: vector.NewRasterizer(r.Width, r.Height)}
}

// Resize adopts a new raster, reallocating when the pixel size changes. It
// reports whether the image was reallocated.
func (c *Canvas) Resize(r floor.Raster) bool {
	same := r.Width == c.raster.Width && r.Height == c.raster.Height
	c.raster = r
	if same {
		return false
	}
	c.img = image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	c.z = vector.NewRasterizer(r.Width, r.Height)
	return true
}

// Image returns the backing image.
func (c *Canvas) Image() *image.RGBA { return c.img }

// Raster returns the floor-to-pixel mapping.
func (c *Canvas) Raster() floor.Raster { return c.raster }

// PixelsPerMeter is the canvas resolution.
func (c *Canvas) PixelsPerMeter() float64 { return c.raster.PixelsPerMeter() }

// Clear fills the whole canvas with col.
func (c *Canvas) Clear(col color.RGBA) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *Canvas) bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{-1, -1},
		Max: orb.Point{float64(c.raster.Width + 1), float64(c.raster.Height + 1)},
	}
}

// FillPolygon fills a floor-space ring. Rings with a non-finite vertex are
// skipped.
func (c *Canvas) FillPolygon(ring orb.Ring, col color.RGBA) {
	if len(ring) < 3 {
		return
	}
	px := make(orb.Ring, len(ring))
	for i, pt := range ring {
		x, y := c.raster.ToPixel(mgl64.Vec2(pt))
		if !finite(x, y) {
			return
		}
		px[i] = orb.Point{x, y}
	}
	px = clip.Ring(c.bound(), px)
	if len(px) < 3 {
		return
	}
	c.begin()
	c.z.MoveTo(float32(px[0][0]), float32(px[0][1]))
	for _, pt := range px[1:] {
		c.z.LineTo(float32(pt[0]), float32(pt[1]))
	}
	c.finish(col)
}

// FillCircle fills a disc of radius metres.
func (c *Canvas) FillCircle(center mgl64.Vec2, radius float64, col color.RGBA) {
	x, y := c.raster.ToPixel(center)
	rx := radius * c.raster.ScaleX
	ry := radius * c.raster.ScaleY
	if !finite(x, y, rx, ry) || rx <= 0 || ry <= 0 {
		return
	}
	if !c.bound().Intersects(orb.Bound{Min: orb.Point{x - rx, y - ry}, Max: orb.Point{x + rx, y + ry}}) {
		return
	}
	kx, ky := float32(rx*kappa), float32(ry*kappa)
	cx, cy := float32(x), float32(y)
	fx, fy := float32(rx), float32(ry)

	c.begin()
	c.z.MoveTo(cx+fx, cy)
	c.z.CubeTo(cx+fx, cy+ky, cx+kx, cy+fy, cx, cy+fy)
	c.z.CubeTo(cx-kx, cy+fy, cx-fx, cy+ky, cx-fx, cy)
	c.z.CubeTo(cx-fx, cy-ky, cx-kx, cy-fy, cx, cy-fy)
	c.z.CubeTo(cx+kx, cy-fy, cx+fx, cy-ky, cx+fx, cy)
	c.finish(col)
}

// Line draws a segment width metres wide.
func (c *Canvas) Line(a, b mgl64.Vec2, width float64, col color.RGBA) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		c.FillCircle(a, width/2, col)
		return
	}
	n := mgl64.Vec2{-d[1] / l, d[0] / l}.Mul(width / 2)
	c.FillPolygon(orb.Ring{
		point(a.Add(n)), point(b.Add(n)), point(b.Sub(n)), point(a.Sub(n)), point(a.Add(n)),
	}, col)
}

// StrokeRing outlines a ring.
func (c *Canvas) StrokeRing(ring orb.Ring, width float64, col color.RGBA) {
	for i := 1; i < len(ring); i++ {
		c.Line(vec(ring[i-1]), vec(ring[i]), width, col)
	}
}

// Arrow draws a line from a along v with a small head, used for velocity.
func (c *Canvas) Arrow(a, v mgl64.Vec2, width float64, col color.RGBA) {
	b := a.Add(v)
	c.Line(a, b, width, col)
	l := v.Len()
	if l == 0 {
		return
	}
	back := v.Mul(-math.Min(0.15, l/2) / l)
	side := mgl64.Vec2{-back[1], back[0]}.Mul(0.5)
	c.FillPolygon(orb.Ring{point(b), point(b.Add(back).Add(side)), point(b.Add(back).Sub(side)), point(b)}, col)
}

func (c *Canvas) begin() {
	c.z.Reset(c.raster.Width, c.raster.Height)
}

func (c *Canvas) finish(col color.RGBA) {
	c.z.ClosePath()
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func point(v mgl64.Vec2) orb.Point { return orb.Point{v[0], v[1]} }

func vec(p orb.Point) mgl64.Vec2 { return mgl64.Vec2{p[0], p[1]} }
