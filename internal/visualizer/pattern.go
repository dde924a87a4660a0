package visualizer

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"pulsefield/internal/canvas"
)

var coverageColors = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

// TestPattern draws a one metre grid, the floor outline and each
// projector's coverage. It is used for alignment and is skipped by Cycle.
type TestPattern struct{}

func (TestPattern) Name() string  { return "testpattern" }
func (TestPattern) Hidden() bool  { return true }
func (TestPattern) Start()        {}
func (TestPattern) Stop()         {}
func (TestPattern) Update(*Frame) {}

func (TestPattern) Draw(c *canvas.Canvas, f *Frame) error {
	c.Clear(color.RGBA{A: 255})
	b := f.Bounds
	grey := color.RGBA{R: 90, G: 90, B: 90, A: 255}
	for x := math.Ceil(b.MinX); x <= b.MaxX; x++ {
		c.Line(mgl64.Vec2{x, b.MinY}, mgl64.Vec2{x, b.MaxY}, 0.02, grey)
	}
	for y := math.Ceil(b.MinY); y <= b.MaxY; y++ {
		c.Line(mgl64.Vec2{b.MinX, y}, mgl64.Vec2{b.MaxX, y}, 0.02, grey)
	}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	c.StrokeRing(orb.Ring{
		{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MaxX, b.MaxY}, {b.MinX, b.MaxY}, {b.MinX, b.MinY},
	}, 0.05, white)
	c.FillCircle(b.Center(), 0.1, white)

	for i, ring := range f.Coverage {
		c.StrokeRing(ring, 0.025, coverageColors[i%len(coverageColors)])
	}
	for i := range f.People {
		c.FillCircle(f.People[i].Origin, 0.1, PersonColor(f.People[i].ID))
	}
	return nil
}
