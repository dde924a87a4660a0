package visualizer

import (
	"image/color"

	"pulsefield/internal/canvas"
)

var palette = []color.RGBA{
	{R: 255, G: 80, B: 80, A: 255},
	{R: 80, G: 255, B: 120, A: 255},
	{R: 80, G: 160, B: 255, A: 255},
	{R: 255, G: 220, B: 60, A: 255},
	{R: 220, G: 90, B: 255, A: 255},
	{R: 60, G: 240, B: 240, A: 255},
}

// PersonColor is the stable colour used for a person id.
func PersonColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

const (
	minBodyDiameter = 0.3
	legDotDiameter  = 0.12
)

// Dots draws every person as a disc with their legs and velocity.
type Dots struct {
	Background color.RGBA
}

// NewDots returns the default people view.
func NewDots() *Dots {
	return &Dots{Background: color.RGBA{A: 255}}
}

func (d *Dots) Name() string  { return "dots" }
func (d *Dots) Start()        {}
func (d *Dots) Stop()         {}
func (d *Dots) Update(*Frame) {}

func (d *Dots) Draw(c *canvas.Canvas, f *Frame) error {
	c.Clear(d.Background)
	for i := range f.People {
		p := &f.People[i]
		col := PersonColor(p.ID)
		diam := max(p.Diameter, minBodyDiameter)
		dim := color.RGBA{R: col.R / 3, G: col.G / 3, B: col.B / 3, A: 255}
		c.FillCircle(p.Origin, diam/2+p.LegSeparation/2, dim)
		if p.LegsSeen() {
			for _, l := range p.Legs {
				c.FillCircle(l.Origin, max(l.Diameter, legDotDiameter)/2, col)
			}
		} else {
			c.FillCircle(p.Origin, diam/2, col)
		}
		c.Arrow(p.Origin, p.Velocity.Mul(0.5), 0.03, col)
	}
	return nil
}
