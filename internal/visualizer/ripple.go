package visualizer

import (
	"fmt"
	"image/color"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"

	"pulsefield/internal/canvas"
	"pulsefield/internal/floor"
	"pulsefield/internal/log"
	"pulsefield/internal/rows"
)

// Solver and footstep constants for the ripple effect.
const (
	rippleCell          = 0.05 // metres per cell
	rippleMaxCells      = 512  // cap on either grid dimension
	rippleDamp          = 0.995
	rippleSpeed         = 0.5
	rippleReflect       = 0.90
	rippleEmitterRad    = 3
	rippleStrength      = 1.0
	rippleStepsPerFrame = 4
	rippleStepDist      = 0.3 // metres a foot travels between impulses
)

type footKey struct{ id, leg int }

// Ripple runs a damped wave field over the floor and drops an impulse
// wherever a foot lands.
type Ripple struct {
	Workers       int
	StepsPerFrame int

	field     *waveField
	pool      *stepPool
	bounds    floor.Bounds
	cell      float64
	footprint []gridOffset
	feet      map[footKey]mgl64.Vec2
	seen      map[footKey]bool
}

// NewRipple returns a ripple effect using one worker per CPU.
func NewRipple() *Ripple {
	return &Ripple{
		Workers:       runtime.GOMAXPROCS(0),
		StepsPerFrame: rippleStepsPerFrame,
		footprint:     discFootprint(rippleEmitterRad),
		feet:          make(map[footKey]mgl64.Vec2),
		seen:          make(map[footKey]bool),
	}
}

func (r *Ripple) Name() string { return "ripple" }

// Start is a no-op; the field is sized on the first Update.
func (r *Ripple) Start() {}

// Stop shuts down the solver workers and forgets the field.
func (r *Ripple) Stop() {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.field = nil
	clear(r.feet)
}

func (r *Ripple) ensure(b floor.Bounds) {
	if r.field != nil && b == r.bounds {
		return
	}
	size := b.Size()
	cell := math.Max(rippleCell, math.Max(size[0], size[1])/rippleMaxCells)
	w := int(math.Ceil(size[0]/cell)) + 2
	h := int(math.Ceil(size[1]/cell)) + 2

	if r.pool != nil {
		r.pool.Close()
	}
	r.bounds = b
	r.cell = cell
	r.field = newWaveField(w, h)
	r.pool = newStepPool(r.field, r.Workers)
	clear(r.feet)
	log.Debug("ripple field sized", "cols", w, "rows", h, "cell", cell)
}

// cellOf maps a floor point to a grid cell; the border ring is outside the floor.
func (r *Ripple) cellOf(p mgl64.Vec2) (int, int) {
	x := int(math.Floor((p[0]-r.bounds.MinX)/r.cell)) + 1
	y := int(math.Floor((p[1]-r.bounds.MinY)/r.cell)) + 1
	return x, y
}

// Update drops footstep impulses and advances the solver.
func (r *Ripple) Update(f *Frame) {
	if !f.Bounds.Valid() {
		return
	}
	r.ensure(f.Bounds)

	clear(r.seen)
	for i := range f.People {
		p := &f.People[i]
		if p.LegsSeen() {
			l0, l1 := p.LegOrigins()
			r.foot(footKey{p.ID, 0}, l0)
			r.foot(footKey{p.ID, 1}, l1)
		} else {
			r.foot(footKey{p.ID, 0}, p.Origin)
		}
	}
	for k := range r.feet {
		if !r.seen[k] {
			delete(r.feet, k)
		}
	}

	for i := 0; i < r.StepsPerFrame; i++ {
		r.pool.Step()
	}
}

// foot fires an impulse when a foot first appears or has moved far enough.
func (r *Ripple) foot(k footKey, pos mgl64.Vec2) {
	r.seen[k] = true
	last, ok := r.feet[k]
	if ok && pos.Sub(last).Len() < rippleStepDist {
		return
	}
	r.feet[k] = pos
	x, y := r.cellOf(pos)
	r.field.addImpulse(x, y, r.footprint, rippleStrength)
}

// Draw shades every canvas pixel from its cell: crests blue, troughs amber.
func (r *Ripple) Draw(c *canvas.Canvas, f *Frame) error {
	if r.field == nil {
		c.Clear(color.RGBA{A: 255})
		return nil
	}
	img := c.Image()
	rs := c.Raster()
	err := rows.Run(rs.Height, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			off := y * img.Stride
			for x := 0; x < rs.Width; x++ {
				cx, cy := r.cellOf(rs.ToFloor(float64(x)+0.5, float64(y)+0.5))
				var v float32
				if cx >= 0 && cx < r.field.width && cy >= 0 && cy < r.field.height {
					v = r.field.readCurr(cx, cy)
				}
				px := img.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
				shade(px, v)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ripple shade: %w", err)
	}
	for i := range f.People {
		c.FillCircle(f.People[i].Origin, 0.08, PersonColor(f.People[i].ID))
	}
	return nil
}

func shade(px []uint8, v float32) {
	a := math.Min(math.Abs(float64(v)), 1)
	level := uint8(a * 255)
	if v >= 0 {
		px[0], px[1], px[2] = level/4, level/2, level
	} else {
		px[0], px[1], px[2] = level, level*3/4, level/6
	}
	px[3] = 255
}
