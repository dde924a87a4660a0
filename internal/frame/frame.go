// Package frame drives one render tick: the active visualizer paints the
// shared canvas, the compositor splits it between projectors, and each
// projector's masked share is warped into its output buffer.
package frame

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"pulsefield/internal/canvas"
	"pulsefield/internal/compositor"
	"pulsefield/internal/floor"
	"pulsefield/internal/log"
	"pulsefield/internal/visualizer"
	"pulsefield/internal/world"
)

// fpsSmoothing is the number of frames the frame-rate average spans.
const fpsSmoothing = 20

// Bounds overlay strokes, in canvas pixels.
const overlayWidthPx = 2

var (
	floorOutline    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	coverageOutline = color.RGBA{G: 255, A: 255}
)

// Options size the per-frame buffers.
type Options struct {
	CanvasArea   int     // canvas pixel budget
	MaskScale    float64 // canvas to mask reduction
	OutputWidth  int     // per-projector output buffer
	OutputHeight int
	BeaconEvery  int // ticks between OnBeacon calls; 0 disables
	Compositor   compositor.Options
}

// Beacon is the periodic health report handed to OnBeacon.
type Beacon struct {
	Tick   uint64
	FPS    float64
	Bounds bool // bounds overlay on
	Status world.Status
}

// Stats describes the orchestrator's progress.
type Stats struct {
	Ticks      uint64  `json:"ticks"`
	Skipped    uint64  `json:"skipped"`
	FPS        float64 `json:"fps"`
	Visualizer string  `json:"visualizer"`
	Bounds     bool    `json:"bounds"`
	Canvas     [2]int  `json:"canvas"`
	Mask       [2]int  `json:"mask"`
	Owned      []int   `json:"owned"`
	Unowned    int     `json:"unowned"`
}

// Orchestrator owns the canvas, compositor and output buffers. Tick, Outputs,
// Masks and Snapshot belong to the render goroutine; the request methods
// and Stats may be called from anywhere.
type Orchestrator struct {
	world *world.World
	reg   *visualizer.Registry
	opt   Options

	canvas  *canvas.Canvas
	comp    *compositor.Compositor
	masked  *image.RGBA
	overlay *canvas.Canvas // draws onto masked
	outputs []*image.RGBA
	gen     uint64

	mu       sync.Mutex
	requests []func(*visualizer.Registry) error
	snapDir  string
	stats    Stats
	last     time.Time

	now func() time.Time

	// OnBeacon, when set, is called every Options.BeaconEvery ticks from the
	// render goroutine.
	OnBeacon func(Beacon)
}

// New builds an orchestrator for the world's projectors. Buffers are sized
// on the first tick.
func New(w *world.World, reg *visualizer.Registry, opt Options) *Orchestrator {
	o := &Orchestrator{
		world:   w,
		reg:     reg,
		opt:     opt,
		outputs: make([]*image.RGBA, w.NumProjectors()),
		now:     time.Now,
	}
	for i := range o.outputs {
		o.outputs[i] = image.NewRGBA(image.Rect(0, 0, opt.OutputWidth, opt.OutputHeight))
	}
	return o
}

// Select queues a switch to visualizer i for the next tick.
func (o *Orchestrator) Select(i int) {
	o.queue(func(r *visualizer.Registry) error { return r.Select(i) })
}

// SelectName queues a switch to the named visualizer.
func (o *Orchestrator) SelectName(name string) {
	o.queue(func(r *visualizer.Registry) error { return r.SelectName(name) })
}

// Cycle queues a switch to the next selectable visualizer.
func (o *Orchestrator) Cycle() {
	o.queue(func(r *visualizer.Registry) error {
		r.Cycle()
		return nil
	})
}

// Restart queues a stop and start of the active visualizer so it drops
// whatever state it has built up.
func (o *Orchestrator) Restart() {
	o.queue(func(r *visualizer.Registry) error {
		r.Stop()
		r.Start()
		return nil
	})
}

func (o *Orchestrator) queue(fn func(*visualizer.Registry) error) {
	o.mu.Lock()
	o.requests = append(o.requests, fn)
	o.mu.Unlock()
}

// SetBoundsOverlay turns the outline of the floor and of every calibrated
// projector's coverage on or off in the outputs.
func (o *Orchestrator) SetBoundsOverlay(on bool) {
	o.mu.Lock()
	o.stats.Bounds = on
	o.mu.Unlock()
}

// BoundsOverlay reports whether the bounds overlay is on.
func (o *Orchestrator) BoundsOverlay() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats.Bounds
}

// RequestSnapshot asks the next successful tick to write a Snapshot to dir.
func (o *Orchestrator) RequestSnapshot(dir string) {
	o.mu.Lock()
	o.snapDir = dir
	o.mu.Unlock()
}

// Tick renders one frame. A failure or panic anywhere in the frame is
// logged, counted as skipped and returned; the next tick starts clean.
func (o *Orchestrator) Tick() (err error) {
	o.mu.Lock()
	reqs := o.requests
	o.requests = nil
	snap := o.snapDir
	o.snapDir = ""
	bounds := o.stats.Bounds
	o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panic: %v", r)
		}
		o.finish(err)
	}()

	err = o.world.Frame(func(v world.View) error {
		return o.frame(v, reqs, bounds)
	})
	if err == nil && snap != "" {
		if serr := o.Snapshot(snap); serr != nil {
			log.Warn("snapshot failed", "dir", snap, "err", serr)
		}
	}
	return err
}

func (o *Orchestrator) frame(v world.View, reqs []func(*visualizer.Registry) error, bounds bool) error {
	if o.canvas == nil || v.Generation != o.gen {
		o.realloc(v)
	}
	for _, req := range reqs {
		if err := req(o.reg); err != nil {
			log.Warn("visualizer selection ignored", "err", err)
			continue
		}
		if cur := o.reg.Current(); cur != nil {
			log.Info("visualizer selected", "name", cur.Name(), "index", o.reg.Index())
		}
	}
	o.reg.Start()

	f := &visualizer.Frame{
		Tick:     o.Stats().Ticks,
		DT:       o.dt(),
		Bounds:   v.Bounds,
		Space:    v.Space,
		People:   v.People,
		Coverage: make([]orb.Ring, 0, len(v.Projectors)),
	}
	for _, p := range v.Projectors {
		if p.Calibrated() {
			f.Coverage = append(f.Coverage, p.Coverage())
		}
	}
	if vis := o.reg.Current(); vis != nil {
		vis.Update(f)
		if err := vis.Draw(o.canvas, f); err != nil {
			return fmt.Errorf("draw %s: %w", vis.Name(), err)
		}
	} else {
		o.canvas.Clear(color.RGBA{A: 255})
	}

	if err := o.comp.Build(v.Projectors, v.People); err != nil {
		return fmt.Errorf("build masks: %w", err)
	}
	for i, p := range v.Projectors {
		if err := o.comp.Apply(i, o.canvas.Image(), o.masked); err != nil {
			return fmt.Errorf("mask projector %d: %w", i, err)
		}
		if bounds {
			o.outline(v.Bounds, f.Coverage)
		}
		if err := p.Render(o.outputs[i], o.masked, o.canvas.Raster()); err != nil {
			return fmt.Errorf("render projector %d: %w", i, err)
		}
	}
	return nil
}

// realloc sizes the canvas and mask buffers for the current floor.
func (o *Orchestrator) realloc(v world.View) {
	cw, ch := floor.CanvasSize(v.Bounds, o.opt.CanvasArea)
	cr := floor.NewRaster(v.Bounds, cw, ch)
	mw, mh := floor.MaskSize(cw, ch, o.opt.MaskScale)
	mr := cr.Scaled(mw, mh)

	if o.canvas == nil {
		o.canvas = canvas.New(cr)
	} else {
		o.canvas.Resize(cr)
	}
	if o.masked == nil || o.masked.Bounds().Dx() != cw || o.masked.Bounds().Dy() != ch {
		o.masked = image.NewRGBA(image.Rect(0, 0, cw, ch))
	}
	o.overlay = canvas.On(o.masked, cr)
	if o.comp == nil {
		o.comp = compositor.New(len(v.Projectors), mr, o.opt.Compositor)
	} else if o.comp.Resize(mr) {
		log.Debug("ownership reset", "mask_w", mw, "mask_h", mh)
	}
	o.gen = v.Generation

	o.mu.Lock()
	o.stats.Canvas = [2]int{cw, ch}
	o.stats.Mask = [2]int{mw, mh}
	o.mu.Unlock()
	log.Info("canvas sized", "generation", v.Generation, "canvas_w", cw, "canvas_h", ch,
		"mask_w", mw, "mask_h", mh, "ppm", cr.PixelsPerMeter())
}

// outline strokes the floor bounds and the coverage rings over the masked
// share about to be warped.
func (o *Orchestrator) outline(b floor.Bounds, coverage []orb.Ring) {
	width := overlayWidthPx / o.overlay.PixelsPerMeter()
	o.overlay.StrokeRing(b.Bound().ToRing(), width, floorOutline)
	for _, ring := range coverage {
		o.overlay.StrokeRing(ring, width, coverageOutline)
	}
}

// dt is the time since the previous tick, or a nominal 1/30 s on the first.
func (o *Orchestrator) dt() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last.IsZero() {
		return 1.0 / 30
	}
	return o.now().Sub(o.last).Seconds()
}

func (o *Orchestrator) finish(err error) {
	now := o.now()
	o.mu.Lock()
	o.stats.Ticks++
	if err != nil {
		o.stats.Skipped++
	}
	if !o.last.IsZero() {
		if d := now.Sub(o.last).Seconds(); d > 0 {
			fps := 1 / d
			if o.stats.FPS == 0 {
				o.stats.FPS = fps
			} else {
				o.stats.FPS = o.stats.FPS*(1-1.0/fpsSmoothing) + fps/fpsSmoothing
			}
		}
	}
	o.last = now
	if cur := o.reg.Current(); cur != nil {
		o.stats.Visualizer = cur.Name()
	}
	if o.comp != nil && err == nil {
		cs := o.comp.Stats()
		o.stats.Owned = cs.Owned
		o.stats.Unowned = cs.Unowned
	}
	ticks, fps, bounds := o.stats.Ticks, o.stats.FPS, o.stats.Bounds
	owned, unowned := o.stats.Owned, o.stats.Unowned
	o.mu.Unlock()

	if err != nil {
		log.Warn("frame skipped", "tick", ticks, "err", err)
	}
	if o.opt.BeaconEvery > 0 && ticks%uint64(o.opt.BeaconEvery) == 0 {
		log.Debug("mask ownership", "tick", ticks, "owned", owned, "unowned", unowned, "fps", fps)
		if o.OnBeacon != nil {
			o.OnBeacon(Beacon{Tick: ticks, FPS: fps, Bounds: bounds, Status: o.world.Status()})
		}
	}
}

// Stats returns a copy of the current counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stats
	s.Owned = append([]int(nil), o.stats.Owned...)
	return s
}

// Outputs are the per-projector output buffers, valid after each tick.
func (o *Orchestrator) Outputs() []*image.RGBA { return o.outputs }

// Masks are the per-projector blurred masks, nil before the first tick.
func (o *Orchestrator) Masks() []*image.Gray {
	if o.comp == nil {
		return nil
	}
	masks := make([]*image.Gray, o.comp.NumProjectors())
	for i := range masks {
		masks[i] = o.comp.Mask(i)
	}
	return masks
}

// Canvas is the shared canvas, nil before the first tick.
func (o *Orchestrator) Canvas() *canvas.Canvas { return o.canvas }

// Run ticks every period until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, period time.Duration) error {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = o.Tick()
		}
	}
}

// Close stops the active visualizer.
func (o *Orchestrator) Close() {
	o.reg.Stop()
}
