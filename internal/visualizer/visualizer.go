// Package visualizer defines the effects that paint the shared canvas each
// frame and the registry that picks the active one.
package visualizer

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"pulsefield/internal/canvas"
	"pulsefield/internal/floor"
	"pulsefield/internal/people"
)

// ErrBadIndex is returned when selecting a visualizer that does not exist.
var ErrBadIndex = errors.New("visualizer index out of range")

// Frame is the per-tick input handed to the active visualizer.
type Frame struct {
	Tick     uint64
	DT       float64 // seconds since the previous frame
	Bounds   floor.Bounds
	Space    floor.Space
	People   []people.Person
	Coverage []orb.Ring
}

// Visualizer is one interchangeable effect. Start and Stop bracket the time
// it is active; Update advances its state and Draw paints the canvas. A
// Draw error abandons the frame.
type Visualizer interface {
	Name() string
	Start()
	Stop()
	Update(f *Frame)
	Draw(c *canvas.Canvas, f *Frame) error
}

// hidden is implemented by visualizers that Cycle should skip.
type hidden interface {
	Hidden() bool
}

func isHidden(v Visualizer) bool {
	h, ok := v.(hidden)
	return ok && h.Hidden()
}

// Registry is the ordered set of visualizers and the active index. It is
// only used from the render loop.
type Registry struct {
	vis     []Visualizer
	cur     int
	started bool
}

// NewRegistry returns a registry holding vs with the first one active.
func NewRegistry(vs ...Visualizer) *Registry {
	return &Registry{vis: vs}
}

// Add appends v and returns its index.
func (r *Registry) Add(v Visualizer) int {
	r.vis = append(r.vis, v)
	return len(r.vis) - 1
}

// Len returns the number of registered visualizers.
func (r *Registry) Len() int { return len(r.vis) }

// Index returns the active index.
func (r *Registry) Index() int { return r.cur }

// Current returns the active visualizer, or nil when empty.
func (r *Registry) Current() Visualizer {
	if len(r.vis) == 0 {
		return nil
	}
	return r.vis[r.cur]
}

// Names lists the registered visualizers in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.vis))
	for i, v := range r.vis {
		names[i] = v.Name()
	}
	return names
}

// Start starts the active visualizer if it is not running.
func (r *Registry) Start() {
	if r.started || len(r.vis) == 0 {
		return
	}
	r.vis[r.cur].Start()
	r.started = true
}

// Stop stops the active visualizer if it is running.
func (r *Registry) Stop() {
	if !r.started {
		return
	}
	r.vis[r.cur].Stop()
	r.started = false
}

// Select makes visualizer i active, stopping the previous one.
func (r *Registry) Select(i int) error {
	if i < 0 || i >= len(r.vis) {
		return fmt.Errorf("%w: %d (have %d)", ErrBadIndex, i, len(r.vis))
	}
	if i == r.cur {
		return nil
	}
	running := r.started
	r.Stop()
	r.cur = i
	if running {
		r.Start()
	}
	return nil
}

// SelectName selects the visualizer called name.
func (r *Registry) SelectName(name string) error {
	for i, v := range r.vis {
		if v.Name() == name {
			return r.Select(i)
		}
	}
	return fmt.Errorf("%w: no visualizer named %q", ErrBadIndex, name)
}

// Cycle advances to the next visualizer that is not hidden and returns it.
func (r *Registry) Cycle() Visualizer {
	for step := 1; step <= len(r.vis); step++ {
		i := (r.cur + step) % len(r.vis)
		if !isHidden(r.vis[i]) {
			_ = r.Select(i)
			break
		}
	}
	return r.Current()
}
