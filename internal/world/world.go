// Package world holds the installation's shared mutable state: floor
// bounds, projector calibration and the tracked people. One mutex guards
// all of it and the render loop holds that mutex for a whole frame, so no
// message is observed half applied.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"pulsefield/internal/floor"
	"pulsefield/internal/log"
	"pulsefield/internal/people"
	"pulsefield/internal/projector"
)

var (
	// ErrBadProjector is returned for projector indices outside the array.
	ErrBadProjector = errors.New("bad projector index")
	// ErrBadBounds is returned for soft bounds spanning 1 m or less.
	ErrBadBounds = errors.New("bounds span must exceed 1 m")
)

// Edge names one side of the soft floor bounds.
type Edge int

const (
	MinX Edge = iota
	MaxX
	MinY
	MaxY
)

var edgeNames = [...]string{"minx", "maxx", "miny", "maxy"}

func (e Edge) String() string {
	if e < MinX || e > MaxY {
		return fmt.Sprintf("Edge(%d)", int(e))
	}
	return edgeNames[e]
}

// ParseEdge maps "minx", "maxx", "miny" or "maxy" to an Edge.
func ParseEdge(s string) (Edge, bool) {
	for i, n := range edgeNames {
		if n == s {
			return Edge(i), true
		}
	}
	return 0, false
}

// View is what a frame sees of the world. It is only valid inside the
// Frame callback.
type View struct {
	Bounds     floor.Bounds
	Space      floor.Space
	Generation uint64
	Rotation   float64
	Projectors []*projector.Projector
	People     []people.Person
}

// Status is a point-in-time summary for beacons and the status endpoint.
type Status struct {
	Bounds     floor.Bounds `json:"bounds"`
	Soft       floor.Bounds `json:"soft"`
	Rotation   float64      `json:"rotation"`
	People     int          `json:"people"`
	Projectors int          `json:"projectors"`
	Calibrated int          `json:"calibrated"`
	Generation uint64       `json:"generation"`
}

// World is the single exclusion domain shared by the message listener and
// the render loop.
type World struct {
	mu         sync.Mutex
	soft       floor.Bounds
	bounds     floor.Bounds
	rotation   float64
	generation uint64
	projectors []*projector.Projector
	people     *people.People

	// OnReset, when set, is called with the new floor bounds after every
	// reset that changed them. It runs without the lock held.
	OnReset func(floor.Bounds)

	// OnEmpty, when set, is called when the last person leaves the floor
	// through Exit, SetCount or Clear. It runs without the lock held.
	OnEmpty func()
}

// New builds the world from soft bounds and a projector array. The array
// length is fixed for the life of the world.
func New(soft floor.Bounds, projs []*projector.Projector) (*World, error) {
	if !soft.Valid() {
		return nil, fmt.Errorf("%w: %+v", ErrBadBounds, soft)
	}
	w := &World{
		soft:       soft,
		bounds:     soft,
		projectors: projs,
		people:     people.New(),
	}
	w.resetCoords()
	return w, nil
}

// Entry activates a person.
func (w *World) Entry(id, channel int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.people.Entry(id, channel)
}

// Move applies a tracker update, creating the person when absent.
func (w *World) Move(id, channel int, pos, vel mgl64.Vec2, groupID, groupSize int, elapsed float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.people.Move(id, channel, pos, vel, groupID, groupSize, elapsed)
}

// UpdateBody refines an existing person. Unknown ids are ignored.
func (w *World) UpdateBody(id int, separation, diameter float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.people.UpdateBody(id, separation, diameter)
}

// UpdateLeg moves one leg of an existing person. Unknown ids are ignored.
func (w *World) UpdateLeg(id, leg int, pos mgl64.Vec2, speed, headingDeg float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.people.UpdateLeg(id, leg, pos, speed, headingDeg)
	return err
}

// Exit removes a person.
func (w *World) Exit(id int) {
	w.mu.Lock()
	emptied := w.people.Exit(id) && w.people.Len() == 0
	w.mu.Unlock()
	w.emptied(emptied)
}

// SetCount applies the tracker's head count; zero clears everyone.
func (w *World) SetCount(n int) {
	w.mu.Lock()
	removed := w.people.SetCount(n)
	w.mu.Unlock()
	if removed > 0 {
		log.Info("people cleared by zero count", "removed", removed)
	}
	w.emptied(removed > 0)
}

// Clear removes everyone, as when the tracker stops.
func (w *World) Clear() int {
	w.mu.Lock()
	n := w.people.Clear()
	w.mu.Unlock()
	w.emptied(n > 0)
	return n
}

func (w *World) emptied(ok bool) {
	if ok && w.OnEmpty != nil {
		w.OnEmpty()
	}
}

// SetSoftBound moves one edge of the soft bounds and recomputes the floor.
// A value that would leave a span of 1 m or less is rejected.
func (w *World) SetSoftBound(e Edge, v float64) error {
	w.mu.Lock()
	soft := w.soft
	switch e {
	case MinX:
		soft.MinX = v
	case MaxX:
		soft.MaxX = v
	case MinY:
		soft.MinY = v
	case MaxY:
		soft.MaxY = v
	default:
		w.mu.Unlock()
		return fmt.Errorf("unknown edge %v", e)
	}
	if !soft.Valid() {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s=%g", ErrBadBounds, e, v)
	}
	w.soft = soft
	b, changed := w.resetCoords()
	w.mu.Unlock()
	w.notify(b, changed)
	return nil
}

// SetSoftBounds replaces all four soft bounds.
func (w *World) SetSoftBounds(soft floor.Bounds) error {
	if !soft.Valid() {
		return fmt.Errorf("%w: %+v", ErrBadBounds, soft)
	}
	w.mu.Lock()
	w.soft = soft
	b, changed := w.resetCoords()
	w.mu.Unlock()
	w.notify(b, changed)
	return nil
}

// SetRotation sets the sensor rotation in degrees and re-announces the
// floor bounds through OnReset.
func (w *World) SetRotation(deg float64) {
	w.mu.Lock()
	w.rotation = deg
	b, _ := w.resetCoords()
	w.mu.Unlock()
	w.notify(b, true)
}

// Rotation returns the sensor rotation in degrees.
func (w *World) Rotation() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotation
}

func (w *World) projector(i int) (*projector.Projector, error) {
	if i < 0 || i >= len(w.projectors) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrBadProjector, i, len(w.projectors))
	}
	return w.projectors[i], nil
}

// SetScreen2World installs projector i's screen→floor homography and
// recomputes the floor bounds.
func (w *World) SetScreen2World(i int, m mgl64.Mat3) error {
	w.mu.Lock()
	p, err := w.projector(i)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	p.SetScreen2World(m)
	logReprojection(p)
	b, changed := w.resetCoords()
	w.mu.Unlock()
	w.notify(b, changed)
	return nil
}

// SetWorld2Screen installs projector i's floor→screen homography.
func (w *World) SetWorld2Screen(i int, m mgl64.Mat3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.projector(i)
	if err != nil {
		return err
	}
	p.SetWorld2Screen(m)
	logReprojection(p)
	return nil
}

// SetCameraView installs projector i's camera extrinsics.
func (w *World) SetCameraView(i int, m mgl64.Mat4) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.projector(i)
	if err != nil {
		return err
	}
	p.SetCameraView(m)
	return nil
}

// SetProjection installs projector i's lens model.
func (w *World) SetProjection(i int, m mgl64.Mat2x3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.projector(i)
	if err != nil {
		return err
	}
	p.SetProjection(m)
	logReprojection(p)
	return nil
}

// SetPose sets projector i's position.
func (w *World) SetPose(i int, pos mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.projector(i)
	if err != nil {
		return err
	}
	p.SetPose(pos)
	return nil
}

func logReprojection(p *projector.Projector) {
	if e, ok := p.ReprojectionError(); ok {
		log.Debug("calibration updated", "projector", p.Index, "reprojection_px", e)
	}
}

// ResetCoords recomputes the floor bounds from the soft bounds and the
// projectors' coverage and returns the result.
func (w *World) ResetCoords() floor.Bounds {
	w.mu.Lock()
	b, changed := w.resetCoords()
	w.mu.Unlock()
	w.notify(b, changed)
	return b
}

// resetCoords clamps the soft bounds to the union of the calibrated
// projectors' coverage boxes. Without calibration the soft bounds are used
// as is. A result spanning 1 m or less is refused and the previous bounds
// stay. Callers hold w.mu.
func (w *World) resetCoords() (floor.Bounds, bool) {
	var union orb.Bound
	have := false
	for _, p := range w.projectors {
		b, ok := p.CoverageBound()
		if !ok {
			continue
		}
		if !have {
			union, have = b, true
		} else {
			union = union.Union(b)
		}
	}

	next := w.soft
	if have {
		next = w.soft.Clamp(union)
	}
	if !next.Valid() {
		log.Warn("resetcoords: projector coverage too small, keeping bounds",
			"candidate", next, "kept", w.bounds)
		return w.bounds, false
	}
	if next == w.bounds && w.generation > 0 {
		return w.bounds, false
	}
	w.bounds = next
	w.generation++
	log.Info("resetcoords", "minx", next.MinX, "maxx", next.MaxX,
		"miny", next.MinY, "maxy", next.MaxY, "generation", w.generation)
	return next, true
}

func (w *World) notify(b floor.Bounds, changed bool) {
	if changed && w.OnReset != nil {
		w.OnReset(b)
	}
}

// Frame runs fn with the lock held for its whole duration.
func (w *World) Frame(fn func(View) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(View{
		Bounds:     w.bounds,
		Space:      floor.NewSpace(w.bounds),
		Generation: w.generation,
		Rotation:   w.rotation,
		Projectors: w.projectors,
		People:     w.people.Snapshot(),
	})
}

// Bounds returns the current floor bounds.
func (w *World) Bounds() floor.Bounds {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

// Generation counts floor bounds changes.
func (w *World) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// NumProjectors returns the fixed projector count.
func (w *World) NumProjectors() int {
	return len(w.projectors)
}

// Person returns a copy of the person with id, if active.
func (w *World) Person(id int) (people.Person, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.people.Get(id)
	if p == nil {
		return people.Person{}, false
	}
	return *p, true
}

// Status returns a summary of the world.
func (w *World) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{
		Bounds:     w.bounds,
		Soft:       w.soft,
		Rotation:   w.rotation,
		People:     w.people.Len(),
		Projectors: len(w.projectors),
		Generation: w.generation,
	}
	for _, p := range w.projectors {
		if p.Calibrated() {
			s.Calibrated++
		}
	}
	return s
}
