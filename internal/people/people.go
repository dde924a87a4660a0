// Package people models the occupants reported by the tracking front end:
// one Person per tracked id, each with two legs.
//
// People is not safe for concurrent use. The world state serializes every
// access under its single lock.
package people

import (
	"errors"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrBadLeg is returned for leg indices other than 0 and 1.
var ErrBadLeg = errors.New("leg index out of range")

// NumLegs is the number of legs tracked per person.
const NumLegs = 2

// Leg is the kinematic state of one leg in floor metres.
type Leg struct {
	Origin   mgl64.Vec2
	Velocity mgl64.Vec2
	Diameter float64
}

// Person is one tracked occupant.
type Person struct {
	ID            int
	Channel       int
	Origin        mgl64.Vec2
	Velocity      mgl64.Vec2
	GroupID       int
	GroupSize     int
	Diameter      float64
	LegSeparation float64
	Elapsed       float64
	Legs          [NumLegs]Leg

	legsSeen bool
}

// LegsSeen reports whether any leg update has arrived for this person.
func (p *Person) LegsSeen() bool { return p.legsSeen }

// LegMidpoint is the point between the two legs, or the body origin while
// no leg data has arrived.
func (p *Person) LegMidpoint() mgl64.Vec2 {
	if !p.legsSeen {
		return p.Origin
	}
	return p.Legs[0].Origin.Add(p.Legs[1].Origin).Mul(0.5)
}

// LegOrigins returns both leg positions, falling back to the body origin
// while no leg data has arrived.
func (p *Person) LegOrigins() (mgl64.Vec2, mgl64.Vec2) {
	if !p.legsSeen {
		return p.Origin, p.Origin
	}
	return p.Legs[0].Origin, p.Legs[1].Origin
}

// LegDiameters returns both leg diameters, using the body diameter for legs
// that have none yet.
func (p *Person) LegDiameters() (float64, float64) {
	d0, d1 := p.Legs[0].Diameter, p.Legs[1].Diameter
	if d0 == 0 {
		d0 = p.Diameter
	}
	if d1 == 0 {
		d1 = p.Diameter
	}
	return d0, d1
}

// Speed is the body speed in metres per second.
func (p *Person) Speed() float64 {
	return p.Velocity.Len()
}

// People tracks the active occupants by id.
type People struct {
	m map[int]*Person
}

// New returns an empty tracker.
func New() *People {
	return &People{m: make(map[int]*Person)}
}

// Entry activates id. It is idempotent for an already active id.
func (ps *People) Entry(id, channel int) *Person {
	if p, ok := ps.m[id]; ok {
		return p
	}
	p := &Person{ID: id, Channel: channel}
	ps.m[id] = p
	return p
}

// Move applies a position update, creating the person when absent.
//
// Unlike UpdateBody and UpdateLeg, Move is get-or-create: the tracking
// stream can emit updates before the explicit entry message, and the update
// is the primary signal for a person's existence. Body and leg messages are
// refinements and never create a person.
func (ps *People) Move(id, channel int, pos, vel mgl64.Vec2, groupID, groupSize int, elapsed float64) *Person {
	p := ps.Entry(id, channel)
	p.Origin = pos
	p.Velocity = vel
	p.GroupID = groupID
	p.GroupSize = groupSize
	p.Elapsed = elapsed
	return p
}

// UpdateBody sets leg separation and diameter. It returns false, changing
// nothing, when id is not active.
func (ps *People) UpdateBody(id int, separation, diameter float64) bool {
	p, ok := ps.m[id]
	if !ok {
		return false
	}
	p.LegSeparation = separation
	p.Diameter = diameter
	for i := range p.Legs {
		p.Legs[i].Diameter = diameter
	}
	return true
}

// UpdateLeg moves one leg. Velocity is rebuilt from speed and a heading in
// degrees: vx = -speed·sin(heading), vy = speed·cos(heading). An absent id
// is a no-op; an invalid leg index is an error.
func (ps *People) UpdateLeg(id, leg int, pos mgl64.Vec2, speed, headingDeg float64) (bool, error) {
	if leg < 0 || leg >= NumLegs {
		return false, ErrBadLeg
	}
	p, ok := ps.m[id]
	if !ok {
		return false, nil
	}
	h := mgl64.DegToRad(headingDeg)
	p.Legs[leg].Origin = pos
	p.Legs[leg].Velocity = mgl64.Vec2{-speed * math.Sin(h), speed * math.Cos(h)}
	p.legsSeen = true
	return true, nil
}

// Exit removes id if present.
func (ps *People) Exit(id int) bool {
	if _, ok := ps.m[id]; !ok {
		return false
	}
	delete(ps.m, id)
	return true
}

// SetCount handles the tracker's authoritative head count. Zero clears every
// person regardless of outstanding exits; other values are informational.
func (ps *People) SetCount(n int) int {
	if n != 0 {
		return 0
	}
	return ps.Clear()
}

// Clear removes everyone and returns how many were removed.
func (ps *People) Clear() int {
	n := len(ps.m)
	clear(ps.m)
	return n
}

// Get returns the active person for id, or nil.
func (ps *People) Get(id int) *Person {
	return ps.m[id]
}

// Len returns the number of active people.
func (ps *People) Len() int {
	return len(ps.m)
}

// Snapshot copies the active people ordered by id.
func (ps *People) Snapshot() []Person {
	out := make([]Person, 0, len(ps.m))
	for _, p := range ps.m {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
