// Package floor holds the coordinate systems of the tracked floor: sensor
// space, floor space (metres, axis aligned), normalized device space and the
// pixel rasters laid over the floor.
package floor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
)

// MinSpan is the smallest width or height, in metres, the floor may have.
const MinSpan = 1.0

// Bounds is the axis-aligned floor rectangle in metres.
type Bounds struct {
	MinX float64 `json:"minx"`
	MaxX float64 `json:"maxx"`
	MinY float64 `json:"miny"`
	MaxY float64 `json:"maxy"`
}

// Valid reports whether both axes span more than MinSpan.
func (b Bounds) Valid() bool {
	return b.MinX < b.MaxX-MinSpan && b.MinY < b.MaxY-MinSpan
}

// Center returns the middle of the floor.
func (b Bounds) Center() mgl64.Vec2 {
	return mgl64.Vec2{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

// Size returns the floor width and height.
func (b Bounds) Size() mgl64.Vec2 {
	return mgl64.Vec2{b.MaxX - b.MinX, b.MaxY - b.MinY}
}

// Contains reports whether p lies on the floor, edges included.
func (b Bounds) Contains(p mgl64.Vec2) bool {
	return p[0] >= b.MinX && p[0] <= b.MaxX && p[1] >= b.MinY && p[1] <= b.MaxY
}

// Bound converts to an orb bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// FromBound converts an orb bound.
func FromBound(ob orb.Bound) Bounds {
	return Bounds{MinX: ob.Min[0], MaxX: ob.Max[0], MinY: ob.Min[1], MaxY: ob.Max[1]}
}

// Clamp restricts b to lie inside limit. The result may be invalid when the
// two rectangles barely overlap; callers check Valid.
func (b Bounds) Clamp(limit orb.Bound) Bounds {
	return Bounds{
		MinX: math.Max(b.MinX, limit.Min[0]),
		MaxX: math.Min(b.MaxX, limit.Max[0]),
		MinY: math.Max(b.MinY, limit.Min[1]),
		MaxY: math.Min(b.MaxY, limit.Max[1]),
	}
}

// Intersect returns the overlap of a and b. Like Clamp the result may be
// invalid.
func Intersect(a, b Bounds) Bounds {
	return a.Clamp(b.Bound())
}

// Space provides the pure transforms for one set of floor bounds.
type Space struct {
	Bounds Bounds
}

// NewSpace returns the transforms for b.
func NewSpace(b Bounds) Space {
	return Space{Bounds: b}
}

// FloorCenter returns the centre of the active area.
func (s Space) FloorCenter() mgl64.Vec2 { return s.Bounds.Center() }

// FloorSize returns the size of the active area.
func (s Space) FloorSize() mgl64.Vec2 { return s.Bounds.Size() }

// FloorToNormalized maps a floor point to [-1,1]² with y inverted, so
// (minx,miny) lands on (-1,1) and (maxx,maxy) on (1,-1). With preserveAspect
// both axes use the shorter floor dimension and shapes keep their proportions.
func (s Space) FloorToNormalized(p mgl64.Vec2, preserveAspect bool) mgl64.Vec2 {
	d := p.Sub(s.FloorCenter())
	sz := s.FloorSize()
	if preserveAspect {
		k := 2 / math.Min(sz[0], sz[1])
		return mgl64.Vec2{d[0] * k, -d[1] * k}
	}
	return mgl64.Vec2{d[0] * 2 / sz[0], -d[1] * 2 / sz[1]}
}

// NormalizedToFloor is the inverse of FloorToNormalized(p, false).
func (s Space) NormalizedToFloor(n mgl64.Vec2) mgl64.Vec2 {
	c := s.FloorCenter()
	sz := s.FloorSize()
	return mgl64.Vec2{n[0]*sz[0]/2 + c[0], -n[1]*sz[1]/2 + c[1]}
}

// MapVelocity converts metres/second into normalized units per second. The
// sensor and screen x axes are mirrored, hence the negated x.
func (s Space) MapVelocity(v mgl64.Vec2) mgl64.Vec2 {
	sz := s.FloorSize()
	return mgl64.Vec2{-v[0] * 2 / sz[0], v[1] * 2 / sz[1]}
}

// SensorToFloor rotates a raw sensor position counter-clockwise by
// rotationDeg about the sensor origin.
func SensorToFloor(p mgl64.Vec2, rotationDeg float64) mgl64.Vec2 {
	if rotationDeg == 0 {
		return p
	}
	return mgl64.Rotate2D(mgl64.DegToRad(rotationDeg)).Mul2x1(p)
}

// SensorVelocityToFloor applies the same rotation to a velocity.
func SensorVelocityToFloor(v mgl64.Vec2, rotationDeg float64) mgl64.Vec2 {
	return SensorToFloor(v, rotationDeg)
}
