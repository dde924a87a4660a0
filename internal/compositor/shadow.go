package compositor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"

	"pulsefield/internal/people"
)

const (
	// DefaultShadowOffset is the clearance beyond the legs before the shadow
	// begins, in metres.
	DefaultShadowOffset = 0.1
	// DefaultShadowFarDist is how far the shadow extends past its near edge.
	DefaultShadowFarDist = 10.0
)

// ShadowQuad returns the floor polygon shaded by p when lit from a projector
// at proj. The near edge is perpendicular to the projector ray through the
// leg midpoint, wide enough to span both legs and their diameters. Each
// near corner is pushed offset metres outward along its own projector ray
// and the far corners lie far metres beyond. It reports false when the
// person stands on the projector position.
func ShadowQuad(p *people.Person, proj mgl64.Vec2, offset, far float64) (orb.Ring, bool) {
	l1, l2 := p.LegOrigins()
	d1, d2 := p.LegDiameters()
	pos := p.LegMidpoint()

	to := pos.Sub(proj)
	if to.Len() < 1e-9 {
		return nil, false
	}
	to = to.Normalize()
	// to × ẑ
	ra := mgl64.Vec2{to[1], -to[0]}

	nearWidth := l2.Sub(l1).Len() + (d1+d2)/2
	near1 := pos.Add(ra.Mul(nearWidth / 2))
	near2 := pos.Add(ra.Mul(-nearWidth / 2))

	near1, far1, ok1 := extend(proj, near1, offset, far)
	near2, far2, ok2 := extend(proj, near2, offset, far)
	if !ok1 || !ok2 {
		return nil, false
	}
	return orb.Ring{
		point(near1), point(near2), point(far2), point(far1), point(near1),
	}, true
}

func extend(from, corner mgl64.Vec2, offset, far float64) (mgl64.Vec2, mgl64.Vec2, bool) {
	dir := corner.Sub(from)
	if dir.Len() < 1e-9 {
		return corner, corner, false
	}
	dir = dir.Normalize()
	near := corner.Add(dir.Mul(offset))
	return near, near.Add(dir.Mul(far)), true
}

func point(v mgl64.Vec2) orb.Point { return orb.Point{v[0], v[1]} }
