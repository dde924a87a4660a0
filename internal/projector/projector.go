// Package projector holds per-projector calibration: the screen/world
// homographies, the camera pose and lens model, and the floor area each
// projector can light.
//
// Calibration setters accept any coefficients. Only the projector index is
// validated, by the caller that owns the projector array.
package projector

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// wEpsilon is the smallest homogeneous w treated as a finite point.
const wEpsilon = 1e-9

// Projector is the calibration state of one physical projector.
type Projector struct {
	Index         int
	Width, Height int

	Screen2World mgl64.Mat3
	World2Screen mgl64.Mat3
	// CameraView maps world points into camera coordinates. Only the top
	// three rows are set by calibration.
	CameraView mgl64.Mat4
	// Projection maps perspective-divided camera coordinates to screen pixels.
	Projection mgl64.Mat2x3
	Position   mgl64.Vec3

	coverage   orb.Ring
	calibrated bool
}

// New returns an uncalibrated projector with identity transforms.
func New(index, width, height int) *Projector {
	return &Projector{
		Index:        index,
		Width:        width,
		Height:       height,
		Screen2World: mgl64.Ident3(),
		World2Screen: mgl64.Ident3(),
		CameraView:   mgl64.Ident4(),
		Projection:   mgl64.Mat2x3FromRows(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}),
	}
}

// Calibrated reports whether a screen-to-world transform has been set.
func (p *Projector) Calibrated() bool { return p.calibrated }

// SetScreen2World installs the screen→floor homography and recomputes the
// coverage polygon.
func (p *Projector) SetScreen2World(m mgl64.Mat3) {
	p.Screen2World = m
	p.calibrated = true
	p.updateCoverage()
}

// SetWorld2Screen installs the floor→screen homography.
func (p *Projector) SetWorld2Screen(m mgl64.Mat3) { p.World2Screen = m }

// SetCameraView installs the 3×4 camera extrinsics. The bottom row is
// forced to (0,0,0,1).
func (p *Projector) SetCameraView(m mgl64.Mat4) {
	m.SetRow(3, mgl64.Vec4{0, 0, 0, 1})
	p.CameraView = m
}

// SetProjection installs the 2×3 lens model.
func (p *Projector) SetProjection(m mgl64.Mat2x3) { p.Projection = m }

// SetPose sets the projector position in world metres.
func (p *Projector) SetPose(pos mgl64.Vec3) { p.Position = pos }

// Position2D is the projector position on the floor plane.
func (p *Projector) Position2D() mgl64.Vec2 { return p.Position.Vec2() }

// Coverage returns a copy of the floor polygon lit by this projector as a
// closed ring. It is empty when uncalibrated or when a screen corner maps to
// infinity.
func (p *Projector) Coverage() orb.Ring {
	if len(p.coverage) == 0 {
		return nil
	}
	return p.coverage.Clone()
}

// CoverageBound returns the bounding box of the coverage polygon.
func (p *Projector) CoverageBound() (orb.Bound, bool) {
	if len(p.coverage) == 0 {
		return orb.Bound{}, false
	}
	return p.coverage.Bound(), true
}

// CoverageArea is the lit floor area in square metres.
func (p *Projector) CoverageArea() float64 {
	if len(p.coverage) == 0 {
		return 0
	}
	return math.Abs(planar.Area(p.coverage))
}

// Corners returns the screen corners in pixels, clockwise from top-left.
func (p *Projector) Corners() [4]mgl64.Vec2 {
	w, h := float64(p.Width), float64(p.Height)
	return [4]mgl64.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

func (p *Projector) updateCoverage() {
	ring := make(orb.Ring, 0, 5)
	for _, c := range p.Corners() {
		w, ok := p.ScreenToWorld(c)
		if !ok {
			p.coverage = nil
			return
		}
		ring = append(ring, orb.Point{w[0], w[1]})
	}
	ring = append(ring, ring[0])
	p.coverage = ring
}

// ScreenToWorld maps a screen pixel onto the floor. It reports false when
// the point maps to infinity.
func (p *Projector) ScreenToWorld(s mgl64.Vec2) (mgl64.Vec2, bool) {
	return applyHomography(p.Screen2World, s)
}

// WorldToScreen maps a floor point to screen pixels.
func (p *Projector) WorldToScreen(w mgl64.Vec2) (mgl64.Vec2, bool) {
	return applyHomography(p.World2Screen, w)
}

// ProjectPoint runs a world point through the camera view and the lens
// model. It reports false for points on the camera plane.
func (p *Projector) ProjectPoint(w mgl64.Vec3) (mgl64.Vec2, bool) {
	c := p.CameraView.Mul4x1(w.Vec4(1))
	if math.Abs(c[2]) < wEpsilon {
		return mgl64.Vec2{}, false
	}
	return p.Projection.Mul3x1(mgl64.Vec3{c[0] / c[2], c[1] / c[2], 1}), true
}

// ReprojectionError is the largest pixel disagreement, over the coverage
// corners, between the world2screen homography and the camera model. A
// consistent calibration gives a value near zero.
func (p *Projector) ReprojectionError() (float64, bool) {
	if len(p.coverage) == 0 {
		return 0, false
	}
	worst := 0.0
	for _, pt := range p.coverage[:len(p.coverage)-1] {
		a, ok1 := p.WorldToScreen(mgl64.Vec2{pt[0], pt[1]})
		b, ok2 := p.ProjectPoint(mgl64.Vec3{pt[0], pt[1], 0})
		if !ok1 || !ok2 {
			return 0, false
		}
		worst = math.Max(worst, a.Sub(b).Len())
	}
	return worst, true
}

func applyHomography(m mgl64.Mat3, v mgl64.Vec2) (mgl64.Vec2, bool) {
	h := m.Mul3x1(v.Vec3(1))
	if math.Abs(h[2]) < wEpsilon {
		return mgl64.Vec2{}, false
	}
	return mgl64.Vec2{h[0] / h[2], h[1] / h[2]}, true
}

// HomographyFromRows builds a 3×3 matrix from nine row-major coefficients.
func HomographyFromRows(c [9]float64) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{c[0], c[1], c[2]},
		mgl64.Vec3{c[3], c[4], c[5]},
		mgl64.Vec3{c[6], c[7], c[8]},
	)
}

// CameraViewFromRows builds the camera view from twelve row-major
// coefficients of its top three rows.
func CameraViewFromRows(c [12]float64) mgl64.Mat4 {
	return mgl64.Mat4FromRows(
		mgl64.Vec4{c[0], c[1], c[2], c[3]},
		mgl64.Vec4{c[4], c[5], c[6], c[7]},
		mgl64.Vec4{c[8], c[9], c[10], c[11]},
		mgl64.Vec4{0, 0, 0, 1},
	)
}

// ProjectionFromRows builds the lens model from six row-major coefficients.
func ProjectionFromRows(c [6]float64) mgl64.Mat2x3 {
	return mgl64.Mat2x3FromRows(
		mgl64.Vec3{c[0], c[1], c[2]},
		mgl64.Vec3{c[3], c[4], c[5]},
	)
}
