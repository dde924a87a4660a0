package projector

import (
	"github.com/go-gl/mathgl/mgl64"

	"pulsefield/internal/floor"
)

// layoutHeight is the mounting height used for synthetic poses, in metres.
const layoutHeight = 4.0

// DefaultLayout calibrates n projectors of w×h pixels as side-by-side
// columns over b, each overlapping its neighbours by overlapPx screen
// pixels. It stands in for the calibration tool in demos and tests. The
// camera model is made consistent with world2screen so the reprojection
// error is zero.
func DefaultLayout(n int, b floor.Bounds, w, h, overlapPx int) []*Projector {
	if overlapPx >= w {
		overlapPx = w - 1
	}
	sz := b.Size()
	colW := sz[0] / float64(n)
	// margin is half the overlap in metres; with k = (colW+2m)/w metres per
	// pixel, overlapPx·k = 2m.
	margin := float64(overlapPx) * colW / float64(w-overlapPx) / 2
	spanY := sz[1] + 2*margin

	out := make([]*Projector, n)
	for i := range out {
		p := New(i, w, h)
		left := b.MinX + float64(i)*colW - margin
		kx := (colW + 2*margin) / float64(w)
		ky := spanY / float64(h)
		top := b.MaxY + margin

		s2w := mgl64.Mat3FromRows(
			mgl64.Vec3{kx, 0, left},
			mgl64.Vec3{0, -ky, top},
			mgl64.Vec3{0, 0, 1},
		)
		w2s := s2w.Inv()
		p.SetScreen2World(s2w)
		p.SetWorld2Screen(w2s)
		p.SetCameraView(mgl64.Mat4FromRows(
			mgl64.Vec4{1, 0, 0, 0},
			mgl64.Vec4{0, 1, 0, 0},
			mgl64.Vec4{0, 0, 0, 1},
			mgl64.Vec4{0, 0, 0, 1},
		))
		p.SetProjection(mgl64.Mat2x3FromRows(w2s.Row(0), w2s.Row(1)))
		p.SetPose(mgl64.Vec3{left + (colW+2*margin)/2, b.MinY - 1, layoutHeight})
		out[i] = p
	}
	return out
}
