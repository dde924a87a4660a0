package world

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"pulsefield/internal/floor"
	"pulsefield/internal/people"
	"pulsefield/internal/projector"
)

var soft = floor.Bounds{MinX: -5, MaxX: 5, MinY: 0, MaxY: 5}

func uncalibrated(n int) []*projector.Projector {
	out := make([]*projector.Projector, n)
	for i := range out {
		out[i] = projector.New(i, 1920, 1080)
	}
	return out
}

// square maps a w×h screen onto a size×size metre square at (x0, y0).
func square(x0, y0, size float64) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{size / 1920, 0, x0},
		mgl64.Vec3{0, size / 1080, y0},
		mgl64.Vec3{0, 0, 1},
	)
}

func TestNew_RejectsBadSoftBounds(t *testing.T) {
	_, err := New(floor.Bounds{MinX: 0, MaxX: 1, MinY: 0, MaxY: 5}, nil)
	if !errors.Is(err, ErrBadBounds) {
		t.Fatalf("err = %v, want ErrBadBounds", err)
	}
}

func TestResetCoords_UncalibratedUsesSoft(t *testing.T) {
	w, err := New(soft, uncalibrated(2))
	if err != nil {
		t.Fatal(err)
	}
	if w.Bounds() != soft {
		t.Errorf("Bounds = %+v, want soft %+v", w.Bounds(), soft)
	}
	if w.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", w.Generation())
	}
}

func TestResetCoords_ClampsToCoverage(t *testing.T) {
	inner := floor.Bounds{MinX: -2, MaxX: 2, MinY: 1, MaxY: 4}
	w, err := New(soft, projector.DefaultLayout(2, inner, 1920, 1080, 0))
	if err != nil {
		t.Fatal(err)
	}
	got := w.Bounds()
	const eps = 1e-9
	if abs(got.MinX+2) > eps || abs(got.MaxX-2) > eps || abs(got.MinY-1) > eps || abs(got.MaxY-4) > eps {
		t.Errorf("Bounds = %+v, want %+v", got, inner)
	}
}

func TestResetCoords_KeepsBoundsWhenCoverageTooSmall(t *testing.T) {
	w, err := New(soft, uncalibrated(1))
	if err != nil {
		t.Fatal(err)
	}
	var resets int
	w.OnReset = func(floor.Bounds) { resets++ }
	gen := w.Generation()

	if err := w.SetScreen2World(0, square(0, 1, 0.5)); err != nil {
		t.Fatal(err)
	}
	if w.Bounds() != soft {
		t.Errorf("Bounds = %+v, want unchanged %+v", w.Bounds(), soft)
	}
	if w.Generation() != gen || resets != 0 {
		t.Errorf("generation %d->%d, resets %d: refused reset must not count", gen, w.Generation(), resets)
	}
}

func TestResetCoords_InvariantHolds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	w, err := New(soft, uncalibrated(3))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		switch r.Intn(3) {
		case 0:
			_ = w.SetSoftBound(Edge(r.Intn(4)), r.Float64()*20-10)
		case 1:
			_ = w.SetScreen2World(r.Intn(3), square(r.Float64()*10-5, r.Float64()*6-1, r.Float64()*6))
		default:
			w.ResetCoords()
		}
		if b := w.Bounds(); !b.Valid() {
			t.Fatalf("step %d: bounds %+v violate the 1 m span", i, b)
		}
	}
}

func TestSetSoftBound(t *testing.T) {
	w, err := New(soft, uncalibrated(1))
	if err != nil {
		t.Fatal(err)
	}
	var got floor.Bounds
	w.OnReset = func(b floor.Bounds) { got = b }

	if err := w.SetSoftBound(MaxX, -4.5); !errors.Is(err, ErrBadBounds) {
		t.Fatalf("err = %v, want ErrBadBounds", err)
	}
	if w.Status().Soft != soft {
		t.Error("rejected bound changed soft bounds")
	}

	if err := w.SetSoftBound(MinY, 1); err != nil {
		t.Fatal(err)
	}
	want := floor.Bounds{MinX: -5, MaxX: 5, MinY: 1, MaxY: 5}
	if w.Bounds() != want || got != want {
		t.Errorf("Bounds = %+v, OnReset saw %+v, want %+v", w.Bounds(), got, want)
	}
}

func TestParseEdge(t *testing.T) {
	for i, name := range []string{"minx", "maxx", "miny", "maxy"} {
		e, ok := ParseEdge(name)
		if !ok || e != Edge(i) || e.String() != name {
			t.Errorf("ParseEdge(%q) = %v, %v", name, e, ok)
		}
	}
	if _, ok := ParseEdge("rotation"); ok {
		t.Error("ParseEdge accepted rotation")
	}
}

func TestCalibration_BadIndex(t *testing.T) {
	w, err := New(soft, uncalibrated(2))
	if err != nil {
		t.Fatal(err)
	}
	before := w.Status()

	checks := []error{
		w.SetScreen2World(2, square(0, 0, 3)),
		w.SetScreen2World(-1, square(0, 0, 3)),
		w.SetWorld2Screen(5, mgl64.Ident3()),
		w.SetCameraView(9, mgl64.Ident4()),
		w.SetProjection(2, mgl64.Mat2x3{}),
		w.SetPose(3, mgl64.Vec3{}),
	}
	for i, err := range checks {
		if !errors.Is(err, ErrBadProjector) {
			t.Errorf("check %d: err = %v, want ErrBadProjector", i, err)
		}
	}
	if after := w.Status(); after != before {
		t.Errorf("status changed: %+v -> %+v", before, after)
	}
}

func TestCalibration_Setters(t *testing.T) {
	w, err := New(soft, uncalibrated(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetScreen2World(1, square(-4, 0.5, 3)); err != nil {
		t.Fatal(err)
	}
	if err := w.SetPose(1, mgl64.Vec3{0, -1, 4}); err != nil {
		t.Fatal(err)
	}
	if s := w.Status(); s.Calibrated != 1 || s.Projectors != 2 {
		t.Errorf("status = %+v", s)
	}
	want := floor.Bounds{MinX: -4, MaxX: -1, MinY: 0.5, MaxY: 3.5}
	if b := w.Bounds(); abs(b.MinX-want.MinX) > 1e-9 || abs(b.MaxY-want.MaxY) > 1e-9 {
		t.Errorf("Bounds = %+v, want %+v", b, want)
	}
	err = w.Frame(func(v View) error {
		if v.Projectors[1].Position != (mgl64.Vec3{0, -1, 4}) {
			t.Errorf("pose not applied: %v", v.Projectors[1].Position)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPeople_ThroughWorld(t *testing.T) {
	w, err := New(soft, uncalibrated(1))
	if err != nil {
		t.Fatal(err)
	}
	w.Entry(5, 1)
	w.Exit(5)
	if err := w.UpdateLeg(5, 0, mgl64.Vec2{1, 1}, 1, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Person(5); ok {
		t.Fatal("leg update recreated person 5")
	}
	if err := w.UpdateLeg(5, 3, mgl64.Vec2{}, 0, 0); !errors.Is(err, people.ErrBadLeg) {
		t.Errorf("err = %v, want ErrBadLeg", err)
	}

	for id := 1; id <= 3; id++ {
		w.Move(id, 0, mgl64.Vec2{float64(id), 1}, mgl64.Vec2{}, id, 1, 0)
	}
	w.UpdateBody(2, 0.3, 0.2)
	if p, _ := w.Person(2); p.Diameter != 0.2 {
		t.Errorf("body update lost: %+v", p)
	}
	w.SetCount(3)
	if w.Status().People != 3 {
		t.Fatal("non-zero count changed people")
	}
	w.SetCount(0)
	if w.Status().People != 0 {
		t.Errorf("SetCount(0) left %d people", w.Status().People)
	}
	w.Entry(9, 0)
	if n := w.Clear(); n != 1 {
		t.Errorf("Clear removed %d, want 1", n)
	}
}

func TestFrame_HoldsLock(t *testing.T) {
	w, err := New(soft, uncalibrated(1))
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	err = w.Frame(func(v View) error {
		go func() {
			w.Entry(1, 0)
			close(done)
		}()
		select {
		case <-done:
			t.Error("mutation completed while a frame was running")
		case <-time.After(20 * time.Millisecond):
		}
		if len(v.People) != 0 {
			t.Error("frame saw a person that had not entered")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	<-done
	if _, ok := w.Person(1); !ok {
		t.Error("queued entry was lost")
	}
}

func TestFrame_ReturnsCallbackError(t *testing.T) {
	w, err := New(soft, uncalibrated(1))
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := w.Frame(func(View) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Frame err = %v", err)
	}
}

func TestRotation(t *testing.T) {
	w, err := New(soft, nil)
	if err != nil {
		t.Fatal(err)
	}
	var announced []floor.Bounds
	w.OnReset = func(b floor.Bounds) { announced = append(announced, b) }
	gen := w.Generation()

	w.SetRotation(12.5)
	if w.Rotation() != 12.5 || w.Status().Rotation != 12.5 {
		t.Errorf("rotation = %g", w.Rotation())
	}
	if len(announced) != 1 || announced[0] != soft {
		t.Errorf("bounds announced %v", announced)
	}
	if w.Generation() != gen {
		t.Errorf("generation moved %d -> %d without a bounds change", gen, w.Generation())
	}
}

func TestOnEmpty(t *testing.T) {
	w, err := New(soft, nil)
	if err != nil {
		t.Fatal(err)
	}
	fired := 0
	w.OnEmpty = func() { fired++ }

	w.Exit(1)
	w.Clear()
	w.SetCount(0)
	if fired != 0 {
		t.Fatalf("fired %d times on an empty floor", fired)
	}

	w.Entry(1, 0)
	w.Entry(2, 0)
	w.Exit(1)
	if fired != 0 {
		t.Errorf("fired with one person left")
	}
	w.Exit(2)
	if fired != 1 {
		t.Errorf("last exit fired %d", fired)
	}

	w.Entry(3, 0)
	w.SetCount(4)
	if fired != 1 {
		t.Errorf("nonzero count fired")
	}
	w.SetCount(0)
	if fired != 2 {
		t.Errorf("zero count fired %d", fired)
	}

	w.Move(4, 0, mgl64.Vec2{1, 1}, mgl64.Vec2{}, 0, 1, 0)
	w.Clear()
	if fired != 3 {
		t.Errorf("clear fired %d", fired)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
