package people

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec2) bool {
	return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
}

func TestEntryExit_Lifecycle(t *testing.T) {
	ps := New()

	p := ps.Entry(5, 3)
	if p.ID != 5 || p.Channel != 3 {
		t.Fatalf("Entry created %+v", p)
	}
	if p.Legs[0] != (Leg{}) || p.Legs[1] != (Leg{}) {
		t.Errorf("legs not zero-initialized: %+v", p.Legs)
	}
	if again := ps.Entry(5, 9); again != p || again.Channel != 3 {
		t.Error("Entry on active id must be idempotent")
	}

	if !ps.Exit(5) {
		t.Fatal("Exit(5) reported absent")
	}
	if ps.Get(5) != nil {
		t.Fatal("person 5 still present after exit")
	}
	ok, err := ps.UpdateLeg(5, 0, mgl64.Vec2{1, 1}, 1, 0)
	if ok || err != nil {
		t.Errorf("UpdateLeg on exited id = (%v, %v), want no-op", ok, err)
	}
	if ps.Get(5) != nil {
		t.Error("UpdateLeg resurrected person 5")
	}
	if ps.Exit(5) {
		t.Error("second Exit should report absent")
	}
}

func TestMove_CreatesAbsentPerson(t *testing.T) {
	ps := New()

	ps.Move(7, 2, mgl64.Vec2{1, 2}, mgl64.Vec2{0.5, 0}, 7, 1, 3.5)
	p := ps.Get(7)
	if p == nil {
		t.Fatal("Move did not create person")
	}
	if p.Origin != (mgl64.Vec2{1, 2}) || p.Velocity != (mgl64.Vec2{0.5, 0}) {
		t.Errorf("kinematics not applied: %+v", p)
	}
	if p.GroupID != 7 || p.GroupSize != 1 || p.Elapsed != 3.5 {
		t.Errorf("group fields not applied: %+v", p)
	}

	ps.Move(7, 2, mgl64.Vec2{3, 4}, mgl64.Vec2{}, 9, 2, 4)
	if p.Origin != (mgl64.Vec2{3, 4}) || p.GroupSize != 2 {
		t.Errorf("second Move did not overwrite: %+v", p)
	}
	if ps.Len() != 1 {
		t.Errorf("Len = %d, want 1", ps.Len())
	}
}

func TestUpdateBody_OnlyExisting(t *testing.T) {
	ps := New()

	if ps.UpdateBody(1, 0.3, 0.15) {
		t.Fatal("UpdateBody created a person")
	}
	if ps.Len() != 0 {
		t.Fatal("UpdateBody must not create")
	}

	ps.Entry(1, 0)
	if !ps.UpdateBody(1, 0.3, 0.15) {
		t.Fatal("UpdateBody on active person failed")
	}
	p := ps.Get(1)
	if p.LegSeparation != 0.3 || p.Diameter != 0.15 {
		t.Errorf("body not applied: %+v", p)
	}
	if p.Legs[0].Diameter != 0.15 || p.Legs[1].Diameter != 0.15 {
		t.Errorf("leg diameters not applied: %+v", p.Legs)
	}
}

func TestUpdateLeg_Polar(t *testing.T) {
	ps := New()
	ps.Entry(1, 0)

	tests := []struct {
		heading float64
		want    mgl64.Vec2
	}{
		{0, mgl64.Vec2{0, 2}},
		{90, mgl64.Vec2{-2, 0}},
		{180, mgl64.Vec2{0, -2}},
		{-90, mgl64.Vec2{2, 0}},
	}
	for _, tt := range tests {
		ok, err := ps.UpdateLeg(1, 1, mgl64.Vec2{0.5, 1}, 2, tt.heading)
		if !ok || err != nil {
			t.Fatalf("UpdateLeg = (%v, %v)", ok, err)
		}
		if got := ps.Get(1).Legs[1].Velocity; !vecNear(got, tt.want) {
			t.Errorf("heading %g: velocity %v, want %v", tt.heading, got, tt.want)
		}
	}
	if ps.Get(1).Legs[0].Origin != (mgl64.Vec2{}) {
		t.Error("leg 0 changed by leg 1 update")
	}
}

func TestUpdateLeg_BadIndex(t *testing.T) {
	ps := New()
	ps.Entry(1, 0)

	for _, leg := range []int{-1, 2, 7} {
		if _, err := ps.UpdateLeg(1, leg, mgl64.Vec2{}, 0, 0); !errors.Is(err, ErrBadLeg) {
			t.Errorf("leg %d: err = %v, want ErrBadLeg", leg, err)
		}
	}
}

func TestSetCount_ZeroClearsEveryone(t *testing.T) {
	ps := New()
	ps.Entry(1, 0)
	ps.Entry(2, 0)
	ps.Move(3, 0, mgl64.Vec2{}, mgl64.Vec2{}, 3, 1, 0)

	if n := ps.SetCount(3); n != 0 || ps.Len() != 3 {
		t.Fatalf("non-zero count changed state: removed %d, len %d", n, ps.Len())
	}
	if n := ps.SetCount(0); n != 3 {
		t.Errorf("SetCount(0) removed %d, want 3", n)
	}
	if ps.Len() != 0 {
		t.Errorf("Len after SetCount(0) = %d", ps.Len())
	}
}

func TestSnapshot_SortedCopies(t *testing.T) {
	ps := New()
	for _, id := range []int{9, 2, 5} {
		ps.Entry(id, 0)
	}

	snap := ps.Snapshot()
	if len(snap) != 3 || snap[0].ID != 2 || snap[1].ID != 5 || snap[2].ID != 9 {
		t.Fatalf("snapshot order wrong: %+v", snap)
	}
	snap[0].Origin = mgl64.Vec2{9, 9}
	if ps.Get(2).Origin != (mgl64.Vec2{}) {
		t.Error("snapshot aliases tracker state")
	}
}

func TestPerson_LegFallbacks(t *testing.T) {
	ps := New()
	p := ps.Move(1, 0, mgl64.Vec2{2, 3}, mgl64.Vec2{3, 4}, 1, 1, 0)
	ps.UpdateBody(1, 0.3, 0.2)

	if p.LegsSeen() {
		t.Fatal("LegsSeen before any leg update")
	}
	if got := p.LegMidpoint(); got != (mgl64.Vec2{2, 3}) {
		t.Errorf("midpoint fallback = %v", got)
	}
	if p.Speed() != 5 {
		t.Errorf("Speed = %g, want 5", p.Speed())
	}

	ps.UpdateLeg(1, 0, mgl64.Vec2{1, 3}, 0, 0)
	ps.UpdateLeg(1, 1, mgl64.Vec2{3, 3}, 0, 0)
	if got := p.LegMidpoint(); !vecNear(got, mgl64.Vec2{2, 3}) {
		t.Errorf("midpoint = %v", got)
	}
	l0, l1 := p.LegOrigins()
	if l0 != (mgl64.Vec2{1, 3}) || l1 != (mgl64.Vec2{3, 3}) {
		t.Errorf("LegOrigins = %v %v", l0, l1)
	}
	d0, d1 := p.LegDiameters()
	if d0 != 0.2 || d1 != 0.2 {
		t.Errorf("LegDiameters = %g %g", d0, d1)
	}
}
