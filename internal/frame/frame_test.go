package frame

import (
	"context"
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"pulsefield/internal/canvas"
	"pulsefield/internal/compositor"
	"pulsefield/internal/floor"
	"pulsefield/internal/projector"
	"pulsefield/internal/rows"
	"pulsefield/internal/visualizer"
	"pulsefield/internal/world"
)

var soft = floor.Bounds{MinX: -5, MaxX: 5, MinY: 0, MaxY: 5}

type solid struct {
	name    string
	col     color.RGBA
	explode bool
	updates int
	people  int
	starts  int
	stops   int
}

func (s *solid) Name() string { return s.name }
func (s *solid) Start()       { s.starts++ }
func (s *solid) Stop()        { s.stops++ }
func (s *solid) Update(f *visualizer.Frame) {
	s.updates++
	s.people = len(f.People)
}
func (s *solid) Draw(c *canvas.Canvas, _ *visualizer.Frame) error {
	if s.explode {
		panic("draw exploded")
	}
	c.Clear(s.col)
	return nil
}

// banded shades the canvas on row bands and indexes past its buffer in
// the first band.
type banded struct{ solid }

func (b *banded) Draw(c *canvas.Canvas, _ *visualizer.Frame) error {
	var lut []uint8
	return rows.Run(c.Raster().Height, func(y0, y1 int) error {
		if y0 == 0 {
			_ = lut[y1]
		}
		return nil
	})
}

func newTestOrchestrator(t *testing.T, vs ...visualizer.Visualizer) (*Orchestrator, *world.World) {
	t.Helper()
	w, err := world.New(soft, projector.DefaultLayout(2, soft, 160, 90, 16))
	if err != nil {
		t.Fatal(err)
	}
	o := New(w, visualizer.NewRegistry(vs...), Options{
		CanvasArea:   20000,
		MaskScale:    4,
		OutputWidth:  80,
		OutputHeight: 45,
		BeaconEvery:  2,
		Compositor:   compositor.DefaultOptions(),
	})
	t.Cleanup(o.Close)
	return o, w
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func TestTick_RendersEveryProjector(t *testing.T) {
	vis := &solid{name: "white", col: white}
	o, w := newTestOrchestrator(t, vis)
	w.Move(1, 0, mgl64.Vec2{4.5, 4.5}, mgl64.Vec2{}, 0, 1, 0)

	if err := o.Tick(); err != nil {
		t.Fatal(err)
	}
	st := o.Stats()
	if st.Ticks != 1 || st.Skipped != 0 {
		t.Errorf("stats = %+v", st)
	}
	if st.Canvas != [2]int{200, 100} || st.Mask != [2]int{50, 25} {
		t.Errorf("canvas %v mask %v", st.Canvas, st.Mask)
	}
	if vis.updates != 1 || vis.people != 1 {
		t.Errorf("visualizer saw %d updates, %d people", vis.updates, vis.people)
	}
	if st.Visualizer != "white" {
		t.Errorf("visualizer = %q", st.Visualizer)
	}
	for i, out := range o.Outputs() {
		if got := out.RGBAAt(40, 22); got != white {
			t.Errorf("projector %d centre = %v", i, got)
		}
	}
	if got := len(o.Masks()); got != 2 {
		t.Errorf("masks = %d", got)
	}
	total := st.Unowned
	for _, n := range st.Owned {
		total += n
	}
	if total != 50*25 {
		t.Errorf("ownership counts sum to %d", total)
	}
}

func TestTick_RecoversPanic(t *testing.T) {
	vis := &solid{name: "bad", col: white, explode: true}
	o, _ := newTestOrchestrator(t, vis)

	if err := o.Tick(); err == nil {
		t.Fatal("panicking frame returned nil")
	}
	vis.explode = false
	if err := o.Tick(); err != nil {
		t.Fatalf("next frame: %v", err)
	}
	if st := o.Stats(); st.Ticks != 2 || st.Skipped != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestTick_RecoversBandPanic(t *testing.T) {
	bad := &banded{solid{name: "banded"}}
	good := &solid{name: "white", col: white}
	o, _ := newTestOrchestrator(t, bad, good)

	err := o.Tick()
	if !errors.Is(err, rows.ErrPanic) {
		t.Fatalf("Tick error = %v, want ErrPanic", err)
	}
	o.Select(1)
	if err := o.Tick(); err != nil {
		t.Fatalf("next frame: %v", err)
	}
	if st := o.Stats(); st.Ticks != 2 || st.Skipped != 1 {
		t.Errorf("stats = %+v", st)
	}
	if got := o.Outputs()[0].RGBAAt(40, 22); got != white {
		t.Errorf("centre after recovery = %v", got)
	}
}

func TestTick_BoundsOverlay(t *testing.T) {
	black := color.RGBA{A: 255}
	lit := func(o *Orchestrator) int {
		n := 0
		for _, out := range o.Outputs() {
			b := out.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					if c := out.RGBAAt(x, y); c.R != 0 || c.G != 0 || c.B != 0 {
						n++
					}
				}
			}
		}
		return n
	}

	tests := []struct {
		name string
		on   bool
	}{
		{"off", false},
		{"on", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(t, &solid{name: "black", col: black})
			o.SetBoundsOverlay(tt.on)
			var beacons []Beacon
			o.OnBeacon = func(b Beacon) { beacons = append(beacons, b) }
			for i := 0; i < 2; i++ {
				if err := o.Tick(); err != nil {
					t.Fatal(err)
				}
			}
			if got := lit(o) > 0; got != tt.on {
				t.Errorf("lit pixels = %d with overlay %v", lit(o), tt.on)
			}
			if o.BoundsOverlay() != tt.on || o.Stats().Bounds != tt.on {
				t.Errorf("overlay state = %v, stats %v", o.BoundsOverlay(), o.Stats().Bounds)
			}
			if len(beacons) != 1 || beacons[0].Bounds != tt.on {
				t.Errorf("beacons = %+v", beacons)
			}
		})
	}
}

func TestTick_QueuedSelection(t *testing.T) {
	a := &solid{name: "a", col: white}
	b := &solid{name: "b", col: color.RGBA{R: 255, A: 255}}
	o, _ := newTestOrchestrator(t, a, b)

	o.Select(1)
	o.Select(7) // ignored
	if err := o.Tick(); err != nil {
		t.Fatal(err)
	}
	if a.updates != 0 || b.updates != 1 {
		t.Errorf("updates a=%d b=%d", a.updates, b.updates)
	}
	o.SelectName("a")
	_ = o.Tick()
	if a.updates != 1 {
		t.Errorf("select by name did not switch")
	}
	o.Cycle()
	_ = o.Tick()
	if got := o.Stats().Visualizer; got != "b" {
		t.Errorf("after cycle = %q", got)
	}
}

func TestTick_Restart(t *testing.T) {
	vis := &solid{name: "w", col: white}
	o, _ := newTestOrchestrator(t, vis)
	_ = o.Tick()
	if vis.starts != 1 || vis.stops != 0 {
		t.Fatalf("after first tick starts=%d stops=%d", vis.starts, vis.stops)
	}
	o.Restart()
	if err := o.Tick(); err != nil {
		t.Fatal(err)
	}
	if vis.starts != 2 || vis.stops != 1 {
		t.Errorf("after restart starts=%d stops=%d", vis.starts, vis.stops)
	}
}

func TestTick_Beacon(t *testing.T) {
	o, _ := newTestOrchestrator(t, &solid{name: "w", col: white})
	var got []Beacon
	o.OnBeacon = func(b Beacon) { got = append(got, b) }
	for i := 0; i < 5; i++ {
		_ = o.Tick()
	}
	if len(got) != 2 {
		t.Fatalf("beacons = %d, want 2", len(got))
	}
	if got[1].Tick != 4 || got[1].Status.Projectors != 2 {
		t.Errorf("beacon = %+v", got[1])
	}
}

func TestTick_ReallocatesOnBoundsChange(t *testing.T) {
	o, w := newTestOrchestrator(t, &solid{name: "w", col: white})
	_ = o.Tick()
	before := o.Stats().Canvas

	if err := w.SetSoftBounds(floor.Bounds{MinX: -3, MaxX: 3, MinY: 0, MaxY: 4}); err != nil {
		t.Fatal(err)
	}
	if err := o.Tick(); err != nil {
		t.Fatal(err)
	}
	after := o.Stats().Canvas
	if after == before {
		t.Errorf("canvas not resized: %v", after)
	}
	if got := o.Canvas().Image().Bounds().Size(); got.X != after[0] || got.Y != after[1] {
		t.Errorf("canvas image %v, stats %v", got, after)
	}
}

func TestFPSSmoothing(t *testing.T) {
	o, _ := newTestOrchestrator(t, &solid{name: "w", col: white})
	now := time.Unix(0, 0)
	o.now = func() time.Time { return now }

	_ = o.Tick()
	now = now.Add(100 * time.Millisecond)
	_ = o.Tick()
	if fps := o.Stats().FPS; math.Abs(fps-10) > 1e-9 {
		t.Fatalf("seed fps = %v", fps)
	}
	now = now.Add(50 * time.Millisecond)
	_ = o.Tick()
	if fps := o.Stats().FPS; math.Abs(fps-10.5) > 1e-9 {
		t.Errorf("smoothed fps = %v, want 10.5", fps)
	}
}

func TestSnapshot(t *testing.T) {
	o, _ := newTestOrchestrator(t, &solid{name: "w", col: white})
	dir := filepath.Join(t.TempDir(), "snap")
	if err := o.Snapshot(dir); err == nil {
		t.Error("snapshot before first frame succeeded")
	}

	o.RequestSnapshot(dir)
	if err := o.Tick(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"canvas.png", "mask-0.png", "mask-1.png", "output-0.png", "output-1.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestRun(t *testing.T) {
	o, _ := newTestOrchestrator(t, &solid{name: "w", col: white})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := o.Run(ctx, 5*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if o.Stats().Ticks == 0 {
		t.Error("no ticks ran")
	}
}
