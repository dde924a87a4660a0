package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"pulsefield/internal/floor"
)

// occupant is the simulated person fed to the world in place of tracker
// messages.
type occupant struct {
	present bool
	pos     mgl64.Vec2
	vel     mgl64.Vec2
	heading float64 // degrees, 0 faces +y
	phase   float64 // gait phase, radians
	elapsed float64
}

// step advances the occupant by vel for dt seconds, staying inside b.
func (o *occupant) step(vel mgl64.Vec2, dt float64, b floor.Bounds) {
	next := o.pos.Add(vel.Mul(dt))
	next[0] = math.Max(b.MinX, math.Min(b.MaxX, next[0]))
	next[1] = math.Max(b.MinY, math.Min(b.MaxY, next[1]))
	if dt > 0 {
		o.vel = next.Sub(o.pos).Mul(1 / dt)
	}
	o.pos = next
	o.elapsed += dt
	if speed := o.vel.Len(); speed > 0 {
		o.heading = mgl64.RadToDeg(math.Atan2(-o.vel[0], o.vel[1]))
		o.phase = math.Mod(o.phase+2*math.Pi*speed*dt/strideLength, 2*math.Pi)
	}
}

// legs places the feet either side of the body, swinging along the heading
// with the gait phase.
func (o *occupant) legs() (left, right mgl64.Vec2) {
	h := mgl64.DegToRad(o.heading)
	fwd := mgl64.Vec2{-math.Sin(h), math.Cos(h)}
	side := mgl64.Vec2{math.Cos(h), math.Sin(h)}.Mul(legSpread / 2)
	swing := fwd.Mul(math.Sin(o.phase) * strideLength / 4)
	left = o.pos.Sub(side).Add(swing)
	right = o.pos.Add(side).Sub(swing)
	return left, right
}

// enableAutoWalk schedules scripted movement for a limited duration.
func (g *Game) enableAutoWalk(duration time.Duration) {
	g.autoWalk = true
	g.autoWalkDeadline = time.Now().Add(duration)
	if g.autoWalkRand == nil {
		g.autoWalkRand = rand.New(rand.NewSource(time.Now().UnixNano() + 3))
	}
	g.autoWalkFrameCount = 0
}

// movementVector selects either manual or automatic movement, in metres
// per second.
func (g *Game) movementVector(b floor.Bounds) mgl64.Vec2 {
	if g.autoWalk {
		if time.Now().After(g.autoWalkDeadline) {
			g.autoWalk = false
			return mgl64.Vec2{}
		}
		return g.autoWalkVector(b)
	}
	return manualMovementVector()
}

// manualMovementVector returns WASD or arrow key movement scaled by
// moveSpeed. W walks towards +y.
func manualMovementVector() mgl64.Vec2 {
	dx, dy := 0.0, 0.0
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dy += moveSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dy -= moveSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dx -= moveSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dx += moveSpeed
	}
	if dx != 0 && dy != 0 {
		dx *= 0.7071
		dy *= 0.7071
	}
	return mgl64.Vec2{dx, dy}
}

// autoWalkVector returns a pseudo-random heading that keeps the occupant
// on the floor.
func (g *Game) autoWalkVector(b floor.Bounds) mgl64.Vec2 {
	if g.autoWalkRand == nil {
		g.autoWalkRand = rand.New(rand.NewSource(time.Now().UnixNano() + 4))
	}
	dt := 1 / float64(ebiten.TPS())
	for attempts := 0; attempts < 5; attempts++ {
		if g.autoWalkFrameCount <= 0 {
			g.randomizeAutoWalkDirection()
		}
		v := g.autoWalkDir.Mul(moveSpeed)
		if b.Contains(g.occ.pos.Add(v.Mul(dt))) {
			g.autoWalkFrameCount--
			return v
		}
		g.autoWalkFrameCount = 0
	}
	return mgl64.Vec2{}
}

// randomizeAutoWalkDirection chooses a new heading for automatic walking.
func (g *Game) randomizeAutoWalkDirection() {
	if g.autoWalkRand == nil {
		g.autoWalkRand = rand.New(rand.NewSource(time.Now().UnixNano() + 5))
	}
	angle := g.autoWalkRand.Float64() * 2 * math.Pi
	g.autoWalkDir = mgl64.Vec2{math.Cos(angle), math.Sin(angle)}
	g.autoWalkFrameCount = 20 + g.autoWalkRand.Intn(50)
}

var digitKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

// handleControls processes preview hotkeys. Tab cycles visualizers, 1-9
// select one directly, T shows the test pattern, M toggles the mask
// preview, B toggles the bounds overlay, O toggles the occupant and P
// writes a snapshot.
func (g *Game) handleControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.orch.Cycle()
	}
	for i, k := range digitKeys {
		if inpututil.IsKeyJustPressed(k) {
			g.orch.Select(i)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		g.orch.SelectName("testpattern")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.showMasks = !g.showMasks
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		g.orch.SetBoundsOverlay(!g.orch.BoundsOverlay())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		g.withOccupant = !g.withOccupant
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.orch.RequestSnapshot(g.snapDir)
	}
}
