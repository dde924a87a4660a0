package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"

	"pulsefield/internal/frame"
	"pulsefield/internal/log"
	"pulsefield/internal/world"
)

// Game drives the orchestrator from ebiten's update loop and previews the
// projector outputs.
type Game struct {
	ctx     context.Context
	orch    *frame.Orchestrator
	world   *world.World
	snapDir string

	tileW, tileH int
	tiles        []*ebiten.Image
	maskTiles    []*ebiten.Image
	maskPix      []byte
	showMasks    bool

	withOccupant bool
	occ          occupant

	autoWalk           bool
	autoWalkDeadline   time.Time
	autoWalkRand       *rand.Rand
	autoWalkDir        mgl64.Vec2
	autoWalkFrameCount int

	// stopProfile, when set, ends the profile and closes the window once
	// the scripted walk finishes.
	stopProfile func()
}

// newGame builds the preview for orch. Tiles are tileW x tileH, the size of
// each projector output buffer.
func newGame(ctx context.Context, orch *frame.Orchestrator, w *world.World, snapDir string, tileW, tileH int) *Game {
	n := visibleTiles(w.NumProjectors())
	return &Game{
		ctx:          ctx,
		orch:         orch,
		world:        w,
		snapDir:      snapDir,
		tileW:        tileW,
		tileH:        tileH,
		tiles:        make([]*ebiten.Image, n),
		maskTiles:    make([]*ebiten.Image, n),
		showMasks:    *showMasksFlag,
		withOccupant: *occupantFlag,
		autoWalkRand: rand.New(rand.NewSource(time.Now().UnixNano() + 2)),
	}
}

// Update handles input, moves the occupant and renders one frame. Frame
// errors are counted by the orchestrator and never end the loop.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.handleControls()
	g.updateOccupant()
	_ = g.orch.Tick()

	if g.stopProfile != nil && !g.autoWalk {
		g.stopProfile()
		return ebiten.Termination
	}
	return nil
}

// updateOccupant feeds the simulated person into the world the way the
// tracker would: entry, body geometry, then a position and both legs every
// tick.
func (g *Game) updateOccupant() {
	if !g.withOccupant {
		if g.occ.present {
			g.world.Exit(occupantID)
			g.occ = occupant{}
		}
		return
	}
	b := g.world.Bounds()
	if !g.occ.present {
		g.occ = occupant{present: true, pos: b.Center()}
		g.world.Entry(occupantID, occupantChannel)
		g.world.UpdateBody(occupantID, legSpread, bodyDiameter)
	}

	g.occ.step(g.movementVector(b), 1/float64(ebiten.TPS()), b)
	g.world.Move(occupantID, occupantChannel, g.occ.pos, g.occ.vel, occupantID, 1, g.occ.elapsed)

	left, right := g.occ.legs()
	speed := g.occ.vel.Len()
	for i, p := range [2]mgl64.Vec2{left, right} {
		if err := g.world.UpdateLeg(occupantID, i, p, speed, g.occ.heading); err != nil {
			log.Warn("occupant leg update failed", "leg", i, "err", err)
		}
	}
}
