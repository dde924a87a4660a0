package main

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

var tileBorder = color.RGBA{60, 60, 80, 255}

// Draw shows the projector outputs, or their masks, tiled in a grid.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	if g.showMasks {
		g.drawMasks(screen)
	} else {
		g.drawOutputs(screen)
	}
	g.drawTileBorders(screen)

	if *debugFlag {
		st := g.orch.Stats()
		ws := g.world.Status()
		debugMsg := fmt.Sprintf("FPS: %.1f (engine %.1f)\nTicks: %d, skipped %d\nVisualizer: %s\nPeople: %d\nCalibrated: %d/%d\nCanvas: %dx%d  Mask: %dx%d\nUnowned: %d",
			ebiten.ActualFPS(), st.FPS, st.Ticks, st.Skipped, st.Visualizer,
			ws.People, ws.Calibrated, ws.Projectors,
			st.Canvas[0], st.Canvas[1], st.Mask[0], st.Mask[1], st.Unowned)
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}

func (g *Game) drawOutputs(screen *ebiten.Image) {
	outs := g.orch.Outputs()
	for i := 0; i < visibleTiles(len(outs)); i++ {
		out := outs[i]
		if g.tiles[i] == nil {
			g.tiles[i] = ebiten.NewImage(out.Rect.Dx(), out.Rect.Dy())
		}
		g.tiles[i].WritePixels(out.Pix)
		x, y := tileOrigin(i, g.tileW, g.tileH)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x), float64(y))
		screen.DrawImage(g.tiles[i], op)
	}
}

func (g *Game) drawMasks(screen *ebiten.Image) {
	masks := g.orch.Masks()
	for i := 0; i < visibleTiles(len(masks)); i++ {
		m := masks[i]
		mw, mh := m.Rect.Dx(), m.Rect.Dy()
		if mw == 0 || mh == 0 {
			continue
		}
		img := g.maskTiles[i]
		if img == nil || img.Bounds().Dx() != mw || img.Bounds().Dy() != mh {
			if img != nil {
				img.Deallocate()
			}
			img = ebiten.NewImage(mw, mh)
			g.maskTiles[i] = img
		}
		g.maskPix = grayToRGBA(g.maskPix, m)
		img.WritePixels(g.maskPix)

		x, y := tileOrigin(i, g.tileW, g.tileH)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(g.tileW)/float64(mw), float64(g.tileH)/float64(mh))
		op.GeoM.Translate(float64(x), float64(y))
		screen.DrawImage(img, op)
	}
}

func (g *Game) drawTileBorders(screen *ebiten.Image) {
	sw, sh := g.Layout(0, 0)
	for c := 1; c < tileCols; c++ {
		drawLine(screen, c*g.tileW, 0, c*g.tileW, sh-1, tileBorder)
	}
	for r := 1; r < tileRows; r++ {
		drawLine(screen, 0, r*g.tileH, sw-1, r*g.tileH, tileBorder)
	}
}

// Layout reports the logical screen size used by Ebiten.
func (g *Game) Layout(_, _ int) (int, int) {
	return tileCols * g.tileW, tileRows * g.tileH
}

// drawLine plots a line segment using Bresenham's integer algorithm,
// clipped to the screen.
func drawLine(screen *ebiten.Image, x0, y0, x1, y1 int, clr color.Color) {
	b := screen.Bounds()
	x0 = clampCoord(x0, b.Min.X, b.Max.X-1)
	x1 = clampCoord(x1, b.Min.X, b.Max.X-1)
	y0 = clampCoord(y0, b.Min.Y, b.Max.Y-1)
	y1 = clampCoord(y1, b.Min.Y, b.Max.Y-1)
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		screen.Set(x0, y0, clr)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}
