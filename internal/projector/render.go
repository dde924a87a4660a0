package projector

import (
	"errors"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"pulsefield/internal/floor"
	"pulsefield/internal/rows"
)

var errCanvasSize = errors.New("canvas raster does not match canvas image")

// Render warps the floor-space image src into this projector's screen
// space. dst may be smaller than the projector resolution, in which case
// each dst pixel samples the centre of its screen block. Pixels whose floor
// point falls outside src are cleared.
func (p *Projector) Render(dst, src *image.RGBA, r floor.Raster) error {
	sb := src.Bounds()
	if sb.Dx() != r.Width || sb.Dy() != r.Height {
		return errCanvasSize
	}
	db := dst.Bounds()
	dw, dh := db.Dx(), db.Dy()
	if dw == 0 || dh == 0 {
		return nil
	}
	kx := float64(p.Width) / float64(dw)
	ky := float64(p.Height) / float64(dh)

	return rows.Run(dh, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			di := dst.PixOffset(db.Min.X, db.Min.Y+y)
			for x := 0; x < dw; x, di = x+1, di+4 {
				s := mgl64.Vec2{(float64(x) + 0.5) * kx, (float64(y) + 0.5) * ky}
				w, ok := p.ScreenToWorld(s)
				if !ok {
					clearPixel(dst.Pix[di : di+4])
					continue
				}
				cx, cy := r.ToPixel(w)
				ix, iy := int(math.Floor(cx)), int(math.Floor(cy))
				if ix < 0 || iy < 0 || ix >= r.Width || iy >= r.Height {
					clearPixel(dst.Pix[di : di+4])
					continue
				}
				si := src.PixOffset(sb.Min.X+ix, sb.Min.Y+iy)
				copy(dst.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
		return nil
	})
}

func clearPixel(px []uint8) {
	px[0], px[1], px[2], px[3] = 0, 0, 0, 0xff
}
