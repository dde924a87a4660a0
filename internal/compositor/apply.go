package compositor

import (
	"fmt"
	"image"
	"math"

	"pulsefield/internal/rows"
)

// Apply writes canvas multiplied by projector i's mask into dst. The mask is
// bilinearly up-sampled to the canvas size. dst and canvas must have the
// same dimensions; alpha is forced opaque.
func (c *Compositor) Apply(i int, canvas, dst *image.RGBA) error {
	if i < 0 || i >= len(c.planes) {
		return fmt.Errorf("apply: projector %d out of range", i)
	}
	cb, db := canvas.Bounds(), dst.Bounds()
	if cb.Dx() != db.Dx() || cb.Dy() != db.Dy() {
		return fmt.Errorf("apply: canvas %v and output %v differ", cb.Size(), db.Size())
	}
	mask := c.planes[i].mask
	mw, mh := c.raster.Width, c.raster.Height
	cw, ch := cb.Dx(), cb.Dy()
	sx := float64(mw) / float64(cw)
	sy := float64(mh) / float64(ch)

	return rows.Run(ch, func(y0, y1 int) error {
		for y := y0; y < y1; y++ {
			my := (float64(y)+0.5)*sy - 0.5
			yi, fy := split(my, mh)
			si := canvas.PixOffset(cb.Min.X, cb.Min.Y+y)
			di := dst.PixOffset(db.Min.X, db.Min.Y+y)
			for x := 0; x < cw; x, si, di = x+1, si+4, di+4 {
				mx := (float64(x)+0.5)*sx - 0.5
				xi, fx := split(mx, mw)
				m := bilinear(mask, xi, yi, fx, fy, mw, mh)
				dst.Pix[di+0] = uint8(uint32(canvas.Pix[si+0]) * m / 255)
				dst.Pix[di+1] = uint8(uint32(canvas.Pix[si+1]) * m / 255)
				dst.Pix[di+2] = uint8(uint32(canvas.Pix[si+2]) * m / 255)
				dst.Pix[di+3] = 0xff
			}
		}
		return nil
	})
}

// split returns the integer cell and fractional offset of v, clamped to
// [0, n-1].
func split(v float64, n int) (int, float64) {
	if v <= 0 {
		return 0, 0
	}
	if v >= float64(n-1) {
		return n - 1, 0
	}
	f := math.Floor(v)
	return int(f), v - f
}

func bilinear(m *image.Gray, x, y int, fx, fy float64, w, h int) uint32 {
	x1, y1 := min(x+1, w-1), min(y+1, h-1)
	p := m.Pix
	s := m.Stride
	a := float64(p[y*s+x])*(1-fx) + float64(p[y*s+x1])*fx
	b := float64(p[y1*s+x])*(1-fx) + float64(p[y1*s+x1])*fx
	return uint32(a*(1-fy) + b*fy + 0.5)
}
