// Package compositor splits the shared floor canvas between overlapping
// projectors. Each frame it rasterizes every projector's coverage with the
// occupants' shadows cut in, resolves a sticky per-pixel owner, and turns
// ownership into soft-edged masks.
//
// A Compositor owns all of its buffers. It is not safe for concurrent use
// and is only driven from the render loop.
package compositor

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"golang.org/x/image/vector"
	"golang.org/x/sync/errgroup"

	"pulsefield/internal/floor"
	"pulsefield/internal/people"
	"pulsefield/internal/projector"
	"pulsefield/internal/rows"
)

// Options tune mask construction.
type Options struct {
	ShadowOffset  float64
	ShadowFarDist float64
	BlurRadius    int
}

// DefaultOptions returns the installation defaults.
func DefaultOptions() Options {
	return Options{
		ShadowOffset:  DefaultShadowOffset,
		ShadowFarDist: DefaultShadowFarDist,
		BlurRadius:    1,
	}
}

// Stats summarises the last ownership pass.
type Stats struct {
	Width, Height int
	Owned         []int
	Unowned       int
}

type plane struct {
	z        *vector.Rasterizer
	coverage *image.Alpha
	shade    *image.Alpha
	binary   *image.Gray
	mask     *image.Gray
	tmp      []uint32
}

// Compositor holds the coverage, ownership and mask buffers for a fixed
// number of projectors.
type Compositor struct {
	opt    Options
	raster floor.Raster
	planes []plane
	owners *Owners
	stats  Stats
}

// New allocates buffers for n projectors on the given mask raster.
func New(n int, mask floor.Raster, opt Options) *Compositor {
	c := &Compositor{opt: opt, planes: make([]plane, n)}
	c.alloc(mask)
	return c
}

func (c *Compositor) alloc(mask floor.Raster) {
	c.raster = mask
	w, h := mask.Width, mask.Height
	r := image.Rect(0, 0, w, h)
	for i := range c.planes {
		c.planes[i] = plane{
			z:        vector.NewRasterizer(w, h),
			coverage: image.NewAlpha(r),
			shade:    image.NewAlpha(r),
			binary:   image.NewGray(r),
			mask:     image.NewGray(r),
			tmp:      make([]uint32, w*h),
		}
	}
	c.owners = NewOwners(w, h, len(c.planes))
	c.stats = Stats{Width: w, Height: h, Owned: make([]int, len(c.planes))}
}

// Resize adopts a new mask raster. When the pixel dimensions change every
// buffer is reallocated and ownership starts over at projector 0; it reports
// whether that happened.
func (c *Compositor) Resize(mask floor.Raster) bool {
	if mask.Width == c.raster.Width && mask.Height == c.raster.Height {
		c.raster = mask
		return false
	}
	c.alloc(mask)
	return true
}

// Raster returns the floor-to-mask mapping.
func (c *Compositor) Raster() floor.Raster { return c.raster }

// NumProjectors is the number of projectors the buffers were sized for.
func (c *Compositor) NumProjectors() int { return len(c.planes) }

// Owners exposes the ownership arena.
func (c *Compositor) Owners() *Owners { return c.owners }

// Coverage returns projector i's coverage buffer from the last Build.
func (c *Compositor) Coverage(i int) *image.Alpha { return c.planes[i].coverage }

// Mask returns projector i's blurred mask from the last Build.
func (c *Compositor) Mask(i int) *image.Gray { return c.planes[i].mask }

// Stats returns a copy of the last ownership counts.
func (c *Compositor) Stats() Stats {
	s := c.stats
	s.Owned = append([]int(nil), c.stats.Owned...)
	return s
}

// Build runs one full mask pass: coverage with shadows, ownership, masks.
func (c *Compositor) Build(projs []*projector.Projector, ppl []people.Person) error {
	if len(projs) != len(c.planes) {
		return fmt.Errorf("compositor sized for %d projectors, got %d", len(c.planes), len(projs))
	}

	var g errgroup.Group
	for i, p := range projs {
		g.Go(rows.Safe(func() error {
			c.buildCoverage(&c.planes[i], p, ppl)
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cov := make([][]uint8, len(c.planes))
	for i := range c.planes {
		cov[i] = c.planes[i].coverage.Pix
	}
	if err := c.owners.Resolve(cov); err != nil {
		return fmt.Errorf("resolve owners: %w", err)
	}

	var mg errgroup.Group
	for i := range c.planes {
		mg.Go(rows.Safe(func() error {
			c.emitMask(i)
			return nil
		}))
	}
	if err := mg.Wait(); err != nil {
		return err
	}

	counts := c.owners.Counts()
	copy(c.stats.Owned, counts[:len(c.planes)])
	c.stats.Unowned = counts[len(c.planes)]
	return nil
}

func (c *Compositor) buildCoverage(pl *plane, p *projector.Projector, ppl []people.Person) {
	if !c.fill(pl, pl.coverage, p.Coverage()) {
		return
	}
	pos := p.Position2D()
	for i := range ppl {
		quad, ok := ShadowQuad(&ppl[i], pos, c.opt.ShadowOffset, c.opt.ShadowFarDist)
		if !ok || !c.fill(pl, pl.shade, quad) {
			continue
		}
		multiplyShadow(pl.coverage.Pix, pl.shade.Pix)
	}
}

// multiplyShadow darkens cov where shade is set. A fully shaded pixel is
// scaled by 127/255.
func multiplyShadow(cov, shade []uint8) {
	for i, a := range shade {
		if a == 0 {
			continue
		}
		m := 255 - int(a)*128/255
		cov[i] = uint8(int(cov[i]) * m / 255)
	}
}

// fill rasterizes a floor-space ring into dst with anti-aliasing, replacing
// its contents. It reports false, leaving dst cleared, when the ring misses
// the buffer.
func (c *Compositor) fill(pl *plane, dst *image.Alpha, ring orb.Ring) bool {
	if len(ring) < 4 {
		clear(dst.Pix)
		return false
	}
	w, h := c.raster.Width, c.raster.Height
	px := make(orb.Ring, len(ring))
	for i, pt := range ring {
		x, y := c.raster.ToPixel(mgl64.Vec2(pt))
		px[i] = orb.Point{x, y}
	}
	px = clip.Ring(orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{float64(w + 1), float64(h + 1)}}, px)
	if len(px) < 3 {
		clear(dst.Pix)
		return false
	}

	z := pl.z
	z.Reset(w, h)
	z.DrawOp = draw.Src
	z.MoveTo(float32(px[0][0]), float32(px[0][1]))
	for _, pt := range px[1:] {
		z.LineTo(float32(pt[0]), float32(pt[1]))
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return true
}

func (c *Compositor) emitMask(i int) {
	pl := &c.planes[i]
	for p := range pl.binary.Pix {
		if c.owners.At(p) == i {
			pl.binary.Pix[p] = 0xff
		} else {
			pl.binary.Pix[p] = 0
		}
	}
	boxBlur(pl.mask, pl.binary, pl.tmp, c.opt.BlurRadius)
}
