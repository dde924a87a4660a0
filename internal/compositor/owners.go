package compositor

import (
	"pulsefield/internal/rows"
)

// Owners is the persistent per-pixel projector assignment. It is an arena
// tied to one mask size: a different size needs a new arena, never a resize.
type Owners struct {
	w, h     int
	sentinel int
	owner    []int
}

// NewOwners returns a w×h arena for n projectors with every pixel owned by
// projector 0.
func NewOwners(w, h, n int) *Owners {
	return &Owners{w: w, h: h, sentinel: n, owner: make([]int, w*h)}
}

// Size returns the arena dimensions.
func (o *Owners) Size() (int, int) { return o.w, o.h }

// Len is the number of pixels.
func (o *Owners) Len() int { return len(o.owner) }

// Unowned is the sentinel value for pixels no projector can light. It equals
// the projector count.
func (o *Owners) Unowned() int { return o.sentinel }

// At returns the owner of pixel i.
func (o *Owners) At(i int) int { return o.owner[i] }

// Owner returns the owner of pixel (x, y).
func (o *Owners) Owner(x, y int) int { return o.owner[y*o.w+x] }

// Reset gives every pixel back to projector 0.
func (o *Owners) Reset() {
	clear(o.owner)
}

// Resolve updates ownership from one coverage buffer per projector, each
// holding w*h bytes in row-major order.
//
// A pixel whose owner still has full coverage keeps it. Otherwise the owner
// moves to the first projector with strictly greater coverage than the best
// seen so far, starting from the current owner. An unowned pixel competes
// from coverage 0. A best coverage of 0 leaves the pixel unowned.
func (o *Owners) Resolve(cov [][]uint8) error {
	return rows.Run(o.h, func(y0, y1 int) error {
		o.resolveRows(cov, y0, y1)
		return nil
	})
}

func (o *Owners) resolveRows(cov [][]uint8, y0, y1 int) {
	for i := y0 * o.w; i < y1*o.w; i++ {
		cur := o.owner[i]
		var curCov uint8
		if cur != o.sentinel {
			curCov = cov[cur][i]
			if curCov == 255 {
				continue
			}
		}
		best, bestCov := cur, curCov
		for p := range cov {
			if c := cov[p][i]; c > bestCov {
				best, bestCov = p, c
			}
		}
		if bestCov == 0 {
			best = o.sentinel
		}
		o.owner[i] = best
	}
}

// Counts returns the number of pixels per projector, with the unowned count
// in the final slot.
func (o *Owners) Counts() []int {
	counts := make([]int, o.sentinel+1)
	for _, p := range o.owner {
		counts[p]++
	}
	return counts
}
