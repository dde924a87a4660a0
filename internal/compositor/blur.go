package compositor

import "image"

// boxBlur runs a separable box blur of the given radius over src into dst,
// using tmp as scratch. Edges are extended. All three buffers share the
// same size.
func boxBlur(dst, src *image.Gray, tmp []uint32, radius int) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if radius <= 0 {
		copy(dst.Pix, src.Pix)
		return
	}
	n := 2*radius + 1

	// horizontal pass: sums into tmp
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			sum := 0
			for k := -radius; k <= radius; k++ {
				sum += int(row[clampInt(x+k, 0, w-1)])
			}
			tmp[y*w+x] = uint32(sum)
		}
	}
	// vertical pass
	div := n * n
	for y := 0; y < h; y++ {
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			sum := 0
			for k := -radius; k <= radius; k++ {
				sum += int(tmp[clampInt(y+k, 0, h-1)*w+x])
			}
			out[x] = uint8((sum + div/2) / div)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
