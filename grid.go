package main

import "image"

// tileOrigin returns the top-left pixel of preview tile i in a grid
// tileCols wide made of tw x th tiles.
func tileOrigin(i, tw, th int) (int, int) {
	return (i % tileCols) * tw, (i / tileCols) * th
}

// visibleTiles caps n at the number of tiles the preview grid holds.
func visibleTiles(n int) int {
	return min(n, tileCols*tileRows)
}

// grayToRGBA expands m into opaque RGBA pixels, reusing dst when it is large
// enough.
func grayToRGBA(dst []byte, m *image.Gray) []byte {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	n := w * h * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for y := 0; y < h; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		out := dst[y*w*4 : (y+1)*w*4]
		for x, v := range row {
			out[x*4] = v
			out[x*4+1] = v
			out[x*4+2] = v
			out[x*4+3] = 0xff
		}
	}
	return dst
}

// clampCoord constrains v to lie within the inclusive [min, max] range.
func clampCoord(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
