package visualizer

// waveField holds the three buffers of the finite difference wave solver.
// Cells are rippleCell metres square; row 0 is the floor's MinY edge.
type waveField struct {
	width, height int
	curr          []float32
	prev          []float32
	next          []float32
}

func newWaveField(width, height int) *waveField {
	return &waveField{
		width:  width,
		height: height,
		curr:   make([]float32, width*height),
		prev:   make([]float32, width*height),
		next:   make([]float32, width*height),
	}
}

func (f *waveField) readCurr(x, y int) float32 {
	return f.curr[y*f.width+x]
}

// addImpulse excites the cells of footprint around (x, y). Cells on or
// outside the border are skipped. It reports whether any cell was touched.
func (f *waveField) addImpulse(x, y int, footprint []gridOffset, strength float32) bool {
	fired := false
	for _, o := range footprint {
		cx, cy := x+o.dx, y+o.dy
		if cx <= 0 || cx >= f.width-1 || cy <= 0 || cy >= f.height-1 {
			continue
		}
		f.curr[cy*f.width+cx] += strength
		fired = true
	}
	return fired
}

// energy is the sum of squared displacements, used to watch decay.
func (f *waveField) energy() float64 {
	var e float64
	for _, v := range f.curr {
		e += float64(v) * float64(v)
	}
	return e
}

// swap rotates the buffers so next becomes current.
func (f *waveField) swap() {
	f.prev, f.curr, f.next = f.curr, f.next, f.prev
}

// reflectBoundaries writes the edge cells of next as an inverted, attenuated
// copy of their inner neighbours.
func (f *waveField) reflectBoundaries() {
	lastRow := f.height - 1
	lastCol := f.width - 1
	reflect := float32(rippleReflect)
	for x := 0; x < f.width; x++ {
		f.next[x] = -f.next[f.width+x] * reflect
		f.next[lastRow*f.width+x] = -f.next[(lastRow-1)*f.width+x] * reflect
	}
	for y := 1; y < lastRow; y++ {
		f.next[y*f.width] = -f.next[y*f.width+1] * reflect
		f.next[y*f.width+lastCol] = -f.next[y*f.width+lastCol-1] * reflect
	}
}

type gridOffset struct {
	dx, dy int
}

// discFootprint lists the offsets inside a disc of radius cells.
func discFootprint(radius int) []gridOffset {
	footprint := make([]gridOffset, 0, (2*radius+1)*(2*radius+1))
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				footprint = append(footprint, gridOffset{dx: x, dy: y})
			}
		}
	}
	return footprint
}
