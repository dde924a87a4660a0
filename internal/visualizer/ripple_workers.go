package visualizer

import "sync"

// span is an inclusive column range inside a row.
type span struct{ start, end int }

// rowMask is one interior row and the spans on it that need computing.
type rowMask struct {
	y     int
	spans []span
}

// workerMask collects the rows assigned to one worker.
type workerMask struct {
	rows []rowMask
}

// stepPool runs solver steps on a fixed set of goroutines. Each step bumps
// the generation counter and waits for every worker to finish its rows.
type stepPool struct {
	field *waveField
	masks []workerMask

	mu      sync.Mutex
	cond    *sync.Cond
	step    int
	pending int
	quit    bool
	wg      sync.WaitGroup
}

func newStepPool(field *waveField, workers int) *stepPool {
	if workers < 1 {
		workers = 1
	}
	p := &stepPool{
		field: field,
		masks: assignRowMasks(workers, interiorRows(field)),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop(i)
	}
	return p
}

// interiorRows covers every cell not on the border.
func interiorRows(f *waveField) []rowMask {
	if f.width < 3 || f.height < 3 {
		return nil
	}
	rows := make([]rowMask, 0, f.height-2)
	for y := 1; y < f.height-1; y++ {
		rows = append(rows, rowMask{y: y, spans: []span{{start: 1, end: f.width - 2}}})
	}
	return rows
}

// assignRowMasks deals rows to workers round robin.
func assignRowMasks(workerCount int, rows []rowMask) []workerMask {
	if workerCount < 1 {
		workerCount = 1
	}
	masks := make([]workerMask, workerCount)
	for idx, row := range rows {
		masks[idx%workerCount].rows = append(masks[idx%workerCount].rows, row)
	}
	return masks
}

func (p *stepPool) loop(index int) {
	defer p.wg.Done()
	lastStep := 0
	p.mu.Lock()
	for {
		for p.step == lastStep && !p.quit {
			p.cond.Wait()
		}
		if p.quit {
			p.mu.Unlock()
			return
		}
		lastStep = p.step
		mask := p.masks[index]
		p.mu.Unlock()

		processMask(p.field, &mask)

		p.mu.Lock()
		p.pending--
		if p.pending == 0 {
			p.cond.Broadcast()
		}
	}
}

// Step advances the field by one tick.
func (p *stepPool) Step() {
	p.mu.Lock()
	if p.quit {
		p.mu.Unlock()
		return
	}
	p.pending = len(p.masks)
	p.step++
	p.cond.Broadcast()
	for p.pending > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
	p.field.reflectBoundaries()
	p.field.swap()
}

// Close stops the workers and waits for them to exit.
func (p *stepPool) Close() {
	p.mu.Lock()
	p.quit = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// processMask steps the solver over the rows of one worker.
func processMask(field *waveField, mask *workerMask) {
	width := field.width
	wd := float32(rippleDamp)
	ws := float32(rippleSpeed)
	for _, row := range mask.rows {
		rowBase := row.y * width
		center := field.curr[rowBase : rowBase+width]
		prev := field.prev[rowBase : rowBase+width]
		top := field.curr[rowBase-width : rowBase]
		bottom := field.curr[rowBase+width : rowBase+2*width]
		next := field.next[rowBase : rowBase+width]

		for _, sp := range row.spans {
			start := max(sp.start, 1)
			end := min(sp.end, width-2)

			x := start
			for ; x+3 <= end; x += 4 {
				c0 := center[x]
				next[x] = ((2*c0 - prev[x]) + ws*(center[x-1]+center[x+1]+top[x]+bottom[x]-4*c0)) * wd

				x1 := x + 1
				c1 := center[x1]
				next[x1] = ((2*c1 - prev[x1]) + ws*(center[x1-1]+center[x1+1]+top[x1]+bottom[x1]-4*c1)) * wd

				x2 := x + 2
				c2 := center[x2]
				next[x2] = ((2*c2 - prev[x2]) + ws*(center[x2-1]+center[x2+1]+top[x2]+bottom[x2]-4*c2)) * wd

				x3 := x + 3
				c3 := center[x3]
				next[x3] = ((2*c3 - prev[x3]) + ws*(center[x3-1]+center[x3+1]+top[x3]+bottom[x3]-4*c3)) * wd
			}
			for ; x <= end; x++ {
				c := center[x]
				next[x] = ((2*c - prev[x]) + ws*(center[x-1]+center[x+1]+top[x]+bottom[x]-4*c)) * wd
			}
		}
	}
}
