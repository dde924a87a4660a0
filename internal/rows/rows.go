// Package rows splits per-row image work into contiguous bands that run on
// separate goroutines.
package rows

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrPanic wraps a panic recovered from a band or fan-out task.
var ErrPanic = errors.New("worker panic")

// Span is a half-open row range [Start, End).
type Span struct{ Start, End int }

// Split divides h rows into at most n contiguous spans whose sizes differ by
// at most one row.
func Split(h, n int) []Span {
	if h <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > h {
		n = h
	}
	spans := make([]Span, 0, n)
	base, extra := h/n, h%n
	y := 0
	for i := 0; i < n; i++ {
		sz := base
		if i < extra {
			sz++
		}
		spans = append(spans, Span{Start: y, End: y + sz})
		y += sz
	}
	return spans
}

// Run calls fn once per band of h rows, one goroutine per band, and returns
// the first error.
func Run(h int, fn func(y0, y1 int) error) error {
	var g errgroup.Group
	for _, s := range Split(h, runtime.GOMAXPROCS(0)) {
		g.Go(Safe(func() error { return fn(s.Start, s.End) }))
	}
	return g.Wait()
}

// Safe wraps fn for errgroup.Group.Go so a panic on the worker goroutine
// comes back as an error wrapping ErrPanic instead of killing the process.
func Safe(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		return fn()
	}
}
