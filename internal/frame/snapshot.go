package frame

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"pulsefield/internal/log"
)

// Snapshot writes the canvas, every mask and every output buffer as PNG
// files under dir, creating it if needed.
func (o *Orchestrator) Snapshot(dir string) error {
	if o.canvas == nil {
		return errors.New("snapshot: nothing rendered yet")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := writePNG(filepath.Join(dir, "canvas.png"), o.canvas.Image()); err != nil {
		return err
	}
	for i, m := range o.Masks() {
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("mask-%d.png", i)), m); err != nil {
			return err
		}
	}
	for i, out := range o.outputs {
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("output-%d.png", i)), out); err != nil {
			return err
		}
	}
	log.Info("snapshot written", "dir", dir, "projectors", len(o.outputs))
	return nil
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("snapshot: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("snapshot %s: %w", filepath.Base(path), err)
	}
	return nil
}
