package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"pulsefield/internal/log"
)

// startCPUProfile begins writing a CPU profile to path. The returned stop
// function is safe to call more than once.
func startCPUProfile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("profile dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	log.Info("cpu profile started", "path", path)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			if err := f.Close(); err != nil {
				log.Warn("cpu profile close failed", "path", path, "err", err)
				return
			}
			log.Info("cpu profile written", "path", path)
		})
	}
	return stop, nil
}
