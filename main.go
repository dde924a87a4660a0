// Command pulsefield renders floor visualizations for a multi-projector
// installation driven by a laser people tracker over OSC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hypebeast/go-osc/osc"
	"golang.org/x/sync/errgroup"

	"pulsefield/internal/compositor"
	"pulsefield/internal/config"
	"pulsefield/internal/floor"
	"pulsefield/internal/frame"
	"pulsefield/internal/log"
	"pulsefield/internal/oscio"
	"pulsefield/internal/projector"
	"pulsefield/internal/status"
	"pulsefield/internal/visualizer"
	"pulsefield/internal/world"
)

func main() {
	flag.Parse()
	runtime.GOMAXPROCS(runtime.NumCPU())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		log.Error("pulsefield exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stopProfile func()
	if *cpuProfileFlag || *recordDefaultPGO {
		s, err := startCPUProfile(cfg.ProfilePath())
		if err != nil {
			return fmt.Errorf("cpu profile: %w", err)
		}
		stopProfile = s
		defer stopProfile()
	}

	w, err := world.New(cfg.SoftBounds(), buildProjectors(cfg))
	if err != nil {
		return err
	}

	reg := visualizer.NewRegistry(visualizer.NewDots(), visualizer.NewRipple(), visualizer.TestPattern{})
	if *visualizerFlag != "" {
		if err := reg.SelectName(*visualizerFlag); err != nil {
			return err
		}
	}

	outW := cfg.ProjectorWidth / cfg.OutputDownsample
	outH := cfg.ProjectorHeight / cfg.OutputDownsample
	orch := frame.New(w, reg, frame.Options{
		CanvasArea:   cfg.CanvasArea,
		MaskScale:    cfg.MaskScale,
		OutputWidth:  outW,
		OutputHeight: outH,
		BeaconEvery:  cfg.BeaconFrames,
		Compositor:   compositorOptions(cfg),
	})
	defer orch.Close()

	id := uuid.New()
	log.Info("starting", "instance", id, "projectors", cfg.Projectors,
		"osc_port", cfg.OSCPort, "status", fmt.Sprintf("%s:%d", cfg.StatusHost, cfg.StatusPort))

	client := osc.NewClient(cfg.StatusHost, cfg.StatusPort)
	beacons := oscio.NewBeacons(client, id)
	orch.OnBeacon = func(b frame.Beacon) {
		if err := beacons.Send(b); err != nil {
			log.Debug("beacon send failed", "err", err)
		}
	}
	w.OnReset = func(b floor.Bounds) {
		if err := beacons.SendBounds(b); err != nil {
			log.Debug("bounds send failed", "err", err)
		}
	}

	if cfg.AutoCycle {
		w.OnEmpty = orch.Cycle
	}

	handler := oscio.NewHandler(w, orch, client, cfg.SnapshotDir())
	listener, err := oscio.Listen(fmt.Sprintf(":%d", cfg.OSCPort), handler)
	if err != nil {
		return err
	}
	srv := status.New(id, w, orch, handler, cfg.StatusPeriod)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Serve(gctx) })
	g.Go(func() error { return srv.Run(gctx, cfg.HTTPAddr) })

	if *headlessFlag {
		rctx := gctx
		if *recordDefaultPGO {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(gctx, pgoRecordDuration)
			defer cancel()
		}
		err := orch.Run(rctx, cfg.FramePeriod())
		stop()
		return errors.Join(err, g.Wait())
	}

	game := newGame(gctx, orch, w, cfg.SnapshotDir(), outW, outH)
	if *recordDefaultPGO {
		game.withOccupant = true
		game.stopProfile = stopProfile
		game.enableAutoWalk(pgoRecordDuration)
	}
	ebiten.SetTPS(cfg.FrameRate)
	ebiten.SetWindowSize(tileCols*outW*windowScale, tileRows*outH*windowScale)
	ebiten.SetWindowTitle("pulsefield")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err = ebiten.RunGame(game)
	stop()
	return errors.Join(err, g.Wait())
}

func compositorOptions(cfg config.Config) compositor.Options {
	return compositor.Options{
		ShadowOffset:  cfg.ShadowOffset,
		ShadowFarDist: cfg.ShadowFarDist,
		BlurRadius:    cfg.BlurRadius,
	}
}

// buildProjectors returns the demo layout, or uncalibrated projectors that
// wait for calibration messages.
func buildProjectors(cfg config.Config) []*projector.Projector {
	if cfg.DemoLayout {
		return projector.DefaultLayout(cfg.Projectors, cfg.SoftBounds(),
			cfg.ProjectorWidth, cfg.ProjectorHeight, cfg.DemoOverlapPx)
	}
	projs := make([]*projector.Projector, cfg.Projectors)
	for i := range projs {
		projs[i] = projector.New(i, cfg.ProjectorWidth, cfg.ProjectorHeight)
	}
	return projs
}
