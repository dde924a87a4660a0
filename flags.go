package main

import "flag"

// Command-line flags that control the local preview window and runtime
// behavior. Installation settings come from the environment; see
// internal/config.
var (
	// headlessFlag runs the frame loop without opening a window.
	headlessFlag = flag.Bool("headless", false, "render without a preview window")

	// visualizerFlag picks the visualizer active on the first frame.
	visualizerFlag = flag.String("vis", "", "initial visualizer name (dots, ripple, testpattern)")

	// showMasksFlag previews the blurred projector masks instead of the outputs.
	showMasksFlag = flag.Bool("show-masks", false, "preview projector masks instead of outputs")

	// occupantFlag adds a keyboard-driven person to the floor.
	occupantFlag = flag.Bool("occupant", false, "add a simulated occupant steered with WASD")

	// cpuProfileFlag records a CPU profile for the whole run.
	cpuProfileFlag = flag.Bool("cpuprofile", false, "write a CPU profile to $PF_ROOT/default.pgo")

	// recordDefaultPGO triggers a scripted walk to produce default.pgo.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "walk randomly for 15s while capturing default.pgo")

	// debugFlag enables the FPS and frame statistics overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and frame statistics overlay")
)
