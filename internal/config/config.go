// Package config loads runtime configuration for the projection engine from
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"pulsefield/internal/floor"
)

// Config holds everything the engine needs at startup. Display-only knobs
// live in the root flags; this struct covers geometry, transport and timing.
type Config struct {
	Root string `env:"PF_ROOT,required,notEmpty"`

	LogLevel  string `env:"PF_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"PF_LOG_FORMAT" envDefault:"text"`

	OSCPort    int    `env:"PF_OSC_PORT"    envDefault:"7002"`
	StatusHost string `env:"PF_STATUS_HOST" envDefault:"127.0.0.1"`
	StatusPort int    `env:"PF_STATUS_PORT" envDefault:"9998"`
	HTTPAddr   string `env:"PF_HTTP_ADDR"   envDefault:":8089"`

	Projectors       int `env:"PF_PROJECTORS"        envDefault:"4"`
	ProjectorWidth   int `env:"PF_PROJECTOR_WIDTH"   envDefault:"1920"`
	ProjectorHeight  int `env:"PF_PROJECTOR_HEIGHT"  envDefault:"1080"`
	OutputDownsample int `env:"PF_OUTPUT_DOWNSAMPLE" envDefault:"4"`

	MinX float64 `env:"PF_MINX" envDefault:"-5"`
	MaxX float64 `env:"PF_MAXX" envDefault:"5"`
	MinY float64 `env:"PF_MINY" envDefault:"0"`
	MaxY float64 `env:"PF_MAXY" envDefault:"5"`

	CanvasArea    int     `env:"PF_CANVAS_AREA"    envDefault:"720000"`
	MaskScale     float64 `env:"PF_MASK_SCALE"     envDefault:"8"`
	BlurRadius    int     `env:"PF_BLUR_RADIUS"    envDefault:"1"`
	ShadowOffset  float64 `env:"PF_SHADOW_OFFSET"  envDefault:"0.1"`
	ShadowFarDist float64 `env:"PF_SHADOW_FARDIST" envDefault:"10"`

	FrameRate     int           `env:"PF_FRAME_RATE"     envDefault:"30"`
	BeaconFrames  int           `env:"PF_BEACON_FRAMES"  envDefault:"20"`
	StatusPeriod  time.Duration `env:"PF_STATUS_PERIOD"  envDefault:"1s"`
	DemoLayout    bool          `env:"PF_DEMO_LAYOUT"    envDefault:"true"`
	DemoOverlapPx int           `env:"PF_DEMO_OVERLAP"   envDefault:"160"`
	AutoCycle     bool          `env:"PF_AUTOCYCLE"      envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside the
// render loop.
func (c Config) Validate() error {
	var errs []error
	if st, err := os.Stat(c.Root); err != nil {
		errs = append(errs, fmt.Errorf("PF_ROOT %q: %w", c.Root, err))
	} else if !st.IsDir() {
		errs = append(errs, fmt.Errorf("PF_ROOT %q is not a directory", c.Root))
	}
	if c.Projectors < 1 || c.Projectors > 255 {
		errs = append(errs, fmt.Errorf("PF_PROJECTORS must be in [1,255], got %d", c.Projectors))
	}
	if c.ProjectorWidth <= 0 || c.ProjectorHeight <= 0 {
		errs = append(errs, fmt.Errorf("projector resolution must be positive, got %dx%d", c.ProjectorWidth, c.ProjectorHeight))
	}
	if c.OutputDownsample < 1 {
		errs = append(errs, fmt.Errorf("PF_OUTPUT_DOWNSAMPLE must be >= 1, got %d", c.OutputDownsample))
	}
	if !c.SoftBounds().Valid() {
		errs = append(errs, fmt.Errorf("soft bounds need at least a 1m span: x=[%g,%g] y=[%g,%g]", c.MinX, c.MaxX, c.MinY, c.MaxY))
	}
	if c.CanvasArea < 1000 {
		errs = append(errs, fmt.Errorf("PF_CANVAS_AREA too small: %d", c.CanvasArea))
	}
	if c.MaskScale < 1 {
		errs = append(errs, fmt.Errorf("PF_MASK_SCALE must be >= 1, got %g", c.MaskScale))
	}
	if c.BlurRadius < 0 || c.BlurRadius > 16 {
		errs = append(errs, fmt.Errorf("PF_BLUR_RADIUS must be in [0,16], got %d", c.BlurRadius))
	}
	if c.FrameRate < 1 {
		errs = append(errs, fmt.Errorf("PF_FRAME_RATE must be >= 1, got %d", c.FrameRate))
	}
	if c.BeaconFrames < 1 {
		errs = append(errs, fmt.Errorf("PF_BEACON_FRAMES must be >= 1, got %d", c.BeaconFrames))
	}
	return errors.Join(errs...)
}

// SoftBounds returns the configured soft floor limits.
func (c Config) SoftBounds() floor.Bounds {
	return floor.Bounds{MinX: c.MinX, MaxX: c.MaxX, MinY: c.MinY, MaxY: c.MaxY}
}

// SnapshotDir is where mask and output dumps are written.
func (c Config) SnapshotDir() string {
	return filepath.Join(c.Root, "snapshots")
}

// ProfilePath is the CPU profile destination used by -cpuprofile.
func (c Config) ProfilePath() string {
	return filepath.Join(c.Root, "default.pgo")
}

// FramePeriod is the render tick interval.
func (c Config) FramePeriod() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}
