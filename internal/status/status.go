// Package status serves the engine's health and progress over HTTP and a
// WebSocket stream.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"pulsefield/internal/frame"
	"pulsefield/internal/log"
	"pulsefield/internal/world"
)

// FrameSource reports render progress. *frame.Orchestrator satisfies it.
type FrameSource interface {
	Stats() frame.Stats
}

// MessageSource reports inbound message counts. *oscio.Handler satisfies it.
type MessageSource interface {
	Counts() (received, dropped uint64)
	LastFrame() int64
}

// Messages summarises the OSC listener.
type Messages struct {
	Received     uint64 `json:"received"`
	Dropped      uint64 `json:"dropped"`
	TrackerFrame int64  `json:"tracker_frame"`
}

// Report is the body of /api/status and each /ws/status message.
type Report struct {
	Instance   uuid.UUID    `json:"instance"`
	UptimeSec  float64      `json:"uptime_s"`
	FPS        float64      `json:"fps"`
	Ticks      uint64       `json:"ticks"`
	Skipped    uint64       `json:"skipped"`
	Visualizer string       `json:"visualizer"`
	Bounds     bool         `json:"bounds_overlay"`
	Owned      []int        `json:"owned"`
	Unowned    int          `json:"unowned"`
	World      world.Status `json:"world"`
	Messages   *Messages    `json:"messages,omitempty"`
}

// Server is the fiber app behind the status endpoint.
type Server struct {
	app     *fiber.App
	id      uuid.UUID
	started time.Time
	period  time.Duration

	world    *world.World
	frames   FrameSource
	messages MessageSource

	done chan struct{}
}

// New wires the routes. messages may be nil.
func New(id uuid.UUID, w *world.World, frames FrameSource, messages MessageSource, period time.Duration) *Server {
	s := &Server{
		id:       id,
		started:  time.Now(),
		period:   period,
		world:    w,
		frames:   frames,
		messages: messages,
		done:     make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "pulsefield",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Report gathers the current status.
func (s *Server) Report() Report {
	fs := s.frames.Stats()
	r := Report{
		Instance:   s.id,
		UptimeSec:  time.Since(s.started).Seconds(),
		FPS:        fs.FPS,
		Ticks:      fs.Ticks,
		Skipped:    fs.Skipped,
		Visualizer: fs.Visualizer,
		Bounds:     fs.Bounds,
		Owned:      fs.Owned,
		Unowned:    fs.Unowned,
		World:      s.world.Status(),
	}
	if s.messages != nil {
		rx, dropped := s.messages.Counts()
		r.Messages = &Messages{Received: rx, Dropped: dropped, TrackerFrame: s.messages.LastFrame()}
	}
	return r
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"instance": s.id.String(),
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Report())
}

// handleStatusWS pushes a report every period until the client goes away
// or the server shuts down.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		if err := c.WriteJSON(s.Report()); err != nil {
			log.Debug("status stream closed", "err", err)
			return
		}
		select {
		case <-s.done:
			return
		case <-t.C:
		}
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(addr) }()
	log.Info("status server listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	close(s.done)
	if err := s.app.ShutdownWithTimeout(2 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
