// Package oscio connects the engine to the installation's OSC traffic: the
// tracker's person messages, the calibration tool's matrices and the
// control surface, plus the periodic health beacons sent back out.
package oscio

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hypebeast/go-osc/osc"

	"pulsefield/internal/floor"
	"pulsefield/internal/log"
	"pulsefield/internal/projector"
	"pulsefield/internal/world"
)

// Video is the part of the renderer messages can steer. Calls must not
// block; the orchestrator queues them for its next tick.
type Video interface {
	Select(i int)
	SelectName(name string)
	RequestSnapshot(dir string)
	SetBoundsOverlay(on bool)
	Restart()
}

// Sender delivers outbound packets. *osc.Client satisfies it.
type Sender interface {
	Send(packet osc.Packet) error
}

type route func(msg *osc.Message) error

// Handler applies inbound messages to the world.
type Handler struct {
	world   *world.World
	video   Video
	reply   Sender
	snapDir string

	routes    map[string]route
	lastFrame atomic.Int64
	received  atomic.Uint64
	dropped   atomic.Uint64
}

// NewHandler builds the address table. video and reply may be nil.
func NewHandler(w *world.World, video Video, reply Sender, snapDir string) *Handler {
	h := &Handler{world: w, video: video, reply: reply, snapDir: snapDir}
	h.routes = map[string]route{
		"/pf/entry":         h.entry,
		"/pf/update":        h.update,
		"/pf/body":          h.body,
		"/pf/leg":           h.leg,
		"/pf/exit":          h.exit,
		"/pf/set/npeople":   h.setCount,
		"/pf/set/rotation":  h.setRotation,
		"/pf/started":       h.started,
		"/pf/stopped":       h.stopped,
		"/pf/frame":         h.frame,
		"/ping":             h.ping,
		"/cal/screen2world": h.screen2World,
		"/cal/world2screen": h.world2Screen,
		"/cal/cameraview":   h.cameraView,
		"/cal/projection":   h.projection,
		"/cal/pose":         h.pose,
		"/video/app/select": h.selectApp,
		"/video/masks":      h.masks,
		"/video/bounds":     h.bounds,
	}
	for _, e := range []world.Edge{world.MinX, world.MaxX, world.MinY, world.MaxY} {
		h.routes["/pf/set/"+e.String()] = h.setBound(e)
		h.routes["/video/"+e.String()] = h.setBound(e)
	}
	return h
}

// Addresses lists every handled address in sorted order.
func (h *Handler) Addresses() []string {
	out := make([]string, 0, len(h.routes))
	for a := range h.routes {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Handle applies one message. Malformed messages leave the world untouched
// and return an error wrapping ErrArgs or the world's error.
func (h *Handler) Handle(msg *osc.Message) error {
	h.received.Add(1)
	r, ok := h.routes[msg.Address]
	if !ok {
		h.dropped.Add(1)
		return fmt.Errorf("unhandled address %s", msg.Address)
	}
	if err := r(msg); err != nil {
		h.dropped.Add(1)
		return err
	}
	return nil
}

// Dispatcher registers every route on a go-osc dispatcher. Errors are
// logged and the message dropped.
func (h *Handler) Dispatcher() (*osc.StandardDispatcher, error) {
	d := osc.NewStandardDispatcher()
	for _, addr := range h.Addresses() {
		if err := d.AddMsgHandler(addr, func(msg *osc.Message) {
			if err := h.Handle(msg); err != nil {
				log.Warn("osc message dropped", "addr", msg.Address, "err", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("register %s: %w", addr, err)
		}
	}
	return d, nil
}

// LastFrame is the most recent tracker frame number seen.
func (h *Handler) LastFrame() int64 { return h.lastFrame.Load() }

// Counts returns messages received and dropped.
func (h *Handler) Counts() (received, dropped uint64) {
	return h.received.Load(), h.dropped.Load()
}

// /pf/entry sampnum elapsed id channel
func (h *Handler) entry(msg *osc.Message) error {
	if err := wantArgs(msg, 4); err != nil {
		return err
	}
	id, err := argInt(msg, 2)
	if err != nil {
		return err
	}
	channel, err := argInt(msg, 3)
	if err != nil {
		return err
	}
	h.world.Entry(id, channel)
	log.Debug("person entered", "id", id, "channel", channel)
	return nil
}

// /pf/update sampnum elapsed id x y vx vy major minor groupid groupsize channel
func (h *Handler) update(msg *osc.Message) error {
	if err := wantArgs(msg, 12); err != nil {
		return err
	}
	elapsed, err := argFloat(msg, 1)
	if err != nil {
		return err
	}
	var ints [4]int
	for k, i := range []int{2, 9, 10, 11} {
		if ints[k], err = argInt(msg, i); err != nil {
			return err
		}
	}
	f, err := argFloats(msg, 3, 6)
	if err != nil {
		return err
	}
	rot := h.world.Rotation()
	pos := floor.SensorToFloor(mgl64.Vec2{f[0], f[1]}, rot)
	vel := floor.SensorVelocityToFloor(mgl64.Vec2{f[2], f[3]}, rot)
	h.world.Move(ints[0], ints[3], pos, vel, ints[1], ints[2], elapsed)
	return nil
}

// /pf/body sampnum id x y ex ey spd espd heading eheading facing efacing
// diam sigmadiam sep sigmasep leftness visibility
func (h *Handler) body(msg *osc.Message) error {
	if err := wantArgs(msg, 18); err != nil {
		return err
	}
	id, err := argInt(msg, 1)
	if err != nil {
		return err
	}
	diam, err := argFloat(msg, 12)
	if err != nil {
		return err
	}
	sep, err := argFloat(msg, 14)
	if err != nil {
		return err
	}
	h.world.UpdateBody(id, sep, diam)
	return nil
}

// /pf/leg sampnum id leg nlegs x y ex ey spd espd heading eheading visibility
func (h *Handler) leg(msg *osc.Message) error {
	if err := wantArgs(msg, 13); err != nil {
		return err
	}
	id, err := argInt(msg, 1)
	if err != nil {
		return err
	}
	leg, err := argInt(msg, 2)
	if err != nil {
		return err
	}
	f, err := argFloats(msg, 4, 8)
	if err != nil {
		return err
	}
	rot := h.world.Rotation()
	pos := floor.SensorToFloor(mgl64.Vec2{f[0], f[1]}, rot)
	return h.world.UpdateLeg(id, leg, pos, f[4], f[6]+rot)
}

// /pf/exit sampnum elapsed id
func (h *Handler) exit(msg *osc.Message) error {
	if err := wantArgs(msg, 3); err != nil {
		return err
	}
	id, err := argInt(msg, 2)
	if err != nil {
		return err
	}
	h.world.Exit(id)
	log.Debug("person exited", "id", id)
	return nil
}

func (h *Handler) setCount(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	n, err := argInt(msg, 0)
	if err != nil {
		return err
	}
	// A cleared floor restarts the visualizer before OnEmpty can cycle it.
	if n == 0 && h.video != nil {
		h.video.Restart()
	}
	h.world.SetCount(n)
	return nil
}

func (h *Handler) setBound(e world.Edge) route {
	return func(msg *osc.Message) error {
		if err := wantArgs(msg, 1); err != nil {
			return err
		}
		v, err := argFloat(msg, 0)
		if err != nil {
			return err
		}
		return h.world.SetSoftBound(e, v)
	}
}

func (h *Handler) setRotation(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	deg, err := argFloat(msg, 0)
	if err != nil {
		return err
	}
	h.world.SetRotation(deg)
	log.Info("sensor rotation", "deg", deg)
	return nil
}

func (h *Handler) started(*osc.Message) error {
	log.Info("tracker started")
	return nil
}

func (h *Handler) stopped(*osc.Message) error {
	n := h.world.Clear()
	log.Info("tracker stopped", "cleared", n)
	return nil
}

func (h *Handler) frame(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	n, err := argInt(msg, 0)
	if err != nil {
		return err
	}
	h.lastFrame.Store(int64(n))
	return nil
}

// /ping code is answered with /ack code.
func (h *Handler) ping(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	code, err := argInt(msg, 0)
	if err != nil {
		return err
	}
	if h.reply == nil {
		return nil
	}
	if err := h.reply.Send(osc.NewMessage("/ack", int32(code))); err != nil {
		return fmt.Errorf("ack %d: %w", code, err)
	}
	return nil
}

// calibration reads the projector index and n coefficients.
func calibration(msg *osc.Message, n int) (int, []float64, error) {
	if err := wantArgs(msg, n+1); err != nil {
		return 0, nil, err
	}
	proj, err := argInt(msg, 0)
	if err != nil {
		return 0, nil, err
	}
	c, err := argFloats(msg, 1, n)
	if err != nil {
		return 0, nil, err
	}
	return proj, c, nil
}

func (h *Handler) screen2World(msg *osc.Message) error {
	proj, c, err := calibration(msg, 9)
	if err != nil {
		return err
	}
	return h.world.SetScreen2World(proj, projector.HomographyFromRows([9]float64(c)))
}

func (h *Handler) world2Screen(msg *osc.Message) error {
	proj, c, err := calibration(msg, 9)
	if err != nil {
		return err
	}
	return h.world.SetWorld2Screen(proj, projector.HomographyFromRows([9]float64(c)))
}

func (h *Handler) cameraView(msg *osc.Message) error {
	proj, c, err := calibration(msg, 12)
	if err != nil {
		return err
	}
	return h.world.SetCameraView(proj, projector.CameraViewFromRows([12]float64(c)))
}

func (h *Handler) projection(msg *osc.Message) error {
	proj, c, err := calibration(msg, 6)
	if err != nil {
		return err
	}
	return h.world.SetProjection(proj, projector.ProjectionFromRows([6]float64(c)))
}

func (h *Handler) pose(msg *osc.Message) error {
	proj, c, err := calibration(msg, 3)
	if err != nil {
		return err
	}
	return h.world.SetPose(proj, mgl64.Vec3{c[0], c[1], c[2]})
}

// /video/app/select takes an index or a visualizer name.
func (h *Handler) selectApp(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	if h.video == nil {
		return nil
	}
	if name, ok := msg.Arguments[0].(string); ok {
		h.video.SelectName(name)
		return nil
	}
	i, err := argInt(msg, 0)
	if err != nil {
		return err
	}
	h.video.Select(i)
	return nil
}

// /video/masks [pressed] asks for a mask and output snapshot. A zero
// argument is a button release and is ignored.
func (h *Handler) masks(msg *osc.Message) error {
	switch len(msg.Arguments) {
	case 0:
	case 1:
		v, err := argFloat(msg, 0)
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	default:
		return wantArgs(msg, 1)
	}
	if h.video != nil {
		h.video.RequestSnapshot(h.snapDir)
	}
	return nil
}

// /video/bounds onoff toggles the bounds overlay. The new state is echoed
// so the control surface's toggle follows.
func (h *Handler) bounds(msg *osc.Message) error {
	if err := wantArgs(msg, 1); err != nil {
		return err
	}
	v, err := argFloat(msg, 0)
	if err != nil {
		return err
	}
	on := v != 0
	if h.video != nil {
		h.video.SetBoundsOverlay(on)
	}
	if h.reply == nil {
		return nil
	}
	if err := h.reply.Send(osc.NewMessage("/video/bounds", onOff(on))); err != nil {
		return fmt.Errorf("echo bounds: %w", err)
	}
	return nil
}

func onOff(on bool) float32 {
	if on {
		return 1
	}
	return 0
}
