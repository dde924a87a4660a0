package oscio

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"

	"pulsefield/internal/floor"
	"pulsefield/internal/frame"
)

// Beacons sends the periodic health messages to the control surface:
// a blinking liveness LED, the frame rate, the floor bounds, the bounds
// overlay toggle and the instance id.
type Beacons struct {
	out Sender
	id  uuid.UUID
	led bool
}

// NewBeacons sends to out on behalf of instance id.
func NewBeacons(out Sender, id uuid.UUID) *Beacons {
	return &Beacons{out: out, id: id}
}

// Send emits one round of beacons. It matches frame.Orchestrator.OnBeacon
// once wrapped to log the error.
func (b *Beacons) Send(fb frame.Beacon) error {
	b.led = !b.led
	msgs := []*osc.Message{
		osc.NewMessage("/health/VD", onOff(b.led)),
		osc.NewMessage("/touchosc/fps", fmt.Sprintf("%.1f", fb.FPS)),
	}
	msgs = append(msgs, boundsMessages(fb.Status.Bounds)...)
	msgs = append(msgs,
		osc.NewMessage("/video/bounds", onOff(fb.Bounds)),
		osc.NewMessage("/video/instance", b.id.String()),
	)
	return b.send(msgs)
}

// SendBounds reports new floor bounds right away. Its signature matches
// world.World.OnReset once wrapped to log the error.
func (b *Beacons) SendBounds(bounds floor.Bounds) error {
	return b.send(boundsMessages(bounds))
}

func boundsMessages(bounds floor.Bounds) []*osc.Message {
	return []*osc.Message{
		osc.NewMessage("/video/minx", float32(bounds.MinX)),
		osc.NewMessage("/video/maxx", float32(bounds.MaxX)),
		osc.NewMessage("/video/miny", float32(bounds.MinY)),
		osc.NewMessage("/video/maxy", float32(bounds.MaxY)),
	}
}

func (b *Beacons) send(msgs []*osc.Message) error {
	var errs []error
	for _, m := range msgs {
		if err := b.out.Send(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Address, err))
		}
	}
	return errors.Join(errs...)
}
