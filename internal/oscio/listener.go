package oscio

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hypebeast/go-osc/osc"

	"pulsefield/internal/log"
)

// maxPacket is the largest UDP datagram read.
const maxPacket = 65535

// Listener reads OSC packets from a UDP socket and dispatches them in
// arrival order.
type Listener struct {
	conn net.PacketConn
	disp osc.Dispatcher
}

// Listen binds addr (host:port, host may be empty) for h.
func Listen(addr string, h *Handler) (*Listener, error) {
	disp, err := h.Dispatcher()
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("osc listen %s: %w", addr, err)
	}
	return &Listener{conn: conn, disp: disp}, nil
}

// Addr is the bound local address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Serve dispatches packets until ctx is cancelled, then closes the socket.
func (l *Listener) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()
	log.Info("osc listening", "addr", l.Addr().String())

	buf := make([]byte, maxPacket)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("osc read: %w", err)
		}
		p, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			log.Warn("osc packet dropped", "from", from.String(), "bytes", n, "err", err)
			continue
		}
		l.dispatch(p)
	}
}

// dispatch hands every message in p to the dispatcher on the calling
// goroutine. Bundles are unpacked depth first and their timetags ignored,
// so a bundle's messages apply in order before the next packet is read.
func (l *Listener) dispatch(p osc.Packet) {
	switch p := p.(type) {
	case *osc.Message:
		l.disp.Dispatch(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			l.disp.Dispatch(m)
		}
		for _, b := range p.Bundles {
			l.dispatch(b)
		}
	}
}

// Close releases the socket.
func (l *Listener) Close() error { return l.conn.Close() }
