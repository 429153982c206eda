// Package uart connects a serial port to interrupt-style notifications: one callback per received
// byte, and one per transmitted byte.
package uart

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var txDroppedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "uart_tx_dropped_total",
	Help: "count of bytes written to the transmit register while it was still full",
})

// Handler receives the port's notifications.  Both methods are called from the port's goroutines and
// must not block.
type Handler interface {
	// Receive is called with every byte read from the port.
	Receive(b byte)
	// TransmitComplete is called after each byte passed to Transmit has been written.
	TransmitComplete()
}

// Port is a serial port with a one-byte transmit register.
type Port struct {
	rw  io.ReadWriter
	tdr chan byte
}

// New wraps an already-configured byte stream.
func New(rw io.ReadWriter) *Port {
	return &Port{rw: rw, tdr: make(chan byte, 1)}
}

// Open opens a serial device in raw mode at the given speed.  The returned io.Closer closes the
// device, which also ends Run.
func Open(name string, baud int) (*Port, io.Closer, error) {
	t, err := term.Open(name, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	return New(t), t, nil
}

// Transmit loads b into the transmit register and returns immediately.  The handler's
// TransmitComplete is called once b is on the wire.  Writing while the register is still full drops
// the byte.
func (p *Port) Transmit(b byte) {
	select {
	case p.tdr <- b:
	default:
		txDroppedCounter.Inc()
	}
}

// Run delivers notifications to h until the context is cancelled or the port fails.
func (p *Port) Run(ctx context.Context, h Handler) error {
	rxErrCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := p.rw.Read(buf)
			for _, b := range buf[:n] {
				h.Receive(b)
			}
			if err != nil {
				rxErrCh <- fmt.Errorf("read: %w", err)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("uart: %w", ctx.Err())
		case err := <-rxErrCh:
			return err
		case b := <-p.tdr:
			if _, err := p.rw.Write([]byte{b}); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			h.TransmitComplete()
		}
	}
}
