// Package irq turns GPIO edges into interrupt-style callbacks.
package irq

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// pollTimeout bounds each WaitForEdge call so that cancellation is noticed.
const pollTimeout = 100 * time.Millisecond

// Watch configures pin as an input and calls fn once for every detected edge until the context is
// cancelled.  fn runs on Watch's goroutine and should only raise a flag, as an interrupt handler would.
func Watch(ctx context.Context, pin gpio.PinIn, pull gpio.Pull, edge gpio.Edge, fn func()) error {
	if err := pin.In(pull, edge); err != nil {
		return fmt.Errorf("configure %s for edge detection: %w", pin, err)
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watching %s: %w", pin, ctx.Err())
		default:
		}
		if pin.WaitForEdge(pollTimeout) {
			fn()
		}
	}
}
