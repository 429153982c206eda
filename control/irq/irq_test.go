package irq

import (
	"context"
	"errors"
	"testing"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

func TestWatch(t *testing.T) {
	pin := &gpiotest.Pin{N: "BUTTON", EdgesChan: make(chan gpio.Level)}
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan struct{}, 10)
	errch := make(chan error)
	go func() {
		errch <- Watch(ctx, pin, gpio.PullDown, gpio.RisingEdge, func() { calls <- struct{}{} })
		close(errch)
	}()

	for i := 0; i < 3; i++ {
		select {
		case pin.EdgesChan <- gpio.High:
		case <-time.After(time.Second):
			t.Fatalf("edge %d was not consumed", i)
		}
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatalf("no callback for edge %d", i)
		}
	}

	cancel()
	select {
	case err := <-errch:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error after cancel: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for cancel")
	}
}
