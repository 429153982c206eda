package rtc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAlarm(t *testing.T) {
	ctx, c := context.WithCancel(context.Background())
	timeout := 1500 * time.Millisecond
	jitter := 100 * time.Millisecond

	alarms := make(chan time.Time, 10)
	errch := make(chan error)
	go func() {
		errch <- Alarm(ctx, func() { alarms <- time.Now() })
		close(errch)
	}()

	// Check that alarms arrive at the start of a second, about a second apart.
	var a, b time.Time
	select {
	case <-time.After(timeout):
		t.Fatal("timeout waiting for first alarm")
	case err := <-errch:
		t.Fatalf("unexpected error waiting for first alarm: %v", err)
	case a = <-alarms:
		if late := a.Sub(a.Truncate(time.Second)); late > jitter {
			t.Errorf("delayed first alarm: %s", late)
		}
	}
	select {
	case <-time.After(timeout):
		t.Fatal("timeout waiting for second alarm")
	case err := <-errch:
		t.Fatalf("unexpected error waiting for second alarm: %v", err)
	case b = <-alarms:
		if late := b.Sub(b.Truncate(time.Second)); late > jitter {
			t.Errorf("delayed second alarm: %s", late)
		}
	}
	if diff := b.Sub(a); diff > timeout {
		t.Errorf("too much delay between alarms: %s", diff)
	}

	// Check that cancelling the context stops the alarm.
	c()
	select {
	case <-time.After(timeout):
		t.Fatal("timeout waiting for cancel")
	case err := <-errch:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error after cancel: %v", err)
		}
	}
}
