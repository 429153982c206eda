package rtc

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var alarmDelayMetric = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "rtc_alarm_delay",
	Help:    "amount of time between the start of a second and the alarm callback returning, in nanoseconds",
	Buckets: prometheus.ExponentialBuckets(1000, 10, 8),
})

// Alarm calls fn at the instant the seconds change, standing in for the RTC's once-per-second
// alarm match.  fn runs on Alarm's goroutine, like an interrupt handler, and should only raise a
// flag.  Cancelling the context causes this to return immediately.
func Alarm(ctx context.Context, fn func()) error {
	for {
		nextSecond := time.Now().Add(time.Second).Truncate(time.Second)

		// Wait until the next second starts.
		select {
		case <-time.After(time.Until(nextSecond)):
		case <-ctx.Done():
			return fmt.Errorf("waiting for next second: %w", ctx.Err())
		}

		fn()
		alarmDelayMetric.Observe(float64(time.Since(nextSecond).Nanoseconds()))
	}
}
