package main

import (
	"testing"
	"time"

	"github.com/jrockway/console-clock/control/config"
	"github.com/jrockway/console-clock/control/rtc"
)

func TestStartTime(t *testing.T) {
	now := time.Date(2021, 9, 1, 17, 4, 33, 0, time.Local)
	testData := []struct {
		name   string
		cfg    config.RTCConfig
		want   rtc.Time
		wantOK bool
	}{
		{"keep", config.RTCConfig{}, 0, false},
		{"reset", config.RTCConfig{ResetOnStart: true}, 0, true},
		{"host", config.RTCConfig{SetFromHost: true}, 0x170433, true},
	}
	for _, test := range testData {
		t.Run(test.name, func(t *testing.T) {
			got, ok := startTime(test.cfg, now)
			if got != test.want || ok != test.wantOK {
				t.Errorf("start time:\n  got: %v, %v\n want: %v, %v", got, ok, test.want, test.wantOK)
			}
		})
	}
}
