package rtc

import (
	"testing"

	"periph.io/x/periph/conn/i2c/i2ctest"
)

func TestPCF8523ReadTime(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// The oscillator-stopped flag in bit 7 of seconds is not part of the time.
			{Addr: PCF8523Address, W: []byte{regSeconds}, R: []byte{0x80 | 0x59, 0x58, 0x23}},
		},
	}
	p := NewPCF8523(bus)
	got, err := p.ReadTime()
	if err != nil {
		t.Fatalf("read time: %v", err)
	}
	if want := Time(0x235859); got != want {
		t.Errorf("read time:\n  got: %v\n want: %v", got, want)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unused i2c operations: %v", err)
	}
}

func TestPCF8523CommitTime(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: PCF8523Address, W: []byte{regControl1}, R: []byte{0x0a}},
			{Addr: PCF8523Address, W: []byte{regControl1, 0x22}},
			{Addr: PCF8523Address, W: []byte{regSeconds, 0x56, 0x34, 0x12}},
			{Addr: PCF8523Address, W: []byte{regControl1, 0x02}},
			{Addr: PCF8523Address, W: []byte{regOffset, defaultOffset}},
			{Addr: PCF8523Address, W: []byte{regClkOut, 0x30}},
		},
	}
	p := NewPCF8523(bus)
	if err := p.CommitTime(0x123456); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unused i2c operations: %v", err)
	}
}
