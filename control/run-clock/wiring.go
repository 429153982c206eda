package main

import (
	"fmt"
	"time"

	"github.com/jrockway/console-clock/control/config"
	"github.com/jrockway/console-clock/control/rtc"
	"github.com/jrockway/console-clock/control/shiftreg"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi/spireg"
)

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return p, nil
}

func inputPin(name string) (gpio.PinIn, error) {
	return pinByName(name)
}

// newDriver returns the shift register driver for the display, or nil if there is no display
// hardware.  The returned function releases it.
func newDriver(cfg config.DisplayConfig) (shiftreg.Driver, func(), error) {
	switch cfg.Driver {
	case config.DisplayBitbang:
		var pins [3]gpio.PinIO
		for i, name := range []string{cfg.Data, cfg.Clock, cfg.Latch} {
			p, err := pinByName(name)
			if err != nil {
				return nil, nil, err
			}
			pins[i] = p
		}
		d, err := shiftreg.NewBitbang(pins[0], pins[1], pins[2])
		if err != nil {
			return nil, nil, fmt.Errorf("init bitbang shift register: %w", err)
		}
		return d, func() {}, nil
	case config.DisplaySPI:
		latch, err := pinByName(cfg.Latch)
		if err != nil {
			return nil, nil, err
		}
		port, err := spireg.Open(cfg.SPI)
		if err != nil {
			return nil, nil, fmt.Errorf("open spi port %q: %w", cfg.SPI, err)
		}
		d, err := shiftreg.NewSPI(port, latch, physic.Frequency(cfg.Frequency)*physic.Hertz)
		if err != nil {
			port.Close()
			return nil, nil, fmt.Errorf("init spi shift register: %w", err)
		}
		return d, func() { port.Close() }, nil
	}
	return nil, func() {}, nil
}

// newSource returns the configured real-time clock.  The returned function releases it.
func newSource(cfg config.RTCConfig) (rtc.Source, func(), error) {
	switch cfg.Driver {
	case config.RTCPCF8523:
		bus, err := i2creg.Open(cfg.I2C)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2C, err)
		}
		return rtc.NewPCF8523(bus), func() { bus.Close() }, nil
	default:
		c := rtc.NewClock(rtc.NewSim(nil))
		c.SpinLimit = cfg.SpinLimit
		return c, func() {}, nil
	}
}

// startTime returns the time to commit before the console starts, if any.
func startTime(cfg config.RTCConfig, now time.Time) (rtc.Time, bool) {
	switch {
	case cfg.SetFromHost:
		return rtc.FromClock(now), true
	case cfg.ResetOnStart:
		return 0, true
	}
	return 0, false
}
