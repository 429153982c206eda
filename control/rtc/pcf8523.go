package rtc

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
)

// PCF8523 registers; datasheet: https://www.nxp.com/docs/en/data-sheet/PCF8523.pdf
const (
	PCF8523Address = 0x68

	regControl1   = 0x00
	regOffset     = 0x0e
	regClkOut     = 0x0f
	regSeconds    = 0x03
	control1Stop  = 1 << 5
	control1Mode  = 1 << 3 // 12 hour mode when set
	clkOut1Hz     = 0b110 << 3
	defaultOffset = 5 // mode 0, +5 * 4.34 ppm
)

// PCF8523 implements Source with an NXP PCF8523 on an I2C bus.  Its time registers are already BCD,
// so the packed Time is just the three registers side by side.
type PCF8523 struct {
	dev *i2c.Dev

	// Offset is written to the offset register on every commit.
	Offset byte
}

// NewPCF8523 returns a driver for the chip at the default address.
func NewPCF8523(bus i2c.Bus) *PCF8523 {
	return &PCF8523{dev: &i2c.Dev{Bus: bus, Addr: PCF8523Address}, Offset: defaultOffset}
}

// ReadTime implements Source.
func (p *PCF8523) ReadTime() (Time, error) {
	var buf [3]byte
	if err := p.dev.Tx([]byte{regSeconds}, buf[:]); err != nil {
		return 0, fmt.Errorf("read time registers: %w", err)
	}
	t := Time(buf[2]&0x3f)<<16 | Time(buf[1]&0x7f)<<8 | Time(buf[0]&0x7f)
	return t.Truncate(), nil
}

// CommitTime implements Source.  The oscillator is stopped while the time registers are written, so
// the new second starts counting from the moment the chip is restarted.  It also rewrites the
// offset register and sets CLKOUT to 1 Hz, which can be wired to the alarm input.
func (p *PCF8523) CommitTime(t Time) error {
	var ctrl [1]byte
	if err := p.dev.Tx([]byte{regControl1}, ctrl[:]); err != nil {
		return fmt.Errorf("read control1: %w", err)
	}
	c := ctrl[0] &^ control1Mode
	if err := p.dev.Tx([]byte{regControl1, c | control1Stop}, nil); err != nil {
		return fmt.Errorf("stop oscillator: %w", err)
	}
	if err := p.dev.Tx([]byte{regSeconds, byte(t & 0x7f), byte(t >> 8 & 0x7f), byte(t >> 16 & 0x3f)}, nil); err != nil {
		return fmt.Errorf("write time registers: %w", err)
	}
	if err := p.dev.Tx([]byte{regControl1, c &^ control1Stop}, nil); err != nil {
		return fmt.Errorf("start oscillator: %w", err)
	}
	if err := p.dev.Tx([]byte{regOffset, p.Offset & 0x7f}, nil); err != nil {
		return fmt.Errorf("write offset: %w", err)
	}
	if err := p.dev.Tx([]byte{regClkOut, clkOut1Hz}, nil); err != nil {
		return fmt.Errorf("set clkout: %w", err)
	}
	return nil
}
