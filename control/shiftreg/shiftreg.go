// Package shiftreg shifts 32-bit words into a chain of serial-in, parallel-out shift registers
// (74HC595 style: a data line, a shift clock and a storage latch).
package shiftreg

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
)

// Bits is the length of the chain.
const Bits = 32

// Driver loads a word into the chain and makes it visible on the outputs.
type Driver interface {
	ShiftOut(word uint32) error
}

// Bitbang drives the chain from three GPIO lines.  Bit 0 of the word is shifted first.  No delay is
// inserted between edges, so the GPIO write latency of the host is the only clock timing margin; do
// not call ShiftOut from anything that can preempt it for long.
type Bitbang struct {
	data, clock, latch gpio.PinOut
}

// NewBitbang returns a driver on the given pins, with all three lines driven low.
func NewBitbang(data, clock, latch gpio.PinOut) (*Bitbang, error) {
	for _, p := range []gpio.PinOut{data, clock, latch} {
		if p == nil {
			return nil, fmt.Errorf("shiftreg: nil pin")
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("drive %s low: %w", p, err)
		}
	}
	return &Bitbang{data: data, clock: clock, latch: latch}, nil
}

// ShiftOut emits 32 data bits, one per clock pulse, then pulses the latch once.
func (b *Bitbang) ShiftOut(word uint32) error {
	for i := 0; i < Bits; i++ {
		if err := b.data.Out(gpio.Level(word&1 == 1)); err != nil {
			return fmt.Errorf("bit %d: data: %w", i, err)
		}
		if err := pulse(b.clock); err != nil {
			return fmt.Errorf("bit %d: clock: %w", i, err)
		}
		word >>= 1
	}
	if err := pulse(b.latch); err != nil {
		return fmt.Errorf("latch: %w", err)
	}
	return nil
}

func pulse(p gpio.PinOut) error {
	if err := p.Out(gpio.High); err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

// txer is the part of spi.Conn that SPI uses.
type txer interface {
	Tx(w, r []byte) error
}

// SPI drives the chain from a hardware SPI controller (MOSI to data, SCLK to clock) and a GPIO
// latch.  The controller runs LSB-first and the word is sent little-endian, so the bit order on the
// wire is the same as Bitbang's.
type SPI struct {
	conn  txer
	latch gpio.PinOut
}

// NewSPI connects to p at frequency f.
func NewSPI(p spi.Port, latch gpio.PinOut, f physic.Frequency) (*SPI, error) {
	if latch == nil {
		return nil, fmt.Errorf("shiftreg: nil latch pin")
	}
	c, err := p.Connect(f, spi.Mode0|spi.LSBFirst, 8)
	if err != nil {
		return nil, fmt.Errorf("connect to spi port: %w", err)
	}
	if err := latch.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("drive latch low: %w", err)
	}
	return &SPI{conn: c, latch: latch}, nil
}

// ShiftOut sends the word in one transaction, then pulses the latch once.
func (s *SPI) ShiftOut(word uint32) error {
	var buf [Bits / 8]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	if err := s.conn.Tx(buf[:], nil); err != nil {
		return fmt.Errorf("spi tx: %w", err)
	}
	if err := pulse(s.latch); err != nil {
		return fmt.Errorf("latch: %w", err)
	}
	return nil
}
