package shiftreg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

type edge struct {
	Pin   string
	Level gpio.Level
}

// trace records every write to any of the pins attached to it, in order.
type trace struct {
	edges []edge
}

type recordingPin struct {
	*gpiotest.Pin
	t *trace
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.t.edges = append(p.t.edges, edge{Pin: p.N, Level: l})
	return p.Pin.Out(l)
}

func newPins(t *trace) (data, clock, latch *recordingPin) {
	return &recordingPin{Pin: &gpiotest.Pin{N: "SDI"}, t: t},
		&recordingPin{Pin: &gpiotest.Pin{N: "CLK"}, t: t},
		&recordingPin{Pin: &gpiotest.Pin{N: "NLA"}, t: t}
}

// decode replays a pin trace into the shift register: the data level is sampled on every rising
// clock edge, and the register is copied to the outputs on every rising latch edge.
func decode(edges []edge) (clocks, latches int, outputs []uint32) {
	var data gpio.Level
	var shift uint32
	for _, e := range edges {
		switch {
		case e.Pin == "SDI":
			data = e.Level
		case e.Pin == "CLK" && e.Level == gpio.High:
			clocks++
			shift >>= 1
			if data {
				shift |= 1 << (Bits - 1)
			}
		case e.Pin == "NLA" && e.Level == gpio.High:
			latches++
			outputs = append(outputs, shift)
		}
	}
	return clocks, latches, outputs
}

func TestBitbang(t *testing.T) {
	for _, word := range []uint32{0, 1, 0x80000000, 0xffffffff, 0xdeadbeef, 0x70070807} {
		t.Run(fmt.Sprintf("%#x", word), func(t *testing.T) {
			tr := new(trace)
			data, clock, latch := newPins(tr)
			b, err := NewBitbang(data, clock, latch)
			if err != nil {
				t.Fatalf("new bitbang: %v", err)
			}
			tr.edges = nil
			if err := b.ShiftOut(word); err != nil {
				t.Fatalf("shift out: %v", err)
			}
			clocks, latches, outputs := decode(tr.edges)
			if got, want := clocks, Bits; got != want {
				t.Errorf("clock pulses:\n  got: %v\n want: %v", got, want)
			}
			if got, want := latches, 1; got != want {
				t.Errorf("latch pulses:\n  got: %v\n want: %v", got, want)
			}
			if diff := cmp.Diff([]uint32{word}, outputs); diff != "" {
				t.Errorf("latched outputs (-want +got):\n%s", diff)
			}
			if last := tr.edges[len(tr.edges)-2]; last.Pin != "NLA" {
				t.Errorf("latch is not the last pulse: %v", tr.edges[len(tr.edges)-4:])
			}
			if got, want := latch.L, gpio.Low; got != want {
				t.Errorf("latch left at:\n  got: %v\n want: %v", got, want)
			}
		})
	}
}

func TestBitbangFirstBitIsLSB(t *testing.T) {
	tr := new(trace)
	data, clock, latch := newPins(tr)
	b, err := NewBitbang(data, clock, latch)
	if err != nil {
		t.Fatal(err)
	}
	tr.edges = nil
	if err := b.ShiftOut(0b10); err != nil {
		t.Fatal(err)
	}
	want := []edge{
		{"SDI", gpio.Low}, {"CLK", gpio.High}, {"CLK", gpio.Low},
		{"SDI", gpio.High}, {"CLK", gpio.High}, {"CLK", gpio.Low},
		{"SDI", gpio.Low}, {"CLK", gpio.High}, {"CLK", gpio.Low},
	}
	if diff := cmp.Diff(want, tr.edges[:len(want)]); diff != "" {
		t.Errorf("first three bits (-want +got):\n%s", diff)
	}
}

func TestNewBitbangNilPin(t *testing.T) {
	tr := new(trace)
	data, clock, _ := newPins(tr)
	if _, err := NewBitbang(data, clock, nil); err == nil {
		t.Error("expected error for nil latch")
	}
}

type fakeConn struct {
	writes [][]byte
	err    error
}

func (c *fakeConn) Tx(w, r []byte) error {
	c.writes = append(c.writes, append([]byte(nil), w...))
	return c.err
}

func TestSPI(t *testing.T) {
	tr := new(trace)
	_, _, latch := newPins(tr)
	conn := new(fakeConn)
	s := &SPI{conn: conn, latch: latch}
	if err := s.ShiftOut(0x11223344); err != nil {
		t.Fatalf("shift out: %v", err)
	}
	if diff := cmp.Diff([][]byte{{0x44, 0x33, 0x22, 0x11}}, conn.writes); diff != "" {
		t.Errorf("spi writes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]edge{{"NLA", gpio.High}, {"NLA", gpio.Low}}, tr.edges); diff != "" {
		t.Errorf("latch edges (-want +got):\n%s", diff)
	}
}

func TestSPIError(t *testing.T) {
	tr := new(trace)
	_, _, latch := newPins(tr)
	s := &SPI{conn: &fakeConn{err: errors.New("bus fault")}, latch: latch}
	if err := s.ShiftOut(1); err == nil {
		t.Fatal("expected error")
	}
	if len(tr.edges) != 0 {
		t.Errorf("latch pulsed after a failed transfer: %v", tr.edges)
	}
}
