package segment

// Segment is one of the eight lit elements of a digit, using the usual A-G naming plus the decimal
// point.
type Segment uint8

const (
	A Segment = iota
	B
	C
	D
	E
	F
	G
	DP
)

// Segments is a set of lit segments, bit n set for Segment n.
type Segments uint8

// Has reports whether s is lit.
func (ss Segments) Has(s Segment) bool { return ss&(1<<s) != 0 }

// glyphs are the segments of the decimal digits.
var glyphs = [10]Segments{
	1<<A | 1<<B | 1<<C | 1<<D | 1<<E | 1<<F,
	1<<B | 1<<C,
	1<<A | 1<<B | 1<<D | 1<<E | 1<<G,
	1<<A | 1<<B | 1<<C | 1<<D | 1<<G,
	1<<B | 1<<C | 1<<F | 1<<G,
	1<<A | 1<<C | 1<<D | 1<<F | 1<<G,
	1<<A | 1<<C | 1<<D | 1<<E | 1<<F | 1<<G,
	1<<A | 1<<B | 1<<C,
	1<<A | 1<<B | 1<<C | 1<<D | 1<<E | 1<<F | 1<<G,
	1<<A | 1<<B | 1<<C | 1<<D | 1<<F | 1<<G,
}

// wiring maps each segment of each digit to its bit in the word.
var wiring = [3][8]uint{
	//          A   B   C   D   E   F   G   DP
	Hundreds: {17, 16, 30, 29, 28, 18, 19, 31},
	Tens:     {5, 4, 10, 9, 8, 6, 7, 11},
	Units:    {1, 0, 14, 13, 12, 2, 3, 15},
}

// barWiring maps LED n+1 of the bar to its bit in the word.
var barWiring = [MaxLevel]uint{24, 25, 26, 27, 23, 22, 21, 20}

// Segments returns the segments lit at position p.
func (w Word) Segments(p Position) Segments {
	if p < Hundreds || p > Units {
		return 0
	}
	var ss Segments
	for s, bit := range wiring[p] {
		if w&(1<<bit) != 0 {
			ss |= 1 << s
		}
	}
	return ss
}

// Digit returns the digit shown at position p, ignoring the decimal point.  ok is false if the lit
// segments are not a decimal digit.
func (w Word) Digit(p Position) (digit uint8, ok bool) {
	ss := w.Segments(p) &^ (1 << DP)
	for d, g := range glyphs {
		if g == ss {
			return uint8(d), true
		}
	}
	return 0, false
}

// LED reports whether LED n (1-8) of the bar is lit.
func (w Word) LED(n int) bool {
	if n < 1 || n > MaxLevel {
		return false
	}
	return w&(1<<barWiring[n-1]) != 0
}

// Level returns the number of leading bar LEDs that are lit.
func (w Word) Level() uint8 {
	var n uint8
	for n < MaxLevel && w.LED(int(n)+1) {
		n++
	}
	return n
}
