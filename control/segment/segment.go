// Package segment turns a three-digit number and a bar level into the 32-bit word that drives the
// shift register chain behind the seven-segment display board.
//
// The board has three digits (DIS1..DIS3) and a bar of eight LEDs.  Each of them is wired to its own
// bits of the chain, so the per-position patterns can be OR-ed together without colliding:
//
//	bit  31 30 29 28 27 26 25 24 23 22 21 20 19 18 17 16
//	     P1 C1 D1 E1 L4 L3 L2 L1 L5 L6 L7 L8 G1 F1 A1 B1
//	bit  15 14 13 12 11 10  9  8  7  6  5  4  3  2  1  0
//	     P3 C3 D3 E3 P2 C2 D2 E2 G2 F2 A2 B2 G3 F3 A3 B3
package segment

// Word is one update of the shift register chain.  Bit 0 is shifted out first.
type Word uint32

// Position is one field of the composite word.
type Position int

const (
	Hundreds Position = iota // DIS1
	Tens                     // DIS2
	Units                    // DIS3
)

// Enable is set on every word of the four-field (digits plus bar) variant.  On the board it is the
// decimal point of the middle digit.
const Enable Word = 1 << 11

// MaxLevel is the highest bar level; larger levels are clamped to it.
const MaxLevel = 8

var digitTable = [3][10]Word{
	Hundreds: {
		// PCDE--------GFAB
		0b0111000000000111 << 16,
		0b0100000000000001 << 16,
		0b0011000000001011 << 16,
		0b0110000000001011 << 16,
		0b0100000000001101 << 16,
		0b0110000000001110 << 16,
		0b0111000000001110 << 16,
		0b0100000000000011 << 16,
		0b0111000000001111 << 16,
		0b0110000000001111 << 16,
	},
	Tens: {
		// ----PCDEGFAB----
		0b0000011101110000,
		0b0000010000010000,
		0b0000001110110000,
		0b0000011010110000,
		0b0000010011010000,
		0b0000011011100000,
		0b0000011111100000,
		0b0000010000110000,
		0b0000011111110000,
		0b0000011011110000,
	},
	Units: {
		// PCDE--------GFAB
		0b0111000000000111,
		0b0100000000000001,
		0b0011000000001011,
		0b0110000000001011,
		0b0100000000001101,
		0b0110000000001110,
		0b0111000000001110,
		0b0100000000000011,
		0b0111000000001111,
		0b0110000000001111,
	},
}

var barTable = [MaxLevel + 1]Word{
	// ----43215678----
	0b0000000000000000 << 16,
	0b0000000100000000 << 16,
	0b0000001100000000 << 16,
	0b0000011100000000 << 16,
	0b0000111100000000 << 16,
	0b0000111110000000 << 16,
	0b0000111111000000 << 16,
	0b0000111111100000 << 16,
	0b0000111111110000 << 16,
}

// Split returns the hundreds, tens and units digits of value.  Values above 999 lose their higher
// digits.
func Split(value uint16) [3]uint8 {
	return [3]uint8{
		Hundreds: uint8(value / 100 % 10),
		Tens:     uint8(value / 10 % 10),
		Units:    uint8(value % 10),
	}
}

// Pattern returns the bits that show digit at position p.  Digits above 9 show nothing.
func Pattern(p Position, digit uint8) Word {
	if p < Hundreds || p > Units || int(digit) >= len(digitTable[p]) {
		return 0
	}
	return digitTable[p][digit]
}

// BarPattern returns the bits that light the first level LEDs of the bar, clamping level to MaxLevel.
func BarPattern(level uint8) Word {
	if level > MaxLevel {
		level = MaxLevel
	}
	return barTable[level]
}

// EncodeDigits returns the three-field word for value: digits only, bar dark, no enable bit.
func EncodeDigits(value uint16) Word {
	var w Word
	for p, d := range Split(value) {
		w |= Pattern(Position(p), d)
	}
	return w
}

// Encode returns the four-field word for value and a bar level.
func Encode(value uint16, level uint8) Word {
	return EncodeDigits(value) | BarPattern(level) | Enable
}
