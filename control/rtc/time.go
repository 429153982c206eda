// Package rtc reads and sets the time of day kept by a real-time clock, and raises the
// once-per-second alarm that drives the console.
package rtc

import (
	"fmt"
	"time"
)

// Time is a time of day packed as binary-coded decimal, in the layout of the STM32 RTC_TR register:
//
//	bits 21-20  hour tens      bits 19-16  hour units
//	bits 14-12  minute tens    bits 11-8   minute units
//	bits 6-4    second tens    bits 3-0    second units
//
// A Time built digit by digit may carry bits outside those fields; Truncate drops them.
type Time uint32

// Max is 23:59:59, the largest valid time of day.
const Max Time = 0x235959

// Slot is one of the six digit positions of a Time, in the order they are entered on the console.
type Slot int

const (
	HourTens Slot = iota
	HourUnits
	MinuteTens
	MinuteUnits
	SecondTens
	SecondUnits
)

// Slots is the number of digit positions.
const Slots = 6

var slotWidths = [Slots]uint{2, 4, 3, 4, 3, 4}

var slotNames = [Slots]string{"hour tens", "hour units", "minute tens", "minute units", "second tens", "second units"}

func (s Slot) String() string {
	if s < 0 || s >= Slots {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Shift is the bit offset of the slot's field.
func (s Slot) Shift() uint { return uint(20 - 4*s) }

// Mask returns the bits of the slot's field.
func (s Slot) Mask() Time { return Time(1<<slotWidths[s]-1) << s.Shift() }

// Digit returns the digit stored in slot s.
func (t Time) Digit(s Slot) uint8 { return uint8((t & s.Mask()) >> s.Shift()) }

// With returns t with d OR-ed in at slot s.  Nothing is masked or range checked.
func (t Time) With(s Slot, d uint8) Time { return t | Time(d)<<s.Shift() }

// Truncate drops every bit that is not part of a field.
func (t Time) Truncate() Time {
	var out Time
	for s := HourTens; s < Slots; s++ {
		out |= t & s.Mask()
	}
	return out
}

func (t Time) pair(tens Slot) int { return int(t.Digit(tens))*10 + int(t.Digit(tens+1)) }

// Hour returns the hour field.  Fields are not range checked, so garbage can exceed 23.
func (t Time) Hour() int { return t.pair(HourTens) }

// Minute returns the minute field.
func (t Time) Minute() int { return t.pair(MinuteTens) }

// Second returns the second field.
func (t Time) Second() int { return t.pair(SecondTens) }

// SecondsOfDay returns the number of seconds since midnight the fields add up to.
func (t Time) SecondsOfDay() int { return t.Hour()*3600 + t.Minute()*60 + t.Second() }

// Of packs a valid time of day.  Out-of-range arguments wrap around the day.
func Of(hour, min, sec int) Time { return FromSeconds(hour*3600 + min*60 + sec) }

// FromSeconds packs the time of day n seconds after midnight, modulo one day.
func FromSeconds(n int) Time {
	n %= 24 * 3600
	if n < 0 {
		n += 24 * 3600
	}
	h, m, s := n/3600, n/60%60, n%60
	return Time(h/10)<<20 | Time(h%10)<<16 | Time(m/10)<<12 | Time(m%10)<<8 | Time(s/10)<<4 | Time(s%10)
}

// FromClock packs the time of day of t.
func FromClock(t time.Time) Time {
	h, m, s := t.Clock()
	return Of(h, m, s)
}

// String formats t as HH:MM:SS.
func (t Time) String() string {
	var d [Slots]uint8
	for s := HourTens; s < Slots; s++ {
		d[s] = t.Digit(s)
	}
	return fmt.Sprintf("%d%d:%d%d:%d%d", d[0], d[1], d[2], d[3], d[4], d[5])
}

// Source is a real-time clock as the console sees it.
type Source interface {
	// ReadTime returns the current time of day.
	ReadTime() (Time, error)
	// CommitTime sets the time of day.
	CommitTime(t Time) error
}
