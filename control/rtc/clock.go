package rtc

import (
	"fmt"
	"runtime"
)

// Registers is the register interface of an STM32-style RTC block.  Implementations only move bits;
// sequencing and waiting belong to Clock.
type Registers interface {
	// Unlock writes the write-protection key sequence.  Unlocked reports that the block accepted it.
	Unlock()
	Unlocked() bool
	// Lock re-enables write protection.
	Lock()

	// EnterInit requests initialization mode (ISR.INIT).  InitReady reports ISR.INITF.
	EnterInit()
	InitReady() bool
	// ExitInit leaves initialization mode and restarts the calendar.
	ExitInit()

	// SetPrescaler writes PRER.  Only valid in initialization mode.
	SetPrescaler(async, sync uint16)
	// SetTime writes TR.  Only valid in initialization mode.
	SetTime(tr uint32)

	// RecalPending reports ISR.RECALPF.  CALR must not be written while it is set.
	RecalPending() bool
	// SetCalibration writes CALR.
	SetCalibration(calr uint32)

	// Synchronized reports ISR.RSF: the shadow registers hold a consistent copy of the calendar.
	Synchronized() bool
	// Time reads TR.
	Time() uint32
}

// Prescaler values that divide the 40 kHz LSI down to 1 Hz: 40000 / (124+1) / (319+1).
const (
	PrescalerAsync = 124
	PrescalerSync  = 319
)

// Calibration is written to CALR on every commit: CALP (add 488.5 ppm) with 482 pulses masked,
// which is around +20 ppm.
const Calibration = calp | 482

const calp = 1 << 15

// Readiness conditions that Clock waits for.
const (
	CondUnlock = "write-protect unlock"
	CondInit   = "initialization mode"
	CondRecal  = "recalibration"
	CondSync   = "register synchronization"
)

// NotReadyError is returned when a readiness wait gives up.
type NotReadyError struct {
	Condition string
	Polls     int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("rtc: %s not ready after %d polls", e.Condition, e.Polls)
}

// Clock implements Source on top of RTC registers.
//
// Every wait on the hardware is a busy loop.  With SpinLimit zero the loops never give up, and a
// block that never acknowledges hangs the caller forever; with SpinLimit > 0 they give up after that
// many polls and return *NotReadyError.
type Clock struct {
	regs      Registers
	SpinLimit int
}

// NewClock returns a Clock that waits forever.
func NewClock(regs Registers) *Clock {
	return &Clock{regs: regs}
}

func (c *Clock) wait(cond string, ready func() bool) error {
	for n := 0; !ready(); n++ {
		if c.SpinLimit > 0 && n >= c.SpinLimit {
			return &NotReadyError{Condition: cond, Polls: n}
		}
		runtime.Gosched()
	}
	return nil
}

// ReadTime implements Source.
func (c *Clock) ReadTime() (Time, error) {
	if err := c.wait(CondSync, c.regs.Synchronized); err != nil {
		return 0, err
	}
	return Time(c.regs.Time()).Truncate(), nil
}

// CommitTime implements Source.  Besides the time, it reprograms the prescaler and the calibration
// register, which is idempotent.
func (c *Clock) CommitTime(t Time) error {
	c.regs.Unlock()
	defer c.regs.Lock()
	if err := c.wait(CondUnlock, c.regs.Unlocked); err != nil {
		return fmt.Errorf("commit %v: %w", t, err)
	}

	c.regs.EnterInit()
	if err := c.wait(CondInit, c.regs.InitReady); err != nil {
		c.regs.ExitInit()
		return fmt.Errorf("commit %v: %w", t, err)
	}
	c.regs.SetPrescaler(PrescalerAsync, PrescalerSync)
	c.regs.SetTime(uint32(t))
	c.regs.ExitInit()

	if err := c.wait(CondRecal, func() bool { return !c.regs.RecalPending() }); err != nil {
		return fmt.Errorf("commit %v: calibrate: %w", t, err)
	}
	c.regs.SetCalibration(Calibration)
	return nil
}
