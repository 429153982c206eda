package rtc

import (
	"sync"
	"time"
)

// LSI is the frequency of the low-speed internal oscillator that clocks the simulated block.
const LSI = 40000

// Reset values of PRER.
const (
	resetAsync = 127
	resetSync  = 255
)

// Sim is a software model of the RTC registers, clocked from the host's clock.  The calendar
// advances at LSI / (async+1) / (sync+1) seconds per second, so it only keeps real time after a
// commit has programmed the 1 Hz prescaler.  Calibration is stored but does not change the rate.
type Sim struct {
	mu  sync.Mutex
	now func() time.Time

	unlocked, init bool
	initPolls      int
	stalled        map[string]bool

	tr          uint32
	setAt       time.Time
	async, sync uint16
	calr        uint32

	// InitDelay is the number of InitReady polls that report false after each EnterInit.
	InitDelay int
	commits   int
}

// NewSim returns registers at their reset values: time 00:00:00, write protected, reset prescaler.
// now defaults to time.Now.
func NewSim(now func() time.Time) *Sim {
	if now == nil {
		now = time.Now
	}
	return &Sim{
		now:     now,
		setAt:   now(),
		async:   resetAsync,
		sync:    resetSync,
		stalled: make(map[string]bool),
	}
}

// Stall makes one of the Cond* readiness conditions never become true.
func (s *Sim) Stall(cond string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalled[cond] = true
}

func (s *Sim) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked = true
}

func (s *Sim) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked && !s.stalled[CondUnlock]
}

func (s *Sim) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked = false
}

func (s *Sim) EnterInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return
	}
	s.init = true
	s.initPolls = 0
}

func (s *Sim) InitReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.init || s.stalled[CondInit] {
		return false
	}
	s.initPolls++
	return s.initPolls > s.InitDelay
}

func (s *Sim) ExitInit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.init {
		s.setAt = s.now()
	}
	s.init = false
}

func (s *Sim) SetPrescaler(async, sync uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writable() {
		s.async, s.sync = async, sync
	}
}

func (s *Sim) SetTime(tr uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writable() {
		s.tr = uint32(Time(tr).Truncate())
		s.commits++
	}
}

// writable reports whether calendar registers accept writes.  Must hold mu.
func (s *Sim) writable() bool { return s.unlocked && s.init && s.initPolls > s.InitDelay }

func (s *Sim) RecalPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalled[CondRecal]
}

func (s *Sim) SetCalibration(calr uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unlocked {
		s.calr = calr
	}
}

func (s *Sim) Synchronized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.init && !s.stalled[CondSync]
}

func (s *Sim) Time() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	hz := float64(LSI) / float64(int(s.async)+1) / float64(int(s.sync)+1)
	elapsed := int(s.now().Sub(s.setAt).Seconds() * hz)
	if elapsed == 0 {
		return s.tr
	}
	return uint32(FromSeconds(Time(s.tr).SecondsOfDay() + elapsed))
}

// Prescaler returns the programmed PRER values.
func (s *Sim) Prescaler() (async, sync uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.async, s.sync
}

// Calibration returns the programmed CALR value.
func (s *Sim) Calibration() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calr
}

// Commits returns the number of accepted time writes.
func (s *Sim) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}
