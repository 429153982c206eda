// Package console implements the serial time-setting console: it prints the time once per second,
// and after a button press prompts for six digits and commits them to the real-time clock.
//
// Interrupt context (the alarm, the button and the UART) only ever calls Tick, Press, Receive and
// TransmitComplete.  Everything else happens in Poll, which must be called from a single goroutine.
package console

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jrockway/console-clock/control/rtc"
	"github.com/jrockway/console-clock/control/segment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

var (
	ticksCoalescedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_ticks_coalesced_total",
		Help: "alarm ticks that arrived while an earlier tick was still pending",
	})
	bytesOverwrittenCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_bytes_overwritten_total",
		Help: "received bytes replaced by a newer byte before being read",
	})
	pressesIgnoredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_presses_ignored_total",
		Help: "button presses dropped because a transmission was in progress or an edit was underway",
	})
	staleBytesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_stale_bytes_total",
		Help: "received bytes discarded because no digit was being asked for",
	})
	commitsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_commits_total",
		Help: "times committed to the real-time clock",
	})
	commitsClampedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_commits_clamped_total",
		Help: "entered times above 23:59:59 that were replaced with midnight",
	})
	commitEventsDroppedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_commit_log_dropped_total",
		Help: "commit events dropped because nobody was reading CommitCh",
	})
)

// Display shows a three-digit value and a bar graph level.
type Display interface {
	Show(value uint16, level uint8) error
}

// CommitEvent describes one commit.
type CommitEvent struct {
	At        time.Time
	Requested rtc.Time // The digits as entered.
	Committed rtc.Time // What was written to the clock.
	Clamped   bool
	Err       error
}

// Status is a snapshot of the console for debugging.
type Status struct {
	Mode       Mode
	Pending    rtc.Time
	Frame      string
	Shown      uint16
	Level      uint8
	LastCommit *CommitEvent
}

// Machine is the console state machine.
type Machine struct {
	// CommitCh receives an event after every commit.  Sends never block; if the channel is full
	// the event is dropped.
	CommitCh chan CommitEvent

	src     rtc.Source
	tx      Transmitter
	display Display
	events  trace.EventLog

	// Shared with interrupt context.
	tick   flag
	button flag
	rx     mailbox
	out    outbox

	// Owned by Poll.
	mode    Mode
	pending rtc.Time
	frame   []byte
	shown   uint16
	level   uint8
	last    *CommitEvent

	// placeholderPending is set when a commit happens while the outbox is still busy; the placeholder
	// goes out before anything else once it drains.
	placeholderPending bool

	statusMu sync.Mutex
	status   Status // must hold statusMu to read or write.
}

// New returns a Machine in Idle with a tick already pending, so that the first Poll prints the time.
// display may be nil.
func New(name string, src rtc.Source, tx Transmitter, display Display) *Machine {
	m := &Machine{
		CommitCh: make(chan CommitEvent, 16),
		src:      src,
		tx:       tx,
		display:  display,
		events:   trace.NewEventLog("console", name),
		frame:    []byte(initialFrame),
	}
	m.tick.raise()
	m.publish()
	return m
}

// Tick is called from the once-per-second alarm.
func (m *Machine) Tick() {
	if m.tick.raise() {
		ticksCoalescedCounter.Inc()
	}
}

// Press is called when the button is pressed.
func (m *Machine) Press() {
	m.button.raise()
}

// Receive is called with each byte received by the UART.
func (m *Machine) Receive(b byte) {
	if m.rx.put(b) {
		bytesOverwrittenCounter.Inc()
	}
}

// TransmitComplete is called when the UART has finished sending the last byte passed to Transmit.
func (m *Machine) TransmitComplete() {
	m.out.advance(m.tx)
}

// Mode returns the current mode.  Only call it from the polling goroutine.
func (m *Machine) Mode() Mode { return m.mode }

// Status returns a snapshot of the console's state, safe to call from any goroutine.
func (m *Machine) Status() Status {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

func (m *Machine) publish() {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.status = Status{
		Mode:       m.mode,
		Pending:    m.pending,
		Frame:      string(m.frame),
		Shown:      m.shown,
		Level:      m.level,
		LastCommit: m.last,
	}
}

func (m *Machine) setMode(next Mode) {
	m.events.Printf("%v -> %v", m.mode, next)
	m.mode = next
	m.publish()
}

func (m *Machine) show(value uint16, level uint8) {
	m.shown, m.level = value, level
	if m.display == nil {
		return
	}
	if err := m.display.Show(value, level); err != nil {
		m.events.Errorf("show %03d/%d: %v", value, level, err)
	}
}

// Poll performs one step of the state machine.
func (m *Machine) Poll() error {
	switch m.mode.Phase {
	case Idle:
		return m.pollIdle()
	case PromptDigit:
		if m.button.take() {
			pressesIgnoredCounter.Inc()
		}
		m.pollDigit()
		return nil
	case Commit:
		if m.button.take() {
			pressesIgnoredCounter.Inc()
		}
		return m.commit()
	}
	return fmt.Errorf("unknown mode %v", m.mode)
}

func (m *Machine) pollIdle() error {
	if b, ok := m.rx.take(); ok {
		staleBytesCounter.Inc()
		m.events.Printf("discarding stale byte %q", b)
	}
	if m.placeholderPending && !m.out.busy() {
		m.placeholderPending = false
		m.out.start(m.frame, m.tx)
		return nil
	}
	if m.button.take() {
		if m.out.busy() {
			pressesIgnoredCounter.Inc()
			m.events.Printf("button press ignored: transmission in progress")
			return nil
		}
		m.setMode(Mode{Phase: PromptDigit, Slot: rtc.HourTens})
		return nil
	}
	if !m.tick.raised() || m.out.busy() {
		return nil
	}
	m.tick.take()
	t, err := m.src.ReadTime()
	if err != nil {
		return fmt.Errorf("read time: %w", err)
	}
	for s, off := range frameOffsets {
		m.frame[off] = '0' + t.Digit(rtc.Slot(s))
	}
	m.out.start(m.frame, m.tx)
	m.show(liveValue(t), uint8(t.Hour()/3))
	m.publish()
	return nil
}

func (m *Machine) pollDigit() {
	slot := m.mode.Slot
	if !m.mode.Prompted {
		if m.out.busy() {
			return
		}
		m.out.start(prompts[slot], m.tx)
		m.setMode(Mode{Phase: PromptDigit, Slot: slot, Prompted: true})
		return
	}
	b, ok := m.rx.take()
	if !ok {
		return
	}
	// Anything that isn't a digit is accepted as the unsigned difference from '0'.
	m.pending = m.pending.With(slot, b-'0')
	m.show(editValue(m.pending, slot), uint8(slot)+1)
	if slot == rtc.SecondUnits {
		m.setMode(Mode{Phase: Commit})
		return
	}
	m.setMode(Mode{Phase: PromptDigit, Slot: slot + 1})
}

func (m *Machine) commit() error {
	ev := CommitEvent{
		At:        time.Now(),
		Requested: m.pending,
		Committed: m.pending,
	}
	if ev.Committed > rtc.Max {
		ev.Committed = 0
		ev.Clamped = true
		commitsClampedCounter.Inc()
	}
	ev.Err = m.src.CommitTime(ev.Committed)
	commitsCounter.Inc()
	m.events.Printf("commit %v (entered 0x%06x): err=%v", ev.Committed, uint32(ev.Requested), ev.Err)

	m.pending = 0
	m.frame = append(m.frame[:0], placeholder...)
	if m.out.busy() {
		m.placeholderPending = true
	} else {
		m.out.start(m.frame, m.tx)
	}
	m.show(liveValue(ev.Committed), segment.MaxLevel)
	m.last = &ev
	m.setMode(Mode{Phase: Idle})

	select {
	case m.CommitCh <- ev:
	default:
		commitEventsDroppedCounter.Inc()
	}
	if ev.Err != nil {
		return fmt.Errorf("commit %v: %w", ev.Committed, ev.Err)
	}
	return nil
}

// Run calls Poll every interval until the context is cancelled.  Errors from Poll are logged and do
// not stop the loop.
func (m *Machine) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := m.Poll(); err != nil {
			m.events.Errorf("poll: %v", err)
			log.Printf("console: %v", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("polling console: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Close releases the event log.
func (m *Machine) Close() {
	m.events.Finish()
}

// liveValue is what the display shows while idle: the minute units and both second digits.
func liveValue(t rtc.Time) uint16 {
	return uint16(t.Digit(rtc.MinuteUnits))*100 + uint16(t.Digit(rtc.SecondTens))*10 + uint16(t.Digit(rtc.SecondUnits))
}

// editValue is what the display shows while a digit is being entered: the field number (1 for
// hours, 2 for minutes, 3 for seconds) followed by the two digits of that field.
func editValue(t rtc.Time, s rtc.Slot) uint16 {
	tens := s &^ 1
	return uint16(tens/2+1)*100 + uint16(t.Digit(tens))*10 + uint16(t.Digit(tens+1))
}
