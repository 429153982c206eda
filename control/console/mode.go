package console

import (
	"fmt"

	"github.com/jrockway/console-clock/control/rtc"
)

// Phase is the coarse state of the console.
type Phase int

const (
	// Idle prints the time once per second and waits for the button.
	Idle Phase = iota
	// PromptDigit asks for one digit of the new time and waits for it.
	PromptDigit
	// Commit writes the entered time to the clock.
	Commit
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case PromptDigit:
		return "PromptDigit"
	case Commit:
		return "Commit"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Mode is the full state of the console.  Slot and Prompted are only meaningful in PromptDigit.
type Mode struct {
	Phase    Phase
	Slot     rtc.Slot
	Prompted bool // The prompt for Slot has been queued for transmission.
}

func (m Mode) String() string {
	if m.Phase != PromptDigit {
		return m.Phase.String()
	}
	if m.Prompted {
		return fmt.Sprintf("PromptDigit(%d) awaiting %v", int(m.Slot), m.Slot)
	}
	return fmt.Sprintf("PromptDigit(%d)", int(m.Slot))
}

// prompts are sent, in slot order, before each digit is accepted.
var prompts = [rtc.Slots][]byte{
	[]byte("\nSend hour tens\n"),
	[]byte("\nSend hour units\n"),
	[]byte("\nSend minute tens\n"),
	[]byte("\nSend minute units\n"),
	[]byte("\nSend second tens\n"),
	[]byte("\nSend second units\n"),
}

const (
	// initialFrame is the time frame before the first tick fills it in.
	initialFrame = "\n00 : 00 : 00 "
	// placeholder replaces the time frame when a new time is committed.  The next tick writes
	// digits over it and keeps the trailing spaces.
	placeholder = "\n-- : -- : --      "
)

// frameOffsets are the positions in the time frame of each slot's digit.
var frameOffsets = [rtc.Slots]int{1, 2, 6, 7, 11, 12}
