package console

import "sync/atomic"

// The types in this file are the only state shared between interrupt context (alarm, button and
// UART callbacks) and the polling loop.  Each has exactly one writer per side and no locks.

// flag is a one-bit event latch.  Raising an already raised flag coalesces the two events.
type flag struct {
	v atomic.Bool
}

// raise sets the flag and reports whether it was already set.
func (f *flag) raise() (coalesced bool) { return f.v.Swap(true) }

// take clears the flag and reports whether it was set.
func (f *flag) take() bool { return f.v.Swap(false) }

func (f *flag) raised() bool { return f.v.Load() }

const fresh = 1 << 8

// mailbox holds the last received byte.  It has room for exactly one: a second put before the take
// overwrites the first.
type mailbox struct {
	v atomic.Uint32 // byte in the low 8 bits, fresh bit above
}

// put stores b and reports whether an unread byte was overwritten.
func (m *mailbox) put(b byte) (overwrote bool) {
	return m.v.Swap(uint32(b)|fresh)&fresh != 0
}

// take empties the mailbox.
func (m *mailbox) take() (b byte, ok bool) {
	v := m.v.Swap(0)
	return byte(v), v&fresh != 0
}

// Transmitter is a transmit data register: Transmit must not block, and the owner of the register
// calls TransmitComplete on the machine once the byte has gone out.
type Transmitter interface {
	Transmit(b byte)
}

// outbox is the message being transmitted.  The poll side fills it while it is empty; the interrupt
// side feeds it to the transmitter one byte per transmit-complete notification.
type outbox struct {
	buf    []byte
	cursor atomic.Int32 // index of the next byte to load; 0 when idle
}

func (o *outbox) busy() bool { return o.cursor.Load() != 0 }

// start begins transmitting msg.  Only call it from the poll side while !busy().
func (o *outbox) start(msg []byte, tx Transmitter) {
	if len(msg) == 0 {
		return
	}
	o.buf = append(o.buf[:0], msg...)
	o.cursor.Store(1)
	tx.Transmit(o.buf[0])
}

// advance handles one transmit-complete notification: it loads the next byte, or marks the outbox
// idle after the last one.  Spurious notifications are ignored.
func (o *outbox) advance(tx Transmitter) {
	c := o.cursor.Load()
	switch {
	case c == 0:
	case int(c) >= len(o.buf):
		o.cursor.Store(0)
	default:
		o.cursor.Store(c + 1)
		tx.Transmit(o.buf[c])
	}
}
