package adb

import "adbridge/events"

// Mouse emulates a standard 100 cpi single-button ADB mouse (default
// address 3). Deltas accumulate between host polls; each Talk R0 reports
// a 7-bit clamped chunk and carries the remainder forward, so no motion
// is lost to a slow poll rate.
type Mouse struct {
	address uint8
	handler uint8

	accumDX int16
	accumDY int16

	// ADB reports the button as 1=released, 0=pressed (inverted from USB).
	buttonPressed bool
	buttonChanged bool

	queue *events.Queue[events.MouseEvent]
}

// NewMouse creates a mouse emulator draining the given queue.
func NewMouse(queue *events.Queue[events.MouseEvent]) *Mouse {
	m := &Mouse{queue: queue}
	m.HandleReset()
	return m
}

// clamp7 clamps a value to the 7-bit signed range (-64 to +63).
func clamp7(v int16) int8 {
	if v > 63 {
		return 63
	}
	if v < -64 {
		return -64
	}
	return int8(v)
}

// ProcessQueue accumulates pending deltas and latches button edges.
// Runs in the bus loop context only.
func (m *Mouse) ProcessQueue() {
	for {
		evt, ok := m.queue.Pop()
		if !ok {
			return
		}
		m.accumDX += evt.DX
		m.accumDY += evt.DY

		if evt.Button != m.buttonPressed {
			m.buttonPressed = evt.Button
			m.buttonChanged = true
		}
	}
}

// HandleTalk implements the mouse's Talk registers.
func (m *Mouse) HandleTalk(reg uint8) (uint16, bool) {
	switch reg {
	case 0:
		m.ProcessQueue()

		if m.accumDX == 0 && m.accumDY == 0 && !m.buttonChanged {
			return 0, false
		}

		dx := clamp7(m.accumDX)
		dy := clamp7(m.accumDY)

		// Subtract what we're reporting; the remainder carries forward
		m.accumDX -= int16(dx)
		m.accumDY -= int16(dy)
		m.buttonChanged = false

		// Byte 0: [button][Y6..Y0] — button: 1=released, 0=pressed
		// Byte 1: [1][X6..X0]      — bit 7 always 1 (2nd button released)
		buttonBit := uint8(0x80)
		if m.buttonPressed {
			buttonBit = 0
		}
		b0 := buttonBit | (uint8(dy) & 0x7F)
		b1 := 0x80 | (uint8(dx) & 0x7F)

		return uint16(b0)<<8 | uint16(b1), true

	case 3:
		return register3(m.address, m.handler), true

	default:
		return 0, false
	}
}

// HandleListen implements the mouse's Listen registers. Only R3
// (enumeration) is writable on a mouse.
func (m *Mouse) HandleListen(reg uint8, data uint16) {
	if reg == 3 {
		applyListen3(data, &m.address, &m.handler)
	}
}

// HandleFlush zeroes the accumulators and the button edge; the button
// state itself is preserved.
func (m *Mouse) HandleFlush() {
	m.accumDX = 0
	m.accumDY = 0
	m.buttonChanged = false
}

// HandleReset restores power-on defaults.
func (m *Mouse) HandleReset() {
	m.address = AddrMouse
	m.handler = HandlerMouse
	m.accumDX = 0
	m.accumDY = 0
	m.buttonPressed = false
	m.buttonChanged = false
}

// HasData reports pending motion, a button edge, or queued samples for
// SRQ arbitration.
func (m *Mouse) HasData() bool {
	return m.accumDX != 0 || m.accumDY != 0 || m.buttonChanged || m.queue.Pending()
}

// Address returns the current bus address.
func (m *Mouse) Address() uint8 {
	return m.address
}

// Handler returns the current handler ID.
func (m *Mouse) Handler() uint8 {
	return m.handler
}
