package adb

// A virtual-time simulation of the open-drain ADB line. The host side is
// scripted as a list of timed drive/release edges; the device side (the
// code under test) drives through the LineDriver interface and every
// transition is recorded. Time only advances when the code under test
// waits, measures, or delays, so tests are exact and instantaneous.

type hostEdge struct {
	at  uint32 // virtual µs at which the host line state changes
	low bool   // host drives low starting at this instant
}

type deviceDrive struct {
	at  uint32
	low bool
}

type simLine struct {
	now    uint32
	edges  []hostEdge
	devLow bool
	drives []deviceDrive
}

func newSimLine(edges []hostEdge) *simLine {
	return &simLine{edges: edges}
}

// hostLowAt returns whether the scripted host is driving low at time t.
func (s *simLine) hostLowAt(t uint32) bool {
	low := false
	for _, e := range s.edges {
		if e.at > t {
			break
		}
		low = e.low
	}
	return low
}

// highAt combines host and device: the line is high only when nobody
// pulls it low.
func (s *simLine) highAt(t uint32) bool {
	return !s.hostLowAt(t) && !s.devLow
}

// nextChange returns the next instant strictly after t at which the host
// state changes, or ok=false if the script is exhausted.
func (s *simLine) nextChange(t uint32) (uint32, bool) {
	for _, e := range s.edges {
		if e.at > t {
			return e.at, true
		}
	}
	return 0, false
}

func (s *simLine) DriveLow() {
	s.drives = append(s.drives, deviceDrive{at: s.now, low: true})
	s.devLow = true
}

func (s *simLine) Release() {
	s.drives = append(s.drives, deviceDrive{at: s.now, low: false})
	s.devLow = false
}

func (s *simLine) ReadPin() bool {
	return s.highAt(s.now)
}

func (s *simLine) Now() uint32 {
	return s.now
}

func (s *simLine) Delay(us uint32) {
	s.now += us
}

func (s *simLine) WaitForState(high bool, timeoutUS uint32) uint32 {
	deadline := s.now + timeoutUS
	t := s.now
	for {
		if s.highAt(t) == high {
			elapsed := t - s.now
			s.now = t
			if elapsed == 0 {
				// Real drivers never observe a zero elapsed time: the
				// counter advances during the call itself.
				return 1
			}
			return elapsed
		}
		next, ok := s.nextChange(t)
		if !ok || next >= deadline {
			s.now = deadline
			return 0
		}
		t = next
	}
}

func (s *simLine) MeasurePulse(high bool, timeoutUS uint32) uint32 {
	if s.highAt(s.now) != high {
		return 0
	}
	deadline := s.now + timeoutUS
	t := s.now
	for {
		next, ok := s.nextChange(t)
		if !ok || next >= deadline {
			elapsed := deadline - s.now
			s.now = deadline
			return elapsed
		}
		if s.highAt(next) != high {
			elapsed := next - s.now
			s.now = next
			return elapsed
		}
		t = next
	}
}

// ─── Host waveform builder ──────────────────────────────────────────────────

// wave scripts the host side of a bus exchange.
type wave struct {
	edges []hostEdge
	t     uint32
}

// newWave starts with the line idle (high) for the given lead-in.
func newWave(leadInUS uint32) *wave {
	return &wave{t: leadInUS}
}

func (w *wave) low(us uint32) *wave {
	w.edges = append(w.edges, hostEdge{at: w.t, low: true})
	w.t += us
	w.edges = append(w.edges, hostEdge{at: w.t, low: false})
	return w
}

func (w *wave) idle(us uint32) *wave {
	w.t += us
	return w
}

func (w *wave) bit(b uint8) *wave {
	if b != 0 {
		w.low(Bit1LowUS).idle(Bit1HighUS)
	} else {
		w.low(Bit0LowUS).idle(Bit0HighUS)
	}
	return w
}

func (w *wave) byte(v uint8) *wave {
	for i := 7; i >= 0; i-- {
		w.bit((v >> uint(i)) & 1)
	}
	return w
}

// command scripts attention + sync + command byte + stop-bit low. The stop
// bit's high phase is the trailing idle.
func (w *wave) command(addr, cmd, reg uint8) *wave {
	b := (addr&0x0F)<<4 | (cmd&0x03)<<2 | (reg & 0x03)
	w.low(AttnNominalUS) // attention
	w.idle(70)           // sync high
	w.byte(b)            // command byte
	w.low(StopLowUS)     // stop bit low phase
	return w
}

// data16 scripts a host data word (Listen payload): start bit, 16 bits,
// stop bit.
func (w *wave) data16(v uint16) *wave {
	w.bit(1)
	for i := 15; i >= 0; i-- {
		w.bit(uint8((v >> uint(i)) & 1))
	}
	w.bit(0)
	return w
}

func (w *wave) build() *simLine {
	return newSimLine(w.edges)
}

// lastLowStart returns the time the last scripted low pulse began
// (useful for checking SRQ and Tlt against the command stop bit).
func (w *wave) lastLowStart() uint32 {
	for i := len(w.edges) - 1; i >= 0; i-- {
		if w.edges[i].low {
			return w.edges[i].at
		}
	}
	return 0
}

// ─── Device transmission decoding ───────────────────────────────────────────

// lowPulse is one decoded device-driven low phase.
type lowPulse struct {
	start, dur uint32
}

func devicePulses(s *simLine) []lowPulse {
	var pulses []lowPulse
	var start uint32
	active := false
	for _, d := range s.drives {
		if d.low && !active {
			start = d.at
			active = true
		} else if !d.low && active {
			pulses = append(pulses, lowPulse{start: start, dur: d.at - start})
			active = false
		}
	}
	return pulses
}

// decodeDeviceWord decodes a recorded device transmission as
// start bit + 16 data bits + stop bit. Returns ok=false when the framing
// is wrong.
func decodeDeviceWord(s *simLine) (uint16, bool) {
	pulses := devicePulses(s)
	if len(pulses) != 18 {
		return 0, false
	}
	bitOf := func(p lowPulse) uint8 {
		if p.dur < BitThresholdUS {
			return 1
		}
		return 0
	}
	if bitOf(pulses[0]) != 1 { // start bit
		return 0, false
	}
	if bitOf(pulses[17]) != 0 { // stop bit
		return 0, false
	}
	var data uint16
	for i := 0; i < 16; i++ {
		data = data<<1 | uint16(bitOf(pulses[i+1]))
	}
	return data, true
}
