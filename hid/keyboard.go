package hid

import "adbridge/events"

// BootKeyboardReportLen is the minimum keyboard report the parser accepts:
// modifier byte, reserved byte, six key usages. Shorter reports (consumer
// control pages, vendor noise) are counted and dropped.
const BootKeyboardReportLen = 8

// keyboardState diffs successive boot-keyboard reports into discrete key
// events. One instance per connected keyboard; all fields are owned by the
// notification callback context.
type keyboardState struct {
	prevMods uint8
	prevKeys [6]uint8
}

// zero forgets all held keys. Called on disconnect so a reconnect cannot
// leave stuck keys on the host.
func (ks *keyboardState) zero() {
	ks.prevMods = 0
	ks.prevKeys = [6]uint8{}
}

// parse diffs a report against the previous one and emits one KeyEvent per
// changed key. Returns false when the report is too short to be a
// boot-keyboard report.
func (ks *keyboardState) parse(report []byte, emit func(events.KeyEvent)) bool {
	if len(report) < BootKeyboardReportLen {
		return false
	}

	modifiers := report[0]

	// Modifier changes: one event per toggled bit
	if diff := modifiers ^ ks.prevMods; diff != 0 {
		for _, m := range ModifierMap {
			if diff&m.USBMask != 0 {
				emit(events.KeyEvent{
					Keycode:  m.Keycode,
					Released: modifiers&m.USBMask == 0,
				})
			}
		}
		ks.prevMods = modifiers
	}

	// Releases: keys held before but absent now
	for _, prev := range ks.prevKeys {
		if prev == 0 {
			continue
		}
		still := false
		for _, cur := range report[2:8] {
			if cur == prev {
				still = true
				break
			}
		}
		if !still {
			if code := USBToADB(prev); code != KeyNone {
				emit(events.KeyEvent{Keycode: code, Released: true})
			}
		}
	}

	// Presses: keys present now but not held before
	for _, cur := range report[2:8] {
		if cur == 0 {
			continue
		}
		was := false
		for _, prev := range ks.prevKeys {
			if prev == cur {
				was = true
				break
			}
		}
		if !was {
			if code := USBToADB(cur); code != KeyNone {
				emit(events.KeyEvent{Keycode: code, Released: false})
			}
		}
	}

	copy(ks.prevKeys[:], report[2:8])
	return true
}
