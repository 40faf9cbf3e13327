package hid

// DeviceKind is the slot a peer belongs to.
type DeviceKind uint8

const (
	KindUnknown DeviceKind = iota
	KindKeyboard
	KindMouse
)

func (k DeviceKind) String() string {
	switch k {
	case KindKeyboard:
		return "keyboard"
	case KindMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// Classify decides what kind of HID device a discovered service belongs
// to. Boot Protocol characteristics are checked first (most reliable);
// otherwise the Report Map is scanned for a top-level usage. A device that
// reveals nothing is treated as a keyboard — the recoverable default: a
// mouse misfiled as a keyboard produces no events, while a keyboard
// misfiled as a mouse would mangle its reports into deltas.
func Classify(svc Service) DeviceKind {
	if _, ok := svc.Characteristic(CharBootKeyboardInput); ok {
		return KindKeyboard
	}
	if _, ok := svc.Characteristic(CharBootMouseInput); ok {
		return KindMouse
	}

	if rm, ok := svc.Characteristic(CharReportMap); ok {
		if data, err := rm.Read(); err == nil {
			if kind := scanReportMap(data); kind != KindUnknown {
				return kind
			}
		}
	}

	return KindKeyboard
}

// scanReportMap looks for the two-item sequence
// [Usage Page = Generic Desktop][Usage = x] (bytes 05 01 09 xx) and maps
// usage 0x06 to keyboard, 0x02 to mouse. Deliberately a minimal scanner,
// not a descriptor parser; Boot characteristics are preferred whenever a
// device exposes them.
func scanReportMap(d []byte) DeviceKind {
	kind := KindUnknown
	for i := 0; i+3 < len(d); i++ {
		if d[i] != 0x05 || d[i+1] != 0x01 || d[i+2] != 0x09 {
			continue
		}
		switch d[i+3] {
		case 0x06:
			if kind == KindUnknown {
				kind = KindKeyboard
			}
		case 0x02:
			if kind == KindUnknown {
				kind = KindMouse
			}
		}
	}
	return kind
}
