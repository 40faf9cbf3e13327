package hid

// USB HID Usage Page 0x07 → 7-bit ADB keycode translation, following the
// QuokkADB mapping. KeyNone marks usages with no ADB equivalent.

// KeyNone means no valid ADB keycode (unmapped USB usage).
const KeyNone = 0xFF

// ADB keycodes for the modifier keys. The right-hand keys use the ADB
// wire scan codes 0x7B-0x7D — NOT the arrow-key codes 0x3C-0x3E that some
// tables confuse them with.
const (
	KeyLeftCtrl   = 0x36
	KeyLeftShift  = 0x38
	KeyLeftAlt    = 0x3A // Option
	KeyLeftGui    = 0x37 // Command
	KeyRightCtrl  = 0x7D // wire scan code (NOT 0x3E, Up Arrow)
	KeyRightShift = 0x7B // wire scan code (NOT 0x3C, Right Arrow)
	KeyRightAlt   = 0x7C // wire scan code (NOT 0x3D, Down Arrow)
	KeyRightGui   = 0x37 // Command, same as left on classic Macs
)

// USB boot-report modifier byte bit positions.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGui    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGui   = 0x80
)

// ModifierMapping ties one USB modifier bit to its ADB keycode.
type ModifierMapping struct {
	USBMask uint8
	Keycode uint8
}

// ModifierMap is indexed by bit position in the USB modifier byte.
var ModifierMap = [8]ModifierMapping{
	{ModLeftCtrl, KeyLeftCtrl},
	{ModLeftShift, KeyLeftShift},
	{ModLeftAlt, KeyLeftAlt},
	{ModLeftGui, KeyLeftGui},
	{ModRightCtrl, KeyRightCtrl},
	{ModRightShift, KeyRightShift},
	{ModRightAlt, KeyRightAlt},
	{ModRightGui, KeyRightGui},
}

// usbToADB maps USB HID keyboard usages (0x00-0xFF) to ADB keycodes.
var usbToADB = [256]uint8{
	// 0x00-0x03: reserved / error rollover
	0xFF, 0xFF, 0xFF, 0xFF,
	// 0x04-0x1D: A-Z
	0x00, 0x0B, 0x08, 0x02, 0x0E, 0x03, 0x05, 0x04, // A B C D E F G H
	0x22, 0x26, 0x28, 0x25, 0x2E, 0x2D, 0x1F, 0x23, // I J K L M N O P
	0x0C, 0x0F, 0x01, 0x11, 0x20, 0x09, 0x0D, 0x07, // Q R S T U V W X
	0x10, 0x06, // Y Z
	// 0x1E-0x27: 1-9, 0
	0x12, 0x13, 0x14, 0x15, 0x17, 0x16, 0x1A, 0x1C, // 1 2 3 4 5 6 7 8
	0x19, 0x1D, // 9 0
	// 0x28-0x38: Enter Esc Bksp Tab Space - = [ ] \ # ; ' ` , . /
	0x24, 0x35, 0x33, 0x30, 0x31, 0x1B, 0x18, 0x21,
	0x1E, 0x2A, 0x2A, 0x29, 0x27, 0x32, 0x2B, 0x2F,
	0x2C,
	// 0x39: Caps Lock
	0x39,
	// 0x3A-0x45: F1-F12
	0x7A, 0x78, 0x63, 0x76, 0x60, 0x61, 0x62, 0x64,
	0x65, 0x6D, 0x67, 0x6F,
	// 0x46-0x4E: PrtScn ScrLk Pause Ins Home PgUp Del End PgDn
	0x69, 0x6B, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77,
	0x79,
	// 0x4F-0x52: Right Left Down Up
	0x3C, 0x3B, 0x3D, 0x3E,
	// 0x53-0x63: NumLock(Clear) KP/ KP* KP- KP+ KPEnter KP1-KP9 KP0 KP.
	0x47, 0x4B, 0x43, 0x4E, 0x45, 0x4C, 0x53, 0x54,
	0x55, 0x56, 0x57, 0x58, 0x59, 0x5B, 0x5C, 0x52,
	0x41,
	// 0x64: Non-US \ (ISO section), 0x65: Application, 0x66: Power, 0x67: KP=
	0x0A, 0xFF, 0x7F, 0x51,
	// 0x68-0x6A: F13-F15
	0x69, 0x6B, 0x71,
	// 0x6B-0x6F: F16-F20
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0x70-0x7F
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0x80-0x86
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0x87: International1 (JIS Ro/underscore), 0x88: International2
	0x5E, 0xFF,
	// 0x89: International3 (JIS Yen)
	0x5D,
	// 0x8A-0x8F
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0x90: Lang1 (JIS Kana), 0x91: Lang2 (JIS Eisu)
	0x68, 0x66,
	// 0x92-0x9F
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0xA0-0xAF
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0xB0-0xBF
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0xC0-0xCF
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0xD0-0xDF
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	// 0xE0-0xE7: modifiers (also arrive as usages on some devices)
	KeyLeftCtrl, KeyLeftShift, KeyLeftAlt, KeyLeftGui,
	KeyRightCtrl, KeyRightShift, KeyRightAlt, KeyRightGui,
	// 0xE8-0xFF
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// USBToADB translates a USB HID keyboard usage to its ADB keycode, or
// KeyNone when the usage has no mapping.
func USBToADB(usage uint8) uint8 {
	return usbToADB[usage]
}
