package adb

// ADB protocol timing, all in microseconds.
// Reference: Apple ADB spec; tolerances follow the lopaciuk.eu writeup.
const (
	// Attention signal from host
	AttnMinUS     = 560  // min attention duration
	AttnMaxUS     = 1040 // max attention duration
	AttnNominalUS = 800  // typical attention

	// Sync signal (high after attention)
	SyncMinUS     = 50 // min sync high
	SyncNominalUS = 65 // typical sync high

	// Bit cell timing
	BitCellUS      = 100 // total bit cell
	Bit0LowUS      = 65  // '0' bit: 65µs low, 35µs high
	Bit0HighUS     = 35  // '0' bit: 35µs high
	Bit1LowUS      = 35  // '1' bit: 35µs low, 65µs high
	Bit1HighUS     = 65  // '1' bit: 65µs high
	BitThresholdUS = 50  // <50µs low = '1', >=50µs low = '0'

	// Stop bit
	StopLowUS     = 65 // stop bit low (same as '0')
	StopHighMinUS = 35 // minimum stop bit high

	// Service Request — device extends the stop-bit low phase
	SRQLowUS = 300

	// Device response timing
	TltUS    = 200 // Stop-to-Start time (Tlt)
	TltMaxUS = 260 // max Tlt before host gives up

	// Global reset
	ResetMinUS = 2800 // >=2800µs low = global reset

	// Timing tolerance on bit reads
	ToleranceUS = 15
)

// Default device addresses.
const (
	AddrKeyboard = 2
	AddrMouse    = 3
)

// Handler IDs.
const (
	HandlerKeyboard = 2 // Apple Extended Keyboard
	HandlerMouse    = 2 // standard 100 cpi mouse (not 4 — that's extended)
)

// Register 3 address sentinels: neither value changes the stored address
// or handler during enumeration.
const (
	AddrSentinelZero = 0x00
	AddrSentinelFE   = 0xFE
)
