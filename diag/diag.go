// Package diag holds the bridge's diagnostic surface: a pluggable debug
// writer, atomic activity counters, and a small post-mortem ring of bus
// events. Counters are written by one execution context and read by any
// other; they are not synchronization primitives.
package diag

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active.
	// Disabled by default; never enable it on the ADB core.
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function.
// This allows targets to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// Println writes a debug message using the platform-specific writer.
func Println(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// Counters is the set of bridge activity counters. One writer per field;
// everything is readable from any context.
type Counters struct {
	AdbPolls      atomic.Uint32 // commands seen on the bus
	TalkResponses atomic.Uint32 // Talk responses actually transmitted
	GlobalResets  atomic.Uint32 // >=2800µs low pulses
	FrameErrors   atomic.Uint32 // malformed/timed-out receives

	KbdCallbacks   atomic.Uint32 // keyboard notification callbacks
	KbdUsed        atomic.Uint32 // keyboard reports that passed the length filter
	KbdDropped     atomic.Uint32 // keyboard reports rejected by the length filter
	MouseCallbacks atomic.Uint32 // mouse notification callbacks

	KbdQueueDrops   atomic.Uint32 // key events lost to a full queue
	MouseQueueDrops atomic.Uint32 // mouse events lost to a full queue

	KbdLastMS   atomic.Uint32 // tick of last keyboard notification
	MouseLastMS atomic.Uint32 // tick of last mouse notification
}

// Bridge is the global counter block.
var Bridge Counters

// ─── Per-characteristic callback tracking ───────────────────────────────────

const maxTrackedHandles = 10

// HandleStat records how often a single characteristic handle has fired.
type HandleStat struct {
	Handle uint16
	Count  uint32
}

type handleStats struct {
	stats [maxTrackedHandles]HandleStat
}

func (h *handleStats) track(handle uint16) {
	for i := range h.stats {
		if h.stats[i].Handle == handle && h.stats[i].Count != 0 {
			h.stats[i].Count++
			return
		}
		if h.stats[i].Count == 0 {
			h.stats[i] = HandleStat{Handle: handle, Count: 1}
			return
		}
	}
}

func (h *handleStats) snapshot() []HandleStat {
	var out []HandleStat
	for i := range h.stats {
		if h.stats[i].Count == 0 {
			break
		}
		out = append(out, h.stats[i])
	}
	return out
}

var (
	kbdHandles   handleStats
	mouseHandles handleStats
)

// TrackKbdHandle counts a keyboard notification on the given handle.
func TrackKbdHandle(handle uint16) { kbdHandles.track(handle) }

// TrackMouseHandle counts a mouse notification on the given handle.
func TrackMouseHandle(handle uint16) { mouseHandles.track(handle) }

// KbdHandleStats returns the keyboard notification handle counts.
func KbdHandleStats() []HandleStat { return kbdHandles.snapshot() }

// MouseHandleStats returns the mouse notification handle counts.
func MouseHandleStats() []HandleStat { return mouseHandles.snapshot() }
