//go:build tinygo

package adb

import "runtime/interrupt"

type intState = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() intState {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state intState) {
	interrupt.Restore(state)
}
