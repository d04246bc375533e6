//go:build tinygo

package core

import "runtime/interrupt"

// criticalState is the saved interrupt mask.
type criticalState = interrupt.State

// disableInterrupts masks interrupts and returns the previous state.
// Critical sections guarded this way must stay constant-time: single
// register or queue-slot updates only.
func disableInterrupts() criticalState {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state.
func restoreInterrupts(state criticalState) {
	interrupt.Restore(state)
}
