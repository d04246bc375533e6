//go:build !tinygo

package core

// criticalState is a placeholder for the interrupt mask on regular Go.
type criticalState uintptr

// disableInterrupts is a no-op on regular Go (for host-side tests).
func disableInterrupts() criticalState {
	return 0
}

// restoreInterrupts is a no-op on regular Go (for host-side tests).
func restoreInterrupts(state criticalState) {
}
