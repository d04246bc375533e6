//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"pico-expander/core"
)

// RP2040 Timer peripheral memory map. The raw counter runs at 1MHz and
// matches core.TimerFreq.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08
	timerTIMERAWL = timerBase + 0x0C
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// hardwareTime reads the low 32 bits of the microsecond counter.
func hardwareTime() uint32 {
	return timerRAWL.Get()
}

// hardwareUptime reads the full 64-bit counter. High must be read before
// and after low to detect a rollover mid-read.
func hardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// updateSystemTime publishes the hardware counter to the core timer.
// Called from the main loop.
func updateSystemTime() {
	core.SetTime(hardwareTime())
}
