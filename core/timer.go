package core

// TimerFreq is the tick rate of the system clock. The RP2040 timer
// peripheral counts microseconds.
const TimerFreq = 1000000

// GetTime returns the current system time in timer ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time. The target main loop mirrors the
// hardware counter into it; tests drive it directly.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks.
func TimerFromUS(us uint32) uint32 {
	return uint32((uint64(us) * TimerFreq) / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks.
func TimerFromMS(ms uint32) uint32 {
	return TimerFromUS(ms * 1000)
}

// TimerToUS converts timer ticks to microseconds.
func TimerToUS(ticks uint32) uint32 {
	return uint32((uint64(ticks) * 1000000) / TimerFreq)
}

// TimeAfter reports whether tick a is after b, tolerant of the 32-bit
// counter wrapping.
func TimeAfter(a, b uint32) bool {
	return int32(a-b) > 0
}
