package core

// StatusLed blinks a heartbeat LED at a host-settable rate. Rate is the
// half-period in milliseconds; zero holds the LED off. Tick is called
// from the foreground loop, never from interrupt context.
type StatusLed struct {
	pin        GPIOPin
	rateTicks  uint32
	on         bool
	lastToggle uint32
	configured bool
}

// NewStatusLed creates a status LED on the given pin with a 500ms
// power-on blink rate.
func NewStatusLed(pin GPIOPin) *StatusLed {
	return &StatusLed{
		pin:       pin,
		rateTicks: TimerFromMS(500),
	}
}

// SetRate sets the blink half-period in milliseconds. 0 turns the LED off.
func (l *StatusLed) SetRate(ms uint32) {
	l.rateTicks = TimerFromMS(ms)
}

// Tick advances the blinker to the given time.
func (l *StatusLed) Tick(now uint32) {
	if !l.configured {
		if MustGPIO().ConfigureOutput(l.pin) != nil {
			return
		}
		l.configured = true
		l.lastToggle = now
	}

	if l.rateTicks == 0 {
		if l.on {
			l.on = false
			_ = MustGPIO().SetPin(l.pin, false)
		}
		return
	}

	if TimeAfter(now, l.lastToggle+l.rateTicks) {
		l.on = !l.on
		_ = MustGPIO().SetPin(l.pin, l.on)
		l.lastToggle = now
	}
}
