package core

// PWMDriver is the abstract PWM interface the core uses.
type PWMDriver interface {
	// Configure attaches a PWM slice to the pin at the given frequency.
	Configure(pin GPIOPin, freqHz uint32) error

	// SetDuty sets the duty cycle, 0 (off) to 0xFFFF (full on).
	SetDuty(pin GPIOPin, duty uint16) error

	// Disable detaches PWM from the pin.
	Disable(pin GPIOPin) error
}

// Global singleton used by core code.
var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// HasPWM reports whether a PWM driver is present.
func HasPWM() bool {
	return pwmDriver != nil
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
