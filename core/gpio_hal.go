package core

import "errors"

// HAL-level errors. The engine maps these to wire status codes.
var (
	ErrUnknownPin   = errors.New("unknown pin")
	ErrPinNotOutput = errors.New("pin is not an output")
)

// GPIODriver is the abstract GPIO interface the core uses. Targets
// implement it over real hardware; tests use an in-memory fake.
type GPIODriver interface {
	// HasPin reports whether the driver can operate the pin. Targets
	// with expansion hardware answer true beyond the native bank.
	HasPin(pin GPIOPin) bool

	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a digital input with the given
	// pull resistor.
	ConfigureInput(pin GPIOPin, pull PinPull) error

	// SetPin drives an output pin high (true) or low (false).
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin level.
	GetPin(pin GPIOPin) (bool, error)

	// SetPinInterrupt arms or disarms edge detection on a pin. Detected
	// edges must be reported to the Notifier from interrupt context.
	SetPinInterrupt(pin GPIOPin, trigger PinTrigger) error
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
