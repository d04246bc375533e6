package core

// ADCChannel identifies a logical ADC channel (0..3 on the RP2040,
// muxed to GPIO26..29).
type ADCChannel uint8

// ADCDriver is the abstract ADC interface the core uses. Conversions
// are split into start/ready/read so the engine can bound the wait with
// its own timeout instead of blocking inside the driver.
type ADCDriver interface {
	// Init powers up the ADC peripheral.
	Init() error

	// Configure routes a channel's pin to the ADC (analog mode).
	Configure(ch ADCChannel) error

	// Start begins a one-shot conversion on the channel.
	Start(ch ADCChannel) error

	// Ready reports whether the started conversion has completed.
	Ready(ch ADCChannel) bool

	// Read returns the completed sample as a 16-bit scaled value
	// (12-bit hardware values are left-shifted).
	Read(ch ADCChannel) (uint16, error)
}

// Global singleton used by core code.
var adcDriver ADCDriver

// SetADCDriver is called by target-specific code to register its driver.
func SetADCDriver(d ADCDriver) {
	adcDriver = d
}

// HasADC reports whether an ADC driver is present.
func HasADC() bool {
	return adcDriver != nil
}

// MustADC returns the configured driver or panics if missing.
func MustADC() ADCDriver {
	if adcDriver == nil {
		panic("ADC driver not configured")
	}
	return adcDriver
}
