package core

// GPIOPin identifies a hardware GPIO pin number. Pins 0-29 are the
// RP2040's native bank; a target may expose further pins (e.g. a
// downstream I2C expander) through its GPIO driver.
type GPIOPin uint32

// Native pin bank geometry.
const (
	PinCount       = 30 // GPIO0..GPIO29
	AnalogPinFirst = 26 // GPIO26 = ADC0
	AnalogPinLast  = 29 // GPIO29 = ADC3
)

// PinDirection selects what a pin does.
type PinDirection uint8

const (
	DirInput PinDirection = iota
	DirOutput
	DirAnalog
)

// PinPull selects the pad's pull resistor.
type PinPull uint8

const (
	PullNone PinPull = iota
	PullUp
	PullDown
)

// PinTrigger selects which edges raise a pin-change event.
type PinTrigger uint8

const (
	TriggerNone PinTrigger = iota
	TriggerRising
	TriggerFalling
	TriggerBoth
)

// pinBit returns the bank bitmask for a native pin.
func pinBit(pin GPIOPin) uint32 {
	return 1 << uint(pin)
}

// isNativePin reports whether pin lives in the register-mapped bank.
func isNativePin(pin GPIOPin) bool {
	return pin < PinCount
}

// isAnalogPin reports whether pin is muxed to an ADC channel.
func isAnalogPin(pin GPIOPin) bool {
	return pin >= AnalogPinFirst && pin <= AnalogPinLast
}

// analogChannel maps an analog-capable pin to its ADC channel.
func analogChannel(pin GPIOPin) ADCChannel {
	return ADCChannel(pin - AnalogPinFirst)
}
