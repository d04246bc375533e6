//go:build rp2040

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/mcp23017"

	"pico-expander/core"
)

// Expansion bank wiring: an MCP23017 on I2C0 at the default address.
const (
	expansionSDA      = machine.Pin(4)
	expansionSCL      = machine.Pin(5)
	expansionAddr     = 0x20
	expansionPinCount = 16
)

var errNoPullDown = errors.New("expander has no pull-down resistors")

// expansionBank maps pins 32-47 onto a downstream MCP23017, so the host
// addresses expander pins with the same commands as native ones.
// Directions are mirrored locally: the chip's OLAT accepts writes on
// input pins, so setPin has to enforce the mode itself.
type expansionBank struct {
	dev     *mcp23017.Device
	outputs uint16
}

// newExpansionBank probes for the expander. An error means the chip is
// absent and the target runs with the native bank only.
func newExpansionBank() (*expansionBank, error) {
	bus := machine.I2C0
	err := bus.Configure(machine.I2CConfig{
		SDA:       expansionSDA,
		SCL:       expansionSCL,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, err
	}

	dev, err := mcp23017.NewI2C(bus, expansionAddr)
	if err != nil {
		return nil, err
	}
	return &expansionBank{dev: dev}, nil
}

func (b *expansionBank) hasPin(pin core.GPIOPin) bool {
	return pin >= core.ExpansionPinBase && pin < core.ExpansionPinBase+expansionPinCount
}

func (b *expansionBank) pinIndex(pin core.GPIOPin) int {
	return int(pin - core.ExpansionPinBase)
}

func (b *expansionBank) configureOutput(pin core.GPIOPin) error {
	if !b.hasPin(pin) {
		return core.ErrUnknownPin
	}
	if err := b.dev.Pin(b.pinIndex(pin)).SetMode(mcp23017.Output); err != nil {
		return err
	}
	b.outputs |= 1 << b.pinIndex(pin)
	return nil
}

func (b *expansionBank) configureInput(pin core.GPIOPin, pull core.PinPull) error {
	if !b.hasPin(pin) {
		return core.ErrUnknownPin
	}
	mode := mcp23017.Input
	switch pull {
	case core.PullUp:
		mode |= mcp23017.Pullup
	case core.PullDown:
		return errNoPullDown
	}
	if err := b.dev.Pin(b.pinIndex(pin)).SetMode(mode); err != nil {
		return err
	}
	b.outputs &^= 1 << b.pinIndex(pin)
	return nil
}

func (b *expansionBank) setPin(pin core.GPIOPin, value bool) error {
	if !b.hasPin(pin) {
		return core.ErrUnknownPin
	}
	if b.outputs&(1<<b.pinIndex(pin)) == 0 {
		return core.ErrPinNotOutput
	}
	return b.dev.Pin(b.pinIndex(pin)).Set(value)
}

func (b *expansionBank) getPin(pin core.GPIOPin) (bool, error) {
	if !b.hasPin(pin) {
		return false, core.ErrUnknownPin
	}
	return b.dev.Pin(b.pinIndex(pin)).Get()
}
