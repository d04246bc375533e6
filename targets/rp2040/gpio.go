//go:build rp2040

package main

import (
	"machine"

	"pico-expander/core"
)

// rp2040GPIO implements core.GPIODriver over machine.Pin. Pins 0-29 are
// the native bank; pins at core.ExpansionPinBase and above are delegated
// to an optional MCP23017 expansion bank.
type rp2040GPIO struct {
	notifier  *core.Notifier
	expansion *expansionBank
}

func newGPIODriver() *rp2040GPIO {
	return &rp2040GPIO{}
}

// SetNotifier wires the driver's interrupt callbacks to the event path.
func (d *rp2040GPIO) SetNotifier(n *core.Notifier) {
	d.notifier = n
}

// AttachExpansion adds a downstream expander bank behind the native pins.
func (d *rp2040GPIO) AttachExpansion(b *expansionBank) {
	d.expansion = b
}

func (d *rp2040GPIO) HasPin(pin core.GPIOPin) bool {
	if pin < core.PinCount {
		return true
	}
	return d.expansion != nil && d.expansion.hasPin(pin)
}

func (d *rp2040GPIO) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= core.PinCount {
		if d.expansion == nil {
			return core.ErrUnknownPin
		}
		return d.expansion.configureOutput(pin)
	}

	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (d *rp2040GPIO) ConfigureInput(pin core.GPIOPin, pull core.PinPull) error {
	if pin >= core.PinCount {
		if d.expansion == nil {
			return core.ErrUnknownPin
		}
		return d.expansion.configureInput(pin, pull)
	}

	mode := machine.PinInput
	switch pull {
	case core.PullUp:
		mode = machine.PinInputPullup
	case core.PullDown:
		mode = machine.PinInputPulldown
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (d *rp2040GPIO) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= core.PinCount {
		if d.expansion == nil {
			return core.ErrUnknownPin
		}
		return d.expansion.setPin(pin, value)
	}

	machine.Pin(pin).Set(value)
	return nil
}

func (d *rp2040GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	if pin >= core.PinCount {
		if d.expansion == nil {
			return false, core.ErrUnknownPin
		}
		return d.expansion.getPin(pin)
	}

	return machine.Pin(pin).Get(), nil
}

// SetPinInterrupt arms or disarms edge detection on a native pin. The
// machine callback runs in interrupt context; it only touches the
// notifier, which is ISR-safe.
func (d *rp2040GPIO) SetPinInterrupt(pin core.GPIOPin, trigger core.PinTrigger) error {
	if pin >= core.PinCount {
		if trigger == core.TriggerNone {
			return nil
		}
		return core.ErrUnknownPin
	}

	machinePin := machine.Pin(pin)

	if trigger == core.TriggerNone {
		return machinePin.SetInterrupt(0, nil)
	}

	var change machine.PinChange
	switch trigger {
	case core.TriggerRising:
		change = machine.PinRising
	case core.TriggerFalling:
		change = machine.PinFalling
	case core.TriggerBoth:
		change = machine.PinToggle
	}

	return machinePin.SetInterrupt(change, d.pinISR)
}

func (d *rp2040GPIO) pinISR(p machine.Pin) {
	if d.notifier == nil {
		return
	}
	d.notifier.PinChange(core.GPIOPin(p), p.Get())
}
