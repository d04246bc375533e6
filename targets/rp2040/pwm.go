//go:build rp2040

package main

import (
	"machine"

	"pico-expander/core"
)

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// rp2040PWM implements core.PWMDriver over the RP2040's 8 hardware PWM
// slices. GPIO pin N maps to slice (N>>1)&7, channel N&1.
type rp2040PWM struct {
	peripherals map[uint8]pwmPeripheral
	channels    map[core.GPIOPin]uint8
}

func newPWMDriver() *rp2040PWM {
	return &rp2040PWM{
		peripherals: make(map[uint8]pwmPeripheral),
		channels:    make(map[core.GPIOPin]uint8),
	}
}

func (d *rp2040PWM) Configure(pin core.GPIOPin, freqHz uint32) error {
	sliceNum := uint8((pin >> 1) & 0x7)

	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		pwm = pwmSlice(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	period := uint64(1_000_000_000) / uint64(freqHz)
	if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
		return err
	}

	channel, err := pwm.Channel(machine.Pin(pin))
	if err != nil {
		return err
	}
	d.channels[pin] = channel
	return nil
}

func (d *rp2040PWM) SetDuty(pin core.GPIOPin, duty uint16) error {
	channel, exists := d.channels[pin]
	if !exists {
		return nil
	}

	sliceNum := uint8((pin >> 1) & 0x7)
	pwm, exists := d.peripherals[sliceNum]
	if !exists {
		return nil
	}

	// Scale the 16-bit duty onto the slice's counter range.
	top := pwm.Top()
	pwm.Set(channel, uint32((uint64(duty)*uint64(top))/0xFFFF))
	return nil
}

func (d *rp2040PWM) Disable(pin core.GPIOPin) error {
	channel, exists := d.channels[pin]
	if !exists {
		return nil
	}

	// TinyGo has no way to detach a slice; duty 0 holds the pin low.
	sliceNum := uint8((pin >> 1) & 0x7)
	if pwm, ok := d.peripherals[sliceNum]; ok {
		pwm.Set(channel, 0)
	}
	delete(d.channels, pin)
	return nil
}

func pwmSlice(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
