//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"

	"pico-expander/core"
)

var errBadADCChannel = errors.New("adc channel out of range")

// rp2040ADC implements core.ADCDriver. Channel setup goes through
// TinyGo's machine.ADC; conversions drive the peripheral registers
// directly so start, ready and read stay separate steps and the engine
// can bound the wait itself.
type rp2040ADC struct {
	configured [4]bool
}

func newADCDriver() *rp2040ADC {
	return &rp2040ADC{}
}

func (d *rp2040ADC) Init() error {
	machine.InitADC()
	return nil
}

func (d *rp2040ADC) Configure(ch core.ADCChannel) error {
	if ch > 3 {
		return errBadADCChannel
	}
	if d.configured[ch] {
		return nil
	}

	adc := machine.ADC{Pin: adcPin(ch)}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.configured[ch] = true
	return nil
}

func (d *rp2040ADC) Start(ch core.ADCChannel) error {
	if ch > 3 {
		return errBadADCChannel
	}

	rp.ADC.CS.ReplaceBits(
		uint32(ch)<<rp.ADC_CS_AINSEL_Pos,
		rp.ADC_CS_AINSEL_Msk,
		0,
	)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	return nil
}

func (d *rp2040ADC) Ready(ch core.ADCChannel) bool {
	return rp.ADC.CS.HasBits(rp.ADC_CS_READY)
}

func (d *rp2040ADC) Read(ch core.ADCChannel) (uint16, error) {
	// 12-bit hardware result, left-shifted to the 16-bit scale
	// machine.ADC.Get uses.
	return uint16(rp.ADC.RESULT.Get()) << 4, nil
}

func adcPin(ch core.ADCChannel) machine.Pin {
	switch ch {
	case 0:
		return machine.ADC0
	case 1:
		return machine.ADC1
	case 2:
		return machine.ADC2
	default:
		return machine.ADC3
	}
}
