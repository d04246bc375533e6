package core

import "testing"

func TestStatusLedBlinks(t *testing.T) {
	SetTime(0)
	gpio := newFakeGPIO()
	SetGPIODriver(gpio)

	led := NewStatusLed(25)
	led.Tick(GetTime())
	if !gpio.outputs[25] {
		t.Fatal("LED pin not configured as output")
	}

	// Half a period later the LED toggles on, another half off.
	SetTime(TimerFromMS(501))
	led.Tick(GetTime())
	if !gpio.levels[25] {
		t.Error("LED did not turn on after half period")
	}
	SetTime(TimerFromMS(1002))
	led.Tick(GetTime())
	if gpio.levels[25] {
		t.Error("LED did not turn off after full period")
	}
}

func TestStatusLedRateZeroHoldsOff(t *testing.T) {
	SetTime(0)
	gpio := newFakeGPIO()
	SetGPIODriver(gpio)

	led := NewStatusLed(25)
	led.Tick(GetTime())
	SetTime(TimerFromMS(501))
	led.Tick(GetTime())
	if !gpio.levels[25] {
		t.Fatal("LED not on before rate change")
	}

	led.SetRate(0)
	led.Tick(GetTime())
	if gpio.levels[25] {
		t.Error("LED still on with zero rate")
	}

	// Stays off no matter how much time passes.
	SetTime(TimerFromMS(5000))
	led.Tick(GetTime())
	if gpio.levels[25] {
		t.Error("LED came back on with zero rate")
	}
}
