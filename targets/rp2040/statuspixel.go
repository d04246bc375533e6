//go:build rp2040

package main

import (
	"image/color"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// statusPixel drives a single WS2812B status pixel from a PIO state
// machine, for boards that carry a neopixel instead of a plain LED.
type statusPixel struct {
	ws   *piolib.WS2812B
	last color.RGBA
	set  bool
}

func newStatusPixel(pin machine.Pin) (*statusPixel, error) {
	sm := rp2pio.PIO1.StateMachine(0)
	sm.TryClaim()
	ws, err := piolib.NewWS2812B(sm, pin)
	if err != nil {
		return nil, err
	}
	return &statusPixel{ws: ws}, nil
}

// Show updates the pixel, skipping redundant writes so the main loop can
// call it every iteration.
func (s *statusPixel) Show(c color.RGBA) {
	if s.set && c == s.last {
		return
	}
	if err := s.ws.SetColor(c); err != nil {
		return
	}
	s.last = c
	s.set = true
}
