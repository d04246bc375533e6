//go:build rp2040

package main

import (
	"image/color"
	"machine"
	"time"

	"pico-expander/core"
	"pico-expander/protocol"
)

const (
	statusLedPin   = core.GPIOPin(25)
	statusPixelPin = machine.Pin(16)
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport
	engine       *core.Engine

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgErrors        uint32
)

func main() {
	// Clear any watchdog state left over from a previous reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	initUSB()
	updateSystemTime()

	gpio := newGPIODriver()
	core.SetGPIODriver(gpio)

	adc := newADCDriver()
	_ = adc.Init()
	core.SetADCDriver(adc)

	core.SetPWMDriver(newPWMDriver())

	// Probe the optional I2C expander; absence is not an error.
	if bank, err := newExpansionBank(); err == nil {
		gpio.AttachExpansion(bank)
	}

	store := core.NewStore()
	queue := &core.EventQueue{}
	led := core.NewStatusLed(statusLedPin)
	engine = core.NewEngine(core.Config{}, store, queue, led)
	gpio.SetNotifier(core.NewNotifier(store, queue))

	pixel, pixelErr := newStatusPixel(statusPixelPin)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, engine.Execute)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
		engine.Reset()
	})
	// Push each response to USB immediately rather than waiting for the
	// next loop iteration.
	transport.SetFlushCallback(writeUSB)

	uart := newUARTLink(engine.Execute)

	go usbReaderLoop()
	go uart.readerLoop()

	for {
		// Recover from panics in the main loop to keep the firmware up.
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgErrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			updateSystemTime()

			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
				messagesReceived++
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}

			uart.service()

			led.Tick(core.GetTime())
			if pixelErr == nil {
				pixel.Show(statusColor(store))
			}
		}()

		// Yield to the reader goroutines.
		time.Sleep(10 * time.Microsecond)
	}
}

// statusColor maps firmware state to the neopixel: dim green when
// healthy, red while the event queue has overflowed.
func statusColor(store *core.Store) color.RGBA {
	if store.Peek(core.RegStatus)&core.StatusBitOverflow != 0 {
		return color.RGBA{R: 0x20}
	}
	return color.RGBA{G: 0x08}
}

// usbReaderLoop continuously drains USB CDC into the input FIFO.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgErrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if usbAvailable() > 0 {
			b, err := usbRead()
			if err != nil {
				msgErrors++
				time.Sleep(time.Millisecond)
				continue
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				// FIFO full - back off until the main loop drains it.
				msgErrors++
				time.Sleep(10 * time.Millisecond)
			}
		} else {
			time.Sleep(100 * time.Microsecond)
		}
	}
}

// writeUSB pushes the output buffer to the host, handling partial writes.
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := usbWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely disconnect; keep only the unsent bytes for the
			// next attempt.
			outputBuffer.Consume(written)
			return
		}
		written += n
	}
	outputBuffer.Reset()
}
