//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"pico-expander/protocol"
)

// Secondary transport: UART0 on the default pins, for hosts wired to
// the serial header instead of USB.
const (
	uartBaud = 115200
	uartTX   = machine.Pin(0)
	uartRX   = machine.Pin(1)
)

// uartLink runs the same framed protocol over a hardware UART, with its
// own buffers and transport so both buses can be active at once.
type uartLink struct {
	hw        *uartx.UART
	input     *protocol.FifoBuffer
	output    *protocol.ScratchOutput
	transport *protocol.Transport
}

func newUARTLink(handler protocol.Handler) *uartLink {
	hw := uartx.UART0
	_ = hw.Configure(uartx.UARTConfig{
		BaudRate: uartBaud,
		TX:       uartTX,
		RX:       uartRX,
	})

	l := &uartLink{
		hw:     hw,
		input:  protocol.NewFifoBuffer(256),
		output: protocol.NewScratchOutput(),
	}
	l.transport = protocol.NewTransport(l.output, handler)
	l.transport.SetFlushCallback(l.flush)
	l.transport.SetResetCallback(func() {
		l.input.Reset()
		l.output.Reset()
	})
	return l
}

// readerLoop runs in a goroutine, feeding received bytes into the FIFO.
func (l *uartLink) readerLoop() {
	var buf [64]byte
	for {
		n, err := l.hw.RecvSomeContext(context.Background(), buf[:])
		if err != nil {
			time.Sleep(time.Millisecond)
			continue
		}
		if n > 0 && l.input.Write(buf[:n]) == 0 {
			// FIFO full; drop and let the host retry.
			time.Sleep(time.Millisecond)
		}
	}
}

// service is called from the main loop to process buffered frames.
func (l *uartLink) service() {
	if l.input.Available() == 0 {
		return
	}
	l.transport.Receive(l.input)
	l.flush()
}

func (l *uartLink) flush() {
	data := l.output.Result()
	if len(data) == 0 {
		return
	}
	_, _ = l.hw.Write(data)
	l.output.Reset()
}
