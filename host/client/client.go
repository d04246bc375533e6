// Package client drives a pico-expander board over a serial port with
// synchronous request/response round trips.
package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"pico-expander/core"
	"pico-expander/host/serial"
	"pico-expander/protocol"
)

// ErrTimeout is returned when the board does not answer in time.
var ErrTimeout = errors.New("timeout waiting for response")

// StatusError is a non-Ok status returned by the board. The command was
// delivered and rejected, as opposed to a transport failure.
type StatusError struct {
	Op     protocol.Opcode
	Status protocol.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op.String(), e.Status.String())
}

// DeviceInfo is the board's Identify response.
type DeviceInfo struct {
	Version       uint32
	PinCount      uint32
	Features      uint32
	VersionString string
}

// DeviceStatus is the board's GetStatus response.
type DeviceStatus struct {
	Flags         uint32
	PendingEvents uint32
	Ticks         uint32
}

// Client is a connection to an expander board. It is not safe for
// concurrent use; round trips are strictly sequential.
type Client struct {
	port    serial.Port
	seq     uint8
	out     *protocol.ScratchOutput
	rx      []byte
	Timeout time.Duration
}

// Open connects to a board on the given serial device.
func Open(device string) (*Client, error) {
	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

// New wraps an already-open port.
func New(port serial.Port) *Client {
	return &Client{
		port:    port,
		out:     protocol.NewScratchOutput(),
		Timeout: 2 * time.Second,
	}
}

// Close closes the underlying port.
func (c *Client) Close() error {
	return c.port.Close()
}

// Roundtrip sends one request and waits for its response, discarding
// stale responses with other sequence numbers.
func (c *Client) Roundtrip(op protocol.Opcode, args func(protocol.OutputBuffer)) (protocol.Response, error) {
	c.seq = (c.seq + 1) & protocol.MessageSeqMask
	seq := protocol.MessageDest | c.seq

	c.out.Reset()
	protocol.EncodeRequest(c.out, seq, op, args)
	if _, err := c.port.Write(c.out.Result()); err != nil {
		return protocol.Response{}, fmt.Errorf("write request: %w", err)
	}

	deadline := time.Now().Add(c.Timeout)
	var buf [256]byte
	for {
		for {
			resp, consumed, err := protocol.ParseResponse(c.rx)
			if err != nil {
				c.resync()
				continue
			}
			if consumed == 0 {
				break
			}
			c.rx = c.rx[consumed:]
			if resp.Seq == seq {
				return resp, nil
			}
			// Stale response from an earlier, timed-out request.
		}

		if time.Now().After(deadline) {
			return protocol.Response{}, ErrTimeout
		}

		n, err := c.port.Read(buf[:])
		if err != nil && !errors.Is(err, io.EOF) {
			return protocol.Response{}, fmt.Errorf("read response: %w", err)
		}
		c.rx = append(c.rx, buf[:n]...)
	}
}

// resync drops buffered bytes up to and including the next sync byte.
func (c *Client) resync() {
	for i, b := range c.rx {
		if b == protocol.MessageValueSync {
			c.rx = c.rx[i+1:]
			return
		}
	}
	c.rx = c.rx[:0]
}

// command runs a round trip and converts a non-Ok status into a
// StatusError.
func (c *Client) command(op protocol.Opcode, args func(protocol.OutputBuffer)) ([]byte, error) {
	resp, err := c.Roundtrip(op, args)
	if err != nil {
		return nil, err
	}
	if resp.Status != protocol.StatusOk {
		return nil, &StatusError{Op: op, Status: resp.Status}
	}
	return resp.Payload, nil
}

// GetPin reads the digital level of a pin.
func (c *Client) GetPin(pin uint32) (bool, error) {
	payload, err := c.command(protocol.OpGetPin, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, pin)
	})
	if err != nil {
		return false, err
	}
	v, err := protocol.DecodeVLQUint(&payload)
	return v != 0, err
}

// SetPin drives an output pin.
func (c *Client) SetPin(pin uint32, value bool) error {
	level := uint32(0)
	if value {
		level = 1
	}
	_, err := c.command(protocol.OpSetPin, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, pin)
		protocol.EncodeVLQUint(out, level)
	})
	return err
}

// ConfigurePin sets a pin's direction, pull and event trigger.
func (c *Client) ConfigurePin(pin uint32, dir core.PinDirection, pull core.PinPull, trigger core.PinTrigger) error {
	_, err := c.command(protocol.OpConfigurePin, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, pin)
		protocol.EncodeVLQUint(out, uint32(dir))
		protocol.EncodeVLQUint(out, uint32(pull))
		protocol.EncodeVLQUint(out, uint32(trigger))
	})
	return err
}

// ReadRegister reads one register from the board's map.
func (c *Client) ReadRegister(addr uint8) (uint32, error) {
	payload, err := c.command(protocol.OpReadRegister, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(addr))
	})
	if err != nil {
		return 0, err
	}
	return protocol.DecodeVLQUint(&payload)
}

// WriteRegister writes one register in the board's map.
func (c *Client) WriteRegister(addr uint8, value uint32) error {
	_, err := c.command(protocol.OpWriteRegister, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(addr))
		protocol.EncodeVLQUint(out, value)
	})
	return err
}

// PollEvents drains up to max queued pin-change events (0 = all). The
// overflow flag reports that events were dropped since the last drain.
func (c *Client) PollEvents(max uint32) ([]core.Event, bool, error) {
	resp, err := c.Roundtrip(protocol.OpPollEvents, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, max)
	})
	if err != nil {
		return nil, false, err
	}
	// QueueOverflow still carries a full payload.
	if resp.Status != protocol.StatusOk && resp.Status != protocol.StatusQueueOverflow {
		return nil, false, &StatusError{Op: protocol.OpPollEvents, Status: resp.Status}
	}

	payload := resp.Payload
	if len(payload) < 1 {
		return nil, false, protocol.ErrInvalidFrame
	}
	overflow := payload[0] != 0
	payload = payload[1:]

	count, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, false, err
	}

	events := make([]core.Event, 0, count)
	for i := uint32(0); i < count; i++ {
		pin, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, false, err
		}
		value, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, false, err
		}
		cause, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, false, err
		}
		ticks, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, false, err
		}
		events = append(events, core.Event{
			Pin:   uint8(pin),
			Value: uint8(value),
			Cause: core.EventCause(cause),
			Ticks: ticks,
		})
	}
	return events, overflow, nil
}

// ReadAnalog runs an ADC conversion on an analog-configured pin.
func (c *Client) ReadAnalog(pin uint32) (uint16, error) {
	payload, err := c.command(protocol.OpReadAnalog, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, pin)
	})
	if err != nil {
		return 0, err
	}
	v, err := protocol.DecodeVLQUint(&payload)
	return uint16(v), err
}

// SetPwm attaches PWM to an output pin. Frequency 0 disables.
func (c *Client) SetPwm(pin, freqHz uint32, duty uint16) error {
	_, err := c.command(protocol.OpSetPwm, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, pin)
		protocol.EncodeVLQUint(out, freqHz)
		protocol.EncodeVLQUint(out, uint32(duty))
	})
	return err
}

// GetStatus reads the board's status word, pending event count and tick
// counter.
func (c *Client) GetStatus() (DeviceStatus, error) {
	payload, err := c.command(protocol.OpGetStatus, nil)
	if err != nil {
		return DeviceStatus{}, err
	}

	var st DeviceStatus
	if st.Flags, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceStatus{}, err
	}
	if st.PendingEvents, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceStatus{}, err
	}
	if st.Ticks, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceStatus{}, err
	}
	return st, nil
}

// SetLedRate sets the status LED blink half-period in milliseconds.
func (c *Client) SetLedRate(ms uint32) error {
	_, err := c.command(protocol.OpSetLedRate, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, ms)
	})
	return err
}

// Identify reads the board's version and feature description.
func (c *Client) Identify() (DeviceInfo, error) {
	payload, err := c.command(protocol.OpIdentify, nil)
	if err != nil {
		return DeviceInfo{}, err
	}

	var info DeviceInfo
	if info.Version, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceInfo{}, err
	}
	if info.PinCount, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceInfo{}, err
	}
	if info.Features, err = protocol.DecodeVLQUint(&payload); err != nil {
		return DeviceInfo{}, err
	}
	version, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return DeviceInfo{}, err
	}
	info.VersionString = string(version)
	return info, nil
}
