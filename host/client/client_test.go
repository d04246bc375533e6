package client

import (
	"errors"
	"testing"
	"time"

	"pico-expander/protocol"
)

// mockPort loops client writes through a firmware-side transport and
// queues the responses for reads.
type mockPort struct {
	input   *protocol.FifoBuffer
	out     *protocol.ScratchOutput
	tr      *protocol.Transport
	pending []byte
}

func newMockPort(handler protocol.Handler) *mockPort {
	p := &mockPort{
		input: protocol.NewFifoBuffer(512),
		out:   protocol.NewScratchOutput(),
	}
	p.tr = protocol.NewTransport(p.out, handler)
	return p
}

func (p *mockPort) Write(b []byte) (int, error) {
	p.input.Write(b)
	p.tr.Receive(p.input)
	p.pending = append(p.pending, p.out.Result()...)
	p.out.Reset()
	return len(b), nil
}

func (p *mockPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *mockPort) Close() error { return nil }

func TestClientGetPin(t *testing.T) {
	var gotPin uint32
	port := newMockPort(func(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
		if op != protocol.OpGetPin {
			t.Errorf("opcode = %v, want %v", op, protocol.OpGetPin)
		}
		gotPin, _ = protocol.DecodeVLQUint(&args)
		return protocol.StatusOk, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, 1)
		}
	})

	c := New(port)
	value, err := c.GetPin(5)
	if err != nil {
		t.Fatal(err)
	}
	if !value {
		t.Error("GetPin = false, want true")
	}
	if gotPin != 5 {
		t.Errorf("board saw pin %d, want 5", gotPin)
	}
}

func TestClientStatusError(t *testing.T) {
	port := newMockPort(func(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
		return protocol.StatusAccessDenied, nil
	})

	c := New(port)
	err := c.WriteRegister(0x0A, 1)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Status != protocol.StatusAccessDenied {
		t.Errorf("status = %v, want %v", statusErr.Status, protocol.StatusAccessDenied)
	}
}

// silentPort swallows requests and never answers.
type silentPort struct{}

func (silentPort) Write(b []byte) (int, error) { return len(b), nil }

func (silentPort) Read(b []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (silentPort) Close() error { return nil }

func TestClientTimeout(t *testing.T) {
	c := New(silentPort{})
	c.Timeout = 50 * time.Millisecond

	_, err := c.GetPin(1)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestClientSkipsStaleResponses(t *testing.T) {
	port := newMockPort(func(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
		return protocol.StatusOk, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, 0)
		}
	})

	// A stale response with a sequence number the client never sent.
	stale := protocol.NewScratchOutput()
	protocol.EncodeResponse(stale, protocol.MessageDest|0x0F, protocol.OpGetPin, protocol.StatusOk, nil)
	port.pending = append(port.pending, stale.Result()...)

	c := New(port)
	if _, err := c.GetPin(3); err != nil {
		t.Fatalf("stale response broke the round trip: %v", err)
	}
}

func TestClientIdentify(t *testing.T) {
	port := newMockPort(func(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
		return protocol.StatusOk, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQUint(out, protocol.VersionWord)
			protocol.EncodeVLQUint(out, 30)
			protocol.EncodeVLQUint(out, 3)
			protocol.EncodeVLQBytes(out, []byte(protocol.Version))
		}
	})

	c := New(port)
	info, err := c.Identify()
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != protocol.VersionWord || info.PinCount != 30 {
		t.Errorf("info = %+v", info)
	}
	if info.VersionString != protocol.Version {
		t.Errorf("version string = %q, want %q", info.VersionString, protocol.Version)
	}
}

func TestClientPollEvents(t *testing.T) {
	port := newMockPort(func(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
		return protocol.StatusQueueOverflow, func(out protocol.OutputBuffer) {
			out.Output([]byte{1}) // overflow flag
			protocol.EncodeVLQUint(out, 2)
			for i := uint32(0); i < 2; i++ {
				protocol.EncodeVLQUint(out, 7)    // pin
				protocol.EncodeVLQUint(out, 1)    // value
				protocol.EncodeVLQUint(out, 1)    // cause
				protocol.EncodeVLQUint(out, 1000+i)
			}
		}
	})

	c := New(port)
	events, overflow, err := c.PollEvents(0)
	if err != nil {
		t.Fatal(err)
	}
	if !overflow {
		t.Error("overflow flag not reported")
	}
	if len(events) != 2 || events[0].Pin != 7 || events[1].Ticks != 1001 {
		t.Errorf("events = %+v", events)
	}
}
