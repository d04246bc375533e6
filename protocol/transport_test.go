package protocol

import (
	"bytes"
	"testing"
)

func encodeTestRequest(seq uint8, op Opcode, args ...uint32) []byte {
	out := NewScratchOutput()
	EncodeRequest(out, seq, op, func(o OutputBuffer) {
		for _, a := range args {
			EncodeVLQUint(o, a)
		}
	})
	frame := make([]byte, len(out.Result()))
	copy(frame, out.Result())
	return frame
}

func parseTestResponse(t *testing.T, raw []byte) Response {
	t.Helper()
	resp, consumed, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if consumed == 0 {
		t.Fatalf("ParseResponse consumed nothing from %v", raw)
	}
	return resp
}

func TestTransportRoundTrip(t *testing.T) {
	output := NewScratchOutput()

	var gotOp Opcode
	var gotArgs []byte
	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		gotOp = op
		gotArgs = append([]byte(nil), args...)
		return StatusOk, func(o OutputBuffer) {
			EncodeVLQUint(o, 42)
		}
	})

	frame := encodeTestRequest(MessageDest|3, OpGetPin, 7)
	transport.Receive(NewSliceInputBuffer(frame))

	if gotOp != OpGetPin {
		t.Errorf("handler saw opcode %v, want %v", gotOp, OpGetPin)
	}
	args := gotArgs
	pin, err := DecodeVLQUint(&args)
	if err != nil || pin != 7 {
		t.Errorf("handler args decoded to %d (%v), want 7", pin, err)
	}

	resp := parseTestResponse(t, output.Result())
	if resp.Seq != MessageDest|3 {
		t.Errorf("response seq = 0x%02X, want 0x%02X", resp.Seq, MessageDest|3)
	}
	if resp.Opcode != OpGetPin || resp.Status != StatusOk {
		t.Errorf("response = %v/%v, want %v/%v", resp.Opcode, resp.Status, OpGetPin, StatusOk)
	}
	payload := resp.Payload
	v, err := DecodeVLQUint(&payload)
	if err != nil || v != 42 {
		t.Errorf("payload decoded to %d (%v), want 42", v, err)
	}
}

func TestTransportCorruptedChecksum(t *testing.T) {
	output := NewScratchOutput()

	called := false
	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		called = true
		return StatusOk, nil
	})

	frame := encodeTestRequest(MessageDest, OpSetPin, 3, 1)
	// Corrupt one CRC byte, leave the framing intact.
	frame[len(frame)-2] ^= 0xFF
	transport.Receive(NewSliceInputBuffer(frame))

	if called {
		t.Error("handler ran on a frame with a bad checksum")
	}

	resp := parseTestResponse(t, output.Result())
	if resp.Status != StatusMalformed {
		t.Errorf("status = %v, want %v", resp.Status, StatusMalformed)
	}
}

func TestTransportResyncAfterGarbage(t *testing.T) {
	output := NewScratchOutput()

	calls := 0
	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		calls++
		return StatusOk, nil
	})

	// Garbage with an embedded sync byte, then a valid frame.
	stream := []byte{0x00, 0xFF, 0x13, MessageValueSync}
	stream = append(stream, encodeTestRequest(MessageDest|1, OpGetStatus)...)
	transport.Receive(NewSliceInputBuffer(stream))

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	resp := parseTestResponse(t, output.Result())
	if resp.Opcode != OpGetStatus || resp.Status != StatusOk {
		t.Errorf("response = %v/%v after resync", resp.Opcode, resp.Status)
	}
}

func TestTransportPartialFrame(t *testing.T) {
	output := NewScratchOutput()

	calls := 0
	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		calls++
		return StatusOk, nil
	})

	frame := encodeTestRequest(MessageDest, OpIdentify)
	split := len(frame) / 2

	fifo := NewFifoBuffer(128)
	fifo.Write(frame[:split])
	transport.Receive(fifo)
	if calls != 0 {
		t.Fatal("handler ran on a partial frame")
	}

	fifo.Write(frame[split:])
	transport.Receive(fifo)
	if calls != 1 {
		t.Fatalf("handler ran %d times after completion, want 1", calls)
	}
}

func TestTransportHandlerPanic(t *testing.T) {
	output := NewScratchOutput()

	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		panic("handler blew up")
	})

	transport.Receive(NewSliceInputBuffer(encodeTestRequest(MessageDest, OpGetPin, 1)))

	// The firmware must still answer rather than crash or go silent.
	resp := parseTestResponse(t, output.Result())
	if resp.Status != StatusBusy {
		t.Errorf("status = %v, want %v", resp.Status, StatusBusy)
	}
}

func TestTransportTwoFramesOneBuffer(t *testing.T) {
	output := NewScratchOutput()

	var ops []Opcode
	transport := NewTransport(output, func(op Opcode, args []byte) (Status, func(OutputBuffer)) {
		ops = append(ops, op)
		return StatusOk, nil
	})

	stream := encodeTestRequest(MessageDest|1, OpGetStatus)
	stream = append(stream, encodeTestRequest(MessageDest|2, OpIdentify)...)
	transport.Receive(NewSliceInputBuffer(stream))

	if len(ops) != 2 || ops[0] != OpGetStatus || ops[1] != OpIdentify {
		t.Errorf("dispatched ops = %v", ops)
	}

	// Both responses are in the output, in order.
	raw := output.Result()
	first := parseTestResponse(t, raw)
	if first.Seq != MessageDest|1 {
		t.Errorf("first response seq = 0x%02X", first.Seq)
	}
	_, consumed, err := ParseResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	second := parseTestResponse(t, raw[consumed:])
	if second.Seq != MessageDest|2 {
		t.Errorf("second response seq = 0x%02X", second.Seq)
	}
	if !bytes.Equal(second.Payload, nil) && len(second.Payload) != 0 {
		t.Errorf("unexpected payload %v", second.Payload)
	}
}
