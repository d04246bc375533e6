package protocol

// Handler executes a decoded request and returns the response status plus
// an optional payload writer. The transport emits exactly one response
// frame per request from the returned values, so a handler cannot reply
// twice or go silent.
type Handler func(op Opcode, args []byte) (Status, func(OutputBuffer))

// Transport extracts frames from the receive buffer, validates framing
// and CRC, dispatches requests and emits responses. It runs only in the
// foreground context; the bus reader feeds it through an InputBuffer.
type Transport struct {
	synchronized bool
	output       OutputBuffer
	handler      Handler

	resetCallback func() // called when transport state is reset
	flushCallback func() // called after each response to push bytes to the bus
}

// NewTransport creates a transport writing responses to output.
func NewTransport(output OutputBuffer, handler Handler) *Transport {
	return &Transport{
		synchronized: true,
		output:       output,
		handler:      handler,
	}
}

// Receive consumes as much buffered input as possible. Structural garbage
// (bad length byte, bad destination tag, missing trailer sync) causes a
// silent resynchronization to the next sync byte; a structurally intact
// frame with a bad CRC is answered with a Malformed response so the host
// can tell rejection from line noise.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}

			if syncPos >= 0 {
				data = data[syncPos+1:]
				t.synchronized = true
			} else {
				data = nil
			}
			continue
		}

		// Skip leading sync bytes between frames.
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			t.synchronized = false
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			t.synchronized = false
			continue
		}

		// Wait for the full frame to arrive.
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			t.synchronized = false
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		actualCRC := CRC16(data[:msgLen-MessageTrailerSize])

		body := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]

		if frameCRC != actualCRC {
			t.respond(seq, 0, StatusMalformed, nil)
			continue
		}

		t.dispatch(seq, body)
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// dispatch decodes and executes one frame body, always producing exactly
// one response. A panicking handler is reported as Busy rather than
// crashing the firmware.
func (t *Transport) dispatch(seq uint8, body []byte) {
	req, err := DecodeRequest(seq, body)
	if err != nil {
		t.respond(seq, 0, StatusMalformed, nil)
		return
	}

	status, payload := t.run(req)
	t.respond(seq, req.Opcode, status, payload)
}

func (t *Transport) run(req Request) (status Status, payload func(OutputBuffer)) {
	defer func() {
		if r := recover(); r != nil {
			status = StatusBusy
			payload = nil
		}
	}()

	if t.handler == nil {
		return StatusUnknownCommand, nil
	}
	return t.handler(req.Opcode, req.Args)
}

func (t *Transport) respond(seq uint8, op Opcode, status Status, payload func(OutputBuffer)) {
	EncodeResponse(t.output, seq, op, status, payload)
	if t.flushCallback != nil {
		t.flushCallback()
	}
}

// Reset restores the synchronized state, e.g. after a bus reconnect.
func (t *Transport) Reset() {
	t.synchronized = true
	if t.resetCallback != nil {
		t.resetCallback()
	}
}

// SetResetCallback registers a callback invoked on Reset.
func (t *Transport) SetResetCallback(callback func()) {
	t.resetCallback = callback
}

// SetFlushCallback registers a callback invoked after each response so
// the target can push the output buffer to the bus immediately.
func (t *Transport) SetFlushCallback(callback func()) {
	t.flushCallback = callback
}
