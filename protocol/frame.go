package protocol

import "errors"

var (
	ErrInvalidFrame = errors.New("invalid frame structure")
	ErrBadChecksum  = errors.New("frame checksum mismatch")
)

// Request is a decoded host command. It is constructed by the codec from
// a received frame, consumed once by the engine, then discarded. Args
// holds the still-encoded VLQ fields; each command decodes its own.
type Request struct {
	Seq    uint8
	Opcode Opcode
	Args   []byte
}

// DecodeRequest parses a frame body (between header and trailer) that has
// already passed length and CRC validation.
func DecodeRequest(seq uint8, body []byte) (Request, error) {
	op, err := DecodeVLQUint(&body)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Seq:    seq,
		Opcode: Opcode(op),
		Args:   body,
	}, nil
}

// EncodeResponse appends a complete response frame to output. The body is
// [opcode][status][payload]; payload may be nil. The sequence byte echoes
// the request so the host can pair responses with commands.
func EncodeResponse(output OutputBuffer, seq uint8, op Opcode, status Status, payload func(OutputBuffer)) {
	cursor := output.CurPosition()

	// Length placeholder and sequence.
	output.Output([]byte{0, seq})

	EncodeVLQUint(output, uint32(op))
	output.Output([]byte{byte(status)})
	if payload != nil {
		payload(output)
	}

	finishFrame(output, cursor)
}

// EncodeRequest appends a complete request frame to output. Used by the
// host-side client; the firmware only decodes requests.
func EncodeRequest(output OutputBuffer, seq uint8, op Opcode, args func(OutputBuffer)) {
	cursor := output.CurPosition()

	output.Output([]byte{0, seq})

	EncodeVLQUint(output, uint32(op))
	if args != nil {
		args(output)
	}

	finishFrame(output, cursor)
}

// Response is a decoded response frame, as seen by the host-side client
// and by tests.
type Response struct {
	Seq     uint8
	Opcode  Opcode
	Status  Status
	Payload []byte
}

// ParseResponse extracts the first complete response frame from buf.
// It returns the response and the number of bytes consumed. A zero
// consumed count with a nil error means more bytes are needed.
func ParseResponse(buf []byte) (Response, int, error) {
	// Skip leading sync bytes.
	start := 0
	for start < len(buf) && buf[start] == MessageValueSync {
		start++
	}
	if len(buf)-start < MessageLengthMin {
		return Response{}, 0, nil
	}

	frame := buf[start:]
	msgLen := int(frame[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Response{}, 0, ErrInvalidFrame
	}
	if len(frame) < msgLen {
		return Response{}, 0, nil
	}
	if frame[msgLen-MessageTrailerSync] != MessageValueSync {
		return Response{}, 0, ErrInvalidFrame
	}

	frameCRC := uint16(frame[msgLen-MessageTrailerCRC])<<8 |
		uint16(frame[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(frame[:msgLen-MessageTrailerSize]) {
		return Response{}, 0, ErrBadChecksum
	}

	body := frame[MessageHeaderSize : msgLen-MessageTrailerSize]
	op, err := DecodeVLQUint(&body)
	if err != nil {
		return Response{}, 0, ErrInvalidFrame
	}
	if len(body) < 1 {
		return Response{}, 0, ErrInvalidFrame
	}

	return Response{
		Seq:     frame[MessagePositionSeq],
		Opcode:  Opcode(op),
		Status:  Status(body[0]),
		Payload: body[1:],
	}, start + msgLen, nil
}

// finishFrame patches the length byte and appends CRC and sync trailer.
func finishFrame(output OutputBuffer, cursor int) {
	written := len(output.DataSince(cursor))
	output.Update(cursor, uint8(written+MessageTrailerSize))

	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
}
