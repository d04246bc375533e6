// Package protocol implements the pico-expander wire protocol: CRC16
// block framing with VLQ-coded fields, one response frame per request.
package protocol

// Version is the firmware version string reported by Identify.
const Version = "1.0.0"

// VersionWord is the version as major<<8|minor, held in the VERSION register.
const VersionWord = 0x0100

// Frame layout constants. A frame is
// [len][seq][body...][crc16 hi][crc16 lo][sync].
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize + 1 // body carries at least an opcode
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Opcode identifies a host request. The set is closed: the engine
// dispatches over exactly these values.
type Opcode uint8

const (
	OpGetPin Opcode = iota + 1
	OpSetPin
	OpConfigurePin
	OpReadRegister
	OpWriteRegister
	OpPollEvents
	OpReadAnalog
	OpSetPwm
	OpGetStatus
	OpSetLedRate
	OpIdentify
)

// Status is the result code carried in every response frame.
type Status uint8

const (
	StatusOk Status = iota
	StatusOutOfRange
	StatusAccessDenied
	StatusMalformed
	StatusInvalidSemantics
	StatusTimeout
	StatusQueueOverflow
	StatusBusy
	StatusUnknownCommand
)

// String returns a short stable name, used by host-side tooling.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusOutOfRange:
		return "out_of_range"
	case StatusAccessDenied:
		return "access_denied"
	case StatusMalformed:
		return "malformed"
	case StatusInvalidSemantics:
		return "invalid_semantics"
	case StatusTimeout:
		return "timeout"
	case StatusQueueOverflow:
		return "queue_overflow"
	case StatusBusy:
		return "busy"
	case StatusUnknownCommand:
		return "unknown_command"
	}
	return "status_" + utoa(uint32(s))
}

// String returns the command name, used by host-side tooling.
func (o Opcode) String() string {
	switch o {
	case OpGetPin:
		return "get_pin"
	case OpSetPin:
		return "set_pin"
	case OpConfigurePin:
		return "configure_pin"
	case OpReadRegister:
		return "read_register"
	case OpWriteRegister:
		return "write_register"
	case OpPollEvents:
		return "poll_events"
	case OpReadAnalog:
		return "read_analog"
	case OpSetPwm:
		return "set_pwm"
	case OpGetStatus:
		return "get_status"
	case OpSetLedRate:
		return "set_led_rate"
	case OpIdentify:
		return "identify"
	}
	return "opcode_" + utoa(uint32(o))
}

// utoa converts an unsigned integer to a string without fmt, so the
// package stays allocation-light under TinyGo.
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
