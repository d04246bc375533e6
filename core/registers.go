package core

import (
	"errors"

	"pico-expander/protocol"
)

// RegAddr addresses a register in the map.
type RegAddr uint8

// Register map. Bank registers carry one bit per native pin; the layout
// follows the MCP23017 convention of direction/pull/latch/interrupt
// banks plus a handful of scalar registers.
const (
	RegIODir    RegAddr = 0x00 // 1 = input (power-on default)
	RegPullUp   RegAddr = 0x01
	RegPullDown RegAddr = 0x02
	RegAnaSel   RegAddr = 0x03 // 1 = pin routed to ADC
	RegGPIO     RegAddr = 0x04 // read samples pins, write lands in OLAT
	RegOLat     RegAddr = 0x05 // output latches
	RegIntRise  RegAddr = 0x06 // rising-edge event enable
	RegIntFall  RegAddr = 0x07 // falling-edge event enable
	RegIntF     RegAddr = 0x08 // pins with undelivered events
	RegIntCap   RegAddr = 0x09 // pin levels captured at last event
	RegStatus   RegAddr = 0x0A
	RegEvCount  RegAddr = 0x0B
	RegLedRate  RegAddr = 0x0C // status LED half-period in ms, 0 = off
	RegVersion  RegAddr = 0x0D
	RegScratch  RegAddr = 0x0E
	RegIntAck   RegAddr = 0x0F // write clears INTF/INTCAP and the overflow flag
	RegAnalog   RegAddr = 0x10 // last completed analog sample

	RegCount = 0x11
)

// STATUS register bits.
const (
	StatusBitOverflow   = 1 << 0
	StatusBitAnalogBusy = 1 << 1
)

// WOSentinel is what write-only registers read back as.
const WOSentinel uint32 = 0x00

// Access is a register's host-facing access policy.
type Access uint8

const (
	AccessRW Access = iota
	AccessRO
	AccessWO
)

var (
	ErrOutOfRange   = errors.New("register address out of range")
	ErrAccessDenied = errors.New("register access denied")
)

// bankMask covers the 30 native pins.
const bankMask = uint32(1<<PinCount) - 1

// RegisterDef describes one register: its access policy, the mask
// implied by its declared width, and its power-on default.
type RegisterDef struct {
	Name    string
	Access  Access
	Mask    uint32
	Default uint32
}

// regTable is the fixed, contiguous register map. Indexed by RegAddr.
var regTable = [RegCount]RegisterDef{
	RegIODir:    {Name: "IODIR", Access: AccessRW, Mask: bankMask, Default: bankMask},
	RegPullUp:   {Name: "PULLUP", Access: AccessRW, Mask: bankMask},
	RegPullDown: {Name: "PULLDOWN", Access: AccessRW, Mask: bankMask},
	RegAnaSel:   {Name: "ANASEL", Access: AccessRW, Mask: bankMask},
	RegGPIO:     {Name: "GPIO", Access: AccessRW, Mask: bankMask},
	RegOLat:     {Name: "OLAT", Access: AccessRW, Mask: bankMask},
	RegIntRise:  {Name: "INTRISE", Access: AccessRW, Mask: bankMask},
	RegIntFall:  {Name: "INTFALL", Access: AccessRW, Mask: bankMask},
	RegIntF:     {Name: "INTF", Access: AccessRO, Mask: bankMask},
	RegIntCap:   {Name: "INTCAP", Access: AccessRO, Mask: bankMask},
	RegStatus:   {Name: "STATUS", Access: AccessRO, Mask: 0xFF},
	RegEvCount:  {Name: "EVCOUNT", Access: AccessRO, Mask: 0xFF},
	RegLedRate:  {Name: "LEDRATE", Access: AccessRW, Mask: 0xFFFF},
	RegVersion:  {Name: "VERSION", Access: AccessRO, Mask: 0xFFFF, Default: protocol.VersionWord},
	RegScratch:  {Name: "SCRATCH", Access: AccessRW, Mask: 0xFF},
	RegIntAck:   {Name: "INTACK", Access: AccessWO, Mask: 0xFF},
	RegAnalog:   {Name: "ANALOG", Access: AccessRO, Mask: 0xFFFF},
}

// RegisterDefOf returns the definition for a valid address.
func RegisterDefOf(addr RegAddr) (RegisterDef, error) {
	if int(addr) >= RegCount {
		return RegisterDef{}, ErrOutOfRange
	}
	return regTable[addr], nil
}

// Store is the register file: the single source of truth for pin
// directions, pin states and peripheral configuration. It is volatile
// and reinitializes to power-on defaults on every reset.
//
// Read/Write enforce the host-facing access policy. Peek/Poke and the
// bit helpers are the firmware-internal path (engine bookkeeping and
// interrupt context) and must never be reachable from the wire. Every
// mutation happens inside a constant-time critical section so interrupt
// and foreground contexts never observe a torn value.
type Store struct {
	values [RegCount]uint32
}

// NewStore creates a store holding power-on defaults.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset restores every register to its power-on default.
func (s *Store) Reset() {
	state := disableInterrupts()
	for i := range s.values {
		s.values[i] = regTable[i].Default
	}
	restoreInterrupts(state)
}

// Read returns a register value through the host access policy.
// Write-only registers read as the fixed sentinel.
func (s *Store) Read(addr RegAddr) (uint32, error) {
	if int(addr) >= RegCount {
		return 0, ErrOutOfRange
	}
	if regTable[addr].Access == AccessWO {
		return WOSentinel, nil
	}
	return s.Peek(addr), nil
}

// CanWrite checks the host access policy without mutating anything.
// Validation is separated from commit so a command can fail after this
// check and still leave the store byte-for-byte unchanged.
func (s *Store) CanWrite(addr RegAddr) error {
	if int(addr) >= RegCount {
		return ErrOutOfRange
	}
	if regTable[addr].Access == AccessRO {
		return ErrAccessDenied
	}
	return nil
}

// Write stores a value through the host access policy. The value is
// masked to the register's declared width, so a stored value never
// exceeds its mask.
func (s *Store) Write(addr RegAddr, value uint32) error {
	if err := s.CanWrite(addr); err != nil {
		return err
	}
	s.Poke(addr, value)
	return nil
}

// Peek reads a register without policy checks (firmware-internal).
func (s *Store) Peek(addr RegAddr) uint32 {
	state := disableInterrupts()
	v := s.values[addr]
	restoreInterrupts(state)
	return v
}

// Poke stores a masked value without policy checks (firmware-internal).
func (s *Store) Poke(addr RegAddr, value uint32) {
	state := disableInterrupts()
	s.values[addr] = value & regTable[addr].Mask
	restoreInterrupts(state)
}

// SetBits ors mask into a register. Safe from interrupt context.
func (s *Store) SetBits(addr RegAddr, mask uint32) {
	state := disableInterrupts()
	s.values[addr] = (s.values[addr] | mask) & regTable[addr].Mask
	restoreInterrupts(state)
}

// ClearBits clears mask from a register. Safe from interrupt context.
func (s *Store) ClearBits(addr RegAddr, mask uint32) {
	state := disableInterrupts()
	s.values[addr] &^= mask
	restoreInterrupts(state)
}

// Snapshot copies the whole register file at a consistent point.
func (s *Store) Snapshot() [RegCount]uint32 {
	state := disableInterrupts()
	snap := s.values
	restoreInterrupts(state)
	return snap
}
