package core

import (
	"errors"

	"pico-expander/protocol"
)

// EngineState tracks where the engine is in a command's lifecycle.
type EngineState uint8

const (
	StateIdle EngineState = iota
	StateProcessing
	StateAwaitingHardware
	StateResponding
)

// Feature mask bits reported by Identify.
const (
	FeatureAnalog    = 1 << 0
	FeaturePWM       = 1 << 1
	FeatureExpansion = 1 << 2
)

// ExpansionPinBase is where a target's expansion bank starts, leaving a
// gap above the 30 native pins.
const ExpansionPinBase GPIOPin = 32

// Config holds the engine's tunables.
type Config struct {
	// AnalogTimeoutTicks bounds the wait for an ADC conversion.
	// Defaults to 10ms worth of ticks.
	AnalogTimeoutTicks uint32
}

// Engine interprets decoded commands, mutates the register store and
// drives the peripherals. Commands are all-or-nothing: every validation
// step runs before the first mutation, and a failed command produces a
// status response with the store byte-for-byte unchanged.
//
// The engine runs only in the foreground context. Its Execute method is
// the protocol transport's Handler.
type Engine struct {
	cfg   Config
	store *Store
	queue *EventQueue
	led   *StatusLed
	state EngineState

	// Direction bits for expansion pins, which live outside the
	// register banks. Bit i covers pin ExpansionPinBase+i; pins power
	// up as inputs.
	expOutputs uint32
}

// NewEngine creates an engine over the given store, event queue and
// status LED. led may be nil on targets without one.
func NewEngine(cfg Config, store *Store, queue *EventQueue, led *StatusLed) *Engine {
	if cfg.AnalogTimeoutTicks == 0 {
		cfg.AnalogTimeoutTicks = TimerFromMS(10)
	}
	return &Engine{
		cfg:   cfg,
		store: store,
		queue: queue,
		led:   led,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() EngineState {
	return e.state
}

// Store returns the engine's register store.
func (e *Engine) Store() *Store {
	return e.store
}

// Reset reinitializes engine, store and event queue to power-on state.
func (e *Engine) Reset() {
	e.store.Reset()
	e.queue.Reset()
	e.state = StateIdle
	e.expOutputs = 0
}

// Execute runs one command and returns the response. It implements
// protocol.Handler.
func (e *Engine) Execute(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	e.state = StateProcessing
	defer func() { e.state = StateIdle }()

	status, payload := e.dispatch(op, args)
	e.state = StateResponding
	return status, payload
}

// dispatch is a closed tagged dispatch: the command set is fixed by the
// hardware, so there is no open handler registry.
func (e *Engine) dispatch(op protocol.Opcode, args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	switch op {
	case protocol.OpGetPin:
		return e.handleGetPin(args)
	case protocol.OpSetPin:
		return e.handleSetPin(args)
	case protocol.OpConfigurePin:
		return e.handleConfigurePin(args)
	case protocol.OpReadRegister:
		return e.handleReadRegister(args)
	case protocol.OpWriteRegister:
		return e.handleWriteRegister(args)
	case protocol.OpPollEvents:
		return e.handlePollEvents(args)
	case protocol.OpReadAnalog:
		return e.handleReadAnalog(args)
	case protocol.OpSetPwm:
		return e.handleSetPwm(args)
	case protocol.OpGetStatus:
		return e.handleGetStatus(args)
	case protocol.OpSetLedRate:
		return e.handleSetLedRate(args)
	case protocol.OpIdentify:
		return e.handleIdentify(args)
	}
	return protocol.StatusUnknownCommand, nil
}

// statusFromError maps store and HAL errors to wire status codes.
func statusFromError(err error) protocol.Status {
	switch {
	case err == nil:
		return protocol.StatusOk
	case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrUnknownPin):
		return protocol.StatusOutOfRange
	case errors.Is(err, ErrAccessDenied):
		return protocol.StatusAccessDenied
	case errors.Is(err, ErrPinNotOutput):
		return protocol.StatusInvalidSemantics
	}
	return protocol.StatusBusy
}

// validPin reports whether pin is operable: native bank or claimed by
// the target's expansion hardware.
func (e *Engine) validPin(pin GPIOPin) bool {
	if isNativePin(pin) {
		return true
	}
	return MustGPIO().HasPin(pin)
}

func expBit(pin GPIOPin) uint32 {
	return 1 << (pin - ExpansionPinBase)
}

// isOutput consults IODIR for native pins and the engine's own
// direction bits for expansion pins.
func (e *Engine) isOutput(pin GPIOPin) bool {
	if isNativePin(pin) {
		return e.store.Peek(RegIODir)&pinBit(pin) == 0
	}
	return e.expOutputs&expBit(pin) != 0
}

func uint32Payload(v uint32) func(protocol.OutputBuffer) {
	return func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, v)
	}
}

// --- GetPin ---------------------------------------------------------

func (e *Engine) handleGetPin(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	pin, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	p := GPIOPin(pin)
	if !e.validPin(p) {
		return protocol.StatusOutOfRange, nil
	}
	if isNativePin(p) && e.store.Peek(RegAnaSel)&pinBit(p) != 0 {
		// Digital read of an analog-routed pin.
		return protocol.StatusInvalidSemantics, nil
	}

	value, err := MustGPIO().GetPin(p)
	if err != nil {
		return statusFromError(err), nil
	}
	return protocol.StatusOk, uint32Payload(uint32(boolByte(value)))
}

// --- SetPin ---------------------------------------------------------

func (e *Engine) handleSetPin(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	pin, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	rawValue, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	value := rawValue != 0

	p := GPIOPin(pin)
	if !e.validPin(p) {
		return protocol.StatusOutOfRange, nil
	}
	if !e.isOutput(p) {
		// Still configured as input (or analog).
		return protocol.StatusInvalidSemantics, nil
	}

	if err := MustGPIO().SetPin(p, value); err != nil {
		return statusFromError(err), nil
	}

	if isNativePin(p) {
		if value {
			e.store.SetBits(RegOLat, pinBit(p))
			e.store.SetBits(RegGPIO, pinBit(p))
		} else {
			e.store.ClearBits(RegOLat, pinBit(p))
			e.store.ClearBits(RegGPIO, pinBit(p))
		}
	}
	return protocol.StatusOk, nil
}

// --- ConfigurePin ---------------------------------------------------

func (e *Engine) handleConfigurePin(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	pin, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	dir, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	pull, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	trigger, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	p := GPIOPin(pin)
	if !e.validPin(p) {
		return protocol.StatusOutOfRange, nil
	}
	if dir > uint32(DirAnalog) || pull > uint32(PullDown) || trigger > uint32(TriggerBoth) {
		return protocol.StatusInvalidSemantics, nil
	}

	direction := PinDirection(dir)
	pinPull := PinPull(pull)
	pinTrigger := PinTrigger(trigger)

	// Semantic checks, all before the first mutation.
	switch direction {
	case DirOutput:
		if pinPull != PullNone || pinTrigger != TriggerNone {
			return protocol.StatusInvalidSemantics, nil
		}
	case DirAnalog:
		if !isNativePin(p) || !isAnalogPin(p) || !HasADC() {
			return protocol.StatusInvalidSemantics, nil
		}
		if pinPull != PullNone || pinTrigger != TriggerNone {
			return protocol.StatusInvalidSemantics, nil
		}
	case DirInput:
		if !isNativePin(p) && pinTrigger != TriggerNone {
			// Expansion pins have no event path.
			return protocol.StatusInvalidSemantics, nil
		}
	}

	switch direction {
	case DirOutput:
		if err := MustGPIO().SetPinInterrupt(p, TriggerNone); err != nil {
			return statusFromError(err), nil
		}
		if err := MustGPIO().ConfigureOutput(p); err != nil {
			return statusFromError(err), nil
		}
		if isNativePin(p) {
			bit := pinBit(p)
			e.store.ClearBits(RegIODir, bit)
			e.store.ClearBits(RegAnaSel, bit)
			e.store.ClearBits(RegPullUp, bit)
			e.store.ClearBits(RegPullDown, bit)
			e.store.ClearBits(RegIntRise, bit)
			e.store.ClearBits(RegIntFall, bit)
		} else {
			e.expOutputs |= expBit(p)
		}

	case DirAnalog:
		if err := MustGPIO().SetPinInterrupt(p, TriggerNone); err != nil {
			return statusFromError(err), nil
		}
		if err := MustADC().Configure(analogChannel(p)); err != nil {
			return statusFromError(err), nil
		}
		bit := pinBit(p)
		e.store.SetBits(RegIODir, bit)
		e.store.SetBits(RegAnaSel, bit)
		e.store.ClearBits(RegPullUp, bit)
		e.store.ClearBits(RegPullDown, bit)
		e.store.ClearBits(RegIntRise, bit)
		e.store.ClearBits(RegIntFall, bit)

	case DirInput:
		if err := MustGPIO().ConfigureInput(p, pinPull); err != nil {
			return statusFromError(err), nil
		}
		if isNativePin(p) {
			bit := pinBit(p)
			e.store.SetBits(RegIODir, bit)
			e.store.ClearBits(RegAnaSel, bit)
			setBitTo(e.store, RegPullUp, bit, pinPull == PullUp)
			setBitTo(e.store, RegPullDown, bit, pinPull == PullDown)
			setBitTo(e.store, RegIntRise, bit, pinTrigger == TriggerRising || pinTrigger == TriggerBoth)
			setBitTo(e.store, RegIntFall, bit, pinTrigger == TriggerFalling || pinTrigger == TriggerBoth)
		} else {
			e.expOutputs &^= expBit(p)
		}
		// Arm the hardware after the enable registers are in place so
		// an immediate edge is not filtered out by the notifier.
		if err := MustGPIO().SetPinInterrupt(p, pinTrigger); err != nil {
			return statusFromError(err), nil
		}
	}

	return protocol.StatusOk, nil
}

func setBitTo(s *Store, addr RegAddr, bit uint32, on bool) {
	if on {
		s.SetBits(addr, bit)
	} else {
		s.ClearBits(addr, bit)
	}
}

// --- ReadRegister / WriteRegister -----------------------------------

func (e *Engine) handleReadRegister(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	addr, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	if addr >= RegCount {
		return protocol.StatusOutOfRange, nil
	}

	var value uint32
	switch RegAddr(addr) {
	case RegGPIO:
		value = e.sampleGPIO()
	case RegEvCount:
		value = uint32(e.queue.Len())
	default:
		value, err = e.store.Read(RegAddr(addr))
		if err != nil {
			return statusFromError(err), nil
		}
	}
	return protocol.StatusOk, uint32Payload(value)
}

// sampleGPIO builds the GPIO register value: live levels for digital
// inputs, the output latch for outputs. The sample is written back so
// the register stays coherent with the pins.
func (e *Engine) sampleGPIO() uint32 {
	iodir := e.store.Peek(RegIODir)
	anasel := e.store.Peek(RegAnaSel)
	olat := e.store.Peek(RegOLat)

	value := olat &^ iodir // output pins reflect their latch
	for pin := GPIOPin(0); pin < PinCount; pin++ {
		bit := pinBit(pin)
		if iodir&bit == 0 || anasel&bit != 0 {
			continue
		}
		if level, err := MustGPIO().GetPin(pin); err == nil && level {
			value |= bit
		}
	}
	e.store.Poke(RegGPIO, value)
	return value
}

func (e *Engine) handleWriteRegister(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	addr, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	value, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	if addr >= RegCount {
		return protocol.StatusOutOfRange, nil
	}
	reg := RegAddr(addr)
	if err := e.store.CanWrite(reg); err != nil {
		return statusFromError(err), nil
	}

	switch reg {
	case RegGPIO, RegOLat:
		return e.writeOutputs(value), nil
	case RegIODir:
		return e.writeIODir(value), nil
	case RegPullUp:
		return e.writePulls(RegPullUp, RegPullDown, value), nil
	case RegPullDown:
		return e.writePulls(RegPullDown, RegPullUp, value), nil
	case RegAnaSel:
		return e.writeAnaSel(value), nil
	case RegIntRise:
		return e.writeEdgeEnable(RegIntRise, value), nil
	case RegIntFall:
		return e.writeEdgeEnable(RegIntFall, value), nil
	case RegLedRate:
		e.store.Poke(RegLedRate, value)
		if e.led != nil {
			e.led.SetRate(value & 0xFFFF)
		}
		return protocol.StatusOk, nil
	case RegIntAck:
		e.store.Poke(RegIntF, 0)
		e.store.Poke(RegIntCap, 0)
		e.store.ClearBits(RegStatus, StatusBitOverflow)
		e.queue.TakeOverflow()
		return protocol.StatusOk, nil
	}

	// Plain value registers (SCRATCH).
	if err := e.store.Write(reg, value); err != nil {
		return statusFromError(err), nil
	}
	return protocol.StatusOk, nil
}

// writeOutputs drives every configured output pin whose latch bit
// changes, then commits OLAT. Writing GPIO is an alias of writing OLAT.
func (e *Engine) writeOutputs(value uint32) protocol.Status {
	value &= bankMask
	iodir := e.store.Peek(RegIODir)
	old := e.store.Peek(RegOLat)
	outMask := ^iodir & bankMask

	for pin := GPIOPin(0); pin < PinCount; pin++ {
		bit := pinBit(pin)
		if outMask&bit == 0 || (old^value)&bit == 0 {
			continue
		}
		if err := MustGPIO().SetPin(pin, value&bit != 0); err != nil {
			return statusFromError(err)
		}
	}

	e.store.Poke(RegOLat, value)
	gpio := (e.store.Peek(RegGPIO) &^ outMask) | (value & outMask)
	e.store.Poke(RegGPIO, gpio)
	return protocol.StatusOk
}

// writeIODir reconfigures every pin whose direction bit changes.
// Pins leaving analog mode fall back to plain digital inputs.
func (e *Engine) writeIODir(value uint32) protocol.Status {
	value &= bankMask
	old := e.store.Peek(RegIODir)
	pullUp := e.store.Peek(RegPullUp)
	pullDown := e.store.Peek(RegPullDown)
	olat := e.store.Peek(RegOLat)

	for pin := GPIOPin(0); pin < PinCount; pin++ {
		bit := pinBit(pin)
		if (old^value)&bit == 0 {
			continue
		}
		if value&bit != 0 {
			pull := PullNone
			if pullUp&bit != 0 {
				pull = PullUp
			} else if pullDown&bit != 0 {
				pull = PullDown
			}
			if err := MustGPIO().ConfigureInput(pin, pull); err != nil {
				return statusFromError(err)
			}
		} else {
			if err := MustGPIO().SetPinInterrupt(pin, TriggerNone); err != nil {
				return statusFromError(err)
			}
			if err := MustGPIO().ConfigureOutput(pin); err != nil {
				return statusFromError(err)
			}
			if err := MustGPIO().SetPin(pin, olat&bit != 0); err != nil {
				return statusFromError(err)
			}
		}
	}

	e.store.Poke(RegIODir, value)
	// Pins switched to output leave analog mode and lose event arming.
	e.store.ClearBits(RegAnaSel, ^value)
	e.store.ClearBits(RegIntRise, ^value)
	e.store.ClearBits(RegIntFall, ^value)
	return protocol.StatusOk
}

// writePulls updates one pull register; a set bit clears the opposing
// pull. Only digital input pins are reconfigured in hardware.
func (e *Engine) writePulls(reg, opposing RegAddr, value uint32) protocol.Status {
	value &= bankMask
	iodir := e.store.Peek(RegIODir)
	anasel := e.store.Peek(RegAnaSel)
	old := e.store.Peek(reg)

	for pin := GPIOPin(0); pin < PinCount; pin++ {
		bit := pinBit(pin)
		if (old^value)&bit == 0 || iodir&bit == 0 || anasel&bit != 0 {
			continue
		}
		pull := PullNone
		if value&bit != 0 {
			if reg == RegPullUp {
				pull = PullUp
			} else {
				pull = PullDown
			}
		}
		if err := MustGPIO().ConfigureInput(pin, pull); err != nil {
			return statusFromError(err)
		}
	}

	e.store.Poke(reg, value)
	e.store.ClearBits(opposing, value)
	return protocol.StatusOk
}

// writeAnaSel routes pins to the ADC. Bits outside the analog-capable
// pins are rejected.
func (e *Engine) writeAnaSel(value uint32) protocol.Status {
	value &= bankMask
	analogMask := uint32(0)
	for pin := GPIOPin(AnalogPinFirst); pin <= AnalogPinLast; pin++ {
		analogMask |= pinBit(pin)
	}
	if value&^analogMask != 0 {
		return protocol.StatusInvalidSemantics
	}
	if value != 0 && !HasADC() {
		return protocol.StatusInvalidSemantics
	}

	old := e.store.Peek(RegAnaSel)
	pullUp := e.store.Peek(RegPullUp)
	pullDown := e.store.Peek(RegPullDown)
	for pin := GPIOPin(AnalogPinFirst); pin <= AnalogPinLast; pin++ {
		bit := pinBit(pin)
		if (old^value)&bit == 0 {
			continue
		}
		if value&bit != 0 {
			if err := MustADC().Configure(analogChannel(pin)); err != nil {
				return statusFromError(err)
			}
			continue
		}
		// Cleared bits leave analog mode; re-enable the pad as a
		// digital input with its stored pulls.
		pull := PullNone
		if pullUp&bit != 0 {
			pull = PullUp
		} else if pullDown&bit != 0 {
			pull = PullDown
		}
		if err := MustGPIO().ConfigureInput(pin, pull); err != nil {
			return statusFromError(err)
		}
	}

	e.store.Poke(RegAnaSel, value)
	// Analog pins count as inputs and drop their pulls.
	e.store.SetBits(RegIODir, value)
	e.store.ClearBits(RegPullUp, value)
	e.store.ClearBits(RegPullDown, value)
	return protocol.StatusOk
}

// writeEdgeEnable updates an edge-enable register and re-arms the pin
// interrupts to match the combined rise/fall masks.
func (e *Engine) writeEdgeEnable(reg RegAddr, value uint32) protocol.Status {
	value &= bankMask
	iodir := e.store.Peek(RegIODir)
	anasel := e.store.Peek(RegAnaSel)
	if value&^iodir != 0 || value&anasel != 0 {
		// Only digital inputs can raise events.
		return protocol.StatusInvalidSemantics
	}

	old := e.store.Peek(reg)
	e.store.Poke(reg, value)

	rise := e.store.Peek(RegIntRise)
	fall := e.store.Peek(RegIntFall)
	for pin := GPIOPin(0); pin < PinCount; pin++ {
		bit := pinBit(pin)
		if (old^value)&bit == 0 {
			continue
		}
		trigger := TriggerNone
		switch {
		case rise&bit != 0 && fall&bit != 0:
			trigger = TriggerBoth
		case rise&bit != 0:
			trigger = TriggerRising
		case fall&bit != 0:
			trigger = TriggerFalling
		}
		if err := MustGPIO().SetPinInterrupt(pin, trigger); err != nil {
			e.store.Poke(reg, old)
			return statusFromError(err)
		}
	}
	return protocol.StatusOk
}

// --- PollEvents -----------------------------------------------------

func (e *Engine) handlePollEvents(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	var max uint32
	if len(args) > 0 {
		v, err := protocol.DecodeVLQUint(&args)
		if err != nil {
			return protocol.StatusMalformed, nil
		}
		max = v
	}

	overflow := e.queue.TakeOverflow()
	if overflow {
		e.store.ClearBits(RegStatus, StatusBitOverflow)
	}

	// Drain into a stack buffer; delivery is destructive and oldest-first.
	var drained [EventQueueCapacity]Event
	count := 0
	for count < EventQueueCapacity {
		if max != 0 && uint32(count) >= max {
			break
		}
		ev, ok := e.queue.Pop()
		if !ok {
			break
		}
		drained[count] = ev
		count++
	}

	status := protocol.StatusOk
	if overflow {
		status = protocol.StatusQueueOverflow
	}

	return status, func(out protocol.OutputBuffer) {
		out.Output([]byte{boolByte(overflow)})
		protocol.EncodeVLQUint(out, uint32(count))
		for i := 0; i < count; i++ {
			ev := drained[i]
			protocol.EncodeVLQUint(out, uint32(ev.Pin))
			protocol.EncodeVLQUint(out, uint32(ev.Value))
			protocol.EncodeVLQUint(out, uint32(ev.Cause))
			protocol.EncodeVLQUint(out, ev.Ticks)
		}
	}
}

// --- ReadAnalog -----------------------------------------------------

func (e *Engine) handleReadAnalog(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	pin, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	p := GPIOPin(pin)
	if !e.validPin(p) {
		return protocol.StatusOutOfRange, nil
	}
	if !isNativePin(p) || !isAnalogPin(p) || !HasADC() {
		return protocol.StatusInvalidSemantics, nil
	}
	if e.store.Peek(RegAnaSel)&pinBit(p) == 0 {
		// Pin not configured for analog.
		return protocol.StatusInvalidSemantics, nil
	}

	ch := analogChannel(p)
	if err := MustADC().Start(ch); err != nil {
		return statusFromError(err), nil
	}

	e.state = StateAwaitingHardware
	e.store.SetBits(RegStatus, StatusBitAnalogBusy)
	deadline := GetTime() + e.cfg.AnalogTimeoutTicks

	for !MustADC().Ready(ch) {
		if TimeAfter(GetTime(), deadline) {
			e.store.ClearBits(RegStatus, StatusBitAnalogBusy)
			return protocol.StatusTimeout, nil
		}
	}

	value, err := MustADC().Read(ch)
	e.store.ClearBits(RegStatus, StatusBitAnalogBusy)
	if err != nil {
		return statusFromError(err), nil
	}

	e.store.Poke(RegAnalog, uint32(value))
	return protocol.StatusOk, uint32Payload(uint32(value))
}

// --- SetPwm ---------------------------------------------------------

func (e *Engine) handleSetPwm(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	pin, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	freq, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}
	duty, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	p := GPIOPin(pin)
	if !isNativePin(p) {
		if !e.validPin(p) {
			return protocol.StatusOutOfRange, nil
		}
		// Expansion pins cannot do PWM.
		return protocol.StatusInvalidSemantics, nil
	}
	if !HasPWM() {
		return protocol.StatusInvalidSemantics, nil
	}
	if e.store.Peek(RegIODir)&pinBit(p) != 0 {
		return protocol.StatusInvalidSemantics, nil
	}

	if freq == 0 {
		if err := MustPWM().Disable(p); err != nil {
			return statusFromError(err), nil
		}
		return protocol.StatusOk, nil
	}

	if err := MustPWM().Configure(p, freq); err != nil {
		return statusFromError(err), nil
	}
	if err := MustPWM().SetDuty(p, uint16(duty)); err != nil {
		return statusFromError(err), nil
	}
	return protocol.StatusOk, nil
}

// --- GetStatus / SetLedRate / Identify ------------------------------

func (e *Engine) handleGetStatus(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	status := e.store.Peek(RegStatus)
	pending := uint32(e.queue.Len())
	now := GetTime()
	return protocol.StatusOk, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, status)
		protocol.EncodeVLQUint(out, pending)
		protocol.EncodeVLQUint(out, now)
	}
}

func (e *Engine) handleSetLedRate(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	ms, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return protocol.StatusMalformed, nil
	}

	e.store.Poke(RegLedRate, ms)
	if e.led != nil {
		e.led.SetRate(ms & 0xFFFF)
	}
	return protocol.StatusOk, nil
}

func (e *Engine) handleIdentify(args []byte) (protocol.Status, func(protocol.OutputBuffer)) {
	features := uint32(0)
	if HasADC() {
		features |= FeatureAnalog
	}
	if HasPWM() {
		features |= FeaturePWM
	}
	if MustGPIO().HasPin(ExpansionPinBase) {
		features |= FeatureExpansion
	}

	return protocol.StatusOk, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, protocol.VersionWord)
		protocol.EncodeVLQUint(out, PinCount)
		protocol.EncodeVLQUint(out, features)
		protocol.EncodeVLQBytes(out, []byte(protocol.Version))
	}
}
