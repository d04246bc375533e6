package core

// EventCause says why an event was recorded.
type EventCause uint8

const (
	EventCauseRising EventCause = iota + 1
	EventCauseFalling
	EventCauseFault
)

// Event is a timestamped record of an asynchronous hardware transition.
// Events are produced in interrupt context and drained by PollEvents.
type Event struct {
	Pin   uint8
	Value uint8
	Cause EventCause
	Ticks uint32
}

// EventQueueCapacity bounds the pending-event ring.
const EventQueueCapacity = 32

// EventQueue is a fixed-capacity FIFO ring shared between interrupt and
// foreground contexts. Push runs in interrupt context; everything else
// runs in the foreground. All operations are constant-time critical
// sections. On overflow the oldest event is dropped and the overflow
// flag latches until taken.
type EventQueue struct {
	events     [EventQueueCapacity]Event
	head       int // oldest
	count      int
	overflowed bool
}

// Push enqueues an event, dropping the oldest if the ring is full. It
// reports whether an event was dropped.
func (q *EventQueue) Push(ev Event) bool {
	state := disableInterrupts()
	dropped := false
	if q.count == EventQueueCapacity {
		q.head = (q.head + 1) % EventQueueCapacity
		q.count--
		q.overflowed = true
		dropped = true
	}
	q.events[(q.head+q.count)%EventQueueCapacity] = ev
	q.count++
	restoreInterrupts(state)
	return dropped
}

// Pop dequeues the oldest event.
func (q *EventQueue) Pop() (Event, bool) {
	state := disableInterrupts()
	if q.count == 0 {
		restoreInterrupts(state)
		return Event{}, false
	}
	ev := q.events[q.head]
	q.head = (q.head + 1) % EventQueueCapacity
	q.count--
	restoreInterrupts(state)
	return ev, true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	state := disableInterrupts()
	n := q.count
	restoreInterrupts(state)
	return n
}

// TakeOverflow returns the overflow flag and clears it.
func (q *EventQueue) TakeOverflow() bool {
	state := disableInterrupts()
	ov := q.overflowed
	q.overflowed = false
	restoreInterrupts(state)
	return ov
}

// Reset empties the ring and clears the overflow flag.
func (q *EventQueue) Reset() {
	state := disableInterrupts()
	q.head = 0
	q.count = 0
	q.overflowed = false
	restoreInterrupts(state)
}

// Notifier turns pin-change interrupts and fault conditions into queued
// events. PinChange and Fault are the only methods that run in interrupt
// context; they never block and touch shared state only through the
// store's and queue's critical-section paths.
type Notifier struct {
	store *Store
	queue *EventQueue
}

// NewNotifier creates a notifier feeding the given queue.
func NewNotifier(store *Store, queue *EventQueue) *Notifier {
	return &Notifier{store: store, queue: queue}
}

// PinChange records an edge on a native pin. Edges the host has not
// armed via INTRISE/INTFALL are ignored, so a target may route all pin
// interrupts here unconditionally.
func (n *Notifier) PinChange(pin GPIOPin, value bool) {
	if !isNativePin(pin) {
		return
	}

	var armed uint32
	cause := EventCauseFalling
	if value {
		armed = n.store.Peek(RegIntRise)
		cause = EventCauseRising
	} else {
		armed = n.store.Peek(RegIntFall)
	}
	if armed&pinBit(pin) == 0 {
		return
	}

	n.enqueue(Event{
		Pin:   uint8(pin),
		Value: boolByte(value),
		Cause: cause,
		Ticks: GetTime(),
	})

	n.store.SetBits(RegIntF, pinBit(pin))
	if value {
		n.store.SetBits(RegIntCap, pinBit(pin))
	} else {
		n.store.ClearBits(RegIntCap, pinBit(pin))
	}
}

// Fault records a non-pin hardware fault (e.g. analog overrun).
func (n *Notifier) Fault(pin GPIOPin, value bool) {
	n.enqueue(Event{
		Pin:   uint8(pin),
		Value: boolByte(value),
		Cause: EventCauseFault,
		Ticks: GetTime(),
	})
}

func (n *Notifier) enqueue(ev Event) {
	if n.queue.Push(ev) {
		n.store.SetBits(RegStatus, StatusBitOverflow)
	}
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
