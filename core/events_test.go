package core

import "testing"

func TestEventQueueFIFO(t *testing.T) {
	var q EventQueue

	for i := 0; i < 5; i++ {
		q.Push(Event{Pin: uint8(i), Cause: EventCauseRising})
	}
	if q.Len() != 5 {
		t.Fatalf("Len = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		ev, ok := q.Pop()
		if !ok || ev.Pin != uint8(i) {
			t.Errorf("Pop %d = %+v ok=%v", i, ev, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue returned an event")
	}
}

func TestEventQueueOverflowDropsOldest(t *testing.T) {
	var q EventQueue

	// Enqueue capacity+1 events before a drain. Push reports the drop
	// itself so callers never read queue state outside its locks.
	for i := 0; i < EventQueueCapacity; i++ {
		if q.Push(Event{Pin: uint8(i)}) {
			t.Fatalf("Push %d reported a drop before the ring filled", i)
		}
	}
	if !q.Push(Event{Pin: EventQueueCapacity}) {
		t.Error("overflowing Push did not report the drop")
	}

	if q.Len() != EventQueueCapacity {
		t.Fatalf("Len = %d, want %d", q.Len(), EventQueueCapacity)
	}
	if !q.TakeOverflow() {
		t.Error("overflow flag not set")
	}
	if q.TakeOverflow() {
		t.Error("overflow flag did not clear on take")
	}

	// The oldest event (pin 0) was dropped; exactly C remain in order.
	for i := 1; i <= EventQueueCapacity; i++ {
		ev, ok := q.Pop()
		if !ok || ev.Pin != uint8(i) {
			t.Fatalf("Pop = %+v ok=%v, want pin %d", ev, ok, i)
		}
	}
}

func TestNotifierFiltersUnarmedEdges(t *testing.T) {
	store := NewStore()
	var q EventQueue
	n := NewNotifier(store, &q)

	// Nothing armed: edges are dropped.
	n.PinChange(3, true)
	if q.Len() != 0 {
		t.Fatalf("unarmed edge enqueued, Len = %d", q.Len())
	}

	// Arm rising on pin 3 only.
	store.SetBits(RegIntRise, pinBit(3))

	n.PinChange(3, false) // falling, not armed
	n.PinChange(4, true)  // wrong pin
	if q.Len() != 0 {
		t.Fatalf("filtered edges enqueued, Len = %d", q.Len())
	}

	SetTime(1234)
	n.PinChange(3, true)
	ev, ok := q.Pop()
	if !ok {
		t.Fatal("armed edge not enqueued")
	}
	if ev.Pin != 3 || ev.Value != 1 || ev.Cause != EventCauseRising || ev.Ticks != 1234 {
		t.Errorf("event = %+v", ev)
	}

	// INTF and INTCAP track the event.
	if store.Peek(RegIntF)&pinBit(3) == 0 {
		t.Error("INTF bit not set")
	}
	if store.Peek(RegIntCap)&pinBit(3) == 0 {
		t.Error("INTCAP bit not set")
	}
}

func TestNotifierOverflowSetsStatus(t *testing.T) {
	store := NewStore()
	var q EventQueue
	n := NewNotifier(store, &q)

	store.SetBits(RegIntRise, pinBit(0))
	for i := 0; i <= EventQueueCapacity; i++ {
		n.PinChange(0, true)
	}

	if store.Peek(RegStatus)&StatusBitOverflow == 0 {
		t.Error("STATUS overflow bit not set after ring overflow")
	}
}
