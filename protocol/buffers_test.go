package protocol

import (
	"bytes"
	"testing"
)

func TestFifoBufferBasic(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if !fifo.IsEmpty() {
		t.Error("new buffer should be empty")
	}

	written := fifo.Write([]byte{1, 2, 3})
	if written != 3 {
		t.Errorf("Write returned %d, want 3", written)
	}
	if fifo.Available() != 3 {
		t.Errorf("Available = %d, want 3", fifo.Available())
	}

	out := make([]byte, 3)
	read := fifo.Read(out)
	if read != 3 || !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Errorf("Read = %d %v", read, out)
	}
	if !fifo.IsEmpty() {
		t.Error("buffer should be empty after full read")
	}
}

func TestFifoBufferFull(t *testing.T) {
	// Capacity 4 holds 3 bytes (one slot kept free).
	fifo := NewFifoBuffer(4)

	written := fifo.Write([]byte{1, 2, 3, 4, 5})
	if written != 3 {
		t.Errorf("Write accepted %d bytes, want 3", written)
	}
	if fifo.Free() != 0 {
		t.Errorf("Free = %d, want 0", fifo.Free())
	}

	// Excess bytes are rejected, not merged.
	if fifo.Write([]byte{6}) != 0 {
		t.Error("full buffer accepted a byte")
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(8)

	fifo.Write([]byte{1, 2, 3, 4, 5})
	fifo.Pop(4)
	fifo.Write([]byte{6, 7, 8, 9})

	// Data must come back contiguous even though it wrapped.
	want := []byte{5, 6, 7, 8, 9}
	if !bytes.Equal(fifo.Data(), want) {
		t.Errorf("Data = %v, want %v", fifo.Data(), want)
	}
}

func TestScratchOutputUpdate(t *testing.T) {
	out := NewScratchOutput()

	cursor := out.CurPosition()
	out.Output([]byte{0, 0x10})
	out.Output([]byte{0xAA, 0xBB})

	// Patch the length placeholder the way frame encoding does.
	out.Update(cursor, 7)

	want := []byte{7, 0x10, 0xAA, 0xBB}
	if !bytes.Equal(out.Result(), want) {
		t.Errorf("Result = %v, want %v", out.Result(), want)
	}
	if !bytes.Equal(out.DataSince(cursor), want) {
		t.Errorf("DataSince = %v, want %v", out.DataSince(cursor), want)
	}

	out.Reset()
	if len(out.Result()) != 0 {
		t.Error("Reset did not clear the buffer")
	}
}

func TestScratchOutputConsume(t *testing.T) {
	out := NewScratchOutput()
	out.Output([]byte{1, 2, 3, 4, 5})

	// A partial drain keeps only the unsent tail, at the front.
	out.Consume(2)
	if !bytes.Equal(out.Result(), []byte{3, 4, 5}) {
		t.Errorf("Result = %v, want [3 4 5]", out.Result())
	}

	out.Output([]byte{6})
	if !bytes.Equal(out.Result(), []byte{3, 4, 5, 6}) {
		t.Errorf("Result after append = %v, want [3 4 5 6]", out.Result())
	}

	out.Consume(10)
	if len(out.Result()) != 0 {
		t.Error("over-consume did not empty the buffer")
	}

	out.Output([]byte{7})
	out.Consume(0)
	if !bytes.Equal(out.Result(), []byte{7}) {
		t.Errorf("Result after zero consume = %v, want [7]", out.Result())
	}
}
