package protocol

import "testing"

func TestCRC16KnownValues(t *testing.T) {
	// Empty input leaves the seed untouched.
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = 0x%04X, want 0xFFFF", got)
	}

	// Same input, same output.
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if CRC16(data) != CRC16(data) {
		t.Error("CRC16 not deterministic")
	}
}

func TestCRC16Different(t *testing.T) {
	data1 := []byte{0x01, 0x02, 0x03}
	data2 := []byte{0x01, 0x02, 0x04}

	crc1 := CRC16(data1)
	crc2 := CRC16(data2)

	if crc1 == crc2 {
		t.Errorf("CRC16 collision: both inputs produced %04X", crc1)
	}
}

func TestCRC16SingleBitSensitivity(t *testing.T) {
	base := []byte{6, MessageDest, 0x01, 0x00}
	crc := CRC16(base)

	for i := range base {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(base))
			copy(flipped, base)
			flipped[i] ^= 1 << bit
			if CRC16(flipped) == crc {
				t.Errorf("flipping byte %d bit %d not detected", i, bit)
			}
		}
	}
}
