//go:build rp2040

package main

import "machine"

// initUSB configures USB CDC-ACM. On the RP2040 machine.Serial is the
// USB CDC endpoint, not a hardware UART; the descriptors are set by
// TinyGo's runtime and the baud rate is ignored.
func initUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

func usbAvailable() int {
	return machine.Serial.Buffered()
}

func usbRead() (byte, error) {
	return machine.Serial.ReadByte()
}

func usbWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
