//go:build rp2040

package main

import (
	"machine"
)

// InitUSB brings up the USB CDC-ACM serial port. On RP2040 machine.Serial
// is the USB CDC endpoint, not a hardware UART; descriptors come from the
// TinyGo runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of buffered input bytes
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from the host
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes a block of bytes to the host
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
