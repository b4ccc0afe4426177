// Package serial abstracts the host's serial link to the motor firmware.
// The Port interface keeps the transport testable with an in-memory
// implementation while production code uses a native port.
package serial

import (
	"io"
)

// Port represents a serial port
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the standard configuration for the firmware link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
