//go:build rp2040

package main

import (
	"machine"

	"gostep/core"
)

// RP2040GPIO implements core.GPIODriver on top of TinyGo's machine package.
// Pins map one to one onto GPIO numbers (gpio0 = 0 and so on).
type RP2040GPIO struct {
	configured map[core.GPIOPin]machine.Pin
}

// NewRP2040GPIO creates the board GPIO driver
func NewRP2040GPIO() *RP2040GPIO {
	return &RP2040GPIO{
		configured: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output. Reconfiguring an
// already configured pin is a no-op.
func (d *RP2040GPIO) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configured[pin]; exists {
		return nil
	}
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configured[pin] = mp
	return nil
}

// SetPin drives the pin high or low, configuring it first if needed
func (d *RP2040GPIO) SetPin(pin core.GPIOPin, value bool) error {
	mp, exists := d.configured[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		mp = d.configured[pin]
	}
	mp.Set(value)
	return nil
}

// GetPin reads the pin state. Unconfigured pins read as low.
func (d *RP2040GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	mp, exists := d.configured[pin]
	if !exists {
		return false, nil
	}
	return mp.Get(), nil
}
