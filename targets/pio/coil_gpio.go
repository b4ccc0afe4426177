//go:build rp2040

package pio

import (
	"machine"

	"device/rp"

	"gostep/core"
)

// SIOCoilBank implements core.CoilBackend with direct SIO register writes.
// It is the fallback when the motor's wires are not consecutive or no PIO
// state machine is free. One GPIO_OUT_SET plus one GPIO_OUT_CLR write per
// pattern, so all wires still change within a few clock cycles.
type SIOCoilBank struct {
	masks [8]uint32 // per-wire pin mask, in table order
	count int
	all   uint32 // union of all wire masks
}

// NewSIOCoilBank creates the register-write coil bank
func NewSIOCoilBank() *SIOCoilBank {
	return &SIOCoilBank{}
}

// Init configures the motor's control wires as outputs and caches their
// pin masks for Latch
func (b *SIOCoilBank) Init(pins []core.GPIOPin) error {
	b.count = len(pins)
	b.all = 0
	for i, pin := range pins {
		mp := machine.Pin(pin)
		mp.Configure(machine.PinConfig{Mode: machine.PinOutput})
		mp.Low()

		mask := uint32(1) << uint32(pin)
		b.masks[i] = mask
		b.all |= mask
	}
	return nil
}

// Latch applies a coil pattern, bit i carrying the level of wire i
func (b *SIOCoilBank) Latch(mask uint32) {
	var set, clr uint32
	for i := 0; i < b.count; i++ {
		if mask&(1<<uint(i)) != 0 {
			set |= b.masks[i]
		} else {
			clr |= b.masks[i]
		}
	}
	rp.SIO.GPIO_OUT_SET.Set(set)
	rp.SIO.GPIO_OUT_CLR.Set(clr)
}

// Release drives every wire low
func (b *SIOCoilBank) Release() {
	rp.SIO.GPIO_OUT_CLR.Set(b.all)
}

// GetName returns the backend name
func (b *SIOCoilBank) GetName() string {
	return "sio"
}
