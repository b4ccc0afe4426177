//go:build rp2040

package pio

import (
	"gostep/core"
)

var (
	// PIO allocation tracking
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{}
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// InitCoilBanks registers the coil bank factory with the sequencer core.
// Every motor configured afterwards gets its own bank.
func InitCoilBanks() {
	core.SetCoilBackendFactory(newCoilBank)
}

func newCoilBank() core.CoilBackend {
	return &coilBank{}
}

// coilBank picks its implementation at Init time: PIO when the motor's
// wires are consecutive and a state machine is free, SIO register writes
// otherwise.
type coilBank struct {
	impl core.CoilBackend
}

func (b *coilBank) Init(pins []core.GPIOPin) error {
	if consecutivePins(pins) {
		if pioNum, smNum, ok := allocatePIO(); ok {
			p := NewPIOCoilBank(pioNum, smNum)
			if err := p.Init(pins); err == nil {
				b.impl = p
				return nil
			}
			freePIO(pioNum, smNum)
		}
	}

	s := NewSIOCoilBank()
	if err := s.Init(pins); err != nil {
		return err
	}
	b.impl = s
	return nil
}

func (b *coilBank) Latch(mask uint32) {
	b.impl.Latch(mask)
}

func (b *coilBank) Release() {
	b.impl.Release()
}

func (b *coilBank) GetName() string {
	return b.impl.GetName()
}

// allocatePIO claims a PIO state machine, round-robin across both blocks.
// Returns (pioNum, smNum, ok).
func allocatePIO() (uint8, uint8, bool) {
	for i := 0; i < 8; i++ {
		pioNum := nextPIONum
		smNum := nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}

	return 0, 0, false
}

// freePIO returns a state machine claimed by allocatePIO
func freePIO(pioNum, smNum uint8) {
	pioAllocations[pioNum][smNum] = false
}

// ResetPIOAllocations clears all claims (for reconfiguration after reset)
func ResetPIOAllocations() {
	pioAllocations = [2][4]bool{}
	nextPIONum = 0
	nextSMNum = 0
}
