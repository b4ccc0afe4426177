//go:build rp2040

package pio

// PIO coil bank: latches a motor's whole wire pattern in a single state
// machine operation, so multi-wire patterns never glitch through
// intermediate states the way sequential per-pin writes can.

import (
	"errors"

	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"gostep/core"
)

// buildCoilProgram creates the latch program using AssemblerV0.
// Each FIFO word carries one coil pattern; OUT drives all wires at once.
//
//	.wrap_target
//	    pull block
//	    out pins, <wireCount>
//	.wrap
func buildCoilProgram(wireCount uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}

	// out pins, n drives n consecutive pins from the OUT base, so the bit
	// count must match the wire count exactly
	var out uint16
	switch wireCount {
	case 2:
		out = asm.Out(rp2pio.OutDestPins, 2).Encode()
	case 3:
		out = asm.Out(rp2pio.OutDestPins, 3).Encode()
	case 4:
		out = asm.Out(rp2pio.OutDestPins, 4).Encode()
	default:
		out = asm.Out(rp2pio.OutDestPins, 5).Encode()
	}

	return []uint16{
		asm.Pull(false, true).Encode(), // 0: pull block
		out,                            // 1: out pins, n
	}
}

const coilPIOOrigin = 0 // Load at offset 0 for correct jump addresses

var errPinsNotConsecutive = errors.New("pio coil bank needs consecutive pins")

// PIOCoilBank implements core.CoilBackend on one PIO state machine.
// OUT pin groups are hardware-consecutive, so the motor's control wires
// must occupy adjacent GPIOs starting at the lowest-numbered one.
type PIOCoilBank struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	base   machine.Pin
	count  uint8
	offset uint8
	pioNum uint8
	smNum  uint8
}

// NewPIOCoilBank creates a coil bank on the given PIO block and state machine
func NewPIOCoilBank(pioNum, smNum uint8) *PIOCoilBank {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	return &PIOCoilBank{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		pioNum: pioNum,
		smNum:  smNum,
	}
}

// Init loads the latch program and points the state machine's OUT group at
// the motor's control wires. pins must be consecutive ascending GPIOs.
func (b *PIOCoilBank) Init(pins []core.GPIOPin) error {
	if !consecutivePins(pins) {
		return errPinsNotConsecutive
	}
	b.base = machine.Pin(pins[0])
	b.count = uint8(len(pins))

	b.sm.TryClaim()

	program := buildCoilProgram(b.count)
	offset, err := b.pio.AddProgram(program, coilPIOOrigin)
	if err != nil {
		return err
	}
	b.offset = offset

	for _, pin := range pins {
		machine.Pin(pin).Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(b.base, b.count)

	// Shift right, autopull disabled (the program pulls explicitly)
	cfg.SetOutShift(true, false, 32)

	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// Pattern rate is set by FIFO writes, not the clock, so a slow
	// divider just keeps the state machine cool
	cfg.SetClkDivIntFrac(1000, 0)

	// Init first, pin directions after (order matters)
	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.base, b.count, true)
	b.sm.SetPinsConsecutive(b.base, b.count, false)

	b.sm.SetEnabled(true)

	return nil
}

// Latch pushes a coil pattern to the state machine, bit i driving wire i
func (b *PIOCoilBank) Latch(mask uint32) {
	for b.sm.IsTxFIFOFull() {
		// Busy wait - the latch program drains one word per pattern
	}
	b.sm.TxPut(mask)
}

// Release drives every wire low
func (b *PIOCoilBank) Release() {
	b.Latch(0)
}

// GetName returns the backend name
func (b *PIOCoilBank) GetName() string {
	return "pio"
}

// consecutivePins reports whether pins form an ascending run like 4,5,6,7
func consecutivePins(pins []core.GPIOPin) bool {
	if len(pins) == 0 {
		return false
	}
	for i := 1; i < len(pins); i++ {
		if pins[i] != pins[i-1]+1 {
			return false
		}
	}
	return true
}
