//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"gostep/core"
)

// RP2040 TIMER peripheral. The raw registers read the free-running 1MHz
// counter without the latching side effects of TIMELR/TIMEHR, so they are
// safe to poll from both the main loop and goroutines.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08 // raw high word
	timerTIMERAWL = timerBase + 0x0C // raw low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock publishes the board's clock identity to the dictionary.
// The RP2040 timer is a 64-bit microsecond counter; TinyGo's runtime has
// already started the tick generators by the time main runs.
func InitClock() {
	core.RegisterConstant("MCU", "rp2040")
	core.RegisterConstant("CLOCK_FREQ", uint32(1000000))
}

// GetHardwareTime returns the low 32 bits of the microsecond counter.
// Motor pacing only ever compares differences, so the 32-bit wrap every
// ~71 minutes is harmless.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit counter. High is read on both
// sides of low to detect a carry during the read.
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime pushes the hardware clock into the sequencer clock.
// Called once per main-loop iteration.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}
