package core

// Speed to pacing-interval conversion. Intervals are whole microseconds at
// the core clock frequency. A non-positive speed or steps-per-revolution
// resolves to interval 0, which the sequencer treats as "pacing disabled"
// and never passes to the divisions below.

// StepIntervalRPM returns the microseconds between whole steps at the given
// speed in revolutions per minute.
func StepIntervalRPM(stepsPerRev uint32, rpm int32) uint32 {
	if stepsPerRev == 0 || rpm <= 0 {
		return 0
	}
	return 60 * 1000 * 1000 / stepsPerRev / uint32(rpm)
}

// StepIntervalPPS returns the microseconds between whole steps at the given
// speed in steps (pulses) per second.
func StepIntervalPPS(pps int32) uint32 {
	if pps <= 0 {
		return 0
	}
	return 1000 * 1000 / uint32(pps)
}

// PPSFromRPM converts revolutions per minute to steps per second for a motor
// with the given resolution.
func PPSFromRPM(stepsPerRev uint32, rpm int32) int32 {
	if rpm <= 0 {
		return 0
	}
	return int32(stepsPerRev) * rpm / 60
}
