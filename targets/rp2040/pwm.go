//go:build rp2040

package main

import (
	"machine"

	tinygoerrors "github.com/ralvarezdev/tinygo-errors"
	tinygopwm "github.com/ralvarezdev/tinygo-pwm"

	"gostep/core"
)

// pwmMax is the duty range exposed to the sequencer (8-bit)
const pwmMax = 255

// pwmChannel records the hardware binding of one configured PWM pin
type pwmChannel struct {
	pwm      tinygopwm.PWM
	channel  uint8
	periodNs uint32
}

// RP2040PWM implements core.PWMDriver using the RP2040's 8 PWM slices.
// GPIO pin N lands on slice (N>>1)&7, channel N&1. Both microstep carrier
// pins of a motor should sit on different slices so their periods never
// conflict; same-slice pins share one period and the later Configure wins.
type RP2040PWM struct {
	channels map[uint32]pwmChannel
}

// NewRP2040PWM creates the board PWM driver
func NewRP2040PWM() *RP2040PWM {
	return &RP2040PWM{
		channels: make(map[uint32]pwmChannel),
	}
}

// GetMaxValue returns the top of the duty range
func (d *RP2040PWM) GetMaxValue() uint32 {
	return pwmMax
}

// ConfigureHardwarePWM binds a pin to its PWM slice with the given carrier
// period. cycleTicks is in microseconds (sequencer clock ticks).
func (d *RP2040PWM) ConfigureHardwarePWM(pin core.PWMPin, cycleTicks uint32) (uint32, error) {
	pinNum := uint32(pin)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, code := pwmForSlice(sliceNum)
	if code != tinygoerrors.ErrorCodeNil {
		return 0, codeError(code)
	}

	periodNs := uint64(cycleTicks) * 1000
	if err := pwm.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
		return 0, codeError(ErrorCodeRP2040FailedToConfigurePWM)
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return 0, codeError(ErrorCodeRP2040FailedToGetPWMChannel)
	}

	d.channels[pinNum] = pwmChannel{
		pwm:      pwm,
		channel:  channel,
		periodNs: uint32(periodNs),
	}
	return cycleTicks, nil
}

// SetDutyCycle sets the duty on a configured pin. value 0 is fully off,
// pwmMax fully on.
func (d *RP2040PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	ch, exists := d.channels[uint32(pin)]
	if !exists {
		return codeError(ErrorCodeRP2040PWMPinNotConfigured)
	}

	pulse := uint32((uint64(ch.periodNs) * uint64(value)) / pwmMax)
	tinygopwm.SetDuty(ch.pwm, ch.channel, pulse, ch.periodNs)
	return nil
}

// DisablePWM forces the pin's output low and forgets its binding. The pin
// stays in PWM function but with zero duty it idles low.
func (d *RP2040PWM) DisablePWM(pin core.PWMPin) error {
	ch, exists := d.channels[uint32(pin)]
	if !exists {
		return nil
	}
	tinygopwm.SetDuty(ch.pwm, ch.channel, 0, ch.periodNs)
	delete(d.channels, uint32(pin))
	return nil
}

// pwmForSlice returns the machine PWM peripheral for a slice number
func pwmForSlice(sliceNum uint8) (tinygopwm.PWM, tinygoerrors.ErrorCode) {
	switch sliceNum {
	case 0:
		return machine.PWM0, tinygoerrors.ErrorCodeNil
	case 1:
		return machine.PWM1, tinygoerrors.ErrorCodeNil
	case 2:
		return machine.PWM2, tinygoerrors.ErrorCodeNil
	case 3:
		return machine.PWM3, tinygoerrors.ErrorCodeNil
	case 4:
		return machine.PWM4, tinygoerrors.ErrorCodeNil
	case 5:
		return machine.PWM5, tinygoerrors.ErrorCodeNil
	case 6:
		return machine.PWM6, tinygoerrors.ErrorCodeNil
	case 7:
		return machine.PWM7, tinygoerrors.ErrorCodeNil
	default:
		return nil, ErrorCodeRP2040InvalidPWMSlice
	}
}
