//go:build rp2040

package main

import (
	"errors"

	tinygoerrors "github.com/ralvarezdev/tinygo-errors"
)

const (
	// ErrorCodeRP2040StartNumber is the starting number for board-level
	// error codes.
	ErrorCodeRP2040StartNumber uint16 = 6100
)

const (
	ErrorCodeRP2040FailedToConfigurePWM tinygoerrors.ErrorCode = tinygoerrors.ErrorCode(iota + ErrorCodeRP2040StartNumber)
	ErrorCodeRP2040FailedToGetPWMChannel
	ErrorCodeRP2040PWMPinNotConfigured
	ErrorCodeRP2040InvalidPWMSlice
)

// codeError converts a board error code into a plain error for the driver
// interfaces, which report failures back over the wire as error values.
func codeError(code tinygoerrors.ErrorCode) error {
	switch code {
	case tinygoerrors.ErrorCodeNil:
		return nil
	case ErrorCodeRP2040FailedToConfigurePWM:
		return errors.New("pwm slice configuration failed")
	case ErrorCodeRP2040FailedToGetPWMChannel:
		return errors.New("pin has no channel on its pwm slice")
	case ErrorCodeRP2040PWMPinNotConfigured:
		return errors.New("pwm pin not configured")
	case ErrorCodeRP2040InvalidPWMSlice:
		return errors.New("pwm slice number out of range")
	default:
		return errors.New("board error")
	}
}
