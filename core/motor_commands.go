package core

import (
	"errors"

	"gostep/protocol"
)

// Motor command handlers for the wire protocol
// Implements: config_motor, motor_set_speed_rpm, motor_set_speed_pps,
// motor_move, motor_off, motor_set_release, motor_get_position

// RegisterMotorCommands registers all motor-related commands
func RegisterMotorCommands() {
	// config_motor: initialize a motor on a wiring topology.
	// All five pin slots are always sent; unused slots are zero.
	// pwm_a/pwm_b are only meaningful for microstepping topologies.
	RegisterCommand("config_motor",
		"oid=%c topology=%c pin1=%c pin2=%c pin3=%c pin4=%c pin5=%c steps_per_rev=%u microsteps=%c pwm_a=%c pwm_b=%c",
		cmdConfigMotor)

	// motor_set_speed_rpm: set pacing from revolutions per minute
	RegisterCommand("motor_set_speed_rpm",
		"oid=%c rpm=%i",
		cmdMotorSetSpeedRPM)

	// motor_set_speed_pps: set pacing from pulses per second
	RegisterCommand("motor_set_speed_pps",
		"oid=%c pps=%i",
		cmdMotorSetSpeedPPS)

	// motor_move: arm a relative move and start timer-driven stepping
	RegisterCommand("motor_move",
		"oid=%c steps=%i",
		cmdMotorMove)

	// motor_off: cancel motion and de-energize the coils
	RegisterCommand("motor_off",
		"oid=%c",
		cmdMotorOff)

	// motor_set_release: choose hold or release when a motion completes
	RegisterCommand("motor_set_release",
		"oid=%c release=%c",
		cmdMotorSetRelease)

	// motor_get_position: query current position
	RegisterCommand("motor_get_position",
		"oid=%c",
		cmdMotorGetPosition)

	// Response: position query result
	RegisterResponse("motor_position", "oid=%c step=%u microstep=%c steps_left=%u")
}

// cmdConfigMotor handles config_motor
func cmdConfigMotor(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	topo, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	topology := Topology(topo)
	if !topology.Valid() {
		return errors.New("unknown topology")
	}

	var rawPins [5]uint32
	for i := range rawPins {
		rawPins[i], err = protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
	}

	stepsPerRev, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	microsteps, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pwmA, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pwmB, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pins := make([]GPIOPin, topology.PinCount())
	for i := range pins {
		pins[i] = GPIOPin(rawPins[i])
	}

	if topology.Microstepping() {
		_, err = NewMicrostepMotor(uint8(oid), topology, pins,
			PWMPin(pwmA), PWMPin(pwmB), stepsPerRev, uint8(microsteps))
	} else {
		_, err = NewMotor(uint8(oid), topology, pins, stepsPerRev)
	}
	return err
}

// cmdMotorSetSpeedRPM handles motor_set_speed_rpm
func cmdMotorSetSpeedRPM(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	rpm, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	motor.SetSpeedRPM(rpm)
	return nil
}

// cmdMotorSetSpeedPPS handles motor_set_speed_pps
func cmdMotorSetSpeedPPS(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	pps, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	motor.SetSpeedPPS(pps)
	return nil
}

// cmdMotorMove arms a move and schedules the motor's event timer.
// The command returns immediately; stepping happens from the timer list.
func cmdMotorMove(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	steps, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	motor.ClearInterrupt()
	motor.Move(steps)
	motor.StartTimer()
	return nil
}

// cmdMotorOff cancels any pending motion and de-energizes the coils.
// Position and remaining step count are preserved.
func cmdMotorOff(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	motor.Interrupt()
	CancelTimer(&motor.EventTimer)
	motor.Stop()
	return nil
}

// cmdMotorSetRelease handles motor_set_release
func cmdMotorSetRelease(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	release, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	motor.ReleaseMode = release != 0
	return nil
}

// cmdMotorGetPosition handles motor_get_position
func cmdMotorGetPosition(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	motor := GetMotor(uint8(oid))
	if motor == nil {
		return errors.New("motor not found")
	}

	SendResponse("motor_position", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, oid)
		protocol.EncodeVLQUint(output, motor.StepIndex)
		protocol.EncodeVLQUint(output, uint32(motor.MicroIndex))
		protocol.EncodeVLQUint(output, motor.StepsLeft)
	})

	return nil
}
