package core

import (
	"testing"

	"gostep/protocol"
)

// dispatchByName encodes args and invokes a registered command handler the
// way the transport would
func dispatchByName(t *testing.T, name string, encode func(out protocol.OutputBuffer)) error {
	t.Helper()

	cmd, ok := GetGlobalRegistry().GetCommandByName(name)
	if !ok {
		t.Fatalf("command %q not registered", name)
	}

	out := protocol.NewScratchOutput()
	if encode != nil {
		encode(out)
	}
	data := out.Result()
	return cmd.Handler(&data)
}

func configFourWire(t *testing.T, oid uint32) {
	t.Helper()
	err := dispatchByName(t, "config_motor", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, oid)
		protocol.EncodeVLQUint(out, uint32(TopologyFourWire))
		for _, pin := range []uint32{4, 5, 6, 7, 0} {
			protocol.EncodeVLQUint(out, pin)
		}
		protocol.EncodeVLQUint(out, 200) // steps_per_rev
		protocol.EncodeVLQUint(out, 0)   // microsteps
		protocol.EncodeVLQUint(out, 0)   // pwm_a
		protocol.EncodeVLQUint(out, 0)   // pwm_b
	})
	if err != nil {
		t.Fatalf("config_motor: %v", err)
	}
}

func TestConfigMotorCommand(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()

	configFourWire(t, 0)

	m := GetMotor(0)
	if m == nil {
		t.Fatal("config_motor did not register a motor")
	}
	if m.Topology != TopologyFourWire || m.StepsPerRev != 200 {
		t.Errorf("motor misconfigured: topology %s, steps %d", m.Topology, m.StepsPerRev)
	}

	// Invalid topology is rejected
	err := dispatchByName(t, "config_motor", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 1)
		protocol.EncodeVLQUint(out, 99)
		for i := 0; i < 9; i++ {
			protocol.EncodeVLQUint(out, 0)
		}
	})
	if err == nil {
		t.Error("expected error for unknown topology")
	}
}

func TestConfigMicrostepMotorCommand(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()

	err := dispatchByName(t, "config_motor", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQUint(out, uint32(TopologyMicrostep2))
		for _, pin := range []uint32{2, 3, 0, 0, 0} {
			protocol.EncodeVLQUint(out, pin)
		}
		protocol.EncodeVLQUint(out, 200) // steps_per_rev
		protocol.EncodeVLQUint(out, 8)   // microsteps
		protocol.EncodeVLQUint(out, 10)  // pwm_a
		protocol.EncodeVLQUint(out, 11)  // pwm_b
	})
	if err != nil {
		t.Fatalf("config_motor: %v", err)
	}

	m := GetMotor(0)
	if m == nil || m.Microsteps != 8 {
		t.Fatal("microstep motor not configured")
	}
	if m.PWMPins[0] != 10 || m.PWMPins[1] != 11 {
		t.Errorf("PWM pins = %d/%d, want 10/11", m.PWMPins[0], m.PWMPins[1])
	}
}

func TestSpeedCommands(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()
	configFourWire(t, 0)

	err := dispatchByName(t, "motor_set_speed_rpm", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQInt(out, 15)
	})
	if err != nil {
		t.Fatalf("motor_set_speed_rpm: %v", err)
	}
	if got := GetMotor(0).StepInterval; got != 20000 {
		t.Errorf("interval after 15 rpm = %d, want 20000", got)
	}

	err = dispatchByName(t, "motor_set_speed_pps", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQInt(out, 500)
	})
	if err != nil {
		t.Fatalf("motor_set_speed_pps: %v", err)
	}
	if got := GetMotor(0).StepInterval; got != 2000 {
		t.Errorf("interval after 500 pps = %d, want 2000", got)
	}

	// Unknown OID
	err = dispatchByName(t, "motor_set_speed_rpm", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 5)
		protocol.EncodeVLQInt(out, 15)
	})
	if err == nil {
		t.Error("expected error for unconfigured motor")
	}
}

func TestMoveCommandDrivesTimer(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()
	configFourWire(t, 0)

	err := dispatchByName(t, "motor_set_speed_pps", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQInt(out, 1000)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = dispatchByName(t, "motor_move", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQInt(out, 5)
	})
	if err != nil {
		t.Fatalf("motor_move: %v", err)
	}

	m := GetMotor(0)
	if m.StepsLeft != 5 {
		t.Fatalf("StepsLeft = %d after motor_move, want 5", m.StepsLeft)
	}
	if timerList == nil {
		t.Fatal("motor_move did not schedule the event timer")
	}

	for tick := uint32(0); tick <= 10000 && m.StepsLeft > 0; tick += 500 {
		SetTime(tick)
		ProcessTimers()
	}
	if m.StepsLeft != 0 || m.StepIndex != 5 {
		t.Errorf("after timer loop: left %d, index %d", m.StepsLeft, m.StepIndex)
	}
}

func TestMotorOffCommand(t *testing.T) {
	gpio, _ := setupMotorTest(t)
	RegisterMotorCommands()
	configFourWire(t, 0)

	m := GetMotor(0)
	m.SetSpeedPPS(1000)
	m.Move(10)
	m.StartTimer()
	stepOnce(t, m)

	err := dispatchByName(t, "motor_off", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
	})
	if err != nil {
		t.Fatalf("motor_off: %v", err)
	}

	if timerList != nil {
		t.Error("motor_off left the event timer scheduled")
	}
	for i := 0; i < 4; i++ {
		if gpio.levels[m.Pins[i]] {
			t.Errorf("pin %d still driven after motor_off", m.Pins[i])
		}
	}
	// Position and remaining count survive for a later resume
	if m.StepIndex != 1 || m.StepsLeft != 9 {
		t.Errorf("motor_off altered state: index %d, left %d", m.StepIndex, m.StepsLeft)
	}
}

func TestSetReleaseCommand(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()
	configFourWire(t, 0)

	err := dispatchByName(t, "motor_set_release", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQUint(out, 1)
	})
	if err != nil {
		t.Fatalf("motor_set_release: %v", err)
	}
	if !GetMotor(0).ReleaseMode {
		t.Error("release mode not enabled")
	}

	err = dispatchByName(t, "motor_set_release", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQUint(out, 0)
	})
	if err != nil {
		t.Fatal(err)
	}
	if GetMotor(0).ReleaseMode {
		t.Error("release mode not disabled")
	}
}

func TestGetPositionCommand(t *testing.T) {
	setupMotorTest(t)
	RegisterMotorCommands()
	configFourWire(t, 0)

	output := protocol.NewScratchOutput()
	SetGlobalTransport(protocol.NewTransport(output, nil))
	t.Cleanup(func() { SetGlobalTransport(nil) })

	m := GetMotor(0)
	m.SetSpeedPPS(1000)
	m.Move(10)
	for i := 0; i < 3; i++ {
		stepOnce(t, m)
	}

	err := dispatchByName(t, "motor_get_position", func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
	})
	if err != nil {
		t.Fatalf("motor_get_position: %v", err)
	}

	frame := output.Result()
	if len(frame) < protocol.MessageLengthMin {
		t.Fatalf("no response frame emitted")
	}
	payload := frame[protocol.MessageHeaderSize : int(frame[0])-protocol.MessageTrailerSize]

	cmdID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := GetGlobalRegistry().GetCommandByName("motor_position")
	if uint16(cmdID) != want.ID {
		t.Fatalf("response command %d, want %d (motor_position)", cmdID, want.ID)
	}

	oid, _ := protocol.DecodeVLQUint(&payload)
	step, _ := protocol.DecodeVLQUint(&payload)
	micro, _ := protocol.DecodeVLQUint(&payload)
	left, _ := protocol.DecodeVLQUint(&payload)

	if oid != 0 || step != 3 || micro != 0 || left != 7 {
		t.Errorf("position response = oid %d step %d micro %d left %d, want 0/3/0/7", oid, step, micro, left)
	}
}

func TestEmergencyStopCommand(t *testing.T) {
	gpio, _ := setupMotorTest(t)
	InitCoreCommands()
	RegisterMotorCommands()
	configFourWire(t, 0)

	m := GetMotor(0)
	m.SetSpeedPPS(1000)
	m.Move(100)
	m.StartTimer()
	stepOnce(t, m)

	err := dispatchByName(t, "emergency_stop", nil)
	if err != nil {
		t.Fatalf("emergency_stop: %v", err)
	}

	if m.StepsLeft != 0 {
		t.Error("emergency_stop left motion armed")
	}
	for i := 0; i < 4; i++ {
		if gpio.levels[m.Pins[i]] {
			t.Errorf("pin %d still driven after emergency_stop", m.Pins[i])
		}
	}
	if !IsShutdown() {
		t.Error("shutdown flag not set")
	}

	ResetFirmwareState()
	if IsShutdown() {
		t.Error("shutdown flag survived ResetFirmwareState")
	}
}

func TestConfigResetClearsMotors(t *testing.T) {
	setupMotorTest(t)
	InitCoreCommands()
	RegisterMotorCommands()
	configFourWire(t, 0)

	if GetMotor(0) == nil {
		t.Fatal("motor not configured")
	}

	if err := dispatchByName(t, "config_reset", nil); err != nil {
		t.Fatalf("config_reset: %v", err)
	}
	if GetMotor(0) != nil {
		t.Error("config_reset left a motor registered")
	}
}
