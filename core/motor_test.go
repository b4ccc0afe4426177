package core

import "testing"

func TestNewMotorValidation(t *testing.T) {
	setupMotorTest(t)

	// Microstepping topology through the digital constructor
	if _, err := NewMotor(0, TopologyMicrostep4, []GPIOPin{1, 2, 3, 4}, 200); err == nil {
		t.Error("expected error for microstep topology on NewMotor")
	}

	// Pin count mismatch
	if _, err := NewMotor(0, TopologyFourWire, []GPIOPin{1, 2}, 200); err == nil {
		t.Error("expected error for wrong pin count")
	}

	// OID out of range
	if _, err := NewMotor(MotorMaxCount, TopologyFourWire, []GPIOPin{1, 2, 3, 4}, 200); err == nil {
		t.Error("expected error for OID out of range")
	}

	// Zero resolution
	if _, err := NewMotor(0, TopologyFourWire, []GPIOPin{1, 2, 3, 4}, 0); err == nil {
		t.Error("expected error for zero steps per revolution")
	}

	// Digital topology through the microstep constructor
	if _, err := NewMicrostepMotor(0, TopologyFourWire, []GPIOPin{1, 2, 3, 4}, 10, 11, 200, 8); err == nil {
		t.Error("expected error for digital topology on NewMicrostepMotor")
	}

	// Unsupported microstep resolution
	if _, err := NewMicrostepMotor(0, TopologyMicrostep2, []GPIOPin{1, 2}, 10, 11, 200, 3); err == nil {
		t.Error("expected error for 3 microsteps")
	}
}

func TestNewMotorConfiguresPins(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, err := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 2048)
	if err != nil {
		t.Fatalf("NewMotor: %v", err)
	}

	for _, pin := range []GPIOPin{4, 5, 6, 7} {
		if !gpio.configured[pin] {
			t.Errorf("pin %d not configured as output", pin)
		}
	}

	if m.Version() != DriverVersion {
		t.Errorf("Version() = %d, want %d", m.Version(), DriverVersion)
	}

	if GetMotor(0) != m {
		t.Error("motor not registered under its OID")
	}
	if GetMotor(1) != nil {
		t.Error("unconfigured OID returned a motor")
	}
}

func TestMotorStepsExactCount(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 2048)
	m.SetSpeedPPS(1000)
	if m.StepInterval != 1000 {
		t.Fatalf("interval = %d, want 1000", m.StepInterval)
	}

	m.Move(8)
	for i := 0; i < 8; i++ {
		stepOnce(t, m)
	}
	if m.StepsLeft != 0 {
		t.Fatalf("StepsLeft = %d after 8 steps", m.StepsLeft)
	}
	if m.StepIndex != 8 {
		t.Errorf("StepIndex = %d, want 8", m.StepIndex)
	}

	// Further advances must not move a finished motor
	SetTime(GetTime() + 10000)
	m.Advance()
	if m.StepIndex != 8 {
		t.Errorf("finished motor moved to index %d", m.StepIndex)
	}
}

func TestMotorPacingGate(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(100) // 10ms interval
	m.Move(5)

	// Not due yet: repeated polls take nothing
	SetTime(5000)
	for i := 0; i < 10; i++ {
		m.Advance()
	}
	if m.StepsLeft != 5 {
		t.Fatalf("steps taken before the interval elapsed, StepsLeft = %d", m.StepsLeft)
	}

	// Due: exactly one step per poll regardless of how late
	SetTime(50000)
	m.Advance()
	if m.StepsLeft != 4 {
		t.Fatalf("expected one step, StepsLeft = %d", m.StepsLeft)
	}
	m.Advance()
	if m.StepsLeft != 4 {
		t.Fatalf("second poll at same time took a step, StepsLeft = %d", m.StepsLeft)
	}
}

func TestMotorPacingAcrossClockRollover(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)
	m.Move(2)

	// Step just before the uint32 clock wraps
	base := uint32(0xFFFFFE00)
	SetTime(base)
	m.Advance()
	if m.StepsLeft != 1 {
		t.Fatalf("StepsLeft = %d, want 1", m.StepsLeft)
	}

	// The next step is due 1000 ticks later, past the wrap point
	SetTime(base + 1000)
	m.Advance()
	if m.StepsLeft != 0 {
		t.Errorf("rollover stalled pacing, StepsLeft = %d", m.StepsLeft)
	}
}

func TestMotorZeroSpeedNeverMoves(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.Move(5)

	SetTime(1000000)
	m.Advance()
	if m.StepsLeft != 5 || m.StepIndex != 0 {
		t.Error("motor moved with pacing disabled")
	}

	// A blocking drive must refuse to spin forever
	if left := m.Run(); left != 5 {
		t.Errorf("Run() = %d, want 5", left)
	}

	// Negative speed is the same as zero
	m.SetSpeedRPM(-10)
	SetTime(2000000)
	m.Advance()
	if m.StepsLeft != 5 {
		t.Error("motor moved with negative speed")
	}
}

func TestMotorPatternOrderForward(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 2048)
	m.SetSpeedPPS(1000)
	m.Move(8)

	for i := 0; i < 8; i++ {
		stepOnce(t, m)
		wantRow := CoilLevels(TopologyFourWire, m.StepIndex%4)
		if got := coilRow(gpio, m); !rowsEqual(got, wantRow) {
			t.Errorf("step %d: coils %v, want %v", i+1, got, wantRow)
		}
	}
}

func TestFiveWireCycleOrder(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFiveWire, []GPIOPin{1, 2, 3, 4, 5}, 10)
	m.SetSpeedPPS(500)
	m.Move(10)

	// Ten steps walk the whole table: rows 1..9 then back to 0
	for i := 0; i < 10; i++ {
		stepOnce(t, m)
		wantRow := CoilLevels(TopologyFiveWire, m.StepIndex%10)
		if got := coilRow(gpio, m); !rowsEqual(got, wantRow) {
			t.Errorf("step %d: coils %v, want %v", i+1, got, wantRow)
		}
	}
	if m.StepIndex != 0 {
		t.Errorf("full revolution should return to index 0, got %d", m.StepIndex)
	}
}

func TestMotorReverseRoundTrip(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)

	m.Move(5)
	for i := 0; i < 5; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 5 {
		t.Fatalf("forward leg ended at %d, want 5", m.StepIndex)
	}

	m.Move(-5)
	for i := 0; i < 5; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 0 {
		t.Fatalf("return leg ended at %d, want 0", m.StepIndex)
	}

	// Phase-correct return: coils show row 0 again
	if got := coilRow(gpio, m); !rowsEqual(got, CoilLevels(TopologyFourWire, 0)) {
		t.Errorf("coils %v after round trip, want row 0", got)
	}
}

func TestMotorReverseWrapsRevolution(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)

	m.Move(-3)
	for i := 0; i < 3; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 197 {
		t.Errorf("reverse from 0 ended at %d, want 197", m.StepIndex)
	}
}

func TestMotorMoveZeroKeepsDirection(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)

	m.Move(-3)
	if m.Forward {
		t.Fatal("Move(-3) should select reverse")
	}

	m.Move(0)
	if m.StepsLeft != 0 {
		t.Errorf("Move(0) armed %d steps", m.StepsLeft)
	}
	if m.Forward {
		t.Error("Move(0) changed direction")
	}
}

func TestMotorRunCompletes(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 2048)
	m.SetSpeedPPS(1000)
	SetYieldHook(func() {
		SetTime(GetTime() + 500)
	})

	m.Move(50)
	if left := m.Run(); left != 0 {
		t.Fatalf("Run() = %d, want 0", left)
	}
	if m.StepIndex != 50 {
		t.Errorf("StepIndex = %d, want 50", m.StepIndex)
	}
}

func TestMotorInterruptAndResume(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 2048)
	m.SetSpeedPPS(1000)
	m.Move(2048)

	SetYieldHook(func() {
		SetTime(GetTime() + 1000)
		if m.StepsLeft == 1748 {
			m.Interrupt()
		}
	})

	if left := m.Run(); left != 1748 {
		t.Fatalf("interrupted Run() = %d, want 1748", left)
	}
	if !m.Interrupted() {
		t.Fatal("interrupt flag should stay set until cleared")
	}

	// The flag holds: a new Run exits immediately
	if left := m.Run(); left != 1748 {
		t.Fatalf("Run() with flag set = %d, want 1748", left)
	}

	// After clearing, a fresh motion runs to completion
	m.ClearInterrupt()
	m.Move(100)
	if left := m.Run(); left != 0 {
		t.Fatalf("resumed Run() = %d, want 0", left)
	}
}

func TestMotorStopPreservesState(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)
	m.Move(10)
	for i := 0; i < 3; i++ {
		stepOnce(t, m)
	}

	m.Stop()

	for i := 0; i < 4; i++ {
		if gpio.levels[m.Pins[i]] {
			t.Errorf("pin %d still driven after Stop", m.Pins[i])
		}
	}
	if m.StepIndex != 3 || m.StepsLeft != 7 {
		t.Errorf("Stop altered motion state: index %d, left %d", m.StepIndex, m.StepsLeft)
	}

	// Motion resumes phase-correctly from where it stopped
	stepOnce(t, m)
	if m.StepIndex != 4 {
		t.Errorf("resume stepped to %d, want 4", m.StepIndex)
	}
}

func TestTwoWireStopIsNoOp(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyTwoWire, []GPIOPin{8, 9}, 200)
	m.SetSpeedPPS(1000)
	m.Move(1)
	stepOnce(t, m)

	// Step 1 drives row 1 = {1, 1}
	if !gpio.levels[8] || !gpio.levels[9] {
		t.Fatal("expected both wires driven at row 1")
	}

	m.Stop()
	if !gpio.levels[8] || !gpio.levels[9] {
		t.Error("Stop changed two-wire levels; both wires always drive a coil input")
	}
}

func TestReleaseModeStopsOnCompletion(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)
	m.ReleaseMode = true

	m.Move(4)
	for i := 0; i < 4; i++ {
		stepOnce(t, m)
	}

	for i := 0; i < 4; i++ {
		if gpio.levels[m.Pins[i]] {
			t.Errorf("pin %d still driven after release-mode completion", m.Pins[i])
		}
	}
	if m.StepIndex != 4 {
		t.Errorf("release mode altered position: %d", m.StepIndex)
	}
}

func TestHoldModeKeepsCoilsEnergized(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m.SetSpeedPPS(1000)

	m.Move(4)
	for i := 0; i < 4; i++ {
		stepOnce(t, m)
	}

	// Default mode holds the final pattern for torque
	if got := coilRow(gpio, m); !rowsEqual(got, CoilLevels(TopologyFourWire, 0)) {
		t.Errorf("coils %v after hold-mode completion, want row 0", got)
	}
}

func TestCoilBackendLatch(t *testing.T) {
	setupMotorTest(t)

	backend := &recordingBackend{}
	SetCoilBackendFactory(func() CoilBackend { return backend })

	m, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	if m.Backend == nil {
		t.Fatal("backend factory not used")
	}

	m.SetSpeedPPS(1000)
	m.Move(4)
	for i := 0; i < 4; i++ {
		stepOnce(t, m)
	}

	want := []uint32{
		CoilMask(CoilLevels(TopologyFourWire, 1)),
		CoilMask(CoilLevels(TopologyFourWire, 2)),
		CoilMask(CoilLevels(TopologyFourWire, 3)),
		CoilMask(CoilLevels(TopologyFourWire, 0)),
	}
	if len(backend.masks) != len(want) {
		t.Fatalf("latched %d masks, want %d", len(backend.masks), len(want))
	}
	for i := range want {
		if backend.masks[i] != want[i] {
			t.Errorf("mask %d = %04b, want %04b", i, backend.masks[i], want[i])
		}
	}

	m.Stop()
	if !backend.released {
		t.Error("Stop did not release the backend")
	}
}

func TestMicrostepMotorCountsMicrosteps(t *testing.T) {
	_, pwm := setupMotorTest(t)

	m, err := NewMicrostepMotor(0, TopologyMicrostep2, []GPIOPin{2, 3}, 10, 11, 200, 8)
	if err != nil {
		t.Fatalf("NewMicrostepMotor: %v", err)
	}

	m.SetSpeedPPS(100)
	if m.StepInterval != 10000 {
		t.Fatalf("StepInterval = %d, want 10000", m.StepInterval)
	}
	if m.MicroInterval != 1250 {
		t.Fatalf("MicroInterval = %d, want 1250", m.MicroInterval)
	}
	// Carrier follows the microstep rate: 1250/8 = 156 ticks
	if pwm.carrier[10] != 156 || pwm.carrier[11] != 156 {
		t.Errorf("carrier = %d/%d, want 156", pwm.carrier[10], pwm.carrier[11])
	}

	// Eight paced advances complete exactly one whole step
	m.Move(8)
	for i := 0; i < 8; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 1 || m.MicroIndex != 0 {
		t.Errorf("position = %d.%d, want 1.0", m.StepIndex, m.MicroIndex)
	}
}

func TestMicrostepDutyAndDirection(t *testing.T) {
	gpio, pwm := setupMotorTest(t)

	m, _ := NewMicrostepMotor(0, TopologyMicrostep2, []GPIOPin{2, 3}, 10, 11, 200, 8)
	m.SetSpeedPPS(100)

	m.Move(1)
	stepOnce(t, m)

	// First microstep: phase 1 of the electrical cycle, both coils positive
	a, b := MicroIntensities(8, 1)
	if pwm.duty[10] != DutyFromIntensity(a, 255) {
		t.Errorf("coil A duty = %d, want %d", pwm.duty[10], DutyFromIntensity(a, 255))
	}
	if pwm.duty[11] != DutyFromIntensity(b, 255) {
		t.Errorf("coil B duty = %d, want %d", pwm.duty[11], DutyFromIntensity(b, 255))
	}
	if !gpio.levels[2] || !gpio.levels[3] {
		t.Error("direction wires should both be high in quadrant 0")
	}

	// Walk into quadrant 1 where coil B reverses
	m.Move(11) // to phase 12
	for i := 0; i < 11; i++ {
		stepOnce(t, m)
	}
	a, b = MicroIntensities(8, 12)
	if b >= 0 {
		t.Fatal("phase 12 should drive coil B negative")
	}
	if gpio.levels[3] {
		t.Error("coil B direction wire should be low for negative drive")
	}
	if pwm.duty[11] != DutyFromIntensity(b, 255) {
		t.Errorf("coil B duty = %d, want %d", pwm.duty[11], DutyFromIntensity(b, 255))
	}
}

func TestMicrostepStopClearsDuty(t *testing.T) {
	gpio, pwm := setupMotorTest(t)

	m, _ := NewMicrostepMotor(0, TopologyMicrostep4, []GPIOPin{2, 3, 4, 5}, 10, 11, 200, 4)
	m.SetSpeedPPS(100)
	m.Move(3)
	for i := 0; i < 3; i++ {
		stepOnce(t, m)
	}

	m.Stop()
	if pwm.duty[10] != 0 || pwm.duty[11] != 0 {
		t.Errorf("duty = %d/%d after Stop, want 0/0", pwm.duty[10], pwm.duty[11])
	}
	for _, pin := range []GPIOPin{2, 3, 4, 5} {
		if gpio.levels[pin] {
			t.Errorf("bridge pin %d still driven after Stop", pin)
		}
	}
}

func TestMicrostepReverseReturnsPhase(t *testing.T) {
	setupMotorTest(t)

	m, _ := NewMicrostepMotor(0, TopologyMicrostep4, []GPIOPin{2, 3, 4, 5}, 10, 11, 200, 4)
	m.SetSpeedPPS(100)

	m.Move(7)
	for i := 0; i < 7; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 1 || m.MicroIndex != 3 {
		t.Fatalf("forward leg at %d.%d, want 1.3", m.StepIndex, m.MicroIndex)
	}

	m.Move(-7)
	for i := 0; i < 7; i++ {
		stepOnce(t, m)
	}
	if m.StepIndex != 0 || m.MicroIndex != 0 {
		t.Errorf("return leg at %d.%d, want 0.0", m.StepIndex, m.MicroIndex)
	}
}

func TestStopAllMotors(t *testing.T) {
	gpio, _ := setupMotorTest(t)

	m1, _ := NewMotor(0, TopologyFourWire, []GPIOPin{4, 5, 6, 7}, 200)
	m2, _ := NewMotor(1, TopologyFiveWire, []GPIOPin{10, 11, 12, 13, 14}, 200)
	m1.SetSpeedPPS(1000)
	m2.SetSpeedPPS(1000)
	m1.Move(100)
	m2.Move(100)
	stepOnce(t, m1)
	stepOnce(t, m2)

	StopAllMotors()

	if m1.StepsLeft != 0 || m2.StepsLeft != 0 {
		t.Error("StopAllMotors left motion armed")
	}
	for _, pin := range []GPIOPin{4, 5, 6, 7, 10, 11, 12, 13, 14} {
		if gpio.levels[pin] {
			t.Errorf("pin %d still driven after StopAllMotors", pin)
		}
	}
}
