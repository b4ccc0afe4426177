package core

import "testing"

// mockGPIO records pin configuration and levels in memory
type mockGPIO struct {
	configured map[GPIOPin]bool
	levels     map[GPIOPin]bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		configured: make(map[GPIOPin]bool),
		levels:     make(map[GPIOPin]bool),
	}
}

func (m *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	m.configured[pin] = true
	return nil
}

func (m *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	m.levels[pin] = value
	return nil
}

func (m *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	return m.levels[pin], nil
}

// mockPWM records duty cycles and the last configured carrier period
type mockPWM struct {
	duty    map[PWMPin]PWMValue
	carrier map[PWMPin]uint32
}

func newMockPWM() *mockPWM {
	return &mockPWM{
		duty:    make(map[PWMPin]PWMValue),
		carrier: make(map[PWMPin]uint32),
	}
}

func (m *mockPWM) ConfigureHardwarePWM(pin PWMPin, cycleTicks uint32) (uint32, error) {
	m.carrier[pin] = cycleTicks
	return cycleTicks, nil
}

func (m *mockPWM) SetDutyCycle(pin PWMPin, value PWMValue) error {
	m.duty[pin] = value
	return nil
}

func (m *mockPWM) GetMaxValue() uint32 {
	return 255
}

func (m *mockPWM) DisablePWM(pin PWMPin) error {
	delete(m.duty, pin)
	delete(m.carrier, pin)
	return nil
}

// recordingBackend captures latched coil masks
type recordingBackend struct {
	masks    []uint32
	released bool
}

func (b *recordingBackend) Init(pins []GPIOPin) error { return nil }
func (b *recordingBackend) Latch(mask uint32)         { b.masks = append(b.masks, mask); b.released = false }
func (b *recordingBackend) Release()                  { b.released = true }
func (b *recordingBackend) GetName() string           { return "recording" }

// setupMotorTest installs mock drivers and resets shared state. The
// returned mocks observe everything the sequencer emits.
func setupMotorTest(t *testing.T) (*mockGPIO, *mockPWM) {
	t.Helper()

	gpio := newMockGPIO()
	pwm := newMockPWM()
	SetGPIODriver(gpio)
	SetPWMDriver(pwm)
	SetCoilBackendFactory(nil)
	SetTime(0)
	ResetMotors()
	timerList = nil

	t.Cleanup(func() {
		ResetMotors()
		SetCoilBackendFactory(nil)
		SetYieldHook(func() {})
		timerList = nil
		SetTime(0)
	})

	return gpio, pwm
}

// coilRow reads the motor's control-wire levels back as a pattern row
func coilRow(g *mockGPIO, m *Motor) []uint8 {
	row := make([]uint8, m.Topology.PinCount())
	for i := range row {
		if g.levels[m.Pins[i]] {
			row[i] = 1
		}
	}
	return row
}

func rowsEqual(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stepOnce advances the clock past the pacing interval and performs one
// paced advance
func stepOnce(t *testing.T, m *Motor) {
	t.Helper()
	SetTime(GetTime() + m.activeInterval())
	before := m.StepsLeft
	m.Advance()
	if m.StepsLeft != before-1 {
		t.Fatalf("expected one step, StepsLeft went %d -> %d", before, m.StepsLeft)
	}
}
