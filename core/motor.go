package core

// Stepper motor sequencing core. Tracks logical position and commanded
// direction, enforces inter-step pacing from the configured speed, and maps
// every executed step to a coil-energization pattern for the motor's wiring
// topology. One sequencer owns one motor's state; only the interrupt flag
// may be touched from another execution context.

import (
	"errors"
	"runtime"
	"sync/atomic"
)

const (
	// MotorMaxCount is the maximum number of motors per MCU
	MotorMaxCount = 8

	// DriverVersion is the capability tag reported to the host
	DriverVersion = 5
)

// PWM carrier period derivation for microstepping: one carrier period per
// pwmCarrierDivisor-th of a microstep, clamped so the hardware is never
// asked for a period shorter than pwmCarrierMinTicks.
const (
	pwmCarrierDivisor  = 8
	pwmCarrierMinTicks = 20
	pwmCarrierDefault  = 100
)

// Motor represents a single stepper motor axis
type Motor struct {
	// Configuration (fixed at construction)
	OID         uint8
	Topology    Topology
	Pins        [5]GPIOPin // control wires, Topology.PinCount() in use
	PWMPins     [2]PWMPin  // intensity wires, microstepping only
	StepsPerRev uint32
	Microsteps  uint8 // 2, 4 or 8; 0 when not microstepping

	// ReleaseMode de-energizes the coils when a motion completes. Position
	// is preserved, the motor can be turned by hand and does not overheat
	// while parked, at the cost of holding torque.
	ReleaseMode bool

	// Motion state, owned by the sequencer
	StepIndex     uint32 // [0, StepsPerRev), wraps
	MicroIndex    uint8  // [0, Microsteps), carries into StepIndex
	Forward       bool
	StepsLeft     uint32
	LastStepTime  uint32 // pacing reference, clock ticks
	StepInterval  uint32 // ticks between whole steps; 0 = pacing disabled
	MicroInterval uint32 // ticks between microsteps

	// interrupted is the blocking-loop cancellation flag. Set from any
	// context via Interrupt; observed once per loop iteration by Run.
	interrupted uint32

	// EventTimer drives the motor from the shared timer list
	EventTimer Timer

	// Backend latches whole patterns in one operation when present
	Backend CoilBackend
}

// Global motor registry
var (
	motors     [MotorMaxCount]*Motor
	motorCount uint8
)

// Log message prefixes (allocated once, escmotor logging style)
var (
	setSpeedPrefix = []byte("motor interval set to:")
	movePrefix     = []byte("motor move armed, steps:")
	offPrefix      = []byte("motor coils released, oid:")
)

// yieldHook is invoked between pacing checks of the blocking loop so that
// simple bare-metal main loops can service other work. Defaults to the
// scheduler yield.
var yieldHook = runtime.Gosched

// SetYieldHook replaces the wait performed between blocking-loop iterations
func SetYieldHook(f func()) {
	if f != nil {
		yieldHook = f
	}
}

// GetMotor returns a motor by OID
func GetMotor(oid uint8) *Motor {
	if oid >= motorCount {
		return nil
	}
	return motors[oid]
}

// NewMotor creates a motor on a digital-only wiring topology.
// Configures every control wire as an output as a side effect.
func NewMotor(oid uint8, topology Topology, pins []GPIOPin, stepsPerRev uint32) (*Motor, error) {
	if !topology.Valid() || topology.Microstepping() {
		return nil, errors.New("invalid topology for digital motor")
	}
	return newMotor(oid, topology, pins, stepsPerRev, 0, 0, 0)
}

// NewMicrostepMotor creates a motor on a PWM microstepping topology.
// pwmA and pwmB carry the coil intensities; microsteps must be 2, 4 or 8.
func NewMicrostepMotor(oid uint8, topology Topology, pins []GPIOPin,
	pwmA, pwmB PWMPin, stepsPerRev uint32, microsteps uint8,
) (*Motor, error) {
	if !topology.Valid() || !topology.Microstepping() {
		return nil, errors.New("invalid topology for microstep motor")
	}
	if microTable(microsteps) == nil {
		return nil, errors.New("microsteps must be 2, 4 or 8")
	}
	return newMotor(oid, topology, pins, stepsPerRev, microsteps, pwmA, pwmB)
}

func newMotor(oid uint8, topology Topology, pins []GPIOPin,
	stepsPerRev uint32, microsteps uint8, pwmA, pwmB PWMPin,
) (*Motor, error) {
	if oid >= MotorMaxCount {
		return nil, errors.New("motor OID exceeds maximum")
	}
	if len(pins) != topology.PinCount() {
		return nil, errors.New("pin count does not match topology")
	}
	if stepsPerRev == 0 {
		return nil, errors.New("steps per revolution must be positive")
	}

	m := &Motor{
		OID:         oid,
		Topology:    topology,
		StepsPerRev: stepsPerRev,
		Microsteps:  microsteps,
		Forward:     true,
	}
	copy(m.Pins[:], pins)

	// Pin-direction setup
	g := MustGPIO()
	for _, pin := range pins {
		if err := g.ConfigureOutput(pin); err != nil {
			return nil, err
		}
	}

	if topology.Microstepping() {
		m.PWMPins[0] = pwmA
		m.PWMPins[1] = pwmB
		p := MustPWM()
		for _, pin := range m.PWMPins {
			if _, err := p.ConfigureHardwarePWM(pin, pwmCarrierDefault); err != nil {
				return nil, err
			}
		}
	} else if coilBackendFactory != nil {
		if backend := coilBackendFactory(); backend != nil {
			if err := backend.Init(pins); err != nil {
				return nil, err
			}
			m.Backend = backend
		}
	}

	m.EventTimer.Handler = m.motionEvent

	// Store in registry
	motors[oid] = m
	if oid >= motorCount {
		motorCount = oid + 1
	}

	return m, nil
}

// Version returns the driver capability tag
func (m *Motor) Version() int {
	return DriverVersion
}

// SetSpeedRPM recomputes the pacing interval from revolutions per minute.
// A speed <= 0 disables pacing: step requests are still accepted but
// produce no motion until a positive speed is set.
func (m *Motor) SetSpeedRPM(rpm int32) {
	m.setInterval(StepIntervalRPM(m.StepsPerRev, rpm))
}

// SetSpeedPPS recomputes the pacing interval from steps per second
func (m *Motor) SetSpeedPPS(pps int32) {
	m.setInterval(StepIntervalPPS(pps))
}

func (m *Motor) setInterval(interval uint32) {
	m.StepInterval = interval
	if m.Microsteps != 0 {
		m.MicroInterval = interval / uint32(m.Microsteps)
		m.configureCarrier()
	}
	logMotorEvent(setSpeedPrefix, interval)
}

// configureCarrier rederives the PWM carrier period from the current pacing
// interval so the intensity wires toggle at a rate suitable for the speed.
func (m *Motor) configureCarrier() {
	if m.MicroInterval == 0 {
		return
	}
	cycle := m.MicroInterval / pwmCarrierDivisor
	if cycle < pwmCarrierMinTicks {
		cycle = pwmCarrierMinTicks
	}
	p := MustPWM()
	for _, pin := range m.PWMPins {
		// Carrier reconfiguration failures leave the previous rate active
		_, _ = p.ConfigureHardwarePWM(pin, cycle)
	}
}

// Move arms a motion request. The sign selects the direction (zero keeps
// the prior direction), the magnitude the number of paced advances; for
// microstepping topologies the count is in microsteps. Move never blocks:
// drive the motion with Run, repeated Advance calls, or StartTimer.
func (m *Motor) Move(steps int32) {
	if steps > 0 {
		m.Forward = true
		m.StepsLeft = uint32(steps)
	} else if steps < 0 {
		m.Forward = false
		m.StepsLeft = uint32(-steps)
	} else {
		m.StepsLeft = 0
	}
	RecordMotion(EvtMoveArmed, m.OID, GetTime(), m.StepsLeft)
	logMotorEvent(movePrefix, m.StepsLeft)
}

// activeInterval returns the pacing interval gating the next advance
func (m *Motor) activeInterval() uint32 {
	if m.Microsteps != 0 {
		return m.MicroInterval
	}
	return m.StepInterval
}

// Advance performs at most one paced step and returns the remaining count.
// Not yet due, no steps remaining, or pacing disabled all leave the state
// untouched. This is the polling driver: call once per scheduler tick until
// it reports zero.
func (m *Motor) Advance() uint32 {
	interval := m.activeInterval()
	if m.StepsLeft == 0 || interval == 0 {
		return m.StepsLeft
	}

	// Modular arithmetic keeps pacing correct across clock rollover
	now := GetTime()
	if now-m.LastStepTime < interval {
		return m.StepsLeft
	}
	m.LastStepTime = now

	m.advancePosition()
	m.StepsLeft--
	m.emit()
	RecordMotion(EvtStepTaken, m.OID, now, m.StepsLeft)

	if m.StepsLeft == 0 && m.ReleaseMode {
		m.Stop()
	}
	return m.StepsLeft
}

// Run drives the armed motion to completion, blocking the caller. The loop
// exits early when the interrupt flag is set, leaving StepsLeft at whatever
// remained; the flag stays set until ClearInterrupt. Prefer Advance or
// StartTimer on platforms with a real scheduler.
func (m *Motor) Run() uint32 {
	// A disabled pacing interval would never finish; refuse to spin
	if m.activeInterval() == 0 {
		return m.StepsLeft
	}
	for m.StepsLeft > 0 {
		if m.Interrupted() {
			RecordMotion(EvtInterrupt, m.OID, GetTime(), m.StepsLeft)
			break
		}
		m.Advance()
		yieldHook()
	}
	return m.StepsLeft
}

// Interrupt requests that a blocking Run loop exit after its current
// pacing check. Safe to call from an interrupt handler or another
// goroutine; setting it twice before it is observed is the same as once.
func (m *Motor) Interrupt() {
	atomic.StoreUint32(&m.interrupted, 1)
}

// ClearInterrupt resets the cancellation flag. Callers must clear before
// the next Run or it will abort instantly.
func (m *Motor) ClearInterrupt() {
	atomic.StoreUint32(&m.interrupted, 0)
}

// Interrupted reports whether the cancellation flag is set
func (m *Motor) Interrupted() bool {
	return atomic.LoadUint32(&m.interrupted) != 0
}

// advancePosition moves the logical position one increment in the
// commanded direction, wrapping at both boundaries. The micro index
// carries a whole step out of its wrap.
func (m *Motor) advancePosition() {
	if m.Microsteps == 0 {
		m.advanceStepIndex()
		return
	}
	if m.Forward {
		m.MicroIndex++
		if m.MicroIndex == m.Microsteps {
			m.MicroIndex = 0
			m.advanceStepIndex()
		}
	} else {
		if m.MicroIndex == 0 {
			m.MicroIndex = m.Microsteps
			m.advanceStepIndex()
		}
		m.MicroIndex--
	}
}

func (m *Motor) advanceStepIndex() {
	if m.Forward {
		m.StepIndex++
		if m.StepIndex == m.StepsPerRev {
			m.StepIndex = 0
		}
	} else {
		if m.StepIndex == 0 {
			m.StepIndex = m.StepsPerRev
		}
		m.StepIndex--
	}
}

// emit drives the coil pattern for the current position
func (m *Motor) emit() {
	if m.Microsteps != 0 {
		m.emitMicro()
		return
	}

	row := m.StepIndex % m.Topology.CycleLength()
	levels := CoilLevels(m.Topology, row)

	if m.Backend != nil {
		m.Backend.Latch(CoilMask(levels))
		return
	}
	g := MustGPIO()
	for i, lv := range levels {
		_ = g.SetPin(m.Pins[i], lv != 0)
	}
}

// emitMicro drives the two coil intensities and their sign wires for the
// current electrical position.
func (m *Motor) emitMicro() {
	phase := (m.StepIndex%4)*uint32(m.Microsteps) + uint32(m.MicroIndex)
	a, b := MicroIntensities(m.Microsteps, phase)

	p := MustPWM()
	max := p.GetMaxValue()
	_ = p.SetDutyCycle(m.PWMPins[0], DutyFromIntensity(a, max))
	_ = p.SetDutyCycle(m.PWMPins[1], DutyFromIntensity(b, max))

	g := MustGPIO()
	if m.Topology == TopologyMicrostep2 {
		// One direction wire per coil
		_ = g.SetPin(m.Pins[0], a >= 0)
		_ = g.SetPin(m.Pins[1], b >= 0)
		return
	}
	// H-bridge pin pair per coil: (high,low), (low,high) or idle
	setBridge(g, m.Pins[0], m.Pins[1], a)
	setBridge(g, m.Pins[2], m.Pins[3], b)
}

func setBridge(g GPIODriver, hi, lo GPIOPin, v int16) {
	_ = g.SetPin(hi, v > 0)
	_ = g.SetPin(lo, v < 0)
}

// Stop de-energizes the coils without altering position or direction, so a
// subsequent motion resumes phase-correctly. An armed motion request is
// left in place. For the bare two-wire topology there is no safe all-off
// level on two always-driven wires, so Stop is a documented no-op there.
func (m *Motor) Stop() {
	switch {
	case m.Microsteps != 0:
		p := MustPWM()
		_ = p.SetDutyCycle(m.PWMPins[0], 0)
		_ = p.SetDutyCycle(m.PWMPins[1], 0)
		g := MustGPIO()
		for i := 0; i < m.Topology.PinCount(); i++ {
			_ = g.SetPin(m.Pins[i], false)
		}
	case m.Topology == TopologyTwoWire:
		// Unsupported: both wires always drive a coil input
		return
	case m.Backend != nil:
		m.Backend.Release()
	default:
		g := MustGPIO()
		for i := 0; i < m.Topology.PinCount(); i++ {
			_ = g.SetPin(m.Pins[i], false)
		}
	}
	RecordMotion(EvtCoilsOff, m.OID, GetTime(), 0)
	logMotorEvent(offPrefix, uint32(m.OID))
}

// StartTimer schedules the armed motion on the shared timer list. The
// firmware main loop drives it through ProcessTimers; each event performs
// one paced advance and reschedules until the count is exhausted.
func (m *Motor) StartTimer() {
	interval := m.activeInterval()
	if interval == 0 || m.StepsLeft == 0 {
		return
	}
	CancelTimer(&m.EventTimer)
	m.EventTimer.WakeTime = GetTime() + interval
	ScheduleTimer(&m.EventTimer)
	RecordMotion(EvtTimerStart, m.OID, m.EventTimer.WakeTime, m.StepsLeft)
}

// motionEvent handles timer events for paced stepping
func (m *Motor) motionEvent(t *Timer) uint8 {
	if m.Advance() == 0 {
		return SF_DONE
	}
	t.WakeTime += m.activeInterval()
	return SF_RESCHEDULE
}

// StopAllMotors halts and de-energizes every registered motor. Used by
// emergency_stop.
func StopAllMotors() {
	for i := uint8(0); i < motorCount; i++ {
		if m := motors[i]; m != nil {
			CancelTimer(&m.EventTimer)
			m.StepsLeft = 0
			m.Stop()
		}
	}
}

// ResetMotors clears the registry for reconfiguration
func ResetMotors() {
	for i := range motors {
		motors[i] = nil
	}
	motorCount = 0
}
