package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// MotionEvent captures a timing-critical motor event for post-mortem analysis
type MotionEvent struct {
	EventType uint8  // Event type code
	OID       uint8  // Motor object ID
	Clock     uint32 // System clock at event
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtMoveArmed  = 1 // motion request accepted
	EvtStepTaken  = 2 // paced advance executed
	EvtTimerStart = 3 // motion timer scheduled
	EvtCoilsOff   = 4 // coils de-energized
	EvtInterrupt  = 5 // blocking loop interrupted
)

const (
	MotionRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	// Disabled by default so it never affects pacing
	debugEnabled bool = false

	// Motion capture ring buffer (non-blocking, for post-mortem)
	motionRing     [MotionRingSize]MotionEvent
	motionRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordMotion captures a motor event in the ring buffer
// Always non-blocking and fast enough for the stepping path
func RecordMotion(eventType, oid uint8, clock, value uint32) {
	idx := motionRingHead
	motionRing[idx] = MotionEvent{
		EventType: eventType,
		OID:       oid,
		Clock:     clock,
		Value:     value,
	}
	motionRingHead = (idx + 1) % MotionRingSize
}

// DumpMotionRing outputs the motion ring buffer (call on shutdown/error)
func DumpMotionRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[MOTION] === Motion Ring Dump ===")

	// Read from oldest to newest
	start := motionRingHead
	for i := uint8(0); i < MotionRingSize; i++ {
		idx := (start + i) % MotionRingSize
		evt := &motionRing[idx]
		if evt.EventType == 0 {
			continue // Empty slot
		}

		var name string
		switch evt.EventType {
		case EvtMoveArmed:
			name = "MOVE_ARMED"
		case EvtStepTaken:
			name = "STEP_TAKEN"
		case EvtTimerStart:
			name = "TIMER_START"
		case EvtCoilsOff:
			name = "COILS_OFF"
		case EvtInterrupt:
			name = "INTERRUPT"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[MOTION] " + name +
			" oid=" + itoa(int(evt.OID)) +
			" clock=" + utoa(evt.Clock) +
			" val=" + utoa(evt.Value))
	}
	debugPrintln("[MOTION] === End Dump ===")
}

// ClearMotionRing clears the motion buffer
func ClearMotionRing() {
	for i := range motionRing {
		motionRing[i] = MotionEvent{}
	}
	motionRingHead = 0
}
