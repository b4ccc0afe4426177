package core

// Core clock frequency. Ticks are whole microseconds; pacing intervals and
// PWM carrier periods share the same unit.
const (
	ClockFreq = 1000000 // 1MHz
)

var (
	systemTicks uint32

	// uptimeSource reads a 64-bit hardware counter when the target
	// provides one; without it uptime is just the 32-bit tick value
	uptimeSource func() uint64
)

// GetTime returns the current system time in clock ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// SetUptimeSource registers the target's 64-bit counter for uptime reads
func SetUptimeSource(f func() uint64) {
	uptimeSource = f
}

// GetUptime returns 64-bit uptime in clock ticks
func GetUptime() uint64 {
	if uptimeSource != nil {
		return uptimeSource()
	}
	return uint64(GetTime())
}

// TimerInit clears the timer schedule
func TimerInit() {
	timerList = nil
}

// ProcessTimers processes scheduled timers
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
