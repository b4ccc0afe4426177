package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer adds a timer to the schedule
func ScheduleTimer(t *Timer) {
	state := irqSave()
	defer irqRestore(state)

	// Insert timer in sorted order
	insertTimer(t)
}

// timeBefore reports whether wake time a is earlier than b under the
// modular 32-bit clock, so ordering stays correct across clock wrap
func timeBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// insertTimer inserts a timer in sorted order by WakeTime
func insertTimer(t *Timer) {
	if timerList == nil || timeBefore(t.WakeTime, timerList.WakeTime) {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && timeBefore(current.Next.WakeTime, t.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// CancelTimer removes a timer from the schedule if present
func CancelTimer(t *Timer) {
	state := irqSave()
	defer irqRestore(state)

	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return
	}
	for current := timerList; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// TimerDispatch processes due timers
func TimerDispatch() {
	state := irqSave()
	defer irqRestore(state)

	// Process all timers due at or before currentTime (modular compare,
	// so a wake time just past the clock wrap does not fire early)
	for timerList != nil && !timeBefore(currentTime, timerList.WakeTime) {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references

		// Call handler
		result := timer.Handler(timer)

		// Reschedule if requested
		if result == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
}
