package core

import "testing"

func TestUptimeFollowsRegisteredSource(t *testing.T) {
	defer SetUptimeSource(nil)

	SetTime(1234)
	if got := GetUptime(); got != 1234 {
		t.Errorf("uptime without source = %d, want tick value 1234", got)
	}

	// With a 64-bit source registered, uptime must not truncate to the
	// 32-bit tick
	SetUptimeSource(func() uint64 { return 0x123456789A })
	if got := GetUptime(); got != 0x123456789A {
		t.Errorf("uptime = %#x, want %#x", got, uint64(0x123456789A))
	}
}

func TestTimerInitClearsSchedule(t *testing.T) {
	defer func() { timerList = nil }()

	ScheduleTimer(&Timer{
		WakeTime: 100,
		Handler:  func(*Timer) uint8 { return SF_DONE },
	})
	if timerList == nil {
		t.Fatal("timer not scheduled")
	}

	TimerInit()
	if timerList != nil {
		t.Error("schedule not empty after TimerInit")
	}
}
