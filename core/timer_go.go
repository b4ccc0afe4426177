//go:build !tinygo

package core

// Hosted builds run tests single-goroutine against a simulated clock, so a
// plain variable is enough for tick storage.

func getSystemTicks() uint32 {
	return systemTicks
}

func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
