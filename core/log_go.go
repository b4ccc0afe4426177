//go:build !tinygo

package core

// logMotorEvent reports a motor event through the debug writer (regular Go
// builds have no structured logger attached)
func logMotorEvent(prefix []byte, value uint32) {
	if debugEnabled {
		DebugPrintln(string(prefix) + " " + utoa(value))
	}
}
