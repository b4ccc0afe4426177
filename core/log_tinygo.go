//go:build tinygo

package core

import (
	tinygologger "github.com/ralvarezdev/tinygo-logger"
)

// motionLogger is the optional structured logger for motor events. Target
// code with a configured logger registers it at startup; nil disables
// structured logging and events fall through to the debug writer.
var motionLogger tinygologger.Logger

// SetMotionLogger registers the structured logger used for motor events
func SetMotionLogger(l tinygologger.Logger) {
	motionLogger = l
}

// logMotorEvent reports a motor event through the structured logger when
// one is registered, else through the debug writer
func logMotorEvent(prefix []byte, value uint32) {
	if motionLogger != nil {
		motionLogger.AddMessageWithUint32(prefix, value, true, true, false)
		motionLogger.Debug()
		return
	}
	if debugEnabled {
		DebugPrintln(string(prefix) + " " + utoa(value))
	}
}
