//go:build tinygo

package core

import "sync/atomic"

// On hardware the main loop writes the tick count while the blocking driver
// may read it from another goroutine, so tick storage goes through atomics.

var systemTicksValue uint32

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}
