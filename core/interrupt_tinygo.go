//go:build tinygo

package core

import "runtime/interrupt"

// irqSave masks interrupts around timer-list mutation and returns the
// previous state
func irqSave() interrupt.State {
	return interrupt.Disable()
}

// irqRestore restores a state saved by irqSave
func irqRestore(state interrupt.State) {
	interrupt.Restore(state)
}
