//go:build !tinygo

package core

// State stands in for the saved interrupt mask on hosted Go builds
type State uintptr

// irqSave is a no-op on hosted Go; tests run single-threaded against the
// timer list
func irqSave() State {
	return 0
}

// irqRestore is a no-op on hosted Go
func irqRestore(state State) {
}
