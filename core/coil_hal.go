package core

// CoilBackend defines the hardware abstraction for batch coil-pattern
// output. Implementations can use PIO, port-wide register writes, or other
// methods that latch every control wire in one operation. Without a backend
// the sequencer falls back to per-pin writes through the GPIO driver.
type CoilBackend interface {
	// Init initializes the backend for a motor's control wires.
	// pins: the motor's control wires, in table order
	Init(pins []GPIOPin) error

	// Latch applies a coil pattern, bit i carrying the level of wire i.
	// Should be fast (called once per executed step).
	Latch(mask uint32)

	// Release drives every control wire to the inactive level.
	Release()

	// GetName returns backend implementation name
	GetName() string
}

// Backend factory function (set by platform-specific code). Motors created
// after the factory is registered latch patterns through the backend it
// returns; a nil factory or nil result selects the GPIO fallback.
var coilBackendFactory func() CoilBackend

// SetCoilBackendFactory sets the factory function for creating coil backends
// This should be called by platform-specific initialization code
func SetCoilBackendFactory(factory func() CoilBackend) {
	coilBackendFactory = factory
}
