package core

// Topology identifies the coil wiring scheme of an attached stepper motor.
// It determines how many control wires the motor uses, which pattern table
// applies, and whether the drive uses PWM microstepping.
type Topology uint8

const (
	// TopologyTwoWire drives a bipolar motor through an inverting driver
	// stage with 2 control wires.
	TopologyTwoWire Topology = iota

	// TopologyThreeWire drives a three-phase motor with 3 control wires.
	TopologyThreeWire

	// TopologyFourWire drives a unipolar or bipolar motor with 4 control
	// wires.
	TopologyFourWire

	// TopologyFiveWire drives a five-phase motor with 5 control wires.
	TopologyFiveWire

	// TopologyMicrostep2 drives a bipolar motor through 2 direction wires
	// plus 2 PWM enable wires carrying the coil intensities.
	TopologyMicrostep2

	// TopologyMicrostep4 drives a bipolar motor through 4 H-bridge wires
	// plus 2 PWM enable wires carrying the coil intensities.
	TopologyMicrostep4

	topologyCount
)

// topologyInfo is the per-topology dispatch record. Pattern emission and
// cycle-length logic both read from this single table instead of branching
// on pin count at every step.
type topologyInfo struct {
	name        string
	pinCount    uint8 // digital control wires in use
	cycleLength uint8 // pattern rows before the sequence repeats
	microstep   bool  // coil intensities carried on PWM wires
}

var topologyTable = [topologyCount]topologyInfo{
	TopologyTwoWire:    {name: "2wire", pinCount: 2, cycleLength: 4},
	TopologyThreeWire:  {name: "3wire", pinCount: 3, cycleLength: 6},
	TopologyFourWire:   {name: "4wire", pinCount: 4, cycleLength: 4},
	TopologyFiveWire:   {name: "5wire", pinCount: 5, cycleLength: 10},
	TopologyMicrostep2: {name: "micro2wire", pinCount: 2, cycleLength: 4, microstep: true},
	TopologyMicrostep4: {name: "micro4wire", pinCount: 4, cycleLength: 4, microstep: true},
}

// Valid reports whether t names a supported wiring scheme.
func (t Topology) Valid() bool {
	return t < topologyCount
}

// PinCount returns the number of digital control wires for the topology.
func (t Topology) PinCount() int {
	return int(topologyTable[t].pinCount)
}

// CycleLength returns the number of pattern rows before the coil sequence
// repeats.
func (t Topology) CycleLength() uint32 {
	return uint32(topologyTable[t].cycleLength)
}

// Microstepping reports whether the topology carries coil intensities on
// PWM wires.
func (t Topology) Microstepping() bool {
	return topologyTable[t].microstep
}

func (t Topology) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return topologyTable[t].name
}
