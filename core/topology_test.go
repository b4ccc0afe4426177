package core

import "testing"

func TestTopologyProperties(t *testing.T) {
	cases := []struct {
		topo      Topology
		name      string
		pins      int
		cycle     uint32
		microstep bool
	}{
		{TopologyTwoWire, "2wire", 2, 4, false},
		{TopologyThreeWire, "3wire", 3, 6, false},
		{TopologyFourWire, "4wire", 4, 4, false},
		{TopologyFiveWire, "5wire", 5, 10, false},
		{TopologyMicrostep2, "micro2wire", 2, 4, true},
		{TopologyMicrostep4, "micro4wire", 4, 4, true},
	}

	for _, tc := range cases {
		if !tc.topo.Valid() {
			t.Errorf("%s: not valid", tc.name)
		}
		if got := tc.topo.String(); got != tc.name {
			t.Errorf("String() = %q, want %q", got, tc.name)
		}
		if got := tc.topo.PinCount(); got != tc.pins {
			t.Errorf("%s: PinCount() = %d, want %d", tc.name, got, tc.pins)
		}
		if got := tc.topo.CycleLength(); got != tc.cycle {
			t.Errorf("%s: CycleLength() = %d, want %d", tc.name, got, tc.cycle)
		}
		if got := tc.topo.Microstepping(); got != tc.microstep {
			t.Errorf("%s: Microstepping() = %v, want %v", tc.name, got, tc.microstep)
		}
	}
}

func TestTopologyInvalid(t *testing.T) {
	bad := Topology(99)
	if bad.Valid() {
		t.Error("Topology(99) reported valid")
	}
	if bad.String() != "invalid" {
		t.Errorf("String() = %q, want \"invalid\"", bad.String())
	}
}
