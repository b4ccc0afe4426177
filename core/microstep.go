package core

// Microstep intensity tables. Each row is a {sine, cosine} pair for one
// sub-position of a quarter electrical cycle, scaled to 0..100. The full
// cycle spans four quadrants of one table each; sign flips per quadrant
// produce the signed coil drive. Values are round(100*sin(k*90°/n)) and the
// matching cosine, so within a row a²+b² ≈ 100².

// 2 microsteps per step.
var microTable2 = [2][2]int16{
	{0, 100},
	{71, 71},
}

// 4 microsteps per step.
var microTable4 = [4][2]int16{
	{0, 100},
	{38, 92},
	{71, 71},
	{92, 38},
}

// 8 microsteps per step.
var microTable8 = [8][2]int16{
	{0, 100},
	{20, 98},
	{38, 92},
	{56, 83},
	{71, 71},
	{83, 56},
	{92, 38},
	{98, 20},
}

// microTable returns the quarter-cycle table for a microstep resolution.
// Resolutions outside {2,4,8} return nil; NewMicrostepMotor rejects them.
func microTable(microsteps uint8) [][2]int16 {
	switch microsteps {
	case 2:
		return microTable2[:]
	case 4:
		return microTable4[:]
	case 8:
		return microTable8[:]
	default:
		return nil
	}
}

// MicroIntensities returns the signed drive pair for the two coils at an
// electrical position. phase must be in [0, 4*microsteps): quadrant
// phase/microsteps, sub-index phase%microsteps.
func MicroIntensities(microsteps uint8, phase uint32) (a, b int16) {
	table := microTable(microsteps)
	n := uint32(microsteps)
	quadrant := phase / n
	s := table[phase%n][0]
	c := table[phase%n][1]

	switch quadrant {
	case 0:
		return s, c
	case 1:
		return c, -s
	case 2:
		return -s, -c
	default:
		return -c, s
	}
}

// DutyFromIntensity scales a signed intensity to a PWM duty magnitude.
// max is the platform PWM range (PWMDriver.GetMaxValue).
func DutyFromIntensity(v int16, max uint32) PWMValue {
	if v < 0 {
		v = -v
	}
	return PWMValue(uint32(v) * max / 100)
}
