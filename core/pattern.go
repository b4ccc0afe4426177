package core

// Coil energization tables. One row per step position (mod cycle length),
// one level per control wire. The rows are fixed constants; the sequencer
// never generates them at runtime.

// Two-wire sequence. The two wires feed an inverting driver stage which
// derives the remaining coil signals.
//
//	row  C0 C1
//	  0   0  1
//	  1   1  1
//	  2   1  0
//	  3   0  0
var twoWireTable = [4][2]uint8{
	{0, 1},
	{1, 1},
	{1, 0},
	{0, 0},
}

// Three-phase six-step commutation sequence. Exactly one phase switches per
// row; rows 3..5 are the bitwise complement of rows 0..2.
//
//	row  C0 C1 C2
//	  0   1  0  0
//	  1   1  1  0
//	  2   0  1  0
//	  3   0  1  1
//	  4   0  0  1
//	  5   1  0  1
var threeWireTable = [6][3]uint8{
	{1, 0, 0},
	{1, 1, 0},
	{0, 1, 0},
	{0, 1, 1},
	{0, 0, 1},
	{1, 0, 1},
}

// Four-wire full-step sequence. Two coils are energized per row, each row
// the complement of the row two positions away.
//
//	row  C0 C1 C2 C3
//	  0   1  0  1  0
//	  1   0  1  1  0
//	  2   0  1  0  1
//	  3   1  0  0  1
var fourWireTable = [4][4]uint8{
	{1, 0, 1, 0},
	{0, 1, 1, 0},
	{0, 1, 0, 1},
	{1, 0, 0, 1},
}

// Five-phase sequence for pentagon-wired motors. Rows alternate between
// three and two energized phases; rows 5..9 are the complement of rows 0..4.
//
//	row  C0 C1 C2 C3 C4
//	  0   0  1  1  0  1
//	  1   0  1  0  0  1
//	  2   0  1  0  1  1
//	  3   0  1  0  1  0
//	  4   1  1  0  1  0
//	  5   1  0  0  1  0
//	  6   1  0  1  1  0
//	  7   1  0  1  0  0
//	  8   1  0  1  0  1
//	  9   0  0  1  0  1
var fiveWireTable = [10][5]uint8{
	{0, 1, 1, 0, 1},
	{0, 1, 0, 0, 1},
	{0, 1, 0, 1, 1},
	{0, 1, 0, 1, 0},
	{1, 1, 0, 1, 0},
	{1, 0, 0, 1, 0},
	{1, 0, 1, 1, 0},
	{1, 0, 1, 0, 0},
	{1, 0, 1, 0, 1},
	{0, 0, 1, 0, 1},
}

// CoilLevels returns the per-wire levels for a pattern row. The caller must
// pass row < t.CycleLength(). The returned slice aliases the constant table
// and must not be modified.
func CoilLevels(t Topology, row uint32) []uint8 {
	switch t {
	case TopologyThreeWire:
		return threeWireTable[row][:]
	case TopologyFourWire, TopologyMicrostep4:
		return fourWireTable[row][:]
	case TopologyFiveWire:
		return fiveWireTable[row][:]
	default:
		return twoWireTable[row][:]
	}
}

// CoilMask packs per-wire levels into a bitmask, bit i carrying the level of
// wire i. Batch backends latch the whole mask in one operation.
func CoilMask(levels []uint8) uint32 {
	var mask uint32
	for i, lv := range levels {
		if lv != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
