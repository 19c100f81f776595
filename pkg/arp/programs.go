package arp

// ProgType names a stored arpeggiator program, compiled from a generator
// at device construction (spec §4.3, grounded on arp_progs.c's switch
// over ARP_TYPE_* program variants).
type ProgType int

const (
	ProgUp ProgType = iota
	ProgDown
	ProgUpDown
	ProgRandom
	ProgNoteOrder
	ProgNoDupUpDown
	ProgRepeat
	ProgUpLow
	ProgDownHigh
)

// regOctave holds the current octave offset counter used by the
// ascending/descending generators below (general register 0).
const regOctave = 0

// labels used by the generators below; label ids only need to be unique
// within one compiled program.
const (
	lblOctaveTop = iota
	lblAscend
	lblNextOctave
	lblDescend
	lblPrevOctave
	lblDone
)

// GenerateProgram compiles the stored program identified by (kind,
// octaves) into a ready-to-run *Program. octaves is clamped to 1..4 per
// spec §4.3.
func GenerateProgram(kind ProgType, octaves int) (*Program, error) {
	if octaves < 1 {
		octaves = 1
	}
	if octaves > 4 {
		octaves = 4
	}

	switch kind {
	case ProgUp:
		return Compile(generateUp(octaves))
	case ProgDown:
		return Compile(generateDown(octaves))
	case ProgUpDown:
		return Compile(generateUpDown(octaves, true))
	case ProgNoDupUpDown:
		return Compile(generateUpDown(octaves, false))
	case ProgRandom:
		return Compile(generateRandom(octaves))
	case ProgNoteOrder:
		return Compile(generateNoteOrder(octaves))
	case ProgRepeat:
		return Compile(generateRepeat(octaves))
	case ProgUpLow:
		return Compile(generateUpLow(octaves))
	case ProgDownHigh:
		return Compile(generateDownHigh(octaves))
	default:
		return Compile(generateUp(octaves))
	}
}

// generateUp emits: for octave in 0..octaves-1, ascend through every
// held note low to high, then wrap to octave 0. Matches scenario S5:
// Up2 over {C4,E4,G4} emits C4,E4,G4,C5,E5,G5.
func generateUp(octaves int) []Instruction {
	const lblWrap = lblDone + 1
	return []Instruction{
		{Op: OpLoadL, Arg: 0},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLabel, Arg: lblOctaveTop},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpMulL, Arg: 12},
		{Op: OpStoreF, Arg: RegNoteOffset},
		{Op: OpFindLowest, Arg: lblNextOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpLabel, Arg: lblAscend},
		{Op: OpFindHigher, Arg: lblNextOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblAscend},
		{Op: OpLabel, Arg: lblNextOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpAddL, Arg: 1},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpSubL, Arg: octaves},
		{Op: OpJZ, Arg: lblWrap},
		{Op: OpJump, Arg: lblOctaveTop},
		{Op: OpLabel, Arg: lblWrap},
		{Op: OpLoadL, Arg: 0},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpJump, Arg: lblOctaveTop},
	}
}

// generateDown mirrors generateUp, descending from highest to lowest,
// octave count decreasing.
func generateDown(octaves int) []Instruction {
	const lblWrap = lblDone + 1
	return []Instruction{
		{Op: OpLoadL, Arg: 0},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLabel, Arg: lblOctaveTop},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpMulL, Arg: -12},
		{Op: OpStoreF, Arg: RegNoteOffset},
		{Op: OpFindHighest, Arg: lblNextOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpLabel, Arg: lblDescend},
		{Op: OpFindLower, Arg: lblNextOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblDescend},
		{Op: OpLabel, Arg: lblNextOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpAddL, Arg: 1},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpSubL, Arg: octaves},
		{Op: OpJZ, Arg: lblWrap},
		{Op: OpJump, Arg: lblOctaveTop},
		{Op: OpLabel, Arg: lblWrap},
		{Op: OpLoadL, Arg: 0},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpJump, Arg: lblOctaveTop},
	}
}

// generateUpDown ascends through every octave, then descends from the
// top octave back to octave 0, and repeats. With repeatEnds true
// (UpDown) the top note ends the ascending leg and is played again to
// start the descending leg. With repeatEnds false (NoDupUpDown) the top
// note is not repeated at that turn. In both variants the lowest note
// ends the descending leg and is played again to start the next
// ascending leg.
func generateUpDown(octaves int, repeatEnds bool) []Instruction {
	const (
		lblUpTop = lblDone + 1 + iota
		lblUpAscend
		lblDownTop
		lblDownDescend
		lblNextUpOctave
		lblNextDownOctave
		lblSkipTopDup
		lblDownPlay
	)

	instrs := []Instruction{
		{Op: OpLoadL, Arg: 0},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLabel, Arg: lblUpTop},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpMulL, Arg: 12},
		{Op: OpStoreF, Arg: RegNoteOffset},
		{Op: OpFindLowest, Arg: lblNextUpOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpLabel, Arg: lblUpAscend},
		{Op: OpFindHigher, Arg: lblNextUpOctave},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblUpAscend},
		{Op: OpLabel, Arg: lblNextUpOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpAddL, Arg: 1},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpSubL, Arg: octaves},
		{Op: OpJZ, Arg: lblDownTop},
		{Op: OpJump, Arg: lblUpTop},

		{Op: OpLabel, Arg: lblDownTop},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpSubL, Arg: 1},
		{Op: OpStoreF, Arg: regOctave},
		{Op: OpLoadF, Arg: regOctave},
		{Op: OpMulL, Arg: 12},
		{Op: OpStoreF, Arg: RegNoteOffset},
	}

	if repeatEnds {
		instrs = append(instrs, Instruction{Op: OpFindHighest, Arg: lblNextDownOctave})
	} else {
		// NoDupUpDown: the topmost note of the ascending leg was already
		// played, so step past it before starting the descending leg.
		instrs = append(instrs,
			Instruction{Op: OpFindHighest, Arg: lblNextDownOctave},
			Instruction{Op: OpFindLower, Arg: lblSkipTopDup},
		)
	}

	instrs = append(instrs,
		Instruction{Op: OpLabel, Arg: lblDownPlay},
		Instruction{Op: OpPlayNoteAndWait},
		Instruction{Op: OpLabel, Arg: lblSkipTopDup},
		Instruction{Op: OpLabel, Arg: lblDownDescend},
		Instruction{Op: OpFindLower, Arg: lblNextDownOctave},
		Instruction{Op: OpPlayNoteAndWait},
		Instruction{Op: OpJump, Arg: lblDownDescend},
		Instruction{Op: OpLabel, Arg: lblNextDownOctave},
		Instruction{Op: OpLoadF, Arg: regOctave},
		Instruction{Op: OpJZ, Arg: lblUpTop},
		Instruction{Op: OpSubL, Arg: 1},
		Instruction{Op: OpStoreF, Arg: regOctave},
		Instruction{Op: OpMulL, Arg: 12},
		Instruction{Op: OpStoreF, Arg: RegNoteOffset},
		Instruction{Op: OpFindHighest, Arg: lblNextDownOctave},
		Instruction{Op: OpJump, Arg: lblDownPlay},
	)

	return instrs
}

// generateRandom plays a random held note every step, forever.
func generateRandom(octaves int) []Instruction {
	const lblTop = 0
	return []Instruction{
		{Op: OpLabel, Arg: lblTop},
		{Op: OpFindRandom, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblTop},
	}
}

// generateNoteOrder plays held notes in insertion order, oldest first,
// looping back to the oldest once the newest has played.
func generateNoteOrder(octaves int) []Instruction {
	const (
		lblTop = iota
		lblNext
	)
	return []Instruction{
		{Op: OpLabel, Arg: lblTop},
		{Op: OpFindOldest, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpLabel, Arg: lblNext},
		{Op: OpFindNewer, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblNext},
	}
}

// generateRepeat repeats the lowest held note on every step.
func generateRepeat(octaves int) []Instruction {
	const lblTop = 0
	return []Instruction{
		{Op: OpLabel, Arg: lblTop},
		{Op: OpFindLowest, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblTop},
	}
}

// generateUpLow ascends through the held notes but always returns to the
// lowest note between each step up (a "low-note pedal" pattern).
func generateUpLow(octaves int) []Instruction {
	const (
		lblTop = iota
		lblHigh
	)
	return []Instruction{
		{Op: OpLabel, Arg: lblTop},
		{Op: OpFindLowest, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpFindHigher, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblTop},
	}
}

// generateDownHigh mirrors generateUpLow, pedaling on the highest note.
func generateDownHigh(octaves int) []Instruction {
	const (
		lblTop = iota
	)
	return []Instruction{
		{Op: OpLabel, Arg: lblTop},
		{Op: OpFindHighest, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpFindLower, Arg: lblTop},
		{Op: OpPlayNoteAndWait},
		{Op: OpJump, Arg: lblTop},
	}
}
