// Package arp implements CARBON's per-track arpeggiator: a small
// bytecode VM driven by a snapshot of currently held notes, plus a
// library of stored programs (Up/Down/UpDown/Random/... x 1..4 octaves)
// compiled from generator functions at construction. Grounded on the
// original firmware's src/seq/arp.c and src/seq/arp_progs.c.
package arp

import "github.com/kilpatrickaudio/carbon-core/internal/seqio"

// Opcode is one bytecode VM instruction tag.
type Opcode int

const (
	OpNOP Opcode = iota
	OpSNAPSHOT
	OpFindLowest
	OpFindHighest
	OpFindLower
	OpFindHigher
	OpFindOldest
	OpFindNewest
	OpFindOlder
	OpFindNewer
	OpFindRandom
	OpPlayNote
	OpWait
	OpPlayNoteAndWait
	OpLabel
	OpJump
	OpLoadL
	OpLoadF
	OpStoreF
	OpAddL
	OpSubL
	OpMulL
	OpAddF
	OpSubF
	OpMulF
	OpJZ
	OpRand
)

// RegNoteOffset addresses the special note-offset register via
// LOADF/STOREF/ADDF/SUBF/MULF, distinct from the 16 general registers
// (0..15).
const RegNoteOffset = 16

// NumGeneralRegs is the count of general-purpose registers per track.
const NumGeneralRegs = 16

// MaxLoopCount bounds a single step's instruction execution to prevent
// runaway programs; exceeding it halts and resets the VM (spec §4.3).
const MaxLoopCount = 100

// MaxHeldNotes is the capacity of the held-note set.
const MaxHeldNotes = 8

// MaxPlayingNotes is the capacity of the playing-notes pool.
const MaxPlayingNotes = 8

// MaxProgramLength is the maximum instruction count for a compiled
// program (spec §4.3: "a program is <= 64 instructions").
const MaxProgramLength = 64

// Instruction is one (op, arg) VM instruction. Arg's meaning depends on
// Op: a label id for FIND_*/JUMP/JZ/LABEL, a literal for LOADL/ADDL/
// SUBL/MULL/RAND, a register index (or RegNoteOffset) for LOADF/STOREF/
// ADDF/SUBF/MULF.
type Instruction struct {
	Op  Opcode
	Arg int
}

// heldNote is one entry in the held-note set, tagged with an
// insertion-order sequence number so OLDEST/NEWEST/OLDER/NEWER can
// traverse by recency.
type heldNote struct {
	seq      int64
	pitch    byte
	velocity byte
}

// Program is a compiled instruction sequence plus its resolved label
// table, ready to be run by a Track.
type Program struct {
	Instructions []Instruction
	labels       map[int]int // label id -> instruction index
}

// Compile resolves label ids in instrs into instruction indices and
// returns a ready-to-run Program. Returns seqio.ErrArpProgramHalt if a
// JUMP/JZ/FIND_* target label is never declared via OpLabel.
func Compile(instrs []Instruction) (*Program, error) {
	labels := make(map[int]int)
	for i, instr := range instrs {
		if instr.Op == OpLabel {
			labels[instr.Arg] = i
		}
	}
	for _, instr := range instrs {
		switch instr.Op {
		case OpJump, OpJZ, OpFindLowest, OpFindHighest, OpFindLower, OpFindHigher,
			OpFindOldest, OpFindNewest, OpFindOlder, OpFindNewer, OpFindRandom:
			if _, ok := labels[instr.Arg]; !ok {
				return nil, seqio.ErrArpProgramHalt
			}
		}
	}
	return &Program{Instructions: instrs, labels: labels}, nil
}
