package arp

import (
	"math/rand"

	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
)

// Emitter receives note events emitted by a Track's interpreter.
type Emitter interface {
	EmitNoteOn(pitch, velocity byte)
	EmitNoteOff(pitch, velocity byte)
}

type playingNote struct {
	active         bool
	pitch          byte
	velocity       byte
	gateCountdown  int
}

// Track is one track's arpeggiator VM instance: held-note state, the
// frozen snapshot, registers, program counter, and the playing-note pool
// used for gate timing (spec §4.3).
type Track struct {
	emitter Emitter
	rng     *rand.Rand

	enabled  bool
	program  *Program
	gateTime int // gate length in ticks for currently playing notes

	held      []heldNote
	heldSeq   int64
	heldVel   byte
	snapshot  []heldNote

	x            int
	lastFoundSeq int64
	regs         [NumGeneralRegs]int
	noteOffset   int
	pc           int

	playing [MaxPlayingNotes]playingNote
}

// NewTrack constructs a Track bound to emitter, with a deterministic
// random source (seed) for the FIND_RANDOM/RAND opcodes.
func NewTrack(emitter Emitter, seed int64) *Track {
	return &Track{
		emitter: emitter,
		rng:     rand.New(rand.NewSource(seed)),
		gateTime: 1,
	}
}

// SetEnabled turns the arpeggiator on/off for this track. Disabling
// stops all currently playing arp notes.
func (t *Track) SetEnabled(on bool) {
	if t.enabled && !on {
		t.StopAllNotes()
	}
	t.enabled = on
}

// Enabled reports whether the arpeggiator is active for this track.
func (t *Track) Enabled() bool { return t.enabled }

// SetProgram installs a compiled program and resets VM state, per spec
// §4.3 ("Stored programs ... are compiled from generators at init").
func (t *Track) SetProgram(p *Program) {
	t.program = p
	t.resetProgram()
}

// SetGateTime sets the per-note gate length in ticks used by PLAY_NOTE
// and PLAY_NOTE_AND_WAIT.
func (t *Track) SetGateTime(ticks int) {
	if ticks < 1 {
		ticks = 1
	}
	t.gateTime = ticks
}

func (t *Track) resetProgram() {
	t.pc = 0
	t.x = 0
	t.noteOffset = 0
	for i := range t.regs {
		t.regs[i] = 0
	}
	t.snapshot = nil
}

// NoteOn adds a held note (spec §4.3: "ordered insertion-indexed set,
// max 8"). Notes beyond capacity are dropped, oldest-first priority
// preserved (new notes simply do not fit until one is released).
func (t *Track) NoteOn(pitch, velocity byte) {
	if len(t.held) >= MaxHeldNotes {
		return
	}
	t.heldSeq++
	t.held = append(t.held, heldNote{seq: t.heldSeq, pitch: pitch, velocity: velocity})
	t.heldVel = velocity
}

// NoteOff releases a held note by pitch, if present.
func (t *Track) NoteOff(pitch byte) {
	for i, n := range t.held {
		if n.pitch == pitch {
			t.held = append(t.held[:i], t.held[i+1:]...)
			return
		}
	}
}

// HeldCount returns how many notes are currently held.
func (t *Track) HeldCount() int { return len(t.held) }

// StopAllNotes emits NoteOff for every currently playing arp note and
// clears the playing pool, without touching held-note state.
func (t *Track) StopAllNotes() {
	for i := range t.playing {
		if t.playing[i].active {
			t.emitter.EmitNoteOff(t.playing[i].pitch, t.playing[i].velocity)
			t.playing[i] = playingNote{}
		}
	}
}

// ManageNotes decrements gate countdowns and emits NoteOff for any
// playing note whose gate has expired. Called once per tick, the same
// way the sequencer engine's active-note pool is serviced (spec §4.3:
// "a per-note countdown in the same pool used by step playback").
func (t *Track) ManageNotes() {
	for i := range t.playing {
		if !t.playing[i].active {
			continue
		}
		t.playing[i].gateCountdown--
		if t.playing[i].gateCountdown <= 0 {
			t.emitter.EmitNoteOff(t.playing[i].pitch, t.playing[i].velocity)
			t.playing[i] = playingNote{}
		}
	}
}

func (t *Track) startPlayingNote(pitch, velocity byte) {
	for i := range t.playing {
		if !t.playing[i].active {
			t.playing[i] = playingNote{active: true, pitch: pitch, velocity: velocity, gateCountdown: t.gateTime}
			t.emitter.EmitNoteOn(pitch, velocity)
			return
		}
	}
	// Pool exhausted: preempt the note nearest to expiry.
	minIdx := 0
	for i := 1; i < len(t.playing); i++ {
		if t.playing[i].gateCountdown < t.playing[minIdx].gateCountdown {
			minIdx = i
		}
	}
	t.emitter.EmitNoteOff(t.playing[minIdx].pitch, t.playing[minIdx].velocity)
	t.playing[minIdx] = playingNote{active: true, pitch: pitch, velocity: velocity, gateCountdown: t.gateTime}
	t.emitter.EmitNoteOn(pitch, velocity)
}

// Run advances the VM by one step tick (spec §4.3's "execution model").
// If no notes are held, all playing notes stop and the program resets.
// Otherwise instructions execute from the current pc until a
// WAIT/PLAY_NOTE_AND_WAIT yields, bounded by MaxLoopCount.
func (t *Track) Run() error {
	if len(t.held) == 0 {
		t.StopAllNotes()
		t.resetProgram()
		return nil
	}
	if t.program == nil {
		return nil
	}

	for iter := 0; iter < MaxLoopCount; iter++ {
		if t.pc < 0 || t.pc >= len(t.program.Instructions) {
			t.resetProgram()
			return seqio.ErrArpProgramHalt
		}
		instr := t.program.Instructions[t.pc]
		yield, err := t.exec(instr)
		if err != nil {
			t.resetProgram()
			return err
		}
		if yield {
			return nil
		}
	}
	t.resetProgram()
	return seqio.ErrArpProgramHalt
}

// exec runs one instruction, advancing pc, and reports whether execution
// should yield (pause until the next Run call).
func (t *Track) exec(instr Instruction) (yield bool, err error) {
	switch instr.Op {
	case OpNOP, OpLabel:
		t.pc++
		return false, nil

	case OpSNAPSHOT:
		t.snapshot = append([]heldNote(nil), t.held...)
		t.pc++
		return false, nil

	case OpFindLowest, OpFindHighest, OpFindLower, OpFindHigher,
		OpFindOldest, OpFindNewest, OpFindOlder, OpFindNewer, OpFindRandom:
		found, ok := t.find(instr.Op)
		if !ok {
			t.pc = t.program.labels[instr.Arg]
			return false, nil
		}
		t.x = int(found.pitch)
		t.heldVel = found.velocity
		t.lastFoundSeq = found.seq
		t.pc++
		return false, nil

	case OpPlayNote:
		t.startPlayingNote(t.clampedNote(), t.heldVel)
		t.pc++
		return false, nil

	case OpWait:
		t.pc++
		return true, nil

	case OpPlayNoteAndWait:
		t.StopAllNotes()
		t.startPlayingNote(t.clampedNote(), t.heldVel)
		t.pc++
		return true, nil

	case OpJump:
		t.pc = t.program.labels[instr.Arg]
		return false, nil

	case OpJZ:
		if t.x == 0 {
			t.pc = t.program.labels[instr.Arg]
		} else {
			t.pc++
		}
		return false, nil

	case OpLoadL:
		t.x = instr.Arg
		t.pc++
		return false, nil

	case OpLoadF:
		t.x = t.reg(instr.Arg)
		t.pc++
		return false, nil

	case OpStoreF:
		t.setReg(instr.Arg, t.x)
		t.pc++
		return false, nil

	case OpAddL:
		t.x += instr.Arg
		t.pc++
		return false, nil

	case OpSubL:
		t.x -= instr.Arg
		t.pc++
		return false, nil

	case OpMulL:
		t.x *= instr.Arg
		t.pc++
		return false, nil

	case OpAddF:
		t.x += t.reg(instr.Arg)
		t.pc++
		return false, nil

	case OpSubF:
		t.x -= t.reg(instr.Arg)
		t.pc++
		return false, nil

	case OpMulF:
		t.x *= t.reg(instr.Arg)
		t.pc++
		return false, nil

	case OpRand:
		if instr.Arg <= 0 {
			t.x = 0
		} else {
			t.x = t.rng.Intn(instr.Arg + 1)
		}
		t.pc++
		return false, nil

	default:
		t.pc++
		return false, nil
	}
}

func (t *Track) clampedNote() byte {
	n := t.x + t.noteOffset
	if n < 0 {
		n = 0
	}
	if n > 127 {
		n = 127
	}
	return byte(n)
}

func (t *Track) reg(idx int) int {
	if idx == RegNoteOffset {
		return t.noteOffset
	}
	if idx < 0 || idx >= NumGeneralRegs {
		return 0
	}
	return t.regs[idx]
}

func (t *Track) setReg(idx, v int) {
	if idx == RegNoteOffset {
		t.noteOffset = v
		return
	}
	if idx < 0 || idx >= NumGeneralRegs {
		return
	}
	t.regs[idx] = v
}

// find resolves one FIND_* opcode against the frozen snapshot (or the
// live held set if no SNAPSHOT has run yet), returning ok=false on a
// miss so the caller can take the instruction's jump target.
func (t *Track) find(op Opcode) (heldNote, bool) {
	pool := t.snapshot
	if pool == nil {
		pool = t.held
	}
	if len(pool) == 0 {
		return heldNote{}, false
	}

	switch op {
	case OpFindLowest:
		return extreme(pool, func(a, b heldNote) bool { return a.pitch < b.pitch })
	case OpFindHighest:
		return extreme(pool, func(a, b heldNote) bool { return a.pitch > b.pitch })
	case OpFindOldest:
		return extreme(pool, func(a, b heldNote) bool { return a.seq < b.seq })
	case OpFindNewest:
		return extreme(pool, func(a, b heldNote) bool { return a.seq > b.seq })
	case OpFindLower:
		return nextBy(pool, byte(t.x), func(a, b byte) bool { return a < b }, func(n heldNote) byte { return n.pitch })
	case OpFindHigher:
		return nextBy(pool, byte(t.x), func(a, b byte) bool { return a > b }, func(n heldNote) byte { return n.pitch })
	case OpFindOlder:
		return nextBySeq(pool, t.lastFoundSeq, func(a, b int64) bool { return a < b })
	case OpFindNewer:
		return nextBySeq(pool, t.lastFoundSeq, func(a, b int64) bool { return a > b })
	case OpFindRandom:
		return pool[t.rng.Intn(len(pool))], true
	}
	return heldNote{}, false
}

func extreme(pool []heldNote, better func(a, b heldNote) bool) (heldNote, bool) {
	best := pool[0]
	for _, n := range pool[1:] {
		if better(n, best) {
			best = n
		}
	}
	return best, true
}

// nextBy finds the note whose pitch is closest to (but strictly beyond,
// per cmp) the current X value, used by FIND_LOWER/FIND_HIGHER to walk
// the held-note set in pitch order.
func nextBy(pool []heldNote, current byte, cmp func(a, b byte) bool, key func(heldNote) byte) (heldNote, bool) {
	var best heldNote
	found := false
	for _, n := range pool {
		k := key(n)
		if !cmp(k, current) {
			continue
		}
		if !found || cmp(key(best), k) {
			best = n
			found = true
		}
	}
	return best, found
}

func nextBySeq(pool []heldNote, current int64, cmp func(a, b int64) bool) (heldNote, bool) {
	var best heldNote
	found := false
	for _, n := range pool {
		if !cmp(n.seq, current) {
			continue
		}
		if !found || cmp(best.seq, n.seq) {
			best = n
			found = true
		}
	}
	return best, found
}
