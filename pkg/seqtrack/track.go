package seqtrack

import "github.com/kilpatrickaudio/carbon-core/internal/seqio"

// Dispatcher receives finished note/CC messages from a Track's step
// playback, after keyboard transpose and bias have been applied but
// before the out-proc transforms (scene transpose, tonality, output
// routing) run.
type Dispatcher interface {
	DeliverNote(track int, pitch, velocity byte, noteOn bool)
	DeliverCC(track int, controller, value byte)
}

// ArpSink accepts note-on/note-off input destined for a track's
// arpeggiator held-note set. pkg/arp's Track type satisfies this.
type ArpSink interface {
	NoteOn(pitch, velocity byte)
	NoteOff(pitch byte)
}

// Track is one track's 64-step pattern, per-scene playback parameters,
// and active-note pool (spec §3 Track, §4.4 Sequencer Engine).
type Track struct {
	Index int
	Type  TrackType

	Steps        [NumSteps]Step
	StepDuration Duration
	MotionStart  int
	MotionLength int
	Reverse      bool
	GateTimePct  int // 1..200
	PatternType  PatternType
	Mute         bool
	ArpEnable    bool
	ArpSpeed     Duration
	ArpGateTime  int
	BiasTrack    int // BiasTrackNone, or 0..NumTracks-1 excluding Index

	stepPos       int
	clockDivCount int
	stepSizeTicks int

	arpDivCount   int
	arpSpeedTicks int

	biasOutput int

	activeNotes [MaxActiveNotes]ActiveNote

	dispatcher Dispatcher
	arpSink    ArpSink
}

// NewTrack constructs a Track bound to a dispatcher for delivered
// messages and an optional arp sink for arp-routed input.
func NewTrack(index int, dispatcher Dispatcher) *Track {
	return &Track{
		Index:         index,
		GateTimePct:   100,
		MotionLength:  NumSteps,
		StepDuration:  DurSixteenth,
		PatternType:   PatternAsRecorded,
		BiasTrack:     BiasTrackNone,
		stepSizeTicks: 1,
		arpSpeedTicks: 1,
		dispatcher:    dispatcher,
	}
}

// SetArpSink installs the arpeggiator this track routes note input to
// when ArpEnable is set.
func (t *Track) SetArpSink(sink ArpSink) { t.arpSink = sink }

// Recalc recomputes ticks-per-step and ticks-per-arp-step from PPQ; call
// after changing StepDuration/ArpSpeed or PPQ (spec §4.4's
// "recompute all cached per-scene parameters" on scene change).
func (t *Track) Recalc(ppq int) {
	t.stepSizeTicks = t.StepDuration.Ticks(ppq)
	t.arpSpeedTicks = t.ArpSpeed.Ticks(ppq)
	if t.arpSpeedTicks < 1 {
		t.arpSpeedTicks = 1
	}
}

// ResetPosition snaps the step position to the motion start (forward)
// or end (reverse) and clears the clock divider (spec §4.4's
// "reset all track step-positions" on scene change / run).
func (t *Track) ResetPosition() {
	t.clockDivCount = 0
	if t.Reverse {
		t.stepPos = seqio.Wrap(t.MotionStart+t.MotionLength-1, NumSteps)
	} else {
		t.stepPos = seqio.Wrap(t.MotionStart, NumSteps)
	}
}

// StepPos returns the current step index.
func (t *Track) StepPos() int { return t.stepPos }

// DividerDue reports whether this tick is a step boundary for this track.
func (t *Track) DividerDue() bool { return t.clockDivCount == 0 }

// IsFirstStep reports whether the current position is the first step of
// the motion range in the current playback direction (spec §4.4 step 9's
// pre/post-roll gating).
func (t *Track) IsFirstStep() bool {
	if t.Reverse {
		return t.stepPos == seqio.Wrap(t.MotionStart+t.MotionLength-1, NumSteps)
	}
	return t.stepPos == seqio.Wrap(t.MotionStart, NumSteps)
}

// ComputeNextPos computes where pos moves by change (+-1), wrapping at
// the motion range, and reports whether it wrapped. Grounded on
// seq_engine_compute_next_pos.
func ComputeNextPos(pos, motionStart, motionLength, change int) (newPos int, wrapped bool) {
	if change == 0 {
		return pos, false
	}
	newPos = seqio.Wrap(pos+change, NumSteps)
	offset := seqio.Wrap(newPos-motionStart, NumSteps)
	if offset >= motionLength {
		if change > 0 {
			return seqio.Wrap(motionStart, NumSteps), true
		}
		return seqio.Wrap(motionStart+motionLength-1, NumSteps), true
	}
	return newPos, false
}

// MoveToNextStep advances the step position by one in the track's
// configured direction, returning whether it wrapped.
func (t *Track) MoveToNextStep() bool {
	change := 1
	if t.Reverse {
		change = -1
	}
	newPos, wrapped := ComputeNextPos(t.stepPos, t.MotionStart, t.MotionLength, change)
	t.stepPos = newPos
	return wrapped
}

// ResolveBias updates the bias output for this track if its own step is
// due and populated with a Note event, using the first Note slot (spec
// §4.4 step 2).
func (t *Track) ResolveBias() {
	if !t.DividerDue() {
		return
	}
	step := &t.Steps[t.stepPos]
	if !StepEnabled(step, t.PatternType, t.stepPos) {
		return
	}
	for _, ev := range step.Events {
		if ev.Type == EventNote {
			t.biasOutput = int(ev.Pitch) - 60
			return
		}
	}
}

// BiasOutput returns this track's most recently resolved bias value.
func (t *Track) BiasOutput() int { return t.biasOutput }

// PlayStep plays the current step's events if this track's divider is
// due, it's not muted, and the pattern mask admits the step. kbtrans and
// biasValue (from another track's BiasOutput, or 0) are supplied by the
// orchestrating Sequencer. Grounded on seq_engine_track_play_step.
func (t *Track) PlayStep(kbtrans, biasValue int) {
	if !t.DividerDue() || t.Mute {
		return
	}
	step := &t.Steps[t.stepPos]
	if !StepEnabled(step, t.PatternType, t.stepPos) {
		return
	}
	for i := range step.Events {
		ev := &step.Events[i]
		switch ev.Type {
		case EventNote:
			t.playNoteEvent(ev, step, kbtrans, biasValue)
		case EventCC:
			if t.dispatcher != nil {
				t.dispatcher.DeliverCC(t.Index, ev.Controller, ev.Value)
			}
		}
	}
}

// playNoteEvent computes the kbtrans/bias-adjusted pitch (scene
// transpose and tonality are applied later by pkg/outproc at delivery
// time) and starts the note.
func (t *Track) playNoteEvent(ev *TrackEvent, step *Step, kbtrans, biasValue int) {
	pitch := int(ev.Pitch)
	if t.Type == TrackTypeDrum {
		pitch += biasValue
	} else {
		pitch += kbtrans + biasValue
	}
	if pitch < 0 || pitch > 127 {
		return
	}
	t.startNote(byte(pitch), ev.Velocity, ev.LengthTicks, step.StartDelay, step.RatchetCount)
}

// startNote allocates an active-note slot (preempting the
// nearest-to-expiry slot if the pool is full), computes ratchet timing,
// and either routes to the arp or emits immediately (unless delayed).
// Grounded on seq_engine_track_start_note.
func (t *Track) startNote(pitch, velocity byte, lengthTicks, startDelay, ratchetCount int) {
	slot := t.allocActiveNote()

	totalLen := (lengthTicks * t.GateTimePct) / 100
	if totalLen < 1 {
		totalLen = 1
	}
	slot.InUse = true
	slot.Pitch = pitch
	slot.Velocity = velocity
	slot.TicksRemaining = totalLen
	slot.StartDelayCountdown = startDelay
	slot.RatchetRemaining = ratchetCount

	if ratchetCount > 1 {
		slot.RatchetPeriod = lengthTicks / ratchetCount
		if slot.RatchetPeriod < 1 {
			slot.RatchetPeriod = 1
		}
		slot.RatchetPeriodCountdown = slot.RatchetPeriod
		gateLen := (slot.RatchetPeriod * t.GateTimePct) / 256
		if gateLen < 1 {
			gateLen = 1
		}
		if gateLen > slot.RatchetPeriod {
			gateLen = slot.RatchetPeriod
		}
		slot.RatchetGateLen = gateLen
		slot.RatchetGateCountdown = gateLen
	}

	if t.ArpEnable {
		if t.arpSink != nil {
			t.arpSink.NoteOn(pitch, velocity)
		}
		slot.StartDelayCountdown = 0
		slot.RatchetRemaining = 1
		return
	}
	if slot.StartDelayCountdown == 0 {
		t.deliverNoteOn(pitch, velocity)
	}
}

func (t *Track) allocActiveNote() *ActiveNote {
	freeSlot := -1
	minRemain := int(^uint(0) >> 1)
	minSlot := 0
	for i := range t.activeNotes {
		if !t.activeNotes[i].InUse {
			freeSlot = i
			break
		}
		if t.activeNotes[i].TicksRemaining < minRemain {
			minRemain = t.activeNotes[i].TicksRemaining
			minSlot = i
		}
	}
	if freeSlot == -1 {
		t.preemptSlot(minSlot)
		freeSlot = minSlot
	}
	return &t.activeNotes[freeSlot]
}

func (t *Track) preemptSlot(i int) {
	n := &t.activeNotes[i]
	if t.ArpEnable {
		if t.arpSink != nil {
			t.arpSink.NoteOff(n.Pitch)
		}
	} else {
		t.deliverNoteOff(n.Pitch, n.Velocity)
	}
	*n = ActiveNote{}
}

func (t *Track) deliverNoteOn(pitch, velocity byte) {
	if t.dispatcher != nil {
		t.dispatcher.DeliverNote(t.Index, pitch, velocity, true)
	}
}

func (t *Track) deliverNoteOff(pitch, velocity byte) {
	if t.dispatcher != nil {
		t.dispatcher.DeliverNote(t.Index, pitch, velocity, false)
	}
}

// ManageNotes services every active-note slot's start-delay, ratchet,
// and timeout countdowns, called once per tick regardless of step
// boundary (spec §4.4 step 6). Grounded on seq_engine_track_manage_notes.
func (t *Track) ManageNotes() {
	for i := range t.activeNotes {
		n := &t.activeNotes[i]
		if !n.InUse {
			continue
		}
		switch {
		case n.StartDelayCountdown > 0:
			n.StartDelayCountdown--
			if n.StartDelayCountdown == 0 {
				t.deliverNoteOn(n.Pitch, n.Velocity)
			}
		case n.RatchetRemaining > 1:
			n.RatchetGateCountdown--
			if n.RatchetGateCountdown == 0 {
				t.deliverNoteOff(n.Pitch, n.Velocity)
			}
			n.RatchetPeriodCountdown--
			if n.RatchetPeriodCountdown <= 0 {
				n.RatchetRemaining--
				if n.RatchetRemaining > 0 {
					t.deliverNoteOn(n.Pitch, n.Velocity)
					n.RatchetPeriodCountdown = n.RatchetPeriod
					n.RatchetGateCountdown = n.RatchetGateLen
					if n.RatchetRemaining == 1 {
						n.TicksRemaining = n.RatchetGateLen
					}
				} else {
					*n = ActiveNote{}
				}
			}
		default:
			n.TicksRemaining--
			if n.TicksRemaining <= 0 {
				if t.ArpEnable {
					if t.arpSink != nil {
						t.arpSink.NoteOff(n.Pitch)
					}
				} else {
					t.deliverNoteOff(n.Pitch, n.Velocity)
				}
				*n = ActiveNote{}
			}
		}
	}
}

// StopAllNotes emits NoteOff (or routes NoteOff to the arp) for every
// active note and clears the pool, without touching step/pattern data.
func (t *Track) StopAllNotes() {
	for i := range t.activeNotes {
		n := &t.activeNotes[i]
		if !n.InUse {
			continue
		}
		if t.ArpEnable {
			if t.arpSink != nil {
				t.arpSink.NoteOff(n.Pitch)
			}
		} else {
			t.deliverNoteOff(n.Pitch, n.Velocity)
		}
		*n = ActiveNote{}
	}
}

// AdvanceDivider increments the step clock divider, wrapping to 0 (a new
// step boundary) at stepSizeTicks.
func (t *Track) AdvanceDivider() {
	t.clockDivCount++
	if t.clockDivCount >= t.stepSizeTicks {
		t.clockDivCount = 0
	}
}

// ArpDue reports whether the arp's own clock divider has reached a
// boundary this tick, and advances it.
func (t *Track) ArpDue() bool {
	due := t.arpDivCount == 0
	t.arpDivCount++
	if t.arpDivCount >= t.arpSpeedTicks {
		t.arpDivCount = 0
	}
	return due
}
