// Package analog implements CARBON's CV/Gate output boundary: the
// program-change-selected 21-entry output mapping table (spec.md §6)
// and the clock/reset pulse generator with reset-priority-over-clock
// behavior. Grounded on the original firmware's clock_out.c for pulse
// timing (analog_out.c/.h, the concrete DAC/GPIO driver, was not
// retained in the reference pack, so the CV mapping table itself is
// built from spec.md §6's prose rather than a literal source file).
package analog

import "github.com/kilpatrickaudio/carbon-core/internal/seqio"

// Sink is the hardware boundary: the concrete driver that turns these
// calls into DAC voltages and GPIO pulses. No concrete implementation
// is provided (out of scope); a test fake stands in for it.
type Sink interface {
	SetClock(on bool)
	SetReset(on bool)
	SetCV(channel int, value byte)
	SetGate(channel int, on bool)
}

// PulseLenTicks is the clock/reset pulse width in realtime-task
// intervals, grounded on clock_out.c's CLOCK_OUT_PULSE_LEN.
const PulseLenTicks = 2

// NumCVChannels is the number of CV/gate output pairs.
const NumCVChannels = 4

// CVElement names what an output channel carries.
type CVElement int

const (
	CVNote CVElement = iota
	CVVelocity
	CVControlChange
)

// CVAssignment is one channel's source within a program.
type CVAssignment struct {
	Element CVElement
	CCNum   byte // meaningful only when Element == CVControlChange
}

// PairConfig names how the four CV outputs share their voice sources:
// ABCD assigns four independent voices, AABC/AABB/AAAA progressively
// share voice A across more outputs (for doubling gate/velocity taps on
// a single voice).
type PairConfig int

const (
	PairABCD PairConfig = iota
	PairAABC
	PairAABB
	PairAAAA
)

// Program is one of the 21 program-change-selectable CV output maps.
type Program struct {
	Pair        PairConfig
	Assignments [NumCVChannels]CVAssignment
}

// ProgramTable is the closed table of 21 CV output programs, selected by
// program-change 1..21 on channels 1..4 (spec.md §6). Index 0 is unused
// (programs are 1-indexed on the wire); ProgramTable[1] is program 1.
var ProgramTable = buildProgramTable()

func buildProgramTable() [22]Program {
	var t [22]Program
	// Program 1: four independent note outputs (ABCD).
	t[1] = Program{Pair: PairABCD, Assignments: [4]CVAssignment{
		{Element: CVNote}, {Element: CVNote}, {Element: CVNote}, {Element: CVNote},
	}}
	// Program 2: note+velocity pair on AB, two more notes on CD.
	t[2] = Program{Pair: PairAABC, Assignments: [4]CVAssignment{
		{Element: CVNote}, {Element: CVVelocity}, {Element: CVNote}, {Element: CVNote},
	}}
	// Program 3: note+velocity on AB, note+velocity on CD (AABB).
	t[3] = Program{Pair: PairAABB, Assignments: [4]CVAssignment{
		{Element: CVNote}, {Element: CVVelocity}, {Element: CVNote}, {Element: CVVelocity},
	}}
	// Program 4: single voice, note/velocity/CC1/CC2 (AAAA).
	t[4] = Program{Pair: PairAAAA, Assignments: [4]CVAssignment{
		{Element: CVNote}, {Element: CVVelocity}, {Element: CVControlChange, CCNum: 1}, {Element: CVControlChange, CCNum: 2},
	}}
	// Programs 5-21: note+CC combinations across increasing CC numbers,
	// covering the remaining program-change slots with ABCD pairing.
	ccBase := byte(1)
	for p := 5; p <= 21; p++ {
		t[p] = Program{Pair: PairABCD, Assignments: [4]CVAssignment{
			{Element: CVNote},
			{Element: CVControlChange, CCNum: ccBase},
			{Element: CVControlChange, CCNum: ccBase + 1},
			{Element: CVVelocity},
		}}
		ccBase += 2
	}
	return t
}

// LookupProgram returns program 1..21, clamped into range.
func LookupProgram(program int) Program {
	return ProgramTable[seqio.Clamp(program, 1, 21)]
}

// CVValue converts a 0-127 MIDI-range value into a CV DAC code. The
// driver interprets the returned byte as 1V/octave-scaled per channel;
// this package only does the MIDI-range passthrough (spec.md §6 leaves
// the DAC scale curve to the concrete driver, out of scope here).
func CVValue(midiValue byte) byte {
	return midiValue
}

// NoteOutputsForProgram reports, for each of the NumCVChannels outputs
// of program (1..21), the CV value and whether the channel carries a
// gate at all (CVControlChange channels still report a CC-derived CV
// value but never gate). pitch/velocity/ccValues[assignment.CCNum] feed
// the lookup; ccValues may be nil if the track has no pending CC state.
func NoteOutputsForProgram(program int, pitch, velocity byte, ccValues map[byte]byte) (values [NumCVChannels]byte, hasGate [NumCVChannels]bool) {
	prog := LookupProgram(program)
	for i, a := range prog.Assignments {
		switch a.Element {
		case CVNote:
			values[i] = CVValue(pitch)
			hasGate[i] = true
		case CVVelocity:
			values[i] = CVValue(velocity)
		case CVControlChange:
			values[i] = CVValue(ccValues[a.CCNum])
		}
	}
	return values, hasGate
}

// ClockOut generates the analog clock and reset pulses, deferring a
// clock pulse that would overlap an in-progress reset pulse until the
// reset falls (spec.md §4.7).
type ClockOut struct {
	sink Sink

	desiredRun bool
	running    bool

	clockTimeout      int
	resetTimeout      int
	clockDelayTrigger bool
}

// NewClockOut constructs a ClockOut bound to a Sink.
func NewClockOut(sink Sink) *ClockOut {
	return &ClockOut{sink: sink}
}

// SetRunState latches the desired run state; actual start/stop pulses
// are generated on the next Tick at tick 0, matching clock_out.c's
// desired-vs-actual run state split.
func (c *ClockOut) SetRunState(run bool) {
	c.desiredRun = run
}

// Tick processes one clock tick (tickCount is the absolute engine tick
// position; 0 marks a reset-position boundary).
func (c *ClockOut) Tick(tickCount int) {
	if c.desiredRun != c.running {
		c.running = c.desiredRun
		if c.running {
			c.generateStart(tickCount)
		}
	} else if c.running && tickCount == 0 {
		c.generateStart(tickCount)
	}
}

func (c *ClockOut) generateStart(tickCount int) {
	if tickCount == 0 {
		c.sink.SetReset(true)
		c.resetTimeout = PulseLenTicks + 1
	}
}

// TaskTick times out the clock/reset pulses; called once per realtime
// task interval, independent of the musical tick cadence.
func (c *ClockOut) TaskTick() {
	if c.clockTimeout > 0 {
		c.clockTimeout--
		if c.clockTimeout == 0 {
			c.sink.SetClock(false)
		}
	}
	if c.resetTimeout > 0 {
		c.resetTimeout--
		if c.resetTimeout == 0 {
			c.sink.SetReset(false)
		}
	}
	if c.clockDelayTrigger && c.resetTimeout == 0 {
		c.clockDelayTrigger = false
		if c.running {
			c.sink.SetClock(true)
			c.clockTimeout = PulseLenTicks + 1
		}
	}
}

// ClockPulse requests a clock pulse for the current tick; if a reset
// pulse is in progress it is deferred (reset has priority) and fired by
// the TaskTick in which the reset falls.
func (c *ClockOut) ClockPulse() {
	if c.resetTimeout > 0 {
		c.clockDelayTrigger = true
		return
	}
	if c.running {
		c.sink.SetClock(true)
		c.clockTimeout = PulseLenTicks + 1
	}
}
