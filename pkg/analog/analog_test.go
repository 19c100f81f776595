package analog

import "testing"

type fakeSink struct {
	clockOn, resetOn bool
	clockEvents      []bool
	resetEvents      []bool
	cv               map[int]byte
	gate             map[int]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{cv: map[int]byte{}, gate: map[int]bool{}}
}

func (f *fakeSink) SetClock(on bool) {
	f.clockOn = on
	f.clockEvents = append(f.clockEvents, on)
}

func (f *fakeSink) SetReset(on bool) {
	f.resetOn = on
	f.resetEvents = append(f.resetEvents, on)
}

func (f *fakeSink) SetCV(channel int, value byte) { f.cv[channel] = value }
func (f *fakeSink) SetGate(channel int, on bool)   { f.gate[channel] = on }

// TestProgramTableHas21Programs covers the closed 21-program table and
// its out-of-range clamping.
func TestProgramTableHas21Programs(t *testing.T) {
	for p := 1; p <= 21; p++ {
		prog := LookupProgram(p)
		if prog.Assignments[0].Element != CVNote {
			t.Errorf("program %d: expected channel A to carry note", p)
		}
	}
	if LookupProgram(0) != LookupProgram(1) {
		t.Errorf("expected out-of-range program to clamp to program 1")
	}
	if LookupProgram(99) != LookupProgram(21) {
		t.Errorf("expected out-of-range program to clamp to program 21")
	}
}

// TestNoteOutputsForProgramMapsNoteAndVelocity covers program 3
// (AABB: note+velocity, note+velocity), checking gate flags land only
// on the note channels.
func TestNoteOutputsForProgramMapsNoteAndVelocity(t *testing.T) {
	values, hasGate := NoteOutputsForProgram(3, 60, 100, nil)
	if values[0] != 60 || !hasGate[0] {
		t.Errorf("expected channel A to carry gated note 60, got %d gate=%v", values[0], hasGate[0])
	}
	if values[1] != 100 || hasGate[1] {
		t.Errorf("expected channel B to carry ungated velocity 100, got %d gate=%v", values[1], hasGate[1])
	}
	if values[2] != 60 || !hasGate[2] {
		t.Errorf("expected channel C to carry gated note 60, got %d gate=%v", values[2], hasGate[2])
	}
}

// TestNoteOutputsForProgramMapsControlChange covers program 4 (AAAA),
// where channels C/D carry CC-sourced values from the supplied map.
func TestNoteOutputsForProgramMapsControlChange(t *testing.T) {
	ccValues := map[byte]byte{1: 42, 2: 84}
	values, hasGate := NoteOutputsForProgram(4, 60, 100, ccValues)
	if values[2] != 42 || hasGate[2] {
		t.Errorf("expected channel C to carry CC1 value 42 ungated, got %d gate=%v", values[2], hasGate[2])
	}
	if values[3] != 84 || hasGate[3] {
		t.Errorf("expected channel D to carry CC2 value 84 ungated, got %d gate=%v", values[3], hasGate[3])
	}
}

// TestClockOutGeneratesResetOnStart covers that starting the clock at
// tick 0 issues a reset pulse.
func TestClockOutGeneratesResetOnStart(t *testing.T) {
	sink := newFakeSink()
	c := NewClockOut(sink)
	c.SetRunState(true)
	c.Tick(0)
	if !sink.resetOn {
		t.Fatalf("expected reset pulse on start")
	}
}

// TestClockPulseDeferredDuringReset covers reset-priority-over-clock:
// a clock pulse requested while reset is in progress is deferred until
// the reset falls.
func TestClockPulseDeferredDuringReset(t *testing.T) {
	sink := newFakeSink()
	c := NewClockOut(sink)
	c.SetRunState(true)
	c.Tick(0) // issues reset, resetTimeout = PulseLenTicks+1

	c.ClockPulse() // reset still active -> deferred, no clock yet
	if sink.clockOn {
		t.Fatalf("expected clock pulse to be deferred while reset in progress")
	}

	for i := 0; i < PulseLenTicks+1; i++ {
		c.TaskTick()
	}
	if sink.resetOn {
		t.Fatalf("expected reset pulse to have fallen")
	}
	if !sink.clockOn {
		t.Fatalf("expected deferred clock pulse to fire once reset fell")
	}
}

// TestClockPulseWidthMatchesPulseLen covers that a clock pulse falls
// after PulseLenTicks+1 TaskTick calls.
func TestClockPulseWidthMatchesPulseLen(t *testing.T) {
	sink := newFakeSink()
	c := NewClockOut(sink)
	c.SetRunState(true)
	c.Tick(1) // not tick 0, no reset generated
	c.ClockPulse()
	if !sink.clockOn {
		t.Fatalf("expected clock pulse to start immediately with no reset in progress")
	}
	for i := 0; i < PulseLenTicks; i++ {
		c.TaskTick()
	}
	if !sink.clockOn {
		t.Fatalf("expected clock still high before pulse width elapses")
	}
	c.TaskTick()
	if sink.clockOn {
		t.Fatalf("expected clock pulse to fall after pulse width")
	}
}

// TestClockPulseSuppressedWhenStopped covers that no clock pulse is
// generated once the clock is stopped.
func TestClockPulseSuppressedWhenStopped(t *testing.T) {
	sink := newFakeSink()
	c := NewClockOut(sink)
	c.SetRunState(false)
	c.ClockPulse()
	if sink.clockOn {
		t.Errorf("expected no clock pulse while stopped")
	}
}
