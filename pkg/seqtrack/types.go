// Package seqtrack implements CARBON's per-track step playback engine:
// the 64-step/track data model, motion/gate/ratchet/start-delay timing,
// and the active-note pool that drives NoteOff scheduling. Grounded on
// the original firmware's src/seq/seq_engine.c.
package seqtrack

const (
	// NumTracks is the number of tracks per scene.
	NumTracks = 6
	// NumSteps is the number of steps per track.
	NumSteps = 64
	// Polyphony is the maximum number of Track Events stored per step.
	Polyphony = 4
	// MaxActiveNotes is the active-note pool size per track.
	MaxActiveNotes = 16
)

// EventType tags a TrackEvent's variant.
type EventType int

const (
	EventNull EventType = iota
	EventNote
	EventCC
)

// TrackEvent is one polyphony slot within a Step: a Note, a CC, or Null.
type TrackEvent struct {
	Type       EventType
	Pitch      byte // EventNote
	Velocity   byte // EventNote
	LengthTicks int // EventNote, in clock ticks
	Controller byte // EventCC
	Value      byte // EventCC
}

// Step is one of a track's 64 slots: up to Polyphony Track Events plus
// per-step timing attributes.
type Step struct {
	Events       [Polyphony]TrackEvent
	StartDelay   int // ticks
	RatchetCount int // 1..N
	Probability  int // 0..100
}

// Populated reports whether any event slot on this step is non-Null.
func (s *Step) Populated() bool {
	for _, e := range s.Events {
		if e.Type != EventNull {
			return true
		}
	}
	return false
}

// TrackType distinguishes voice tracks (receive kbtrans) from drum
// tracks (bias only, no kbtrans, and no tonality quantization).
type TrackType int

const (
	TrackTypeVoice TrackType = iota
	TrackTypeDrum
)

// BiasTrackNone marks a track with no bias source.
const BiasTrackNone = -1

// ActiveNote is an engine-internal record of a currently sounding note,
// tracking tick/ratchet/start-delay countdowns (spec §3's Active Note).
type ActiveNote struct {
	InUse bool
	Pitch byte
	Velocity byte

	TicksRemaining int

	StartDelayCountdown int

	RatchetRemaining        int
	RatchetPeriod           int
	RatchetPeriodCountdown  int
	RatchetGateLen          int
	RatchetGateCountdown    int
}
