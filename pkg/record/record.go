// Package record implements CARBON's two recording modes: step record
// (building a pattern one chord/step at a time from held notes) and
// real-time record (a flat timestamped event buffer committed to the
// track at the end of a loop, with selective overdub for drum tracks).
// Grounded on the original firmware's seq_engine_record_event and
// seq_engine_record_write_tracks.
package record

import (
	"log/slog"

	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/logger"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
)

// Mode is the current recording state of a track.
type Mode int

const (
	ModeIdle Mode = iota
	ModeArmed
	ModeStep
	ModeRealtime
)

// SongWriter is the boundary a recorder commits finished events
// through; pkg/song's Song type implements it.
type SongWriter interface {
	AddStepEvent(scene, track, step int, ev seqtrack.TrackEvent, slot int) bool
	ClearStep(scene, track, step int)
	ClearStepEvent(scene, track, step, slot int)
	GetStepEvent(scene, track, step, slot int) (seqtrack.TrackEvent, bool)
	SetStepEvent(scene, track, step, slot int, ev seqtrack.TrackEvent)
}

const maxRTEvents = seqtrack.NumSteps * seqtrack.Polyphony

// rtEvent is one realtime-recorded message: a note or CC with its tick
// position, and (for notes) a length that starts at zero and is filled
// in when the matching note-off arrives.
type rtEvent struct {
	isCC     bool
	tickPos  int
	tickLen  int // 0 while the note is still held
	pitch    byte
	velocity byte
	cc       byte
	ccVal    byte
}

// Recorder drives step and realtime recording for a single track
// selection (first_track in the original firmware's terms).
type Recorder struct {
	log *slog.Logger

	Mode        Mode
	Scene       int
	Track       int
	TrackType   seqtrack.TrackType
	StepSizeTicks int
	MotionStart int
	MotionLength int

	stepPos    int
	heldStep   [seqtrack.Polyphony]byte // 0 = empty slot
	heldCount  int

	rtStartTick int
	rtEvents    []rtEvent
}

// NewRecorder constructs an idle Recorder. log may be nil, in which case
// the package-level logger is used.
func NewRecorder(log *slog.Logger) *Recorder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Recorder{log: log}
}

// Arm prepares the recorder for a track; step vs. realtime mode is
// decided on the first event by StartIfArmed, matching the firmware's
// "no clock running -> step mode" rule.
func (r *Recorder) Arm(scene, track int, trackType seqtrack.TrackType, stepSizeTicks, motionStart, motionLength int) {
	r.Mode = ModeArmed
	r.Scene = scene
	r.Track = track
	r.TrackType = trackType
	r.StepSizeTicks = stepSizeTicks
	r.MotionStart = motionStart
	r.MotionLength = motionLength
	r.stepPos = motionStart
	r.heldCount = 0
	for i := range r.heldStep {
		r.heldStep[i] = 0
	}
	r.rtEvents = r.rtEvents[:0]
}

// StartIfArmed transitions Armed -> Step or Armed -> Realtime depending
// on whether a clock is running, per the firmware's arm-to-mode rule.
func (r *Recorder) StartIfArmed(clockRunning bool, startTick int) {
	if r.Mode != ModeArmed {
		return
	}
	if clockRunning {
		r.Mode = ModeRealtime
		r.rtStartTick = startTick
	} else {
		r.Mode = ModeStep
	}
}

// Cancel aborts recording without committing any realtime buffer.
func (r *Recorder) Cancel() {
	r.Mode = ModeIdle
	r.rtEvents = r.rtEvents[:0]
	r.heldCount = 0
}

// StepPos reports the step the step-recorder is currently writing to.
func (r *Recorder) StepPos() int {
	return r.stepPos
}

// stepAdvance moves the step position forward one step and reports
// whether the loop has completed (wrapped past the motion range), which
// ends step recording per seq_engine_step_sequence_advance.
func (r *Recorder) stepAdvance() bool {
	r.stepPos = seqio.Wrap(r.stepPos+1, seqtrack.NumSteps)
	end := seqio.Wrap(r.MotionStart+r.MotionLength, seqtrack.NumSteps)
	if r.stepPos == end {
		r.Mode = ModeIdle
		return true
	}
	return false
}

// NoteOn handles a recorded note-on in whichever mode is active.
func (r *Recorder) NoteOn(pitch, velocity byte, writer SongWriter, tickPos int) {
	switch r.Mode {
	case ModeStep:
		r.stepNoteOn(pitch, velocity, writer)
	case ModeRealtime:
		r.rtNoteOn(pitch, velocity, tickPos)
	}
}

// NoteOff handles a recorded note-off in whichever mode is active,
// returning true if the step loop just completed (step mode only).
func (r *Recorder) NoteOff(pitch byte, tickPos int) bool {
	switch r.Mode {
	case ModeStep:
		return r.stepNoteOff(pitch)
	case ModeRealtime:
		r.rtNoteOff(pitch, tickPos)
	}
	return false
}

// CC handles a recorded control-change. The damper CC (data0=64) with a
// released step and value 127 inserts a rest and advances, matching the
// firmware's damper-for-rests rule; any other CC below 120 (the
// channel-mode controllers) is written directly. Returns true if the
// step loop just completed (step mode only).
func (r *Recorder) CC(controller, value byte, writer SongWriter) bool {
	if r.Mode != ModeStep {
		if r.Mode == ModeRealtime {
			r.rtCC(controller, value)
		}
		return false
	}
	const damperController = 64
	const allSoundsOffController = 120
	if controller == damperController && value == 127 && r.heldCount == 0 {
		writer.ClearStep(r.Scene, r.Track, r.stepPos)
		return r.stepAdvance()
	}
	if controller < allSoundsOffController {
		r.writeStepCC(controller, value, writer)
	}
	return false
}

func (r *Recorder) stepNoteOn(pitch, velocity byte, writer SongWriter) {
	if r.heldCount >= seqtrack.Polyphony {
		return
	}
	for i := range r.heldStep {
		if r.heldStep[i] == 0 {
			r.heldStep[i] = pitch | 0x80 // mark occupied distinctly from pitch 0
			r.heldCount++
			break
		}
	}
	ev := seqtrack.TrackEvent{
		Type:        seqtrack.EventNote,
		Pitch:       pitch,
		Velocity:    velocity,
		LengthTicks: r.StepSizeTicks,
	}
	writer.AddStepEvent(r.Scene, r.Track, r.stepPos, ev, -1)
}

func (r *Recorder) stepNoteOff(pitch byte) bool {
	for i := range r.heldStep {
		if r.heldStep[i] == pitch|0x80 {
			r.heldStep[i] = 0
			r.heldCount--
		}
	}
	if r.heldCount <= 0 {
		r.heldCount = 0
		return r.stepAdvance()
	}
	return false
}

func (r *Recorder) writeStepCC(controller, value byte, writer SongWriter) {
	for slot := 0; slot < seqtrack.Polyphony; slot++ {
		ev, ok := writer.GetStepEvent(r.Scene, r.Track, r.stepPos, slot)
		if ok && ev.Type == seqtrack.EventCC && ev.Controller == controller {
			ev.Value = value
			writer.SetStepEvent(r.Scene, r.Track, r.stepPos, slot, ev)
			return
		}
	}
	ev := seqtrack.TrackEvent{Type: seqtrack.EventCC, Controller: controller, Value: value}
	writer.AddStepEvent(r.Scene, r.Track, r.stepPos, ev, -1)
}

func (r *Recorder) rtNoteOn(pitch, velocity byte, tickPos int) {
	if len(r.rtEvents) >= maxRTEvents {
		r.log.Debug("record: realtime buffer overflow, dropping note", "pitch", pitch)
		return
	}
	r.rtEvents = append(r.rtEvents, rtEvent{tickPos: tickPos, pitch: pitch, velocity: velocity})
}

func (r *Recorder) rtNoteOff(pitch byte, tickPos int) {
	for i := range r.rtEvents {
		e := &r.rtEvents[i]
		if !e.isCC && e.tickLen == 0 && e.pitch == pitch {
			e.tickLen = tickPos - e.tickPos
			return
		}
	}
}

func (r *Recorder) rtCC(controller, value byte) {
	if len(r.rtEvents) >= maxRTEvents {
		return
	}
	r.rtEvents = append(r.rtEvents, rtEvent{isCC: true, cc: controller, ccVal: value})
}

// EventCount reports the number of events accumulated in the realtime
// buffer; zero means Commit is a no-op, per "ignore blank recording".
func (r *Recorder) EventCount() int {
	return len(r.rtEvents)
}

// Commit writes the realtime-recorded buffer into the track at loop
// end, applying selective overdub for drum tracks (existing notes on
// pitches present in the new recording are cleared first) and
// replace-in-range for voice tracks (every step in [MotionStart,
// MotionStart+MotionLength) is cleared first, then the new recording is
// inserted). Notes still held past the loop boundary (tickLen == 0) are
// extended to the end of the loop.
func (r *Recorder) Commit(writer SongWriter) {
	if len(r.rtEvents) == 0 {
		return
	}

	loopStart := r.rtStartTick
	loopTicks := r.MotionLength * r.StepSizeTicks

	if r.TrackType == seqtrack.TrackTypeDrum {
		used := make(map[byte]bool)
		for _, e := range r.rtEvents {
			if e.isCC {
				continue
			}
			if e.tickPos < loopStart || e.tickPos >= loopStart+loopTicks {
				continue
			}
			used[e.pitch] = true
		}
		for i := 0; i < r.MotionLength; i++ {
			step := seqio.Wrap(r.MotionStart+i, seqtrack.NumSteps)
			for slot := 0; slot < seqtrack.Polyphony; slot++ {
				ev, ok := writer.GetStepEvent(r.Scene, r.Track, step, slot)
				if ok && ev.Type == seqtrack.EventNote && used[ev.Pitch] {
					writer.ClearStepEvent(r.Scene, r.Track, step, slot)
				}
			}
		}
	} else {
		for i := 0; i < r.MotionLength; i++ {
			step := seqio.Wrap(r.MotionStart+i, seqtrack.NumSteps)
			writer.ClearStep(r.Scene, r.Track, step)
		}
	}

	for _, e := range r.rtEvents {
		if e.tickPos < loopStart || e.tickPos >= loopStart+loopTicks {
			continue
		}
		step := seqio.Wrap(((e.tickPos-loopStart)/r.StepSizeTicks)+r.MotionStart, seqtrack.NumSteps)
		if e.isCC {
			r.writeCommitCC(step, e.cc, e.ccVal, writer)
			continue
		}
		length := e.tickLen
		if length == 0 {
			length = loopStart + loopTicks - e.tickPos
		}
		ev := seqtrack.TrackEvent{Type: seqtrack.EventNote, Pitch: e.pitch, Velocity: e.velocity, LengthTicks: length}
		writer.AddStepEvent(r.Scene, r.Track, step, ev, -1)
	}

	r.rtEvents = r.rtEvents[:0]
	r.Mode = ModeIdle
}

func (r *Recorder) writeCommitCC(step int, controller, value byte, writer SongWriter) {
	for slot := 0; slot < seqtrack.Polyphony; slot++ {
		ev, ok := writer.GetStepEvent(r.Scene, r.Track, step, slot)
		if ok && ev.Type == seqtrack.EventCC && ev.Controller == controller {
			ev.Value = value
			writer.SetStepEvent(r.Scene, r.Track, step, slot, ev)
			return
		}
	}
	ev := seqtrack.TrackEvent{Type: seqtrack.EventCC, Controller: controller, Value: value}
	writer.AddStepEvent(r.Scene, r.Track, step, ev, -1)
}
