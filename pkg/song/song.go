// Package song implements CARBON's persistent data model: the
// Song/Scene/Track hierarchy, the song-mode list, and global device
// settings, plus a Controller that routes live (control-id, value) and
// MIDI-remote events into that model. Grounded on spec.md §3's data
// model description; no single original-source file owns this (the
// firmware spreads it across song.c/song_edit.c, neither of which was
// retained in the reference pack), so field shapes follow spec.md §3 and
// §6 directly.
package song

import (
	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/arp"
	"github.com/kilpatrickaudio/carbon-core/pkg/outproc"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
)

// CurrentVersion is the blob version this package writes, encoded as
// major*100+minor (matching the firmware's "1.08"-style version
// numbers); pkg/store uses it to decide whether a loaded Song needs
// migration.
const CurrentVersion = 108

// TrackConfig is one track's persisted per-scene parameters: the step
// data plus every playback parameter that can differ scene to scene.
type TrackConfig struct {
	Type seqtrack.TrackType

	Steps        [seqtrack.NumSteps]seqtrack.Step
	StepDuration seqtrack.Duration
	MotionStart  int
	MotionLength int
	Reverse      bool
	GateTimePct  int
	PatternType  seqtrack.PatternType

	Transpose int // -24..24, applied at delivery time by pkg/outproc
	Tonality  outproc.ScaleID

	Mute bool

	ArpEnable   bool
	ArpType     arp.ProgType
	ArpOctaves  int
	ArpSpeed    seqtrack.Duration
	ArpGateTime int

	BiasTrack int // seqtrack.BiasTrackNone, or another track index

	OutA outproc.OutputSlot
	OutB outproc.OutputSlot
}

// NewTrackConfig returns a track with the firmware's documented
// power-on defaults: as-recorded pattern, 100% gate, no bias source, no
// arp, chromatic tonality.
func NewTrackConfig(trackType seqtrack.TrackType) TrackConfig {
	return TrackConfig{
		Type:         trackType,
		StepDuration: seqtrack.DurSixteenth,
		MotionStart:  0,
		MotionLength: seqtrack.NumSteps,
		GateTimePct:  100,
		PatternType:  seqtrack.PatternAsRecorded,
		Tonality:     outproc.ScaleChromatic,
		ArpSpeed:     seqtrack.DurSixteenth,
		ArpGateTime:  100,
		BiasTrack:    seqtrack.BiasTrackNone,
		OutA:         outproc.OutputSlot{Program: -1},
		OutB:         outproc.OutputSlot{Program: -1},
	}
}

// Scene is a snapshot of all six tracks' per-scene parameters.
type Scene struct {
	Tracks [seqtrack.NumTracks]TrackConfig
}

// NewScene returns a scene with tracks 1-4 as voice and tracks 5-6 as
// drum, matching the firmware's default track-type layout.
func NewScene() Scene {
	var s Scene
	for i := range s.Tracks {
		trackType := seqtrack.TrackTypeVoice
		if i >= 4 {
			trackType = seqtrack.TrackTypeDrum
		}
		s.Tracks[i] = NewTrackConfig(trackType)
	}
	return s
}

const NumScenes = 16

// NumModeEntries is the length of the song-mode list.
const NumModeEntries = 64

// ModeEntry is one song-mode list slot: a scene reference with a beat
// count and a kbtrans override, or a null entry (SceneID < 0) that ends
// playback when reached.
type ModeEntry struct {
	SceneID int
	Beats   int
	KBTrans int
}

// ClockSource selects where the device's master clock comes from.
type ClockSource int

const (
	ClockInternal ClockSource = iota
	ClockExternalDIN
	ClockExternalUSB
)

// MetroMode selects the metronome's audible behavior.
type MetroMode int

const (
	MetroOff MetroMode = iota
	MetroRecordOnly
	MetroAlways
)

// Song is the full persisted device state for one song slot: sixteen
// scenes, the song-mode list, and global settings.
type Song struct {
	Version int

	Scenes    [NumScenes]Scene
	ModeList  [NumModeEntries]ModeEntry
	SceneSync seqtrack.SceneSyncMode

	Tempo       float64
	Swing       int // percent, 50 = none
	MetroMode   MetroMode
	MetroLength int

	ClockSource      ClockSource
	MIDIRemoteEnable bool

	current int
}

// NewSong returns a freshly-initialized song: scene 0 selected, all
// scenes at documented defaults, no song-mode entries populated, tempo
// 120 BPM, no swing.
func NewSong() *Song {
	s := &Song{
		Version:     CurrentVersion,
		Tempo:       120.0,
		Swing:       50,
		MetroLength: 1,
	}
	for i := range s.Scenes {
		s.Scenes[i] = NewScene()
	}
	for i := range s.ModeList {
		s.ModeList[i] = ModeEntry{SceneID: -1}
	}
	return s
}

// CurrentScene returns the currently-selected scene index.
func (s *Song) CurrentScene() int {
	return s.current
}

// SelectScene sets the current scene, clamped to the valid range.
func (s *Song) SelectScene(scene int) {
	s.current = seqio.Clamp(scene, 0, NumScenes-1)
}

// Track returns the TrackConfig for the current scene's track, or nil
// if the index is invalid.
func (s *Song) Track(track int) *TrackConfig {
	if track < 0 || track >= seqtrack.NumTracks {
		return nil
	}
	return &s.Scenes[s.current].Tracks[track]
}

// AddStepEvent implements record.SongWriter: writes ev into the first
// free poly slot of (track, step) in the given scene, or the given
// slot if slot >= 0. Returns false if no slot was available.
func (s *Song) AddStepEvent(scene, track, step int, ev seqtrack.TrackEvent, slot int) bool {
	tc := s.trackConfigAt(scene, track)
	if tc == nil || step < 0 || step >= seqtrack.NumSteps {
		return false
	}
	st := &tc.Steps[step]
	if slot >= 0 {
		if slot >= seqtrack.Polyphony {
			return false
		}
		st.Events[slot] = ev
		return true
	}
	for i := range st.Events {
		if st.Events[i].Type == seqtrack.EventNull {
			st.Events[i] = ev
			return true
		}
	}
	return false
}

// ClearStep implements record.SongWriter: blanks every event in a step.
func (s *Song) ClearStep(scene, track, step int) {
	tc := s.trackConfigAt(scene, track)
	if tc == nil || step < 0 || step >= seqtrack.NumSteps {
		return
	}
	tc.Steps[step] = seqtrack.Step{}
}

// ClearStepEvent implements record.SongWriter: blanks one poly slot.
func (s *Song) ClearStepEvent(scene, track, step, slot int) {
	tc := s.trackConfigAt(scene, track)
	if tc == nil || step < 0 || step >= seqtrack.NumSteps || slot < 0 || slot >= seqtrack.Polyphony {
		return
	}
	tc.Steps[step].Events[slot] = seqtrack.TrackEvent{}
}

// GetStepEvent implements record.SongWriter.
func (s *Song) GetStepEvent(scene, track, step, slot int) (seqtrack.TrackEvent, bool) {
	tc := s.trackConfigAt(scene, track)
	if tc == nil || step < 0 || step >= seqtrack.NumSteps || slot < 0 || slot >= seqtrack.Polyphony {
		return seqtrack.TrackEvent{}, false
	}
	ev := tc.Steps[step].Events[slot]
	return ev, ev.Type != seqtrack.EventNull
}

// SetStepEvent implements record.SongWriter.
func (s *Song) SetStepEvent(scene, track, step, slot int, ev seqtrack.TrackEvent) {
	tc := s.trackConfigAt(scene, track)
	if tc == nil || step < 0 || step >= seqtrack.NumSteps || slot < 0 || slot >= seqtrack.Polyphony {
		return
	}
	tc.Steps[step].Events[slot] = ev
}

func (s *Song) trackConfigAt(scene, track int) *TrackConfig {
	if scene < 0 || scene >= NumScenes || track < 0 || track >= seqtrack.NumTracks {
		return nil
	}
	return &s.Scenes[scene].Tracks[track]
}
