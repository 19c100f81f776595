package store

import (
	"bytes"
	"fmt"

	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/arp"
	"github.com/kilpatrickaudio/carbon-core/pkg/midistream"
	"github.com/kilpatrickaudio/carbon-core/pkg/outproc"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
	"github.com/kilpatrickaudio/carbon-core/pkg/song"
)

// DecodeSong parses a blob written by EncodeSong, applying any
// version-gated migration the loaded version requires before returning
// the Song at song.CurrentVersion. Matches spec.md §6: "A song's
// embedded version number triggers on-load migrations... The saver
// writes the current version."
func DecodeSong(data []byte) (*song.Song, error) {
	r := &byteReader{r: bytes.NewReader(data)}
	if got := r.u32(); got != magic {
		return nil, fmt.Errorf("store: bad magic %#x", got)
	}
	loadedVersion := r.i32()

	s := song.NewSong()
	s.Version = loadedVersion
	s.Tempo = r.f64()
	s.Swing = r.i32()
	s.MetroMode = song.MetroMode(r.i32())
	s.MetroLength = r.i32()
	s.ClockSource = song.ClockSource(r.i32())
	s.MIDIRemoteEnable = r.boolean()
	s.SceneSync = seqtrack.SceneSyncMode(r.i32())
	s.SelectScene(r.i32())

	for i := range s.ModeList {
		s.ModeList[i] = song.ModeEntry{
			SceneID: r.i32(),
			Beats:   r.i32(),
			KBTrans: r.i32(),
		}
	}

	for sceneIdx := range s.Scenes {
		for trackIdx := range s.Scenes[sceneIdx].Tracks {
			decodeTrackConfig(r, &s.Scenes[sceneIdx].Tracks[trackIdx])
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("store: decode song: %w", r.err)
	}

	migrate(s, loadedVersion)
	s.Version = song.CurrentVersion
	return s, nil
}

func decodeTrackConfig(r *byteReader, tc *song.TrackConfig) {
	tc.Type = seqtrack.TrackType(r.i32())
	tc.StepDuration = seqtrack.Duration(r.i32())
	tc.MotionStart = r.i32()
	tc.MotionLength = r.i32()
	tc.Reverse = r.boolean()
	tc.GateTimePct = r.i32()
	tc.PatternType = seqtrack.PatternType(r.i32())
	tc.Transpose = r.i32()
	tc.Tonality = outproc.ScaleID(r.i32())
	tc.Mute = r.boolean()
	tc.ArpEnable = r.boolean()
	tc.ArpType = arp.ProgType(r.i32())
	tc.ArpOctaves = r.i32()
	tc.ArpSpeed = seqtrack.Duration(r.i32())
	tc.ArpGateTime = r.i32()
	tc.BiasTrack = r.i32()
	tc.OutA = outproc.OutputSlot{Port: midistream.Port(r.i32()), Channel: r.byte(), Program: r.i32()}
	tc.OutB = outproc.OutputSlot{Port: midistream.Port(r.i32()), Channel: r.byte(), Program: r.i32()}

	for i := range tc.Steps {
		st := &tc.Steps[i]
		st.StartDelay = r.i32()
		st.RatchetCount = r.i32()
		st.Probability = r.i32()
		for j := range st.Events {
			st.Events[j] = seqtrack.TrackEvent{
				Type:        seqtrack.EventType(r.i32()),
				Pitch:       r.byte(),
				Velocity:    r.byte(),
				LengthTicks: r.i32(),
				Controller:  r.byte(),
				Value:       r.byte(),
			}
		}
	}
}

// migrate applies every migration step between loadedVersion and
// song.CurrentVersion, in ascending version order, matching spec.md
// §6's documented examples.
func migrate(s *song.Song, loadedVersion int) {
	if loadedVersion < 103 {
		migrateStepLengthCodesPre103(s)
	}
	if loadedVersion < 108 {
		migrateDisableEmptyClockInPortsPre108(s)
	}
}

// migrateStepLengthCodesPre103 remaps the pre-1.03 step-duration coding
// (which ran 1-based, DurWhole==1) onto the current 0-based Duration
// enum (DurWhole==0).
func migrateStepLengthCodesPre103(s *song.Song) {
	for sceneIdx := range s.Scenes {
		for trackIdx := range s.Scenes[sceneIdx].Tracks {
			tc := &s.Scenes[sceneIdx].Tracks[trackIdx]
			tc.StepDuration = seqtrack.Duration(seqio.Clamp(int(tc.StepDuration)-1, int(seqtrack.DurWhole), int(seqtrack.DurSixtyFourth)))
			tc.ArpSpeed = seqtrack.Duration(seqio.Clamp(int(tc.ArpSpeed)-1, int(seqtrack.DurWhole), int(seqtrack.DurSixtyFourth)))
		}
	}
}

// migrateDisableEmptyClockInPortsPre108 forces external-clock songs
// saved before 1.08 back onto the internal clock, since pre-1.08 songs
// never recorded which physical clock-in port was selected and an
// unset port would otherwise silently stall playback.
func migrateDisableEmptyClockInPortsPre108(s *song.Song) {
	if s.ClockSource != song.ClockInternal {
		s.ClockSource = song.ClockInternal
	}
}

