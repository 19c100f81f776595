// Package midiexport converts a CARBON scene to and from a standard
// MIDI file, for moving patterns to/from a DAW. Grounded on the
// icco-genidi step-sequencer's saveMIDI (one smf.Track per channel,
// built from note-on/note-off pairs at step boundaries) and on
// james-see's synthtribe2midi converter (smf.ReadFrom plus
// byte-level note-on/off extraction for import), both against
// gitlab.com/gomidi/midi/v2 and its smf sub-package.
package midiexport

import (
	"bytes"
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/kilpatrickaudio/carbon-core/pkg/clock"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
	"github.com/kilpatrickaudio/carbon-core/pkg/song"
)

// ticksPerQuarter is the SMF file's metric-ticks resolution. Chosen as
// a multiple of every seqtrack.Duration subdivision so step boundaries
// land on whole SMF ticks.
const ticksPerQuarter = 960

// ExportScene renders one scene's six tracks to a Standard MIDI File
// (format 1: one tempo track plus one track per CARBON track), each
// channel holding that track's populated steps as note-on/note-off
// pairs. Polyphony slots beyond the first are flattened onto the same
// channel, matching how a DAW track already mixes simultaneous notes.
func ExportScene(s *song.Song, sceneIndex int, tempo float64) ([]byte, error) {
	if sceneIndex < 0 || sceneIndex >= song.NumScenes {
		return nil, fmt.Errorf("midiexport: scene %d out of range", sceneIndex)
	}
	scene := s.Scenes[sceneIndex]

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaMeter(4, 4))
	tempoTrack.Add(0, smf.MetaTempo(tempo))
	tempoTrack.Close(0)
	if err := sm.Add(tempoTrack); err != nil {
		return nil, fmt.Errorf("midiexport: adding tempo track: %w", err)
	}

	for ch := 0; ch < seqtrack.NumTracks; ch++ {
		track, err := exportTrack(&scene.Tracks[ch], uint8(ch)) //nolint:gosec // ch bounded by NumTracks
		if err != nil {
			return nil, fmt.Errorf("midiexport: track %d: %w", ch, err)
		}
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("midiexport: adding track %d: %w", ch, err)
		}
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("midiexport: writing SMF: %w", err)
	}
	return buf.Bytes(), nil
}

func exportTrack(tc *song.TrackConfig, channel uint8) (smf.Track, error) {
	var track smf.Track
	ticksPerStep := uint32(tc.StepDuration.Ticks(ticksPerQuarter))
	if ticksPerStep == 0 {
		ticksPerStep = 1
	}

	var lastTick uint32
	for step := 0; step < seqtrack.NumSteps; step++ {
		st := &tc.Steps[step]
		if !st.Populated() {
			continue
		}
		pos := uint32(step) * ticksPerStep //nolint:gosec // step bounded by NumSteps
		for _, ev := range st.Events {
			if ev.Type != seqtrack.EventNote {
				continue
			}
			delta := pos - lastTick
			track.Add(delta, midi.NoteOn(channel, ev.Pitch, ev.Velocity))
			lastTick = pos

			gateTicks := uint32(ev.LengthTicks) //nolint:gosec // LengthTicks always non-negative
			if gateTicks == 0 {
				gateTicks = 1
			}
			track.Add(gateTicks, midi.NoteOff(channel, ev.Pitch))
			lastTick += gateTicks
		}
	}

	endTick := uint32(seqtrack.NumSteps) * ticksPerStep
	if lastTick < endTick {
		track.Close(endTick - lastTick)
	} else {
		track.Close(0)
	}
	return track, nil
}

// ImportTrack reads a Standard MIDI File and quantizes the note-ons on
// channel, from every track of the file, onto one CARBON track's steps,
// overwriting its existing step data. A note lands on the step that
// contains its start tick at sixteenth-note resolution (the file's
// ticks-per-quarter divided by 4, rounded down), in slot 0; a later
// note-on on the same step replaces the earlier one, matching the
// reference converter's single-note-per-step model.
func ImportTrack(r io.Reader, channel uint8, tc *song.TrackConfig) error {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("midiexport: reading SMF: %w", err)
	}

	resolution := uint16(ticksPerQuarter)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		resolution = mt.Resolution()
	}
	ticksPerStep := int64(resolution) / 4
	if ticksPerStep == 0 {
		ticksPerStep = 1
	}

	for i := range tc.Steps {
		tc.Steps[i] = seqtrack.Step{}
	}

	for _, trk := range s.Tracks {
		var currentTick int64
		for _, ev := range trk {
			currentTick += int64(ev.Delta)

			var ch, key, velocity uint8
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &velocity) && velocity > 0:
				if ch != channel {
					continue
				}
				step := int(currentTick / ticksPerStep)
				if step < 0 || step >= seqtrack.NumSteps {
					continue
				}
				tc.Steps[step].Events[0] = seqtrack.TrackEvent{
					Type:        seqtrack.EventNote,
					Pitch:       key,
					Velocity:    velocity,
					LengthTicks: tc.StepDuration.Ticks(clock.DefaultPPQ),
				}
			}
		}
	}
	return nil
}
