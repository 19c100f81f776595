package song

import "github.com/kilpatrickaudio/carbon-core/pkg/outproc"

// ConfigCurrentVersion is the blob version pkg/store writes for Config;
// tracked separately from CurrentVersion since Song and Config migrate
// independently.
const ConfigCurrentVersion = 1

// Config holds CARBON's global device options: settings that live
// outside any one song, persisted as their own blob kind (spec.md §6,
// "Persistent state"). Grounded on spec.md §3's Song-level fields that
// describe device-wide rather than per-song behavior.
type Config struct {
	ClockSource      ClockSource
	MIDIRemoteEnable bool
	MetroMode        MetroMode
	MetroLength      int

	// CVGateProgramA/B are the device-wide analog output program numbers
	// (1-21, see pkg/analog.ProgramTable) for the two CV/gate pairs,
	// independent of any per-track OutA/OutB MIDI routing.
	CVGateProgramA int
	CVGateProgramB int

	// TrackOutputs is the per-track default MIDI output routing applied
	// to a fresh track before a song overrides it per-scene.
	TrackOutputs [NumTracksConfig]outproc.OutputSlot
}

// NumTracksConfig mirrors seqtrack.NumTracks without importing it here,
// since Config is meant to be loadable independent of a Song.
const NumTracksConfig = 6

// NewConfig returns the documented power-on default configuration:
// internal clock, MIDI remote control off, metronome off, CV/gate
// program 1 on both pairs.
func NewConfig() *Config {
	c := &Config{
		ClockSource:    ClockInternal,
		MetroMode:      MetroOff,
		MetroLength:    1,
		CVGateProgramA: 1,
		CVGateProgramB: 1,
	}
	for i := range c.TrackOutputs {
		c.TrackOutputs[i] = outproc.OutputSlot{Program: -1}
	}
	return c
}
