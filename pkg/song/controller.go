package song

import (
	"github.com/kilpatrickaudio/carbon-core/internal/seqio"
	"github.com/kilpatrickaudio/carbon-core/pkg/arp"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
)

// ControlID names a playback-affecting control, independent of whether
// it arrived from the MIDI remote-control channel mapping or a local
// panel/CLI control-id event. Grounded on spec.md §6's channel 10-16
// control table.
type ControlID int

const (
	CtrlStepLength ControlID = iota
	CtrlTranspose
	CtrlMute
	CtrlMotionStart
	CtrlMotionLength
	CtrlMotionDir
	CtrlGateTime
	CtrlPatternType
	CtrlArpEnable
	CtrlArpType
	CtrlArpSpeed
	CtrlArpGateTime
	CtrlRunStop
)

// Transport is the set of playback actions the Controller can request;
// pkg/carbon's Device implements it.
type Transport interface {
	Run()
	Stop()
	ResetTrack(track int)
	ResetAll()
	StartRecord()
	SelectSong(index int)
	SetKBTrans(semitones int)
}

// Controller routes live control events (panel, CLI, or decoded MIDI
// remote-control messages) into a Song's current scene and a Transport.
// Grounded on spec.md §6's channel 10-16 note/CC table: channel 10 is
// OMNI (applies to every track), channels 11-16 address tracks 1-6.
type Controller struct {
	song      *Song
	transport Transport
}

// NewController binds a Controller to a song and transport.
func NewController(s *Song, t Transport) *Controller {
	return &Controller{song: s, transport: t}
}

// NoteTrigger handles one of the remote-control note events on channels
// 10-16: C1..A1 select a scene, C2..A2 reset a track, C#2/D#2/F#2/A#2
// run/stop/reset/record, C3..C5 set keyboard transpose.
func (c *Controller) NoteTrigger(pitch byte) {
	switch pitch {
	case 24: // C1
		c.song.SelectScene(0)
	case 26: // D1
		c.song.SelectScene(1)
	case 28: // E1
		c.song.SelectScene(2)
	case 29: // F1
		c.song.SelectScene(3)
	case 31: // G1
		c.song.SelectScene(4)
	case 33: // A1
		c.song.SelectScene(5)
	case 36: // C2
		c.transport.ResetTrack(0)
	case 38: // D2
		c.transport.ResetTrack(1)
	case 40: // E2
		c.transport.ResetTrack(2)
	case 41: // F2
		c.transport.ResetTrack(3)
	case 43: // G2
		c.transport.ResetTrack(4)
	case 45: // A2
		c.transport.ResetTrack(5)
	case 37: // C#2
		c.transport.Run()
	case 39: // D#2
		c.transport.Stop()
	case 42: // F#2
		c.transport.ResetAll()
	case 46: // A#2
		c.transport.StartRecord()
	default:
		if pitch >= 48 && pitch <= 72 { // C3..C5
			// C3=48 maps to -12, C4=60 to 0, C5=72 to +12.
			c.transport.SetKBTrans(int(pitch) - 60)
		}
	}
}

// CC handles one of the remote-control channel 10-16 CC events. channel
// 0 is OMNI (applies to all six tracks); channels 1-6 address a single
// track.
func (c *Controller) CC(channel int, controller, value byte) {
	if channel == 0 {
		for t := 0; t < seqtrack.NumTracks; t++ {
			c.applyCC(t, controller, value)
		}
		return
	}
	track := channel - 1
	if track < 0 || track >= seqtrack.NumTracks {
		return
	}
	c.applyCC(track, controller, value)
}

func (c *Controller) applyCC(track int, controller, value byte) {
	tc := c.song.Track(track)
	if tc == nil {
		return
	}
	switch controller {
	case 16: // step-length, val>>3 -> 0..16
		tc.StepDuration = seqtrack.Duration(seqio.Clamp(int(value)>>3, 0, int(seqtrack.DurSixtyFourth)))
	case 17: // transpose, (val>>1)-32 -> -24..24
		tc.Transpose = seqio.Clamp((int(value)>>1)-32, -24, 24)
	case 18: // mute, val>>6
		tc.Mute = (value >> 6) != 0
	case 19: // motion-start, val>>1
		tc.MotionStart = seqio.Clamp(int(value)>>1, 0, seqtrack.NumSteps-1)
	case 20: // motion-length, (val>>1)+1
		tc.MotionLength = seqio.Clamp((int(value)>>1)+1, 1, seqtrack.NumSteps)
	case 21: // motion-dir, val>>6
		tc.Reverse = (value >> 6) != 0
	case 22: // gate-time, (val<<1)+1
		tc.GateTimePct = seqio.Clamp((int(value)<<1)+1, 1, 200)
	case 23: // pattern-type, val>>2
		tc.PatternType = seqtrack.PatternType(value >> 2)
	case 24: // arp-enable, val>>6
		tc.ArpEnable = (value >> 6) != 0
	case 25: // arp-type, val>>3
		tc.ArpType = clampProgType(value >> 3)
	case 26: // arp-speed, val>>3
		tc.ArpSpeed = seqtrack.Duration(seqio.Clamp(int(value)>>3, 0, int(seqtrack.DurSixtyFourth)))
	case 27: // arp-gate-time, (val<<2)+1
		tc.ArpGateTime = seqio.Clamp((int(value)<<2)+1, 1, 200)
	case 80: // run/stop, val>>6
		if value>>6 != 0 {
			c.transport.Run()
		} else {
			c.transport.Stop()
		}
	}
}

func clampProgType(value byte) arp.ProgType {
	return arp.ProgType(seqio.Clamp(int(value), 0, 8))
}

// SongSelect handles a SysEx-level SongSelect system message: loads a
// different song slot via the Transport.
func (c *Controller) SongSelect(index int) {
	c.transport.SelectSong(index)
}
