package transport

import (
	"github.com/kilpatrickaudio/carbon-core/pkg/midimsg"
)

// ControlEvent is the narrow (control-id, value) shape spec.md §6
// names for panel/CLI input; pkg/song.Controller consumes it the same
// way it consumes decoded MIDI remote-control messages.
type ControlEvent struct {
	ID    int
	Value int
}

// remoteChanOmni and remoteChanTrack1 are zero-based MIDI channel
// numbers: channel 10 (index 9) is OMNI, channels 11-16 (index 10-15)
// address tracks 1-6, grounded on midi_ctrl.c's channel table.
const (
	remoteChanOmni   = 9
	remoteChanTrack1 = 10
)

// NoteHandler receives a decoded remote-control note trigger.
type NoteHandler interface {
	NoteTrigger(pitch byte)
}

// CCHandler receives a decoded remote-control CC, with channel already
// translated to 0=OMNI, 1..6=track index+1 (matching
// song.Controller.CC's channel parameter).
type CCHandler interface {
	CC(channel int, controller, value byte)
}

// SongSelectHandler receives a decoded SongSelect system message.
type SongSelectHandler interface {
	SongSelect(index int)
}

// RemoteDecoder decodes incoming channel-10-16 MIDI remote-control
// messages and a top-level SongSelect, dispatching into the handlers
// above. Note and CC decoding is disabled unless Enabled is true,
// matching "MIDI control is only active when the MIDI Rmt Ctrl option is
// enabled."; SongSelect is decoded whether or not Enabled is set.
type RemoteDecoder struct {
	Enabled bool

	Notes       NoteHandler
	CCs         CCHandler
	SongSelects SongSelectHandler
}

// NewRemoteDecoder constructs a decoder wired to the given handlers.
func NewRemoteDecoder(notes NoteHandler, ccs CCHandler, songSelects SongSelectHandler) *RemoteDecoder {
	return &RemoteDecoder{Notes: notes, CCs: ccs, SongSelects: songSelects}
}

// HandleMessage decodes one incoming MIDI message, ignoring anything
// outside the channel-10-16 control range or message types other than
// NoteOn/CC/SongSelect.
func (r *RemoteDecoder) HandleMessage(msg midimsg.Message) {
	if msg.Status == midimsg.StatusSongSelect {
		if r.SongSelects != nil {
			r.SongSelects.SongSelect(int(msg.Data0))
		}
		return
	}

	if !r.Enabled {
		return
	}

	status := msg.Command()
	channel := int(msg.Channel())
	if channel < remoteChanOmni {
		return
	}

	switch status {
	case midimsg.StatusNoteOn:
		if msg.Data1 == 0 { // NoteOn velocity 0 is a note-off; ignored
			return
		}
		if r.Notes != nil {
			r.Notes.NoteTrigger(msg.Data0)
		}
	case midimsg.StatusControlChange:
		track := 0
		if channel != remoteChanOmni {
			track = channel - remoteChanTrack1 + 1
		}
		if r.CCs != nil {
			r.CCs.CC(track, msg.Data0, msg.Data1)
		}
	}
}
