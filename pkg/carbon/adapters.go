package carbon

import (
	"github.com/kilpatrickaudio/carbon-core/pkg/midimsg"
	"github.com/kilpatrickaudio/carbon-core/pkg/outproc"
)

func noteOnMsg(port int, channel, pitch, velocity byte) midimsg.Message {
	return midimsg.NoteOn(port, channel, pitch, velocity)
}

func noteOffMsg(port int, channel, pitch, velocity byte) midimsg.Message {
	return midimsg.NoteOff(port, channel, pitch, velocity)
}

func ccMsg(port int, channel, controller, value byte) midimsg.Message {
	return midimsg.ControlChange(port, channel, controller, value)
}

func programChangeMsg(port int, channel, program byte) midimsg.Message {
	return midimsg.ProgramChange(port, channel, program)
}

// arpEmitter implements arp.Emitter, routing one track's arpeggiator
// output into the same out-proc delivery path its stepped notes use.
type arpEmitter struct {
	proc  *outproc.Processor
	track int
}

func (e *arpEmitter) EmitNoteOn(pitch, velocity byte) {
	e.proc.DeliverNote(e.track, pitch, velocity, true)
}

func (e *arpEmitter) EmitNoteOff(pitch, velocity byte) {
	e.proc.DeliverNote(e.track, pitch, velocity, false)
}
