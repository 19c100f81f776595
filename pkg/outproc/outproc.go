// Package outproc implements CARBON's output processing stage: scene
// transpose and tonality quantization, A/B/BOTH output delivery, and
// program-change-pending tracking, dispatching finished messages to
// port streams or the analog CV/gate path. Grounded on the original
// firmware's src/seq/outproc.h (the .c implementation wasn't retained in
// the reference pack; behavior follows spec §4.5 and seq_engine.c's
// delivery call sites).
package outproc

import "github.com/kilpatrickaudio/carbon-core/pkg/midistream"

// DeliverMode selects which output slot(s) a track's messages go to.
type DeliverMode int

const (
	DeliverA DeliverMode = iota
	DeliverB
	DeliverBoth
)

// OutputSlot routes to a port/channel, with an optional program to send
// before the next note if one is pending.
type OutputSlot struct {
	Port    midistream.Port
	Channel byte // 0..15
	Program int  // -1 = no program mapped
}

// TrackConfig holds one track's out-proc state: transpose/tonality
// values (cached on scene change, per outproc_transpose_changed /
// outproc_tonality_changed) and its two output slots.
type TrackConfig struct {
	Transpose   int
	KBTrans     int
	IsVoice     bool
	Scale       ScaleID
	ScaleRoot   int
	DeliverMode DeliverMode
	OutA        OutputSlot
	OutB        OutputSlot

	pendingProgramA bool
	pendingProgramB bool
}

// Sink is the boundary this package dispatches finished messages to:
// pkg/midistream's per-port queues, or the analog CV/gate path for
// midistream.PortCVOut.
type Sink interface {
	EnqueueNoteOn(port midistream.Port, channel, pitch, velocity byte)
	EnqueueNoteOff(port midistream.Port, channel, pitch, velocity byte)
	EnqueueCC(port midistream.Port, channel, controller, value byte)
	EnqueueProgramChange(port midistream.Port, channel byte, program int)
	DeliverAnalogNote(channel int, pitch, velocity byte, noteOn bool)
}

// Processor applies per-track transpose/tonality and output routing,
// implementing seqtrack.Dispatcher so a seqtrack.Sequencer can deliver
// directly into it.
type Processor struct {
	tracks [6]TrackConfig
	sink   Sink
}

// NewProcessor constructs a Processor with all track output slots
// unmapped (no program pending).
func NewProcessor(sink Sink) *Processor {
	p := &Processor{sink: sink}
	for i := range p.tracks {
		p.tracks[i].OutA.Program = -1
		p.tracks[i].OutB.Program = -1
		p.tracks[i].DeliverMode = DeliverBoth
	}
	return p
}

// Track returns the mutable out-proc configuration for a track index.
func (p *Processor) Track(index int) *TrackConfig {
	if index < 0 || index >= len(p.tracks) {
		return nil
	}
	return &p.tracks[index]
}

// SetProgram stores a pending program change for a track's output slot
// (A=false selects B); it is sent just before the next note delivered
// on that slot (spec §4.5: "if a program change is pending ... it is
// sent first").
func (p *Processor) SetProgram(track int, slotA bool, program int) {
	tc := p.Track(track)
	if tc == nil {
		return
	}
	if slotA {
		tc.OutA.Program = program
		tc.pendingProgramA = true
	} else {
		tc.OutB.Program = program
		tc.pendingProgramB = true
	}
}

// DeliverNote implements seqtrack.Dispatcher: applies transpose and
// tonality, then routes to the track's configured output slot(s).
func (p *Processor) DeliverNote(track int, pitch, velocity byte, noteOn bool) {
	tc := p.Track(track)
	if tc == nil || p.sink == nil {
		return
	}

	final := int(pitch)
	if tc.IsVoice {
		final += tc.Transpose + tc.KBTrans
	}
	if final < 0 {
		final = 0
	}
	if final > 127 {
		final = 127
	}
	outPitch := byte(final)
	if tc.IsVoice {
		outPitch = Quantize(tc.Scale, tc.ScaleRoot, outPitch)
	}

	if tc.DeliverMode == DeliverA || tc.DeliverMode == DeliverBoth {
		p.deliverToSlot(&tc.OutA, &tc.pendingProgramA, outPitch, velocity, noteOn)
	}
	if tc.DeliverMode == DeliverB || tc.DeliverMode == DeliverBoth {
		p.deliverToSlot(&tc.OutB, &tc.pendingProgramB, outPitch, velocity, noteOn)
	}
}

func (p *Processor) deliverToSlot(slot *OutputSlot, pending *bool, pitch, velocity byte, noteOn bool) {
	if slot.Port == midistream.PortCVOut {
		p.sink.DeliverAnalogNote(int(slot.Channel), pitch, velocity, noteOn)
		return
	}
	if *pending && slot.Program >= 0 {
		p.sink.EnqueueProgramChange(slot.Port, slot.Channel, slot.Program)
		*pending = false
	}
	if noteOn {
		p.sink.EnqueueNoteOn(slot.Port, slot.Channel, pitch, velocity)
	} else {
		p.sink.EnqueueNoteOff(slot.Port, slot.Channel, pitch, velocity)
	}
}

// DeliverCC implements seqtrack.Dispatcher for CC events, routed the
// same way as notes but without transpose/tonality.
func (p *Processor) DeliverCC(track int, controller, value byte) {
	tc := p.Track(track)
	if tc == nil || p.sink == nil {
		return
	}
	if tc.DeliverMode == DeliverA || tc.DeliverMode == DeliverBoth {
		if tc.OutA.Port != midistream.PortCVOut {
			p.sink.EnqueueCC(tc.OutA.Port, tc.OutA.Channel, controller, value)
		}
	}
	if tc.DeliverMode == DeliverB || tc.DeliverMode == DeliverBoth {
		if tc.OutB.Port != midistream.PortCVOut {
			p.sink.EnqueueCC(tc.OutB.Port, tc.OutB.Channel, controller, value)
		}
	}
}
