package midistream

import "github.com/kilpatrickaudio/carbon-core/pkg/midimsg"

// parserState is the running-status parser's per-port state, grounded on
// the original firmware's midi_stream.c byte-at-a-time state machine.
type parserState int

const (
	stateIdle parserState = iota
	stateData0
	stateData1
	stateSysexData0
	stateSysexData1
)

// Parser implements the per-port running-status byte parser described in
// spec §4.1. It owns no queue; ParseByte returns the (zero, one, or two)
// complete messages produced by consuming one wire byte, so the caller
// decides where they go.
type Parser struct {
	port Port
	state parserState

	pendingStatus byte // remembered status byte awaiting data bytes
	dataNeeded    int  // data bytes required by pendingStatus
	data0         byte

	sysexBuf [3]byte
	sysexLen int
}

// NewParser returns a Parser bound to the given port, starting Idle.
func NewParser(port Port) *Parser {
	return &Parser{port: port, state: stateIdle}
}

func (p *Parser) inSysEx() bool {
	return p.state == stateSysexData0 || p.state == stateSysexData1
}

// flushSysExChunk closes the in-progress SysEx fragment as an interim
// 3-byte carrier (the buffer filled before a terminator arrived) and
// resets the fragment buffer. No 0xF7 is involved yet: more fragments
// of the same SysEx message may still follow.
func (p *Parser) flushSysExChunk() midimsg.Message {
	m := midimsg.SysExCarrier(int(p.port), p.sysexBuf[:p.sysexLen])
	p.sysexLen = 0
	return m
}

// flushSysEx closes the in-progress SysEx fragment into a 1-3 byte
// message carrier terminated by 0xF7, per spec §4.1 ("0xF7 closes the
// current SysEx fragment into a 1/2/3-byte message... with 0xF7 as the
// final byte") and the original firmware's midi_utils_enc_3byte/
// enc_2byte/enc_1byte, which always encode the 0xF7 byte itself as the
// last data byte. Used both for a real 0xF7 and for an implicit close
// (a channel status, another 0xF0, or Tune Request arriving mid-SysEx).
func (p *Parser) flushSysEx() midimsg.Message {
	var payload [4]byte
	n := copy(payload[:], p.sysexBuf[:p.sysexLen])
	payload[n] = midimsg.StatusSysExEnd
	m := midimsg.SysExCarrier(int(p.port), payload[:n+1])
	p.sysexLen = 0
	return m
}

// ParseByte feeds one wire byte into the parser and returns any complete
// messages it produces. At most one implicit SysEx-flush message and one
// "real" message can be produced by a single byte (a channel status byte
// arriving mid-SysEx, spec §4.1: "A channel status received mid-SysEx
// emits an implicit 0xF7 fragment first").
func (p *Parser) ParseByte(b byte) []midimsg.Message {
	if b >= 0x80 {
		return p.parseStatusByte(b)
	}
	return p.parseDataByte(b)
}

func (p *Parser) parseStatusByte(b byte) []midimsg.Message {
	if midimsg.IsSystemRealtime(b) {
		// Does not disturb running status or SysEx-in-progress state.
		return []midimsg.Message{{Port: int(p.port), Length: 1, Status: b}}
	}

	var out []midimsg.Message

	switch {
	case b == midimsg.StatusSysExStart:
		if p.inSysEx() {
			out = append(out, p.flushSysEx())
		}
		p.state = stateSysexData0
		p.sysexLen = 0
		return out

	case b == midimsg.StatusSysExEnd:
		if p.inSysEx() {
			out = append(out, p.flushSysEx())
		}
		p.state = stateIdle
		return out

	case b == midimsg.StatusTuneRequest:
		if p.inSysEx() {
			out = append(out, p.flushSysEx())
		}
		p.pendingStatus = 0
		p.state = stateIdle
		out = append(out, midimsg.Message{Port: int(p.port), Length: 1, Status: b})
		return out

	case midimsg.IsSystemCommon(b):
		if p.inSysEx() {
			out = append(out, p.flushSysEx())
		}
		p.pendingStatus = b
		switch b {
		case midimsg.StatusSongPosition:
			p.dataNeeded = 2
		default: // SongSelect, MTCQuarterFrame
			p.dataNeeded = 1
		}
		p.state = stateData0
		return out

	default: // channel status 0x80..0xEF
		if p.inSysEx() {
			out = append(out, p.flushSysEx())
		}
		p.pendingStatus = b
		p.dataNeeded = midimsg.DataBytesFor(b)
		p.state = stateData0
		return out
	}
}

func (p *Parser) parseDataByte(b byte) []midimsg.Message {
	switch p.state {
	case stateSysexData0, stateSysexData1:
		if p.sysexLen < 3 {
			p.sysexBuf[p.sysexLen] = b
			p.sysexLen++
		}
		if p.sysexLen >= 3 {
			msg := p.flushSysExChunk()
			p.state = stateSysexData0
			return []midimsg.Message{msg}
		}
		p.state = stateSysexData1
		return nil

	case stateData0:
		p.data0 = b
		if p.dataNeeded == 1 {
			return p.completeMessage(b, 0)
		}
		p.state = stateData1
		return nil

	case stateData1:
		return p.completeMessage(p.data0, b)

	default: // stateIdle: stray data byte, drop
		return nil
	}
}

func (p *Parser) completeMessage(data0, data1 byte) []midimsg.Message {
	status := p.pendingStatus
	length := 1 + p.dataNeeded

	var msg midimsg.Message
	if status >= 0x80 && status < 0xF0 && status&0xF0 == midimsg.StatusNoteOn && data1 == 0 {
		msg = midimsg.NoteOff(int(p.port), status&0x0F, data0, midimsg.NoteOffVelocity)
	} else {
		msg = midimsg.Message{Port: int(p.port), Length: length, Status: status, Data0: data0, Data1: data1}
	}

	if status == midimsg.StatusSongPosition {
		p.state = stateIdle
	} else {
		p.state = stateData0
	}

	return []midimsg.Message{msg}
}
