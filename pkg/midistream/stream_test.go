package midistream

import (
	"testing"

	"github.com/kilpatrickaudio/carbon-core/pkg/midimsg"
)

func feed(p *Parser, bytes ...byte) []midimsg.Message {
	var out []midimsg.Message
	for _, b := range bytes {
		out = append(out, p.ParseByte(b)...)
	}
	return out
}

// TestRunningStatus covers scenario S1 from the spec: 90 3C 40 3E 40 80 3C 40
// should yield NoteOn(60,64), NoteOn(62,64), NoteOff(60,64).
func TestRunningStatus(t *testing.T) {
	p := NewParser(PortDINIn1)
	msgs := feed(p, 0x90, 0x3C, 0x40, 0x3E, 0x40, 0x80, 0x3C, 0x40)

	want := []midimsg.Message{
		midimsg.NoteOn(int(PortDINIn1), 0, 60, 64),
		midimsg.NoteOn(int(PortDINIn1), 0, 62, 64),
		midimsg.NoteOff(int(PortDINIn1), 0, 60, 64),
	}

	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d: %v", len(want), len(msgs), msgs)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("message %d: got %v, want %v", i, msgs[i], want[i])
		}
	}
}

// TestVelocityZeroNoteOnRewrite covers scenario S2: 90 3C 00 -> NoteOff(60, 0x40).
func TestVelocityZeroNoteOnRewrite(t *testing.T) {
	p := NewParser(PortDINIn1)
	msgs := feed(p, 0x90, 0x3C, 0x00)

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d: %v", len(msgs), msgs)
	}
	want := midimsg.NoteOff(int(PortDINIn1), 0, 60, midimsg.NoteOffVelocity)
	if msgs[0] != want {
		t.Errorf("got %v, want %v", msgs[0], want)
	}
}

// TestSysExFraming covers scenario S3: F0 00 01 72 01 41 42 F7 reassembles
// to the payload {00,01,72,01,41,42,F7} across two 3-byte fragments
// followed by a 1-byte {F7} fragment (spec §4.1: the terminator byte
// itself is the final byte of the last emitted fragment).
func TestSysExFraming(t *testing.T) {
	p := NewParser(PortSysExIn)
	msgs := feed(p, 0xF0, 0x00, 0x01, 0x72, 0x01, 0x41, 0x42, 0xF7)

	var reassembled []byte
	for _, m := range msgs {
		reassembled = append(reassembled, m.Bytes()...)
	}

	want := []byte{0x00, 0x01, 0x72, 0x01, 0x41, 0x42, 0xF7}
	if len(reassembled) != len(want) {
		t.Fatalf("expected %d payload bytes, got %d: %v", len(want), len(reassembled), reassembled)
	}
	for i := range want {
		if reassembled[i] != want[i] {
			t.Errorf("byte %d: got %02X want %02X", i, reassembled[i], want[i])
		}
	}
}

// TestSysExTerminatorWithNoBufferedBytes covers the common F0...F7 case
// with nothing buffered: the terminator alone must still surface as a
// 1-byte {0xF7} fragment, not a dropped/empty message.
func TestSysExTerminatorWithNoBufferedBytes(t *testing.T) {
	p := NewParser(PortSysExIn)
	msgs := feed(p, 0xF0, 0xF7)

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d: %v", len(msgs), msgs)
	}
	if msgs[0].Length != 1 || msgs[0].Status != 0xF7 {
		t.Errorf("expected a 1-byte {0xF7} fragment, got %+v", msgs[0])
	}
}

func TestSystemRealtimeDoesNotDisturbRunningStatus(t *testing.T) {
	p := NewParser(PortDINIn1)
	msgs := feed(p, 0x90, 0x3C, 0x40, 0xF8, 0x3E, 0x40)

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages (NoteOn, Clock, NoteOn), got %d: %v", len(msgs), msgs)
	}
	if msgs[1].Status != midimsg.StatusTimingClock {
		t.Errorf("expected timing clock in the middle, got %v", msgs[1])
	}
	want := midimsg.NoteOn(int(PortDINIn1), 0, 62, 64)
	if msgs[2] != want {
		t.Errorf("running status not preserved after realtime byte: got %v want %v", msgs[2], want)
	}
}

func TestChannelStatusMidSysExFlushesImplicitFragment(t *testing.T) {
	p := NewParser(PortSysExIn)
	msgs := feed(p, 0xF0, 0x01, 0x02, 0x90, 0x3C, 0x40)

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages (flushed sysex fragment + note on), got %d: %v", len(msgs), msgs)
	}
	if msgs[0].Length != 3 || msgs[0].Status != 0x01 || msgs[0].Data0 != 0x02 || msgs[0].Data1 != 0xF7 {
		t.Errorf("unexpected flushed sysex fragment: %+v", msgs[0])
	}
	want := midimsg.NoteOn(int(PortSysExIn), 0, 60, 64)
	if msgs[1] != want {
		t.Errorf("got %v want %v", msgs[1], want)
	}
}

func TestQueueFIFOAndCapacity(t *testing.T) {
	q := NewQueue(4) // rounds to 4, usable capacity 3
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(midimsg.NoteOn(0, 0, byte(60+i), 64)); err != nil {
			t.Fatalf("unexpected enqueue error at %d: %v", i, err)
		}
	}
	if !q.Full() {
		t.Fatal("expected queue to report full")
	}
	if err := q.Enqueue(midimsg.NoteOn(0, 0, 70, 64)); err == nil {
		t.Fatal("expected ErrQueueFull")
	}

	for i := 0; i < 3; i++ {
		m, ok := q.Dequeue()
		if !ok {
			t.Fatalf("expected message %d", i)
		}
		if m.Data0 != byte(60+i) {
			t.Errorf("FIFO order violated: got %d want %d", m.Data0, 60+i)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestStreamEnqueueByteRoundTrip(t *testing.T) {
	s := NewStream(DefaultQueueCapacity)
	if err := s.EnqueueByte(PortDINIn1, 0x90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.EnqueueByte(PortDINIn1, 0x3C); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Available(PortDINIn1) {
		t.Fatal("message should not be complete yet")
	}
	if err := s.EnqueueByte(PortDINIn1, 0x40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Available(PortDINIn1) {
		t.Fatal("expected a complete message")
	}
	m, ok := s.Dequeue(PortDINIn1)
	if !ok {
		t.Fatal("expected dequeue to succeed")
	}
	if m != midimsg.NoteOn(int(PortDINIn1), 0, 60, 64) {
		t.Errorf("unexpected message: %v", m)
	}
}

func TestStreamInvalidPort(t *testing.T) {
	s := NewStream(DefaultQueueCapacity)
	if err := s.EnqueueByte(Port(999), 0x90); err == nil {
		t.Fatal("expected ErrInvalidPort")
	}
}
