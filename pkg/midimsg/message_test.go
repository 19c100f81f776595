package midimsg

import "testing"

func TestNoteOnVelocityZeroRewrite(t *testing.T) {
	m := NoteOn(0, 0, 60, 0)
	if m.Status != StatusNoteOff {
		t.Fatalf("expected NoteOff status, got %02X", m.Status)
	}
	if m.Data1 != NoteOffVelocity {
		t.Fatalf("expected velocity %02X, got %02X", NoteOffVelocity, m.Data1)
	}
}

func TestNoteOnBytes(t *testing.T) {
	m := NoteOn(2, 1, 64, 100)
	want := []byte{StatusNoteOn | 1, 64, 100}
	got := m.Bytes()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got %v want %v", i, got, want)
		}
	}
}

func TestChannelAndCommand(t *testing.T) {
	m := ControlChange(0, 5, 1, 127)
	if m.Channel() != 5 {
		t.Fatalf("expected channel 5, got %d", m.Channel())
	}
	if m.Command() != StatusControlChange {
		t.Fatalf("expected command %02X, got %02X", StatusControlChange, m.Command())
	}
}

func TestSystemRealtimeClassification(t *testing.T) {
	for _, s := range []byte{StatusTimingClock, StatusStart, StatusContinue, StatusStop, StatusActiveSense, StatusSystemReset} {
		if !IsSystemRealtime(s) {
			t.Errorf("expected %02X to be system realtime", s)
		}
	}
	if IsSystemRealtime(StatusNoteOn) {
		t.Error("NoteOn should not be system realtime")
	}
}

func TestSystemCommonClassification(t *testing.T) {
	for _, s := range []byte{StatusMTCQuarterFrame, StatusSongPosition, StatusSongSelect, StatusTuneRequest} {
		if !IsSystemCommon(s) {
			t.Errorf("expected %02X to be system common", s)
		}
	}
	if IsSystemCommon(StatusTimingClock) {
		t.Error("TimingClock should not be system common")
	}
}

func TestDataBytesFor(t *testing.T) {
	if DataBytesFor(StatusProgramChange) != 1 {
		t.Error("program change should need 1 data byte")
	}
	if DataBytesFor(StatusChanAftertouch) != 1 {
		t.Error("channel aftertouch should need 1 data byte")
	}
	if DataBytesFor(StatusNoteOn) != 2 {
		t.Error("note on should need 2 data bytes")
	}
}

func TestSysExCarrierTruncation(t *testing.T) {
	m := SysExCarrier(3, []byte{0x00, 0x01})
	if m.Length != 2 {
		t.Fatalf("expected length 2, got %d", m.Length)
	}
	if m.Status != 0x00 || m.Data0 != 0x01 {
		t.Fatalf("unexpected carrier contents: %+v", m)
	}
}
