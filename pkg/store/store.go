// Package store implements CARBON's persistent-state boundary: opaque
// byte blobs keyed by (song index, slot kind), Song/Config encoding via
// encoding/binary (matching the teacher's bmp.go/builtins_fileio.go
// binary.Read/Write style), and version-gated migrations applied on
// load. Grounded on spec.md §6's persistent-state paragraph; no single
// original-source file was retained for song.c's on-disk format, so the
// wire layout here is this package's own design rather than a literal
// port.
package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kilpatrickaudio/carbon-core/pkg/song"
)

// SlotKind distinguishes the two blob kinds a Store holds per song
// index.
type SlotKind int

const (
	SlotSong SlotKind = iota
	SlotConfig
)

// Store is the boundary a concrete blob backend (flash, file, or an
// in-memory fake for tests) implements. Grounded on the teacher's
// AssetLoader pattern: a narrow interface the core depends on, with the
// concrete backend supplied by the composition root.
type Store interface {
	ReadBlob(songIndex int, kind SlotKind) ([]byte, error)
	WriteBlob(songIndex int, kind SlotKind, data []byte) error
}

// MemoryStore is an in-memory Store, used by tests and the simulator.
type MemoryStore struct {
	blobs map[[2]int][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[[2]int][]byte{}}
}

func (m *MemoryStore) ReadBlob(songIndex int, kind SlotKind) ([]byte, error) {
	data, ok := m.blobs[[2]int{songIndex, int(kind)}]
	if !ok {
		return nil, fmt.Errorf("store: no blob at song %d kind %d", songIndex, kind)
	}
	return data, nil
}

func (m *MemoryStore) WriteBlob(songIndex int, kind SlotKind, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[[2]int{songIndex, int(kind)}] = cp
	return nil
}

// magic tags the start of every encoded blob so a decode attempt on a
// foreign or corrupt blob fails fast rather than silently
// misinterpreting bytes.
const magic = uint32(0x43424e31) // "CBN1"

func writeU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func writeI32(buf *bytes.Buffer, v int)    { writeU32(buf, uint32(int32(v))) }
func writeByte(buf *bytes.Buffer, v byte)  { buf.WriteByte(v) }
func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		writeByte(buf, 1)
	} else {
		writeByte(buf, 0)
	}
}
func writeF64(buf *bytes.Buffer, v float64) { binary.Write(buf, binary.LittleEndian, v) }

type byteReader struct {
	r   *bytes.Reader
	err error
}

func (r *byteReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}
func (r *byteReader) i32() int   { return int(int32(r.u32())) }
func (r *byteReader) byte() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	r.err = err
	return b
}
func (r *byteReader) boolean() bool { return r.byte() != 0 }
func (r *byteReader) f64() float64 {
	if r.err != nil {
		return 0
	}
	var v float64
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}

// EncodeSong serializes a Song into a versioned blob suitable for
// WriteBlob. The saver always writes song.CurrentVersion.
func EncodeSong(s *song.Song) []byte {
	var buf bytes.Buffer
	writeU32(&buf, magic)
	writeI32(&buf, song.CurrentVersion)
	writeF64(&buf, s.Tempo)
	writeI32(&buf, s.Swing)
	writeI32(&buf, int(s.MetroMode))
	writeI32(&buf, s.MetroLength)
	writeI32(&buf, int(s.ClockSource))
	writeBool(&buf, s.MIDIRemoteEnable)
	writeI32(&buf, int(s.SceneSync))
	writeI32(&buf, s.CurrentScene())

	for i := range s.ModeList {
		e := s.ModeList[i]
		writeI32(&buf, e.SceneID)
		writeI32(&buf, e.Beats)
		writeI32(&buf, e.KBTrans)
	}

	for sceneIdx := range s.Scenes {
		for trackIdx := range s.Scenes[sceneIdx].Tracks {
			encodeTrackConfig(&buf, &s.Scenes[sceneIdx].Tracks[trackIdx])
		}
	}
	return buf.Bytes()
}

func encodeTrackConfig(buf *bytes.Buffer, tc *song.TrackConfig) {
	writeI32(buf, int(tc.Type))
	writeI32(buf, int(tc.StepDuration))
	writeI32(buf, tc.MotionStart)
	writeI32(buf, tc.MotionLength)
	writeBool(buf, tc.Reverse)
	writeI32(buf, tc.GateTimePct)
	writeI32(buf, int(tc.PatternType))
	writeI32(buf, tc.Transpose)
	writeI32(buf, int(tc.Tonality))
	writeBool(buf, tc.Mute)
	writeBool(buf, tc.ArpEnable)
	writeI32(buf, int(tc.ArpType))
	writeI32(buf, tc.ArpOctaves)
	writeI32(buf, int(tc.ArpSpeed))
	writeI32(buf, tc.ArpGateTime)
	writeI32(buf, tc.BiasTrack)
	writeI32(buf, int(tc.OutA.Port))
	writeByte(buf, tc.OutA.Channel)
	writeI32(buf, tc.OutA.Program)
	writeI32(buf, int(tc.OutB.Port))
	writeByte(buf, tc.OutB.Channel)
	writeI32(buf, tc.OutB.Program)

	for i := range tc.Steps {
		st := &tc.Steps[i]
		writeI32(buf, st.StartDelay)
		writeI32(buf, st.RatchetCount)
		writeI32(buf, st.Probability)
		for j := range st.Events {
			ev := st.Events[j]
			writeI32(buf, int(ev.Type))
			writeByte(buf, ev.Pitch)
			writeByte(buf, ev.Velocity)
			writeI32(buf, ev.LengthTicks)
			writeByte(buf, ev.Controller)
			writeByte(buf, ev.Value)
		}
	}
}
