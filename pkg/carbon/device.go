// Package carbon is the top-level composer: it wires the clock,
// arpeggiator, step sequencer, out-proc, record, song, analog, and
// transport packages into one running device, the way the teacher's
// pkg/engine composes its subsystems behind a single entry point.
package carbon

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/kilpatrickaudio/carbon-core/pkg/analog"
	"github.com/kilpatrickaudio/carbon-core/pkg/arp"
	"github.com/kilpatrickaudio/carbon-core/pkg/clock"
	"github.com/kilpatrickaudio/carbon-core/pkg/logger"
	"github.com/kilpatrickaudio/carbon-core/pkg/midiexport"
	"github.com/kilpatrickaudio/carbon-core/pkg/midistream"
	"github.com/kilpatrickaudio/carbon-core/pkg/outproc"
	"github.com/kilpatrickaudio/carbon-core/pkg/record"
	"github.com/kilpatrickaudio/carbon-core/pkg/seqtrack"
	"github.com/kilpatrickaudio/carbon-core/pkg/song"
	"github.com/kilpatrickaudio/carbon-core/pkg/store"
	"github.com/kilpatrickaudio/carbon-core/pkg/transport"
)

// StateListener receives high-level device state-change notifications,
// for a UI/panel layer to redraw from. Grounded on the teacher's narrow
// callback-interface pattern (pkg/engine's scene listeners).
type StateListener interface {
	OnSceneChanged(scene int)
	OnRunStateChanged(running bool)
	OnSongChanged(index int)
}

// Device composes every CARBON subsystem into one running instance.
type Device struct {
	log *slog.Logger

	stream    *midistream.Stream
	analogOut analog.Sink
	clockOut  *analog.ClockOut

	clk  *clock.Clock
	proc *outproc.Processor
	seq  *seqtrack.Sequencer

	arpTracks [seqtrack.NumTracks]*arp.Track

	recorder   *record.Recorder
	currentSng *song.Song
	config     *song.Config
	controller *song.Controller
	remote     *transport.RemoteDecoder

	st         store.Store
	songIndex  int
	ccState    map[byte]byte
	listener   StateListener
}

// NewDevice constructs a fully-wired Device. stream carries outgoing
// MIDI to/from pkg/midistream's port queues; analogOut is the concrete
// CV/gate driver (or a test fake); st is the persistent blob store. A
// nil log falls back to the package logger, matching the teacher's
// pkg/logger.GetLogger() convention.
func NewDevice(stream *midistream.Stream, analogOut analog.Sink, st store.Store, log *slog.Logger) *Device {
	if log == nil {
		log = logger.GetLogger()
	}

	d := &Device{
		log:        log,
		stream:     stream,
		analogOut:  analogOut,
		currentSng: song.NewSong(),
		config:     song.NewConfig(),
		st:         st,
		ccState:    map[byte]byte{},
	}

	d.clockOut = analog.NewClockOut(analogOut)
	d.proc = outproc.NewProcessor(d)
	d.seq = seqtrack.NewSequencer(d.proc)
	d.recorder = record.NewRecorder(log)
	d.controller = song.NewController(d.currentSng, d)
	d.remote = transport.NewRemoteDecoder(d.controller, d.controller, d.controller)
	d.clk = clock.New(d)

	for i := range d.arpTracks {
		emitter := &arpEmitter{proc: d.proc, track: i}
		d.arpTracks[i] = arp.NewTrack(emitter, int64(i)+1)
		d.seq.Tracks[i].SetArpSink(d.arpTracks[i])
	}

	d.applySceneToProcessor()
	return d
}

// Clock returns the device's timebase, for a caller to feed
// ReceiveExternalTick/ReceiveTap or to drive TaskTick on a realtime
// cadence.
func (d *Device) Clock() *clock.Clock { return d.clk }

// Remote returns the MIDI remote-control decoder, for a caller to feed
// incoming messages on channels 10-16.
func (d *Device) Remote() *transport.RemoteDecoder { return d.remote }

// SetStateListener binds the UI/panel listener that OnRunStateChanged
// and SelectSong notify.
func (d *Device) SetStateListener(l StateListener) { d.listener = l }

// TaskTick drives the sub-tick realtime cadence (analog pulse timeouts),
// independent of the musical tick rate, matching the teacher's
// dual-cadence task split (UI task vs realtime task).
func (d *Device) TaskTick() {
	d.clockOut.TaskTick()
}

// applySceneToProcessor copies the current scene's per-track out-proc
// parameters (transpose, tonality, output routing) into the Processor,
// matching outproc_transpose_changed/outproc_tonality_changed firing on
// every scene change (spec §4.5).
func (d *Device) applySceneToProcessor() {
	for i := 0; i < seqtrack.NumTracks; i++ {
		tc := d.currentSng.Track(i)
		if tc == nil {
			continue
		}
		pc := d.proc.Track(i)
		pc.Transpose = tc.Transpose
		pc.IsVoice = tc.Type == seqtrack.TrackTypeVoice
		pc.Scale = tc.Tonality
		pc.OutA = tc.OutA
		pc.OutB = tc.OutB

		track := d.seq.Tracks[i]
		track.Type = tc.Type
		track.Steps = tc.Steps
		track.StepDuration = tc.StepDuration
		track.MotionStart = tc.MotionStart
		track.MotionLength = tc.MotionLength
		track.Reverse = tc.Reverse
		track.GateTimePct = tc.GateTimePct
		track.PatternType = tc.PatternType
		track.Mute = tc.Mute
		track.ArpEnable = tc.ArpEnable
		track.ArpSpeed = tc.ArpSpeed
		track.ArpGateTime = tc.ArpGateTime
		track.BiasTrack = tc.BiasTrack
		track.Recalc(d.clk.PPQ())

		d.arpTracks[i].SetEnabled(tc.ArpEnable)
	}
}

// --- clock.Listener ---

func (d *Device) OnTick(tickCount int64) {
	beatCross := tickCount%int64(d.clk.PPQ()) == 0
	d.seq.Tick(beatCross)

	due := d.seq.ArpStepsDue()
	for i, isDue := range due {
		d.arpTracks[i].ManageNotes()
		if isDue {
			d.arpTracks[i].Run()
		}
	}

	d.clockOut.Tick(int(tickCount))
	d.clockOut.ClockPulse()
}

func (d *Device) OnBeat(beatCount int64) {}

func (d *Device) OnRunStateChanged(running bool) {
	d.seq.SetRunning(running)
	d.clockOut.SetRunState(running)
	if d.listener != nil {
		d.listener.OnRunStateChanged(running)
	}
}

func (d *Device) OnSourceChanged(src clock.Source) {}

func (d *Device) OnTapLocked(bpm float64) {
	d.clk.SetTempo(bpm)
}

func (d *Device) OnExternalTempoChanged(bpm float64) {}

// --- song.Transport ---

func (d *Device) Run()  { d.clk.Run() }
func (d *Device) Stop() { d.clk.Stop() }

func (d *Device) ResetTrack(track int) {
	if track < 0 || track >= seqtrack.NumTracks {
		return
	}
	d.seq.Tracks[track].ResetPosition()
}

func (d *Device) ResetAll() {
	d.seq.ResetAllPositions()
}

func (d *Device) StartRecord() {
	// Armed against track 0 of the current scene by default; a
	// panel/CLI layer picks the track/mode before arming in practice.
	d.recorder.Arm(d.currentSng.CurrentScene(), 0, d.currentSng.Track(0).Type, d.seq.Tracks[0].StepDuration.Ticks(d.clk.PPQ()), 0, seqtrack.NumSteps)
	d.recorder.StartIfArmed(d.clk.Running(), int(d.clk.TickCount()))
}

func (d *Device) SelectSong(index int) {
	if d.st == nil {
		return
	}
	if err := d.LoadSong(index); err != nil {
		d.log.Warn("failed to load song on SelectSong", "index", index, "error", err)
		return
	}
	if d.listener != nil {
		d.listener.OnSongChanged(index)
	}
}

// SetKBTrans sets the keyboard transpose. pkg/seqtrack adds it to voice
// pitches at step playback, so the out-proc KBTrans is left at 0.
func (d *Device) SetKBTrans(semitones int) {
	d.seq.KBTrans = semitones
}

// --- persistence ---

// SaveSong writes the current song to slot index.
func (d *Device) SaveSong(index int) error {
	if d.st == nil {
		return fmt.Errorf("carbon: no store configured")
	}
	return d.st.WriteBlob(index, store.SlotSong, store.EncodeSong(d.currentSng))
}

// LoadSong reads and decodes the song at slot index, replacing the
// current song and re-applying its scene to the running subsystems.
func (d *Device) LoadSong(index int) error {
	if d.st == nil {
		return fmt.Errorf("carbon: no store configured")
	}
	blob, err := d.st.ReadBlob(index, store.SlotSong)
	if err != nil {
		return err
	}
	s, err := store.DecodeSong(blob)
	if err != nil {
		return err
	}
	d.currentSng = s
	d.songIndex = index
	d.controller = song.NewController(d.currentSng, d)
	d.remote.Notes = d.controller
	d.remote.CCs = d.controller
	d.remote.SongSelects = d.controller
	d.applySceneToProcessor()
	return nil
}

// SaveConfig writes the current global configuration.
func (d *Device) SaveConfig() error {
	if d.st == nil {
		return fmt.Errorf("carbon: no store configured")
	}
	return d.st.WriteBlob(0, store.SlotConfig, store.EncodeConfig(d.config))
}

// LoadConfig reads and decodes the global configuration.
func (d *Device) LoadConfig() error {
	if d.st == nil {
		return fmt.Errorf("carbon: no store configured")
	}
	blob, err := d.st.ReadBlob(0, store.SlotConfig)
	if err != nil {
		return err
	}
	c, err := store.DecodeConfig(blob)
	if err != nil {
		return err
	}
	d.config = c
	return nil
}

// ExportSceneSMF renders the given scene to a Standard MIDI File, for
// pulling a pattern into a DAW.
func (d *Device) ExportSceneSMF(scene int) ([]byte, error) {
	return midiexport.ExportScene(d.currentSng, scene, d.clk.Tempo())
}

// ImportTrackSMF reads a Standard MIDI File and quantizes channel's
// notes onto one track of the current scene, replacing its step data,
// then re-applies the scene so the running sequencer picks it up.
func (d *Device) ImportTrackSMF(r io.Reader, channel uint8, track int) error {
	tc := d.currentSng.Track(track)
	if tc == nil {
		return fmt.Errorf("carbon: track %d out of range", track)
	}
	if err := midiexport.ImportTrack(r, channel, tc); err != nil {
		return err
	}
	d.applySceneToProcessor()
	return nil
}

// --- recording input ---

// RecordNoteOn feeds one recording-input note-on into the armed
// recorder, if any, with tickPos the current absolute tick count.
func (d *Device) RecordNoteOn(pitch, velocity byte, tickPos int) {
	d.recorder.NoteOn(pitch, velocity, d.currentSng, tickPos)
}

// RecordNoteOff feeds one recording-input note-off.
func (d *Device) RecordNoteOff(pitch byte, tickPos int) {
	d.recorder.NoteOff(pitch, tickPos)
}

// RecordCC feeds one recording-input CC (damper pedal during step
// record inserts a rest, per pkg/record's documented behavior).
func (d *Device) RecordCC(controller, value byte) {
	d.recorder.CC(controller, value, d.currentSng)
}

// CommitRecording writes the in-progress realtime recording into the
// song and returns the recorder to idle. When the realtime buffer is
// empty nothing is written and the recorder mode is left as it is.
func (d *Device) CommitRecording() {
	d.recorder.Commit(d.currentSng)
}

// --- outproc.Sink ---

func (d *Device) EnqueueNoteOn(port midistream.Port, channel, pitch, velocity byte) {
	_ = d.stream.Enqueue(noteOnMsg(int(port), channel, pitch, velocity))
}

func (d *Device) EnqueueNoteOff(port midistream.Port, channel, pitch, velocity byte) {
	_ = d.stream.Enqueue(noteOffMsg(int(port), channel, pitch, velocity))
}

func (d *Device) EnqueueCC(port midistream.Port, channel, controller, value byte) {
	d.ccState[controller] = value
	_ = d.stream.Enqueue(ccMsg(int(port), channel, controller, value))
}

func (d *Device) EnqueueProgramChange(port midistream.Port, channel byte, program int) {
	_ = d.stream.Enqueue(programChangeMsg(int(port), channel, byte(program)))
}

// DeliverAnalogNote routes a track's note event to the CV/gate hardware
// boundary, using the device-wide CV/gate program selection (spec.md
// §6). channel selects which of the analog.NumCVChannels outputs the
// note lands on.
func (d *Device) DeliverAnalogNote(channel int, pitch, velocity byte, noteOn bool) {
	if d.analogOut == nil || channel < 0 || channel >= analog.NumCVChannels {
		return
	}
	values, hasGate := analog.NoteOutputsForProgram(d.config.CVGateProgramA, pitch, velocity, d.ccState)
	d.analogOut.SetCV(channel, values[channel])
	if hasGate[channel] {
		d.analogOut.SetGate(channel, noteOn)
	}
}

