package seqtrack

// SceneSyncMode selects when a pending scene change takes effect.
type SceneSyncMode int

const (
	SceneSyncImmediate SceneSyncMode = iota
	SceneSyncBeat
	SceneSyncTrack1
)

// Sequencer owns NumTracks Tracks and applies the tick-ordering
// guarantees of spec §4.4/§5: bias resolution for all tracks precedes
// note emission for all tracks, and scene changes are observed by every
// track on the same tick.
type Sequencer struct {
	Tracks [NumTracks]*Track

	SyncMode     SceneSyncMode
	KBTrans      int
	sceneCurrent int
	sceneNext    int
	running      bool
}

// NewSequencer constructs a Sequencer with NumTracks fresh Tracks bound
// to dispatcher.
func NewSequencer(dispatcher Dispatcher) *Sequencer {
	s := &Sequencer{}
	for i := range s.Tracks {
		s.Tracks[i] = NewTrack(i, dispatcher)
	}
	return s
}

// Recalc recomputes every track's cached per-scene timing from ppq.
func (s *Sequencer) Recalc(ppq int) {
	for _, t := range s.Tracks {
		t.Recalc(ppq)
	}
}

// ResetAllPositions snaps every track's step position to its motion
// start/end and clears clock dividers (spec §4.4: "reset all track
// step-positions" on scene change or run).
func (s *Sequencer) ResetAllPositions() {
	for _, t := range s.Tracks {
		t.ResetPosition()
	}
}

// CurrentScene returns the scene index currently in effect.
func (s *Sequencer) CurrentScene() int { return s.sceneCurrent }

// RequestScene queues a scene change; it takes effect according to
// SyncMode (spec §4.4 step 8).
func (s *Sequencer) RequestScene(scene int) {
	s.sceneNext = scene
	if !s.running || s.SyncMode == SceneSyncImmediate {
		s.changeSceneNow()
	}
}

func (s *Sequencer) changeSceneNow() {
	if s.sceneCurrent == s.sceneNext {
		return
	}
	s.sceneCurrent = s.sceneNext
	s.ResetAllPositions()
}

// SetRunning transitions run state; starting resets all track positions
// and stopping stops every track's active notes (spec §4.4's run/stop
// handling). Step timing is not recalculated here; see Recalc.
func (s *Sequencer) SetRunning(run bool) {
	s.running = run
	if run {
		s.ResetAllPositions()
	} else {
		for _, t := range s.Tracks {
			t.StopAllNotes()
		}
	}
}

// Tick advances the sequencer by one clock tick. beatCross indicates
// this tick crossed a beat boundary (for SceneSyncBeat). Grounded on
// seq_engine_run's per-tick ordering.
func (s *Sequencer) Tick(beatCross bool) {
	if beatCross && s.SyncMode == SceneSyncBeat {
		s.changeSceneNow()
	}
	if s.SyncMode == SceneSyncTrack1 {
		t1 := s.Tracks[0]
		if t1.DividerDue() && t1.stepPos == t1.MotionStart {
			s.changeSceneNow()
		}
	}

	// Bias resolution precedes note emission for every track (spec §5).
	for _, t := range s.Tracks {
		t.ResolveBias()
	}

	for _, t := range s.Tracks {
		t.ManageNotes()

		if !t.DividerDue() {
			t.AdvanceDivider()
			continue
		}

		bias := 0
		if t.BiasTrack != BiasTrackNone && t.BiasTrack != t.Index {
			bias = s.Tracks[t.BiasTrack].BiasOutput()
		}
		t.PlayStep(s.KBTrans, bias)
		t.MoveToNextStep()
		t.AdvanceDivider()
	}

}

// ArpStepsDue returns, for each track with ArpEnable set, whether this
// tick crossed that track's own arp-speed divider boundary. The caller
// (pkg/carbon's composer) uses this to drive the corresponding
// *arp.Track's Run()/ManageNotes() at the right cadence, since Track's
// ArpSink interface only exposes NoteOn/NoteOff, not arp stepping.
func (s *Sequencer) ArpStepsDue() [NumTracks]bool {
	var due [NumTracks]bool
	for i, t := range s.Tracks {
		if t.ArpEnable {
			due[i] = t.ArpDue()
		}
	}
	return due
}
