package clock

// externalSync implements the PLL-style external-tick recovery described
// in spec §4.2, grounded on the original firmware's midi_clock.c ring
// history (H=8 samples, adopted once >= 3 exist) plus a fixed lock-adjust
// step and an exponentially filtered display tempo.
type externalSync struct {
	hist      [ExtHistLen]float64
	histLen   int
	histPos   int
	histSum   float64

	filteredAvgUS float64
	extTickCount  int64

	sinceLastTickUS float64
}

func newExternalSync() *externalSync {
	return &externalSync{}
}

func (e *externalSync) reset() {
	*e = externalSync{}
}

// observe records one measured external tick interval and returns the
// current moving average plus whether enough samples exist to adopt it
// (spec: "Once >= 3 samples, set internal µs/tick to the mean").
func (e *externalSync) observe(intervalUS float64) (avgUS float64, locked bool) {
	e.sinceLastTickUS = 0
	e.extTickCount++

	if e.histLen < ExtHistLen {
		e.histSum += intervalUS
		e.hist[e.histPos] = intervalUS
		e.histLen++
	} else {
		e.histSum -= e.hist[e.histPos]
		e.histSum += intervalUS
		e.hist[e.histPos] = intervalUS
	}
	e.histPos = (e.histPos + 1) % ExtHistLen

	if e.histLen < ExtMinHist {
		return 0, false
	}

	avgUS = e.histSum / float64(e.histLen)

	if e.filteredAvgUS == 0 {
		e.filteredAvgUS = avgUS
	} else {
		e.filteredAvgUS = ExtTempoFilterA*e.filteredAvgUS + (1-ExtTempoFilterA)*avgUS
	}

	return avgUS, true
}

// applyLockAdjust returns target shifted by +-ExtLockAdjUS according to
// the sign of the accumulated tick-count error versus the external
// reference, per spec §4.2's "compare local-tick-count to
// external-tick-count*upsample; shift µs/tick by ±LOCK_ADJ to close the
// error." current is not used. The caller clamps the result to
// [usMin, usMax] when writing it (clamp-on-write, spec §9).
func (e *externalSync) applyLockAdjust(target, current float64, localTickCount int64) float64 {
	const upsample = 1 // one MIDI clock pulse per emitted tick at PPQ=96/24-per-quarter upsampling handled by caller
	expected := e.extTickCount * upsample
	err := localTickCount - expected

	adjusted := target
	switch {
	case err > 0:
		adjusted -= ExtLockAdjUS
	case err < 0:
		adjusted += ExtLockAdjUS
	}
	return adjusted
}

// checkTimeout advances the since-last-tick accumulator by one task
// period and reports whether SYNC_TIMEOUT has elapsed without a new
// external tick, in which case the caller drops sync and stops the
// clock (spec §4.2).
func (e *externalSync) checkTimeout(taskUS int64) bool {
	e.sinceLastTickUS += float64(taskUS)
	if e.sinceLastTickUS >= ExtSyncTimeoutUS {
		e.reset()
		return true
	}
	return false
}
