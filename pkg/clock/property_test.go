package clock

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTicksPerBeatProperty validates invariant 3 across random tempo and
// swing combinations: every beat's emitted ticks sum to exactly PPQ.
func TestTicksPerBeatProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("ticks per beat always equal PPQ", prop.ForAll(
		func(bpm float64, swing int) bool {
			l := &recordingListener{}
			c := New(l)
			c.SetTempo(bpm)
			c.SetSwing(swing)
			c.Run()

			lastTickAtBeat := int64(0)
			beatsObserved := 0
			for i := 0; i < 500000 && beatsObserved < 2; i++ {
				before := len(l.beats)
				c.TaskTick()
				if len(l.beats) > before {
					beatsObserved++
					ticks := c.TickCount() - lastTickAtBeat
					lastTickAtBeat = c.TickCount()
					if ticks != int64(c.PPQ()) {
						return false
					}
				}
			}
			return beatsObserved >= 2
		},
		gen.Float64Range(BPMMin, BPMMax),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
