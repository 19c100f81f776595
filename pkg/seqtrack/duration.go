package seqtrack

// Duration is one of the 17 enumerated step-size note durations a track
// can be clocked at, grounded on the seventeen STEP_SIZE_* values of the
// original firmware's step-size selector.
type Duration int

const (
	DurWhole Duration = iota
	DurHalfDot
	DurHalf
	DurHalfTriplet
	DurQuarterDot
	DurQuarter
	DurQuarterTriplet
	DurEighthDot
	DurEighth
	DurEighthTriplet
	DurSixteenthDot
	DurSixteenth
	DurSixteenthTriplet
	DurThirtySecondDot
	DurThirtySecond
	DurThirtySecondTriplet
	DurSixtyFourth
)

// durationMultiplier gives each duration's length as a multiple of one
// quarter note (PPQ ticks).
var durationMultiplier = map[Duration]float64{
	DurWhole:               4.0,
	DurHalfDot:             3.0,
	DurHalf:                2.0,
	DurHalfTriplet:         4.0 / 3.0,
	DurQuarterDot:          1.5,
	DurQuarter:             1.0,
	DurQuarterTriplet:      2.0 / 3.0,
	DurEighthDot:           0.75,
	DurEighth:              0.5,
	DurEighthTriplet:       1.0 / 3.0,
	DurSixteenthDot:        0.375,
	DurSixteenth:           0.25,
	DurSixteenthTriplet:    1.0 / 6.0,
	DurThirtySecondDot:     0.1875,
	DurThirtySecond:        0.125,
	DurThirtySecondTriplet: 1.0 / 12.0,
	DurSixtyFourth:         0.0625,
}

// Ticks converts this duration into a tick count given the clock's PPQ,
// always at least 1 tick.
func (d Duration) Ticks(ppq int) int {
	mult, ok := durationMultiplier[d]
	if !ok {
		mult = 1.0
	}
	ticks := int(float64(ppq)*mult + 0.5)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}
