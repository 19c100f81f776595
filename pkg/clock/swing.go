package clock

// swingMultiplier returns the per-tick duration multiplier for the given
// swing level (0..100) and tick offset within the current beat. Ticks
// are shaped in adjacent pairs: the first of each pair is lengthened and
// the second shortened by the same amount, so any two adjacent ticks
// still sum to 2x the nominal duration and the whole beat always sums to
// exactly PPQ ticks' worth of nominal time, satisfying the "sum over a
// beat equals PPQ" invariant for every swing setting (spec §4.2, §8
// invariant 3).
func swingMultiplier(level int, tickInBeat int) float64 {
	if level <= 0 {
		return 1.0
	}
	amount := float64(level) / 100.0 * 0.5
	if tickInBeat%2 == 0 {
		return 1.0 + amount
	}
	return 1.0 - amount
}
