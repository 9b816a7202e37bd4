package accum

import (
	"iter"
	"math"
)

// snowWaterRatio is the assumed snow-to-water-equivalent ratio (10:1) used
// to partition a precipitation increase into snow water and rain.
const snowWaterRatio = 10.0

// Compute derives accumulation for a single reading against its baseline.
// A nil baseline, or a missing sensor field on either end, propagates as
// nil output fields rather than an error; partial results are normal.
// All outputs are clamped non-negative to absorb sensor settling and
// counter resets.
func Compute(current Measurement, baseline *Measurement) Result {
	var r Result

	if baseline == nil || current.SnowDepth == nil || baseline.SnowDepth == nil {
		return r
	}

	snowAccum := math.Max(0, *current.SnowDepth-*baseline.SnowDepth)
	r.SnowAccum = &snowAccum

	if current.TotalPrecip == nil || baseline.TotalPrecip == nil {
		return r
	}

	precipIncrease := math.Max(0, *current.TotalPrecip-*baseline.TotalPrecip)

	if snowAccum > 0 {
		// Split the precip increase into snow water and rain assuming a
		// 10:1 snow:water ratio, then derive the actual density from
		// whatever water is attributable to the snow.
		snowWaterEquiv := snowAccum / snowWaterRatio
		rainAccum := math.Max(0, precipIncrease-snowWaterEquiv)
		r.RainAccum = &rainAccum

		snowWaterOnly := precipIncrease - rainAccum
		if snowWaterOnly > 0 {
			density := snowWaterOnly / snowAccum
			r.SnowDensity = &density
		}
	} else {
		// No new snow on the ground: the whole increase fell as rain.
		rainAccum := precipIncrease
		r.RainAccum = &rainAccum
	}

	return r
}

// ComputeAt resolves the anchor for current, locates the baseline reading
// in history, and computes the accumulation. History must be sorted
// ascending by MeasuredAt and deduplicated to one row per distinct
// timestamp.
func ComputeAt(current Measurement, history []Measurement) Result {
	anchor := BaselineAnchor(current.MeasuredAt)
	baseline, ok := FindBaseline(anchor, history)
	if !ok {
		return Compute(current, nil)
	}
	return Compute(current, &baseline)
}

// Series applies ComputeAt to every entry of history in order, yielding one
// result per measurement. Entries are independent, so the sequence is
// restartable and safe to re-range.
func Series(history []Measurement) iter.Seq2[Measurement, Result] {
	return func(yield func(Measurement, Result) bool) {
		for _, m := range history {
			if !yield(m, ComputeAt(m, history)) {
				return
			}
		}
	}
}

// ComputeHistory collects Series into a slice for callers that want the
// whole series at once.
func ComputeHistory(history []Measurement) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(history))
	for m, r := range Series(history) {
		points = append(points, SeriesPoint{Measurement: m, Result: r})
	}
	return points
}
