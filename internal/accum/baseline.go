package accum

import (
	"sort"
	"time"
)

// baselineWindow is how far from the anchor a reading may fall and still
// serve as the baseline. Stations report every 15-60 minutes, so a reading
// is normally available well inside this window.
const baselineWindow = time.Hour

// FindBaseline selects the measurement closest in time to anchor, searching
// the inclusive window [anchor-1h, anchor+1h]. The history must be sorted
// ascending by MeasuredAt. When two candidates are equidistant from the
// anchor, the earlier one wins; this tie-break is deliberate and pinned, so
// results are stable regardless of how the history was produced.
//
// The second return value is false when no measurement falls in the window.
func FindBaseline(anchor time.Time, history []Measurement) (Measurement, bool) {
	windowStart := anchor.Add(-baselineWindow)
	windowEnd := anchor.Add(baselineWindow)

	// First candidate at or after the window start.
	i := sort.Search(len(history), func(i int) bool {
		return !history[i].MeasuredAt.Before(windowStart)
	})

	var best Measurement
	var bestDist time.Duration
	found := false

	for ; i < len(history); i++ {
		m := history[i]
		if m.MeasuredAt.After(windowEnd) {
			break
		}
		dist := absDuration(m.MeasuredAt.Sub(anchor))
		// Strict < keeps the earliest of equidistant candidates.
		if !found || dist < bestDist {
			best = m
			bestDist = dist
			found = true
		}
	}

	return best, found
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
