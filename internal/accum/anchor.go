// Package accum computes snow and rain accumulation since the most recent
// 4pm reference anchor, the ski-report convention for "new snow". It is a
// pure function over a supplied measurement history: no I/O, no clocks, no
// shared state, so concurrent callers need no locking.
//
// All timestamps are treated as naive local civil time. The station feed
// carries no zone information and the anchor arithmetic is calendar-based,
// so converting to a zone would silently change which day a reading
// anchors to.
package accum

import "time"

// anchorHour is the civil hour of the daily reference anchor (4pm).
const anchorHour = 16

// BaselineAnchor returns the reference instant for a reading: 16:00 on the
// same calendar day when the reading was taken at or after 16:00, otherwise
// 16:00 on the previous calendar day.
func BaselineAnchor(measuredAt time.Time) time.Time {
	anchor := time.Date(measuredAt.Year(), measuredAt.Month(), measuredAt.Day(),
		anchorHour, 0, 0, 0, measuredAt.Location())
	if measuredAt.Hour() < anchorHour {
		anchor = anchor.AddDate(0, 0, -1)
	}
	return anchor
}
