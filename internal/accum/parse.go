package accum

import (
	"fmt"
	"time"
)

// TimeFormat is the canonical civil timestamp layout used in storage.
const TimeFormat = "2006-01-02 15:04:05"

// measuredAtFormats are the civil layouts the station feed emits, in order
// of likelihood. The date-only form appears in degraded records and parses
// as midnight, which anchors to the previous day's 16:00.
var measuredAtFormats = []string{
	TimeFormat,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseMeasuredAt parses a civil timestamp as emitted by the station feed.
// Malformed input is a hard error: it signals an ingestion defect, and
// treating it as "no data" would mask the bug.
func ParseMeasuredAt(s string) (time.Time, error) {
	for _, layout := range measuredAtFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed measurement timestamp %q", s)
}

// FormatMeasuredAt renders a timestamp in the canonical storage layout.
func FormatMeasuredAt(t time.Time) string {
	return t.Format(TimeFormat)
}
