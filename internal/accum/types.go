package accum

import "time"

// Measurement is a single point-in-time station reading. Optional sensor
// fields are pointers; nil means the station did not report that element.
type Measurement struct {
	StationID   string
	MeasuredAt  time.Time
	Temperature *float64 // °F, informational only
	SnowDepth   *float64 // inches, instrument-reported absolute depth
	TotalPrecip *float64 // inches, running total since the station's reset epoch
}

// Result carries the derived accumulation values for one query point.
// A nil field means the value could not be derived from the available data.
type Result struct {
	SnowAccum   *float64 // inches of new snow since the baseline
	RainAccum   *float64 // inches of rain since the baseline
	SnowDensity *float64 // water-equivalent mass per inch of new snow
}

// SeriesPoint pairs a measurement with its computed accumulation, for
// chart-style consumers that walk a whole history.
type SeriesPoint struct {
	Measurement Measurement
	Result      Result
}
