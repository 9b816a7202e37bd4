package database

import (
	"time"

	"github.com/snowroute/snowroute/internal/accum"
)

// WeatherRecord is one stored station reading. Nullable sensor columns are
// pointers; nil round-trips as SQL NULL.
type WeatherRecord struct {
	ID               int64
	StationID        string
	StationName      string
	StationElevation *int64
	StationType      string
	TemperatureF     *float64
	SnowDepthIn      *float64
	TotalPrecipIn    *float64

	// Backfilled accumulation columns; NULL until the backfill job runs.
	SnowAccumIn *float64
	RainAccumIn *float64
	SnowDensity *float64

	MeasuredAt time.Time
	RecordedAt time.Time
}

// Measurement converts a stored row into the engine's input type.
func (w WeatherRecord) Measurement() accum.Measurement {
	return accum.Measurement{
		StationID:   w.StationID,
		MeasuredAt:  w.MeasuredAt,
		Temperature: w.TemperatureF,
		SnowDepth:   w.SnowDepthIn,
		TotalPrecip: w.TotalPrecipIn,
	}
}

// TravelTimeRecord is one stored travel time sample for a route. A NULL
// CurrentMin means the route was unavailable (closed) at poll time.
type TravelTimeRecord struct {
	ID                int64
	RouteID           string
	RouteName         string
	CurrentMin        *int64
	AverageMin        *int64
	RecordedAt        time.Time
	ProviderUpdatedAt *time.Time
}

// SegmentRecord is one leg of a route at one poll.
type SegmentRecord struct {
	RouteID      string
	SegmentOrder int
	From         string
	To           string
	DurationMin  *int64
	RecordedAt   time.Time
}

// SegmentSnapshot groups a route's segments recorded at the same instant.
type SegmentSnapshot struct {
	RecordedAt time.Time
	Segments   []SegmentRecord
}

// RouteSummary is aggregate info about one tracked route.
type RouteSummary struct {
	RouteID       string
	RouteName     string
	RecordCount   int64
	FirstRecorded time.Time
	LastRecorded  time.Time
}
