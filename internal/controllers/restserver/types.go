package restserver

// Response types for the read-only API. Optional values are pointers so
// that missing data serializes as JSON null, never as zero.

// IndexResponse documents the available endpoints.
type IndexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// RouteInfo is one tracked route with basic stats.
type RouteInfo struct {
	RouteID       string `json:"route_id"`
	RouteName     string `json:"route_name"`
	RecordCount   int64  `json:"record_count"`
	FirstRecorded string `json:"first_recorded"`
	LastRecorded  string `json:"last_recorded"`
}

// CurrentStatus is the latest state of one route.
type CurrentStatus struct {
	RouteID      string   `json:"route_id"`
	RouteName    string   `json:"route_name"`
	CurrentMin   *int64   `json:"current_min"`
	AverageMin   *int64   `json:"average_min"`
	DeltaMin     *int64   `json:"delta_min"`
	DeltaPercent *float64 `json:"delta_percent"`
	LastUpdated  string   `json:"last_updated"`
	Status       string   `json:"status"` // "open" or "closed"
}

// TravelTimeEntry is one historical travel time sample.
type TravelTimeEntry struct {
	ID                int64  `json:"id"`
	RouteID           string `json:"route_id"`
	RouteName         string `json:"route_name"`
	CurrentMin        *int64 `json:"current_min"`
	AverageMin        *int64 `json:"average_min"`
	RecordedAt        string `json:"recorded_at"`
	ProviderUpdatedAt *string `json:"provider_updated_at"`
}

// SegmentEntry is one leg of a route.
type SegmentEntry struct {
	From        string `json:"from"`
	To          string `json:"to"`
	DurationMin *int64 `json:"duration_min"`
}

// SegmentGroup is a route's segments recorded at one instant.
type SegmentGroup struct {
	RecordedAt string         `json:"recorded_at"`
	Segments   []SegmentEntry `json:"segments"`
}

// RouteStats summarizes a route's travel minutes over a look-back window.
type RouteStats struct {
	RouteID     string  `json:"route_id"`
	SampleCount int     `json:"sample_count"`
	MeanMin     float64 `json:"mean_min"`
	StdDevMin   float64 `json:"stddev_min"`
	MinMin      float64 `json:"min_min"`
	MaxMin      float64 `json:"max_min"`
}

// StationWeather is the latest conditions at one station, with the
// accumulation since the 4pm anchor computed on the fly.
type StationWeather struct {
	StationID        string   `json:"station_id"`
	StationName      string   `json:"station_name"`
	StationElevation *int64   `json:"station_elevation"`
	StationType      string   `json:"station_type"`
	TemperatureF     *float64 `json:"temperature_f"`
	SnowDepthIn      *float64 `json:"snow_depth_inches"`
	SnowAccumIn      *float64 `json:"snow_accum_inches"`
	RainAccumIn      *float64 `json:"rain_accum_inches"`
	SnowDensity      *float64 `json:"snow_density"`
	TotalPrecipIn    *float64 `json:"total_precip_inches"`
	MeasuredAt       string   `json:"measured_at"`
	LastUpdated      string   `json:"last_updated"`
}

// WeatherHistoryEntry is one point of a station's accumulation series.
type WeatherHistoryEntry struct {
	StationID    string   `json:"station_id"`
	StationName  string   `json:"station_name"`
	StationType  string   `json:"station_type"`
	TemperatureF *float64 `json:"temperature_f"`
	SnowDepthIn  *float64 `json:"snow_depth_inches"`
	SnowAccumIn  *float64 `json:"snow_accum_inches"`
	RainAccumIn  *float64 `json:"rain_accum_inches"`
	SnowDensity  *float64 `json:"snow_density"`
	MeasuredAt   string   `json:"measured_at"`
	RecordedAt   string   `json:"recorded_at"`
}
