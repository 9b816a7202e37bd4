package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/snowroute/snowroute/internal/accum"
)

// weatherColumns is the select list for weather_data rows, aliased to w.
const weatherColumns = `w.id, w.station_id, w.station_name, w.station_elevation, w.station_type,
	w.temperature_f, w.snow_depth_inches, w.snow_accum_inches, w.rain_accum_inches, w.snow_density,
	w.total_precip_inches, w.measured_at, w.recorded_at`

// InsertWeather stores one raw station reading. Accumulation columns are
// left NULL; they are derived on demand or by the backfill job.
func (c *Client) InsertWeather(ctx context.Context, rec WeatherRecord) error {
	query := c.bind(`INSERT INTO weather_data
		(station_id, station_name, station_elevation, station_type,
		 temperature_f, snow_depth_inches, total_precip_inches, measured_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := c.DB.ExecContext(ctx, query,
		rec.StationID, rec.StationName, nullInt(rec.StationElevation), rec.StationType,
		nullFloat(rec.TemperatureF), nullFloat(rec.SnowDepthIn), nullFloat(rec.TotalPrecipIn),
		accum.FormatMeasuredAt(rec.MeasuredAt), accum.FormatMeasuredAt(rec.RecordedAt))
	if err != nil {
		return fmt.Errorf("error inserting weather record: %w", err)
	}
	return nil
}

// FetchWeatherHistory returns the station's readings with measured_at in
// [from, to], ascending, deduplicated to one representative row per
// distinct measured_at (latest-inserted wins). This is the history snapshot
// handed to the accumulation engine.
func (c *Client) FetchWeatherHistory(ctx context.Context, stationID string, from, to time.Time) ([]WeatherRecord, error) {
	query := c.bind(`SELECT ` + weatherColumns + `
		FROM weather_data w
		JOIN (
			SELECT MAX(id) AS id
			FROM weather_data
			WHERE station_id = ? AND measured_at >= ? AND measured_at <= ?
			GROUP BY measured_at
		) rep ON w.id = rep.id
		ORDER BY w.measured_at ASC`)

	rows, err := c.DB.QueryContext(ctx, query, stationID,
		accum.FormatMeasuredAt(from), accum.FormatMeasuredAt(to))
	if err != nil {
		return nil, fmt.Errorf("error querying weather history: %w", err)
	}
	defer rows.Close()

	return scanWeatherRows(rows)
}

// FetchLatestWeather returns the most recent reading for one station,
// deduplicated to the latest-inserted row for its measured_at. Returns
// ErrStationNotFound when the station has no readings at all.
func (c *Client) FetchLatestWeather(ctx context.Context, stationID string) (*WeatherRecord, error) {
	query := c.bind(`SELECT ` + weatherColumns + `
		FROM weather_data w
		JOIN (
			SELECT MAX(id) AS id
			FROM weather_data
			WHERE station_id = ?
			GROUP BY measured_at
			ORDER BY measured_at DESC
			LIMIT 1
		) rep ON w.id = rep.id`)

	rows, err := c.DB.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, fmt.Errorf("error querying latest weather: %w", err)
	}
	defer rows.Close()

	recs, err := scanWeatherRows(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrStationNotFound
	}
	return &recs[0], nil
}

// FetchLatestWeatherAll returns the most recent reading for every station,
// ordered by station type then elevation (base stations before summit).
func (c *Client) FetchLatestWeatherAll(ctx context.Context) ([]WeatherRecord, error) {
	query := `SELECT ` + weatherColumns + `
		FROM weather_data w
		JOIN (
			SELECT MAX(id) AS id
			FROM weather_data
			GROUP BY station_id, measured_at
		) rep ON w.id = rep.id
		JOIN (
			SELECT station_id, MAX(measured_at) AS measured_at
			FROM weather_data
			GROUP BY station_id
		) latest ON w.station_id = latest.station_id AND w.measured_at = latest.measured_at
		ORDER BY w.station_type, w.station_elevation`

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying latest weather for all stations: %w", err)
	}
	defer rows.Close()

	return scanWeatherRows(rows)
}

// FetchAllWeatherRows returns every stored row for a station, ascending by
// measured_at, including duplicate readings. Used by the backfill job,
// which updates each physical row.
func (c *Client) FetchAllWeatherRows(ctx context.Context, stationID string) ([]WeatherRecord, error) {
	query := c.bind(`SELECT ` + weatherColumns + `
		FROM weather_data w
		WHERE w.station_id = ?
		ORDER BY w.measured_at ASC, w.id ASC`)

	rows, err := c.DB.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, fmt.Errorf("error querying weather rows: %w", err)
	}
	defer rows.Close()

	return scanWeatherRows(rows)
}

// ListStationIDs returns the distinct station ids present in the store.
func (c *Client) ListStationIDs(ctx context.Context) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT DISTINCT station_id FROM weather_data ORDER BY station_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing stations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateAccumulation persists engine output onto a stored row.
func (c *Client) UpdateAccumulation(ctx context.Context, id int64, res accum.Result) error {
	query := c.bind(`UPDATE weather_data
		SET snow_accum_inches = ?, rain_accum_inches = ?, snow_density = ?
		WHERE id = ?`)

	_, err := c.DB.ExecContext(ctx, query,
		nullFloat(res.SnowAccum), nullFloat(res.RainAccum), nullFloat(res.SnowDensity), id)
	if err != nil {
		return fmt.Errorf("error updating accumulation for row %d: %w", id, err)
	}
	return nil
}

func scanWeatherRows(rows *sql.Rows) ([]WeatherRecord, error) {
	var recs []WeatherRecord
	for rows.Next() {
		var (
			rec                    WeatherRecord
			elevation              sql.NullInt64
			temp, depth, precip    sql.NullFloat64
			snowAcc, rainAcc, dens sql.NullFloat64
			name, stype            sql.NullString
			measuredAt, recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.StationID, &name, &elevation, &stype,
			&temp, &depth, &snowAcc, &rainAcc, &dens, &precip, &measuredAt, &recordedAt); err != nil {
			return nil, fmt.Errorf("error scanning weather row: %w", err)
		}

		rec.StationName = name.String
		rec.StationType = stype.String
		rec.StationElevation = int64Ptr(elevation)
		rec.TemperatureF = floatPtr(temp)
		rec.SnowDepthIn = floatPtr(depth)
		rec.TotalPrecipIn = floatPtr(precip)
		rec.SnowAccumIn = floatPtr(snowAcc)
		rec.RainAccumIn = floatPtr(rainAcc)
		rec.SnowDensity = floatPtr(dens)

		// A timestamp that does not parse is an ingestion defect; fail the
		// whole read rather than silently dropping the row.
		mt, err := accum.ParseMeasuredAt(measuredAt)
		if err != nil {
			return nil, fmt.Errorf("weather row %d: %w", rec.ID, err)
		}
		rt, err := accum.ParseMeasuredAt(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("weather row %d: %w", rec.ID, err)
		}
		rec.MeasuredAt = mt
		rec.RecordedAt = rt

		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}
