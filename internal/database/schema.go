package database

import "fmt"

// Schema statements per backend. The tables are deliberately denormalized:
// station metadata rides along on every weather row, and route names on
// every travel time row, mirroring what the pollers receive.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS travel_times (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		route_id TEXT NOT NULL,
		route_name TEXT,
		current_min INTEGER,
		average_min INTEGER,
		recorded_at TEXT NOT NULL,
		provider_updated_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_travel_times_route_recorded
		ON travel_times(route_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS route_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		route_id TEXT NOT NULL,
		segment_order INTEGER NOT NULL,
		segment_from TEXT NOT NULL,
		segment_to TEXT NOT NULL,
		duration_min INTEGER,
		recorded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_route_segments_route_recorded
		ON route_segments(route_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS weather_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		station_id TEXT NOT NULL,
		station_name TEXT,
		station_elevation INTEGER,
		station_type TEXT,
		temperature_f REAL,
		snow_depth_inches REAL,
		snow_accum_inches REAL,
		rain_accum_inches REAL,
		snow_density REAL,
		total_precip_inches REAL,
		measured_at TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_station_measured
		ON weather_data(station_id, measured_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS travel_times (
		id BIGSERIAL PRIMARY KEY,
		route_id TEXT NOT NULL,
		route_name TEXT,
		current_min BIGINT,
		average_min BIGINT,
		recorded_at TEXT NOT NULL,
		provider_updated_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_travel_times_route_recorded
		ON travel_times(route_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS route_segments (
		id BIGSERIAL PRIMARY KEY,
		route_id TEXT NOT NULL,
		segment_order BIGINT NOT NULL,
		segment_from TEXT NOT NULL,
		segment_to TEXT NOT NULL,
		duration_min BIGINT,
		recorded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_route_segments_route_recorded
		ON route_segments(route_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS weather_data (
		id BIGSERIAL PRIMARY KEY,
		station_id TEXT NOT NULL,
		station_name TEXT,
		station_elevation BIGINT,
		station_type TEXT,
		temperature_f DOUBLE PRECISION,
		snow_depth_inches DOUBLE PRECISION,
		snow_accum_inches DOUBLE PRECISION,
		rain_accum_inches DOUBLE PRECISION,
		snow_density DOUBLE PRECISION,
		total_precip_inches DOUBLE PRECISION,
		measured_at TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_weather_station_measured
		ON weather_data(station_id, measured_at)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (c *Client) Migrate() error {
	schema := sqliteSchema
	if c.driver == "pgx" {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := c.DB.Exec(stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}

	c.logger.Debug("database schema is up to date")
	return nil
}
