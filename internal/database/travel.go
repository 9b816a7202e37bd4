package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/snowroute/snowroute/internal/accum"
)

const travelColumns = `t.id, t.route_id, t.route_name, t.current_min, t.average_min,
	t.recorded_at, t.provider_updated_at`

// InsertTravelTime stores one travel time sample.
func (c *Client) InsertTravelTime(ctx context.Context, rec TravelTimeRecord) error {
	var providerUpdated sql.NullString
	if rec.ProviderUpdatedAt != nil {
		providerUpdated = sql.NullString{String: accum.FormatMeasuredAt(*rec.ProviderUpdatedAt), Valid: true}
	}

	query := c.bind(`INSERT INTO travel_times
		(route_id, route_name, current_min, average_min, recorded_at, provider_updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := c.DB.ExecContext(ctx, query,
		rec.RouteID, rec.RouteName, nullInt(rec.CurrentMin), nullInt(rec.AverageMin),
		accum.FormatMeasuredAt(rec.RecordedAt), providerUpdated)
	if err != nil {
		return fmt.Errorf("error inserting travel time: %w", err)
	}
	return nil
}

// InsertSegments stores the per-leg breakdown for one poll of a route.
func (c *Client) InsertSegments(ctx context.Context, segments []SegmentRecord) error {
	query := c.bind(`INSERT INTO route_segments
		(route_id, segment_order, segment_from, segment_to, duration_min, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	for _, seg := range segments {
		_, err := c.DB.ExecContext(ctx, query,
			seg.RouteID, seg.SegmentOrder, seg.From, seg.To,
			nullInt(seg.DurationMin), accum.FormatMeasuredAt(seg.RecordedAt))
		if err != nil {
			return fmt.Errorf("error inserting route segment: %w", err)
		}
	}
	return nil
}

// ListRoutes returns aggregate info for every route with stored data.
func (c *Client) ListRoutes(ctx context.Context) ([]RouteSummary, error) {
	query := `SELECT route_id, route_name, COUNT(*),
			MIN(recorded_at), MAX(recorded_at)
		FROM travel_times
		GROUP BY route_id, route_name
		ORDER BY route_name`

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing routes: %w", err)
	}
	defer rows.Close()

	var summaries []RouteSummary
	for rows.Next() {
		var (
			s           RouteSummary
			first, last string
		)
		if err := rows.Scan(&s.RouteID, &s.RouteName, &s.RecordCount, &first, &last); err != nil {
			return nil, fmt.Errorf("error scanning route summary: %w", err)
		}
		if s.FirstRecorded, err = accum.ParseMeasuredAt(first); err != nil {
			return nil, fmt.Errorf("route %s: %w", s.RouteID, err)
		}
		if s.LastRecorded, err = accum.ParseMeasuredAt(last); err != nil {
			return nil, fmt.Errorf("route %s: %w", s.RouteID, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FetchLatestTravelAll returns the most recent sample for every route.
func (c *Client) FetchLatestTravelAll(ctx context.Context) ([]TravelTimeRecord, error) {
	query := `SELECT ` + travelColumns + `
		FROM travel_times t
		JOIN (
			SELECT route_id, MAX(id) AS id
			FROM travel_times
			GROUP BY route_id
		) latest ON t.id = latest.id
		ORDER BY t.route_name`

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying latest travel times: %w", err)
	}
	defer rows.Close()

	return scanTravelRows(rows)
}

// FetchLatestTravel returns the most recent sample for one route, or
// ErrRouteNotFound when the route has no stored data.
func (c *Client) FetchLatestTravel(ctx context.Context, routeID string) (*TravelTimeRecord, error) {
	query := c.bind(`SELECT ` + travelColumns + `
		FROM travel_times t
		WHERE t.route_id = ?
		ORDER BY t.recorded_at DESC, t.id DESC
		LIMIT 1`)

	rows, err := c.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("error querying latest travel time: %w", err)
	}
	defer rows.Close()

	recs, err := scanTravelRows(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrRouteNotFound
	}
	return &recs[0], nil
}

// FetchTravelHistory returns a route's samples recorded at or after cutoff,
// newest first, capped at limit rows.
func (c *Client) FetchTravelHistory(ctx context.Context, routeID string, cutoff time.Time, limit int) ([]TravelTimeRecord, error) {
	query := c.bind(`SELECT ` + travelColumns + `
		FROM travel_times t
		WHERE t.route_id = ? AND t.recorded_at >= ?
		ORDER BY t.recorded_at DESC, t.id DESC
		LIMIT ?`)

	rows, err := c.DB.QueryContext(ctx, query, routeID, accum.FormatMeasuredAt(cutoff), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying travel history: %w", err)
	}
	defer rows.Close()

	return scanTravelRows(rows)
}

// FetchSegmentHistory returns a route's per-leg breakdowns grouped by
// recording instant, newest first, capped at limit distinct instants.
func (c *Client) FetchSegmentHistory(ctx context.Context, routeID string, cutoff time.Time, limit int) ([]SegmentSnapshot, error) {
	tsQuery := c.bind(`SELECT DISTINCT recorded_at
		FROM route_segments
		WHERE route_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC
		LIMIT ?`)

	rows, err := c.DB.QueryContext(ctx, tsQuery, routeID, accum.FormatMeasuredAt(cutoff), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying segment timestamps: %w", err)
	}

	var timestamps []string
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			rows.Close()
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	segQuery := c.bind(`SELECT route_id, segment_order, segment_from, segment_to, duration_min, recorded_at
		FROM route_segments
		WHERE route_id = ? AND recorded_at = ?
		ORDER BY segment_order`)

	snapshots := make([]SegmentSnapshot, 0, len(timestamps))
	for _, ts := range timestamps {
		segRows, err := c.DB.QueryContext(ctx, segQuery, routeID, ts)
		if err != nil {
			return nil, fmt.Errorf("error querying route segments: %w", err)
		}

		var snap SegmentSnapshot
		for segRows.Next() {
			var (
				seg      SegmentRecord
				duration sql.NullInt64
				recorded string
			)
			if err := segRows.Scan(&seg.RouteID, &seg.SegmentOrder, &seg.From, &seg.To, &duration, &recorded); err != nil {
				segRows.Close()
				return nil, fmt.Errorf("error scanning route segment: %w", err)
			}
			seg.DurationMin = int64Ptr(duration)
			if seg.RecordedAt, err = accum.ParseMeasuredAt(recorded); err != nil {
				segRows.Close()
				return nil, fmt.Errorf("segment for route %s: %w", routeID, err)
			}
			snap.RecordedAt = seg.RecordedAt
			snap.Segments = append(snap.Segments, seg)
		}
		if err := segRows.Err(); err != nil {
			segRows.Close()
			return nil, err
		}
		segRows.Close()

		if len(snap.Segments) > 0 {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots, nil
}

// FetchCurrentMinutes returns the non-null current travel minutes for a
// route since cutoff, oldest first. Input for summary statistics.
func (c *Client) FetchCurrentMinutes(ctx context.Context, routeID string, cutoff time.Time) ([]float64, error) {
	query := c.bind(`SELECT current_min
		FROM travel_times
		WHERE route_id = ? AND recorded_at >= ? AND current_min IS NOT NULL
		ORDER BY recorded_at ASC`)

	rows, err := c.DB.QueryContext(ctx, query, routeID, accum.FormatMeasuredAt(cutoff))
	if err != nil {
		return nil, fmt.Errorf("error querying travel minutes: %w", err)
	}
	defer rows.Close()

	var minutes []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		minutes = append(minutes, v)
	}
	return minutes, rows.Err()
}

func scanTravelRows(rows *sql.Rows) ([]TravelTimeRecord, error) {
	var recs []TravelTimeRecord
	for rows.Next() {
		var (
			rec              TravelTimeRecord
			current, average sql.NullInt64
			name             sql.NullString
			recorded         string
			providerUpdated  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RouteID, &name, &current, &average, &recorded, &providerUpdated); err != nil {
			return nil, fmt.Errorf("error scanning travel time row: %w", err)
		}
		rec.RouteName = name.String
		rec.CurrentMin = int64Ptr(current)
		rec.AverageMin = int64Ptr(average)

		ts, err := accum.ParseMeasuredAt(recorded)
		if err != nil {
			return nil, fmt.Errorf("travel time row %d: %w", rec.ID, err)
		}
		rec.RecordedAt = ts

		if providerUpdated.Valid {
			pu, err := accum.ParseMeasuredAt(providerUpdated.String)
			if err != nil {
				return nil, fmt.Errorf("travel time row %d: %w", rec.ID, err)
			}
			rec.ProviderUpdatedAt = &pu
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
