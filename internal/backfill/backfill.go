// Package backfill recomputes the persisted accumulation columns for
// historical weather rows. The API never reads them; they exist for ad-hoc
// analysis of old data with current engine behavior.
package backfill

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
)

// Runner walks stored weather rows and persists engine output onto them.
type Runner struct {
	DB     *database.Client
	logger *zap.SugaredLogger
}

// New creates a backfill runner.
func New(db *database.Client, logger *zap.SugaredLogger) *Runner {
	return &Runner{DB: db, logger: logger}
}

// Run backfills every station, or just stationID if non-empty. Returns the
// number of rows updated.
func (r *Runner) Run(ctx context.Context, stationID string) (int, error) {
	stations := []string{stationID}
	if stationID == "" {
		var err error
		stations, err = r.DB.ListStationIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("error listing stations: %w", err)
		}
	}

	total := 0
	for _, id := range stations {
		n, err := r.backfillStation(ctx, id)
		if err != nil {
			return total, fmt.Errorf("error backfilling station %s: %w", id, err)
		}
		log.Infof("Backfilled %d row(s) for station %s", n, id)
		total += n
	}
	return total, nil
}

func (r *Runner) backfillStation(ctx context.Context, stationID string) (int, error) {
	rows, err := r.DB.FetchAllWeatherRows(ctx, stationID)
	if err != nil {
		return 0, err
	}
	history := dedupedHistory(rows)

	updated := 0
	for _, row := range rows {
		res := accum.ComputeAt(row.Measurement(), history)
		if res.SnowAccum == nil && res.RainAccum == nil && res.SnowDensity == nil {
			// Nothing computable; leave the columns NULL.
			continue
		}
		if err := r.DB.UpdateAccumulation(ctx, row.ID, res); err != nil {
			return updated, err
		}
		updated++
		if updated%100 == 0 {
			r.logger.Debugw("backfill progress", "station", stationID, "updated", updated)
		}
	}
	return updated, nil
}

// dedupedHistory reduces raw rows to one measurement per distinct
// measured_at, keeping the latest-inserted row, sorted ascending. Every
// row is still backfilled individually; only baseline lookup uses the
// deduplicated view.
func dedupedHistory(rows []database.WeatherRecord) []accum.Measurement {
	byTimestamp := make(map[string]database.WeatherRecord)
	for _, row := range rows {
		key := accum.FormatMeasuredAt(row.MeasuredAt)
		if prev, ok := byTimestamp[key]; !ok || row.ID > prev.ID {
			byTimestamp[key] = row
		}
	}

	history := make([]accum.Measurement, 0, len(byTimestamp))
	for _, row := range byTimestamp {
		history = append(history, row.Measurement())
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].MeasuredAt.Before(history[j].MeasuredAt)
	})
	return history
}
