package backfill

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
)

func newTestRunner(t *testing.T) (*Runner, *database.Client) {
	t.Helper()
	db := database.NewClient(filepath.Join(t.TempDir(), "test.db"), zap.NewNop().Sugar())
	if err := db.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return New(db, zap.NewNop().Sugar()), db
}

func fp(v float64) *float64 { return &v }

func seed(t *testing.T, db *database.Client, stationID, measuredAt string, depth, precip *float64) {
	t.Helper()
	ts, err := accum.ParseMeasuredAt(measuredAt)
	if err != nil {
		t.Fatal(err)
	}
	rec := database.WeatherRecord{
		StationID:     stationID,
		StationName:   stationID,
		StationType:   "summit",
		SnowDepthIn:   depth,
		TotalPrecipIn: precip,
		MeasuredAt:    ts,
		RecordedAt:    ts,
	}
	if err := db.InsertWeather(context.Background(), rec); err != nil {
		t.Fatalf("InsertWeather: %v", err)
	}
}

func TestRun(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	// Baseline at 4pm, then an overnight reading with 4 inches of new snow.
	seed(t, db, "summit-1", "2026-02-09 16:00:00", fp(56.0), fp(60.1))
	seed(t, db, "summit-1", "2026-02-10 08:00:00", fp(60.0), fp(60.4))
	// A second station with no baseline in any anchor window.
	seed(t, db, "base-1", "2026-02-10 08:00:00", fp(31.0), fp(44.2))

	updated, err := r.Run(ctx, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The 4pm row is its own baseline (zero accumulation) and the morning
	// row computes against it; the base-1 row stays NULL.
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	rows, err := db.FetchAllWeatherRows(ctx, "summit-1")
	if err != nil {
		t.Fatalf("FetchAllWeatherRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	morning := rows[1]
	if morning.SnowAccumIn == nil || math.Abs(*morning.SnowAccumIn-4.0) > 1e-9 {
		t.Errorf("snow_accum_inches = %v, want 4.0", morning.SnowAccumIn)
	}
	if morning.SnowDensity == nil || math.Abs(*morning.SnowDensity-0.075) > 1e-9 {
		t.Errorf("snow_density = %v, want 0.075", morning.SnowDensity)
	}

	baseRows, err := db.FetchAllWeatherRows(ctx, "base-1")
	if err != nil {
		t.Fatalf("FetchAllWeatherRows: %v", err)
	}
	if baseRows[0].SnowAccumIn != nil {
		t.Errorf("expected base-1 row to stay NULL, got %v", baseRows[0].SnowAccumIn)
	}
}

func TestRunSingleStation(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	seed(t, db, "summit-1", "2026-02-09 16:00:00", fp(50.0), fp(58.0))
	seed(t, db, "summit-1", "2026-02-10 08:00:00", fp(52.0), fp(58.2))
	seed(t, db, "base-1", "2026-02-09 16:00:00", fp(30.0), fp(44.0))
	seed(t, db, "base-1", "2026-02-10 08:00:00", fp(30.0), fp(44.3))

	updated, err := r.Run(ctx, "base-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	// The other station is untouched.
	rows, err := db.FetchAllWeatherRows(ctx, "summit-1")
	if err != nil {
		t.Fatalf("FetchAllWeatherRows: %v", err)
	}
	for _, row := range rows {
		if row.SnowAccumIn != nil {
			t.Errorf("summit-1 row %d was backfilled, expected NULL", row.ID)
		}
	}
}

func TestDedupedHistory(t *testing.T) {
	r, db := newTestRunner(t)
	ctx := context.Background()

	// Duplicate baseline rows for the same measured_at: the backfill must
	// compute against the latest-inserted one (depth 56, not 50).
	seed(t, db, "summit-1", "2026-02-09 16:00:00", fp(50.0), fp(60.1))
	seed(t, db, "summit-1", "2026-02-09 16:00:00", fp(56.0), fp(60.1))
	seed(t, db, "summit-1", "2026-02-10 08:00:00", fp(60.0), fp(60.4))

	if _, err := r.Run(ctx, "summit-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows, err := db.FetchAllWeatherRows(ctx, "summit-1")
	if err != nil {
		t.Fatalf("FetchAllWeatherRows: %v", err)
	}
	morning := rows[len(rows)-1]
	if morning.SnowAccumIn == nil || math.Abs(*morning.SnowAccumIn-4.0) > 1e-9 {
		t.Errorf("snow_accum_inches = %v, want 4.0 against the latest duplicate", morning.SnowAccumIn)
	}
}
