package restserver

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/pkg/config"
)

func newTestServer(t *testing.T, cfg *config.Config) (*database.Client, http.Handler) {
	t.Helper()

	db := database.NewClient(filepath.Join(t.TempDir(), "test.db"), zap.NewNop().Sugar())
	if err := db.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.HTTP.ListenAddr = "127.0.0.1"
	cfg.HTTP.Port = 0

	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, cfg, db, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return db, ctrl.setupRouter()
}

func get(t *testing.T, handler http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v", path, err)
		}
	}
	return rec
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func civil(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := accum.ParseMeasuredAt(s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func seedTravelSample(t *testing.T, db *database.Client, routeID string, current, average *int64, at time.Time) {
	t.Helper()
	err := db.InsertTravelTime(context.Background(), database.TravelTimeRecord{
		RouteID:    routeID,
		RouteName:  "Town to " + routeID,
		CurrentMin: current,
		AverageMin: average,
		RecordedAt: at,
	})
	if err != nil {
		t.Fatalf("InsertTravelTime: %v", err)
	}
}

func TestGetCurrent(t *testing.T) {
	db, handler := newTestServer(t, nil)
	now := time.Now()

	seedTravelSample(t, db, "pass-road", i64(50), i64(40), now.Add(-time.Hour))
	seedTravelSample(t, db, "pass-road", i64(48), i64(40), now)
	seedTravelSample(t, db, "canyon", nil, i64(25), now)

	var statuses []CurrentStatus
	if rec := get(t, handler, "/current", &statuses); rec.Code != http.StatusOK {
		t.Fatalf("GET /current returned %d", rec.Code)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(statuses))
	}

	byID := make(map[string]CurrentStatus)
	for _, s := range statuses {
		byID[s.RouteID] = s
	}

	pass := byID["pass-road"]
	if pass.Status != "open" {
		t.Errorf("pass-road status = %q, want open", pass.Status)
	}
	if pass.CurrentMin == nil || *pass.CurrentMin != 48 {
		t.Errorf("pass-road current_min = %v, want latest sample 48", pass.CurrentMin)
	}
	if pass.DeltaMin == nil || *pass.DeltaMin != 8 {
		t.Errorf("pass-road delta_min = %v, want 8", pass.DeltaMin)
	}
	if pass.DeltaPercent == nil || math.Abs(*pass.DeltaPercent-20.0) > 1e-9 {
		t.Errorf("pass-road delta_percent = %v, want 20.0", pass.DeltaPercent)
	}

	canyon := byID["canyon"]
	if canyon.Status != "closed" {
		t.Errorf("canyon status = %q, want closed", canyon.Status)
	}
	if canyon.DeltaMin != nil || canyon.DeltaPercent != nil {
		t.Errorf("closed route should have null deltas, got %v / %v", canyon.DeltaMin, canyon.DeltaPercent)
	}
}

func TestGetCurrentByRoute(t *testing.T) {
	db, handler := newTestServer(t, nil)
	seedTravelSample(t, db, "pass-road", i64(30), i64(30), time.Now())

	var status CurrentStatus
	if rec := get(t, handler, "/current/pass-road", &status); rec.Code != http.StatusOK {
		t.Fatalf("GET /current/pass-road returned %d", rec.Code)
	}
	if status.RouteID != "pass-road" || status.Status != "open" {
		t.Errorf("unexpected status: %+v", status)
	}

	if rec := get(t, handler, "/current/no-such-route", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route returned %d, want 404", rec.Code)
	}
}

func TestGetRoutesExcludesArchived(t *testing.T) {
	cfg := &config.Config{ArchivedRoutes: []string{"old-road"}}
	db, handler := newTestServer(t, cfg)
	now := time.Now()

	seedTravelSample(t, db, "pass-road", i64(45), i64(40), now)
	seedTravelSample(t, db, "old-road", i64(10), i64(10), now)

	var routes []RouteInfo
	if rec := get(t, handler, "/routes", &routes); rec.Code != http.StatusOK {
		t.Fatalf("GET /routes returned %d", rec.Code)
	}
	if len(routes) != 1 || routes[0].RouteID != "pass-road" {
		t.Fatalf("expected only pass-road, got %+v", routes)
	}
	if routes[0].RecordCount != 1 {
		t.Errorf("record_count = %d, want 1", routes[0].RecordCount)
	}
}

func TestGetHistoryLimit(t *testing.T) {
	db, handler := newTestServer(t, nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		seedTravelSample(t, db, "pass-road", i64(int64(40+i)), i64(40), now.Add(-time.Duration(i)*time.Hour))
	}

	var entries []TravelTimeEntry
	if rec := get(t, handler, "/history/pass-road?limit=3", &entries); rec.Code != http.StatusOK {
		t.Fatalf("GET /history returned %d", rec.Code)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].CurrentMin == nil || *entries[0].CurrentMin != 40 {
		t.Errorf("first entry current_min = %v, want newest sample 40", entries[0].CurrentMin)
	}

	if rec := get(t, handler, "/history/pass-road?hours=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad hours param returned %d, want 400", rec.Code)
	}
}

func TestGetRouteStats(t *testing.T) {
	db, handler := newTestServer(t, nil)
	now := time.Now()

	for i, m := range []int64{40, 50, 60} {
		seedTravelSample(t, db, "pass-road", i64(m), i64(45), now.Add(-time.Duration(i)*time.Minute))
	}
	// NULL samples are excluded from the stats.
	seedTravelSample(t, db, "pass-road", nil, i64(45), now)

	var stats RouteStats
	if rec := get(t, handler, "/routes/pass-road/stats", &stats); rec.Code != http.StatusOK {
		t.Fatalf("GET /routes/pass-road/stats returned %d", rec.Code)
	}
	if stats.SampleCount != 3 {
		t.Errorf("sample_count = %d, want 3", stats.SampleCount)
	}
	if math.Abs(stats.MeanMin-50) > 1e-9 {
		t.Errorf("mean_min = %v, want 50", stats.MeanMin)
	}
	if stats.MinMin != 40 || stats.MaxMin != 60 {
		t.Errorf("min/max = %v/%v, want 40/60", stats.MinMin, stats.MaxMin)
	}
	if stats.StdDevMin <= 0 {
		t.Errorf("stddev_min = %v, want > 0", stats.StdDevMin)
	}

	if rec := get(t, handler, "/routes/empty-road/stats", nil); rec.Code != http.StatusNotFound {
		t.Errorf("route with no data returned %d, want 404", rec.Code)
	}
}

func seedWeatherSample(t *testing.T, db *database.Client, stationID string, depth, precip *float64, at time.Time) {
	t.Helper()
	err := db.InsertWeather(context.Background(), database.WeatherRecord{
		StationID:     stationID,
		StationName:   stationID + " snotel",
		StationType:   "summit",
		TemperatureF:  f64(28.0),
		SnowDepthIn:   depth,
		TotalPrecipIn: precip,
		MeasuredAt:    at,
		RecordedAt:    at,
	})
	if err != nil {
		t.Fatalf("InsertWeather: %v", err)
	}
}

func TestGetStationWeather(t *testing.T) {
	db, handler := newTestServer(t, nil)

	// The latest-reading endpoints window on measured_at, not the wall
	// clock, so fixed timestamps keep this deterministic.
	seedWeatherSample(t, db, "summit-1", f64(56.0), f64(60.1), civil(t, "2026-02-09 16:00:00"))
	seedWeatherSample(t, db, "summit-1", f64(60.0), f64(60.4), civil(t, "2026-02-10 09:00:00"))

	var sw StationWeather
	if rec := get(t, handler, "/weather/summit-1", &sw); rec.Code != http.StatusOK {
		t.Fatalf("GET /weather/summit-1 returned %d", rec.Code)
	}
	if sw.SnowAccumIn == nil || math.Abs(*sw.SnowAccumIn-4.0) > 1e-9 {
		t.Errorf("snow_accum_inches = %v, want 4.0", sw.SnowAccumIn)
	}
	if sw.RainAccumIn == nil || math.Abs(*sw.RainAccumIn) > 1e-9 {
		t.Errorf("rain_accum_inches = %v, want 0.0", sw.RainAccumIn)
	}
	if sw.SnowDensity == nil || math.Abs(*sw.SnowDensity-0.075) > 1e-9 {
		t.Errorf("snow_density = %v, want 0.075", sw.SnowDensity)
	}

	if rec := get(t, handler, "/weather/no-such-station", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown station returned %d, want 404", rec.Code)
	}
}

func TestGetWeatherCurrentNoBaseline(t *testing.T) {
	db, handler := newTestServer(t, nil)

	// A single reading with no sample near the 4pm anchor: accumulation
	// fields stay null but the reading itself is still served.
	seedWeatherSample(t, db, "base-1", f64(31.0), f64(44.2), civil(t, "2026-02-10 09:00:00"))

	var out []StationWeather
	if rec := get(t, handler, "/weather/current", &out); rec.Code != http.StatusOK {
		t.Fatalf("GET /weather/current returned %d", rec.Code)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 station, got %d", len(out))
	}
	if out[0].SnowDepthIn == nil || *out[0].SnowDepthIn != 31.0 {
		t.Errorf("snow_depth_inches = %v, want 31.0", out[0].SnowDepthIn)
	}
	if out[0].SnowAccumIn != nil || out[0].RainAccumIn != nil || out[0].SnowDensity != nil {
		t.Errorf("expected null accumulation without a baseline, got %+v", out[0])
	}
}

func TestGetWeatherHistory(t *testing.T) {
	db, handler := newTestServer(t, nil)

	// This endpoint windows on the wall clock, so seed relative to now and
	// derive the expected in-window count instead of hard-coding it.
	now := time.Now().Truncate(time.Second)
	anchor := accum.BaselineAnchor(now)
	seeds := []time.Time{anchor, now.Add(-2 * time.Hour), now}

	seedWeatherSample(t, db, "summit-1", f64(50.0), f64(58.0), seeds[0])
	seedWeatherSample(t, db, "summit-1", f64(52.0), f64(58.2), seeds[1])
	seedWeatherSample(t, db, "summit-1", f64(53.0), f64(58.3), seeds[2])

	cutoff := now.Add(-6 * time.Hour)
	want := 0
	for _, ts := range seeds {
		if !ts.Before(cutoff) {
			want++
		}
	}

	var entries []WeatherHistoryEntry
	if rec := get(t, handler, "/weather/history?hours=6", &entries); rec.Code != http.StatusOK {
		t.Fatalf("GET /weather/history returned %d", rec.Code)
	}
	if len(entries) != want {
		t.Fatalf("expected %d entries in window, got %d", want, len(entries))
	}
	// The newest point always finds the anchor baseline, even when the
	// anchor itself falls outside the response window.
	last := entries[len(entries)-1]
	if last.SnowAccumIn == nil || math.Abs(*last.SnowAccumIn-3.0) > 1e-9 {
		t.Errorf("snow_accum_inches = %v, want 3.0", last.SnowAccumIn)
	}
}
