package accum

import (
	"math"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func civil(s string) time.Time {
	t, err := ParseMeasuredAt(s)
	if err != nil {
		panic(err)
	}
	return t
}

func checkField(t *testing.T, name string, got, want *float64, epsilon float64) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Errorf("%s = %v, want absent", name, *got)
		}
		return
	}
	if got == nil {
		t.Errorf("%s absent, want %v", name, *want)
		return
	}
	if math.Abs(*got-*want) > epsilon {
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name        string
		current     Measurement
		baseline    *Measurement
		snowAccum   *float64
		rainAccum   *float64
		snowDensity *float64
	}{
		{
			name:        "overnight snowfall with density",
			current:     Measurement{SnowDepth: fp(60.0), TotalPrecip: fp(60.4)},
			baseline:    &Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
			snowAccum:   fp(4.0),
			rainAccum:   fp(0.0),
			snowDensity: fp(0.075), // 0.3" of water over 4" of snow
		},
		{
			name:      "no change since baseline",
			current:   Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
			baseline:  &Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
			snowAccum: fp(0.0),
			rainAccum: fp(0.0),
		},
		{
			name:     "no baseline",
			current:  Measurement{SnowDepth: fp(60.0), TotalPrecip: fp(60.4)},
			baseline: nil,
		},
		{
			name:      "precip missing on baseline",
			current:   Measurement{SnowDepth: fp(60.0), TotalPrecip: fp(60.4)},
			baseline:  &Measurement{SnowDepth: fp(56.0)},
			snowAccum: fp(4.0),
		},
		{
			name:      "rain-only event",
			current:   Measurement{SnowDepth: fp(10.0), TotalPrecip: fp(20.5)},
			baseline:  &Measurement{SnowDepth: fp(10.0), TotalPrecip: fp(20.0)},
			snowAccum: fp(0.0),
			rainAccum: fp(0.5),
		},
		{
			name:      "sensor settling clamps to zero",
			current:   Measurement{SnowDepth: fp(54.5), TotalPrecip: fp(60.1)},
			baseline:  &Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
			snowAccum: fp(0.0),
			rainAccum: fp(0.0),
		},
		{
			name:      "precip counter reset clamps to zero",
			current:   Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(0.2)},
			baseline:  &Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
			snowAccum: fp(0.0),
			rainAccum: fp(0.0),
		},
		{
			name:     "snow depth missing on current",
			current:  Measurement{TotalPrecip: fp(60.4)},
			baseline: &Measurement{SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
		},
		{
			name:        "wet snow mixed with rain",
			current:     Measurement{SnowDepth: fp(12.0), TotalPrecip: fp(21.0)},
			baseline:    &Measurement{SnowDepth: fp(10.0), TotalPrecip: fp(20.0)},
			snowAccum:   fp(2.0),
			rainAccum:   fp(0.8), // 1.0 increase - 0.2 SWE
			snowDensity: fp(0.1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.current, tt.baseline)
			checkField(t, "SnowAccum", got.SnowAccum, tt.snowAccum, 1e-9)
			checkField(t, "RainAccum", got.RainAccum, tt.rainAccum, 1e-9)
			checkField(t, "SnowDensity", got.SnowDensity, tt.snowDensity, 1e-9)

			// Present outputs are never negative.
			for name, v := range map[string]*float64{
				"SnowAccum": got.SnowAccum, "RainAccum": got.RainAccum, "SnowDensity": got.SnowDensity,
			} {
				if v != nil && *v < 0 {
					t.Errorf("%s = %v, want non-negative", name, *v)
				}
			}

			// Density requires present, positive snow accumulation.
			if got.SnowDensity != nil && (got.SnowAccum == nil || *got.SnowAccum <= 0) {
				t.Error("SnowDensity present without positive SnowAccum")
			}
		})
	}
}

func TestComputeAt(t *testing.T) {
	history := []Measurement{
		{StationID: "snotel-791", MeasuredAt: civil("2026-01-07 16:00"), SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
		{StationID: "snotel-791", MeasuredAt: civil("2026-01-07 17:00"), SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
		{StationID: "snotel-791", MeasuredAt: civil("2026-01-08 10:00"), SnowDepth: fp(60.0), TotalPrecip: fp(60.4)},
	}

	t.Run("morning reading anchors to previous 4pm", func(t *testing.T) {
		got := ComputeAt(history[2], history)
		checkField(t, "SnowAccum", got.SnowAccum, fp(4.0), 1e-9)
		checkField(t, "RainAccum", got.RainAccum, fp(0.0), 1e-9)
		checkField(t, "SnowDensity", got.SnowDensity, fp(0.075), 1e-9)
	})

	t.Run("evening reading anchors to same-day 4pm", func(t *testing.T) {
		got := ComputeAt(history[1], history)
		checkField(t, "SnowAccum", got.SnowAccum, fp(0.0), 1e-9)
		checkField(t, "RainAccum", got.RainAccum, fp(0.0), 1e-9)
		checkField(t, "SnowDensity", got.SnowDensity, nil, 0)
	})

	t.Run("no reading in anchor window", func(t *testing.T) {
		current := Measurement{MeasuredAt: civil("2026-01-05 10:00"), SnowDepth: fp(50.0), TotalPrecip: fp(59.0)}
		got := ComputeAt(current, history)
		if got.SnowAccum != nil || got.RainAccum != nil || got.SnowDensity != nil {
			t.Errorf("expected all fields absent, got %+v", got)
		}
	})
}

func TestSeries(t *testing.T) {
	history := []Measurement{
		{MeasuredAt: civil("2026-01-07 16:00"), SnowDepth: fp(56.0), TotalPrecip: fp(60.1)},
		{MeasuredAt: civil("2026-01-07 20:00"), SnowDepth: fp(57.0), TotalPrecip: fp(60.2)},
		{MeasuredAt: civil("2026-01-08 10:00"), SnowDepth: fp(60.0), TotalPrecip: fp(60.4)},
	}

	points := ComputeHistory(history)
	if len(points) != len(history) {
		t.Fatalf("got %d points, want %d", len(points), len(history))
	}
	for i, p := range points {
		if !p.Measurement.MeasuredAt.Equal(history[i].MeasuredAt) {
			t.Errorf("point %d out of order: %v", i, p.Measurement.MeasuredAt)
		}
	}
	checkField(t, "SnowAccum[1]", points[1].Result.SnowAccum, fp(1.0), 1e-9)
	checkField(t, "SnowAccum[2]", points[2].Result.SnowAccum, fp(4.0), 1e-9)

	// The sequence is restartable: ranging twice yields identical results.
	var first, second []Result
	for _, r := range Series(history) {
		first = append(first, r)
	}
	for _, r := range Series(history) {
		second = append(second, r)
	}
	if len(first) != len(second) {
		t.Fatalf("restarted series yielded %d results, want %d", len(second), len(first))
	}
	for i := range first {
		checkField(t, "restarted SnowAccum", second[i].SnowAccum, first[i].SnowAccum, 0)
	}

	// Early break stops the walk without panicking.
	n := 0
	for range Series(history) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("broke after %d iterations, want 1", n)
	}
}
