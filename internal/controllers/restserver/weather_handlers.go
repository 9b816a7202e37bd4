package restserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
)

// baselineLookback is how far before a reading we fetch history so that the
// 4pm anchor window is always covered. The anchor is at most 24h behind a
// reading and its window extends one hour further back.
const baselineLookback = 26 * time.Hour

// GetWeatherCurrent returns the latest reading per station with the
// accumulation since the most recent 4pm anchor computed on the fly.
func (h *Handlers) GetWeatherCurrent(w http.ResponseWriter, req *http.Request) {
	latest, err := h.controller.DB.FetchLatestWeatherAll(req.Context())
	if err != nil {
		log.Errorf("error fetching latest weather: %v", err)
		http.Error(w, "error fetching weather data", http.StatusInternalServerError)
		return
	}

	out := make([]StationWeather, 0, len(latest))
	for _, rec := range latest {
		sw, err := h.stationWeather(req, rec)
		if err != nil {
			log.Errorf("error computing accumulation for station %s: %v", rec.StationID, err)
			http.Error(w, "error fetching weather data", http.StatusInternalServerError)
			return
		}
		out = append(out, sw)
	}
	h.writeJSON(w, out)
}

// GetStationWeather returns the latest reading for one station.
func (h *Handlers) GetStationWeather(w http.ResponseWriter, req *http.Request) {
	stationID := mux.Vars(req)["station_id"]

	rec, err := h.controller.DB.FetchLatestWeather(req.Context(), stationID)
	if err != nil {
		if errors.Is(err, database.ErrStationNotFound) {
			http.Error(w, "station not found", http.StatusNotFound)
			return
		}
		log.Errorf("error fetching latest weather for %s: %v", stationID, err)
		http.Error(w, "error fetching weather data", http.StatusInternalServerError)
		return
	}

	sw, err := h.stationWeather(req, *rec)
	if err != nil {
		log.Errorf("error computing accumulation for station %s: %v", stationID, err)
		http.Error(w, "error fetching weather data", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, sw)
}

// GetWeatherHistory returns an accumulation series per station over a
// look-back window. An optional station_id query parameter restricts the
// response to one station.
func (h *Handlers) GetWeatherHistory(w http.ResponseWriter, req *http.Request) {
	hours, err := queryInt(req, "hours", 24)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var stationIDs []string
	if id := req.URL.Query().Get("station_id"); id != "" {
		stationIDs = []string{id}
	} else {
		stationIDs, err = h.controller.DB.ListStationIDs(req.Context())
		if err != nil {
			log.Errorf("error listing stations: %v", err)
			http.Error(w, "error fetching weather data", http.StatusInternalServerError)
			return
		}
	}

	now := time.Now()
	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	// Stored timestamps are naive civil time, so the window check compares
	// civil strings rather than instants.
	cutoffCivil := accum.FormatMeasuredAt(cutoff)

	// Fetch past the cutoff so the first points in the window still find
	// their baselines, then drop the extra rows from the response.
	entries := make([]WeatherHistoryEntry, 0)
	for _, stationID := range stationIDs {
		records, err := h.controller.DB.FetchWeatherHistory(req.Context(), stationID, cutoff.Add(-baselineLookback), now)
		if err != nil {
			log.Errorf("error fetching weather history for %s: %v", stationID, err)
			http.Error(w, "error fetching weather data", http.StatusInternalServerError)
			return
		}

		history := make([]accum.Measurement, len(records))
		for i, rec := range records {
			history[i] = rec.Measurement()
		}

		i := 0
		for m, res := range accum.Series(history) {
			rec := records[i]
			i++
			measuredAt := accum.FormatMeasuredAt(m.MeasuredAt)
			if measuredAt < cutoffCivil {
				continue
			}
			entries = append(entries, WeatherHistoryEntry{
				StationID:    rec.StationID,
				StationName:  rec.StationName,
				StationType:  rec.StationType,
				TemperatureF: rec.TemperatureF,
				SnowDepthIn:  rec.SnowDepthIn,
				SnowAccumIn:  res.SnowAccum,
				RainAccumIn:  res.RainAccum,
				SnowDensity:  res.SnowDensity,
				MeasuredAt:   measuredAt,
				RecordedAt:   accum.FormatMeasuredAt(rec.RecordedAt),
			})
		}
	}
	h.writeJSON(w, entries)
}

// stationWeather computes the accumulation for one latest reading and
// assembles the response row.
func (h *Handlers) stationWeather(req *http.Request, rec database.WeatherRecord) (StationWeather, error) {
	records, err := h.controller.DB.FetchWeatherHistory(
		req.Context(), rec.StationID, rec.MeasuredAt.Add(-baselineLookback), rec.MeasuredAt)
	if err != nil {
		return StationWeather{}, err
	}

	history := make([]accum.Measurement, len(records))
	for i, r := range records {
		history[i] = r.Measurement()
	}
	res := accum.ComputeAt(rec.Measurement(), history)

	return StationWeather{
		StationID:        rec.StationID,
		StationName:      rec.StationName,
		StationElevation: rec.StationElevation,
		StationType:      rec.StationType,
		TemperatureF:     rec.TemperatureF,
		SnowDepthIn:      rec.SnowDepthIn,
		SnowAccumIn:      res.SnowAccum,
		RainAccumIn:      res.RainAccum,
		SnowDensity:      res.SnowDensity,
		TotalPrecipIn:    rec.TotalPrecipIn,
		MeasuredAt:       accum.FormatMeasuredAt(rec.MeasuredAt),
		LastUpdated:      accum.FormatMeasuredAt(rec.RecordedAt),
	}, nil
}
