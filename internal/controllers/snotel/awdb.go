package snotel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

// AWDB element codes: air temperature, cumulative precipitation since
// October 1st, and snow depth.
const awdbElements = "TOBS,PREC,SNWD"

type awdbStationData struct {
	StationTriplet string        `json:"stationTriplet"`
	Data           []awdbElement `json:"data"`
}

type awdbElement struct {
	StationElement struct {
		ElementCode string `json:"elementCode"`
	} `json:"stationElement"`
	Values []awdbValue `json:"values"`
}

type awdbValue struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// fetchStation requests the hourly series for one station and reduces it to
// a single reading.
func (c *Controller) fetchStation(station config.StationConfig) (*database.WeatherRecord, error) {
	v := url.Values{}
	v.Set("stationTriplets", station.Triplet)
	v.Set("elements", awdbElements)
	v.Set("ordinal", "1")
	v.Set("duration", "HOURLY")
	v.Set("getFlags", "false")

	reqURL := c.cfg.Weather.APIEndpoint + "?" + v.Encode()
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating AWDB API HTTP request: %v", err)
	}

	log.Debugf("Making request to AWDB: %v", reqURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to AWDB: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AWDB API returned status %v", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading AWDB response body: %v", err)
	}

	var stations []awdbStationData
	if err := json.Unmarshal(bodyBytes, &stations); err != nil {
		return nil, fmt.Errorf("unable to decode AWDB API response: %v", err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("no data returned from AWDB API")
	}

	return stationReading(stations[0], station, time.Now())
}

// stationReading reduces an AWDB station response to one WeatherRecord,
// taking the most recent non-null value of each element. The temperature
// timestamp wins as measured_at when present; otherwise the first element
// that had a value supplies it.
func stationReading(data awdbStationData, station config.StationConfig, recordedAt time.Time) (*database.WeatherRecord, error) {
	elevation := int64(station.Elevation)
	rec := &database.WeatherRecord{
		StationID:        station.ID,
		StationName:      station.Name,
		StationElevation: &elevation,
		StationType:      station.Type,
		RecordedAt:       recordedAt,
	}

	var measuredAt string
	for _, element := range data.Data {
		latest := latestValue(element.Values)
		if latest == nil {
			continue
		}

		switch element.StationElement.ElementCode {
		case "TOBS":
			rec.TemperatureF = latest.Value
			measuredAt = latest.Date
		case "PREC":
			rec.TotalPrecipIn = latest.Value
			if measuredAt == "" {
				measuredAt = latest.Date
			}
		case "SNWD":
			rec.SnowDepthIn = latest.Value
			if measuredAt == "" {
				measuredAt = latest.Date
			}
		}
	}

	if measuredAt == "" {
		return nil, fmt.Errorf("station %s returned no values for any element", station.ID)
	}

	ts, err := accum.ParseMeasuredAt(measuredAt)
	if err != nil {
		return nil, fmt.Errorf("station %s returned malformed timestamp: %w", station.ID, err)
	}
	rec.MeasuredAt = ts

	return rec, nil
}

// latestValue returns the most recent non-null entry, scanning backwards
// since AWDB returns values oldest first.
func latestValue(values []awdbValue) *awdbValue {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Value != nil {
			return &values[i]
		}
	}
	return nil
}
