package traffic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

// fieldMask limits the computeRoutes response to the fields we read.
const fieldMask = "routes.duration,routes.distanceMeters,routes.staticDuration,routes.polyline,routes.legs"

type computeRoutesRequest struct {
	Origin                   waypoint        `json:"origin"`
	Destination              waypoint        `json:"destination"`
	Intermediates            []waypoint      `json:"intermediates,omitempty"`
	TravelMode               string          `json:"travelMode"`
	RoutingPreference        string          `json:"routingPreference"`
	ComputeAlternativeRoutes bool            `json:"computeAlternativeRoutes"`
	RouteModifiers           routeModifiers  `json:"routeModifiers"`
	LanguageCode             string          `json:"languageCode"`
	Units                    string          `json:"units"`
}

type waypoint struct {
	Address string `json:"address"`
}

type routeModifiers struct {
	AvoidTolls    bool `json:"avoidTolls"`
	AvoidHighways bool `json:"avoidHighways"`
	AvoidFerries  bool `json:"avoidFerries"`
}

type computeRoutesResponse struct {
	Routes []routeData `json:"routes"`
}

type routeData struct {
	Duration       string    `json:"duration"`
	StaticDuration string    `json:"staticDuration"`
	DistanceMeters int64     `json:"distanceMeters"`
	Legs           []legData `json:"legs"`
}

type legData struct {
	Duration string `json:"duration"`
}

// routeSample is one poll result: the travel time record plus its segments.
type routeSample struct {
	record   database.TravelTimeRecord
	segments []database.SegmentRecord
}

// fetchRoute requests a traffic-aware route and reduces it to one sample.
// An empty routes array is not an error: it means the road is closed and
// produces a record with NULL durations.
func (c *Controller) fetchRoute(route config.RouteConfig, now time.Time) (*routeSample, error) {
	payload := computeRoutesRequest{
		Origin:                   waypoint{Address: route.Origin},
		Destination:              waypoint{Address: route.Destination},
		TravelMode:               "DRIVE",
		RoutingPreference:        "TRAFFIC_AWARE",
		ComputeAlternativeRoutes: false,
		LanguageCode:             "en-US",
		Units:                    "IMPERIAL",
	}
	for _, wp := range route.Waypoints {
		payload.Intermediates = append(payload.Intermediates, waypoint{Address: wp.Location})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling computeRoutes request: %v", err)
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.cfg.Traffic.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating computeRoutes HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.Traffic.APIKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	log.Debugf("Making computeRoutes request for route %s", route.ID)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to Routes API: %v", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading Routes API response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Routes API returned status %v: %s", resp.Status, respBytes)
	}

	var decoded computeRoutesResponse
	if err := json.Unmarshal(respBytes, &decoded); err != nil {
		return nil, fmt.Errorf("unable to decode Routes API response: %v", err)
	}

	return routeSampleFrom(route, decoded, now)
}

// routeSampleFrom reduces a computeRoutes response to one stored sample.
func routeSampleFrom(route config.RouteConfig, resp computeRoutesResponse, now time.Time) (*routeSample, error) {
	record := database.TravelTimeRecord{
		RouteID:           route.ID,
		RouteName:         route.Name,
		RecordedAt:        now,
		ProviderUpdatedAt: &now,
	}

	if len(resp.Routes) == 0 {
		// Closed road: keep the sample so the gap is visible in history.
		log.Warnf("No routes returned for %s - marking as closed", route.Name)
		return &routeSample{record: record}, nil
	}

	data := resp.Routes[0]

	currentMin, err := durationMinutes(data.Duration)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", route.ID, err)
	}
	averageMin, err := durationMinutes(data.StaticDuration)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", route.ID, err)
	}
	record.CurrentMin = &currentMin
	record.AverageMin = &averageMin

	segments, err := routeSegments(route, data, currentMin, now)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", route.ID, err)
	}

	return &routeSample{record: record, segments: segments}, nil
}

// routeSegments builds per-leg segment records. Routes without waypoints
// get a single origin-to-destination segment carrying the full duration.
func routeSegments(route config.RouteConfig, data routeData, currentMin int64, now time.Time) ([]database.SegmentRecord, error) {
	origin := placeName(route.Origin)
	dest := placeName(route.Destination)

	if len(route.Waypoints) == 0 || len(data.Legs) == 0 {
		return []database.SegmentRecord{{
			RouteID:      route.ID,
			SegmentOrder: 0,
			From:         origin,
			To:           dest,
			DurationMin:  &currentMin,
			RecordedAt:   now,
		}}, nil
	}

	names := make([]string, 0, len(route.Waypoints)+2)
	names = append(names, origin)
	for _, wp := range route.Waypoints {
		names = append(names, wp.Name)
	}
	names = append(names, dest)

	segments := make([]database.SegmentRecord, 0, len(data.Legs))
	for i, leg := range data.Legs {
		legMin, err := durationMinutes(leg.Duration)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}

		from := fmt.Sprintf("Waypoint %d", i)
		if i < len(names) {
			from = names[i]
		}
		to := fmt.Sprintf("Waypoint %d", i+1)
		if i+1 < len(names) {
			to = names[i+1]
		}

		segments = append(segments, database.SegmentRecord{
			RouteID:      route.ID,
			SegmentOrder: i,
			From:         from,
			To:           to,
			DurationMin:  &legMin,
			RecordedAt:   now,
		})
	}
	return segments, nil
}

// durationMinutes parses the Routes API duration encoding ("1234s") into
// whole minutes, rounding down.
func durationMinutes(s string) (int64, error) {
	if s == "" {
		s = "0s"
	}
	seconds, err := strconv.ParseInt(strings.TrimSuffix(s, "s"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed duration %q: %v", s, err)
	}
	return seconds / 60, nil
}

// placeName derives a short display name from a full address: the text
// before the first comma, with any "Ski Area" suffix dropped.
func placeName(address string) string {
	name, _, _ := strings.Cut(address, ",")
	name = strings.ReplaceAll(name, "Ski Area", "")
	return strings.TrimSpace(name)
}
