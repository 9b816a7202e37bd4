package restserver

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/snowroute/snowroute/internal/accum"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{controller: ctrl}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("error encoding response to JSON: %v", err)
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(req *http.Request, name string, def int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

// GetIndex handles the root endpoint.
func (h *Handlers) GetIndex(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, IndexResponse{
		Message: "snowroute API",
		Endpoints: map[string]string{
			"/routes":                   "List all tracked routes",
			"/routes/{route_id}/stats":  "Travel time statistics for a route",
			"/current":                  "Current status for all routes",
			"/current/{route_id}":       "Current status for a specific route",
			"/history/{route_id}":       "Historical travel times for a route",
			"/segments/{route_id}":      "Segment-by-segment history for a route",
			"/weather/current":          "Latest weather with accumulation since 4pm",
			"/weather/history":          "Hourly weather history with accumulation",
			"/weather/{station_id}":     "Latest weather for a specific station",
		},
	})
}

// GetRoutes lists all tracked routes with basic stats, excluding archived.
func (h *Handlers) GetRoutes(w http.ResponseWriter, req *http.Request) {
	summaries, err := h.controller.DB.ListRoutes(req.Context())
	if err != nil {
		log.Errorf("error listing routes: %v", err)
		http.Error(w, "error fetching route data", http.StatusInternalServerError)
		return
	}

	routes := make([]RouteInfo, 0, len(summaries))
	for _, s := range summaries {
		if h.controller.cfg.IsArchived(s.RouteID) {
			continue
		}
		routes = append(routes, RouteInfo{
			RouteID:       s.RouteID,
			RouteName:     s.RouteName,
			RecordCount:   s.RecordCount,
			FirstRecorded: accum.FormatMeasuredAt(s.FirstRecorded),
			LastRecorded:  accum.FormatMeasuredAt(s.LastRecorded),
		})
	}
	h.writeJSON(w, routes)
}

// GetCurrent returns the current status for all non-archived routes.
func (h *Handlers) GetCurrent(w http.ResponseWriter, req *http.Request) {
	latest, err := h.controller.DB.FetchLatestTravelAll(req.Context())
	if err != nil {
		log.Errorf("error fetching current travel times: %v", err)
		http.Error(w, "error fetching travel data", http.StatusInternalServerError)
		return
	}

	statuses := make([]CurrentStatus, 0, len(latest))
	for _, rec := range latest {
		if h.controller.cfg.IsArchived(rec.RouteID) {
			continue
		}
		statuses = append(statuses, currentStatus(rec))
	}
	h.writeJSON(w, statuses)
}

// GetCurrentByRoute returns the current status for one route.
func (h *Handlers) GetCurrentByRoute(w http.ResponseWriter, req *http.Request) {
	routeID := mux.Vars(req)["route_id"]

	rec, err := h.controller.DB.FetchLatestTravel(req.Context(), routeID)
	if err != nil {
		if errors.Is(err, database.ErrRouteNotFound) {
			http.Error(w, "route not found", http.StatusNotFound)
			return
		}
		log.Errorf("error fetching current travel time: %v", err)
		http.Error(w, "error fetching travel data", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, currentStatus(*rec))
}

// GetHistory returns historical travel times for a route.
func (h *Handlers) GetHistory(w http.ResponseWriter, req *http.Request) {
	routeID := mux.Vars(req)["route_id"]

	hours, err := queryInt(req, "hours", 24)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(req, "limit", 1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	history, err := h.controller.DB.FetchTravelHistory(req.Context(), routeID, cutoff, limit)
	if err != nil {
		log.Errorf("error fetching travel history: %v", err)
		http.Error(w, "error fetching travel data", http.StatusInternalServerError)
		return
	}

	entries := make([]TravelTimeEntry, 0, len(history))
	for _, rec := range history {
		entry := TravelTimeEntry{
			ID:         rec.ID,
			RouteID:    rec.RouteID,
			RouteName:  rec.RouteName,
			CurrentMin: rec.CurrentMin,
			AverageMin: rec.AverageMin,
			RecordedAt: accum.FormatMeasuredAt(rec.RecordedAt),
		}
		if rec.ProviderUpdatedAt != nil {
			s := accum.FormatMeasuredAt(*rec.ProviderUpdatedAt)
			entry.ProviderUpdatedAt = &s
		}
		entries = append(entries, entry)
	}
	h.writeJSON(w, entries)
}

// GetSegments returns segment-by-segment history for a route.
func (h *Handlers) GetSegments(w http.ResponseWriter, req *http.Request) {
	routeID := mux.Vars(req)["route_id"]

	hours, err := queryInt(req, "hours", 24)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(req, "limit", 1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	snapshots, err := h.controller.DB.FetchSegmentHistory(req.Context(), routeID, cutoff, limit)
	if err != nil {
		log.Errorf("error fetching segment history: %v", err)
		http.Error(w, "error fetching segment data", http.StatusInternalServerError)
		return
	}

	groups := make([]SegmentGroup, 0, len(snapshots))
	for _, snap := range snapshots {
		group := SegmentGroup{RecordedAt: accum.FormatMeasuredAt(snap.RecordedAt)}
		for _, seg := range snap.Segments {
			group.Segments = append(group.Segments, SegmentEntry{
				From:        seg.From,
				To:          seg.To,
				DurationMin: seg.DurationMin,
			})
		}
		groups = append(groups, group)
	}
	h.writeJSON(w, groups)
}

// GetRouteStats returns summary statistics of a route's travel minutes.
func (h *Handlers) GetRouteStats(w http.ResponseWriter, req *http.Request) {
	routeID := mux.Vars(req)["route_id"]

	hours, err := queryInt(req, "hours", 24)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	minutes, err := h.controller.DB.FetchCurrentMinutes(req.Context(), routeID, cutoff)
	if err != nil {
		log.Errorf("error fetching travel minutes: %v", err)
		http.Error(w, "error fetching travel data", http.StatusInternalServerError)
		return
	}
	if len(minutes) == 0 {
		http.Error(w, "no travel data for route in window", http.StatusNotFound)
		return
	}

	stats := RouteStats{
		RouteID:     routeID,
		SampleCount: len(minutes),
		MeanMin:     stat.Mean(minutes, nil),
		MinMin:      floats.Min(minutes),
		MaxMin:      floats.Max(minutes),
	}
	if len(minutes) > 1 {
		stats.StdDevMin = stat.StdDev(minutes, nil)
	}
	h.writeJSON(w, stats)
}

// currentStatus derives the open/closed status and deltas for a sample. A
// NULL current duration means the route was unavailable at poll time.
func currentStatus(rec database.TravelTimeRecord) CurrentStatus {
	status := CurrentStatus{
		RouteID:     rec.RouteID,
		RouteName:   rec.RouteName,
		CurrentMin:  rec.CurrentMin,
		AverageMin:  rec.AverageMin,
		LastUpdated: accum.FormatMeasuredAt(rec.RecordedAt),
		Status:      "closed",
	}
	if rec.CurrentMin != nil {
		status.Status = "open"
	}
	if rec.CurrentMin != nil && rec.AverageMin != nil && *rec.AverageMin > 0 {
		delta := *rec.CurrentMin - *rec.AverageMin
		status.DeltaMin = &delta
		pct := math.Round(float64(delta)/float64(*rec.AverageMin)*1000) / 10
		status.DeltaPercent = &pct
	}
	return status
}
