package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/internal/route"
)

// RouteHandler handles route planning endpoints.
type RouteHandler struct {
	service *route.Service
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *route.Service) *RouteHandler {
	return &RouteHandler{service: service}
}

// Create handles POST /v1/routes - build a route from job stops.
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.RouteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		response.BadRequest(w, r, "date must be formatted YYYY-MM-DD", []models.FieldError{
			{Field: "date", Message: "invalid date format"},
		})
		return
	}

	built, err := h.service.Build(r.Context(), route.BuildInput{
		TechnicianID:     input.TechnicianID,
		Date:             date,
		Stops:            stopInputs(input.Stops),
		OptimizationType: optimizationType(input.Preferences),
		VehicleType:      vehicleType(input.Preferences),
		AvoidTolls:       boolPref(input.Preferences, func(p *models.RoutePreferences) *bool { return p.AvoidTolls }),
		AvoidHighways:    boolPref(input.Preferences, func(p *models.RoutePreferences) *bool { return p.AvoidHighways }),
		StartLocation:    geoPoint(input.StartLocation),
		EndLocation:      geoPoint(input.EndLocation),
	})
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/routes/"+built.ID, routeModel(built, time.Now()))
}

// Get handles GET /v1/routes/{routeId}.
func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")

	found, err := h.service.Get(r.Context(), routeID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, routeModel(found, time.Now()))
}

// Delete handles DELETE /v1/routes/{routeId}.
func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")

	if err := h.service.Delete(r.Context(), routeID); err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// Cancel handles POST /v1/routes/{routeId}:cancel.
func (h *RouteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")

	cancelled, err := h.service.Cancel(r.Context(), routeID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, routeModel(cancelled, time.Now()))
}

// Optimize handles POST /v1/routes/{routeId}:optimize.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")

	outcome, err := h.service.Optimize(r.Context(), routeID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.OptimizeResponse{
		Route:    routeModel(outcome.Route, time.Now()),
		Source:   outcome.Source,
		Degraded: outcome.Degraded,
	})
}

// Efficiency handles GET /v1/routes/{routeId}/efficiency.
func (h *RouteHandler) Efficiency(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")

	found, err := h.service.Get(r.Context(), routeID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	report := route.Analyze(found)
	response.JSON(w, r, http.StatusOK, models.EfficiencyReport{
		RouteID:                   found.ID,
		TotalStops:                report.TotalStops,
		CompletedStops:            report.CompletedStops,
		SkippedStops:              report.SkippedStops,
		EstimatedDistanceKm:       report.EstimatedDistanceKm,
		ActualDistanceKm:          report.ActualDistanceKm,
		EstimatedDurationHours:    report.EstimatedDurationHours,
		ActualDurationHours:       report.ActualDurationHours,
		DistanceEfficiencyPercent: report.DistanceEfficiencyPercent,
		TimeEfficiencyPercent:     report.TimeEfficiencyPercent,
		OnTimeCompletionRate:      report.OnTimeCompletionRate,
	})
}

// Suggest handles POST /v1/routes:suggestions - compare stop orderings
// without persisting anything.
func (h *RouteHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var input models.SuggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	vehicle := directions.VehicleType("")
	if input.VehicleType != nil {
		vehicle = directions.VehicleType(*input.VehicleType)
	}

	suggestions, err := h.service.Suggest(r.Context(), route.SuggestionInput{
		Stops:         stopInputs(input.Stops),
		StartLocation: geoPoint(input.StartLocation),
		EndLocation:   geoPoint(input.EndLocation),
		VehicleType:   vehicle,
	})
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	resp := models.SuggestionsResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Suggestions: make([]models.Suggestion, 0, len(suggestions)),
	}
	for _, s := range suggestions {
		resp.Suggestions = append(resp.Suggestions, models.Suggestion{
			OptimizeFor:          string(s.OptimizationType),
			StopOrder:            s.StopOrder,
			TotalDistanceKm:      s.TotalDistanceKm,
			TotalDurationMinutes: s.TotalDurationMinutes,
			EstimatedFuelCost:    s.EstimatedFuelCost,
		})
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// writeRouteError maps domain errors onto problem responses.
func writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidStop *route.InvalidStopError
	var conflict *route.StateConflictError

	switch {
	case errors.Is(err, route.ErrRouteNotFound), errors.Is(err, route.ErrWaypointNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, route.ErrNoStops),
		errors.Is(err, route.ErrTooManyStops),
		errors.Is(err, route.ErrDuplicateJob),
		errors.Is(err, directions.ErrInvalidRequest):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.As(err, &invalidStop):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "stops", Message: invalidStop.Reason},
		})
	case errors.Is(err, route.ErrRouteExists), errors.Is(err, route.ErrRouteCancelled):
		response.Conflict(w, r, err.Error())
	case errors.As(err, &conflict):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, directions.ErrNoRouteFound):
		response.Unprocessable(w, r, "no drivable route connects the requested stops")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

func stopInputs(stops []models.StopInput) []route.StopInput {
	out := make([]route.StopInput, 0, len(stops))
	for _, s := range stops {
		stop := route.StopInput{
			JobID:    s.JobID,
			Location: geo.Point{Lat: s.Location.Lat, Lon: s.Location.Lon},
		}
		if s.EstimatedDurationMinutes != nil {
			stop.EstimatedDurationMinutes = *s.EstimatedDurationMinutes
		}
		out = append(out, stop)
	}
	return out
}

func optimizationType(prefs *models.RoutePreferences) route.OptimizationType {
	if prefs == nil || prefs.OptimizeFor == nil {
		return ""
	}
	return route.OptimizationType(*prefs.OptimizeFor)
}

func vehicleType(prefs *models.RoutePreferences) directions.VehicleType {
	if prefs == nil || prefs.VehicleType == nil {
		return ""
	}
	return directions.VehicleType(*prefs.VehicleType)
}

func boolPref(prefs *models.RoutePreferences, get func(*models.RoutePreferences) *bool) bool {
	if prefs == nil {
		return false
	}
	if v := get(prefs); v != nil {
		return *v
	}
	return false
}

func geoPoint(p *models.Point) *geo.Point {
	if p == nil {
		return nil
	}
	return &geo.Point{Lat: p.Lat, Lon: p.Lon}
}

func routeModel(r *route.Route, now time.Time) models.Route {
	progress := r.Progress()
	m := models.Route{
		ID:                   r.ID,
		TechnicianID:         r.TechnicianID,
		Date:                 r.Date.Format("2006-01-02"),
		Status:               string(r.DerivedStatus()),
		OptimizeFor:          string(r.OptimizationType),
		VehicleType:          string(r.VehicleType),
		AvoidTolls:           r.AvoidTolls,
		AvoidHighways:        r.AvoidHighways,
		StartLocation:        pointModel(r.StartLocation),
		EndLocation:          pointModel(r.EndLocation),
		TotalDistanceKm:      r.TotalDistanceKm,
		TotalDurationMinutes: r.TotalDurationMinutes,
		EstimatedFuelCost:    r.EstimatedFuelCost,
		RoutePolyline:        r.RoutePolyline,
		OptimizationSource:   r.OptimizationSource,
		OptimizedAt:          timestampPtr(r.OptimizedAt),
		Progress: models.RouteProgress{
			TotalStops:     progress.TotalStops,
			CompletedStops: progress.CompletedStops,
			SkippedStops:   progress.SkippedStops,
			Percent:        progress.Percent,
		},
		Waypoints: make([]models.Waypoint, 0, len(r.Waypoints)),
		CreatedAt: models.Timestamp(r.CreatedAt),
		UpdatedAt: models.Timestamp(r.UpdatedAt),
	}
	for _, wp := range r.Waypoints {
		m.Waypoints = append(m.Waypoints, waypointModel(wp, now))
	}
	return m
}

func waypointModel(wp *route.Waypoint, now time.Time) models.Waypoint {
	return models.Waypoint{
		ID:                       wp.ID,
		JobID:                    wp.JobID,
		StopOrder:                wp.StopOrder,
		Status:                   string(wp.Status),
		Location:                 models.Point{Lat: wp.Location.Lat, Lon: wp.Location.Lon},
		EstimatedArrivalTime:     timestampPtr(wp.EstimatedArrivalTime),
		EstimatedDepartureTime:   timestampPtr(wp.EstimatedDepartureTime),
		EstimatedDurationMinutes: wp.EstimatedDurationMinutes,
		ActualArrivalTime:        timestampPtr(wp.ActualArrivalTime),
		ActualDepartureTime:      timestampPtr(wp.ActualDepartureTime),
		ActualDurationMinutes:    wp.ActualDurationMinutes,
		DistanceFromPreviousKm:   wp.DistanceFromPreviousKm,
		TravelTimeMinutes:        wp.TravelTimeMinutes,
		Overdue:                  wp.Overdue(now),
		ArrivalNotes:             wp.ArrivalNotes,
		DepartureNotes:           wp.DepartureNotes,
	}
}

func pointModel(p *geo.Point) *models.Point {
	if p == nil {
		return nil
	}
	return &models.Point{Lat: p.Lat, Lon: p.Lon}
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
