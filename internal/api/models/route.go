package models

// StopInput is one job stop in a route build or suggestion request.
type StopInput struct {
	JobID                    string `json:"jobId" validate:"required"`
	Location                 Point  `json:"location" validate:"required"`
	EstimatedDurationMinutes *int   `json:"estimatedDurationMinutes,omitempty" validate:"omitempty,gte=1"`
}

// RoutePreferences carries optional planning preferences.
type RoutePreferences struct {
	OptimizeFor   *string `json:"optimizeFor,omitempty" validate:"omitempty,oneof=distance time efficiency"`
	VehicleType   *string `json:"vehicleType,omitempty" validate:"omitempty,oneof=car van truck"`
	AvoidTolls    *bool   `json:"avoidTolls,omitempty"`
	AvoidHighways *bool   `json:"avoidHighways,omitempty"`
}

// RouteCreateRequest is the request body for building a route.
type RouteCreateRequest struct {
	TechnicianID  string            `json:"technicianId" validate:"required"`
	Date          string            `json:"date" validate:"required"`
	Stops         []StopInput       `json:"stops" validate:"required,min=1"`
	StartLocation *Point            `json:"startLocation,omitempty"`
	EndLocation   *Point            `json:"endLocation,omitempty"`
	Preferences   *RoutePreferences `json:"preferences,omitempty"`
}

// Waypoint is one stop within a route response.
type Waypoint struct {
	ID                       string     `json:"id"`
	JobID                    string     `json:"jobId"`
	StopOrder                int        `json:"stopOrder"`
	Status                   string     `json:"status"`
	Location                 Point      `json:"location"`
	EstimatedArrivalTime     *Timestamp `json:"estimatedArrivalTime,omitempty"`
	EstimatedDepartureTime   *Timestamp `json:"estimatedDepartureTime,omitempty"`
	EstimatedDurationMinutes int        `json:"estimatedDurationMinutes"`
	ActualArrivalTime        *Timestamp `json:"actualArrivalTime,omitempty"`
	ActualDepartureTime      *Timestamp `json:"actualDepartureTime,omitempty"`
	ActualDurationMinutes    *int       `json:"actualDurationMinutes,omitempty"`
	DistanceFromPreviousKm   float64    `json:"distanceFromPreviousKm"`
	TravelTimeMinutes        int        `json:"travelTimeMinutes"`
	Overdue                  bool       `json:"overdue"`
	ArrivalNotes             *string    `json:"arrivalNotes,omitempty"`
	DepartureNotes           *string    `json:"departureNotes,omitempty"`
}

// RouteProgress summarizes execution progress.
type RouteProgress struct {
	TotalStops     int     `json:"totalStops"`
	CompletedStops int     `json:"completedStops"`
	SkippedStops   int     `json:"skippedStops"`
	Percent        float64 `json:"percent"`
}

// Route is the API representation of a technician's daily route.
type Route struct {
	ID                   string        `json:"id"`
	TechnicianID         string        `json:"technicianId"`
	Date                 string        `json:"date"`
	Status               string        `json:"status"`
	OptimizeFor          string        `json:"optimizeFor"`
	VehicleType          string        `json:"vehicleType"`
	AvoidTolls           bool          `json:"avoidTolls"`
	AvoidHighways        bool          `json:"avoidHighways"`
	StartLocation        *Point        `json:"startLocation,omitempty"`
	EndLocation          *Point        `json:"endLocation,omitempty"`
	TotalDistanceKm      float64       `json:"totalDistanceKm"`
	TotalDurationMinutes int           `json:"totalDurationMinutes"`
	EstimatedFuelCost    float64       `json:"estimatedFuelCost"`
	RoutePolyline        string        `json:"routePolyline,omitempty"`
	OptimizedAt          *Timestamp    `json:"optimizedAt,omitempty"`
	OptimizationSource   string        `json:"optimizationSource,omitempty"`
	Progress             RouteProgress `json:"progress"`
	Waypoints            []Waypoint    `json:"waypoints"`
	CreatedAt            Timestamp     `json:"createdAt"`
	UpdatedAt            Timestamp     `json:"updatedAt"`
}

// OptimizeResponse wraps the optimized route with provenance.
type OptimizeResponse struct {
	Route    Route  `json:"route"`
	Source   string `json:"source"`
	Degraded bool   `json:"degraded"`
}

// EfficiencyReport compares a route's execution against its plan.
type EfficiencyReport struct {
	RouteID                   string  `json:"routeId"`
	TotalStops                int     `json:"totalStops"`
	CompletedStops            int     `json:"completedStops"`
	SkippedStops              int     `json:"skippedStops"`
	EstimatedDistanceKm       float64 `json:"estimatedDistanceKm"`
	ActualDistanceKm          float64 `json:"actualDistanceKm"`
	EstimatedDurationHours    float64 `json:"estimatedDurationHours"`
	ActualDurationHours       float64 `json:"actualDurationHours"`
	DistanceEfficiencyPercent float64 `json:"distanceEfficiencyPercent"`
	TimeEfficiencyPercent     float64 `json:"timeEfficiencyPercent"`
	// OnTimeCompletionRate is a 0-100 percentage, like the sibling metrics.
	OnTimeCompletionRate float64 `json:"onTimeCompletionRate"`
}

// SuggestionsRequest is the request body for comparing stop orderings.
type SuggestionsRequest struct {
	Stops         []StopInput `json:"stops" validate:"required,min=1"`
	StartLocation *Point      `json:"startLocation,omitempty"`
	EndLocation   *Point      `json:"endLocation,omitempty"`
	VehicleType   *string     `json:"vehicleType,omitempty" validate:"omitempty,oneof=car van truck"`
}

// Suggestion is one candidate ordering scored for an objective.
type Suggestion struct {
	OptimizeFor          string  `json:"optimizeFor"`
	StopOrder            []int   `json:"stopOrder"`
	TotalDistanceKm      float64 `json:"totalDistanceKm"`
	TotalDurationMinutes int     `json:"totalDurationMinutes"`
	EstimatedFuelCost    float64 `json:"estimatedFuelCost"`
}

// SuggestionsResponse lists the best ordering per objective.
type SuggestionsResponse struct {
	GeneratedAt Timestamp    `json:"generatedAt"`
	Suggestions []Suggestion `json:"suggestions"`
}

// WaypointActionRequest is the optional body for waypoint transitions.
type WaypointActionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// WaypointActionResponse returns the transitioned waypoint plus the
// route status it produced.
type WaypointActionResponse struct {
	Waypoint    Waypoint `json:"waypoint"`
	RouteStatus string   `json:"routeStatus"`
}
