// Package route implements daily route planning for a single technician:
// building a route from assigned job stops, optimizing the stop ordering,
// propagating timing estimates, tracking execution in the field, and
// analyzing plan-vs-actual efficiency.
package route

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
)

// Repository and service errors.
var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrWaypointNotFound = errors.New("waypoint not found")
	ErrRouteExists      = errors.New("route already exists for technician and date")
	ErrNoStops          = errors.New("no stops provided")
	ErrTooManyStops     = errors.New("too many stops for one route")
	ErrDuplicateJob     = errors.New("job appears more than once in route")
	ErrRouteCancelled   = errors.New("route is cancelled")
)

// RouteStatus represents the lifecycle state of a route.
type RouteStatus string

const (
	RouteStatusPlanned   RouteStatus = "planned"
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCompleted RouteStatus = "completed"
	RouteStatusCancelled RouteStatus = "cancelled"
)

// WaypointStatus represents the lifecycle state of a single stop.
type WaypointStatus string

const (
	WaypointStatusPending    WaypointStatus = "pending"
	WaypointStatusInProgress WaypointStatus = "in_progress"
	WaypointStatusCompleted  WaypointStatus = "completed"
	WaypointStatusSkipped    WaypointStatus = "skipped"
)

// IsTerminal reports whether the status permits no further transitions.
func (s WaypointStatus) IsTerminal() bool {
	return s == WaypointStatusCompleted || s == WaypointStatusSkipped
}

// OptimizationType selects the objective a route ordering is judged by.
type OptimizationType string

const (
	OptimizeDistance   OptimizationType = "distance"
	OptimizeTime       OptimizationType = "time"
	OptimizeEfficiency OptimizationType = "efficiency"
)

// Waypoint is one job stop within a route. Planned fields are written by
// optimization, actual fields only by the arrive/depart/skip transitions.
type Waypoint struct {
	ID      string
	RouteID string
	JobID   string

	// StopOrder is the 1-based visit position. Within a route the values
	// form a permutation of 1..N with no gaps.
	StopOrder int

	Status   WaypointStatus
	Location geo.Point

	EstimatedArrivalTime     *time.Time
	EstimatedDepartureTime   *time.Time
	EstimatedDurationMinutes int

	ActualArrivalTime     *time.Time
	ActualDepartureTime   *time.Time
	ActualDurationMinutes *int

	DistanceFromPreviousKm float64
	TravelTimeMinutes      int

	ArrivalNotes   *string
	DepartureNotes *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overdue reports whether a still-pending stop has missed its estimated
// arrival. Computed at read time, never stored.
func (w *Waypoint) Overdue(now time.Time) bool {
	return w.Status == WaypointStatusPending &&
		w.EstimatedArrivalTime != nil &&
		w.EstimatedArrivalTime.Before(now)
}

// Route is one technician's planned stop sequence for one calendar date.
// At most one route exists per (technician, date).
type Route struct {
	ID           string
	TechnicianID string

	// Date is the route's calendar day, truncated to midnight UTC.
	Date time.Time

	Status           RouteStatus
	OptimizationType OptimizationType
	VehicleType      directions.VehicleType
	AvoidTolls       bool
	AvoidHighways    bool

	// StartLocation and EndLocation override the first/last waypoint as
	// route endpoints when set.
	StartLocation *geo.Point
	EndLocation   *geo.Point

	TotalDistanceKm      float64
	TotalDurationMinutes int
	EstimatedFuelCost    float64

	// RoutePolyline is the encoded overview path from whichever source
	// produced the last optimization, empty if none ran yet.
	RoutePolyline string

	// OptimizedAt is nil until the first successful optimization. It is
	// the signal that aggregate metrics are trustworthy.
	OptimizedAt *time.Time

	// OptimizationSource names the provider behind the current metrics,
	// so degraded estimator results are distinguishable from oracle ones.
	OptimizationSource string

	Waypoints []*Waypoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DerivedStatus recomputes the route status from its waypoints. Cancelled
// is sticky; otherwise the route is active once any stop left pending and
// completed once every stop reached a terminal state.
func (r *Route) DerivedStatus() RouteStatus {
	if r.Status == RouteStatusCancelled {
		return RouteStatusCancelled
	}
	if len(r.Waypoints) == 0 {
		return RouteStatusPlanned
	}

	allTerminal := true
	anyStarted := false
	for _, w := range r.Waypoints {
		if w.Status != WaypointStatusPending {
			anyStarted = true
		}
		if !w.Status.IsTerminal() {
			allTerminal = false
		}
	}

	switch {
	case allTerminal:
		return RouteStatusCompleted
	case anyStarted:
		return RouteStatusActive
	default:
		return RouteStatusPlanned
	}
}

// Progress summarizes how much of the route has been executed.
type Progress struct {
	TotalStops     int
	CompletedStops int
	SkippedStops   int
	Percent        float64
}

// Progress reports terminal stops against total stops.
func (r *Route) Progress() Progress {
	p := Progress{TotalStops: len(r.Waypoints)}
	for _, w := range r.Waypoints {
		switch w.Status {
		case WaypointStatusCompleted:
			p.CompletedStops++
		case WaypointStatusSkipped:
			p.SkippedStops++
		}
	}
	if p.TotalStops > 0 {
		p.Percent = float64(p.CompletedStops+p.SkippedStops) / float64(p.TotalStops) * 100
	}
	return p
}

// StateConflictError rejects an illegal waypoint transition, telling the
// caller what state the stop is actually in. Field clients retrying a
// request need to know whether the first attempt already succeeded.
type StateConflictError struct {
	WaypointID string
	Current    WaypointStatus
	Requested  WaypointStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("waypoint %s is %s, cannot transition to %s",
		e.WaypointID, e.Current, e.Requested)
}
