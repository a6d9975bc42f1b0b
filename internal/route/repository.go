package route

import (
	"context"
	"time"
)

// Repository defines the interface for route and waypoint persistence.
//
// Optimization and lifecycle writes touch a route and its waypoints
// together; implementations must apply SaveOptimized and SaveTransition
// atomically so a reader never observes renumbered stops with stale
// timing or a transitioned stop with a stale route status.
type Repository interface {
	// CreateRoute persists a new route with its waypoints.
	// Returns ErrRouteExists if the technician already has a route for
	// the date.
	CreateRoute(ctx context.Context, route *Route) error

	// GetRoute retrieves a route with its waypoints ordered by stop order.
	// Returns ErrRouteNotFound if it doesn't exist.
	GetRoute(ctx context.Context, id string) (*Route, error)

	// GetRouteByTechnicianAndDate retrieves the technician's route for a
	// calendar date. Returns ErrRouteNotFound if none exists.
	GetRouteByTechnicianAndDate(ctx context.Context, technicianID string, date time.Time) (*Route, error)

	// ListRouteIDsByDate returns the IDs of every route planned for the
	// given calendar date.
	ListRouteIDsByDate(ctx context.Context, date time.Time) ([]string, error)

	// DeleteRoute removes a route and all its waypoints.
	DeleteRoute(ctx context.Context, id string) error

	// GetWaypoint retrieves a single waypoint by ID.
	// Returns ErrWaypointNotFound if it doesn't exist.
	GetWaypoint(ctx context.Context, id string) (*Waypoint, error)

	// SaveOptimized writes the route's aggregate metrics and every
	// waypoint's ordering and timing fields in one atomic unit.
	SaveOptimized(ctx context.Context, route *Route) error

	// SaveTransition writes a waypoint's lifecycle fields and the
	// recomputed route status in one atomic unit.
	SaveTransition(ctx context.Context, wp *Waypoint, routeStatus RouteStatus) error

	// UpdateRouteStatus sets the route status directly (cancellation).
	UpdateRouteStatus(ctx context.Context, id string, status RouteStatus) error
}
