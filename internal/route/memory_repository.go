package route

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	routes    map[string]*Route
	waypoints map[string]*Waypoint
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes:    make(map[string]*Route),
		waypoints: make(map[string]*Waypoint),
	}
}

// CreateRoute persists a new route with its waypoints.
func (r *InMemoryRepository) CreateRoute(_ context.Context, route *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.routes {
		if existing.TechnicianID == route.TechnicianID && sameDay(existing.Date, route.Date) {
			return ErrRouteExists
		}
	}

	r.routes[route.ID] = copyRoute(route)
	for _, wp := range route.Waypoints {
		r.waypoints[wp.ID] = copyWaypoint(wp)
	}
	return nil
}

// GetRoute retrieves a route with its waypoints ordered by stop order.
func (r *InMemoryRepository) GetRoute(_ context.Context, id string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.assembleRoute(id)
}

// GetRouteByTechnicianAndDate retrieves the technician's route for a date.
func (r *InMemoryRepository) GetRouteByTechnicianAndDate(_ context.Context, technicianID string, date time.Time) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, route := range r.routes {
		if route.TechnicianID == technicianID && sameDay(route.Date, date) {
			return r.assembleRoute(id)
		}
	}
	return nil, ErrRouteNotFound
}

// ListRouteIDsByDate returns the IDs of every route planned for the date.
func (r *InMemoryRepository) ListRouteIDsByDate(_ context.Context, date time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, route := range r.routes {
		if sameDay(route.Date, date) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRoute removes a route and all its waypoints.
func (r *InMemoryRepository) DeleteRoute(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[id]; !ok {
		return ErrRouteNotFound
	}
	delete(r.routes, id)
	for wpID, wp := range r.waypoints {
		if wp.RouteID == id {
			delete(r.waypoints, wpID)
		}
	}
	return nil
}

// GetWaypoint retrieves a single waypoint by ID.
func (r *InMemoryRepository) GetWaypoint(_ context.Context, id string) (*Waypoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wp, ok := r.waypoints[id]
	if !ok {
		return nil, ErrWaypointNotFound
	}
	return copyWaypoint(wp), nil
}

// SaveOptimized writes the route aggregates and every waypoint atomically.
func (r *InMemoryRepository) SaveOptimized(_ context.Context, route *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[route.ID]; !ok {
		return ErrRouteNotFound
	}

	r.routes[route.ID] = copyRoute(route)
	for _, wp := range route.Waypoints {
		r.waypoints[wp.ID] = copyWaypoint(wp)
	}
	return nil
}

// SaveTransition writes a waypoint and the recomputed route status atomically.
func (r *InMemoryRepository) SaveTransition(_ context.Context, wp *Waypoint, routeStatus RouteStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.waypoints[wp.ID]; !ok {
		return ErrWaypointNotFound
	}
	route, ok := r.routes[wp.RouteID]
	if !ok {
		return ErrRouteNotFound
	}

	r.waypoints[wp.ID] = copyWaypoint(wp)
	route.Status = routeStatus
	route.UpdatedAt = wp.UpdatedAt
	return nil
}

// UpdateRouteStatus sets the route status directly.
func (r *InMemoryRepository) UpdateRouteStatus(_ context.Context, id string, status RouteStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[id]
	if !ok {
		return ErrRouteNotFound
	}
	route.Status = status
	return nil
}

// assembleRoute returns a copy of the route with its waypoints attached,
// sorted by stop order. Callers must hold at least the read lock.
func (r *InMemoryRepository) assembleRoute(id string) (*Route, error) {
	route, ok := r.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}

	cpy := copyRoute(route)
	for _, wp := range r.waypoints {
		if wp.RouteID == id {
			cpy.Waypoints = append(cpy.Waypoints, copyWaypoint(wp))
		}
	}
	sort.Slice(cpy.Waypoints, func(i, j int) bool {
		return cpy.Waypoints[i].StopOrder < cpy.Waypoints[j].StopOrder
	})
	return cpy, nil
}

// copyRoute returns a copy without waypoints; those are assembled from
// the waypoint map so both access paths see the same record.
func copyRoute(route *Route) *Route {
	cpy := *route
	cpy.Waypoints = nil
	if route.StartLocation != nil {
		loc := *route.StartLocation
		cpy.StartLocation = &loc
	}
	if route.EndLocation != nil {
		loc := *route.EndLocation
		cpy.EndLocation = &loc
	}
	if route.OptimizedAt != nil {
		t := *route.OptimizedAt
		cpy.OptimizedAt = &t
	}
	return &cpy
}

func copyWaypoint(wp *Waypoint) *Waypoint {
	cpy := *wp
	cpy.EstimatedArrivalTime = copyTime(wp.EstimatedArrivalTime)
	cpy.EstimatedDepartureTime = copyTime(wp.EstimatedDepartureTime)
	cpy.ActualArrivalTime = copyTime(wp.ActualArrivalTime)
	cpy.ActualDepartureTime = copyTime(wp.ActualDepartureTime)
	if wp.ActualDurationMinutes != nil {
		v := *wp.ActualDurationMinutes
		cpy.ActualDurationMinutes = &v
	}
	cpy.ArrivalNotes = copyString(wp.ArrivalNotes)
	cpy.DepartureNotes = copyString(wp.DepartureNotes)
	return &cpy
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cpy := *t
	return &cpy
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	cpy := *s
	return &cpy
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
