package route

import (
	"context"
	"math"
)

// Arrive records the technician reaching a stop. Legal only from pending;
// a duplicate arrival (retried mobile request) is rejected with a state
// conflict so the client knows the first attempt already succeeded.
func (s *Service) Arrive(ctx context.Context, waypointID string, notes *string) (*Waypoint, error) {
	return s.transition(ctx, waypointID, func(wp *Waypoint) error {
		if wp.Status != WaypointStatusPending {
			return &StateConflictError{
				WaypointID: wp.ID,
				Current:    wp.Status,
				Requested:  WaypointStatusInProgress,
			}
		}

		now := s.now()
		wp.Status = WaypointStatusInProgress
		wp.ActualArrivalTime = &now
		if notes != nil {
			wp.ArrivalNotes = notes
		}
		return nil
	})
}

// Depart records the technician leaving a stop, completing it. Legal only
// from in_progress. The actual on-site duration is derived from the
// recorded arrival, rounded to whole minutes.
func (s *Service) Depart(ctx context.Context, waypointID string, notes *string) (*Waypoint, error) {
	return s.transition(ctx, waypointID, func(wp *Waypoint) error {
		if wp.Status != WaypointStatusInProgress {
			return &StateConflictError{
				WaypointID: wp.ID,
				Current:    wp.Status,
				Requested:  WaypointStatusCompleted,
			}
		}

		now := s.now()
		wp.Status = WaypointStatusCompleted
		wp.ActualDepartureTime = &now
		if notes != nil {
			wp.DepartureNotes = notes
		}
		if wp.ActualArrivalTime != nil {
			minutes := int(math.Round(now.Sub(*wp.ActualArrivalTime).Minutes()))
			wp.ActualDurationMinutes = &minutes
		}
		return nil
	})
}

// Skip marks a stop as not serviced. Legal from pending or in_progress.
func (s *Service) Skip(ctx context.Context, waypointID string, notes *string) (*Waypoint, error) {
	return s.transition(ctx, waypointID, func(wp *Waypoint) error {
		if wp.Status.IsTerminal() {
			return &StateConflictError{
				WaypointID: wp.ID,
				Current:    wp.Status,
				Requested:  WaypointStatusSkipped,
			}
		}

		wp.Status = WaypointStatusSkipped
		if notes != nil {
			wp.DepartureNotes = notes
		}
		return nil
	})
}

// transition loads the waypoint under its route's lock, applies the
// mutation, recomputes the route status from all sibling stops, and
// persists both in one atomic write.
func (s *Service) transition(ctx context.Context, waypointID string, apply func(*Waypoint) error) (*Waypoint, error) {
	wp, err := s.repo.GetWaypoint(ctx, waypointID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(wp.RouteID)
	defer unlock()

	// Re-read under the lock; an optimize or a concurrent transition may
	// have rewritten the stop between the lookup and here.
	route, err := s.repo.GetRoute(ctx, wp.RouteID)
	if err != nil {
		return nil, err
	}
	if route.Status == RouteStatusCancelled {
		return nil, ErrRouteCancelled
	}

	wp = findWaypoint(route, waypointID)
	if wp == nil {
		return nil, ErrWaypointNotFound
	}

	if err := apply(wp); err != nil {
		return nil, err
	}
	wp.UpdatedAt = s.now()

	routeStatus := route.DerivedStatus()
	if err := s.repo.SaveTransition(ctx, wp, routeStatus); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("waypoint_id", wp.ID).
		Str("route_id", wp.RouteID).
		Str("status", string(wp.Status)).
		Str("route_status", string(routeStatus)).
		Msg("waypoint transitioned")

	return wp, nil
}

func findWaypoint(route *Route, waypointID string) *Waypoint {
	for _, wp := range route.Waypoints {
		if wp.ID == waypointID {
			return wp
		}
	}
	return nil
}
