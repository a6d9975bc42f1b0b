package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
)

// OptimizeOutcome is the result of a successful optimization run.
type OptimizeOutcome struct {
	Route *Route

	// Source names the provider that produced the leg metrics.
	Source string

	// Degraded is true when the oracle was unavailable and the local
	// estimator produced a best-effort result in input order.
	Degraded bool
}

// Optimize asks the routing oracle for the best stop ordering, falls back
// to the local estimator when the oracle is unavailable, renumbers the
// stops, propagates timing estimates, and recomputes aggregate metrics.
// The whole update is persisted atomically; any failure leaves the stored
// route untouched.
func (s *Service) Optimize(ctx context.Context, routeID string) (*OptimizeOutcome, error) {
	unlock := s.locks.lock(routeID)
	defer unlock()

	route, err := s.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status == RouteStatusCancelled {
		return nil, ErrRouteCancelled
	}
	if len(route.Waypoints) == 0 {
		s.logger.Info().Str("route_id", routeID).Msg("optimize skipped, route has no stops")
		return nil, ErrNoStops
	}

	req := s.buildDirectionsRequest(route)

	result, degraded, err := s.fetchLegs(ctx, route, req)
	if err != nil {
		return nil, err
	}

	if err := s.applyResult(route, result); err != nil {
		return nil, err
	}

	if err := s.repo.SaveOptimized(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", routeID).
		Str("source", result.Provider).
		Bool("degraded", degraded).
		Float64("total_distance_km", route.TotalDistanceKm).
		Int("total_duration_min", route.TotalDurationMinutes).
		Msg("route optimized")

	return &OptimizeOutcome{Route: route, Source: result.Provider, Degraded: degraded}, nil
}

// buildDirectionsRequest maps the route onto an oracle request. All stops
// travel as optimizable waypoints; the endpoints default to the first and
// last stop's location when the route has no explicit start or end.
func (s *Service) buildDirectionsRequest(route *Route) directions.Request {
	stops := make([]geo.Point, len(route.Waypoints))
	for i, wp := range route.Waypoints {
		stops[i] = wp.Location
	}

	origin := stops[0]
	if route.StartLocation != nil {
		origin = *route.StartLocation
	}
	destination := stops[len(stops)-1]
	if route.EndLocation != nil {
		destination = *route.EndLocation
	}

	return directions.Request{
		Origin:      origin,
		Destination: destination,
		Waypoints:   stops,
		Preferences: directions.Preferences{
			AvoidTolls:    route.AvoidTolls,
			AvoidHighways: route.AvoidHighways,
			Vehicle:       route.VehicleType,
		},
	}
}

// fetchLegs tries the oracle first and degrades to the local estimator
// only when the oracle is unavailable. NoRouteFound and InvalidRequest
// abort the optimization outright.
func (s *Service) fetchLegs(ctx context.Context, route *Route, req directions.Request) (*directions.Result, bool, error) {
	result, err := s.oracle.GetOptimizedRoute(ctx, req)
	if err == nil {
		return result, false, nil
	}

	if !errors.Is(err, directions.ErrUnavailable) {
		s.logger.Error().
			Err(err).
			Str("route_id", route.ID).
			Str("provider", s.oracle.Name()).
			Msg("optimization aborted")
		return nil, false, err
	}

	s.logger.Warn().
		Err(err).
		Str("route_id", route.ID).
		Str("fallback", s.fallback.Name()).
		Msg("routing oracle unavailable, using local estimate")

	result, err = s.fallback.GetOptimizedRoute(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("fallback estimate: %w", err)
	}
	return result, true, nil
}

// applyResult renumbers the waypoints per the returned ordering, fills in
// per-stop leg metrics and timing estimates, and recomputes the route
// aggregates. Mutates only the in-memory route; persistence is the
// caller's step.
func (s *Service) applyResult(route *Route, result *directions.Result) error {
	ordered, err := reorderWaypoints(route.Waypoints, result.OptimizedOrder)
	if err != nil {
		return err
	}

	timings, err := PropagateTimings(
		s.routeStart(route),
		ordered,
		result.Legs,
		s.serviceMinutes,
		s.settings.BufferPercent,
		s.settings.BreakMinutes,
	)
	if err != nil {
		return err
	}

	now := s.now()
	for i, wp := range ordered {
		wp.StopOrder = i + 1
		wp.DistanceFromPreviousKm = kmFromMeters(result.Legs[i].DistanceMeters)
		wp.TravelTimeMinutes = timings[i].TravelMinutes
		arrival := timings[i].EstimatedArrival
		departure := timings[i].EstimatedDeparture
		wp.EstimatedArrivalTime = &arrival
		wp.EstimatedDepartureTime = &departure
		wp.UpdatedAt = now
	}

	route.Waypoints = ordered
	route.TotalDistanceKm = kmFromMeters(result.TotalDistanceMeters())
	route.TotalDurationMinutes = minutesFromSeconds(result.TotalDurationSeconds())
	route.EstimatedFuelCost = s.fuelCost(route.TotalDistanceKm)
	route.RoutePolyline = result.EncodedPath
	route.OptimizationSource = result.Provider
	route.OptimizedAt = &now
	route.UpdatedAt = now

	return nil
}

// reorderWaypoints applies the provider's ordering, rejecting anything
// that is not a permutation of the stop indices.
func reorderWaypoints(waypoints []*Waypoint, order []int) ([]*Waypoint, error) {
	if len(order) != len(waypoints) {
		return nil, fmt.Errorf("provider ordered %d of %d stops", len(order), len(waypoints))
	}

	seen := make([]bool, len(waypoints))
	ordered := make([]*Waypoint, 0, len(waypoints))
	for _, idx := range order {
		if idx < 0 || idx >= len(waypoints) || seen[idx] {
			return nil, fmt.Errorf("provider ordering is not a permutation: %v", order)
		}
		seen[idx] = true
		ordered = append(ordered, waypoints[idx])
	}
	return ordered, nil
}

// serviceMinutes returns a stop's expected on-site time, defaulting to
// the configured average job duration.
func (s *Service) serviceMinutes(wp *Waypoint) int {
	if wp.EstimatedDurationMinutes > 0 {
		return wp.EstimatedDurationMinutes
	}
	return s.settings.AverageJobMinutes
}

// routeStart is the moment the technician departs the origin.
func (s *Service) routeStart(route *Route) time.Time {
	return route.Date.Add(time.Duration(s.settings.WorkdayStartHour) * time.Hour)
}

func (s *Service) fuelCost(distanceKm float64) float64 {
	if s.settings.FuelEfficiencyKmPerLiter <= 0 {
		return 0
	}
	liters := distanceKm / s.settings.FuelEfficiencyKmPerLiter
	return roundToCents(liters * s.settings.FuelPricePerLiter)
}

func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}
