package route

import (
	"context"
	"fmt"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
)

// SuggestionInput describes a what-if comparison request: a set of stops
// that may or may not belong to a persisted route yet.
type SuggestionInput struct {
	Stops         []StopInput
	StartLocation *geo.Point
	EndLocation   *geo.Point
	VehicleType   directions.VehicleType
}

// Suggestion is one candidate ordering, scored for an objective.
type Suggestion struct {
	OptimizationType OptimizationType

	// StopOrder lists input stop indices in visit order.
	StopOrder []int

	TotalDistanceKm      float64
	TotalDurationMinutes int
	EstimatedFuelCost    float64
}

// Suggest compares candidate stop orderings with the local estimator and
// returns the best ordering per optimization objective. Nothing is
// persisted; the caller decides whether to build a route from a result.
func (s *Service) Suggest(ctx context.Context, input SuggestionInput) ([]Suggestion, error) {
	if len(input.Stops) == 0 {
		return nil, ErrNoStops
	}
	if len(input.Stops) > s.settings.MaxStopsPerRoute {
		return nil, fmt.Errorf("%w: %d stops, limit %d",
			ErrTooManyStops, len(input.Stops), s.settings.MaxStopsPerRoute)
	}

	points := make([]geo.Point, len(input.Stops))
	for i, stop := range input.Stops {
		if err := stop.Location.Validate(); err != nil {
			return nil, &InvalidStopError{Index: i, Reason: err.Error()}
		}
		points[i] = stop.Location
	}

	origin := points[0]
	if input.StartLocation != nil {
		origin = *input.StartLocation
	}

	vehicle := input.VehicleType
	if vehicle == "" {
		vehicle = s.settings.DefaultVehicleType
	}

	// Two real candidates: the order the stops came in, and a greedy
	// nearest-neighbour chain from the origin.
	candidates := [][]int{
		identityStopOrder(len(points)),
		nearestNeighborOrder(origin, points),
	}

	scored := make([]scoredOrdering, 0, len(candidates))
	for _, order := range candidates {
		result, err := s.estimateOrdering(ctx, origin, input.EndLocation, points, order, vehicle)
		if err != nil {
			return nil, fmt.Errorf("scoring ordering: %w", err)
		}
		scored = append(scored, scoredOrdering{order: order, result: result})
	}

	suggestions := []Suggestion{
		s.toSuggestion(OptimizeDistance, pickBest(scored, func(r *directions.Result) int {
			return r.TotalDistanceMeters()
		})),
		s.toSuggestion(OptimizeTime, pickBest(scored, func(r *directions.Result) int {
			return r.TotalDurationSeconds()
		})),
		// Fuel cost scales with distance, so the efficiency objective
		// reduces to the shortest ordering at today's single fuel price.
		s.toSuggestion(OptimizeEfficiency, pickBest(scored, func(r *directions.Result) int {
			return r.TotalDistanceMeters()
		})),
	}

	s.logger.Debug().
		Int("stop_count", len(points)).
		Int("candidate_count", len(candidates)).
		Msg("route suggestions computed")

	return suggestions, nil
}

type scoredOrdering struct {
	order  []int
	result *directions.Result
}

// estimateOrdering runs the local estimator over the stops arranged in
// the given visit order.
func (s *Service) estimateOrdering(
	ctx context.Context,
	origin geo.Point,
	end *geo.Point,
	points []geo.Point,
	order []int,
	vehicle directions.VehicleType,
) (*directions.Result, error) {
	arranged := make([]geo.Point, len(order))
	for i, idx := range order {
		arranged[i] = points[idx]
	}

	destination := arranged[len(arranged)-1]
	if end != nil {
		destination = *end
	}

	return s.fallback.GetOptimizedRoute(ctx, directions.Request{
		Origin:      origin,
		Destination: destination,
		Waypoints:   arranged,
		Preferences: directions.Preferences{Vehicle: vehicle},
	})
}

func (s *Service) toSuggestion(objective OptimizationType, best scoredOrdering) Suggestion {
	distanceKm := kmFromMeters(best.result.TotalDistanceMeters())
	return Suggestion{
		OptimizationType:     objective,
		StopOrder:            best.order,
		TotalDistanceKm:      distanceKm,
		TotalDurationMinutes: minutesFromSeconds(best.result.TotalDurationSeconds()),
		EstimatedFuelCost:    s.fuelCost(distanceKm),
	}
}

func pickBest(scored []scoredOrdering, metric func(*directions.Result) int) scoredOrdering {
	best := scored[0]
	for _, candidate := range scored[1:] {
		if metric(candidate.result) < metric(best.result) {
			best = candidate
		}
	}
	return best
}

func identityStopOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// nearestNeighborOrder chains stops greedily, always visiting the closest
// unvisited stop next, starting from the origin.
func nearestNeighborOrder(origin geo.Point, points []geo.Point) []int {
	visited := make([]bool, len(points))
	order := make([]int, 0, len(points))
	current := origin

	for len(order) < len(points) {
		next := -1
		nextDist := 0.0
		for i, p := range points {
			if visited[i] {
				continue
			}
			d := geo.HaversineMeters(current, p)
			if next == -1 || d < nextDist {
				next = i
				nextDist = d
			}
		}
		visited[next] = true
		order = append(order, next)
		current = points[next]
	}

	return order
}
