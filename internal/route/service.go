package route

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
)

// Service provides route planning, optimization, and lifecycle operations.
//
// Mutations against the same route are serialized through a per-route
// lock: Optimize rewrites every stop's ordering while arrive/depart
// transitions assume a stable ordering, so they must never interleave.
type Service struct {
	repo     Repository
	oracle   directions.Provider
	fallback directions.Provider
	settings Settings
	logger   zerolog.Logger

	// now is injectable for tests.
	now func() time.Time

	locks routeLocks
}

// NewService creates a new route service. The oracle is the remote
// directions provider; fallback is the local estimator used when the
// oracle is unavailable.
func NewService(repo Repository, oracle, fallback directions.Provider, settings Settings, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		oracle:   oracle,
		fallback: fallback,
		settings: settings,
		logger:   logger.With().Str("service", "route").Logger(),
		now:      time.Now,
	}
}

// StopInput is one job stop supplied when building a route.
type StopInput struct {
	JobID    string
	Location geo.Point

	// EstimatedDurationMinutes is the expected on-site service time.
	// Zero means use the configured average job duration.
	EstimatedDurationMinutes int
}

// BuildInput describes a route to build for a technician and date.
type BuildInput struct {
	TechnicianID     string
	Date             time.Time
	Stops            []StopInput
	OptimizationType OptimizationType
	VehicleType      directions.VehicleType
	AvoidTolls       bool
	AvoidHighways    bool
	StartLocation    *geo.Point
	EndLocation      *geo.Point
}

// InvalidStopError reports a malformed stop in a build request.
type InvalidStopError struct {
	Index  int
	Reason string
}

func (e *InvalidStopError) Error() string {
	return fmt.Sprintf("stop %d: %s", e.Index, e.Reason)
}

// Build creates a planned route with waypoints in input order. Stops are
// not reordered or timed until Optimize runs.
func (s *Service) Build(ctx context.Context, input BuildInput) (*Route, error) {
	if len(input.Stops) == 0 {
		return nil, ErrNoStops
	}
	if len(input.Stops) > s.settings.MaxStopsPerRoute {
		return nil, fmt.Errorf("%w: %d stops, limit %d",
			ErrTooManyStops, len(input.Stops), s.settings.MaxStopsPerRoute)
	}
	if input.TechnicianID == "" {
		return nil, errors.New("technician id is required")
	}

	seen := make(map[string]struct{}, len(input.Stops))
	for i, stop := range input.Stops {
		if stop.JobID == "" {
			return nil, &InvalidStopError{Index: i, Reason: "job id is required"}
		}
		if _, dup := seen[stop.JobID]; dup {
			return nil, fmt.Errorf("%w: job %s", ErrDuplicateJob, stop.JobID)
		}
		seen[stop.JobID] = struct{}{}
		if err := stop.Location.Validate(); err != nil {
			return nil, &InvalidStopError{Index: i, Reason: err.Error()}
		}
	}

	now := s.now()
	route := &Route{
		ID:               "rt_" + uuid.New().String()[:22],
		TechnicianID:     input.TechnicianID,
		Date:             truncateToDay(input.Date),
		Status:           RouteStatusPlanned,
		OptimizationType: input.OptimizationType,
		VehicleType:      input.VehicleType,
		AvoidTolls:       input.AvoidTolls,
		AvoidHighways:    input.AvoidHighways,
		StartLocation:    input.StartLocation,
		EndLocation:      input.EndLocation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if route.OptimizationType == "" {
		route.OptimizationType = s.settings.DefaultOptimizationType
	}
	if route.VehicleType == "" {
		route.VehicleType = s.settings.DefaultVehicleType
	}

	for i, stop := range input.Stops {
		route.Waypoints = append(route.Waypoints, &Waypoint{
			ID:                       "wp_" + uuid.New().String()[:22],
			RouteID:                  route.ID,
			JobID:                    stop.JobID,
			StopOrder:                i + 1,
			Status:                   WaypointStatusPending,
			Location:                 stop.Location,
			EstimatedDurationMinutes: stop.EstimatedDurationMinutes,
			CreatedAt:                now,
			UpdatedAt:                now,
		})
	}

	if err := s.repo.CreateRoute(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", route.ID).
		Str("technician_id", route.TechnicianID).
		Int("stop_count", len(route.Waypoints)).
		Msg("route built")

	return route, nil
}

// Get retrieves a route with its waypoints.
func (s *Service) Get(ctx context.Context, routeID string) (*Route, error) {
	return s.repo.GetRoute(ctx, routeID)
}

// Delete removes a route and its waypoints.
func (s *Service) Delete(ctx context.Context, routeID string) error {
	unlock := s.locks.lock(routeID)
	defer unlock()

	return s.repo.DeleteRoute(ctx, routeID)
}

// Cancel marks a route cancelled. Legal any time before completion.
func (s *Service) Cancel(ctx context.Context, routeID string) (*Route, error) {
	unlock := s.locks.lock(routeID)
	defer unlock()

	route, err := s.repo.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if route.DerivedStatus() == RouteStatusCompleted {
		return nil, fmt.Errorf("route %s is already completed", routeID)
	}

	if err := s.repo.UpdateRouteStatus(ctx, routeID, RouteStatusCancelled); err != nil {
		return nil, err
	}
	route.Status = RouteStatusCancelled

	s.logger.Info().Str("route_id", routeID).Msg("route cancelled")
	return route, nil
}

// Settings returns the planning parameters the service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// routeLocks hands out one mutex per route ID.
type routeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *routeLocks) lock(routeID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[routeID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[routeID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
