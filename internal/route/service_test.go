package route

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/directions/localestimate"
	"github.com/fieldroute/fieldroute/internal/geo"
)

// mockProvider is a mock directions provider for testing.
type mockProvider struct {
	name      string
	result    *directions.Result
	err       error
	callCount atomic.Int32
}

func (m *mockProvider) GetOptimizedRoute(_ context.Context, _ directions.Request) (*directions.Result, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockProvider) Name() string {
	return m.name
}

func newTestService(repo Repository, oracle, fallback directions.Provider) *Service {
	if fallback == nil {
		fallback = localestimate.NewEstimator(zerolog.Nop())
	}
	return NewService(repo, oracle, fallback, DefaultSettings(), zerolog.Nop())
}

var testDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// Three stops roughly along a line in the Netherlands.
var testStops = []StopInput{
	{JobID: "job-1", Location: geo.Point{Lat: 52.3676, Lon: 4.9041}},
	{JobID: "job-2", Location: geo.Point{Lat: 52.0907, Lon: 5.1214}},
	{JobID: "job-3", Location: geo.Point{Lat: 51.9851, Lon: 5.8987}},
}

func buildTestRoute(t *testing.T, svc *Service) *Route {
	t.Helper()

	route, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate,
		Stops:        testStops,
	})
	if err != nil {
		t.Fatalf("building route: %v", err)
	}
	return route
}

func TestService_Build(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	route := buildTestRoute(t, svc)

	if route.Status != RouteStatusPlanned {
		t.Errorf("expected planned status, got %s", route.Status)
	}
	if len(route.Waypoints) != 3 {
		t.Fatalf("expected 3 waypoints, got %d", len(route.Waypoints))
	}
	for i, wp := range route.Waypoints {
		if wp.StopOrder != i+1 {
			t.Errorf("waypoint %d: expected stop order %d, got %d", i, i+1, wp.StopOrder)
		}
		if wp.Status != WaypointStatusPending {
			t.Errorf("waypoint %d: expected pending, got %s", i, wp.Status)
		}
	}
	if route.OptimizedAt != nil {
		t.Error("a freshly built route must not carry an optimization stamp")
	}
	if route.OptimizationType != OptimizeTime {
		t.Errorf("expected default optimization type, got %s", route.OptimizationType)
	}
	if route.VehicleType != directions.VehicleTruck {
		t.Errorf("expected default vehicle type, got %s", route.VehicleType)
	}
}

func TestService_Build_NoStops(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	_, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate,
	})
	if !errors.Is(err, ErrNoStops) {
		t.Fatalf("expected ErrNoStops, got %v", err)
	}
}

func TestService_Build_TooManyStops(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	stops := make([]StopInput, DefaultSettings().MaxStopsPerRoute+1)
	for i := range stops {
		stops[i] = StopInput{
			JobID:    "job-" + string(rune('a'+i)),
			Location: geo.Point{Lat: 52.0, Lon: 5.0},
		}
	}

	_, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate,
		Stops:        stops,
	})
	if !errors.Is(err, ErrTooManyStops) {
		t.Fatalf("expected ErrTooManyStops, got %v", err)
	}
}

func TestService_Build_DuplicateJob(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	_, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate,
		Stops: []StopInput{
			{JobID: "job-1", Location: geo.Point{Lat: 52.0, Lon: 5.0}},
			{JobID: "job-1", Location: geo.Point{Lat: 52.1, Lon: 5.1}},
		},
	})
	if !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestService_Build_InvalidCoordinates(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	_, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate,
		Stops: []StopInput{
			{JobID: "job-1", Location: geo.Point{Lat: 99.0, Lon: 5.0}},
		},
	})

	var invalidStop *InvalidStopError
	if !errors.As(err, &invalidStop) {
		t.Fatalf("expected InvalidStopError, got %v", err)
	}
	if invalidStop.Index != 0 {
		t.Errorf("expected index 0, got %d", invalidStop.Index)
	}
}

func TestService_Build_OneRoutePerTechnicianAndDate(t *testing.T) {
	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	buildTestRoute(t, svc)

	_, err := svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate.Add(6 * time.Hour), // same calendar day
		Stops:        testStops[:1],
	})
	if !errors.Is(err, ErrRouteExists) {
		t.Fatalf("expected ErrRouteExists, got %v", err)
	}

	// A different day is fine.
	_, err = svc.Build(context.Background(), BuildInput{
		TechnicianID: "tech-1",
		Date:         testDate.AddDate(0, 0, 1),
		Stops:        testStops[:1],
	})
	if err != nil {
		t.Fatalf("unexpected error for next day: %v", err)
	}
}

func TestService_Cancel(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := newTestService(repo, &mockProvider{name: "oracle"}, nil)

	route := buildTestRoute(t, svc)

	cancelled, err := svc.Cancel(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != RouteStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	// Cancelled routes reject further optimization.
	if _, err := svc.Optimize(context.Background(), route.ID); !errors.Is(err, ErrRouteCancelled) {
		t.Fatalf("expected ErrRouteCancelled, got %v", err)
	}
}
