package route

import (
	"context"
	"errors"
	"testing"
	"time"
)

// clockedService pins the service clock so transitions happen at known
// instants.
func clockedService(t *testing.T) (*Service, *Route, *time.Time) {
	t.Helper()

	svc := newTestService(NewInMemoryRepository(), &mockProvider{name: "oracle"}, nil)

	current := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	route := buildTestRoute(t, svc)
	return svc, route, &current
}

func TestService_ArriveThenDepart(t *testing.T) {
	svc, route, clock := clockedService(t)
	wp := route.Waypoints[0]

	notes := "on site"
	arrived, err := svc.Arrive(context.Background(), wp.ID, &notes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arrived.Status != WaypointStatusInProgress {
		t.Errorf("expected in_progress, got %s", arrived.Status)
	}
	if arrived.ActualArrivalTime == nil || !arrived.ActualArrivalTime.Equal(*clock) {
		t.Errorf("expected arrival at %v, got %v", *clock, arrived.ActualArrivalTime)
	}
	if arrived.ArrivalNotes == nil || *arrived.ArrivalNotes != "on site" {
		t.Error("expected arrival notes stored")
	}

	*clock = clock.Add(47 * time.Minute)

	departed, err := svc.Depart(context.Background(), wp.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if departed.Status != WaypointStatusCompleted {
		t.Errorf("expected completed, got %s", departed.Status)
	}
	if departed.ActualDurationMinutes == nil || *departed.ActualDurationMinutes != 47 {
		t.Errorf("expected 47 minutes on site, got %v", departed.ActualDurationMinutes)
	}
}

func TestService_Arrive_DuplicateRejected(t *testing.T) {
	svc, route, _ := clockedService(t)
	wp := route.Waypoints[0]

	if _, err := svc.Arrive(context.Background(), wp.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Arrive(context.Background(), wp.ID, nil)

	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if conflict.Current != WaypointStatusInProgress {
		t.Errorf("expected current in_progress, got %s", conflict.Current)
	}
	if conflict.Requested != WaypointStatusInProgress {
		t.Errorf("expected requested in_progress, got %s", conflict.Requested)
	}
}

func TestService_Depart_WithoutArrivalRejected(t *testing.T) {
	svc, route, _ := clockedService(t)

	_, err := svc.Depart(context.Background(), route.Waypoints[0].ID, nil)

	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if conflict.Current != WaypointStatusPending {
		t.Errorf("expected current pending, got %s", conflict.Current)
	}
}

func TestService_Arrive_OnCompletedRejected(t *testing.T) {
	svc, route, _ := clockedService(t)
	wp := route.Waypoints[0]

	if _, err := svc.Arrive(context.Background(), wp.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Depart(context.Background(), wp.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Arrive(context.Background(), wp.ID, nil)

	var conflict *StateConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StateConflictError, got %v", err)
	}
	if conflict.Current != WaypointStatusCompleted {
		t.Errorf("expected current completed, got %s", conflict.Current)
	}
}

func TestService_Skip(t *testing.T) {
	svc, route, _ := clockedService(t)
	wp := route.Waypoints[0]

	skipped, err := svc.Skip(context.Background(), wp.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped.Status != WaypointStatusSkipped {
		t.Errorf("expected skipped, got %s", skipped.Status)
	}

	// Skipped is terminal.
	if _, err := svc.Arrive(context.Background(), wp.ID, nil); err == nil {
		t.Error("expected arrival on skipped stop to be rejected")
	}
	if _, err := svc.Skip(context.Background(), wp.ID, nil); err == nil {
		t.Error("expected second skip to be rejected")
	}
}

func TestService_RouteStatusDerivation(t *testing.T) {
	svc, route, clock := clockedService(t)

	assertRouteStatus := func(want RouteStatus) {
		t.Helper()
		stored, err := svc.Get(context.Background(), route.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != want {
			t.Errorf("expected route %s, got %s", want, stored.Status)
		}
	}

	assertRouteStatus(RouteStatusPlanned)

	// First arrival activates the route.
	if _, err := svc.Arrive(context.Background(), route.Waypoints[0].ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRouteStatus(RouteStatusActive)

	*clock = clock.Add(30 * time.Minute)
	if _, err := svc.Depart(context.Background(), route.Waypoints[0].ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRouteStatus(RouteStatusActive)

	// Every stop terminal (completed or skipped) completes the route.
	if _, err := svc.Skip(context.Background(), route.Waypoints[1].ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Arrive(context.Background(), route.Waypoints[2].ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRouteStatus(RouteStatusActive)
	if _, err := svc.Depart(context.Background(), route.Waypoints[2].ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRouteStatus(RouteStatusCompleted)
}

func TestService_Transition_CancelledRoute(t *testing.T) {
	svc, route, _ := clockedService(t)

	if _, err := svc.Cancel(context.Background(), route.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Arrive(context.Background(), route.Waypoints[0].ID, nil)
	if !errors.Is(err, ErrRouteCancelled) {
		t.Fatalf("expected ErrRouteCancelled, got %v", err)
	}
}

func TestWaypoint_Overdue(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-10 * time.Minute)
	future := now.Add(10 * time.Minute)

	tests := []struct {
		name string
		wp   Waypoint
		want bool
	}{
		{
			name: "pending past estimate",
			wp:   Waypoint{Status: WaypointStatusPending, EstimatedArrivalTime: &past},
			want: true,
		},
		{
			name: "pending future estimate",
			wp:   Waypoint{Status: WaypointStatusPending, EstimatedArrivalTime: &future},
			want: false,
		},
		{
			name: "pending without estimate",
			wp:   Waypoint{Status: WaypointStatusPending},
			want: false,
		},
		{
			name: "in progress past estimate",
			wp:   Waypoint{Status: WaypointStatusInProgress, EstimatedArrivalTime: &past},
			want: false,
		},
		{
			name: "completed past estimate",
			wp:   Waypoint{Status: WaypointStatusCompleted, EstimatedArrivalTime: &past},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.wp.Overdue(now); got != tt.want {
				t.Errorf("Overdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoute_Progress(t *testing.T) {
	route := &Route{
		Waypoints: []*Waypoint{
			{Status: WaypointStatusCompleted},
			{Status: WaypointStatusSkipped},
			{Status: WaypointStatusInProgress},
			{Status: WaypointStatusPending},
		},
	}

	p := route.Progress()
	if p.TotalStops != 4 || p.CompletedStops != 1 || p.SkippedStops != 1 {
		t.Errorf("unexpected progress counts: %+v", p)
	}
	if p.Percent != 50 {
		t.Errorf("expected 50%% progress, got %f", p.Percent)
	}
}
