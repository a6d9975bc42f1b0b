package route

import (
	"math"
	"testing"
	"time"
)

func TestAnalyze(t *testing.T) {
	arrival := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	duration50 := 50
	duration70 := 70

	route := &Route{
		TotalDistanceKm:      20,
		TotalDurationMinutes: 120,
		Waypoints: []*Waypoint{
			{
				Status:                 WaypointStatusCompleted,
				DistanceFromPreviousKm: 8,
				ActualArrivalTime:      &arrival,
				ActualDurationMinutes:  &duration50,
			},
			{
				Status:                 WaypointStatusCompleted,
				DistanceFromPreviousKm: 10,
				ActualArrivalTime:      &arrival,
				ActualDurationMinutes:  &duration70,
			},
			{
				Status:                 WaypointStatusSkipped,
				DistanceFromPreviousKm: 2,
			},
		},
	}

	report := Analyze(route)

	if report.TotalStops != 3 || report.CompletedStops != 2 || report.SkippedStops != 1 {
		t.Errorf("unexpected stop counts: %+v", report)
	}
	if math.Abs(report.ActualDistanceKm-20) > 0.001 {
		t.Errorf("expected actual distance 20km across all waypoints, got %f", report.ActualDistanceKm)
	}
	if math.Abs(report.ActualDurationHours-2.0) > 0.001 {
		t.Errorf("expected actual duration 2h, got %f", report.ActualDurationHours)
	}
	if math.Abs(report.DistanceEfficiencyPercent-100) > 0.001 {
		t.Errorf("expected 100%% distance efficiency, got %f", report.DistanceEfficiencyPercent)
	}
	if math.Abs(report.TimeEfficiencyPercent-100) > 0.001 {
		t.Errorf("expected 100%% time efficiency, got %f", report.TimeEfficiencyPercent)
	}
	if report.OnTimeCompletionRate != 100 {
		t.Errorf("expected on-time rate 100, got %f", report.OnTimeCompletionRate)
	}
}

// Actual distance covers every waypoint's recorded leg, not just the
// completed ones: a mostly-unfinished route still drove its legs.
func TestAnalyze_ActualDistanceIncludesPendingLegs(t *testing.T) {
	arrival := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	route := &Route{
		TotalDistanceKm:      30,
		TotalDurationMinutes: 180,
		Waypoints: []*Waypoint{
			{
				Status:                 WaypointStatusCompleted,
				DistanceFromPreviousKm: 10,
				ActualArrivalTime:      &arrival,
			},
			{Status: WaypointStatusPending, DistanceFromPreviousKm: 10},
			{Status: WaypointStatusPending, DistanceFromPreviousKm: 10},
		},
	}

	report := Analyze(route)

	if math.Abs(report.ActualDistanceKm-30) > 0.001 {
		t.Errorf("expected actual distance 30km, got %f", report.ActualDistanceKm)
	}
	if math.Abs(report.DistanceEfficiencyPercent-100) > 0.001 {
		t.Errorf("expected 100%% distance efficiency, got %f", report.DistanceEfficiencyPercent)
	}
}

func TestAnalyze_ZeroEstimates(t *testing.T) {
	duration30 := 30
	route := &Route{
		// Never optimized: no estimated distance or duration.
		Waypoints: []*Waypoint{
			{Status: WaypointStatusCompleted, ActualDurationMinutes: &duration30},
		},
	}

	report := Analyze(route)

	if report.DistanceEfficiencyPercent != 100 {
		t.Errorf("zero estimated distance must yield 100%%, got %f", report.DistanceEfficiencyPercent)
	}
	if report.TimeEfficiencyPercent != 100 {
		t.Errorf("zero estimated duration must yield 100%%, got %f", report.TimeEfficiencyPercent)
	}
}

// The on-time rate counts completed stops with a recorded arrival; it
// does not compare against the estimated schedule.
func TestAnalyze_OnTimeRateCountsTrackedArrivals(t *testing.T) {
	estimated := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lateArrival := estimated.Add(3 * time.Hour)

	route := &Route{
		TotalDistanceKm:      10,
		TotalDurationMinutes: 60,
		Waypoints: []*Waypoint{
			{
				Status:               WaypointStatusCompleted,
				EstimatedArrivalTime: &estimated,
				ActualArrivalTime:    &lateArrival, // hours late, still counted
			},
			{
				Status: WaypointStatusCompleted, // no recorded arrival
			},
		},
	}

	report := Analyze(route)

	if report.OnTimeCompletionRate != 50 {
		t.Errorf("expected rate 50, got %f", report.OnTimeCompletionRate)
	}
}

func TestAnalyze_DoesNotMutate(t *testing.T) {
	route := &Route{
		TotalDistanceKm: 5,
		Waypoints: []*Waypoint{
			{Status: WaypointStatusCompleted, DistanceFromPreviousKm: 5},
		},
	}

	before := *route.Waypoints[0]
	_ = Analyze(route)

	if *route.Waypoints[0] != before {
		t.Error("Analyze mutated a waypoint")
	}
	if route.TotalDistanceKm != 5 {
		t.Error("Analyze mutated the route")
	}
}

func TestAnalyze_EmptyRoute(t *testing.T) {
	report := Analyze(&Route{})

	if report.TotalStops != 0 || report.CompletedStops != 0 {
		t.Errorf("unexpected counts for empty route: %+v", report)
	}
	if report.OnTimeCompletionRate != 0 {
		t.Errorf("expected zero on-time rate with no completions, got %f", report.OnTimeCompletionRate)
	}
}
