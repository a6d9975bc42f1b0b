package route

// EfficiencyReport compares a route's recorded execution against its plan.
type EfficiencyReport struct {
	TotalStops     int
	CompletedStops int
	SkippedStops   int

	EstimatedDistanceKm float64
	ActualDistanceKm    float64

	EstimatedDurationHours float64
	ActualDurationHours    float64

	// DistanceEfficiencyPercent and TimeEfficiencyPercent are
	// actual/estimated ratios. When the estimated denominator is zero
	// both default to 100 so an unplanned route doesn't distort scores.
	DistanceEfficiencyPercent float64
	TimeEfficiencyPercent     float64

	// OnTimeCompletionRate is the percentage of completed stops with a
	// recorded arrival. It does not compare actual against estimated
	// arrival times; it only measures whether the arrival was tracked.
	OnTimeCompletionRate float64
}

// Analyze produces an efficiency report for the route. Read-only: the
// route and its waypoints are never mutated.
//
// Actual distance and duration sum every waypoint's recorded leg
// distance and service time, regardless of status; GPS-tracked mileage
// is not recorded, so the per-leg plan is the best available proxy.
func Analyze(route *Route) EfficiencyReport {
	report := EfficiencyReport{
		TotalStops:             len(route.Waypoints),
		EstimatedDistanceKm:    route.TotalDistanceKm,
		EstimatedDurationHours: float64(route.TotalDurationMinutes) / 60,
	}

	trackedArrivals := 0
	actualMinutes := 0
	for _, wp := range route.Waypoints {
		report.ActualDistanceKm += wp.DistanceFromPreviousKm
		if wp.ActualDurationMinutes != nil {
			actualMinutes += *wp.ActualDurationMinutes
		}

		switch wp.Status {
		case WaypointStatusCompleted:
			report.CompletedStops++
			if wp.ActualArrivalTime != nil {
				trackedArrivals++
			}
		case WaypointStatusSkipped:
			report.SkippedStops++
		}
	}
	report.ActualDurationHours = float64(actualMinutes) / 60

	report.DistanceEfficiencyPercent = ratioPercent(report.ActualDistanceKm, report.EstimatedDistanceKm)
	report.TimeEfficiencyPercent = ratioPercent(report.ActualDurationHours, report.EstimatedDurationHours)

	if report.CompletedStops > 0 {
		report.OnTimeCompletionRate = float64(trackedArrivals) / float64(report.CompletedStops) * 100
	}

	return report
}

func ratioPercent(actual, estimated float64) float64 {
	if estimated == 0 {
		return 100
	}
	return actual / estimated * 100
}
