package route

import (
	"fmt"
	"math"
	"time"

	"github.com/fieldroute/fieldroute/internal/directions"
)

// LegMismatchError reports fewer legs than waypoints handed to timing
// propagation. This is an internal invariant violation in the optimizer's
// data assembly, never a normal runtime condition, so it fails loudly
// instead of silently truncating the schedule.
type LegMismatchError struct {
	Legs      int
	Waypoints int
}

func (e *LegMismatchError) Error() string {
	return fmt.Sprintf("timing propagation needs one leg per stop: %d legs for %d waypoints",
		e.Legs, e.Waypoints)
}

// WaypointTiming is the planned schedule for one stop.
type WaypointTiming struct {
	EstimatedArrival   time.Time
	EstimatedDeparture time.Time

	// ServiceMinutes is the buffered on-site duration.
	ServiceMinutes int

	// TravelMinutes is the rounded travel time from the previous point.
	TravelMinutes int
}

// PropagateTimings walks the ordered stops from startTime, advancing a
// clock through each leg's travel time, the stop's buffered service
// duration, and a break between stops (not after the last). Leg i is the
// travel into stop i, from the origin for the first stop.
//
// Pure function of its inputs: the caller supplies the start time, so the
// result is reproducible without clock mocking.
func PropagateTimings(
	startTime time.Time,
	ordered []*Waypoint,
	legs []directions.Leg,
	serviceMinutes func(*Waypoint) int,
	bufferPercent int,
	breakMinutes int,
) ([]WaypointTiming, error) {
	if len(legs) < len(ordered) {
		return nil, &LegMismatchError{Legs: len(legs), Waypoints: len(ordered)}
	}

	timings := make([]WaypointTiming, 0, len(ordered))
	clock := startTime

	for i, wp := range ordered {
		travel := time.Duration(legs[i].DurationSeconds) * time.Second
		arrival := clock.Add(travel)

		service := serviceMinutes(wp)
		buffered := service + int(math.Round(float64(service)*float64(bufferPercent)/100))
		departure := arrival.Add(time.Duration(buffered) * time.Minute)

		timings = append(timings, WaypointTiming{
			EstimatedArrival:   arrival,
			EstimatedDeparture: departure,
			ServiceMinutes:     buffered,
			TravelMinutes:      minutesFromSeconds(legs[i].DurationSeconds),
		})

		clock = departure
		if i < len(ordered)-1 {
			clock = clock.Add(time.Duration(breakMinutes) * time.Minute)
		}
	}

	return timings, nil
}

func minutesFromSeconds(seconds int) int {
	return int(math.Round(float64(seconds) / 60))
}

func kmFromMeters(meters int) float64 {
	return float64(meters) / 1000
}
