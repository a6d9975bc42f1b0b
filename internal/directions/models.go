// Package directions defines the routing-oracle boundary: the provider
// interface, the leg/order result shape, and the error taxonomy shared by
// the remote client and the local estimator.
package directions

import (
	"context"
	"errors"
	"time"

	"github.com/fieldroute/fieldroute/internal/geo"
)

// Sentinel errors for oracle operations.
var (
	// ErrUnavailable indicates the oracle is unreachable (network error,
	// timeout, auth failure, quota) and callers should fall back.
	ErrUnavailable = errors.New("routing oracle unavailable")
	// ErrNoRouteFound indicates no feasible path exists between the stops.
	// This is a hard failure; callers must not fall back.
	ErrNoRouteFound = errors.New("no route found between the given stops")
	// ErrInvalidRequest indicates the request itself was malformed
	// (bad coordinates). A caller bug, never retried.
	ErrInvalidRequest = errors.New("invalid routing request")
)

// VehicleType selects the speed and cost assumptions for a route.
type VehicleType string

const (
	VehicleCar   VehicleType = "car"
	VehicleVan   VehicleType = "van"
	VehicleTruck VehicleType = "truck"
)

// Preferences carries routing preferences through to the oracle.
type Preferences struct {
	AvoidTolls    bool
	AvoidHighways bool
	Vehicle       VehicleType
}

// Request asks for an optimized ordering of job stops between an origin
// and a destination.
type Request struct {
	Origin      geo.Point
	Destination geo.Point
	Waypoints   []geo.Point
	Preferences Preferences
}

// Leg is the travel segment between two consecutive points in the final
// ordering, including origin to first stop and last stop to destination.
type Leg struct {
	DistanceMeters  int
	DurationSeconds int
}

// Result is the oracle's answer: per-leg metrics, the stop ordering it
// selected, and an encoded overview path.
type Result struct {
	Legs []Leg

	// OptimizedOrder is a permutation of the input waypoint indices:
	// OptimizedOrder[i] is the input index of the stop visited i-th.
	OptimizedOrder []int

	// EncodedPath is the polyline for the whole route, empty when the
	// source cannot produce one.
	EncodedPath string

	// Provider identifies which source produced the result.
	Provider string

	FetchedAt time.Time
}

// TotalDistanceMeters sums all leg distances.
func (r *Result) TotalDistanceMeters() int {
	total := 0
	for _, l := range r.Legs {
		total += l.DistanceMeters
	}
	return total
}

// TotalDurationSeconds sums all leg durations.
func (r *Result) TotalDurationSeconds() int {
	total := 0
	for _, l := range r.Legs {
		total += l.DurationSeconds
	}
	return total
}

// Provider computes an optimized stop ordering with per-leg metrics.
type Provider interface {
	// GetOptimizedRoute returns leg metrics and a stop ordering for the
	// request. The call must be bounded by a timeout and must not retry
	// internally; retry policy belongs to the caller.
	GetOptimizedRoute(ctx context.Context, req Request) (*Result, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Error provides detailed error information from a routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying sentinel error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFallbackable returns true if the caller should degrade to the local
// estimator instead of failing the optimization.
func (e *Error) IsFallbackable() bool {
	return errors.Is(e.Err, ErrUnavailable)
}
