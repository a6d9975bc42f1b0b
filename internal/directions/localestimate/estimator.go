// Package localestimate provides an in-process fallback for the routing
// oracle. It estimates leg metrics from great-circle distances and never
// reorders stops: without the oracle the engine does not claim to have
// found a better ordering.
package localestimate

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/directions"
	"github.com/fieldroute/fieldroute/internal/geo"
	"github.com/fieldroute/fieldroute/pkg/polyline"
)

// ProviderName identifies the local estimator.
const ProviderName = "localestimate"

// Assumed average road speeds by vehicle type, in km/h.
const (
	speedCarKmh     = 55.0
	speedVanKmh     = 50.0
	speedTruckKmh   = 45.0
	speedDefaultKmh = 50.0
)

// Estimator approximates leg distance and duration without a remote oracle.
type Estimator struct {
	logger zerolog.Logger
}

// NewEstimator creates a new local estimator.
func NewEstimator(logger zerolog.Logger) *Estimator {
	return &Estimator{logger: logger}
}

// Name returns the provider name.
func (e *Estimator) Name() string {
	return ProviderName
}

// GetOptimizedRoute estimates each leg with the haversine distance between
// consecutive points in input order. The returned ordering is always the
// identity permutation and the call never fails.
func (e *Estimator) GetOptimizedRoute(_ context.Context, req directions.Request) (*directions.Result, error) {
	chain := make([]geo.Point, 0, len(req.Waypoints)+2)
	chain = append(chain, req.Origin)
	chain = append(chain, req.Waypoints...)
	chain = append(chain, req.Destination)

	speed := averageSpeedKmh(req.Preferences.Vehicle)

	legs := make([]directions.Leg, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		meters := geo.HaversineMeters(chain[i-1], chain[i])
		seconds := meters / 1000 / speed * 3600
		legs = append(legs, directions.Leg{
			DistanceMeters:  int(math.Round(meters)),
			DurationSeconds: int(math.Round(seconds)),
		})
	}

	order := make([]int, len(req.Waypoints))
	for i := range order {
		order[i] = i
	}

	result := &directions.Result{
		Legs:           legs,
		OptimizedOrder: order,
		EncodedPath:    encodeChain(chain),
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}

	e.logger.Debug().
		Int("leg_count", len(legs)).
		Int("total_distance_m", result.TotalDistanceMeters()).
		Float64("assumed_speed_kmh", speed).
		Msg("estimated route locally")

	return result, nil
}

// encodeChain produces a straight-line polyline so degraded results still
// carry a drawable path.
func encodeChain(chain []geo.Point) string {
	coords := make([]polyline.Coordinate, 0, len(chain))
	for _, p := range chain {
		coords = append(coords, polyline.Coordinate{Lat: p.Lat, Lon: p.Lon})
	}
	return polyline.Encode(coords)
}

func averageSpeedKmh(v directions.VehicleType) float64 {
	switch v {
	case directions.VehicleCar:
		return speedCarKmh
	case directions.VehicleVan:
		return speedVanKmh
	case directions.VehicleTruck:
		return speedTruckKmh
	default:
		return speedDefaultKmh
	}
}

// Ensure Estimator implements the provider interface.
var _ directions.Provider = (*Estimator)(nil)
