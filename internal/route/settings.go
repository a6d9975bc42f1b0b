package route

import (
	"os"
	"strconv"

	"github.com/fieldroute/fieldroute/internal/directions"
)

// Settings holds the process-wide planning parameters. The value is
// immutable once constructed and injected into the service, so every
// optimization and timing computation is a pure function of its inputs.
type Settings struct {
	// FuelEfficiencyKmPerLiter and FuelPricePerLiter drive fuel cost
	// estimates for a route's total distance.
	FuelEfficiencyKmPerLiter float64
	FuelPricePerLiter        float64

	// BreakMinutes is inserted between stops, never after the last one.
	BreakMinutes int

	// BufferPercent inflates each stop's service duration to absorb
	// variance.
	BufferPercent int

	// AverageJobMinutes is the service duration assumed for stops with
	// no explicit estimate.
	AverageJobMinutes int

	// MaxStopsPerRoute caps how many stops one technician-day may carry.
	MaxStopsPerRoute int

	// WorkdayStartHour is the local hour a route's first leg departs
	// when timing estimates are propagated.
	WorkdayStartHour int

	DefaultOptimizationType OptimizationType
	DefaultVehicleType      directions.VehicleType
}

// DefaultSettings returns the standard planning parameters.
func DefaultSettings() Settings {
	return Settings{
		FuelEfficiencyKmPerLiter: 8.0,
		FuelPricePerLiter:        1.50,
		BreakMinutes:             30,
		BufferPercent:            20,
		AverageJobMinutes:        120,
		MaxStopsPerRoute:         8,
		WorkdayStartHour:         8,
		DefaultOptimizationType:  OptimizeTime,
		DefaultVehicleType:       directions.VehicleTruck,
	}
}

// SettingsFromEnv creates Settings from environment variables, falling
// back to the defaults for anything unset or unparsable.
func SettingsFromEnv() Settings {
	s := DefaultSettings()

	s.FuelEfficiencyKmPerLiter = envFloat("ROUTE_FUEL_EFFICIENCY_KM_PER_LITER", s.FuelEfficiencyKmPerLiter)
	s.FuelPricePerLiter = envFloat("ROUTE_FUEL_PRICE_PER_LITER", s.FuelPricePerLiter)
	s.BreakMinutes = envInt("ROUTE_BREAK_MINUTES", s.BreakMinutes)
	s.BufferPercent = envInt("ROUTE_BUFFER_PERCENT", s.BufferPercent)
	s.AverageJobMinutes = envInt("ROUTE_AVERAGE_JOB_MINUTES", s.AverageJobMinutes)
	s.MaxStopsPerRoute = envInt("ROUTE_MAX_STOPS", s.MaxStopsPerRoute)
	s.WorkdayStartHour = envInt("ROUTE_WORKDAY_START_HOUR", s.WorkdayStartHour)

	if v := os.Getenv("ROUTE_DEFAULT_OPTIMIZATION"); v != "" {
		s.DefaultOptimizationType = OptimizationType(v)
	}
	if v := os.Getenv("ROUTE_DEFAULT_VEHICLE"); v != "" {
		s.DefaultVehicleType = directions.VehicleType(v)
	}

	return s
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
