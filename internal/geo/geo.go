// Package geo provides immutable geographic value objects and
// great-circle math shared by the routing components.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// Point represents a WGS84 geographic point.
type Point struct {
	Lat float64
	Lon float64
}

// Validate checks that the point is within valid WGS84 ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", p.Lon)
	}
	return nil
}

// IsZero reports whether the point is the zero value.
// The zero point (0,0) is in the Gulf of Guinea and is treated as "unset"
// for optional start/end locations.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
