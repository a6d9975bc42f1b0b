// Package polyline implements Google's encoded polyline algorithm, used
// to carry route geometry compactly between the directions provider and
// API clients.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
	"strings"
)

// precision is 5 decimal places, the standard Directions API format.
const precision = 1e5

// Coordinate is a geographic point on the encoded path.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Encode packs coordinates into an encoded polyline string. Each point is
// stored as a delta from the previous one in 5-bit chunks.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(coords) * 6)

	prevLat, prevLon := 0, 0
	for _, c := range coords {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))

		writeValue(&sb, lat-prevLat)
		writeValue(&sb, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return sb.String()
}

func writeValue(sb *strings.Builder, value int) {
	// Left-shift and invert negatives so the sign lives in the low bit.
	value <<= 1
	if value < 0 {
		value = ^value
	}

	for value >= 0x20 {
		sb.WriteByte(byte(value&0x1f|0x20) + 63)
		value >>= 5
	}
	sb.WriteByte(byte(value) + 63)
}

// Decode unpacks an encoded polyline into coordinates. Malformed trailing
// bytes are ignored; a well-formed prefix still decodes.
func Decode(encoded string) []Coordinate {
	var coords []Coordinate
	lat, lon := 0, 0

	for pos := 0; pos < len(encoded); {
		latDelta, next, ok := readValue(encoded, pos)
		if !ok {
			break
		}
		lonDelta, afterLon, ok := readValue(encoded, next)
		if !ok {
			break
		}
		pos = afterLon

		lat += latDelta
		lon += lonDelta
		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

func readValue(encoded string, pos int) (value, next int, ok bool) {
	result, shift := 0, 0
	for {
		if pos >= len(encoded) {
			return 0, pos, false
		}
		b := int(encoded[pos]) - 63
		pos++
		result |= (b & 0x1f) << shift
		if b < 0x20 {
			break
		}
		shift += 5
	}

	if result&1 != 0 {
		return ^(result >> 1), pos, true
	}
	return result >> 1, pos, true
}

// LengthMeters is the great-circle length of the decoded path.
func LengthMeters(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversine(coords[i-1], coords[i])
	}
	return total
}

const earthRadiusMeters = 6371000

func haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
