// Package geo provides great-circle primitives shared by the routing, weather
// and risk packages.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// SamePointToleranceKm is the distance under which two coordinates are
// considered the same place.
const SamePointToleranceKm = 0.01

// ErrOutOfRange is returned by Validate for latitudes or longitudes outside
// the valid WGS84 range.
var ErrOutOfRange = errors.New("coordinate out of range")

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that lat is in [-90, 90] and lon in [-180, 180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %f not in [-90, 90]", ErrOutOfRange, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %f not in [-180, 180]", ErrOutOfRange, c.Lon)
	}
	return nil
}

// Near reports whether c and other are within toleranceKm of each other.
func (c Coordinate) Near(other Coordinate, toleranceKm float64) bool {
	return HaversineKm(c, other) <= toleranceKm
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", c.Lat, c.Lon)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}

// PathLengthKm sums the haversine length of consecutive segments.
func PathLengthKm(path []Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += HaversineKm(path[i-1], path[i])
	}
	return total
}

// BearingDegrees returns the initial bearing from a to b, in [0, 360).
func BearingDegrees(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// Interpolate returns segments+1 evenly spaced points along the great circle
// from a to b, including both endpoints.
func Interpolate(a, b Coordinate, segments int) []Coordinate {
	if segments < 1 {
		segments = 1
	}
	arc := NewGreatCircle(a, b)
	points := make([]Coordinate, segments+1)
	for i := 0; i <= segments; i++ {
		points[i] = arc.At(float64(i) / float64(segments))
	}
	return points
}

// Offset moves c by distanceKm along bearing (degrees).
func Offset(c Coordinate, bearing, distanceKm float64) Coordinate {
	if distanceKm == 0 {
		return c
	}
	lat1 := radians(c.Lat)
	lon1 := radians(c.Lon)
	brng := radians(bearing)
	d := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Coordinate{Lat: degrees(lat2), Lon: math.Mod(degrees(lon2)+540, 360) - 180}
}

// PointAlong returns the point at fraction (0..1) of the path's length.
func PointAlong(path []Coordinate, fraction float64) Coordinate {
	if len(path) == 0 {
		return Coordinate{}
	}
	if fraction <= 0 || len(path) == 1 {
		return path[0]
	}
	if fraction >= 1 {
		return path[len(path)-1]
	}

	target := PathLengthKm(path) * fraction
	var walked float64
	for i := 1; i < len(path); i++ {
		seg := HaversineKm(path[i-1], path[i])
		if walked+seg >= target && seg > 0 {
			return NewGreatCircle(path[i-1], path[i]).At((target - walked) / seg)
		}
		walked += seg
	}
	return path[len(path)-1]
}

// SamplePoints returns the start, midpoint (by length) and end of a path.
// Paths shorter than two points return a copy of the input.
func SamplePoints(path []Coordinate) []Coordinate {
	if len(path) < 2 {
		return append([]Coordinate(nil), path...)
	}
	return []Coordinate{path[0], PointAlong(path, 0.5), path[len(path)-1]}
}
