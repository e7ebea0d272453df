// Package polyline encodes and decodes route geometries in the encoded polyline format.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
//
// OpenRouteService returns geometries at precision 5, OSRM can return precision 6.
package polyline

import (
	"errors"
	"math"
)

// ErrMalformed is returned when an encoded string ends in the middle of a value
// or holds an odd number of values.
var ErrMalformed = errors.New("malformed polyline")

// Precision is the scale factor applied to degrees before encoding.
type Precision float64

const (
	// Precision5 is the Google/ORS default (1e5).
	Precision5 Precision = 1e5
	// Precision6 is used by OSRM when geometries=polyline6 (1e6).
	Precision6 Precision = 1e6
)

// Coordinate is a decoded latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes an encoded polyline at the given precision.
// An empty string decodes to nil.
func Decode(encoded string, precision Precision) ([]Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	if precision <= 0 {
		precision = Precision5
	}

	coords := make([]Coordinate, 0, len(encoded)/4)
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrMalformed
		}
		index = next
		lat += latDelta

		if index >= len(encoded) {
			return nil, ErrMalformed
		}
		lonDelta, next, ok := decodeValue(encoded, index)
		if !ok {
			return nil, ErrMalformed
		}
		index = next
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / float64(precision),
			Lon: float64(lon) / float64(precision),
		})
	}

	return coords, nil
}

// decodeValue decodes one signed value starting at index.
// ok is false when the input ends before the value's terminating chunk.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		if b < 0 {
			return 0, index, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}

	return 0, index, false
}

// Encode encodes coordinates at the given precision.
func Encode(coords []Coordinate, precision Precision) string {
	if len(coords) == 0 {
		return ""
	}
	if precision <= 0 {
		precision = Precision5
	}

	encoded := make([]byte, 0, len(coords)*6)
	prevLat := 0
	prevLon := 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * float64(precision)))
		lon := int(math.Round(coord.Lon * float64(precision)))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
