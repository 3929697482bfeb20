package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-polyline"
)

var (
	// ErrMalformedPolyline is returned for truncated or otherwise undecodable
	// polyline strings.
	ErrMalformedPolyline = errors.New("malformed polyline")

	// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
)

const polylinePrecision = 100000.0

// DecodePolyline decodes a Google encoded polyline into coordinates.
//
// Deltas accumulate from (0, 0). A zero delta pair repeats the previous
// point and is skipped. Each accumulated coordinate is rounded to 6 decimal
// places so that decoded values compare equal to the values that were
// encoded.
func DecodePolyline(encoded string) (RouteSegment, error) {
	buf := []byte(encoded)
	var deltas []float64
	for len(buf) > 0 {
		offset := len(encoded) - len(buf)
		v, rest, err := polyline.DecodeInt(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at offset %d: %v", ErrMalformedPolyline, encoded, offset, err)
		}
		deltas = append(deltas, float64(v)/polylinePrecision)
		buf = rest
	}
	if len(deltas)%2 != 0 {
		return nil, fmt.Errorf("%w: %q has a latitude without a longitude", ErrMalformedPolyline, encoded)
	}

	points := make(RouteSegment, 0, len(deltas)/2)
	var lat, lng float64
	for i := 0; i < len(deltas); i += 2 {
		if deltas[i] == 0 && deltas[i+1] == 0 {
			continue
		}
		lat += deltas[i]
		lng += deltas[i+1]
		points = append(points, Coordinate{
			Latitude:  roundTo6(lat),
			Longitude: roundTo6(lng),
		})
	}
	return points, nil
}

// EncodePolyline encodes coordinates with the standard 1e5 precision.
func EncodePolyline(coords []Coordinate) string {
	raw := make([][]float64, len(coords))
	for i, c := range coords {
		raw[i] = []float64{c.Latitude, c.Longitude}
	}
	return string(polyline.EncodeCoords(raw))
}

func roundTo6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
