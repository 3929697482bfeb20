package geo

import (
	"math"
)

// EarthRadiusMeters is the sphere radius used for great-circle distances.
const EarthRadiusMeters = 6378100

// Distance calculates the great-circle distance in meters between two
// points using the spherical law of cosines.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	const degreesToRadians = math.Pi / 180.0

	// phi = 90 - latitude
	phi1 := (90.0 - lat1) * degreesToRadians
	phi2 := (90.0 - lat2) * degreesToRadians

	// theta = longitude
	theta1 := lon1 * degreesToRadians
	theta2 := lon2 * degreesToRadians

	cos := math.Sin(phi1)*math.Sin(phi2)*math.Cos(theta1-theta2) +
		math.Cos(phi1)*math.Cos(phi2)

	// Rounding can push the cosine a hair outside of acos's domain.
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * EarthRadiusMeters
}

// PointToPoint calculates the great-circle distance between two coordinates,
// rejecting out-of-range input.
func PointToPoint(p1, p2 Coordinate) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, ErrInvalidCoordinate
	}
	if p1 == p2 {
		return 0, nil
	}
	return p1.DistanceTo(p2), nil
}

// PathLength sums the distances between consecutive coordinates.
func PathLength(coords []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += coords[i-1].DistanceTo(coords[i])
	}
	return total
}
