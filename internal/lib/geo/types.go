package geo

import (
	"fmt"
	"time"
)

// Coordinate is a bare latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the coordinate the way the directions services expect it.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// LonLat returns the coordinate in longitude-first order, as used by the
// rendering and GeoJSON layers.
func (c Coordinate) LonLat() [2]float64 {
	return [2]float64{c.Longitude, c.Latitude}
}

// DistanceTo returns the great-circle distance to other in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return Distance(c.Latitude, c.Longitude, other.Latitude, other.Longitude)
}

// TimedPoint is a located point in time. Moment is seconds since the Unix
// epoch. Points built by the interpolator have Synthetic set.
type TimedPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Moment    int64   `json:"timestamp_utc"`
	Synthetic bool    `json:"synthetic,omitempty"`
}

// NewTimedPoint creates a TimedPoint, validating the coordinate range and
// the timestamp.
func NewTimedPoint(latitude, longitude float64, moment int64) (TimedPoint, error) {
	p := TimedPoint{Latitude: latitude, Longitude: longitude, Moment: moment}
	if !isValidCoordinate(p.Coordinate()) {
		return TimedPoint{}, fmt.Errorf("%w: got (%f, %f)", ErrInvalidCoordinate, latitude, longitude)
	}
	if moment < 0 {
		return TimedPoint{}, fmt.Errorf("invalid timestamp %d: must not be negative", moment)
	}
	return p, nil
}

// Coordinate drops the time component.
func (p TimedPoint) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Time returns the moment in the given location.
func (p TimedPoint) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(p.Moment, 0).In(loc)
}

// RouteSegment is the flattened sequence of coordinates decoded from one
// directions response.
type RouteSegment []Coordinate

func isValidCoordinate(c Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}
