package routing

import (
	"context"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
)

// TravelMode hints the directions service at how the trip was made.
type TravelMode string

const (
	Bicycling TravelMode = "bicycling"
	Driving   TravelMode = "driving"
	Walking   TravelMode = "walking"
	Transit   TravelMode = "transit"
)

// ParseTravelMode validates a configured travel mode.
func ParseTravelMode(s string) (TravelMode, bool) {
	switch m := TravelMode(s); m {
	case Bicycling, Driving, Walking, Transit:
		return m, true
	case "":
		return Bicycling, true
	default:
		return "", false
	}
}

// Response is a directions result: zero or more candidate routes, each made
// of legs, each made of steps carrying an encoded polyline.
type Response struct {
	Routes []Route `json:"routes"`
}

// Route is one candidate route in a Response.
type Route struct {
	Legs []Leg `json:"legs"`
}

// Leg is the part of a route between two waypoints.
type Leg struct {
	Steps []Step `json:"steps"`
}

// Step is a single maneuver with its encoded geometry.
type Step struct {
	Polyline string `json:"polyline"`
}

// Polylines returns every step polyline in the order they are encountered
// walking routes, then legs, then steps.
func (r *Response) Polylines() []string {
	if r == nil {
		return nil
	}
	var polylines []string
	for _, route := range r.Routes {
		for _, leg := range route.Legs {
			for _, step := range leg.Steps {
				polylines = append(polylines, step.Polyline)
			}
		}
	}
	return polylines
}

// Flatten decodes and concatenates every step polyline in the response.
// A nil or empty response yields an empty segment.
func (r *Response) Flatten() (geo.RouteSegment, error) {
	segment := geo.RouteSegment{}
	for _, encoded := range r.Polylines() {
		points, err := geo.DecodePolyline(encoded)
		if err != nil {
			return nil, err
		}
		segment = append(segment, points...)
	}
	return segment, nil
}

// Directions is the routing collaborator: given two coordinates it returns
// a road-routed path between them.
type Directions interface {
	Directions(ctx context.Context, from, to geo.Coordinate, mode TravelMode) (*Response, error)
}

// DirectionsFunc adapts a function to the Directions interface.
type DirectionsFunc func(ctx context.Context, from, to geo.Coordinate, mode TravelMode) (*Response, error)

// Directions calls f.
func (f DirectionsFunc) Directions(ctx context.Context, from, to geo.Coordinate, mode TravelMode) (*Response, error) {
	return f(ctx, from, to, mode)
}
