package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/geo"
	"github.com/lelandbatey/batey-bike-trip-records/internal/lib/routing"
)

// DirectionsClient queries the Google Maps Directions API.
type DirectionsClient struct {
	client *maps.Client
}

// NewDirectionsClient creates a Directions API client. baseURL overrides the
// API host when non-empty.
func NewDirectionsClient(apiKey, baseURL string, timeout time.Duration) (*DirectionsClient, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DirectionsClient{client: client}, nil
}

// Directions requests a route between two coordinates. Implements
// routing.Directions.
func (d *DirectionsClient) Directions(ctx context.Context, from, to geo.Coordinate, mode routing.TravelMode) (*routing.Response, error) {
	routes, _, err := d.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        maps.Mode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	return fromMapsRoutes(routes), nil
}

func fromMapsRoutes(routes []maps.Route) *routing.Response {
	out := &routing.Response{Routes: make([]routing.Route, 0, len(routes))}
	for _, route := range routes {
		rr := routing.Route{Legs: make([]routing.Leg, 0, len(route.Legs))}
		for _, leg := range route.Legs {
			if leg == nil {
				continue
			}
			rl := routing.Leg{Steps: make([]routing.Step, 0, len(leg.Steps))}
			for _, step := range leg.Steps {
				if step == nil {
					continue
				}
				rl.Steps = append(rl.Steps, routing.Step{Polyline: step.Polyline.Points})
			}
			rr.Legs = append(rr.Legs, rl)
		}
		out.Routes = append(out.Routes, rr)
	}
	return out
}
